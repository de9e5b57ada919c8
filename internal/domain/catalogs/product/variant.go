package product

import (
	"context"

	"github.com/shopspring/decimal"

	"retailcore/internal/core/apperror"
	"retailcore/internal/core/entity"
	"retailcore/internal/core/id"
	"retailcore/internal/core/types"
)

// Variant is a sellable variation of a product (size, color).
// Variants share the parent's category and stock policy but carry their own
// SKU, barcode and price adjustment.
type Variant struct {
	entity.BaseCatalog

	// ProductID is the parent product
	ProductID id.ID `db:"product_id" json:"productId"`

	// Name describes the variation (e.g. "Red / L")
	Name string `db:"name" json:"name"`

	// SKU is the variant stock keeping unit (unique)
	SKU string `db:"sku" json:"sku"`

	// Barcode is the variant scannable code
	Barcode *string `db:"barcode" json:"barcode,omitempty"`

	// PriceAdjustment is added to the parent product price (may be negative)
	PriceAdjustment types.Money `db:"price_adjustment" json:"priceAdjustment"`

	// IsActive hides the variant from sale when false
	IsActive bool `db:"is_active" json:"isActive"`
}

// NewVariant creates a new Variant for a product.
func NewVariant(productID id.ID, name, sku string) *Variant {
	return &Variant{
		BaseCatalog:     entity.NewBaseCatalog(),
		ProductID:       productID,
		Name:            name,
		SKU:             sku,
		PriceAdjustment: decimal.Zero,
		IsActive:        true,
	}
}

// Validate implements entity.Validatable interface.
func (v *Variant) Validate(ctx context.Context) error {
	if id.IsNil(v.ProductID) {
		return apperror.NewValidation("product is required").
			WithDetail("field", "productId")
	}
	if v.Name == "" {
		return apperror.NewValidation("name is required").
			WithDetail("field", "name")
	}
	if v.SKU == "" {
		return apperror.NewValidation("sku is required").
			WithDetail("field", "sku")
	}
	return nil
}

// EffectivePrice returns the parent price with the variant adjustment applied.
func (v *Variant) EffectivePrice(basePrice types.Money) types.Money {
	price := basePrice.Add(v.PriceAdjustment)
	if price.IsNegative() {
		return decimal.Zero
	}
	return price
}
