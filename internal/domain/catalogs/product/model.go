// Package product provides the Product catalog.
// Products are the sellable items tracked by the stock ledger.
package product

import (
	"context"

	"github.com/shopspring/decimal"

	"retailcore/internal/core/apperror"
	"retailcore/internal/core/entity"
	"retailcore/internal/core/types"
)

// Product represents a sellable item.
// Code doubles as the SKU and is unique across the catalog.
type Product struct {
	entity.Catalog

	// CategoryID is the owning category (nullable)
	CategoryID *string `db:"category_id" json:"categoryId,omitempty"`

	// Barcode is the scannable code (EAN-13 or store-internal "200..." range)
	Barcode *string `db:"barcode" json:"barcode,omitempty"`

	// Description is a detailed description
	Description *string `db:"description" json:"description,omitempty"`

	// Price is the retail selling price
	Price types.Money `db:"price" json:"price"`

	// Cost is the purchase cost used for stock valuation
	Cost types.Money `db:"cost" json:"cost"`

	// MinStockLevel triggers the low-stock flag when on-hand falls to or below it
	MinStockLevel int64 `db:"min_stock_level" json:"minStockLevel"`

	// MaxStockLevel caps replenishment suggestions (0 = no cap)
	MaxStockLevel int64 `db:"max_stock_level" json:"maxStockLevel"`

	// IsActive hides the product from sale when false
	IsActive bool `db:"is_active" json:"isActive"`

	// ImageURL is the product image URL
	ImageURL *string `db:"image_url" json:"imageUrl,omitempty"`
}

// NewProduct creates a new Product with required fields.
func NewProduct(sku, name string) *Product {
	return &Product{
		Catalog:  entity.NewCatalog(sku, name),
		Price:    decimal.Zero,
		Cost:     decimal.Zero,
		IsActive: true,
	}
}

// Validate implements entity.Validatable interface.
func (p *Product) Validate(ctx context.Context) error {
	if err := p.Catalog.Validate(ctx); err != nil {
		return err
	}

	if p.Price.IsNegative() {
		return apperror.NewValidation("price cannot be negative").
			WithDetail("field", "price")
	}

	if p.Cost.IsNegative() {
		return apperror.NewValidation("cost cannot be negative").
			WithDetail("field", "cost")
	}

	if p.MinStockLevel < 0 {
		return apperror.NewValidation("minimum stock level cannot be negative").
			WithDetail("field", "minStockLevel")
	}

	if p.MaxStockLevel < 0 {
		return apperror.NewValidation("maximum stock level cannot be negative").
			WithDetail("field", "maxStockLevel")
	}

	if p.MaxStockLevel > 0 && p.MaxStockLevel < p.MinStockLevel {
		return apperror.NewValidation("maximum stock level must not be below minimum").
			WithDetail("field", "maxStockLevel")
	}

	return nil
}

// IsLowStock reports whether the given on-hand quantity is at or below the
// minimum stock level. A product without a configured minimum flags as soon
// as it runs out.
func (p *Product) IsLowStock(onHand int64) bool {
	return onHand <= p.MinStockLevel
}

// IsOutOfStock reports whether the given on-hand quantity is zero or
// negative (oversold).
func (p *Product) IsOutOfStock(onHand int64) bool {
	return onHand <= 0
}

// Margin returns the absolute margin per unit (price - cost).
func (p *Product) Margin() types.Money {
	return p.Price.Sub(p.Cost)
}
