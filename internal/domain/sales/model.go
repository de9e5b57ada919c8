// Package sales provides sale documents: the checkout context that drives
// stock movements and promotion usage. Order lifecycle here is deliberately
// thin; the interesting work happens in the stock ledger and the promotion
// engine this package calls into.
package sales

import (
	"context"

	"github.com/shopspring/decimal"

	"retailcore/internal/core/apperror"
	"retailcore/internal/core/entity"
	"retailcore/internal/core/id"
	"retailcore/internal/core/types"
)

// Status is the sale lifecycle state.
type Status string

const (
	StatusOpen      Status = "open"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
	StatusReturned  Status = "returned"
)

// Valid reports whether the status is known.
func (s Status) Valid() bool {
	switch s {
	case StatusOpen, StatusCompleted, StatusCancelled, StatusReturned:
		return true
	}
	return false
}

// Sale is a point-of-sale transaction document.
type Sale struct {
	entity.Document

	Status Status `db:"status" json:"status"`

	CustomerName string `db:"customer_name" json:"customerName,omitempty"`

	// PromoCode is the buyer-supplied code, when one unlocked a discount
	PromoCode *string `db:"promo_code" json:"promoCode,omitempty"`

	// Totals derived from lines at composition time
	Subtotal      types.Money `db:"subtotal" json:"subtotal"`
	DiscountTotal types.Money `db:"discount_total" json:"discountTotal"`
	Total         types.Money `db:"total" json:"total"`
}

// NewSale creates an open sale.
func NewSale() *Sale {
	return &Sale{
		Document:      entity.NewDocument(),
		Status:        StatusOpen,
		Subtotal:      types.Zero(),
		DiscountTotal: types.Zero(),
		Total:         types.Zero(),
	}
}

// Validate implements entity.Validatable interface.
func (s *Sale) Validate(ctx context.Context) error {
	if err := s.Document.Validate(ctx); err != nil {
		return err
	}
	if !s.Status.Valid() {
		return apperror.NewValidation("invalid sale status").
			WithDetail("field", "status").
			WithDetail("value", string(s.Status))
	}
	return nil
}

// Line is one sold item.
type Line struct {
	ID     id.ID `db:"id" json:"id"`
	SaleID id.ID `db:"sale_id" json:"saleId"`

	ProductID id.ID  `db:"product_id" json:"productId"`
	VariantID *id.ID `db:"variant_id" json:"variantId,omitempty"`

	Quantity  int64       `db:"quantity" json:"quantity"`
	UnitPrice types.Money `db:"unit_price" json:"unitPrice"`

	// PromotionID and Discount are set when the promotion engine granted
	// a discount during composition
	PromotionID *id.ID      `db:"promotion_id" json:"promotionId,omitempty"`
	Discount    types.Money `db:"discount" json:"discount"`

	LineTotal types.Money `db:"line_total" json:"lineTotal"`
}

// Validate checks line invariants.
func (l *Line) Validate() error {
	if id.IsNil(l.ProductID) {
		return apperror.NewValidation("product is required").
			WithDetail("field", "productId")
	}
	if l.Quantity <= 0 {
		return apperror.NewValidation("quantity must be positive").
			WithDetail("field", "quantity")
	}
	if l.UnitPrice.IsNegative() {
		return apperror.NewValidation("unit price cannot be negative").
			WithDetail("field", "unitPrice")
	}
	if l.Discount.IsNegative() {
		return apperror.NewValidation("discount cannot be negative").
			WithDetail("field", "discount")
	}
	return nil
}

// GrossTotal returns quantity x unit price before discount.
func (l *Line) GrossTotal() types.Money {
	return l.UnitPrice.Mul(decimal.NewFromInt(l.Quantity))
}

// recalculate derives line and sale totals from the lines.
func recalculate(s *Sale, lines []Line) {
	subtotal := types.Zero()
	discount := types.Zero()
	for i := range lines {
		gross := lines[i].GrossTotal()
		lines[i].LineTotal = gross.Sub(lines[i].Discount)
		subtotal = subtotal.Add(gross)
		discount = discount.Add(lines[i].Discount)
	}
	s.Subtotal = types.Round2(subtotal)
	s.DiscountTotal = types.Round2(discount)
	s.Total = types.Round2(subtotal.Sub(discount))
}
