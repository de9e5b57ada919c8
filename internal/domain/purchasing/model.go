// Package purchasing provides purchase order documents: the replenishment
// context that feeds inbound stock movements on receipt.
package purchasing

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"retailcore/internal/core/apperror"
	"retailcore/internal/core/entity"
	"retailcore/internal/core/id"
	"retailcore/internal/core/types"
)

// Status is the purchase order lifecycle state.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusOrdered   Status = "ordered"
	StatusReceived  Status = "received"
	StatusCancelled Status = "cancelled"
)

// Valid reports whether the status is known.
func (s Status) Valid() bool {
	switch s {
	case StatusDraft, StatusOrdered, StatusReceived, StatusCancelled:
		return true
	}
	return false
}

// Order is a purchase order document.
type Order struct {
	entity.Document

	Status Status `db:"status" json:"status"`

	SupplierName string `db:"supplier_name" json:"supplierName"`

	ExpectedDate *time.Time `db:"expected_date" json:"expectedDate,omitempty"`
	ReceivedAt   *time.Time `db:"received_at" json:"receivedAt,omitempty"`
	ReceivedBy   *string    `db:"received_by" json:"receivedBy,omitempty"`

	Total types.Money `db:"total" json:"total"`
}

// NewOrder creates a draft purchase order.
func NewOrder(supplierName string) *Order {
	return &Order{
		Document:     entity.NewDocument(),
		Status:       StatusDraft,
		SupplierName: supplierName,
		Total:        types.Zero(),
	}
}

// Validate implements entity.Validatable interface.
func (o *Order) Validate(ctx context.Context) error {
	if err := o.Document.Validate(ctx); err != nil {
		return err
	}
	if o.SupplierName == "" {
		return apperror.NewValidation("supplier name is required").
			WithDetail("field", "supplierName")
	}
	if !o.Status.Valid() {
		return apperror.NewValidation("invalid purchase order status").
			WithDetail("field", "status").
			WithDetail("value", string(o.Status))
	}
	return nil
}

// Line is one ordered item.
type Line struct {
	ID      id.ID `db:"id" json:"id"`
	OrderID id.ID `db:"order_id" json:"orderId"`

	ProductID id.ID  `db:"product_id" json:"productId"`
	VariantID *id.ID `db:"variant_id" json:"variantId,omitempty"`

	Quantity int64       `db:"quantity" json:"quantity"`
	UnitCost types.Money `db:"unit_cost" json:"unitCost"`

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
	if l.UnitCost.IsNegative() {
		return apperror.NewValidation("unit cost cannot be negative").
			WithDetail("field", "unitCost")
	}
	return nil
}

// recalculate derives line and order totals.
func recalculate(o *Order, lines []Line) {
	total := types.Zero()
	for i := range lines {
		lines[i].LineTotal = lines[i].UnitCost.Mul(decimal.NewFromInt(lines[i].Quantity))
		total = total.Add(lines[i].LineTotal)
	}
	o.Total = types.Round2(total)
}
