// Package adjustment provides manual stock adjustment documents.
// An adjustment proposes a new on-hand quantity for a product; nothing
// touches the ledger until a manager approves it.
package adjustment

import (
	"context"
	"time"

	"retailcore/internal/core/apperror"
	"retailcore/internal/core/entity"
	"retailcore/internal/core/id"
)

// Status is the adjustment lifecycle state.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// Valid reports whether the status is known.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// Reason classifies why stock is being corrected.
type Reason string

const (
	ReasonDamage   Reason = "damage"
	ReasonExpiry   Reason = "expiry"
	ReasonTheft    Reason = "theft"
	ReasonLoss     Reason = "loss"
	ReasonFound    Reason = "found"
	ReasonRecount  Reason = "recount"
	ReasonSupplier Reason = "supplier_return"
	ReasonOther    Reason = "other"
)

// Valid reports whether the reason is known.
func (r Reason) Valid() bool {
	switch r {
	case ReasonDamage, ReasonExpiry, ReasonTheft, ReasonLoss,
		ReasonFound, ReasonRecount, ReasonSupplier, ReasonOther:
		return true
	}
	return false
}

// Adjustment is a proposed stock correction for a single product.
//
// PreviousQuantity is a snapshot of on-hand stock at creation time; the
// quantity the approval applies is the signed difference, so a sale that
// happens between creation and approval is not silently overwritten.
type Adjustment struct {
	entity.Document

	ProductID id.ID `db:"product_id" json:"productId"`

	// VariantID narrows the correction to one variant counter (nil = base product)
	VariantID *id.ID `db:"variant_id" json:"variantId,omitempty"`

	Reason Reason `db:"reason" json:"reason"`

	// PreviousQuantity is the on-hand snapshot taken at creation
	PreviousQuantity int64 `db:"previous_quantity" json:"previousQuantity"`

	// NewQuantity is the proposed on-hand quantity
	NewQuantity int64 `db:"new_quantity" json:"newQuantity"`

	// QuantityDifference = NewQuantity - PreviousQuantity (signed)
	QuantityDifference int64 `db:"quantity_difference" json:"quantityDifference"`

	// Notes carries the free-form justification
	Notes string `db:"notes" json:"notes,omitempty"`

	Status Status `db:"status" json:"status"`

	// ReviewedBy / ReviewedAt are set on approval or rejection
	ReviewedBy *string    `db:"reviewed_by" json:"reviewedBy,omitempty"`
	ReviewedAt *time.Time `db:"reviewed_at" json:"reviewedAt,omitempty"`

	// ReviewComment holds the rejection reason or approval note
	ReviewComment *string `db:"review_comment" json:"reviewComment,omitempty"`
}

// New creates a pending adjustment with the on-hand snapshot applied.
func New(productID id.ID, onHand, newQuantity int64, reason Reason) *Adjustment {
	return &Adjustment{
		Document:           entity.NewDocument(),
		ProductID:          productID,
		Reason:             reason,
		PreviousQuantity:   onHand,
		NewQuantity:        newQuantity,
		QuantityDifference: newQuantity - onHand,
		Status:             StatusPending,
	}
}

// Validate implements entity.Validatable interface.
func (a *Adjustment) Validate(ctx context.Context) error {
	if err := a.Document.Validate(ctx); err != nil {
		return err
	}
	if id.IsNil(a.ProductID) {
		return apperror.NewValidation("product is required").
			WithDetail("field", "productId")
	}
	if !a.Reason.Valid() {
		return apperror.NewValidation("invalid adjustment reason").
			WithDetail("field", "reason").
			WithDetail("value", string(a.Reason))
	}
	if !a.Status.Valid() {
		return apperror.NewValidation("invalid adjustment status").
			WithDetail("field", "status").
			WithDetail("value", string(a.Status))
	}
	if a.NewQuantity < 0 {
		return apperror.NewValidation("new quantity cannot be negative").
			WithDetail("field", "newQuantity")
	}
	if a.QuantityDifference != a.NewQuantity-a.PreviousQuantity {
		return apperror.NewValidation("quantity difference does not match quantities")
	}
	return nil
}

// IsPending reports whether the adjustment still awaits review.
func (a *Adjustment) IsPending() bool {
	return a.Status == StatusPending
}
