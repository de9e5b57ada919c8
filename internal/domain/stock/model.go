// Package stock provides the stock ledger: an append-only movement journal
// plus a materialized on-hand balance per product or variant counter. All
// quantity changes in the system go through Service.RecordMovement.
package stock

import (
	"context"
	"time"

	"retailcore/internal/core/apperror"
	"retailcore/internal/core/id"
)

// MovementType classifies a ledger entry by its business cause.
type MovementType string

const (
	TypePurchase   MovementType = "purchase"   // goods received from supplier
	TypeSale       MovementType = "sale"       // sold at the register
	TypeAdjustment MovementType = "adjustment" // manual correction (either sign)
	TypeReturn     MovementType = "return"     // customer return
	TypeTransfer   MovementType = "transfer"   // moved to another location
	TypeLoss       MovementType = "loss"       // damage, theft, expiry
)

// Direction returns the expected sign of the quantity delta:
// +1 inbound, -1 outbound, 0 when either sign is allowed.
func (t MovementType) Direction() int {
	switch t {
	case TypePurchase, TypeReturn:
		return 1
	case TypeSale, TypeTransfer, TypeLoss:
		return -1
	default:
		return 0
	}
}

// Valid reports whether the movement type is known.
func (t MovementType) Valid() bool {
	switch t {
	case TypePurchase, TypeSale, TypeAdjustment, TypeReturn, TypeTransfer, TypeLoss:
		return true
	}
	return false
}

// Ref identifies one on-hand counter: a product, optionally narrowed to a
// variant. VariantID is the nil UUID for the product's base counter, which
// keeps Ref comparable and usable as a map key.
type Ref struct {
	ProductID id.ID
	VariantID id.ID
}

// NewRef builds a counter reference from a product and a nullable variant.
func NewRef(productID id.ID, variantID *id.ID) Ref {
	r := Ref{ProductID: productID}
	if variantID != nil {
		r.VariantID = *variantID
	}
	return r
}

// Variant returns the variant as a nullable pointer, nil for the base counter.
func (r Ref) Variant() *id.ID {
	if id.IsNil(r.VariantID) {
		return nil
	}
	v := r.VariantID
	return &v
}

// Movement is a single immutable ledger entry. QuantityDelta is signed:
// positive deltas increase on-hand stock, negative decrease it.
type Movement struct {
	ID id.ID `db:"id" json:"id"`

	ProductID id.ID `db:"product_id" json:"productId"`

	// VariantID narrows the entry to one variant counter (nil = base product)
	VariantID *id.ID `db:"variant_id" json:"variantId,omitempty"`

	Type MovementType `db:"type" json:"type"`

	// QuantityDelta is the signed change in whole units
	QuantityDelta int64 `db:"quantity_delta" json:"quantityDelta"`

	// Reason is a free-form explanation (required for adjustments and losses)
	Reason string `db:"reason" json:"reason,omitempty"`

	// RecorderType / RecorderID reference the document that produced this entry
	RecorderType string `db:"recorder_type" json:"recorderType,omitempty"`
	RecorderID   id.ID  `db:"recorder_id" json:"recorderId,omitempty"`

	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	CreatedBy string    `db:"created_by" json:"createdBy,omitempty"`
}

// NewMovement creates a ledger entry with generated ID and timestamp.
func NewMovement(productID id.ID, t MovementType, delta int64) Movement {
	return Movement{
		ID:            id.New(),
		ProductID:     productID,
		Type:          t,
		QuantityDelta: delta,
		CreatedAt:     time.Now().UTC(),
	}
}

// Ref returns the counter this entry applies to.
func (m *Movement) Ref() Ref {
	return NewRef(m.ProductID, m.VariantID)
}

// Validate checks ledger entry invariants.
func (m *Movement) Validate(ctx context.Context) error {
	if id.IsNil(m.ProductID) {
		return apperror.NewValidation("product is required").
			WithDetail("field", "productId")
	}
	if !m.Type.Valid() {
		return apperror.NewValidation("invalid movement type").
			WithDetail("field", "type").
			WithDetail("value", string(m.Type))
	}
	if m.QuantityDelta == 0 {
		return apperror.NewValidation("quantity delta cannot be zero").
			WithDetail("field", "quantityDelta")
	}

	// Direction must match the movement type.
	switch dir := m.Type.Direction(); {
	case dir > 0 && m.QuantityDelta < 0:
		return apperror.NewValidation("inbound movement requires positive delta").
			WithDetail("type", string(m.Type))
	case dir < 0 && m.QuantityDelta > 0:
		return apperror.NewValidation("outbound movement requires negative delta").
			WithDetail("type", string(m.Type))
	}

	return nil
}

// Balance is the materialized on-hand quantity for one counter. VariantID is
// the nil UUID on base product rows, so (product_id, variant_id) stays a
// usable unique key.
type Balance struct {
	ProductID id.ID     `db:"product_id" json:"productId"`
	VariantID id.ID     `db:"variant_id" json:"variantId"`
	Quantity  int64     `db:"quantity" json:"quantity"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}
