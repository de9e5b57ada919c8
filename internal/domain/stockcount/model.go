// Package stockcount provides physical inventory counting sessions.
// A session snapshots expected quantities when counting starts, collects
// per-product counts, and can push approved discrepancies back through the
// stock ledger on completion.
package stockcount

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"retailcore/internal/core/apperror"
	"retailcore/internal/core/entity"
	"retailcore/internal/core/id"
	"retailcore/internal/core/types"
)

// SessionStatus is the counting session lifecycle state.
type SessionStatus string

const (
	SessionPlanned    SessionStatus = "planned"
	SessionInProgress SessionStatus = "in_progress"
	SessionCompleted  SessionStatus = "completed"
	SessionCancelled  SessionStatus = "cancelled"
)

// Valid reports whether the session status is known.
func (s SessionStatus) Valid() bool {
	switch s {
	case SessionPlanned, SessionInProgress, SessionCompleted, SessionCancelled:
		return true
	}
	return false
}

// ItemStatus tracks the counting state of a single product line.
type ItemStatus string

const (
	ItemNotCounted  ItemStatus = "not_counted"
	ItemCounted     ItemStatus = "counted"
	ItemDiscrepancy ItemStatus = "discrepancy"
	ItemVerified    ItemStatus = "verified"
)

// Valid reports whether the item status is known.
func (s ItemStatus) Valid() bool {
	switch s {
	case ItemNotCounted, ItemCounted, ItemDiscrepancy, ItemVerified:
		return true
	}
	return false
}

// Session is a physical inventory counting document.
type Session struct {
	entity.Document

	Name string `db:"name" json:"name"`

	Status SessionStatus `db:"status" json:"status"`

	// CategoryID limits the session scope to one category subtree (nil = all)
	CategoryID *string `db:"category_id" json:"categoryId,omitempty"`

	// IncludeInactive widens the scope to products hidden from sale
	IncludeInactive bool `db:"include_inactive" json:"includeInactive"`

	// AutoAdjust pushes counted differences through the ledger on completion
	AutoAdjust bool `db:"auto_adjust" json:"autoAdjust"`

	StartedAt   *time.Time `db:"started_at" json:"startedAt,omitempty"`
	StartedBy   *string    `db:"started_by" json:"startedBy,omitempty"`
	CompletedAt *time.Time `db:"completed_at" json:"completedAt,omitempty"`
	CompletedBy *string    `db:"completed_by" json:"completedBy,omitempty"`

	// Aggregates maintained on completion
	TotalItems       int         `db:"total_items" json:"totalItems"`
	CountedItems     int         `db:"counted_items" json:"countedItems"`
	DiscrepancyItems int         `db:"discrepancy_items" json:"discrepancyItems"`
	TotalValue       types.Money `db:"total_value" json:"totalValue"`
	DiscrepancyValue types.Money `db:"discrepancy_value" json:"discrepancyValue"`
}

// NewSession creates a planned counting session.
func NewSession(name string) *Session {
	return &Session{
		Document:         entity.NewDocument(),
		Name:             name,
		Status:           SessionPlanned,
		TotalValue:       types.Zero(),
		DiscrepancyValue: types.Zero(),
	}
}

// Validate implements entity.Validatable interface.
func (s *Session) Validate(ctx context.Context) error {
	if err := s.Document.Validate(ctx); err != nil {
		return err
	}
	if s.Name == "" {
		return apperror.NewValidation("name is required").
			WithDetail("field", "name")
	}
	if !s.Status.Valid() {
		return apperror.NewValidation("invalid session status").
			WithDetail("field", "status").
			WithDetail("value", string(s.Status))
	}
	return nil
}

// IsOpen reports whether counting is still possible.
func (s *Session) IsOpen() bool {
	return s.Status == SessionInProgress
}

// Item is one product line in a counting session.
type Item struct {
	ID        id.ID `db:"id" json:"id"`
	SessionID id.ID `db:"session_id" json:"sessionId"`
	ProductID id.ID `db:"product_id" json:"productId"`

	// VariantID narrows the line to one variant counter (nil = base product)
	VariantID *id.ID `db:"variant_id" json:"variantId,omitempty"`

	// ExpectedQuantity is the on-hand snapshot taken when the session started
	ExpectedQuantity int64 `db:"expected_quantity" json:"expectedQuantity"`

	// UnitCost is the product cost snapshot taken when the session started,
	// used to value the counted stock and its discrepancies
	UnitCost types.Money `db:"unit_cost" json:"unitCost"`

	// CountedQuantity is nil until someone records a count
	CountedQuantity *int64 `db:"counted_quantity" json:"countedQuantity,omitempty"`

	Status ItemStatus `db:"status" json:"status"`

	CountedBy *string    `db:"counted_by" json:"countedBy,omitempty"`
	CountedAt *time.Time `db:"counted_at" json:"countedAt,omitempty"`

	VerifiedBy *string    `db:"verified_by" json:"verifiedBy,omitempty"`
	VerifiedAt *time.Time `db:"verified_at" json:"verifiedAt,omitempty"`

	Notes *string `db:"notes" json:"notes,omitempty"`
}

// NewItem creates a not-counted line with the expected quantity and unit
// cost snapshots.
func NewItem(sessionID, productID id.ID, expected int64, unitCost types.Money) Item {
	return Item{
		ID:               id.New(),
		SessionID:        sessionID,
		ProductID:        productID,
		ExpectedQuantity: expected,
		UnitCost:         unitCost,
		Status:           ItemNotCounted,
	}
}

// Difference returns counted - expected, or zero when not counted yet.
func (i *Item) Difference() int64 {
	if i.CountedQuantity == nil {
		return 0
	}
	return *i.CountedQuantity - i.ExpectedQuantity
}

// DifferenceValue returns the counted difference valued at the snapshot cost.
func (i *Item) DifferenceValue() types.Money {
	return i.UnitCost.Mul(decimal.NewFromInt(i.Difference()))
}

// RecordCount stores a count and derives the item status.
func (i *Item) RecordCount(counted int64, countedBy string, at time.Time) {
	i.CountedQuantity = &counted
	i.CountedBy = &countedBy
	i.CountedAt = &at
	if counted == i.ExpectedQuantity {
		i.Status = ItemCounted
	} else {
		i.Status = ItemDiscrepancy
	}
}
