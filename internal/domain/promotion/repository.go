package promotion

import (
	"context"
	"time"

	"retailcore/internal/core/id"
	"retailcore/internal/domain"
)

// Repository defines the interface for Promotion persistence.
type Repository interface {
	Create(ctx context.Context, p *Promotion) error
	GetByID(ctx context.Context, id id.ID) (*Promotion, error)
	Update(ctx context.Context, p *Promotion) error
	SetDeletionMark(ctx context.Context, id id.ID, mark bool) error
	List(ctx context.Context, filter ListFilter) (domain.ListResult[*Promotion], error)

	// GetByPromoCode performs an exact, case-sensitive code lookup.
	GetByPromoCode(ctx context.Context, code string) (*Promotion, error)

	// PromoCodeExists checks global code uniqueness, excluding one
	// promotion (pass nil when creating).
	PromoCodeExists(ctx context.Context, code string, excludeID *id.ID) (bool, error)

	// TransitionStatus moves the promotion out of fromStatus with a
	// status-guarded UPDATE. Returns false when the row was not in
	// fromStatus.
	TransitionStatus(ctx context.Context, id id.ID, from, to Status) (bool, error)

	// ExpireOverdue marks active promotions whose window has closed.
	// Returns the number of promotions expired.
	ExpireOverdue(ctx context.Context, now time.Time) (int64, error)

	// ReplaceProducts rewrites the promotion's product list.
	ReplaceProducts(ctx context.Context, promotionID id.ID, refs []ProductRef) error

	// ListProducts returns the promotion's product list.
	ListProducts(ctx context.Context, promotionID id.ID) ([]ProductRef, error)

	// HasProduct checks exact (product, variant) membership. A nil
	// variantID matches only base-product entries.
	HasProduct(ctx context.Context, promotionID, productID id.ID, variantID *id.ID) (bool, error)

	// InsertUsage appends one immutable usage record.
	InsertUsage(ctx context.Context, u Usage) error

	// GetUsageStats aggregates usage records on demand.
	GetUsageStats(ctx context.Context, promotionID id.ID) (UsageStats, error)

	// ListUsage returns usage records for a promotion, newest first.
	ListUsage(ctx context.Context, promotionID id.ID, limit, offset uint64) ([]Usage, error)
}

// ListFilter narrows promotion listings.
type ListFilter struct {
	domain.ListFilter

	Status *Status
	Type   *Type

	// ActiveAt keeps only promotions whose window contains the instant
	ActiveAt *time.Time
}
