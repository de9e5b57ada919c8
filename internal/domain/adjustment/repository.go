package adjustment

import (
	"context"

	"retailcore/internal/core/id"
	"retailcore/internal/domain"
)

// Repository defines the interface for Adjustment persistence.
type Repository interface {
	Create(ctx context.Context, a *Adjustment) error
	GetByID(ctx context.Context, id id.ID) (*Adjustment, error)
	GetByNumber(ctx context.Context, number string) (*Adjustment, error)
	Update(ctx context.Context, a *Adjustment) error
	List(ctx context.Context, filter ListFilter) (domain.ListResult[*Adjustment], error)

	// TransitionStatus moves the adjustment out of fromStatus with a
	// status-guarded UPDATE. Returns false when the row was not in
	// fromStatus (lost race or repeated call).
	TransitionStatus(ctx context.Context, id id.ID, from, to Status, reviewedBy, comment string) (bool, error)

	// CountPending returns the number of adjustments awaiting review.
	CountPending(ctx context.Context) (int64, error)
}

// ListFilter narrows adjustment listings.
type ListFilter struct {
	domain.ListFilter

	ProductID *id.ID
	Status    *Status
	Reason    *Reason
}
