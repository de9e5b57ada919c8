package purchasing

import (
	"context"
	"time"

	"retailcore/internal/core/id"
	"retailcore/internal/domain"
)

// Repository defines the interface for purchase order persistence.
type Repository interface {
	// CreateWithLines inserts the order header and its lines.
	CreateWithLines(ctx context.Context, o *Order, lines []Line) error

	GetByID(ctx context.Context, id id.ID) (*Order, error)
	GetByNumber(ctx context.Context, number string) (*Order, error)
	List(ctx context.Context, filter ListFilter) (domain.ListResult[*Order], error)

	// GetLines returns the order's lines in insertion order.
	GetLines(ctx context.Context, orderID id.ID) ([]Line, error)

	// TransitionStatus moves the order out of fromStatus with a
	// status-guarded UPDATE. Returns false when the row was not in
	// fromStatus.
	TransitionStatus(ctx context.Context, id id.ID, from, to Status, extraSet map[string]any) (bool, error)
}

// ListFilter narrows purchase order listings.
type ListFilter struct {
	domain.ListFilter

	Status   *Status
	FromDate *time.Time
	ToDate   *time.Time
}
