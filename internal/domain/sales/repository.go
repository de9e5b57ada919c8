package sales

import (
	"context"
	"time"

	"retailcore/internal/core/id"
	"retailcore/internal/domain"
)

// Repository defines the interface for Sale persistence.
type Repository interface {
	// CreateWithLines inserts the sale header and its lines.
	CreateWithLines(ctx context.Context, s *Sale, lines []Line) error

	GetByID(ctx context.Context, id id.ID) (*Sale, error)
	GetByNumber(ctx context.Context, number string) (*Sale, error)
	List(ctx context.Context, filter ListFilter) (domain.ListResult[*Sale], error)

	// GetLines returns the sale's lines in insertion order.
	GetLines(ctx context.Context, saleID id.ID) ([]Line, error)

	// TransitionStatus moves the sale out of fromStatus with a
	// status-guarded UPDATE. Returns false when the row was not in
	// fromStatus.
	TransitionStatus(ctx context.Context, id id.ID, from, to Status) (bool, error)
}

// ListFilter narrows sale listings.
type ListFilter struct {
	domain.ListFilter

	Status   *Status
	FromDate *time.Time
	ToDate   *time.Time
}
