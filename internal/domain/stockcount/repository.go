package stockcount

import (
	"context"

	"retailcore/internal/core/id"
	"retailcore/internal/core/types"
	"retailcore/internal/domain"
)

// Repository defines the interface for counting session persistence.
type Repository interface {
	Create(ctx context.Context, s *Session) error
	GetByID(ctx context.Context, id id.ID) (*Session, error)
	GetByNumber(ctx context.Context, number string) (*Session, error)
	Update(ctx context.Context, s *Session) error
	List(ctx context.Context, filter ListFilter) (domain.ListResult[*Session], error)

	// TransitionStatus moves the session out of fromStatus with a
	// status-guarded UPDATE. Returns false when the row was not in
	// fromStatus.
	TransitionStatus(ctx context.Context, id id.ID, from, to SessionStatus, extraSet map[string]any) (bool, error)

	// InsertItems bulk-inserts session lines (COPY protocol).
	InsertItems(ctx context.Context, items []Item) error

	// GetItem retrieves a single line by session and product.
	GetItem(ctx context.Context, sessionID, productID id.ID) (*Item, error)

	// UpdateItem persists a counted or verified line.
	UpdateItem(ctx context.Context, item *Item) error

	// ListItems returns all lines of a session.
	ListItems(ctx context.Context, sessionID id.ID, statuses []ItemStatus) ([]Item, error)

	// CountItems aggregates line counts and snapshot values.
	CountItems(ctx context.Context, sessionID id.ID) (ItemCounts, error)
}

// ItemCounts aggregates session line counters and values. TotalValue prices
// the expected snapshot at the snapshot cost; DiscrepancyValue prices the
// counted differences.
type ItemCounts struct {
	Total            int         `db:"total"`
	Counted          int         `db:"counted"`
	Discrepancy      int         `db:"discrepancy"`
	TotalValue       types.Money `db:"total_value"`
	DiscrepancyValue types.Money `db:"discrepancy_value"`
}

// ListFilter narrows session listings.
type ListFilter struct {
	domain.ListFilter

	Status *SessionStatus
}
