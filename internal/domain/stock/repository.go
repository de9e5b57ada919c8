package stock

import (
	"context"
	"time"

	"retailcore/internal/core/id"
)

// Repository defines operations for the stock ledger.
type Repository interface {
	// InsertMovement appends a ledger entry.
	InsertMovement(ctx context.Context, m Movement) error

	// ApplyDelta atomically increments the balance row for a counter
	// (UPSERT) and returns the resulting quantity.
	ApplyDelta(ctx context.Context, ref Ref, delta int64) (int64, error)

	// GetBalance returns the current on-hand quantity (zero if no row).
	GetBalance(ctx context.Context, ref Ref) (Balance, error)

	// GetBalances returns base-product balances for the given products
	// (missing = zero). Variant counters are not included.
	GetBalances(ctx context.Context, productIDs []id.ID) (map[id.ID]int64, error)

	// ListBalances returns every counter, variants included, for the given
	// products. When productIDs is empty, all counters are returned.
	ListBalances(ctx context.Context, productIDs []id.ID) (map[Ref]int64, error)

	// GetMovementHistory returns ledger entries for a product, newest first.
	GetMovementHistory(ctx context.Context, productID id.ID, filter MovementFilter) ([]Movement, error)

	// GetTurnover calculates inbound and outbound totals for a period.
	GetTurnover(ctx context.Context, filter TurnoverFilter) (Turnover, error)

	// SumMovements returns the ledger sum per counter, for reconciliation.
	// When productIDs is empty, all counters with movements are returned.
	SumMovements(ctx context.Context, productIDs []id.ID) (map[Ref]int64, error)

	// SetBalance overwrites a balance row (reconciliation repair only).
	SetBalance(ctx context.Context, ref Ref, quantity int64) error
}

// MovementFilter for filtering movement history.
type MovementFilter struct {
	Types        []MovementType
	RecorderID   *id.ID
	FromDate     *time.Time
	ToDate       *time.Time
	Limit        int
	Offset       int
}

// TurnoverFilter for turnover reports.
type TurnoverFilter struct {
	ProductID *id.ID
	FromDate  time.Time
	ToDate    time.Time
}

// Turnover represents inbound/outbound totals for a period.
type Turnover struct {
	ProductID      id.ID `json:"productId,omitempty"`
	OpeningBalance int64 `json:"openingBalance"`
	Inbound        int64 `json:"inbound"`
	Outbound       int64 `json:"outbound"`
	ClosingBalance int64 `json:"closingBalance"`
}
