// Package tx defines the transaction boundary used by domain services.
// Services depend on these interfaces only; the pgx-backed implementation
// lives in infrastructure/storage/postgres.
package tx

import (
	"context"
)

// Manager runs a unit of work in a database transaction. Document flows
// (sales completion, adjustment approval, count sessions) wrap every
// status change plus its ledger writes in one call so they commit or roll
// back together.
type Manager interface {
	// RunInTransaction executes fn within a transaction. An error from fn
	// rolls back; nil commits. Nested calls join the transaction already
	// in ctx instead of opening a new one.
	RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// ReadOnlyManager adds read-only transaction support for report queries
// that need a consistent snapshot without taking write locks.
type ReadOnlyManager interface {
	Manager

	// ReadOnly executes fn in a read-only transaction. Writes inside fn
	// fail.
	ReadOnly(ctx context.Context, fn func(ctx context.Context) error) error
}
