package promotion

import "context"

// Cache is an optional read-through cache for promotion lookups. The sale
// path resolves promotions on every line, so code and ID lookups are the
// hottest reads in the system. Implementations must treat every failure as
// a miss; the database remains the source of truth.
type Cache interface {
	// GetByID returns a cached promotion, or ok=false on miss.
	GetByID(ctx context.Context, promotionID string) (*Promotion, bool)

	// GetByCode returns a cached promotion for a promo code, or ok=false.
	GetByCode(ctx context.Context, code string) (*Promotion, bool)

	// Put stores the promotion under its ID and, when code-gated, its code.
	Put(ctx context.Context, p *Promotion)

	// Invalidate drops the promotion's cache entries after a write.
	Invalidate(ctx context.Context, p *Promotion)
}
