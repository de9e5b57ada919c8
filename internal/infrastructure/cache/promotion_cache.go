package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-redis/redis/v8"

	"retailcore/internal/core/id"
	"retailcore/internal/domain/promotion"
	"retailcore/pkg/logger"
)

const (
	promoIDPrefix   = "promo:id:"
	promoCodePrefix = "promo:code:"
)

// PromotionCache is a Redis read-through cache for promotion lookups.
// Entries carry a short TTL as a backstop; writes invalidate explicitly.
// Every Redis failure degrades to a cache miss.
type PromotionCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewPromotionCache creates a promotion cache. A zero ttl defaults to one
// minute, which bounds staleness between an expiry sweep and the next read.
func NewPromotionCache(client *redis.Client, ttl time.Duration) *PromotionCache {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &PromotionCache{client: client, ttl: ttl}
}

// GetByID returns a cached promotion, or ok=false on miss.
func (c *PromotionCache) GetByID(ctx context.Context, promotionID string) (*promotion.Promotion, bool) {
	return c.get(ctx, promoIDPrefix+promotionID)
}

// GetByCode returns a cached promotion for a promo code, or ok=false.
func (c *PromotionCache) GetByCode(ctx context.Context, code string) (*promotion.Promotion, bool) {
	return c.get(ctx, promoCodePrefix+code)
}

func (c *PromotionCache) get(ctx context.Context, key string) (*promotion.Promotion, bool) {
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			logger.Debug(ctx, "promotion cache read failed", "key", key, "error", err)
		}
		return nil, false
	}

	p := &promotion.Promotion{}
	if err := json.Unmarshal(data, p); err != nil {
		logger.Debug(ctx, "promotion cache entry corrupt", "key", key, "error", err)
		c.client.Del(ctx, key)
		return nil, false
	}

	return p, true
}

// Put stores the promotion under its ID and, when code-gated, its code.
func (c *PromotionCache) Put(ctx context.Context, p *promotion.Promotion) {
	data, err := json.Marshal(p)
	if err != nil {
		logger.Debug(ctx, "promotion cache marshal failed", "promotion_id", p.ID, "error", err)
		return
	}

	for _, key := range c.keys(p) {
		if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
			logger.Debug(ctx, "promotion cache write failed", "key", key, "error", err)
		}
	}
}

// Invalidate drops the promotion's cache entries after a write.
func (c *PromotionCache) Invalidate(ctx context.Context, p *promotion.Promotion) {
	keys := c.keys(p)
	if len(keys) == 0 {
		return
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		logger.Debug(ctx, "promotion cache invalidate failed", "promotion_id", p.ID, "error", err)
	}
}

func (c *PromotionCache) keys(p *promotion.Promotion) []string {
	keys := make([]string, 0, 2)
	if !id.IsNil(p.ID) {
		keys = append(keys, promoIDPrefix+p.ID.String())
	}
	if p.PromoCode != nil && *p.PromoCode != "" {
		keys = append(keys, promoCodePrefix+*p.PromoCode)
	}
	return keys
}

var _ promotion.Cache = (*PromotionCache)(nil)
