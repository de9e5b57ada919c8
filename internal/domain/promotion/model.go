// Package promotion provides the discount engine: time-bounded promotional
// offers, per-line eligibility checks, bounded discount computation and
// append-only usage records.
package promotion

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"retailcore/internal/core/apperror"
	"retailcore/internal/core/entity"
	"retailcore/internal/core/id"
	"retailcore/internal/core/types"
)

// Type selects the discount computation rule.
type Type string

const (
	TypePercentage   Type = "percentage"
	TypeFixedAmount  Type = "fixed_amount"
	TypeBuyXGetY     Type = "buy_x_get_y"
	TypeFreeShipping Type = "free_shipping"
	TypeBundle       Type = "bundle"
)

// Valid reports whether the promotion type is known.
func (t Type) Valid() bool {
	switch t {
	case TypePercentage, TypeFixedAmount, TypeBuyXGetY, TypeFreeShipping, TypeBundle:
		return true
	}
	return false
}

// Status is the promotion lifecycle state.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusActive    Status = "active"
	StatusPaused    Status = "paused"
	StatusExpired   Status = "expired"
	StatusCancelled Status = "cancelled"
)

// Valid reports whether the status is known.
func (s Status) Valid() bool {
	switch s {
	case StatusDraft, StatusActive, StatusPaused, StatusExpired, StatusCancelled:
		return true
	}
	return false
}

// IsTerminal reports whether the promotion can never become active again.
func (s Status) IsTerminal() bool {
	return s == StatusExpired || s == StatusCancelled
}

// Promotion is a time-bounded discount offer.
type Promotion struct {
	entity.BaseDocument

	Name        string `db:"name" json:"name"`
	Description string `db:"description" json:"description,omitempty"`

	Type   Type   `db:"type" json:"type"`
	Status Status `db:"status" json:"status"`

	// DiscountPercentage applies to TypePercentage (0 < p <= 100)
	DiscountPercentage *types.Money `db:"discount_percentage" json:"discountPercentage,omitempty"`

	// DiscountAmount applies to TypeFixedAmount
	DiscountAmount *types.Money `db:"discount_amount" json:"discountAmount,omitempty"`

	// MinimumPurchaseAmount gates eligibility on the running sale total
	MinimumPurchaseAmount *types.Money `db:"minimum_purchase_amount" json:"minimumPurchaseAmount,omitempty"`

	// MaximumDiscountAmount caps the computed discount
	MaximumDiscountAmount *types.Money `db:"maximum_discount_amount" json:"maximumDiscountAmount,omitempty"`

	// BuyQuantity / GetQuantity apply to TypeBuyXGetY
	BuyQuantity *int64 `db:"buy_quantity" json:"buyQuantity,omitempty"`
	GetQuantity *int64 `db:"get_quantity" json:"getQuantity,omitempty"`

	// PromoCode is globally unique among promotions when set.
	// Matching is exact and case-sensitive.
	PromoCode        *string `db:"promo_code" json:"promoCode,omitempty"`
	RequirePromoCode bool    `db:"require_promo_code" json:"requirePromoCode"`

	// ApplyToAllProducts skips the product-list membership check
	ApplyToAllProducts bool `db:"apply_to_all_products" json:"applyToAllProducts"`

	StartDate time.Time `db:"start_date" json:"startDate"`
	EndDate   time.Time `db:"end_date" json:"endDate"`
}

// New creates a draft promotion.
func New(name string, t Type, start, end time.Time) *Promotion {
	return &Promotion{
		BaseDocument: entity.NewBaseDocument(),
		Name:         name,
		Type:         t,
		Status:       StatusDraft,
		StartDate:    start,
		EndDate:      end,
	}
}

// Validate implements entity.Validatable interface.
func (p *Promotion) Validate(ctx context.Context) error {
	if p.Name == "" {
		return apperror.NewValidation("name is required").
			WithDetail("field", "name")
	}
	if !p.Type.Valid() {
		return apperror.NewValidation("invalid promotion type").
			WithDetail("field", "type").
			WithDetail("value", string(p.Type))
	}
	if !p.Status.Valid() {
		return apperror.NewValidation("invalid promotion status").
			WithDetail("field", "status").
			WithDetail("value", string(p.Status))
	}
	if p.StartDate.IsZero() || p.EndDate.IsZero() {
		return apperror.NewValidation("start and end dates are required")
	}
	if !p.EndDate.After(p.StartDate) {
		return apperror.NewValidation("end date must be after start date").
			WithDetail("field", "endDate")
	}

	switch p.Type {
	case TypePercentage:
		if p.DiscountPercentage == nil || !p.DiscountPercentage.IsPositive() ||
			p.DiscountPercentage.GreaterThan(decimal.NewFromInt(100)) {
			return apperror.NewValidation("percentage promotion requires discount percentage in (0, 100]").
				WithDetail("field", "discountPercentage")
		}
	case TypeFixedAmount:
		if p.DiscountAmount == nil || !p.DiscountAmount.IsPositive() {
			return apperror.NewValidation("fixed amount promotion requires positive discount amount").
				WithDetail("field", "discountAmount")
		}
	case TypeBuyXGetY:
		if p.BuyQuantity == nil || *p.BuyQuantity <= 0 || p.GetQuantity == nil || *p.GetQuantity <= 0 {
			return apperror.NewValidation("buy X get Y promotion requires positive buy and get quantities")
		}
	}

	if p.RequirePromoCode && (p.PromoCode == nil || *p.PromoCode == "") {
		return apperror.NewValidation("promo code is required when requirePromoCode is set").
			WithDetail("field", "promoCode")
	}
	if p.MinimumPurchaseAmount != nil && p.MinimumPurchaseAmount.IsNegative() {
		return apperror.NewValidation("minimum purchase amount cannot be negative").
			WithDetail("field", "minimumPurchaseAmount")
	}
	if p.MaximumDiscountAmount != nil && !p.MaximumDiscountAmount.IsPositive() {
		return apperror.NewValidation("maximum discount amount must be positive").
			WithDetail("field", "maximumDiscountAmount")
	}

	return nil
}

// InWindow reports whether now falls inside [StartDate, EndDate).
// Eligibility at exactly StartDate is true, at exactly EndDate is false.
func (p *Promotion) InWindow(now time.Time) bool {
	return !now.Before(p.StartDate) && now.Before(p.EndDate)
}

// EligibleAt reports whether the promotion can apply at all at the given
// time, before any product or purchase-amount checks.
func (p *Promotion) EligibleAt(now time.Time) bool {
	return p.Status == StatusActive && !p.DeletionMark && p.InWindow(now)
}

// ProductRef restricts a promotion to a specific product or variant.
// A nil VariantID covers the base product only; a variant entry covers
// that variant only, not the parent product or sibling variants.
type ProductRef struct {
	PromotionID id.ID  `db:"promotion_id" json:"promotionId"`
	ProductID   id.ID  `db:"product_id" json:"productId"`
	VariantID   *id.ID `db:"variant_id" json:"variantId,omitempty"`
}

// Usage is the immutable record of one applied discount.
type Usage struct {
	ID             id.ID       `db:"id" json:"id"`
	PromotionID    id.ID       `db:"promotion_id" json:"promotionId"`
	SaleID         id.ID       `db:"sale_id" json:"saleId"`
	DiscountAmount types.Money `db:"discount_amount" json:"discountAmount"`
	PromoCode      *string     `db:"promo_code" json:"promoCode,omitempty"`
	CreatedBy      string      `db:"created_by" json:"createdBy,omitempty"`
	CreatedAt      time.Time   `db:"created_at" json:"createdAt"`
}

// UsageStats aggregates usage records for one promotion, computed on demand
// from the usage journal.
type UsageStats struct {
	PromotionID   id.ID       `db:"promotion_id" json:"promotionId"`
	TimesUsed     int64       `db:"times_used" json:"timesUsed"`
	TotalDiscount types.Money `db:"total_discount" json:"totalDiscount"`
}
