package dto

import (
	"time"

	"retailcore/internal/core/apperror"
	"retailcore/internal/core/id"
	"retailcore/internal/core/types"
	"retailcore/internal/domain/promotion"
)

// CreatePromotionRequest creates a draft promotion.
type CreatePromotionRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
	Type        string `json:"type" binding:"required"`

	DiscountPercentage    *types.Money `json:"discountPercentage"`
	DiscountAmount        *types.Money `json:"discountAmount"`
	MinimumPurchaseAmount *types.Money `json:"minimumPurchaseAmount"`
	MaximumDiscountAmount *types.Money `json:"maximumDiscountAmount"`

	BuyQuantity *int64 `json:"buyQuantity"`
	GetQuantity *int64 `json:"getQuantity"`

	PromoCode        *string `json:"promoCode"`
	RequirePromoCode bool    `json:"requirePromoCode"`

	ApplyToAllProducts bool `json:"applyToAllProducts"`

	StartDate time.Time `json:"startDate" binding:"required"`
	EndDate   time.Time `json:"endDate" binding:"required"`
}

// ToEntity builds a new promotion from the request.
func (r CreatePromotionRequest) ToEntity() *promotion.Promotion {
	p := promotion.New(r.Name, promotion.Type(r.Type), r.StartDate, r.EndDate)
	p.Description = r.Description
	p.DiscountPercentage = r.DiscountPercentage
	p.DiscountAmount = r.DiscountAmount
	p.MinimumPurchaseAmount = r.MinimumPurchaseAmount
	p.MaximumDiscountAmount = r.MaximumDiscountAmount
	p.BuyQuantity = r.BuyQuantity
	p.GetQuantity = r.GetQuantity
	p.PromoCode = r.PromoCode
	p.RequirePromoCode = r.RequirePromoCode
	p.ApplyToAllProducts = r.ApplyToAllProducts
	return p
}

// UpdatePromotionRequest updates a promotion. Nil fields stay untouched,
// except the discount parameters which are replaced as a group so a type
// change cannot leave stale values behind.
type UpdatePromotionRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Type        *string `json:"type"`

	DiscountPercentage    *types.Money `json:"discountPercentage"`
	DiscountAmount        *types.Money `json:"discountAmount"`
	MinimumPurchaseAmount *types.Money `json:"minimumPurchaseAmount"`
	MaximumDiscountAmount *types.Money `json:"maximumDiscountAmount"`

	BuyQuantity *int64 `json:"buyQuantity"`
	GetQuantity *int64 `json:"getQuantity"`

	PromoCode        *string `json:"promoCode"`
	RequirePromoCode *bool   `json:"requirePromoCode"`

	ApplyToAllProducts *bool `json:"applyToAllProducts"`

	StartDate *time.Time `json:"startDate"`
	EndDate   *time.Time `json:"endDate"`

	Version int `json:"version" binding:"required,min=1"`
}

// ApplyTo overlays the request onto the existing promotion.
func (r UpdatePromotionRequest) ApplyTo(p *promotion.Promotion) {
	if r.Name != nil {
		p.Name = *r.Name
	}
	if r.Description != nil {
		p.Description = *r.Description
	}
	if r.Type != nil {
		p.Type = promotion.Type(*r.Type)
	}
	if r.DiscountPercentage != nil {
		p.DiscountPercentage = r.DiscountPercentage
	}
	if r.DiscountAmount != nil {
		p.DiscountAmount = r.DiscountAmount
	}
	if r.MinimumPurchaseAmount != nil {
		p.MinimumPurchaseAmount = r.MinimumPurchaseAmount
	}
	if r.MaximumDiscountAmount != nil {
		p.MaximumDiscountAmount = r.MaximumDiscountAmount
	}
	if r.BuyQuantity != nil {
		p.BuyQuantity = r.BuyQuantity
	}
	if r.GetQuantity != nil {
		p.GetQuantity = r.GetQuantity
	}
	if r.PromoCode != nil {
		p.PromoCode = r.PromoCode
	}
	if r.RequirePromoCode != nil {
		p.RequirePromoCode = *r.RequirePromoCode
	}
	if r.ApplyToAllProducts != nil {
		p.ApplyToAllProducts = *r.ApplyToAllProducts
	}
	if r.StartDate != nil {
		p.StartDate = *r.StartDate
	}
	if r.EndDate != nil {
		p.EndDate = *r.EndDate
	}
	p.Version = r.Version
}

// PromotionProductRef is one product or variant in a promotion's scope.
type PromotionProductRef struct {
	ProductID string  `json:"productId" binding:"required"`
	VariantID *string `json:"variantId"`
}

// SetPromotionProductsRequest replaces the promotion's product list.
type SetPromotionProductsRequest struct {
	Products []PromotionProductRef `json:"products"`
}

// ToRefs converts the request into domain product references.
func (r SetPromotionProductsRequest) ToRefs(promotionID id.ID) ([]promotion.ProductRef, error) {
	refs := make([]promotion.ProductRef, 0, len(r.Products))
	for _, p := range r.Products {
		productID, err := id.Parse(p.ProductID)
		if err != nil {
			return nil, apperror.NewValidation("invalid product id").
				WithDetail("value", p.ProductID)
		}
		ref := promotion.ProductRef{
			PromotionID: promotionID,
			ProductID:   productID,
		}
		if p.VariantID != nil {
			variantID, err := id.Parse(*p.VariantID)
			if err != nil {
				return nil, apperror.NewValidation("invalid variant id").
					WithDetail("value", *p.VariantID)
			}
			ref.VariantID = &variantID
		}
		refs = append(refs, ref)
	}
	return refs, nil
}
