package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"retailcore/internal/core/apperror"
	"retailcore/internal/core/id"
	"retailcore/internal/domain/promotion"
	"retailcore/internal/infrastructure/http/v1/dto"
)

// PromotionHandler exposes promotion management and promo code validation.
type PromotionHandler struct {
	*BaseHandler
	service *promotion.Service
}

// NewPromotionHandler creates a promotion HTTP handler.
func NewPromotionHandler(base *BaseHandler, service *promotion.Service) *PromotionHandler {
	return &PromotionHandler{BaseHandler: base, service: service}
}

// Create handles POST /promotions - create a draft promotion.
func (h *PromotionHandler) Create(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.CreatePromotionRequest
	if !h.BindJSON(c, &req) {
		return
	}

	p := req.ToEntity()
	if err := h.service.Create(ctx, p); err != nil {
		h.Error(c, err)
		return
	}

	h.CompleteIdempotency(c, http.StatusCreated, "application/json", p)
	c.JSON(http.StatusCreated, p)
}

// Get handles GET /promotions/:id.
func (h *PromotionHandler) Get(c *gin.Context) {
	ctx := c.Request.Context()

	promotionID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	p, err := h.service.GetByID(ctx, promotionID)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, p)
}

// Update handles PUT /promotions/:id.
func (h *PromotionHandler) Update(c *gin.Context) {
	ctx := c.Request.Context()

	promotionID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	var req dto.UpdatePromotionRequest
	if !h.BindJSON(c, &req) {
		return
	}

	existing, err := h.service.GetByID(ctx, promotionID)
	if err != nil {
		h.Error(c, err)
		return
	}

	req.ApplyTo(existing)
	if err := h.service.Update(ctx, existing); err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, existing)
}

// List handles GET /promotions with status/type/active filters.
func (h *PromotionHandler) List(c *gin.Context) {
	ctx := c.Request.Context()

	filter := promotion.ListFilter{}
	filter.Limit = h.ParseIntQuery(c, "limit", 50)
	filter.Offset = h.ParseIntQuery(c, "offset", 0)
	filter.Search = c.Query("search")

	if statusStr := c.Query("status"); statusStr != "" {
		status := promotion.Status(statusStr)
		if !status.Valid() {
			h.Error(c, apperror.NewValidation("invalid status").WithDetail("value", statusStr))
			return
		}
		filter.Status = &status
	}
	if typeStr := c.Query("type"); typeStr != "" {
		promoType := promotion.Type(typeStr)
		if !promoType.Valid() {
			h.Error(c, apperror.NewValidation("invalid type").WithDetail("value", typeStr))
			return
		}
		filter.Type = &promoType
	}
	if c.Query("activeNow") == "true" {
		now := time.Now().UTC()
		filter.ActiveAt = &now
	}

	result, err := h.service.List(ctx, filter)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ListResponse{
		Items:      result.Items,
		TotalCount: result.TotalCount,
		Limit:      result.Limit,
		Offset:     result.Offset,
	})
}

// SetProducts handles PUT /promotions/:id/products - replace the product
// scope.
func (h *PromotionHandler) SetProducts(c *gin.Context) {
	ctx := c.Request.Context()

	promotionID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	var req dto.SetPromotionProductsRequest
	if !h.BindJSON(c, &req) {
		return
	}

	refs, err := req.ToRefs(promotionID)
	if err != nil {
		h.Error(c, err)
		return
	}

	if err := h.service.SetProducts(ctx, promotionID, refs); err != nil {
		h.Error(c, err)
		return
	}

	h.Success(c, "promotion products updated")
}

// Products handles GET /promotions/:id/products.
func (h *PromotionHandler) Products(c *gin.Context) {
	ctx := c.Request.Context()

	promotionID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	refs, err := h.service.ListProducts(ctx, promotionID)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"items": refs})
}

// Activate handles POST /promotions/:id/activate.
func (h *PromotionHandler) Activate(c *gin.Context) {
	h.transition(c, h.service.Activate)
}

// Pause handles POST /promotions/:id/pause.
func (h *PromotionHandler) Pause(c *gin.Context) {
	h.transition(c, h.service.Pause)
}

// Cancel handles POST /promotions/:id/cancel.
func (h *PromotionHandler) Cancel(c *gin.Context) {
	h.transition(c, h.service.Cancel)
}

func (h *PromotionHandler) transition(c *gin.Context, fn func(ctx context.Context, promotionID id.ID) (*promotion.Promotion, error)) {
	ctx := c.Request.Context()

	promotionID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	p, err := fn(ctx, promotionID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, p)
}

// Delete handles DELETE /promotions/:id - cancel and mark deleted.
func (h *PromotionHandler) Delete(c *gin.Context) {
	ctx := c.Request.Context()

	promotionID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	if err := h.service.Delete(ctx, promotionID); err != nil {
		h.Error(c, err)
		return
	}

	h.Success(c, "promotion deleted")
}

// ValidateCode handles GET /promotions/validate-code/:code - check a promo
// code at the register before composing the sale.
func (h *PromotionHandler) ValidateCode(c *gin.Context) {
	ctx := c.Request.Context()

	code := c.Param("code")
	if code == "" {
		h.Error(c, apperror.NewValidation("promo code is required"))
		return
	}

	p, err := h.service.ValidatePromoCode(ctx, code)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, p)
}

// UsageStats handles GET /promotions/:id/stats - usage aggregates.
func (h *PromotionHandler) UsageStats(c *gin.Context) {
	ctx := c.Request.Context()

	promotionID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	stats, err := h.service.GetUsageStats(ctx, promotionID)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}
