package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"retailcore/internal/core/apperror"
	"retailcore/internal/core/id"
	"retailcore/internal/domain/adjustment"
	"retailcore/internal/infrastructure/http/v1/dto"
	"retailcore/internal/infrastructure/storage/postgres"
	"retailcore/pkg/logger"
)

// AdjustmentHandler exposes the manual stock adjustment workflow.
type AdjustmentHandler struct {
	*BaseHandler
	service *adjustment.Service
	audit   *postgres.AuditService
}

// NewAdjustmentHandler creates an adjustment HTTP handler. The audit service
// is optional; when nil, review actions are not recorded in the audit trail.
func NewAdjustmentHandler(base *BaseHandler, service *adjustment.Service, audit *postgres.AuditService) *AdjustmentHandler {
	return &AdjustmentHandler{BaseHandler: base, service: service, audit: audit}
}

// Create handles POST /adjustments - propose a stock correction.
func (h *AdjustmentHandler) Create(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.CreateAdjustmentRequest
	if !h.BindJSON(c, &req) {
		return
	}

	productID, err := id.Parse(req.ProductID)
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid product id").WithDetail("value", req.ProductID))
		return
	}

	var variantID *id.ID
	if req.VariantID != nil && *req.VariantID != "" {
		parsed, err := id.Parse(*req.VariantID)
		if err != nil {
			h.Error(c, apperror.NewValidation("invalid variant id").WithDetail("value", *req.VariantID))
			return
		}
		variantID = &parsed
	}

	adj, err := h.service.Create(ctx, productID, variantID, req.NewQuantity, adjustment.Reason(req.Reason), req.Notes)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.recordAudit(c, adj.ID, postgres.AuditActionCreate, map[string]any{
		"product_id":   req.ProductID,
		"new_quantity": req.NewQuantity,
		"reason":       req.Reason,
	})

	h.CompleteIdempotency(c, http.StatusCreated, "application/json", adj)
	c.JSON(http.StatusCreated, adj)
}

// Get handles GET /adjustments/:id.
func (h *AdjustmentHandler) Get(c *gin.Context) {
	ctx := c.Request.Context()

	adjustmentID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	adj, err := h.service.GetByID(ctx, adjustmentID)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, adj)
}

// List handles GET /adjustments with status/reason/product filters.
func (h *AdjustmentHandler) List(c *gin.Context) {
	ctx := c.Request.Context()

	filter := adjustment.ListFilter{}
	filter.Limit = h.ParseIntQuery(c, "limit", 50)
	filter.Offset = h.ParseIntQuery(c, "offset", 0)
	filter.Search = c.Query("search")

	if statusStr := c.Query("status"); statusStr != "" {
		status := adjustment.Status(statusStr)
		if !status.Valid() {
			h.Error(c, apperror.NewValidation("invalid status").WithDetail("value", statusStr))
			return
		}
		filter.Status = &status
	}
	if reasonStr := c.Query("reason"); reasonStr != "" {
		reason := adjustment.Reason(reasonStr)
		if !reason.Valid() {
			h.Error(c, apperror.NewValidation("invalid reason").WithDetail("value", reasonStr))
			return
		}
		filter.Reason = &reason
	}
	if productStr := c.Query("productId"); productStr != "" {
		productID, err := id.Parse(productStr)
		if err != nil {
			h.Error(c, apperror.NewValidation("invalid productId format"))
			return
		}
		filter.ProductID = &productID
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

// PendingCount handles GET /adjustments/pending-count - badge counter for
// the review queue.
func (h *AdjustmentHandler) PendingCount(c *gin.Context) {
	ctx := c.Request.Context()

	count, err := h.service.CountPending(ctx)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"pending": count})
}

// History handles GET /adjustments/:id/history - the audit trail of the
// adjustment document.
func (h *AdjustmentHandler) History(c *gin.Context) {
	ctx := c.Request.Context()

	adjustmentID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	if h.audit == nil {
		c.JSON(http.StatusOK, gin.H{"items": []postgres.AuditEntry{}})
		return
	}

	entries, err := h.audit.GetEntityHistory(ctx, auditEntityAdjustment, adjustmentID, h.ParseIntQuery(c, "limit", 50))
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"items": entries})
}

// Approve handles POST /adjustments/:id/approve - apply the correction to
// the stock ledger.
func (h *AdjustmentHandler) Approve(c *gin.Context) {
	h.review(c, h.service.Approve, postgres.AuditActionApprove)
}

// Reject handles POST /adjustments/:id/reject.
func (h *AdjustmentHandler) Reject(c *gin.Context) {
	h.review(c, h.service.Reject, postgres.AuditActionReject)
}

const auditEntityAdjustment = "adjustment"

func (h *AdjustmentHandler) recordAudit(c *gin.Context, entityID id.ID, action postgres.AuditAction, changes map[string]any) {
	if h.audit == nil {
		return
	}
	// Audit write failure must not fail the business operation.
	if err := h.audit.LogChange(c.Request.Context(), auditEntityAdjustment, entityID, action, changes); err != nil {
		logger.Warn(c.Request.Context(), "failed to record audit entry",
			"entity_id", entityID.String(), "action", string(action), "error", err)
	}
}

func (h *AdjustmentHandler) review(c *gin.Context, fn func(ctx context.Context, adjustmentID id.ID, comment string) (*adjustment.Adjustment, error), action postgres.AuditAction) {
	ctx := c.Request.Context()

	adjustmentID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	var req dto.ReviewAdjustmentRequest
	if c.Request.ContentLength > 0 {
		if !h.BindJSON(c, &req) {
			return
		}
	}

	adj, err := fn(ctx, adjustmentID, req.Comment)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.recordAudit(c, adj.ID, action, map[string]any{"comment": req.Comment})

	h.OK(c, adj)
}
