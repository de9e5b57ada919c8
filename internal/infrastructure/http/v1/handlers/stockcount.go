package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"retailcore/internal/core/apperror"
	"retailcore/internal/core/id"
	"retailcore/internal/domain/stockcount"
	"retailcore/internal/infrastructure/http/v1/dto"
)

// StockCountHandler exposes the physical inventory counting workflow.
type StockCountHandler struct {
	*BaseHandler
	service *stockcount.Service
}

// NewStockCountHandler creates a stock count HTTP handler.
func NewStockCountHandler(base *BaseHandler, service *stockcount.Service) *StockCountHandler {
	return &StockCountHandler{BaseHandler: base, service: service}
}

// Create handles POST /stock-counts - plan a counting session.
func (h *StockCountHandler) Create(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.CreateStockCountRequest
	if !h.BindJSON(c, &req) {
		return
	}

	session, err := h.service.Create(ctx, stockcount.CreateInput{
		Name:            req.Name,
		CategoryID:      req.CategoryID,
		IncludeInactive: req.IncludeInactive,
		AutoAdjust:      req.AutoAdjust,
		Comment:         req.Comment,
	})
	if err != nil {
		h.Error(c, err)
		return
	}

	h.CompleteIdempotency(c, http.StatusCreated, "application/json", session)
	c.JSON(http.StatusCreated, session)
}

// Get handles GET /stock-counts/:id.
func (h *StockCountHandler) Get(c *gin.Context) {
	ctx := c.Request.Context()

	sessionID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	session, err := h.service.GetByID(ctx, sessionID)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, session)
}

// List handles GET /stock-counts with a status filter.
func (h *StockCountHandler) List(c *gin.Context) {
	ctx := c.Request.Context()

	filter := stockcount.ListFilter{}
	filter.Limit = h.ParseIntQuery(c, "limit", 50)
	filter.Offset = h.ParseIntQuery(c, "offset", 0)
	filter.Search = c.Query("search")

	if statusStr := c.Query("status"); statusStr != "" {
		status := stockcount.SessionStatus(statusStr)
		if !status.Valid() {
			h.Error(c, apperror.NewValidation("invalid status").WithDetail("value", statusStr))
			return
		}
		filter.Status = &status
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

// Start handles POST /stock-counts/:id/start - snapshot expected quantities
// and open counting.
func (h *StockCountHandler) Start(c *gin.Context) {
	ctx := c.Request.Context()

	sessionID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	session, err := h.service.Start(ctx, sessionID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, session)
}

// RecordCount handles POST /stock-counts/:id/counts - record one count.
func (h *StockCountHandler) RecordCount(c *gin.Context) {
	ctx := c.Request.Context()

	sessionID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	var req dto.RecordCountRequest
	if !h.BindJSON(c, &req) {
		return
	}

	productID, err := id.Parse(req.ProductID)
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid product id").WithDetail("value", req.ProductID))
		return
	}

	item, err := h.service.RecordCount(ctx, sessionID, productID, req.Counted, req.Notes)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, item)
}

// VerifyItem handles POST /stock-counts/:id/items/:productId/verify -
// confirm a discrepancy before completion.
func (h *StockCountHandler) VerifyItem(c *gin.Context) {
	ctx := c.Request.Context()

	sessionID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}
	productID, ok := h.ParseID(c, "productId")
	if !ok {
		return
	}

	item, err := h.service.VerifyItem(ctx, sessionID, productID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, item)
}

// Complete handles POST /stock-counts/:id/complete. Whether discrepancies
// are pushed to the ledger was decided when the session was planned.
func (h *StockCountHandler) Complete(c *gin.Context) {
	ctx := c.Request.Context()

	sessionID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	session, err := h.service.Complete(ctx, sessionID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, session)
}

// Cancel handles POST /stock-counts/:id/cancel.
func (h *StockCountHandler) Cancel(c *gin.Context) {
	ctx := c.Request.Context()

	sessionID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	session, err := h.service.Cancel(ctx, sessionID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, session)
}

// Items handles GET /stock-counts/:id/items with an optional status filter
// (comma-separated).
func (h *StockCountHandler) Items(c *gin.Context) {
	ctx := c.Request.Context()

	sessionID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	var statuses []stockcount.ItemStatus
	if raw := c.Query("status"); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			status := stockcount.ItemStatus(strings.TrimSpace(part))
			if !status.Valid() {
				h.Error(c, apperror.NewValidation("invalid item status").
					WithDetail("value", string(status)))
				return
			}
			statuses = append(statuses, status)
		}
	}

	items, err := h.service.ListItems(ctx, sessionID, statuses)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"items": items})
}
