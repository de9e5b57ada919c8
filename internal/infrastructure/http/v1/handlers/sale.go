package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"retailcore/internal/core/apperror"
	"retailcore/internal/core/id"
	"retailcore/internal/domain/sales"
	"retailcore/internal/infrastructure/http/v1/dto"
)

// SaleHandler exposes the POS sale workflow.
type SaleHandler struct {
	*BaseHandler
	service *sales.Service
}

// NewSaleHandler creates a sale HTTP handler.
func NewSaleHandler(base *BaseHandler, service *sales.Service) *SaleHandler {
	return &SaleHandler{BaseHandler: base, service: service}
}

// Compose handles POST /sales - price the lines and create an open sale.
func (h *SaleHandler) Compose(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.ComposeSaleRequest
	if !h.BindJSON(c, &req) {
		return
	}

	input, err := req.ToInput()
	if err != nil {
		h.Error(c, err)
		return
	}

	sale, err := h.service.Compose(ctx, input)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.CompleteIdempotency(c, http.StatusCreated, "application/json", sale)
	c.JSON(http.StatusCreated, sale)
}

// Get handles GET /sales/:id - the sale with its lines.
func (h *SaleHandler) Get(c *gin.Context) {
	ctx := c.Request.Context()

	saleID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	sale, err := h.service.GetByID(ctx, saleID)
	if err != nil {
		h.Error(c, err)
		return
	}

	lines, err := h.service.GetLines(ctx, saleID)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.SaleResponse{Sale: sale, Lines: lines})
}

// List handles GET /sales with status and date filters.
func (h *SaleHandler) List(c *gin.Context) {
	ctx := c.Request.Context()

	filter := sales.ListFilter{}
	filter.Limit = h.ParseIntQuery(c, "limit", 50)
	filter.Offset = h.ParseIntQuery(c, "offset", 0)
	filter.Search = c.Query("search")

	if statusStr := c.Query("status"); statusStr != "" {
		status := sales.Status(statusStr)
		if !status.Valid() {
			h.Error(c, apperror.NewValidation("invalid status").WithDetail("value", statusStr))
			return
		}
		filter.Status = &status
	}

	fromDate, toDate, err := parseDateRange(c, false)
	if err != nil {
		h.Error(c, err)
		return
	}
	filter.FromDate = fromDate
	filter.ToDate = toDate

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

// Complete handles POST /sales/:id/complete - finalize against the ledger.
func (h *SaleHandler) Complete(c *gin.Context) {
	h.transition(c, h.service.Complete)
}

// Cancel handles POST /sales/:id/cancel - abandon an open sale.
func (h *SaleHandler) Cancel(c *gin.Context) {
	h.transition(c, h.service.Cancel)
}

// Return handles POST /sales/:id/return - reverse a completed sale.
func (h *SaleHandler) Return(c *gin.Context) {
	h.transition(c, h.service.Return)
}

func (h *SaleHandler) transition(c *gin.Context, fn func(ctx context.Context, saleID id.ID) (*sales.Sale, error)) {
	ctx := c.Request.Context()

	saleID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	sale, err := fn(ctx, saleID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, sale)
}
