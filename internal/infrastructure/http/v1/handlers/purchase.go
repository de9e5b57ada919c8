package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"retailcore/internal/core/apperror"
	"retailcore/internal/core/id"
	"retailcore/internal/domain/purchasing"
	"retailcore/internal/infrastructure/http/v1/dto"
)

// PurchaseHandler exposes the purchase order workflow.
type PurchaseHandler struct {
	*BaseHandler
	service *purchasing.Service
}

// NewPurchaseHandler creates a purchase order HTTP handler.
func NewPurchaseHandler(base *BaseHandler, service *purchasing.Service) *PurchaseHandler {
	return &PurchaseHandler{BaseHandler: base, service: service}
}

// Compose handles POST /purchase-orders - create a draft order.
func (h *PurchaseHandler) Compose(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.ComposePurchaseRequest
	if !h.BindJSON(c, &req) {
		return
	}

	input, err := req.ToInput()
	if err != nil {
		h.Error(c, err)
		return
	}

	order, err := h.service.Compose(ctx, input)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.CompleteIdempotency(c, http.StatusCreated, "application/json", order)
	c.JSON(http.StatusCreated, order)
}

// Get handles GET /purchase-orders/:id - the order with its lines.
func (h *PurchaseHandler) Get(c *gin.Context) {
	ctx := c.Request.Context()

	orderID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	order, err := h.service.GetByID(ctx, orderID)
	if err != nil {
		h.Error(c, err)
		return
	}

	lines, err := h.service.GetLines(ctx, orderID)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.PurchaseOrderResponse{Order: order, Lines: lines})
}

// List handles GET /purchase-orders with status and date filters.
func (h *PurchaseHandler) List(c *gin.Context) {
	ctx := c.Request.Context()

	filter := purchasing.ListFilter{}
	filter.Limit = h.ParseIntQuery(c, "limit", 50)
	filter.Offset = h.ParseIntQuery(c, "offset", 0)
	filter.Search = c.Query("search")

	if statusStr := c.Query("status"); statusStr != "" {
		status := purchasing.Status(statusStr)
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

// Submit handles POST /purchase-orders/:id/submit - draft to ordered.
func (h *PurchaseHandler) Submit(c *gin.Context) {
	h.transition(c, h.service.Submit)
}

// Receive handles POST /purchase-orders/:id/receive - goods arrive, every
// line enters the stock ledger.
func (h *PurchaseHandler) Receive(c *gin.Context) {
	h.transition(c, h.service.Receive)
}

// Cancel handles POST /purchase-orders/:id/cancel.
func (h *PurchaseHandler) Cancel(c *gin.Context) {
	h.transition(c, h.service.Cancel)
}

func (h *PurchaseHandler) transition(c *gin.Context, fn func(ctx context.Context, orderID id.ID) (*purchasing.Order, error)) {
	ctx := c.Request.Context()

	orderID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	order, err := fn(ctx, orderID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, order)
}
