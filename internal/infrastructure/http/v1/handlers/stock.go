package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"retailcore/internal/core/apperror"
	"retailcore/internal/core/id"
	"retailcore/internal/domain/stock"
)

// StockHandler exposes the stock ledger read side plus the reconcile
// operation. The ledger itself is written only by documents.
type StockHandler struct {
	*BaseHandler
	service *stock.Service
}

// NewStockHandler creates a stock HTTP handler.
func NewStockHandler(base *BaseHandler, service *stock.Service) *StockHandler {
	return &StockHandler{BaseHandler: base, service: service}
}

// OnHand handles GET /stock/:productId - current on-hand quantity. An
// optional variantId query parameter reads that variant's counter instead of
// the base product counter.
func (h *StockHandler) OnHand(c *gin.Context) {
	ctx := c.Request.Context()

	productID, ok := h.ParseID(c, "productId")
	if !ok {
		return
	}

	var variantID *id.ID
	if raw := c.Query("variantId"); raw != "" {
		parsed, err := id.Parse(raw)
		if err != nil {
			h.Error(c, apperror.NewValidation("invalid variantId format"))
			return
		}
		variantID = &parsed
	}

	quantity, err := h.service.GetOnHand(ctx, stock.NewRef(productID, variantID))
	if err != nil {
		h.Error(c, err)
		return
	}

	resp := gin.H{
		"productId": productID.String(),
		"quantity":  quantity,
	}
	if variantID != nil {
		resp["variantId"] = variantID.String()
	}
	c.JSON(http.StatusOK, resp)
}

// Movements handles GET /stock/:productId/movements - ledger history.
func (h *StockHandler) Movements(c *gin.Context) {
	ctx := c.Request.Context()

	productID, ok := h.ParseID(c, "productId")
	if !ok {
		return
	}

	filter := stock.MovementFilter{
		Limit:  h.ParseIntQuery(c, "limit", 50),
		Offset: h.ParseIntQuery(c, "offset", 0),
	}

	if typesParam := c.Query("types"); typesParam != "" {
		for _, t := range strings.Split(typesParam, ",") {
			mt := stock.MovementType(strings.TrimSpace(t))
			if !mt.Valid() {
				h.Error(c, apperror.NewValidation("invalid movement type").
					WithDetail("value", string(mt)))
				return
			}
			filter.Types = append(filter.Types, mt)
		}
	}

	fromDate, toDate, err := parseDateRange(c, false)
	if err != nil {
		h.Error(c, err)
		return
	}
	filter.FromDate = fromDate
	filter.ToDate = toDate

	movements, err := h.service.GetHistory(ctx, productID, filter)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"items": movements})
}

// Turnover handles GET /stock/turnover - opening/inbound/outbound/closing
// totals over a period.
func (h *StockHandler) Turnover(c *gin.Context) {
	ctx := c.Request.Context()

	fromDate, toDate, err := parseDateRange(c, true)
	if err != nil {
		h.Error(c, err)
		return
	}

	filter := stock.TurnoverFilter{
		FromDate: *fromDate,
		ToDate:   *toDate,
	}

	if productStr := c.Query("productId"); productStr != "" {
		productID, err := id.Parse(productStr)
		if err != nil {
			h.Error(c, apperror.NewValidation("invalid productId format"))
			return
		}
		filter.ProductID = &productID
	}

	turnover, err := h.service.GetTurnover(ctx, filter)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, turnover)
}

// ReconcileRequest optionally narrows reconciliation to given products.
type ReconcileRequest struct {
	ProductIDs []string `json:"productIds"`
}

// Reconcile handles POST /stock/reconcile - compare materialized balances
// against the ledger and repair drift.
func (h *StockHandler) Reconcile(c *gin.Context) {
	ctx := c.Request.Context()

	var req ReconcileRequest
	if c.Request.ContentLength > 0 {
		if !h.BindJSON(c, &req) {
			return
		}
	}

	productIDs := make([]id.ID, 0, len(req.ProductIDs))
	for _, raw := range req.ProductIDs {
		parsed, err := id.Parse(raw)
		if err != nil {
			h.Error(c, apperror.NewValidation("invalid product id").WithDetail("value", raw))
			return
		}
		productIDs = append(productIDs, parsed)
	}

	drifts, err := h.service.Reconcile(ctx, productIDs)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, gin.H{
		"driftCount": len(drifts),
		"drifts":     drifts,
	})
}

// parseDateRange reads from/to query params as RFC 3339 or YYYY-MM-DD.
func parseDateRange(c *gin.Context, required bool) (*time.Time, *time.Time, error) {
	parse := func(key string) (*time.Time, error) {
		raw := c.Query(key)
		if raw == "" {
			if required {
				return nil, apperror.NewValidation(key + " is required").
					WithDetail("field", key)
			}
			return nil, nil
		}
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			return &t, nil
		}
		t, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return nil, apperror.NewValidation("invalid date format for " + key).
				WithDetail("value", raw)
		}
		return &t, nil
	}

	fromDate, err := parse("from")
	if err != nil {
		return nil, nil, err
	}
	toDate, err := parse("to")
	if err != nil {
		return nil, nil, err
	}
	return fromDate, toDate, nil
}
