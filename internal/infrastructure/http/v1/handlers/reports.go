package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"retailcore/internal/core/apperror"
	"retailcore/internal/core/id"
	"retailcore/internal/domain/reports"
)

// ReportsHandler exposes the read-side reports.
type ReportsHandler struct {
	*BaseHandler
	service *reports.Service
}

// NewReportsHandler creates a reports HTTP handler.
func NewReportsHandler(base *BaseHandler, service *reports.Service) *ReportsHandler {
	return &ReportsHandler{BaseHandler: base, service: service}
}

// Sales handles GET /reports/sales - grouped sales aggregation.
func (h *ReportsHandler) Sales(c *gin.Context) {
	ctx := c.Request.Context()

	fromDate, toDate, err := parseDateRange(c, true)
	if err != nil {
		h.Error(c, err)
		return
	}

	filter := reports.SalesReportFilter{
		FromDate:  *fromDate,
		ToDate:    *toDate,
		Dimension: reports.SalesDimension(c.DefaultQuery("dimension", string(reports.SalesByProduct))),
		Limit:     h.ParseIntQuery(c, "limit", 50),
		Offset:    h.ParseIntQuery(c, "offset", 0),
	}

	filter.ProductIDs, err = parseIDList(c, "productIds")
	if err != nil {
		h.Error(c, err)
		return
	}
	filter.CategoryIDs, err = parseIDList(c, "categoryIds")
	if err != nil {
		h.Error(c, err)
		return
	}

	report, err := h.service.GetSalesReport(ctx, filter)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, report)
}

// Movements handles GET /reports/movements - grouped ledger aggregation.
func (h *ReportsHandler) Movements(c *gin.Context) {
	ctx := c.Request.Context()

	fromDate, toDate, err := parseDateRange(c, true)
	if err != nil {
		h.Error(c, err)
		return
	}

	filter := reports.MovementReportFilter{
		FromDate:  *fromDate,
		ToDate:    *toDate,
		Dimension: reports.MovementDimension(c.DefaultQuery("dimension", string(reports.MovementsByType))),
		Limit:     h.ParseIntQuery(c, "limit", 50),
		Offset:    h.ParseIntQuery(c, "offset", 0),
	}

	filter.ProductIDs, err = parseIDList(c, "productIds")
	if err != nil {
		h.Error(c, err)
		return
	}

	report, err := h.service.GetMovementReport(ctx, filter)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, report)
}

// Valuation handles GET /reports/valuation - stock value at cost.
func (h *ReportsHandler) Valuation(c *gin.Context) {
	ctx := c.Request.Context()

	filter := reports.ValuationFilter{
		ExcludeZero: c.Query("excludeZero") == "true",
		Limit:       h.ParseIntQuery(c, "limit", 50),
		Offset:      h.ParseIntQuery(c, "offset", 0),
	}

	var err error
	filter.CategoryIDs, err = parseIDList(c, "categoryIds")
	if err != nil {
		h.Error(c, err)
		return
	}

	report, err := h.service.GetValuationReport(ctx, filter)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, report)
}

// parseIDList reads a comma-separated list of IDs from a query parameter.
func parseIDList(c *gin.Context, key string) ([]id.ID, error) {
	raw := c.Query(key)
	if raw == "" {
		return nil, nil
	}
	parts := strings.Split(raw, ",")
	ids := make([]id.ID, 0, len(parts))
	for _, part := range parts {
		parsed, err := id.Parse(strings.TrimSpace(part))
		if err != nil {
			return nil, apperror.NewValidation("invalid id in "+key).
				WithDetail("value", part)
		}
		ids = append(ids, parsed)
	}
	return ids, nil
}
