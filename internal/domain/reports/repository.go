package reports

import (
	"context"
)

// Repository defines report data access interface.
type Repository interface {
	// GetSalesReport aggregates completed sale lines by the filter's
	// dimension.
	GetSalesReport(ctx context.Context, filter SalesReportFilter) (*SalesReport, error)

	// GetMovementReport aggregates ledger movements by the filter's
	// dimension.
	GetMovementReport(ctx context.Context, filter MovementReportFilter) (*MovementReport, error)

	// GetValuationReport prices current on-hand stock at cost.
	GetValuationReport(ctx context.Context, filter ValuationFilter) (*ValuationReport, error)
}
