package reports

import (
	"context"
	"fmt"

	"retailcore/internal/core/apperror"
)

// Service provides report generation operations.
type Service struct {
	repo Repository
}

// NewService creates a new reports service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// GetSalesReport generates the grouped sales report.
func (s *Service) GetSalesReport(ctx context.Context, filter SalesReportFilter) (*SalesReport, error) {
	if filter.FromDate.IsZero() || filter.ToDate.IsZero() {
		return nil, apperror.NewValidation("fromDate and toDate are required")
	}
	if filter.FromDate.After(filter.ToDate) {
		return nil, apperror.NewValidation("fromDate must be before toDate")
	}
	if filter.Dimension == "" {
		filter.Dimension = SalesByProduct
	}
	if !filter.Dimension.Valid() {
		return nil, apperror.NewValidation("invalid report dimension").
			WithDetail("dimension", string(filter.Dimension))
	}
	clampPagination(&filter.Limit, &filter.Offset)

	report, err := s.repo.GetSalesReport(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("get sales report: %w", err)
	}
	return report, nil
}

// GetMovementReport generates the grouped stock movement report.
func (s *Service) GetMovementReport(ctx context.Context, filter MovementReportFilter) (*MovementReport, error) {
	if filter.FromDate.IsZero() || filter.ToDate.IsZero() {
		return nil, apperror.NewValidation("fromDate and toDate are required")
	}
	if filter.FromDate.After(filter.ToDate) {
		return nil, apperror.NewValidation("fromDate must be before toDate")
	}
	if filter.Dimension == "" {
		filter.Dimension = MovementsByType
	}
	if !filter.Dimension.Valid() {
		return nil, apperror.NewValidation("invalid report dimension").
			WithDetail("dimension", string(filter.Dimension))
	}
	clampPagination(&filter.Limit, &filter.Offset)

	report, err := s.repo.GetMovementReport(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("get movement report: %w", err)
	}
	return report, nil
}

// GetValuationReport generates the stock valuation report.
func (s *Service) GetValuationReport(ctx context.Context, filter ValuationFilter) (*ValuationReport, error) {
	clampPagination(&filter.Limit, &filter.Offset)

	report, err := s.repo.GetValuationReport(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("get valuation report: %w", err)
	}
	return report, nil
}

func clampPagination(limit, offset *int) {
	if *limit <= 0 {
		*limit = 100
	}
	if *limit > 1000 {
		*limit = 1000
	}
	if *offset < 0 {
		*offset = 0
	}
}
