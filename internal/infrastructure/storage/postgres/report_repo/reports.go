// Package report_repo provides read-side report queries. Every report is a
// single grouped aggregation; the grouping key and label expressions are the
// only thing that varies per dimension.
package report_repo

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"retailcore/internal/core/apperror"
	"retailcore/internal/domain/reports"
	"retailcore/internal/infrastructure/storage/postgres"
)

const (
	saleTable     = "doc_sales"
	saleLineTable = "doc_sale_lines"
	productTable  = "cat_products"
	categoryTable = "cat_categories"
	movementTable = "stock_movements"
	balanceTable  = "stock_balances"
)

// ReportRepo implements reports.Repository.
type ReportRepo struct {
	txManager *postgres.TxManager
}

// NewReportRepo creates a new report repository.
func NewReportRepo(txManager *postgres.TxManager) *ReportRepo {
	return &ReportRepo{txManager: txManager}
}

func (r *ReportRepo) builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

func (r *ReportRepo) querier(ctx context.Context) postgres.Querier {
	return r.txManager.GetQuerier(ctx)
}

// salesDimensionExprs maps a dimension to its key and label SQL expressions.
func salesDimensionExprs(d reports.SalesDimension) (key, label string, err error) {
	switch d {
	case reports.SalesByProduct:
		return "l.product_id::text", "p.name", nil
	case reports.SalesByCategory:
		return "COALESCE(p.category_id::text, '')", "COALESCE(c.name, 'Uncategorized')", nil
	case reports.SalesByDay:
		return "to_char(s.date, 'YYYY-MM-DD')", "to_char(s.date, 'YYYY-MM-DD')", nil
	}
	return "", "", apperror.NewValidation("unknown sales dimension").WithDetail("dimension", d)
}

// salesFactBase builds the shared FROM/WHERE over completed sale lines.
func (r *ReportRepo) salesFactBase(f reports.SalesReportFilter) squirrel.SelectBuilder {
	q := r.builder().
		Select().
		From(saleLineTable + " l").
		Join(saleTable + " s ON s.id = l.sale_id").
		Join(productTable + " p ON p.id = l.product_id").
		LeftJoin(categoryTable + " c ON c.id = p.category_id").
		Where(squirrel.Eq{"s.status": "completed"}).
		Where(squirrel.GtOrEq{"s.date": f.FromDate}).
		Where(squirrel.Lt{"s.date": f.ToDate})

	if len(f.ProductIDs) > 0 {
		q = q.Where(squirrel.Eq{"l.product_id": f.ProductIDs})
	}
	if len(f.CategoryIDs) > 0 {
		q = q.Where(squirrel.Eq{"p.category_id": f.CategoryIDs})
	}

	return q
}

// GetSalesReport aggregates completed sale lines by the filter's dimension.
func (r *ReportRepo) GetSalesReport(ctx context.Context, f reports.SalesReportFilter) (*reports.SalesReport, error) {
	keyExpr, labelExpr, err := salesDimensionExprs(f.Dimension)
	if err != nil {
		return nil, err
	}

	report := &reports.SalesReport{
		FromDate:  f.FromDate,
		ToDate:    f.ToDate,
		Dimension: f.Dimension,
	}
	querier := r.querier(ctx)

	groupQ := r.salesFactBase(f).
		Columns(
			keyExpr+" AS key",
			labelExpr+" AS label",
			"COUNT(DISTINCT s.id) AS sales_count",
			"COALESCE(SUM(l.quantity), 0) AS units_sold",
			"COALESCE(SUM(l.quantity * l.unit_price), 0) AS gross_total",
			"COALESCE(SUM(l.discount), 0) AS discount_total",
			"COALESCE(SUM(l.line_total), 0) AS net_total",
		).
		GroupBy(keyExpr, labelExpr).
		OrderBy("net_total DESC", "key ASC")

	countQ := r.builder().Select("COUNT(*)").FromSelect(groupQ, "sub")
	countSQL, countArgs, err := countQ.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build count: %w", err)
	}
	if err := querier.QueryRow(ctx, countSQL, countArgs...).Scan(&report.TotalRows); err != nil {
		return nil, fmt.Errorf("count sales groups: %w", err)
	}

	if f.Limit > 0 {
		groupQ = groupQ.Limit(uint64(f.Limit))
	}
	if f.Offset > 0 {
		groupQ = groupQ.Offset(uint64(f.Offset))
	}

	sql, args, err := groupQ.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	if err := pgxscan.Select(ctx, querier, &report.Rows, sql, args...); err != nil {
		return nil, fmt.Errorf("sales report: %w", err)
	}

	// Summary covers all matching facts, not just the returned page.
	totalsQ := r.salesFactBase(f).
		Columns(
			"COALESCE(SUM(l.quantity), 0) AS total_units",
			"COALESCE(SUM(l.quantity * l.unit_price), 0) AS total_gross",
			"COALESCE(SUM(l.discount), 0) AS total_discount",
			"COALESCE(SUM(l.line_total), 0) AS total_net",
		)

	sql, args, err = totalsQ.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build totals: %w", err)
	}
	if err := querier.QueryRow(ctx, sql, args...).Scan(
		&report.TotalUnits, &report.TotalGross, &report.TotalDiscount, &report.TotalNet,
	); err != nil {
		return nil, fmt.Errorf("sales totals: %w", err)
	}

	return report, nil
}

// movementDimensionExprs maps a dimension to its key and label expressions.
func movementDimensionExprs(d reports.MovementDimension) (key, label string, err error) {
	switch d {
	case reports.MovementsByType:
		return "m.type", "m.type", nil
	case reports.MovementsByProduct:
		return "m.product_id::text", "p.name", nil
	}
	return "", "", apperror.NewValidation("unknown movement dimension").WithDetail("dimension", d)
}

func (r *ReportRepo) movementFactBase(f reports.MovementReportFilter) squirrel.SelectBuilder {
	q := r.builder().
		Select().
		From(movementTable + " m").
		Join(productTable + " p ON p.id = m.product_id").
		Where(squirrel.GtOrEq{"m.created_at": f.FromDate}).
		Where(squirrel.Lt{"m.created_at": f.ToDate})

	if len(f.ProductIDs) > 0 {
		q = q.Where(squirrel.Eq{"m.product_id": f.ProductIDs})
	}

	return q
}

// GetMovementReport aggregates ledger movements by the filter's dimension.
func (r *ReportRepo) GetMovementReport(ctx context.Context, f reports.MovementReportFilter) (*reports.MovementReport, error) {
	keyExpr, labelExpr, err := movementDimensionExprs(f.Dimension)
	if err != nil {
		return nil, err
	}

	report := &reports.MovementReport{
		FromDate:  f.FromDate,
		ToDate:    f.ToDate,
		Dimension: f.Dimension,
	}
	querier := r.querier(ctx)

	groupQ := r.movementFactBase(f).
		Columns(
			keyExpr+" AS key",
			labelExpr+" AS label",
			"COALESCE(SUM(m.quantity_delta) FILTER (WHERE m.quantity_delta > 0), 0) AS inbound",
			"COALESCE(-SUM(m.quantity_delta) FILTER (WHERE m.quantity_delta < 0), 0) AS outbound",
			"COALESCE(SUM(m.quantity_delta), 0) AS net",
		).
		GroupBy(keyExpr, labelExpr).
		OrderBy("key ASC")

	countQ := r.builder().Select("COUNT(*)").FromSelect(groupQ, "sub")
	countSQL, countArgs, err := countQ.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build count: %w", err)
	}
	if err := querier.QueryRow(ctx, countSQL, countArgs...).Scan(&report.TotalRows); err != nil {
		return nil, fmt.Errorf("count movement groups: %w", err)
	}

	if f.Limit > 0 {
		groupQ = groupQ.Limit(uint64(f.Limit))
	}
	if f.Offset > 0 {
		groupQ = groupQ.Offset(uint64(f.Offset))
	}

	sql, args, err := groupQ.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	if err := pgxscan.Select(ctx, querier, &report.Rows, sql, args...); err != nil {
		return nil, fmt.Errorf("movement report: %w", err)
	}

	totalsQ := r.movementFactBase(f).
		Columns(
			"COALESCE(SUM(m.quantity_delta) FILTER (WHERE m.quantity_delta > 0), 0) AS total_inbound",
			"COALESCE(-SUM(m.quantity_delta) FILTER (WHERE m.quantity_delta < 0), 0) AS total_outbound",
		)

	sql, args, err = totalsQ.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build totals: %w", err)
	}
	if err := querier.QueryRow(ctx, sql, args...).Scan(
		&report.TotalInbound, &report.TotalOutbound,
	); err != nil {
		return nil, fmt.Errorf("movement totals: %w", err)
	}

	return report, nil
}

// GetValuationReport prices current on-hand stock at cost. Negative balances
// contribute zero value so an inconsistent row cannot reduce the total.
// Variant counters roll up into their parent product before pricing.
func (r *ReportRepo) GetValuationReport(ctx context.Context, f reports.ValuationFilter) (*reports.ValuationReport, error) {
	report := &reports.ValuationReport{AsOfDate: time.Now().UTC()}
	querier := r.querier(ctx)

	rollup := fmt.Sprintf(
		"(SELECT product_id, SUM(quantity) AS quantity FROM %s GROUP BY product_id) b ON b.product_id = p.id",
		balanceTable)

	base := r.builder().
		Select().
		From(productTable + " p").
		LeftJoin(rollup).
		Where(squirrel.Eq{"p.deletion_mark": false})

	if len(f.CategoryIDs) > 0 {
		base = base.Where(squirrel.Eq{"p.category_id": f.CategoryIDs})
	}
	if f.ExcludeZero {
		base = base.Where("COALESCE(b.quantity, 0) <> 0")
	}

	rowsQ := base.
		Columns(
			"p.id AS product_id",
			"p.code AS sku",
			"p.name AS name",
			"COALESCE(b.quantity, 0) AS on_hand",
			"p.cost AS unit_cost",
			"p.cost * GREATEST(COALESCE(b.quantity, 0), 0) AS value",
		).
		OrderBy("p.name ASC")

	countQ := r.builder().Select("COUNT(*)").FromSelect(rowsQ, "sub")
	countSQL, countArgs, err := countQ.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build count: %w", err)
	}
	if err := querier.QueryRow(ctx, countSQL, countArgs...).Scan(&report.TotalRows); err != nil {
		return nil, fmt.Errorf("count valuation rows: %w", err)
	}

	if f.Limit > 0 {
		rowsQ = rowsQ.Limit(uint64(f.Limit))
	}
	if f.Offset > 0 {
		rowsQ = rowsQ.Offset(uint64(f.Offset))
	}

	sql, args, err := rowsQ.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	if err := pgxscan.Select(ctx, querier, &report.Rows, sql, args...); err != nil {
		return nil, fmt.Errorf("valuation report: %w", err)
	}

	totalsQ := base.
		Columns(
			"COALESCE(SUM(GREATEST(COALESCE(b.quantity, 0), 0)), 0) AS total_units",
			"COALESCE(SUM(p.cost * GREATEST(COALESCE(b.quantity, 0), 0)), 0) AS total_value",
		)

	sql, args, err = totalsQ.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build totals: %w", err)
	}
	if err := querier.QueryRow(ctx, sql, args...).Scan(
		&report.TotalUnits, &report.TotalValue,
	); err != nil {
		return nil, fmt.Errorf("valuation totals: %w", err)
	}

	return report, nil
}

var _ reports.Repository = (*ReportRepo)(nil)
