package document_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"retailcore/internal/core/id"
	"retailcore/internal/domain"
	"retailcore/internal/domain/sales"
	"retailcore/internal/infrastructure/storage/postgres"
)

const (
	saleTable     = "doc_sales"
	saleLineTable = "doc_sale_lines"
)

// SaleRepo implements sales.Repository.
type SaleRepo struct {
	*BaseDocumentRepo[*sales.Sale]
}

// NewSaleRepo creates a new sale repository.
func NewSaleRepo(txManager *postgres.TxManager) *SaleRepo {
	return &SaleRepo{
		BaseDocumentRepo: NewBaseDocumentRepo(
			txManager,
			saleTable,
			postgres.ExtractDBColumns[sales.Sale](),
			func() *sales.Sale { return &sales.Sale{} },
		),
	}
}

// CreateWithLines inserts the sale header and its lines.
func (r *SaleRepo) CreateWithLines(ctx context.Context, s *sales.Sale, lines []sales.Line) error {
	if err := r.Create(ctx, s); err != nil {
		return err
	}

	if len(lines) == 0 {
		return nil
	}

	q := r.Builder().
		Insert(saleLineTable).
		Columns("id", "sale_id", "product_id", "variant_id", "quantity",
			"unit_price", "promotion_id", "discount", "line_total")
	for _, l := range lines {
		q = q.Values(l.ID, l.SaleID, l.ProductID, l.VariantID, l.Quantity,
			l.UnitPrice, l.PromotionID, l.Discount, l.LineTotal)
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert lines: %w", err)
	}

	if _, err := r.Querier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert sale lines: %w", err)
	}

	return nil
}

// GetLines returns the sale's lines in insertion order.
func (r *SaleRepo) GetLines(ctx context.Context, saleID id.ID) ([]sales.Line, error) {
	q := r.Builder().
		Select(postgres.ExtractDBColumns[sales.Line]()...).
		From(saleLineTable).
		Where(squirrel.Eq{"sale_id": saleID}).
		OrderBy("id ASC")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var lines []sales.Line
	if err := pgxscan.Select(ctx, r.Querier(ctx), &lines, sql, args...); err != nil {
		return nil, fmt.Errorf("get sale lines: %w", err)
	}

	return lines, nil
}

// TransitionStatus moves the sale out of fromStatus with a guarded update.
func (r *SaleRepo) TransitionStatus(ctx context.Context, saleID id.ID, from, to sales.Status) (bool, error) {
	return r.UpdateStatusGuarded(ctx, saleID, string(from), string(to), nil)
}

// List retrieves sales with sale-specific filtering.
func (r *SaleRepo) List(ctx context.Context, f sales.ListFilter) (domain.ListResult[*sales.Sale], error) {
	result := domain.ListResult[*sales.Sale]{
		Limit:  f.Limit,
		Offset: f.Offset,
	}

	q := r.baseSelect()

	if !f.IncludeDeleted {
		q = q.Where(squirrel.Eq{"deletion_mark": false})
	}
	if f.Search != "" {
		q = q.Where(squirrel.ILike{"number": "%" + f.Search + "%"})
	}
	if f.Status != nil {
		q = q.Where(squirrel.Eq{"status": *f.Status})
	}
	if f.FromDate != nil {
		q = q.Where(squirrel.GtOrEq{"date": *f.FromDate})
	}
	if f.ToDate != nil {
		q = q.Where(squirrel.Lt{"date": *f.ToDate})
	}

	countQ := r.Builder().Select("COUNT(*)").FromSelect(q, "sub")
	countSQL, countArgs, err := countQ.ToSql()
	if err != nil {
		return result, fmt.Errorf("build count: %w", err)
	}

	querier := r.Querier(ctx)
	if err := querier.QueryRow(ctx, countSQL, countArgs...).Scan(&result.TotalCount); err != nil {
		return result, fmt.Errorf("count: %w", err)
	}

	orderBy, err := r.parseOrderBy(f.OrderBy)
	if err != nil {
		return result, err
	}
	q = q.OrderBy(orderBy)

	if f.Limit > 0 {
		q = q.Limit(uint64(f.Limit))
	}
	if f.Offset > 0 {
		q = q.Offset(uint64(f.Offset))
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return result, fmt.Errorf("build query: %w", err)
	}

	if err := pgxscan.Select(ctx, querier, &result.Items, sql, args...); err != nil {
		return result, fmt.Errorf("list sales: %w", err)
	}

	return result, nil
}

var _ sales.Repository = (*SaleRepo)(nil)
