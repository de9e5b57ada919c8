package document_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"retailcore/internal/core/id"
	"retailcore/internal/domain"
	"retailcore/internal/domain/purchasing"
	"retailcore/internal/infrastructure/storage/postgres"
)

const (
	purchaseTable     = "doc_purchases"
	purchaseLineTable = "doc_purchase_lines"
)

// PurchaseRepo implements purchasing.Repository.
type PurchaseRepo struct {
	*BaseDocumentRepo[*purchasing.Order]
}

// NewPurchaseRepo creates a new purchase order repository.
func NewPurchaseRepo(txManager *postgres.TxManager) *PurchaseRepo {
	return &PurchaseRepo{
		BaseDocumentRepo: NewBaseDocumentRepo(
			txManager,
			purchaseTable,
			postgres.ExtractDBColumns[purchasing.Order](),
			func() *purchasing.Order { return &purchasing.Order{} },
		),
	}
}

// CreateWithLines inserts the order header and its lines.
func (r *PurchaseRepo) CreateWithLines(ctx context.Context, o *purchasing.Order, lines []purchasing.Line) error {
	if err := r.Create(ctx, o); err != nil {
		return err
	}

	if len(lines) == 0 {
		return nil
	}

	q := r.Builder().
		Insert(purchaseLineTable).
		Columns("id", "order_id", "product_id", "variant_id", "quantity",
			"unit_cost", "line_total")
	for _, l := range lines {
		q = q.Values(l.ID, l.OrderID, l.ProductID, l.VariantID, l.Quantity,
			l.UnitCost, l.LineTotal)
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert lines: %w", err)
	}

	if _, err := r.Querier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert purchase lines: %w", err)
	}

	return nil
}

// GetLines returns the order's lines in insertion order.
func (r *PurchaseRepo) GetLines(ctx context.Context, orderID id.ID) ([]purchasing.Line, error) {
	q := r.Builder().
		Select(postgres.ExtractDBColumns[purchasing.Line]()...).
		From(purchaseLineTable).
		Where(squirrel.Eq{"order_id": orderID}).
		OrderBy("id ASC")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var lines []purchasing.Line
	if err := pgxscan.Select(ctx, r.Querier(ctx), &lines, sql, args...); err != nil {
		return nil, fmt.Errorf("get purchase lines: %w", err)
	}

	return lines, nil
}

// TransitionStatus moves the order out of fromStatus with a guarded update.
func (r *PurchaseRepo) TransitionStatus(ctx context.Context, orderID id.ID, from, to purchasing.Status, extraSet map[string]any) (bool, error) {
	return r.UpdateStatusGuarded(ctx, orderID, string(from), string(to), extraSet)
}

// List retrieves purchase orders with order-specific filtering.
func (r *PurchaseRepo) List(ctx context.Context, f purchasing.ListFilter) (domain.ListResult[*purchasing.Order], error) {
	result := domain.ListResult[*purchasing.Order]{
		Limit:  f.Limit,
		Offset: f.Offset,
	}

	q := r.baseSelect()

	if !f.IncludeDeleted {
		q = q.Where(squirrel.Eq{"deletion_mark": false})
	}
	if f.Search != "" {
		pattern := "%" + f.Search + "%"
		q = q.Where(squirrel.Or{
			squirrel.ILike{"number": pattern},
			squirrel.ILike{"supplier_name": pattern},
		})
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
		return result, fmt.Errorf("list purchase orders: %w", err)
	}

	return result, nil
}

var _ purchasing.Repository = (*PurchaseRepo)(nil)
