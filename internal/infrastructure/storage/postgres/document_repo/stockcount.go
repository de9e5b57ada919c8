package document_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"retailcore/internal/core/apperror"
	"retailcore/internal/core/id"
	"retailcore/internal/domain"
	"retailcore/internal/domain/stockcount"
	"retailcore/internal/infrastructure/storage/postgres"
)

const (
	countSessionTable = "doc_count_sessions"
	countItemTable    = "doc_count_items"
)

// StockCountRepo implements stockcount.Repository.
type StockCountRepo struct {
	*BaseDocumentRepo[*stockcount.Session]

	inserter *postgres.BatchInserter
}

// NewStockCountRepo creates a new stock count repository.
func NewStockCountRepo(txManager *postgres.TxManager) *StockCountRepo {
	return &StockCountRepo{
		BaseDocumentRepo: NewBaseDocumentRepo(
			txManager,
			countSessionTable,
			postgres.ExtractDBColumns[stockcount.Session](),
			func() *stockcount.Session { return &stockcount.Session{} },
		),
		inserter: postgres.NewBatchInserter(txManager),
	}
}

// TransitionStatus moves the session out of fromStatus with a guarded
// update; extraSet carries the lifecycle stamps for the target status.
func (r *StockCountRepo) TransitionStatus(ctx context.Context, sessionID id.ID, from, to stockcount.SessionStatus, extraSet map[string]any) (bool, error) {
	return r.UpdateStatusGuarded(ctx, sessionID, string(from), string(to), extraSet)
}

// List retrieves sessions with session-specific filtering.
func (r *StockCountRepo) List(ctx context.Context, f stockcount.ListFilter) (domain.ListResult[*stockcount.Session], error) {
	result := domain.ListResult[*stockcount.Session]{
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
			squirrel.ILike{"name": pattern},
		})
	}
	if f.Status != nil {
		q = q.Where(squirrel.Eq{"status": *f.Status})
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
		return result, fmt.Errorf("list sessions: %w", err)
	}

	return result, nil
}

// InsertItems bulk-inserts session lines with the COPY protocol. A session
// over a large catalog snapshots thousands of lines at once.
func (r *StockCountRepo) InsertItems(ctx context.Context, items []stockcount.Item) error {
	if len(items) == 0 {
		return nil
	}

	columns := []string{"id", "session_id", "product_id", "variant_id", "expected_quantity", "unit_cost", "status"}
	rows := make([][]any, len(items))
	for i, item := range items {
		rows[i] = []any{item.ID, item.SessionID, item.ProductID, item.VariantID, item.ExpectedQuantity, item.UnitCost, item.Status}
	}

	if _, err := r.inserter.CopyFromSlice(ctx, countItemTable, columns, rows); err != nil {
		return fmt.Errorf("copy count items: %w", err)
	}

	return nil
}

func (r *StockCountRepo) itemSelect() squirrel.SelectBuilder {
	return r.Builder().
		Select(postgres.ExtractDBColumns[stockcount.Item]()...).
		From(countItemTable)
}

// GetItem retrieves one line by session and product.
func (r *StockCountRepo) GetItem(ctx context.Context, sessionID, productID id.ID) (*stockcount.Item, error) {
	q := r.itemSelect().
		Where(squirrel.Eq{"session_id": sessionID}).
		Where(squirrel.Eq{"product_id": productID}).
		Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	item := &stockcount.Item{}
	if err := pgxscan.Get(ctx, r.Querier(ctx), item, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("count item", productID.String())
		}
		return nil, fmt.Errorf("get count item: %w", err)
	}

	return item, nil
}

// UpdateItem persists a counted or verified line.
func (r *StockCountRepo) UpdateItem(ctx context.Context, item *stockcount.Item) error {
	q := r.Builder().
		Update(countItemTable).
		Set("counted_quantity", item.CountedQuantity).
		Set("status", item.Status).
		Set("counted_by", item.CountedBy).
		Set("counted_at", item.CountedAt).
		Set("verified_by", item.VerifiedBy).
		Set("verified_at", item.VerifiedAt).
		Set("notes", item.Notes).
		Where(squirrel.Eq{"id": item.ID})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	result, err := r.Querier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update count item: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperror.NewNotFound("count item", item.ID.String())
	}

	return nil
}

// ListItems returns session lines, optionally narrowed by status.
func (r *StockCountRepo) ListItems(ctx context.Context, sessionID id.ID, statuses []stockcount.ItemStatus) ([]stockcount.Item, error) {
	q := r.itemSelect().
		Where(squirrel.Eq{"session_id": sessionID}).
		OrderBy("product_id ASC")

	if len(statuses) > 0 {
		q = q.Where(squirrel.Eq{"status": statuses})
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var items []stockcount.Item
	if err := pgxscan.Select(ctx, r.Querier(ctx), &items, sql, args...); err != nil {
		return nil, fmt.Errorf("list count items: %w", err)
	}

	return items, nil
}

// CountItems aggregates line counters and snapshot values in one query.
func (r *StockCountRepo) CountItems(ctx context.Context, sessionID id.ID) (stockcount.ItemCounts, error) {
	sql := fmt.Sprintf(`
        SELECT
            COUNT(*) AS total,
            COUNT(*) FILTER (WHERE status <> 'not_counted') AS counted,
            COUNT(*) FILTER (WHERE counted_quantity IS NOT NULL AND counted_quantity <> expected_quantity) AS discrepancy,
            COALESCE(SUM(expected_quantity * unit_cost), 0) AS total_value,
            COALESCE(SUM((counted_quantity - expected_quantity) * unit_cost)
                FILTER (WHERE counted_quantity IS NOT NULL), 0) AS discrepancy_value
        FROM %s
        WHERE session_id = $1`, countItemTable)

	var counts stockcount.ItemCounts
	if err := pgxscan.Get(ctx, r.Querier(ctx), &counts, sql, sessionID); err != nil {
		return counts, fmt.Errorf("count items: %w", err)
	}

	return counts, nil
}

var _ stockcount.Repository = (*StockCountRepo)(nil)
