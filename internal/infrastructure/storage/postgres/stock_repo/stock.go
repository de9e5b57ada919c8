// Package stock_repo provides the PostgreSQL implementation of the stock
// ledger: an append-only movement journal plus a materialized balance table
// maintained by atomic increments. Balance rows are keyed by
// (product_id, variant_id); base product counters store the nil UUID in
// variant_id so the composite key stays NOT NULL and upsertable.
package stock_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"retailcore/internal/core/id"
	"retailcore/internal/domain/stock"
	"retailcore/internal/infrastructure/storage/postgres"
)

const (
	movementTable = "stock_movements"
	balanceTable  = "stock_balances"
)

// StockRepo implements stock.Repository.
type StockRepo struct {
	txManager *postgres.TxManager
}

// NewStockRepo creates a new stock ledger repository.
func NewStockRepo(txManager *postgres.TxManager) *StockRepo {
	return &StockRepo{txManager: txManager}
}

func (r *StockRepo) builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

func (r *StockRepo) querier(ctx context.Context) postgres.Querier {
	return r.txManager.GetQuerier(ctx)
}

// InsertMovement appends one immutable ledger entry.
func (r *StockRepo) InsertMovement(ctx context.Context, m stock.Movement) error {
	q := r.builder().
		Insert(movementTable).
		Columns("id", "product_id", "variant_id", "type", "quantity_delta", "reason",
			"recorder_type", "recorder_id", "created_at", "created_by").
		Values(m.ID, m.ProductID, m.VariantID, m.Type, m.QuantityDelta, m.Reason,
			m.RecorderType, m.RecorderID, m.CreatedAt, m.CreatedBy)

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := r.querier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert movement: %w", err)
	}

	return nil
}

// ApplyDelta increments the balance row in one statement and returns the
// resulting quantity. Missing rows are created on first movement.
func (r *StockRepo) ApplyDelta(ctx context.Context, ref stock.Ref, delta int64) (int64, error) {
	sql := fmt.Sprintf(`
        INSERT INTO %s (product_id, variant_id, quantity, updated_at)
        VALUES ($1, $2, $3, now())
        ON CONFLICT (product_id, variant_id)
        DO UPDATE SET quantity = %s.quantity + $3, updated_at = now()
        RETURNING quantity`, balanceTable, balanceTable)

	var quantity int64
	if err := r.querier(ctx).QueryRow(ctx, sql, ref.ProductID, ref.VariantID, delta).Scan(&quantity); err != nil {
		return 0, fmt.Errorf("apply delta: %w", err)
	}

	return quantity, nil
}

// GetBalance returns the current on-hand quantity for one counter. A counter
// without a balance row has zero on hand, not an error.
func (r *StockRepo) GetBalance(ctx context.Context, ref stock.Ref) (stock.Balance, error) {
	q := r.builder().
		Select("product_id", "variant_id", "quantity", "updated_at").
		From(balanceTable).
		Where(squirrel.Eq{"product_id": ref.ProductID}).
		Where(squirrel.Eq{"variant_id": ref.VariantID})

	sql, args, err := q.ToSql()
	if err != nil {
		return stock.Balance{}, fmt.Errorf("build query: %w", err)
	}

	var balance stock.Balance
	if err := pgxscan.Get(ctx, r.querier(ctx), &balance, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return stock.Balance{ProductID: ref.ProductID, VariantID: ref.VariantID}, nil
		}
		return stock.Balance{}, fmt.Errorf("get balance: %w", err)
	}

	return balance, nil
}

// GetBalances returns base-product on-hand quantities for the given
// products. Products without a row are reported as zero; variant counters
// are excluded.
func (r *StockRepo) GetBalances(ctx context.Context, productIDs []id.ID) (map[id.ID]int64, error) {
	result := make(map[id.ID]int64, len(productIDs))
	for _, pid := range productIDs {
		result[pid] = 0
	}
	if len(productIDs) == 0 {
		return result, nil
	}

	q := r.builder().
		Select("product_id", "quantity").
		From(balanceTable).
		Where(squirrel.Eq{"product_id": productIDs}).
		Where(squirrel.Eq{"variant_id": id.Nil()})

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	rows, err := r.querier(ctx).Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("get balances: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var pid id.ID
		var qty int64
		if err := rows.Scan(&pid, &qty); err != nil {
			return nil, fmt.Errorf("scan balance: %w", err)
		}
		result[pid] = qty
	}

	return result, rows.Err()
}

// ListBalances returns every counter, variants included, keyed by
// (product, variant). With no product filter, all counters are returned.
func (r *StockRepo) ListBalances(ctx context.Context, productIDs []id.ID) (map[stock.Ref]int64, error) {
	q := r.builder().
		Select("product_id", "variant_id", "quantity").
		From(balanceTable)

	if len(productIDs) > 0 {
		q = q.Where(squirrel.Eq{"product_id": productIDs})
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	rows, err := r.querier(ctx).Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("list balances: %w", err)
	}
	defer rows.Close()

	result := make(map[stock.Ref]int64)
	for rows.Next() {
		var ref stock.Ref
		var qty int64
		if err := rows.Scan(&ref.ProductID, &ref.VariantID, &qty); err != nil {
			return nil, fmt.Errorf("scan balance: %w", err)
		}
		result[ref] = qty
	}

	return result, rows.Err()
}

// GetMovementHistory returns ledger entries for a product, newest first.
func (r *StockRepo) GetMovementHistory(ctx context.Context, productID id.ID, f stock.MovementFilter) ([]stock.Movement, error) {
	q := r.builder().
		Select("id", "product_id", "variant_id", "type", "quantity_delta", "reason",
			"recorder_type", "recorder_id", "created_at", "created_by").
		From(movementTable).
		Where(squirrel.Eq{"product_id": productID}).
		OrderBy("created_at DESC")

	if len(f.Types) > 0 {
		q = q.Where(squirrel.Eq{"type": f.Types})
	}
	if f.RecorderID != nil {
		q = q.Where(squirrel.Eq{"recorder_id": *f.RecorderID})
	}
	if f.FromDate != nil {
		q = q.Where(squirrel.GtOrEq{"created_at": *f.FromDate})
	}
	if f.ToDate != nil {
		q = q.Where(squirrel.Lt{"created_at": *f.ToDate})
	}
	if f.Limit > 0 {
		q = q.Limit(uint64(f.Limit))
	}
	if f.Offset > 0 {
		q = q.Offset(uint64(f.Offset))
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var items []stock.Movement
	if err := pgxscan.Select(ctx, r.querier(ctx), &items, sql, args...); err != nil {
		return nil, fmt.Errorf("movement history: %w", err)
	}

	return items, nil
}

// GetTurnover calculates opening balance, inbound, outbound and closing
// balance for a period from the ledger alone.
func (r *StockRepo) GetTurnover(ctx context.Context, f stock.TurnoverFilter) (stock.Turnover, error) {
	sql := fmt.Sprintf(`
        SELECT
            COALESCE(SUM(quantity_delta) FILTER (WHERE created_at < $1), 0) AS opening_balance,
            COALESCE(SUM(quantity_delta) FILTER (
                WHERE created_at >= $1 AND created_at < $2 AND quantity_delta > 0), 0) AS inbound,
            COALESCE(-SUM(quantity_delta) FILTER (
                WHERE created_at >= $1 AND created_at < $2 AND quantity_delta < 0), 0) AS outbound
        FROM %s`, movementTable)

	args := []any{f.FromDate, f.ToDate}
	if f.ProductID != nil {
		sql += " WHERE product_id = $3"
		args = append(args, *f.ProductID)
	}

	var t stock.Turnover
	if err := r.querier(ctx).QueryRow(ctx, sql, args...).Scan(&t.OpeningBalance, &t.Inbound, &t.Outbound); err != nil {
		return stock.Turnover{}, fmt.Errorf("turnover: %w", err)
	}

	if f.ProductID != nil {
		t.ProductID = *f.ProductID
	}
	t.ClosingBalance = t.OpeningBalance + t.Inbound - t.Outbound

	return t, nil
}

// SumMovements returns the ledger sum per counter. Journal entries carry a
// nullable variant; NULL folds into the nil UUID so the grouping matches the
// balance table key. With no product filter, every counter that ever moved
// is returned.
func (r *StockRepo) SumMovements(ctx context.Context, productIDs []id.ID) (map[stock.Ref]int64, error) {
	sql := fmt.Sprintf(`
        SELECT product_id, COALESCE(variant_id, $1) AS variant_id, COALESCE(SUM(quantity_delta), 0)
        FROM %s`, movementTable)

	args := []any{id.Nil()}
	if len(productIDs) > 0 {
		sql += " WHERE product_id = ANY($2)"
		args = append(args, productIDs)
	}
	sql += " GROUP BY product_id, COALESCE(variant_id, $1)"

	rows, err := r.querier(ctx).Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("sum movements: %w", err)
	}
	defer rows.Close()

	result := make(map[stock.Ref]int64)
	for rows.Next() {
		var ref stock.Ref
		var sum int64
		if err := rows.Scan(&ref.ProductID, &ref.VariantID, &sum); err != nil {
			return nil, fmt.Errorf("scan sum: %w", err)
		}
		result[ref] = sum
	}

	return result, rows.Err()
}

// SetBalance overwrites a balance row. Used only by reconciliation repair.
func (r *StockRepo) SetBalance(ctx context.Context, ref stock.Ref, quantity int64) error {
	sql := fmt.Sprintf(`
        INSERT INTO %s (product_id, variant_id, quantity, updated_at)
        VALUES ($1, $2, $3, now())
        ON CONFLICT (product_id, variant_id)
        DO UPDATE SET quantity = $3, updated_at = now()`, balanceTable)

	if _, err := r.querier(ctx).Exec(ctx, sql, ref.ProductID, ref.VariantID, quantity); err != nil {
		return fmt.Errorf("set balance: %w", err)
	}

	return nil
}

var _ stock.Repository = (*StockRepo)(nil)
