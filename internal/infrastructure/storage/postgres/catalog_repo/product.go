package catalog_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"

	"retailcore/internal/core/apperror"
	"retailcore/internal/core/id"
	"retailcore/internal/core/types"
	"retailcore/internal/domain"
	"retailcore/internal/domain/catalogs/product"
	"retailcore/internal/infrastructure/storage/postgres"
)

const (
	productTable = "cat_products"
	variantTable = "cat_variants"
	balanceTable = "stock_balances"
)

// ProductRepo implements product.Repository.
type ProductRepo struct {
	*BaseCatalogRepo[*product.Product]
}

// NewProductRepo creates a new product repository.
func NewProductRepo(txManager *postgres.TxManager) *ProductRepo {
	return &ProductRepo{
		BaseCatalogRepo: NewBaseCatalogRepo(
			txManager,
			productTable,
			postgres.ExtractDBColumns[product.Product](),
			func() *product.Product { return &product.Product{} },
		),
	}
}

// FindByBarcode retrieves a product by barcode.
func (r *ProductRepo) FindByBarcode(ctx context.Context, barcode string) (*product.Product, error) {
	q := r.baseSelect().
		Where(squirrel.Eq{"barcode": barcode}).
		Where(squirrel.Eq{"deletion_mark": false}).
		Limit(1)

	item, err := r.FindOne(ctx, q)
	if err != nil {
		if apperror.IsNotFound(err) {
			return nil, apperror.NewNotFound("product", barcode)
		}
		return nil, err
	}
	return item, nil
}

// BarcodeExists checks barcode uniqueness across products and variants.
func (r *ProductRepo) BarcodeExists(ctx context.Context, barcode string) (bool, error) {
	sql := fmt.Sprintf(`
        SELECT 1 FROM %s WHERE barcode = $1 AND deletion_mark = false
        UNION ALL
        SELECT 1 FROM %s WHERE barcode = $1 AND deletion_mark = false
        LIMIT 1`, productTable, variantTable)

	var exists int
	err := r.Querier(ctx).QueryRow(ctx, sql, barcode).Scan(&exists)
	if err == pgx.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("barcode exists: %w", err)
	}

	return true, nil
}

// FindLowStock retrieves products whose on-hand quantity is at or below
// their minimum stock level. Products without a balance row count as zero
// on hand, so a product with no minimum flags once it runs out. The join is
// pinned to base counters; variant quantities do not dilute the check.
func (r *ProductRepo) FindLowStock(ctx context.Context, f domain.ListFilter) (domain.ListResult[*product.Product], error) {
	result := domain.ListResult[*product.Product]{
		Limit:  f.Limit,
		Offset: f.Offset,
	}

	cols := make([]string, len(r.selectCols))
	for i, c := range r.selectCols {
		cols[i] = "p." + c
	}

	q := r.Builder().
		Select(cols...).
		From(productTable + " p").
		LeftJoin(balanceTable+" b ON b.product_id = p.id AND b.variant_id = ?", id.Nil()).
		Where(squirrel.Eq{"p.deletion_mark": false}).
		Where(squirrel.Eq{"p.is_active": true}).
		Where("COALESCE(b.quantity, 0) <= p.min_stock_level").
		OrderBy("p.name ASC")

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

	if err := pgxscan.Select(ctx, r.Querier(ctx), &result.Items, sql, args...); err != nil {
		return result, fmt.Errorf("find low stock: %w", err)
	}
	result.TotalCount = int64(len(result.Items) + f.Offset)

	return result, nil
}

// ScopeIDs returns the IDs of unmarked products, optionally narrowed to one
// category. Inactive products are included only on request.
func (r *ProductRepo) ScopeIDs(ctx context.Context, categoryID *string, includeInactive bool) ([]id.ID, error) {
	q := r.Builder().
		Select("id").
		From(productTable).
		Where(squirrel.Eq{"deletion_mark": false}).
		OrderBy("id ASC")

	if !includeInactive {
		q = q.Where(squirrel.Eq{"is_active": true})
	}
	if categoryID != nil {
		q = q.Where(squirrel.Eq{"category_id": *categoryID})
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var ids []id.ID
	if err := pgxscan.Select(ctx, r.Querier(ctx), &ids, sql, args...); err != nil {
		return nil, fmt.Errorf("scope product ids: %w", err)
	}

	return ids, nil
}

// UnitCosts returns the purchase cost per product.
func (r *ProductRepo) UnitCosts(ctx context.Context, productIDs []id.ID) (map[id.ID]types.Money, error) {
	result := make(map[id.ID]types.Money, len(productIDs))
	if len(productIDs) == 0 {
		return result, nil
	}

	q := r.Builder().
		Select("id", "cost").
		From(productTable).
		Where(squirrel.Eq{"id": productIDs})

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	rows, err := r.Querier(ctx).Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("unit costs: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var pid id.ID
		var cost types.Money
		if err := rows.Scan(&pid, &cost); err != nil {
			return nil, fmt.Errorf("scan cost: %w", err)
		}
		result[pid] = cost
	}

	return result, rows.Err()
}

// GetStatistics aggregates catalog-wide counters in one query. The balance
// join is pinned to base counters.
func (r *ProductRepo) GetStatistics(ctx context.Context) (*product.Statistics, error) {
	sql := fmt.Sprintf(`
        SELECT
            COUNT(*) AS total_products,
            COUNT(*) FILTER (WHERE p.is_active) AS active_products,
            COUNT(*) FILTER (
                WHERE COALESCE(b.quantity, 0) <= p.min_stock_level
            ) AS low_stock_count,
            COALESCE(SUM(p.cost * GREATEST(COALESCE(b.quantity, 0), 0)), 0) AS total_stock_value,
            (SELECT COUNT(*) FROM %s WHERE deletion_mark = false) AS category_count
        FROM %s p
        LEFT JOIN %s b ON b.product_id = p.id AND b.variant_id = $1
        WHERE p.deletion_mark = false`, categoryTable, productTable, balanceTable)

	stats := &product.Statistics{}
	if err := pgxscan.Get(ctx, r.Querier(ctx), stats, sql, id.Nil()); err != nil {
		return nil, fmt.Errorf("get statistics: %w", err)
	}

	return stats, nil
}
