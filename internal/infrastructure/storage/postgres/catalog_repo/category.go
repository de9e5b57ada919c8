package catalog_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"retailcore/internal/core/id"
	"retailcore/internal/domain/catalogs/category"
	"retailcore/internal/infrastructure/storage/postgres"
)

const categoryTable = "cat_categories"

// CategoryRepo implements category.Repository.
type CategoryRepo struct {
	*BaseCatalogRepo[*category.Category]
}

// NewCategoryRepo creates a new category repository.
func NewCategoryRepo(txManager *postgres.TxManager) *CategoryRepo {
	return &CategoryRepo{
		BaseCatalogRepo: NewBaseCatalogRepo(
			txManager,
			categoryTable,
			postgres.ExtractDBColumns[category.Category](),
			func() *category.Category { return &category.Category{} },
		),
	}
}

// HasProducts reports whether any live product references the category.
func (r *CategoryRepo) HasProducts(ctx context.Context, categoryID id.ID) (bool, error) {
	q := r.Builder().
		Select("1").
		From(productTable).
		Where(squirrel.Eq{"category_id": categoryID}).
		Where(squirrel.Eq{"deletion_mark": false}).
		Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return false, fmt.Errorf("build query: %w", err)
	}

	var exists int
	err = r.Querier(ctx).QueryRow(ctx, sql, args...).Scan(&exists)
	if err == pgx.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("has products: %w", err)
	}

	return true, nil
}
