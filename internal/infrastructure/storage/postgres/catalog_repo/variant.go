package catalog_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"retailcore/internal/core/apperror"
	"retailcore/internal/core/id"
	"retailcore/internal/domain/catalogs/product"
	"retailcore/internal/infrastructure/storage/postgres"
)

// VariantRepo implements product.VariantRepository.
type VariantRepo struct {
	*BaseCatalogRepo[*product.Variant]
}

// NewVariantRepo creates a new variant repository.
func NewVariantRepo(txManager *postgres.TxManager) *VariantRepo {
	return &VariantRepo{
		BaseCatalogRepo: NewBaseCatalogRepo(
			txManager,
			variantTable,
			postgres.ExtractDBColumns[product.Variant](),
			func() *product.Variant { return &product.Variant{} },
		),
	}
}

// ListByProduct returns all live variants of a product.
func (r *VariantRepo) ListByProduct(ctx context.Context, productID id.ID) ([]*product.Variant, error) {
	q := r.baseSelect().
		Where(squirrel.Eq{"product_id": productID}).
		Where(squirrel.Eq{"deletion_mark": false}).
		OrderBy("name ASC")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var items []*product.Variant
	if err := pgxscan.Select(ctx, r.Querier(ctx), &items, sql, args...); err != nil {
		return nil, fmt.Errorf("list variants: %w", err)
	}

	return items, nil
}

// FindByBarcode retrieves a variant by barcode. Scanned variant codes
// resolve through here when no product carries the barcode.
func (r *VariantRepo) FindByBarcode(ctx context.Context, barcode string) (*product.Variant, error) {
	q := r.baseSelect().
		Where(squirrel.Eq{"barcode": barcode}).
		Where(squirrel.Eq{"deletion_mark": false}).
		Limit(1)

	item, err := r.FindOne(ctx, q)
	if err != nil {
		if apperror.IsNotFound(err) {
			return nil, apperror.NewNotFound("variant", barcode)
		}
		return nil, err
	}
	return item, nil
}

// FindBySKU retrieves a variant by SKU.
func (r *VariantRepo) FindBySKU(ctx context.Context, sku string) (*product.Variant, error) {
	q := r.baseSelect().
		Where(squirrel.Eq{"sku": sku}).
		Where(squirrel.Eq{"deletion_mark": false}).
		Limit(1)

	item, err := r.FindOne(ctx, q)
	if err != nil {
		if apperror.IsNotFound(err) {
			return nil, apperror.NewNotFound("variant", sku)
		}
		return nil, err
	}
	return item, nil
}
