package product

import (
	"context"

	"retailcore/internal/core/id"
	"retailcore/internal/core/types"
	"retailcore/internal/domain"
)

// Repository defines the interface for Product persistence.
type Repository interface {
	domain.CatalogRepository[*Product]

	// FindByBarcode retrieves product by barcode.
	FindByBarcode(ctx context.Context, barcode string) (*Product, error)

	// GetForUpdate retrieves product with row lock.
	GetForUpdate(ctx context.Context, id id.ID) (*Product, error)

	// FindLowStock retrieves products whose on-hand quantity is at or below
	// their minimum stock level.
	FindLowStock(ctx context.Context, filter domain.ListFilter) (domain.ListResult[*Product], error)

	// BarcodeExists checks barcode uniqueness across products and variants.
	BarcodeExists(ctx context.Context, barcode string) (bool, error)

	// GetStatistics aggregates catalog-wide counters.
	GetStatistics(ctx context.Context) (*Statistics, error)

	// ScopeIDs returns the IDs of unmarked products, optionally narrowed to
	// one category. Inactive products are included only on request.
	ScopeIDs(ctx context.Context, categoryID *string, includeInactive bool) ([]id.ID, error)

	// UnitCosts returns the purchase cost per product.
	UnitCosts(ctx context.Context, productIDs []id.ID) (map[id.ID]types.Money, error)
}

// VariantRepository defines the interface for Variant persistence.
type VariantRepository interface {
	Create(ctx context.Context, v *Variant) error
	GetByID(ctx context.Context, id id.ID) (*Variant, error)
	Update(ctx context.Context, v *Variant) error
	SetDeletionMark(ctx context.Context, id id.ID, marked bool) error
	ListByProduct(ctx context.Context, productID id.ID) ([]*Variant, error)
	FindBySKU(ctx context.Context, sku string) (*Variant, error)
	FindByBarcode(ctx context.Context, barcode string) (*Variant, error)
}

// Statistics holds catalog-wide aggregate counters.
type Statistics struct {
	TotalProducts   int64       `db:"total_products" json:"totalProducts"`
	ActiveProducts  int64       `db:"active_products" json:"activeProducts"`
	LowStockCount   int64       `db:"low_stock_count" json:"lowStockCount"`
	TotalStockValue types.Money `db:"total_stock_value" json:"totalStockValue"`
	CategoryCount   int64       `db:"category_count" json:"categoryCount"`
}
