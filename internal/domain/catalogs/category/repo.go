package category

import (
	"context"

	"retailcore/internal/core/id"
	"retailcore/internal/domain"
)

// Repository defines the interface for Category persistence.
type Repository interface {
	domain.CatalogRepository[*Category]

	// GetForUpdate retrieves category with row lock.
	GetForUpdate(ctx context.Context, id id.ID) (*Category, error)

	// HasProducts reports whether any product references the category.
	HasProducts(ctx context.Context, id id.ID) (bool, error)
}
