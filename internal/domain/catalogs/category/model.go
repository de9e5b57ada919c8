// Package category provides the product Category catalog.
// Categories form a hierarchy via ParentID.
package category

import (
	"context"

	"retailcore/internal/core/entity"
)

// Category groups products for navigation and reporting.
type Category struct {
	entity.Catalog

	// Description is an optional long description
	Description *string `db:"description" json:"description,omitempty"`

	// SortOrder controls display position among siblings
	SortOrder int `db:"sort_order" json:"sortOrder"`

	// IsActive hides the category from storefront listings when false
	IsActive bool `db:"is_active" json:"isActive"`
}

// NewCategory creates a new Category with required fields.
func NewCategory(code, name string) *Category {
	return &Category{
		Catalog:  entity.NewCatalog(code, name),
		IsActive: true,
	}
}

// Validate implements entity.Validatable interface.
func (c *Category) Validate(ctx context.Context) error {
	return c.Catalog.Validate(ctx)
}
