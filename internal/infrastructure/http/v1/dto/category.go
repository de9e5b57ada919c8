package dto

import (
	"retailcore/internal/domain/catalogs/category"
)

// CategoryResponse is the API shape of a category.
type CategoryResponse struct {
	CatalogResponse
	Description *string `json:"description,omitempty"`
	SortOrder   int     `json:"sortOrder"`
	IsActive    bool    `json:"isActive"`
}

// FromCategory maps the entity to the response DTO.
func FromCategory(c *category.Category) CategoryResponse {
	return CategoryResponse{
		CatalogResponse: FromCatalog(c.Catalog),
		Description:     c.Description,
		SortOrder:       c.SortOrder,
		IsActive:        c.IsActive,
	}
}

// CreateCategoryRequest creates a category.
type CreateCategoryRequest struct {
	Code        string  `json:"code"`
	Name        string  `json:"name" binding:"required"`
	ParentID    *string `json:"parentId"`
	Description *string `json:"description"`
	SortOrder   int     `json:"sortOrder"`
	IsActive    *bool   `json:"isActive"`
}

// ToEntity builds a new category from the request.
func (r CreateCategoryRequest) ToEntity() *category.Category {
	c := category.NewCategory(r.Code, r.Name)
	c.ParentID = r.ParentID
	c.Description = r.Description
	c.SortOrder = r.SortOrder
	if r.IsActive != nil {
		c.IsActive = *r.IsActive
	}
	return c
}

// UpdateCategoryRequest updates a category. Nil fields stay untouched.
type UpdateCategoryRequest struct {
	Code        *string `json:"code"`
	Name        *string `json:"name"`
	ParentID    *string `json:"parentId"`
	Description *string `json:"description"`
	SortOrder   *int    `json:"sortOrder"`
	IsActive    *bool   `json:"isActive"`
	Version     int     `json:"version" binding:"required,min=1"`
}

// ApplyTo overlays the request onto the existing category.
func (r UpdateCategoryRequest) ApplyTo(c *category.Category) {
	if r.Code != nil {
		c.Code = *r.Code
	}
	if r.Name != nil {
		c.Name = *r.Name
	}
	if r.ParentID != nil {
		c.SetParent(*r.ParentID)
	}
	if r.Description != nil {
		c.Description = r.Description
	}
	if r.SortOrder != nil {
		c.SortOrder = *r.SortOrder
	}
	if r.IsActive != nil {
		c.IsActive = *r.IsActive
	}
	c.Version = r.Version
}
