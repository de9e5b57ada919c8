package dto

import (
	"retailcore/internal/core/id"
	"retailcore/internal/core/types"
	"retailcore/internal/domain/catalogs/product"
)

// ProductResponse is the API shape of a product. Code doubles as the SKU.
type ProductResponse struct {
	CatalogResponse
	CategoryID    *string     `json:"categoryId,omitempty"`
	Barcode       *string     `json:"barcode,omitempty"`
	Description   *string     `json:"description,omitempty"`
	Price         types.Money `json:"price"`
	Cost          types.Money `json:"cost"`
	MinStockLevel int64       `json:"minStockLevel"`
	MaxStockLevel int64       `json:"maxStockLevel"`
	IsActive      bool        `json:"isActive"`
	ImageURL      *string     `json:"imageUrl,omitempty"`
}

// FromProduct maps the entity to the response DTO.
func FromProduct(p *product.Product) ProductResponse {
	return ProductResponse{
		CatalogResponse: FromCatalog(p.Catalog),
		CategoryID:      p.CategoryID,
		Barcode:         p.Barcode,
		Description:     p.Description,
		Price:           p.Price,
		Cost:            p.Cost,
		MinStockLevel:   p.MinStockLevel,
		MaxStockLevel:   p.MaxStockLevel,
		IsActive:        p.IsActive,
		ImageURL:        p.ImageURL,
	}
}

// CreateProductRequest creates a product. SKU is generated when empty.
type CreateProductRequest struct {
	SKU           string       `json:"sku"`
	Name          string       `json:"name" binding:"required"`
	CategoryID    *string      `json:"categoryId"`
	Barcode       *string      `json:"barcode"`
	Description   *string      `json:"description"`
	Price         *types.Money `json:"price"`
	Cost          *types.Money `json:"cost"`
	MinStockLevel int64        `json:"minStockLevel"`
	MaxStockLevel int64        `json:"maxStockLevel"`
	IsActive      *bool        `json:"isActive"`
	ImageURL      *string      `json:"imageUrl"`
}

// ToEntity builds a new product from the request.
func (r CreateProductRequest) ToEntity() *product.Product {
	p := product.NewProduct(r.SKU, r.Name)
	p.CategoryID = r.CategoryID
	p.Barcode = r.Barcode
	p.Description = r.Description
	if r.Price != nil {
		p.Price = *r.Price
	}
	if r.Cost != nil {
		p.Cost = *r.Cost
	}
	p.MinStockLevel = r.MinStockLevel
	p.MaxStockLevel = r.MaxStockLevel
	if r.IsActive != nil {
		p.IsActive = *r.IsActive
	}
	p.ImageURL = r.ImageURL
	return p
}

// UpdateProductRequest updates a product. Nil fields stay untouched.
type UpdateProductRequest struct {
	SKU           *string      `json:"sku"`
	Name          *string      `json:"name"`
	CategoryID    *string      `json:"categoryId"`
	Barcode       *string      `json:"barcode"`
	Description   *string      `json:"description"`
	Price         *types.Money `json:"price"`
	Cost          *types.Money `json:"cost"`
	MinStockLevel *int64       `json:"minStockLevel"`
	MaxStockLevel *int64       `json:"maxStockLevel"`
	IsActive      *bool        `json:"isActive"`
	ImageURL      *string      `json:"imageUrl"`
	Version       int          `json:"version" binding:"required,min=1"`
}

// ApplyTo overlays the request onto the existing product.
func (r UpdateProductRequest) ApplyTo(p *product.Product) {
	if r.SKU != nil {
		p.Code = *r.SKU
	}
	if r.Name != nil {
		p.Name = *r.Name
	}
	if r.CategoryID != nil {
		p.CategoryID = r.CategoryID
	}
	if r.Barcode != nil {
		p.Barcode = r.Barcode
	}
	if r.Description != nil {
		p.Description = r.Description
	}
	if r.Price != nil {
		p.Price = *r.Price
	}
	if r.Cost != nil {
		p.Cost = *r.Cost
	}
	if r.MinStockLevel != nil {
		p.MinStockLevel = *r.MinStockLevel
	}
	if r.MaxStockLevel != nil {
		p.MaxStockLevel = *r.MaxStockLevel
	}
	if r.IsActive != nil {
		p.IsActive = *r.IsActive
	}
	if r.ImageURL != nil {
		p.ImageURL = r.ImageURL
	}
	p.Version = r.Version
}

// --- Variants ---

// VariantResponse is the API shape of a product variant.
type VariantResponse struct {
	ID              string      `json:"id"`
	ProductID       string      `json:"productId"`
	Name            string      `json:"name"`
	SKU             string      `json:"sku"`
	Barcode         *string     `json:"barcode,omitempty"`
	PriceAdjustment types.Money `json:"priceAdjustment"`
	IsActive        bool        `json:"isActive"`
	Version         int         `json:"version"`
}

// FromVariant maps the entity to the response DTO.
func FromVariant(v *product.Variant) VariantResponse {
	return VariantResponse{
		ID:              v.ID.String(),
		ProductID:       v.ProductID.String(),
		Name:            v.Name,
		SKU:             v.SKU,
		Barcode:         v.Barcode,
		PriceAdjustment: v.PriceAdjustment,
		IsActive:        v.IsActive,
		Version:         v.Version,
	}
}

// CreateVariantRequest creates a variant for a product.
type CreateVariantRequest struct {
	Name            string       `json:"name" binding:"required"`
	SKU             string       `json:"sku" binding:"required"`
	Barcode         *string      `json:"barcode"`
	PriceAdjustment *types.Money `json:"priceAdjustment"`
	IsActive        *bool        `json:"isActive"`
}

// ToEntity builds a new variant from the request.
func (r CreateVariantRequest) ToEntity(productID id.ID) *product.Variant {
	v := product.NewVariant(productID, r.Name, r.SKU)
	v.Barcode = r.Barcode
	if r.PriceAdjustment != nil {
		v.PriceAdjustment = *r.PriceAdjustment
	}
	if r.IsActive != nil {
		v.IsActive = *r.IsActive
	}
	return v
}

// UpdateVariantRequest updates a variant. Nil fields stay untouched.
type UpdateVariantRequest struct {
	Name            *string      `json:"name"`
	SKU             *string      `json:"sku"`
	Barcode         *string      `json:"barcode"`
	PriceAdjustment *types.Money `json:"priceAdjustment"`
	IsActive        *bool        `json:"isActive"`
	Version         int          `json:"version" binding:"required,min=1"`
}

// ApplyTo overlays the request onto the existing variant.
func (r UpdateVariantRequest) ApplyTo(v *product.Variant) {
	if r.Name != nil {
		v.Name = *r.Name
	}
	if r.SKU != nil {
		v.SKU = *r.SKU
	}
	if r.Barcode != nil {
		v.Barcode = r.Barcode
	}
	if r.PriceAdjustment != nil {
		v.PriceAdjustment = *r.PriceAdjustment
	}
	if r.IsActive != nil {
		v.IsActive = *r.IsActive
	}
	v.Version = r.Version
}
