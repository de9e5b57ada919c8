package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"retailcore/internal/core/apperror"
	"retailcore/internal/domain"
	"retailcore/internal/domain/catalogs/product"
	"retailcore/internal/infrastructure/http/v1/dto"
)

// ProductHTTPHandler is a specialized catalog handler for products.
type ProductHTTPHandler = CatalogHandler[*product.Product, dto.CreateProductRequest, dto.UpdateProductRequest]

// ProductHandler wraps the generic catalog handler with product-specific
// operations: barcode lookup, low-stock queries, statistics and variants.
type ProductHandler struct {
	*ProductHTTPHandler
	service *product.Service
}

// NewProductHandler creates a product HTTP handler.
func NewProductHandler(base *BaseHandler, service *product.Service) *ProductHandler {
	h := NewCatalogHandler(base, CatalogHandlerConfig[*product.Product, dto.CreateProductRequest, dto.UpdateProductRequest]{
		Service:    service.CatalogService,
		EntityName: "product",
		MapCreateDTO: func(req dto.CreateProductRequest) *product.Product {
			return req.ToEntity()
		},
		MapUpdateDTO: func(req dto.UpdateProductRequest, existing *product.Product) *product.Product {
			req.ApplyTo(existing)
			return existing
		},
		MapToDTO: func(p *product.Product) any {
			return dto.FromProduct(p)
		},
	})
	return &ProductHandler{ProductHTTPHandler: h, service: service}
}

// FindByBarcode handles GET /products/barcode/:barcode - scanner lookup.
func (h *ProductHandler) FindByBarcode(c *gin.Context) {
	ctx := c.Request.Context()

	barcode := c.Param("barcode")
	if barcode == "" {
		h.Error(c, apperror.NewValidation("barcode is required"))
		return
	}

	p, err := h.service.FindByBarcode(ctx, barcode)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.FromProduct(p))
}

// GenerateBarcode handles POST /products/:id/barcode - assign a generated
// in-store barcode.
func (h *ProductHandler) GenerateBarcode(c *gin.Context) {
	ctx := c.Request.Context()

	productID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	p, err := h.service.GenerateBarcode(ctx, productID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromProduct(p))
}

// LowStock handles GET /products/low-stock - products at or below their
// minimum stock level.
func (h *ProductHandler) LowStock(c *gin.Context) {
	ctx := c.Request.Context()

	filter := domain.DefaultListFilter()
	filter.Limit = h.ParseIntQuery(c, "limit", 50)
	filter.Offset = h.ParseIntQuery(c, "offset", 0)

	result, err := h.service.FindLowStock(ctx, filter)
	if err != nil {
		h.Error(c, err)
		return
	}

	items := make([]any, len(result.Items))
	for i, p := range result.Items {
		items[i] = dto.FromProduct(p)
	}

	c.JSON(http.StatusOK, dto.ListResponse{
		Items:      items,
		TotalCount: result.TotalCount,
		Limit:      result.Limit,
		Offset:     result.Offset,
	})
}

// Statistics handles GET /products/statistics - catalog-wide aggregates.
func (h *ProductHandler) Statistics(c *gin.Context) {
	ctx := c.Request.Context()

	stats, err := h.service.GetStatistics(ctx)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}

// ListVariants handles GET /products/:id/variants.
func (h *ProductHandler) ListVariants(c *gin.Context) {
	ctx := c.Request.Context()

	productID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	variants, err := h.service.ListVariants(ctx, productID)
	if err != nil {
		h.Error(c, err)
		return
	}

	items := make([]dto.VariantResponse, len(variants))
	for i, v := range variants {
		items[i] = dto.FromVariant(v)
	}

	c.JSON(http.StatusOK, gin.H{"items": items})
}

// AddVariant handles POST /products/:id/variants.
func (h *ProductHandler) AddVariant(c *gin.Context) {
	ctx := c.Request.Context()

	productID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	var req dto.CreateVariantRequest
	if !h.BindJSON(c, &req) {
		return
	}

	v := req.ToEntity(productID)
	if err := h.service.AddVariant(ctx, v); err != nil {
		h.Error(c, err)
		return
	}

	h.CompleteIdempotency(c, http.StatusCreated, "application/json", dto.FromVariant(v))
	c.JSON(http.StatusCreated, dto.FromVariant(v))
}

// UpdateVariant handles PUT /products/:id/variants/:variantId.
func (h *ProductHandler) UpdateVariant(c *gin.Context) {
	ctx := c.Request.Context()

	productID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}
	variantID, ok := h.ParseID(c, "variantId")
	if !ok {
		return
	}

	var req dto.UpdateVariantRequest
	if !h.BindJSON(c, &req) {
		return
	}

	variants, err := h.service.ListVariants(ctx, productID)
	if err != nil {
		h.Error(c, err)
		return
	}

	var existing *product.Variant
	for _, v := range variants {
		if v.ID == variantID {
			existing = v
			break
		}
	}
	if existing == nil {
		h.Error(c, apperror.NewNotFound("variant", variantID.String()))
		return
	}

	req.ApplyTo(existing)
	if err := h.service.UpdateVariant(ctx, existing); err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromVariant(existing))
}

// RemoveVariant handles DELETE /products/:id/variants/:variantId.
func (h *ProductHandler) RemoveVariant(c *gin.Context) {
	ctx := c.Request.Context()

	variantID, ok := h.ParseID(c, "variantId")
	if !ok {
		return
	}

	if err := h.service.RemoveVariant(ctx, variantID); err != nil {
		h.Error(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
