package handlers

import (
	"github.com/gin-gonic/gin"

	"retailcore/internal/core/id"
	"retailcore/internal/domain/catalogs/category"
	"retailcore/internal/infrastructure/http/v1/dto"
)

// CategoryHTTPHandler is a specialized catalog handler for categories.
type CategoryHTTPHandler = CatalogHandler[*category.Category, dto.CreateCategoryRequest, dto.UpdateCategoryRequest]

// CategoryHandler wraps the generic catalog handler with category-specific
// operations.
type CategoryHandler struct {
	*CategoryHTTPHandler
	service *category.Service
}

// NewCategoryHandler creates a category HTTP handler.
func NewCategoryHandler(base *BaseHandler, service *category.Service) *CategoryHandler {
	h := NewCatalogHandler(base, CatalogHandlerConfig[*category.Category, dto.CreateCategoryRequest, dto.UpdateCategoryRequest]{
		Service:    service.CatalogService,
		EntityName: "category",
		MapCreateDTO: func(req dto.CreateCategoryRequest) *category.Category {
			return req.ToEntity()
		},
		MapUpdateDTO: func(req dto.UpdateCategoryRequest, existing *category.Category) *category.Category {
			req.ApplyTo(existing)
			return existing
		},
		MapToDTO: func(c *category.Category) any {
			return dto.FromCategory(c)
		},
	})
	return &CategoryHandler{CategoryHTTPHandler: h, service: service}
}

// MoveCategoryRequest changes a category's parent.
type MoveCategoryRequest struct {
	ParentID *string `json:"parentId"`
}

// Move handles POST /categories/:id/move - reparent a category.
func (h *CategoryHandler) Move(c *gin.Context) {
	ctx := c.Request.Context()

	categoryID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	var req MoveCategoryRequest
	if !h.BindJSON(c, &req) {
		return
	}

	var parentID *id.ID
	if req.ParentID != nil && *req.ParentID != "" {
		parsed, err := id.Parse(*req.ParentID)
		if err != nil {
			h.Error(c, err)
			return
		}
		parentID = &parsed
	}

	if err := h.service.Move(ctx, categoryID, parentID); err != nil {
		h.Error(c, err)
		return
	}

	h.Success(c, "category moved")
}
