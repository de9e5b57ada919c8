package category

import (
	"context"
	"fmt"
	"time"

	"retailcore/internal/core/apperror"
	"retailcore/internal/core/id"
	"retailcore/internal/core/numerator"
	"retailcore/internal/core/tx"
	"retailcore/internal/domain"
)

// Service provides business logic for the Category catalog.
// Uses composition with domain.CatalogService for common CRUD operations.
type Service struct {
	*domain.CatalogService[*Category]
	repo      Repository
	numerator numerator.Generator
}

// NewService creates a new Category service.
func NewService(repo Repository, txManager tx.Manager, gen numerator.Generator) *Service {
	base := domain.NewCatalogService(domain.CatalogServiceConfig[*Category]{
		Repo:       repo,
		TxManager:  txManager,
		EntityName: "category",
	})

	svc := &Service{
		CatalogService: base,
		repo:           repo,
		numerator:      gen,
	}

	base.Hooks().On(domain.BeforeCreate, svc.prepareForCreate)
	base.Hooks().On(domain.BeforeDelete, svc.guardDelete)

	return svc
}

// prepareForCreate generates a code when none is provided.
func (s *Service) prepareForCreate(ctx context.Context, cat *Category) error {
	if cat.Code == "" {
		code, err := s.numerator.GetNextNumber(ctx, numerator.DefaultConfig("CAT"), nil, time.Now())
		if err != nil {
			return fmt.Errorf("generate code: %w", err)
		}
		cat.Code = code
	}
	return nil
}

// guardDelete refuses to delete a category that still has products.
func (s *Service) guardDelete(ctx context.Context, cat *Category) error {
	hasProducts, err := s.repo.HasProducts(ctx, cat.ID)
	if err != nil {
		return fmt.Errorf("check category products: %w", err)
	}
	if hasProducts {
		return apperror.NewConflict("category still contains products").
			WithDetail("category_id", cat.ID.String())
	}
	return nil
}

// Move reparents a category after checking for hierarchy cycles.
func (s *Service) Move(ctx context.Context, catID id.ID, newParentID *id.ID) error {
	cat, err := s.GetByID(ctx, catID)
	if err != nil {
		return err
	}

	if newParentID != nil {
		if *newParentID == catID {
			return apperror.NewValidation("category cannot be its own parent")
		}
		// Walk up from the new parent; hitting catID means a cycle.
		cursor := *newParentID
		for {
			parent, err := s.GetByID(ctx, cursor)
			if err != nil {
				return err
			}
			if parent.ParentID == nil {
				break
			}
			next, err := id.Parse(*parent.ParentID)
			if err != nil {
				return apperror.NewInternal(err).WithDetail("parent_id", *parent.ParentID)
			}
			if next == catID {
				return apperror.NewValidation("move would create a category cycle").
					WithDetail("category_id", catID.String())
			}
			cursor = next
		}
		parentStr := newParentID.String()
		cat.ParentID = &parentStr
	} else {
		cat.ParentID = nil
	}

	return s.Update(ctx, cat)
}
