package product

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"retailcore/internal/core/apperror"
	"retailcore/internal/core/id"
	"retailcore/internal/core/numerator"
	"retailcore/internal/core/tx"
	"retailcore/internal/core/types"
	"retailcore/internal/domain"
)

// internalBarcodePrefix marks store-generated barcodes. The "200" range is
// reserved for in-store use in EAN-13, so generated codes never collide with
// manufacturer codes.
const internalBarcodePrefix = "200"

// Service provides business logic for the Product catalog.
// Uses composition with domain.CatalogService for common CRUD operations.
type Service struct {
	*domain.CatalogService[*Product]
	repo      Repository
	variants  VariantRepository
	txManager tx.Manager
	numerator numerator.Generator
}

// NewService creates a new Product service.
func NewService(
	repo Repository,
	variants VariantRepository,
	txManager tx.Manager,
	gen numerator.Generator,
) *Service {
	base := domain.NewCatalogService(domain.CatalogServiceConfig[*Product]{
		Repo:       repo,
		TxManager:  txManager,
		EntityName: "product",
	})

	svc := &Service{
		CatalogService: base,
		repo:           repo,
		variants:       variants,
		txManager:      txManager,
		numerator:      gen,
	}

	base.Hooks().On(domain.BeforeCreate, svc.prepareForCreate)
	base.Hooks().On(domain.BeforeUpdate, svc.checkBarcodeUnique)

	return svc
}

// prepareForCreate handles SKU generation and barcode uniqueness.
func (s *Service) prepareForCreate(ctx context.Context, p *Product) error {
	if p.Code == "" {
		code, err := s.numerator.GetNextNumber(ctx, numerator.DefaultConfig("PRD"), nil, time.Now())
		if err != nil {
			return fmt.Errorf("generate sku: %w", err)
		}
		p.Code = code
	}

	return s.checkBarcodeUnique(ctx, p)
}

// checkBarcodeUnique rejects a barcode already assigned to another product.
func (s *Service) checkBarcodeUnique(ctx context.Context, p *Product) error {
	if p.Barcode == nil || *p.Barcode == "" {
		return nil
	}

	existing, err := s.repo.FindByBarcode(ctx, *p.Barcode)
	if err != nil {
		if apperror.IsNotFound(err) {
			return nil
		}
		return err
	}
	if existing.ID != p.ID {
		return apperror.NewDuplicate("product", "barcode", *p.Barcode)
	}
	return nil
}

// FindByBarcode retrieves a product by barcode, checking variants as a
// fallback so scanned variant codes resolve to the parent product.
func (s *Service) FindByBarcode(ctx context.Context, barcode string) (*Product, error) {
	p, err := s.repo.FindByBarcode(ctx, barcode)
	if err == nil {
		return p, nil
	}
	if !apperror.IsNotFound(err) {
		return nil, err
	}

	v, verr := s.variants.FindByBarcode(ctx, barcode)
	if verr != nil {
		if apperror.IsNotFound(verr) {
			return nil, apperror.NewNotFound("product", barcode)
		}
		return nil, verr
	}
	return s.GetByID(ctx, v.ProductID)
}

// GenerateBarcode assigns a fresh store-internal barcode to the product.
// Format: "200" followed by 9 random digits.
func (s *Service) GenerateBarcode(ctx context.Context, productID id.ID) (*Product, error) {
	p, err := s.GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}

	const maxAttempts = 10
	var barcode string
	for attempt := 0; attempt < maxAttempts; attempt++ {
		barcode = fmt.Sprintf("%s%09d", internalBarcodePrefix, rand.Intn(1_000_000_000))
		exists, err := s.repo.BarcodeExists(ctx, barcode)
		if err != nil {
			return nil, fmt.Errorf("check barcode: %w", err)
		}
		if !exists {
			break
		}
		barcode = ""
	}
	if barcode == "" {
		return nil, apperror.NewInternal(fmt.Errorf("no free barcode after %d attempts", maxAttempts))
	}

	p.Barcode = &barcode
	if err := s.Update(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// FindLowStock retrieves products at or below their minimum stock level.
func (s *Service) FindLowStock(ctx context.Context, filter domain.ListFilter) (domain.ListResult[*Product], error) {
	return s.repo.FindLowStock(ctx, filter)
}

// GetStatistics aggregates catalog-wide counters.
func (s *Service) GetStatistics(ctx context.Context) (*Statistics, error) {
	return s.repo.GetStatistics(ctx)
}

// ScopeIDs returns the IDs of products in scope, optionally narrowed to one
// category. Stock count sessions use this to snapshot their scope; inactive
// products join the scope only on request.
func (s *Service) ScopeIDs(ctx context.Context, categoryID *string, includeInactive bool) ([]id.ID, error) {
	return s.repo.ScopeIDs(ctx, categoryID, includeInactive)
}

// UnitCosts returns the current purchase cost per product, used by counting
// sessions to value their snapshots.
func (s *Service) UnitCosts(ctx context.Context, productIDs []id.ID) (map[id.ID]types.Money, error) {
	return s.repo.UnitCosts(ctx, productIDs)
}

// --- Variants ---

// AddVariant creates a variant for a product.
func (s *Service) AddVariant(ctx context.Context, v *Variant) error {
	if err := v.Validate(ctx); err != nil {
		return err
	}

	// Parent must exist and not be deleted
	if _, err := s.GetByID(ctx, v.ProductID); err != nil {
		return err
	}

	if existing, err := s.variants.FindBySKU(ctx, v.SKU); err == nil && existing.ID != v.ID {
		return apperror.NewDuplicate("variant", "sku", v.SKU)
	}

	return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		return s.variants.Create(ctx, v)
	})
}

// UpdateVariant updates a variant.
func (s *Service) UpdateVariant(ctx context.Context, v *Variant) error {
	if err := v.Validate(ctx); err != nil {
		return err
	}
	return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		return s.variants.Update(ctx, v)
	})
}

// RemoveVariant soft-deletes a variant.
func (s *Service) RemoveVariant(ctx context.Context, variantID id.ID) error {
	return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		return s.variants.SetDeletionMark(ctx, variantID, true)
	})
}

// ListVariants lists active variants of a product.
func (s *Service) ListVariants(ctx context.Context, productID id.ID) ([]*Variant, error) {
	return s.variants.ListByProduct(ctx, productID)
}
