package product

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"retailcore/internal/core/apperror"
	"retailcore/internal/core/id"
	"retailcore/internal/core/numerator"
	"retailcore/internal/core/types"
	"retailcore/internal/domain"
)

// Mock objects

type mockTxManager struct{}

func (m *mockTxManager) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type mockProductRepo struct {
	products  map[id.ID]*Product
	byBarcode map[string]*Product
}

func newMockProductRepo() *mockProductRepo {
	return &mockProductRepo{
		products:  make(map[id.ID]*Product),
		byBarcode: make(map[string]*Product),
	}
}

func (m *mockProductRepo) add(p *Product) {
	m.products[p.ID] = p
	if p.Barcode != nil {
		m.byBarcode[*p.Barcode] = p
	}
}

func (m *mockProductRepo) Create(ctx context.Context, p *Product) error {
	m.add(p)
	return nil
}

func (m *mockProductRepo) GetByID(ctx context.Context, productID id.ID) (*Product, error) {
	p, ok := m.products[productID]
	if !ok {
		return nil, apperror.NewNotFound("product", productID.String())
	}
	return p, nil
}

func (m *mockProductRepo) GetByCode(ctx context.Context, code string) (*Product, error) {
	for _, p := range m.products {
		if p.Code == code {
			return p, nil
		}
	}
	return nil, apperror.NewNotFound("product", code)
}

func (m *mockProductRepo) Update(ctx context.Context, p *Product) error {
	m.add(p)
	return nil
}

func (m *mockProductRepo) Delete(ctx context.Context, productID id.ID) error {
	delete(m.products, productID)
	return nil
}

func (m *mockProductRepo) SetDeletionMark(ctx context.Context, productID id.ID, marked bool) error {
	return nil
}

func (m *mockProductRepo) List(ctx context.Context, filter domain.ListFilter) (domain.ListResult[*Product], error) {
	return domain.ListResult[*Product]{}, nil
}

func (m *mockProductRepo) Exists(ctx context.Context, productID id.ID) (bool, error) {
	_, ok := m.products[productID]
	return ok, nil
}

func (m *mockProductRepo) ExistsByCode(ctx context.Context, code string) (bool, error) {
	_, err := m.GetByCode(ctx, code)
	return err == nil, nil
}

func (m *mockProductRepo) FindByBarcode(ctx context.Context, barcode string) (*Product, error) {
	p, ok := m.byBarcode[barcode]
	if !ok {
		return nil, apperror.NewNotFound("product", barcode)
	}
	return p, nil
}

func (m *mockProductRepo) GetForUpdate(ctx context.Context, productID id.ID) (*Product, error) {
	return m.GetByID(ctx, productID)
}

func (m *mockProductRepo) FindLowStock(ctx context.Context, filter domain.ListFilter) (domain.ListResult[*Product], error) {
	return domain.ListResult[*Product]{}, nil
}

func (m *mockProductRepo) BarcodeExists(ctx context.Context, barcode string) (bool, error) {
	_, ok := m.byBarcode[barcode]
	return ok, nil
}

func (m *mockProductRepo) GetStatistics(ctx context.Context) (*Statistics, error) {
	return &Statistics{}, nil
}

func (m *mockProductRepo) ScopeIDs(ctx context.Context, categoryID *string, includeInactive bool) ([]id.ID, error) {
	var ids []id.ID
	for _, p := range m.products {
		if !includeInactive && !p.IsActive {
			continue
		}
		ids = append(ids, p.ID)
	}
	return ids, nil
}

func (m *mockProductRepo) UnitCosts(ctx context.Context, productIDs []id.ID) (map[id.ID]types.Money, error) {
	out := make(map[id.ID]types.Money, len(productIDs))
	for _, pid := range productIDs {
		if p, ok := m.products[pid]; ok {
			out[pid] = p.Cost
		}
	}
	return out, nil
}

type mockVariantRepo struct {
	variants  map[id.ID]*Variant
	byBarcode map[string]*Variant
}

func newMockVariantRepo() *mockVariantRepo {
	return &mockVariantRepo{
		variants:  make(map[id.ID]*Variant),
		byBarcode: make(map[string]*Variant),
	}
}

func (m *mockVariantRepo) add(v *Variant) {
	m.variants[v.ID] = v
	if v.Barcode != nil {
		m.byBarcode[*v.Barcode] = v
	}
}

func (m *mockVariantRepo) Create(ctx context.Context, v *Variant) error {
	m.add(v)
	return nil
}

func (m *mockVariantRepo) GetByID(ctx context.Context, variantID id.ID) (*Variant, error) {
	v, ok := m.variants[variantID]
	if !ok {
		return nil, apperror.NewNotFound("variant", variantID.String())
	}
	return v, nil
}

func (m *mockVariantRepo) Update(ctx context.Context, v *Variant) error {
	m.add(v)
	return nil
}

func (m *mockVariantRepo) SetDeletionMark(ctx context.Context, variantID id.ID, marked bool) error {
	return nil
}

func (m *mockVariantRepo) ListByProduct(ctx context.Context, productID id.ID) ([]*Variant, error) {
	var out []*Variant
	for _, v := range m.variants {
		if v.ProductID == productID {
			out = append(out, v)
		}
	}
	return out, nil
}

func (m *mockVariantRepo) FindBySKU(ctx context.Context, sku string) (*Variant, error) {
	for _, v := range m.variants {
		if v.SKU == sku {
			return v, nil
		}
	}
	return nil, apperror.NewNotFound("variant", sku)
}

func (m *mockVariantRepo) FindByBarcode(ctx context.Context, barcode string) (*Variant, error) {
	v, ok := m.byBarcode[barcode]
	if !ok {
		return nil, apperror.NewNotFound("variant", barcode)
	}
	return v, nil
}

func newTestService() (*Service, *mockProductRepo, *mockVariantRepo) {
	repo := newMockProductRepo()
	variants := newMockVariantRepo()
	svc := NewService(repo, variants, &mockTxManager{}, &numerator.MockGenerator{})
	return svc, repo, variants
}

func strptr(s string) *string { return &s }

func TestFindByBarcode_ProductHit(t *testing.T) {
	svc, repo, _ := newTestService()
	ctx := context.Background()

	p := NewProduct("SKU-1", "Widget")
	p.Barcode = strptr("4006381333931")
	repo.add(p)

	got, err := svc.FindByBarcode(ctx, "4006381333931")
	require.NoError(t, err)
	assert.Equal(t, p.ID, got.ID)
}

func TestFindByBarcode_FallsBackToVariant(t *testing.T) {
	svc, repo, variants := newTestService()
	ctx := context.Background()

	p := NewProduct("SKU-1", "Widget")
	repo.add(p)

	v := NewVariant(p.ID, "Widget L", "SKU-1-L")
	v.Barcode = strptr("2001234567890")
	variants.add(v)

	// The barcode belongs to the variant only; the scan still resolves to
	// the parent product.
	got, err := svc.FindByBarcode(ctx, "2001234567890")
	require.NoError(t, err)
	assert.Equal(t, p.ID, got.ID)
}

func TestFindByBarcode_UnknownCode(t *testing.T) {
	svc, _, _ := newTestService()

	_, err := svc.FindByBarcode(context.Background(), "0000000000000")
	require.Error(t, err)
	assert.True(t, apperror.IsNotFound(err))
}
