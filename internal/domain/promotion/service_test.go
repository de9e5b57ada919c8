package promotion

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"retailcore/internal/core/apperror"
	"retailcore/internal/core/id"
	"retailcore/internal/core/types"
	"retailcore/internal/domain"
)

// Mock objects

type mockTxManager struct{}

func (m *mockTxManager) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type mockRepo struct {
	promotions map[id.ID]*Promotion
	byCode     map[string]*Promotion
	products   map[id.ID][]ProductRef
	usages     []Usage
}

func newMockRepo() *mockRepo {
	return &mockRepo{
		promotions: make(map[id.ID]*Promotion),
		byCode:     make(map[string]*Promotion),
		products:   make(map[id.ID][]ProductRef),
	}
}

func (m *mockRepo) add(p *Promotion) {
	m.promotions[p.ID] = p
	if p.PromoCode != nil {
		m.byCode[*p.PromoCode] = p
	}
}

func (m *mockRepo) Create(ctx context.Context, p *Promotion) error {
	m.add(p)
	return nil
}

func (m *mockRepo) GetByID(ctx context.Context, promotionID id.ID) (*Promotion, error) {
	p, ok := m.promotions[promotionID]
	if !ok {
		return nil, apperror.NewNotFound("promotion", promotionID.String())
	}
	return p, nil
}

func (m *mockRepo) Update(ctx context.Context, p *Promotion) error {
	m.add(p)
	return nil
}

func (m *mockRepo) SetDeletionMark(ctx context.Context, promotionID id.ID, mark bool) error {
	if p, ok := m.promotions[promotionID]; ok {
		p.DeletionMark = mark
	}
	return nil
}

func (m *mockRepo) List(ctx context.Context, filter ListFilter) (domain.ListResult[*Promotion], error) {
	return domain.ListResult[*Promotion]{}, nil
}

func (m *mockRepo) GetByPromoCode(ctx context.Context, code string) (*Promotion, error) {
	p, ok := m.byCode[code]
	if !ok {
		return nil, apperror.NewNotFound("promotion", code)
	}
	return p, nil
}

func (m *mockRepo) PromoCodeExists(ctx context.Context, code string, excludeID *id.ID) (bool, error) {
	p, ok := m.byCode[code]
	if !ok {
		return false, nil
	}
	if excludeID != nil && p.ID == *excludeID {
		return false, nil
	}
	return true, nil
}

func (m *mockRepo) TransitionStatus(ctx context.Context, promotionID id.ID, from, to Status) (bool, error) {
	p, ok := m.promotions[promotionID]
	if !ok || p.Status != from {
		return false, nil
	}
	p.Status = to
	return true, nil
}

func (m *mockRepo) ExpireOverdue(ctx context.Context, now time.Time) (int64, error) {
	var n int64
	for _, p := range m.promotions {
		if p.Status == StatusActive && !now.Before(p.EndDate) {
			p.Status = StatusExpired
			n++
		}
	}
	return n, nil
}

func (m *mockRepo) ReplaceProducts(ctx context.Context, promotionID id.ID, refs []ProductRef) error {
	m.products[promotionID] = refs
	return nil
}

func (m *mockRepo) ListProducts(ctx context.Context, promotionID id.ID) ([]ProductRef, error) {
	return m.products[promotionID], nil
}

func (m *mockRepo) HasProduct(ctx context.Context, promotionID, productID id.ID, variantID *id.ID) (bool, error) {
	for _, ref := range m.products[promotionID] {
		if ref.ProductID != productID {
			continue
		}
		if ref.VariantID == nil && variantID == nil {
			return true, nil
		}
		if ref.VariantID != nil && variantID != nil && *ref.VariantID == *variantID {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockRepo) InsertUsage(ctx context.Context, u Usage) error {
	m.usages = append(m.usages, u)
	return nil
}

func (m *mockRepo) GetUsageStats(ctx context.Context, promotionID id.ID) (UsageStats, error) {
	stats := UsageStats{PromotionID: promotionID, TotalDiscount: types.Zero()}
	for _, u := range m.usages {
		if u.PromotionID == promotionID {
			stats.TimesUsed++
			stats.TotalDiscount = stats.TotalDiscount.Add(u.DiscountAmount)
		}
	}
	return stats, nil
}

func (m *mockRepo) ListUsage(ctx context.Context, promotionID id.ID, limit, offset uint64) ([]Usage, error) {
	return m.usages, nil
}

func newTestService(now time.Time) (*Service, *mockRepo) {
	repo := newMockRepo()
	svc := NewService(repo, &mockTxManager{})
	svc.now = func() time.Time { return now }
	return svc, repo
}

func activePercentPromo(now time.Time, pct string) *Promotion {
	p := New("Test Promo", TypePercentage, now.Add(-time.Hour), now.Add(time.Hour))
	v := types.MustMoney(pct)
	p.DiscountPercentage = &v
	p.Status = StatusActive
	p.ApplyToAllProducts = true
	return p
}

func TestCalculateDiscount_MissingPromotionIsZero(t *testing.T) {
	now := time.Now()
	svc, _ := newTestService(now)

	line := Line{ProductID: id.New(), Quantity: 1, UnitPrice: types.MustMoney("10.00")}
	discount, err := svc.CalculateDiscount(context.Background(), id.New(), line)
	require.NoError(t, err)
	assert.True(t, discount.IsZero())
}

func TestCalculateDiscount_OutsideWindowIsZero(t *testing.T) {
	now := time.Now()
	svc, repo := newTestService(now)

	p := activePercentPromo(now, "10")
	p.EndDate = now.Add(-time.Minute)
	repo.add(p)

	line := Line{ProductID: id.New(), Quantity: 1, UnitPrice: types.MustMoney("10.00")}
	discount, err := svc.CalculateDiscount(context.Background(), p.ID, line)
	require.NoError(t, err)
	assert.True(t, discount.IsZero())
}

func TestCalculateDiscount_MinimumPurchaseGate(t *testing.T) {
	now := time.Now()
	svc, repo := newTestService(now)

	p := activePercentPromo(now, "10")
	minPurchase := types.MustMoney("50.00")
	p.MinimumPurchaseAmount = &minPurchase
	repo.add(p)

	line := Line{
		ProductID: id.New(),
		Quantity:  2,
		UnitPrice: types.MustMoney("10.00"),
		SaleTotal: types.MustMoney("40.00"),
	}

	discount, err := svc.CalculateDiscount(context.Background(), p.ID, line)
	require.NoError(t, err)
	assert.True(t, discount.IsZero(), "below minimum purchase")

	line.SaleTotal = types.MustMoney("50.00")
	discount, err = svc.CalculateDiscount(context.Background(), p.ID, line)
	require.NoError(t, err)
	assert.True(t, types.MustMoney("2.00").Equal(discount), "got %s", discount)
}

func TestCanApply_ProductListMembership(t *testing.T) {
	now := time.Now()
	svc, repo := newTestService(now)

	covered := id.New()
	other := id.New()
	variantID := id.New()

	p := activePercentPromo(now, "10")
	p.ApplyToAllProducts = false
	repo.add(p)
	repo.products[p.ID] = []ProductRef{
		{PromotionID: p.ID, ProductID: covered},
	}

	ctx := context.Background()

	ok, err := svc.CanApply(ctx, p.ID, Line{ProductID: covered, Quantity: 1, UnitPrice: types.MustMoney("1.00")})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = svc.CanApply(ctx, p.ID, Line{ProductID: other, Quantity: 1, UnitPrice: types.MustMoney("1.00")})
	require.NoError(t, err)
	assert.False(t, ok)

	// A base-product entry does not cover variants
	ok, err = svc.CanApply(ctx, p.ID, Line{ProductID: covered, VariantID: &variantID, Quantity: 1, UnitPrice: types.MustMoney("1.00")})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestValidatePromoCode(t *testing.T) {
	now := time.Now()
	svc, repo := newTestService(now)
	ctx := context.Background()

	code := "SPRING26"
	p := activePercentPromo(now, "10")
	p.PromoCode = &code
	p.RequirePromoCode = true
	repo.add(p)

	got, err := svc.ValidatePromoCode(ctx, code)
	require.NoError(t, err)
	assert.Equal(t, p.ID, got.ID)

	// Matching is case-sensitive
	_, err = svc.ValidatePromoCode(ctx, "spring26")
	assert.Error(t, err)

	_, err = svc.ValidatePromoCode(ctx, "")
	assert.Error(t, err)

	p.Status = StatusPaused
	_, err = svc.ValidatePromoCode(ctx, code)
	assert.Error(t, err)
}

func TestTransitions(t *testing.T) {
	now := time.Now()
	svc, repo := newTestService(now)
	ctx := context.Background()

	p := activePercentPromo(now, "10")
	p.Status = StatusDraft
	repo.add(p)

	got, err := svc.Activate(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusActive, got.Status)

	got, err = svc.Pause(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusPaused, got.Status)

	got, err = svc.Cancel(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, got.Status)

	// Cancelled is terminal
	_, err = svc.Activate(ctx, p.ID)
	assert.Error(t, err)
}

func TestDelete_CancelsAndMarks(t *testing.T) {
	now := time.Now()
	svc, repo := newTestService(now)
	ctx := context.Background()

	p := activePercentPromo(now, "10")
	repo.add(p)

	require.NoError(t, svc.Delete(ctx, p.ID))
	assert.Equal(t, StatusCancelled, p.Status)
	assert.True(t, p.DeletionMark)

	// A deleted promotion is no longer eligible
	line := Line{ProductID: id.New(), Quantity: 1, UnitPrice: types.MustMoney("10.00")}
	discount, err := svc.CalculateDiscount(ctx, p.ID, line)
	require.NoError(t, err)
	assert.True(t, discount.IsZero())
}

func TestExpireOverdue(t *testing.T) {
	now := time.Now()
	svc, repo := newTestService(now)

	expired := activePercentPromo(now, "10")
	expired.EndDate = now.Add(-time.Minute)
	repo.add(expired)

	current := activePercentPromo(now, "10")
	repo.add(current)

	n, err := svc.ExpireOverdue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.Equal(t, StatusExpired, expired.Status)
	assert.Equal(t, StatusActive, current.Status)
}

func TestCreate_RejectsDuplicatePromoCode(t *testing.T) {
	now := time.Now()
	svc, repo := newTestService(now)
	ctx := context.Background()

	code := "ONCE"
	existing := activePercentPromo(now, "10")
	existing.PromoCode = &code
	repo.add(existing)

	p := activePercentPromo(now, "15")
	p.PromoCode = &code
	err := svc.Create(ctx, p)
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeDuplicate, appErr.Code)
}

func TestApply_RecordsUsage(t *testing.T) {
	now := time.Now()
	svc, repo := newTestService(now)
	ctx := context.Background()

	p := activePercentPromo(now, "10")
	repo.add(p)

	saleID := id.New()
	_, err := svc.Apply(ctx, p.ID, saleID, types.MustMoney("1.50"), nil)
	require.NoError(t, err)
	_, err = svc.Apply(ctx, p.ID, id.New(), types.MustMoney("2.50"), nil)
	require.NoError(t, err)

	stats, err := svc.GetUsageStats(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.TimesUsed)
	assert.True(t, types.MustMoney("4.00").Equal(stats.TotalDiscount))
}
