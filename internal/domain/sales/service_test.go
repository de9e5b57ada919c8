package sales

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"retailcore/internal/core/apperror"
	"retailcore/internal/core/id"
	"retailcore/internal/core/numerator"
	"retailcore/internal/core/types"
	"retailcore/internal/domain"
	"retailcore/internal/domain/promotion"
	"retailcore/internal/domain/stock"
)

// Mock objects

type mockTxManager struct{}

func (m *mockTxManager) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type mockStockRepo struct {
	balances  map[stock.Ref]int64
	movements []stock.Movement
}

func newMockStockRepo() *mockStockRepo {
	return &mockStockRepo{balances: make(map[stock.Ref]int64)}
}

// set and qty address the base product counter, which is what most sales
// flows touch.
func (m *mockStockRepo) set(productID id.ID, qty int64) {
	m.balances[stock.NewRef(productID, nil)] = qty
}

func (m *mockStockRepo) qty(productID id.ID) int64 {
	return m.balances[stock.NewRef(productID, nil)]
}

func (m *mockStockRepo) InsertMovement(ctx context.Context, mv stock.Movement) error {
	m.movements = append(m.movements, mv)
	return nil
}

func (m *mockStockRepo) ApplyDelta(ctx context.Context, ref stock.Ref, delta int64) (int64, error) {
	m.balances[ref] += delta
	return m.balances[ref], nil
}

func (m *mockStockRepo) GetBalance(ctx context.Context, ref stock.Ref) (stock.Balance, error) {
	return stock.Balance{ProductID: ref.ProductID, VariantID: ref.VariantID, Quantity: m.balances[ref]}, nil
}

func (m *mockStockRepo) GetBalances(ctx context.Context, productIDs []id.ID) (map[id.ID]int64, error) {
	return nil, nil
}

func (m *mockStockRepo) ListBalances(ctx context.Context, productIDs []id.ID) (map[stock.Ref]int64, error) {
	return nil, nil
}

func (m *mockStockRepo) GetMovementHistory(ctx context.Context, productID id.ID, filter stock.MovementFilter) ([]stock.Movement, error) {
	return nil, nil
}

func (m *mockStockRepo) GetTurnover(ctx context.Context, filter stock.TurnoverFilter) (stock.Turnover, error) {
	return stock.Turnover{}, nil
}

func (m *mockStockRepo) SumMovements(ctx context.Context, productIDs []id.ID) (map[stock.Ref]int64, error) {
	return nil, nil
}

func (m *mockStockRepo) SetBalance(ctx context.Context, ref stock.Ref, quantity int64) error {
	return nil
}

type mockPromoRepo struct {
	promotions map[id.ID]*promotion.Promotion
	byCode     map[string]*promotion.Promotion
	usages     []promotion.Usage
}

func newMockPromoRepo() *mockPromoRepo {
	return &mockPromoRepo{
		promotions: make(map[id.ID]*promotion.Promotion),
		byCode:     make(map[string]*promotion.Promotion),
	}
}

func (m *mockPromoRepo) add(p *promotion.Promotion) {
	m.promotions[p.ID] = p
	if p.PromoCode != nil {
		m.byCode[*p.PromoCode] = p
	}
}

func (m *mockPromoRepo) Create(ctx context.Context, p *promotion.Promotion) error {
	m.add(p)
	return nil
}

func (m *mockPromoRepo) GetByID(ctx context.Context, promotionID id.ID) (*promotion.Promotion, error) {
	p, ok := m.promotions[promotionID]
	if !ok {
		return nil, apperror.NewNotFound("promotion", promotionID.String())
	}
	return p, nil
}

func (m *mockPromoRepo) Update(ctx context.Context, p *promotion.Promotion) error { return nil }

func (m *mockPromoRepo) SetDeletionMark(ctx context.Context, promotionID id.ID, mark bool) error {
	return nil
}

func (m *mockPromoRepo) List(ctx context.Context, filter promotion.ListFilter) (domain.ListResult[*promotion.Promotion], error) {
	return domain.ListResult[*promotion.Promotion]{}, nil
}

func (m *mockPromoRepo) GetByPromoCode(ctx context.Context, code string) (*promotion.Promotion, error) {
	p, ok := m.byCode[code]
	if !ok {
		return nil, apperror.NewNotFound("promotion", code)
	}
	return p, nil
}

func (m *mockPromoRepo) PromoCodeExists(ctx context.Context, code string, excludeID *id.ID) (bool, error) {
	_, ok := m.byCode[code]
	return ok, nil
}

func (m *mockPromoRepo) TransitionStatus(ctx context.Context, promotionID id.ID, from, to promotion.Status) (bool, error) {
	return false, nil
}

func (m *mockPromoRepo) ExpireOverdue(ctx context.Context, now time.Time) (int64, error) {
	return 0, nil
}

func (m *mockPromoRepo) ReplaceProducts(ctx context.Context, promotionID id.ID, refs []promotion.ProductRef) error {
	return nil
}

func (m *mockPromoRepo) ListProducts(ctx context.Context, promotionID id.ID) ([]promotion.ProductRef, error) {
	return nil, nil
}

func (m *mockPromoRepo) HasProduct(ctx context.Context, promotionID, productID id.ID, variantID *id.ID) (bool, error) {
	return false, nil
}

func (m *mockPromoRepo) InsertUsage(ctx context.Context, u promotion.Usage) error {
	m.usages = append(m.usages, u)
	return nil
}

func (m *mockPromoRepo) GetUsageStats(ctx context.Context, promotionID id.ID) (promotion.UsageStats, error) {
	return promotion.UsageStats{}, nil
}

func (m *mockPromoRepo) ListUsage(ctx context.Context, promotionID id.ID, limit, offset uint64) ([]promotion.Usage, error) {
	return nil, nil
}

type mockSaleRepo struct {
	sales map[id.ID]*Sale
	lines map[id.ID][]Line
}

func newMockSaleRepo() *mockSaleRepo {
	return &mockSaleRepo{
		sales: make(map[id.ID]*Sale),
		lines: make(map[id.ID][]Line),
	}
}

func (m *mockSaleRepo) CreateWithLines(ctx context.Context, s *Sale, lines []Line) error {
	m.sales[s.ID] = s
	m.lines[s.ID] = lines
	return nil
}

func (m *mockSaleRepo) GetByID(ctx context.Context, saleID id.ID) (*Sale, error) {
	s, ok := m.sales[saleID]
	if !ok {
		return nil, apperror.NewNotFound("sale", saleID.String())
	}
	return s, nil
}

func (m *mockSaleRepo) GetByNumber(ctx context.Context, number string) (*Sale, error) {
	for _, s := range m.sales {
		if s.Number == number {
			return s, nil
		}
	}
	return nil, apperror.NewNotFound("sale", number)
}

func (m *mockSaleRepo) List(ctx context.Context, filter ListFilter) (domain.ListResult[*Sale], error) {
	return domain.ListResult[*Sale]{}, nil
}

func (m *mockSaleRepo) GetLines(ctx context.Context, saleID id.ID) ([]Line, error) {
	return m.lines[saleID], nil
}

func (m *mockSaleRepo) TransitionStatus(ctx context.Context, saleID id.ID, from, to Status) (bool, error) {
	s, ok := m.sales[saleID]
	if !ok || s.Status != from {
		return false, nil
	}
	s.Status = to
	return true, nil
}

func newTestService() (*Service, *mockSaleRepo, *mockStockRepo, *mockPromoRepo) {
	saleRepo := newMockSaleRepo()
	stockRepo := newMockStockRepo()
	promoRepo := newMockPromoRepo()

	txm := &mockTxManager{}
	ledger := stock.NewService(stockRepo, txm)
	promotions := promotion.NewService(promoRepo, txm)
	svc := NewService(saleRepo, ledger, promotions, txm, &numerator.MockGenerator{})

	return svc, saleRepo, stockRepo, promoRepo
}

func codePromo(code, pct string) *promotion.Promotion {
	p := promotion.New("Code Promo", promotion.TypePercentage, time.Now().Add(-time.Hour), time.Now().Add(time.Hour))
	v := types.MustMoney(pct)
	p.DiscountPercentage = &v
	p.Status = promotion.StatusActive
	p.ApplyToAllProducts = true
	p.PromoCode = &code
	p.RequirePromoCode = true
	return p
}

func TestCompose_Totals(t *testing.T) {
	svc, repo, stockRepo, _ := newTestService()
	ctx := context.Background()

	sale, err := svc.Compose(ctx, ComposeInput{
		CustomerName: "Walk-in",
		Lines: []ComposeLine{
			{ProductID: id.New(), Quantity: 2, UnitPrice: types.MustMoney("3.50")},
			{ProductID: id.New(), Quantity: 1, UnitPrice: types.MustMoney("10.00")},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, StatusOpen, sale.Status)
	assert.NotEmpty(t, sale.Number)
	assert.True(t, types.MustMoney("17.00").Equal(sale.Subtotal), "got %s", sale.Subtotal)
	assert.True(t, sale.DiscountTotal.IsZero())
	assert.True(t, types.MustMoney("17.00").Equal(sale.Total))

	lines := repo.lines[sale.ID]
	require.Len(t, lines, 2)
	assert.True(t, types.MustMoney("7.00").Equal(lines[0].LineTotal))

	// Composition never touches stock
	assert.Empty(t, stockRepo.movements)
}

func TestCompose_RequiresLines(t *testing.T) {
	svc, _, _, _ := newTestService()

	_, err := svc.Compose(context.Background(), ComposeInput{})
	assert.Error(t, err)
}

func TestCompose_RejectsBadLine(t *testing.T) {
	svc, _, _, _ := newTestService()

	_, err := svc.Compose(context.Background(), ComposeInput{
		Lines: []ComposeLine{{ProductID: id.New(), Quantity: 0, UnitPrice: types.MustMoney("1.00")}},
	})
	assert.Error(t, err)
}

func TestCompose_WithPromoCode(t *testing.T) {
	svc, repo, _, promoRepo := newTestService()
	ctx := context.Background()

	p := codePromo("TEN", "10")
	promoRepo.add(p)

	sale, err := svc.Compose(ctx, ComposeInput{
		PromoCode: "TEN",
		Lines: []ComposeLine{
			{ProductID: id.New(), Quantity: 2, UnitPrice: types.MustMoney("10.00")},
		},
	})
	require.NoError(t, err)

	require.NotNil(t, sale.PromoCode)
	assert.Equal(t, "TEN", *sale.PromoCode)
	assert.True(t, types.MustMoney("20.00").Equal(sale.Subtotal))
	assert.True(t, types.MustMoney("2.00").Equal(sale.DiscountTotal), "got %s", sale.DiscountTotal)
	assert.True(t, types.MustMoney("18.00").Equal(sale.Total))

	lines := repo.lines[sale.ID]
	require.Len(t, lines, 1)
	require.NotNil(t, lines[0].PromotionID)
	assert.Equal(t, p.ID, *lines[0].PromotionID)
}

func TestCompose_UnknownPromoCodeFails(t *testing.T) {
	svc, _, _, _ := newTestService()

	_, err := svc.Compose(context.Background(), ComposeInput{
		PromoCode: "NOPE",
		Lines:     []ComposeLine{{ProductID: id.New(), Quantity: 1, UnitPrice: types.MustMoney("1.00")}},
	})
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodePromotionNotApplicable, appErr.Code)
}

func TestComplete_MovesStockAndRecordsUsage(t *testing.T) {
	svc, _, stockRepo, promoRepo := newTestService()
	ctx := context.Background()

	p := codePromo("TEN", "10")
	promoRepo.add(p)

	productID := id.New()
	stockRepo.set(productID, 5)

	sale, err := svc.Compose(ctx, ComposeInput{
		PromoCode: "TEN",
		Lines:     []ComposeLine{{ProductID: productID, Quantity: 2, UnitPrice: types.MustMoney("10.00")}},
	})
	require.NoError(t, err)

	completed, err := svc.Complete(ctx, sale.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, completed.Status)

	require.Len(t, stockRepo.movements, 1)
	mv := stockRepo.movements[0]
	assert.Equal(t, stock.TypeSale, mv.Type)
	assert.Equal(t, int64(-2), mv.QuantityDelta)
	assert.Equal(t, sale.ID, mv.RecorderID)
	assert.Equal(t, int64(3), stockRepo.qty(productID))

	require.Len(t, promoRepo.usages, 1)
	assert.Equal(t, p.ID, promoRepo.usages[0].PromotionID)
	assert.Equal(t, sale.ID, promoRepo.usages[0].SaleID)
	assert.True(t, types.MustMoney("2.00").Equal(promoRepo.usages[0].DiscountAmount))
}

func TestComplete_AllowsOversell(t *testing.T) {
	svc, _, stockRepo, _ := newTestService()
	ctx := context.Background()

	productID := id.New()
	stockRepo.set(productID, 1)

	sale, err := svc.Compose(ctx, ComposeInput{
		Lines: []ComposeLine{{ProductID: productID, Quantity: 3, UnitPrice: types.MustMoney("1.00")}},
	})
	require.NoError(t, err)

	// Selling past the on-hand quantity completes; the counter goes
	// negative and the product shows up as out of stock.
	completed, err := svc.Complete(ctx, sale.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, completed.Status)
	assert.Equal(t, int64(-2), stockRepo.qty(productID))
}

func TestComplete_VariantLineMovesVariantCounter(t *testing.T) {
	svc, _, stockRepo, _ := newTestService()
	ctx := context.Background()

	productID := id.New()
	variantID := id.New()
	stockRepo.set(productID, 10)
	stockRepo.balances[stock.NewRef(productID, &variantID)] = 4

	sale, err := svc.Compose(ctx, ComposeInput{
		Lines: []ComposeLine{{
			ProductID: productID,
			VariantID: &variantID,
			Quantity:  3,
			UnitPrice: types.MustMoney("2.00"),
		}},
	})
	require.NoError(t, err)

	_, err = svc.Complete(ctx, sale.ID)
	require.NoError(t, err)

	// The variant counter absorbs the sale; the base product counter stays
	// where it was.
	assert.Equal(t, int64(10), stockRepo.qty(productID))
	assert.Equal(t, int64(1), stockRepo.balances[stock.NewRef(productID, &variantID)])

	require.Len(t, stockRepo.movements, 1)
	require.NotNil(t, stockRepo.movements[0].VariantID)
	assert.Equal(t, variantID, *stockRepo.movements[0].VariantID)
}

func TestComplete_OnlyOpen(t *testing.T) {
	svc, _, stockRepo, _ := newTestService()
	ctx := context.Background()

	productID := id.New()
	stockRepo.set(productID, 10)

	sale, err := svc.Compose(ctx, ComposeInput{
		Lines: []ComposeLine{{ProductID: productID, Quantity: 1, UnitPrice: types.MustMoney("1.00")}},
	})
	require.NoError(t, err)

	_, err = svc.Complete(ctx, sale.ID)
	require.NoError(t, err)

	_, err = svc.Complete(ctx, sale.ID)
	require.Error(t, err)
	// No double movement
	assert.Len(t, stockRepo.movements, 1)
}

func TestCancel_LeavesStockUntouched(t *testing.T) {
	svc, _, stockRepo, _ := newTestService()
	ctx := context.Background()

	sale, err := svc.Compose(ctx, ComposeInput{
		Lines: []ComposeLine{{ProductID: id.New(), Quantity: 1, UnitPrice: types.MustMoney("1.00")}},
	})
	require.NoError(t, err)

	cancelled, err := svc.Cancel(ctx, sale.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, cancelled.Status)
	assert.Empty(t, stockRepo.movements)

	// Cancelled sales cannot complete
	_, err = svc.Complete(ctx, sale.ID)
	assert.Error(t, err)
}

func TestReturn_RestocksLines(t *testing.T) {
	svc, _, stockRepo, _ := newTestService()
	ctx := context.Background()

	productID := id.New()
	stockRepo.set(productID, 5)

	sale, err := svc.Compose(ctx, ComposeInput{
		Lines: []ComposeLine{{ProductID: productID, Quantity: 2, UnitPrice: types.MustMoney("4.00")}},
	})
	require.NoError(t, err)

	// Returning an open sale is invalid
	_, err = svc.Return(ctx, sale.ID)
	require.Error(t, err)

	_, err = svc.Complete(ctx, sale.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), stockRepo.qty(productID))

	returned, err := svc.Return(ctx, sale.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusReturned, returned.Status)
	assert.Equal(t, int64(5), stockRepo.qty(productID))

	require.Len(t, stockRepo.movements, 2)
	assert.Equal(t, stock.TypeReturn, stockRepo.movements[1].Type)
	assert.Equal(t, int64(2), stockRepo.movements[1].QuantityDelta)
}
