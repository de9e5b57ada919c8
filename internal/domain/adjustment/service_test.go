package adjustment

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"retailcore/internal/core/apperror"
	"retailcore/internal/core/id"
	"retailcore/internal/core/numerator"
	"retailcore/internal/domain"
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
	out := make(map[id.ID]int64)
	for _, pid := range productIDs {
		out[pid] = m.qty(pid)
	}
	return out, nil
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
	m.balances[ref] = quantity
	return nil
}

type mockAdjustmentRepo struct {
	items map[id.ID]*Adjustment
}

func newMockAdjustmentRepo() *mockAdjustmentRepo {
	return &mockAdjustmentRepo{items: make(map[id.ID]*Adjustment)}
}

func (m *mockAdjustmentRepo) Create(ctx context.Context, a *Adjustment) error {
	m.items[a.ID] = a
	return nil
}

func (m *mockAdjustmentRepo) GetByID(ctx context.Context, adjustmentID id.ID) (*Adjustment, error) {
	a, ok := m.items[adjustmentID]
	if !ok {
		return nil, apperror.NewNotFound("adjustment", adjustmentID.String())
	}
	return a, nil
}

func (m *mockAdjustmentRepo) GetByNumber(ctx context.Context, number string) (*Adjustment, error) {
	for _, a := range m.items {
		if a.Number == number {
			return a, nil
		}
	}
	return nil, apperror.NewNotFound("adjustment", number)
}

func (m *mockAdjustmentRepo) Update(ctx context.Context, a *Adjustment) error {
	m.items[a.ID] = a
	return nil
}

func (m *mockAdjustmentRepo) List(ctx context.Context, filter ListFilter) (domain.ListResult[*Adjustment], error) {
	return domain.ListResult[*Adjustment]{}, nil
}

func (m *mockAdjustmentRepo) TransitionStatus(ctx context.Context, adjustmentID id.ID, from, to Status, reviewedBy, comment string) (bool, error) {
	a, ok := m.items[adjustmentID]
	if !ok || a.Status != from {
		return false, nil
	}
	a.Status = to
	a.ReviewedBy = &reviewedBy
	a.ReviewComment = &comment
	return true, nil
}

func (m *mockAdjustmentRepo) CountPending(ctx context.Context) (int64, error) {
	var n int64
	for _, a := range m.items {
		if a.IsPending() {
			n++
		}
	}
	return n, nil
}

func newTestService() (*Service, *mockAdjustmentRepo, *mockStockRepo) {
	stockRepo := newMockStockRepo()
	adjRepo := newMockAdjustmentRepo()
	ledger := stock.NewService(stockRepo, &mockTxManager{})
	svc := NewService(adjRepo, ledger, &mockTxManager{}, &numerator.MockGenerator{})
	return svc, adjRepo, stockRepo
}

func TestCreate_SnapshotsOnHand(t *testing.T) {
	svc, _, stockRepo := newTestService()
	ctx := context.Background()
	productID := id.New()
	stockRepo.set(productID, 10)

	adj, err := svc.Create(ctx, productID, nil, 4, ReasonDamage, "broken in storage")
	require.NoError(t, err)

	assert.Equal(t, StatusPending, adj.Status)
	assert.Equal(t, int64(10), adj.PreviousQuantity)
	assert.Equal(t, int64(4), adj.NewQuantity)
	assert.Equal(t, int64(-6), adj.QuantityDifference)
	assert.NotEmpty(t, adj.Number)

	// Nothing hits the ledger before approval
	assert.Empty(t, stockRepo.movements)
	assert.Equal(t, int64(10), stockRepo.qty(productID))
}

func TestCreate_RejectsNegativeQuantity(t *testing.T) {
	svc, _, _ := newTestService()

	_, err := svc.Create(context.Background(), id.New(), nil, -1, ReasonRecount, "")
	assert.Error(t, err)
}

func TestCreate_RejectsUnknownReason(t *testing.T) {
	svc, _, _ := newTestService()

	_, err := svc.Create(context.Background(), id.New(), nil, 5, Reason("gremlins"), "")
	assert.Error(t, err)
}

func TestApprove_AppliesSignedDifference(t *testing.T) {
	svc, _, stockRepo := newTestService()
	ctx := context.Background()
	productID := id.New()
	stockRepo.set(productID, 10)

	adj, err := svc.Create(ctx, productID, nil, 4, ReasonDamage, "")
	require.NoError(t, err)

	// A sale happens between creation and approval
	stockRepo.set(productID, 8)

	approved, err := svc.Approve(ctx, adj.ID, "confirmed")
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, approved.Status)

	// The signed difference (-6) applies on top of the live balance,
	// not the snapshot: 8 - 6 = 2
	assert.Equal(t, int64(2), stockRepo.qty(productID))

	require.Len(t, stockRepo.movements, 1)
	mv := stockRepo.movements[0]
	assert.Equal(t, stock.TypeAdjustment, mv.Type)
	assert.Equal(t, int64(-6), mv.QuantityDelta)
	assert.Equal(t, adj.ID, mv.RecorderID)
	assert.Equal(t, "adjustment", mv.RecorderType)
}

func TestApprove_VariantAdjustmentTargetsVariantCounter(t *testing.T) {
	svc, _, stockRepo := newTestService()
	ctx := context.Background()
	productID := id.New()
	variantID := id.New()

	ref := stock.NewRef(productID, &variantID)
	stockRepo.set(productID, 20)
	stockRepo.balances[ref] = 6

	adj, err := svc.Create(ctx, productID, &variantID, 2, ReasonDamage, "")
	require.NoError(t, err)

	// The snapshot comes from the variant counter, not the base product.
	assert.Equal(t, int64(6), adj.PreviousQuantity)
	assert.Equal(t, int64(-4), adj.QuantityDifference)

	_, err = svc.Approve(ctx, adj.ID, "")
	require.NoError(t, err)

	assert.Equal(t, int64(2), stockRepo.balances[ref])
	assert.Equal(t, int64(20), stockRepo.qty(productID))

	require.Len(t, stockRepo.movements, 1)
	require.NotNil(t, stockRepo.movements[0].VariantID)
	assert.Equal(t, variantID, *stockRepo.movements[0].VariantID)
}

func TestApprove_ZeroDifferenceSkipsLedger(t *testing.T) {
	svc, _, stockRepo := newTestService()
	ctx := context.Background()
	productID := id.New()
	stockRepo.set(productID, 5)

	adj, err := svc.Create(ctx, productID, nil, 5, ReasonRecount, "count matched")
	require.NoError(t, err)

	approved, err := svc.Approve(ctx, adj.ID, "")
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, approved.Status)
	assert.Empty(t, stockRepo.movements)
}

func TestApprove_OnlyPending(t *testing.T) {
	svc, _, stockRepo := newTestService()
	ctx := context.Background()
	productID := id.New()
	stockRepo.set(productID, 10)

	adj, err := svc.Create(ctx, productID, nil, 12, ReasonFound, "")
	require.NoError(t, err)

	_, err = svc.Approve(ctx, adj.ID, "")
	require.NoError(t, err)

	// Second approval must fail and must not double-apply
	_, err = svc.Approve(ctx, adj.ID, "")
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeInvalidTransition, appErr.Code)
	assert.Equal(t, int64(12), stockRepo.qty(productID))
}

func TestApprove_CanDriveBalanceNegative(t *testing.T) {
	svc, _, stockRepo := newTestService()
	ctx := context.Background()
	productID := id.New()
	stockRepo.set(productID, 10)

	adj, err := svc.Create(ctx, productID, nil, 2, ReasonTheft, "")
	require.NoError(t, err)

	// Concurrent sales drain the balance below the proposed difference.
	// The approval still applies: a negative counter is a representable
	// oversold state, not a failure.
	stockRepo.set(productID, 5)

	approved, err := svc.Approve(ctx, adj.ID, "")
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, approved.Status)
	assert.Equal(t, int64(-3), stockRepo.qty(productID))
	require.Len(t, stockRepo.movements, 1)
}

func TestReject_LeavesStockUntouched(t *testing.T) {
	svc, _, stockRepo := newTestService()
	ctx := context.Background()
	productID := id.New()
	stockRepo.set(productID, 10)

	adj, err := svc.Create(ctx, productID, nil, 0, ReasonExpiry, "all expired")
	require.NoError(t, err)

	rejected, err := svc.Reject(ctx, adj.ID, "recount first")
	require.NoError(t, err)
	assert.Equal(t, StatusRejected, rejected.Status)
	require.NotNil(t, rejected.ReviewComment)
	assert.Equal(t, "recount first", *rejected.ReviewComment)

	assert.Empty(t, stockRepo.movements)
	assert.Equal(t, int64(10), stockRepo.qty(productID))

	// A rejected adjustment cannot be approved afterwards
	_, err = svc.Approve(ctx, adj.ID, "")
	assert.Error(t, err)
}

func TestCountPending(t *testing.T) {
	svc, _, stockRepo := newTestService()
	ctx := context.Background()

	p1, p2 := id.New(), id.New()
	stockRepo.set(p1, 3)
	stockRepo.set(p2, 3)

	a1, err := svc.Create(ctx, p1, nil, 1, ReasonLoss, "")
	require.NoError(t, err)
	_, err = svc.Create(ctx, p2, nil, 2, ReasonLoss, "")
	require.NoError(t, err)

	n, err := svc.CountPending(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	_, err = svc.Reject(ctx, a1.ID, "")
	require.NoError(t, err)

	n, err = svc.CountPending(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}
