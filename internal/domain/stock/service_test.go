package stock

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"retailcore/internal/core/id"
)

// Mock objects

type mockTxManager struct{}

func (m *mockTxManager) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type mockRepo struct {
	balances  map[Ref]int64
	movements []Movement
	setCalls  map[Ref]int64
}

func newMockRepo() *mockRepo {
	return &mockRepo{
		balances: make(map[Ref]int64),
		setCalls: make(map[Ref]int64),
	}
}

func baseRef(productID id.ID) Ref {
	return NewRef(productID, nil)
}

func (m *mockRepo) InsertMovement(ctx context.Context, mv Movement) error {
	m.movements = append(m.movements, mv)
	return nil
}

func (m *mockRepo) ApplyDelta(ctx context.Context, ref Ref, delta int64) (int64, error) {
	m.balances[ref] += delta
	return m.balances[ref], nil
}

func (m *mockRepo) GetBalance(ctx context.Context, ref Ref) (Balance, error) {
	return Balance{ProductID: ref.ProductID, VariantID: ref.VariantID, Quantity: m.balances[ref]}, nil
}

func (m *mockRepo) GetBalances(ctx context.Context, productIDs []id.ID) (map[id.ID]int64, error) {
	out := make(map[id.ID]int64, len(productIDs))
	for _, pid := range productIDs {
		out[pid] = m.balances[baseRef(pid)]
	}
	return out, nil
}

func (m *mockRepo) ListBalances(ctx context.Context, productIDs []id.ID) (map[Ref]int64, error) {
	out := make(map[Ref]int64)
	for ref, qty := range m.balances {
		if len(productIDs) > 0 && !containsID(productIDs, ref.ProductID) {
			continue
		}
		out[ref] = qty
	}
	return out, nil
}

func (m *mockRepo) GetMovementHistory(ctx context.Context, productID id.ID, filter MovementFilter) ([]Movement, error) {
	var out []Movement
	for _, mv := range m.movements {
		if mv.ProductID == productID {
			out = append(out, mv)
		}
	}
	return out, nil
}

func (m *mockRepo) GetTurnover(ctx context.Context, filter TurnoverFilter) (Turnover, error) {
	return Turnover{}, nil
}

func (m *mockRepo) SumMovements(ctx context.Context, productIDs []id.ID) (map[Ref]int64, error) {
	sums := make(map[Ref]int64)
	for _, mv := range m.movements {
		if len(productIDs) > 0 && !containsID(productIDs, mv.ProductID) {
			continue
		}
		sums[mv.Ref()] += mv.QuantityDelta
	}
	return sums, nil
}

func (m *mockRepo) SetBalance(ctx context.Context, ref Ref, quantity int64) error {
	m.balances[ref] = quantity
	m.setCalls[ref] = quantity
	return nil
}

func containsID(ids []id.ID, target id.ID) bool {
	for _, v := range ids {
		if v == target {
			return true
		}
	}
	return false
}

func newTestService() (*Service, *mockRepo) {
	repo := newMockRepo()
	return NewService(repo, &mockTxManager{}), repo
}

func TestRecordMovement_AppliesDelta(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()
	productID := id.New()

	qty, err := svc.RecordMovement(ctx, NewMovement(productID, TypePurchase, 10))
	require.NoError(t, err)
	assert.Equal(t, int64(10), qty)

	qty, err = svc.RecordMovement(ctx, NewMovement(productID, TypeSale, -3))
	require.NoError(t, err)
	assert.Equal(t, int64(7), qty)

	assert.Len(t, repo.movements, 2)
}

func TestRecordMovement_AllowsNegativeBalance(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()
	productID := id.New()

	_, err := svc.RecordMovement(ctx, NewMovement(productID, TypePurchase, 5))
	require.NoError(t, err)

	// Overselling is not rejected: the counter goes negative and the state
	// is surfaced through the low-stock predicates instead.
	qty, err := svc.RecordMovement(ctx, NewMovement(productID, TypeSale, -6))
	require.NoError(t, err)
	assert.Equal(t, int64(-1), qty)

	assert.Len(t, repo.movements, 2)
	assert.Equal(t, int64(-1), repo.balances[baseRef(productID)])
}

func TestRecordMovement_VariantKeepsOwnCounter(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()
	productID := id.New()
	variantID := id.New()

	_, err := svc.RecordMovement(ctx, NewMovement(productID, TypePurchase, 10))
	require.NoError(t, err)

	m := NewMovement(productID, TypeSale, -3)
	m.VariantID = &variantID
	qty, err := svc.RecordMovement(ctx, m)
	require.NoError(t, err)

	// The variant counter moves; the base product counter does not.
	assert.Equal(t, int64(-3), qty)
	assert.Equal(t, int64(10), repo.balances[baseRef(productID)])
	assert.Equal(t, int64(-3), repo.balances[NewRef(productID, &variantID)])

	require.Len(t, repo.movements, 2)
	require.NotNil(t, repo.movements[1].VariantID)
	assert.Equal(t, variantID, *repo.movements[1].VariantID)
}

func TestRecordMovement_DirectionValidation(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	productID := id.New()

	tests := []struct {
		name    string
		mtype   MovementType
		delta   int64
		wantErr bool
	}{
		{"purchase positive", TypePurchase, 10, false},
		{"purchase negative", TypePurchase, -10, true},
		{"sale negative after stock", TypeSale, -1, false},
		{"sale positive", TypeSale, 5, true},
		{"return positive", TypeReturn, 2, false},
		{"loss positive", TypeLoss, 3, true},
		{"adjustment either sign up", TypeAdjustment, 4, false},
		{"adjustment either sign down", TypeAdjustment, -2, false},
		{"zero delta", TypeAdjustment, 0, true},
		{"unknown type", MovementType("teleport"), 1, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.RecordMovement(ctx, NewMovement(productID, tt.mtype, tt.delta))
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestRecordMovement_RejectsNilProduct(t *testing.T) {
	svc, _ := newTestService()

	_, err := svc.RecordMovement(context.Background(), NewMovement(id.Nil(), TypePurchase, 1))
	assert.Error(t, err)
}

func TestReconcile_RepairsDrift(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()
	productID := id.New()

	_, err := svc.RecordMovement(ctx, NewMovement(productID, TypePurchase, 10))
	require.NoError(t, err)

	// Simulate a balance row that disagrees with the ledger
	repo.balances[baseRef(productID)] = 7

	drifts, err := svc.Reconcile(ctx, nil)
	require.NoError(t, err)
	require.Len(t, drifts, 1)
	assert.Equal(t, productID, drifts[0].ProductID)
	assert.Nil(t, drifts[0].VariantID)
	assert.Equal(t, int64(10), drifts[0].LedgerSum)
	assert.Equal(t, int64(7), drifts[0].Balance)

	// Ledger wins
	assert.Equal(t, int64(10), repo.balances[baseRef(productID)])
}

func TestReconcile_RepairsVariantCounter(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()
	productID := id.New()
	variantID := id.New()

	m := NewMovement(productID, TypePurchase, 4)
	m.VariantID = &variantID
	_, err := svc.RecordMovement(ctx, m)
	require.NoError(t, err)

	ref := NewRef(productID, &variantID)
	repo.balances[ref] = 9

	drifts, err := svc.Reconcile(ctx, []id.ID{productID})
	require.NoError(t, err)
	require.Len(t, drifts, 1)
	assert.Equal(t, productID, drifts[0].ProductID)
	require.NotNil(t, drifts[0].VariantID)
	assert.Equal(t, variantID, *drifts[0].VariantID)
	assert.Equal(t, int64(4), drifts[0].LedgerSum)
	assert.Equal(t, int64(9), drifts[0].Balance)

	assert.Equal(t, int64(4), repo.balances[ref])
}

func TestReconcile_NoDrift(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()
	productID := id.New()

	_, err := svc.RecordMovement(ctx, NewMovement(productID, TypePurchase, 10))
	require.NoError(t, err)

	drifts, err := svc.Reconcile(ctx, []id.ID{productID})
	require.NoError(t, err)
	assert.Empty(t, drifts)
	assert.Empty(t, repo.setCalls)
}
