package stockcount

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"retailcore/internal/core/apperror"
	"retailcore/internal/core/id"
	"retailcore/internal/core/numerator"
	"retailcore/internal/core/types"
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
	return nil
}

type mockProductSource struct {
	ids   []id.ID
	costs map[id.ID]types.Money
}

func (m *mockProductSource) ScopeIDs(ctx context.Context, categoryID *string, includeInactive bool) ([]id.ID, error) {
	return m.ids, nil
}

func (m *mockProductSource) UnitCosts(ctx context.Context, productIDs []id.ID) (map[id.ID]types.Money, error) {
	out := make(map[id.ID]types.Money, len(productIDs))
	for _, pid := range productIDs {
		out[pid] = m.costs[pid]
	}
	return out, nil
}

type mockSessionRepo struct {
	sessions map[id.ID]*Session
	items    map[id.ID][]Item // keyed by session
}

func newMockSessionRepo() *mockSessionRepo {
	return &mockSessionRepo{
		sessions: make(map[id.ID]*Session),
		items:    make(map[id.ID][]Item),
	}
}

func (m *mockSessionRepo) Create(ctx context.Context, s *Session) error {
	m.sessions[s.ID] = s
	return nil
}

func (m *mockSessionRepo) GetByID(ctx context.Context, sessionID id.ID) (*Session, error) {
	s, ok := m.sessions[sessionID]
	if !ok {
		return nil, apperror.NewNotFound("stock count session", sessionID.String())
	}
	return s, nil
}

func (m *mockSessionRepo) GetByNumber(ctx context.Context, number string) (*Session, error) {
	for _, s := range m.sessions {
		if s.Number == number {
			return s, nil
		}
	}
	return nil, apperror.NewNotFound("stock count session", number)
}

func (m *mockSessionRepo) Update(ctx context.Context, s *Session) error {
	m.sessions[s.ID] = s
	return nil
}

func (m *mockSessionRepo) List(ctx context.Context, filter ListFilter) (domain.ListResult[*Session], error) {
	return domain.ListResult[*Session]{}, nil
}

func (m *mockSessionRepo) TransitionStatus(ctx context.Context, sessionID id.ID, from, to SessionStatus, extraSet map[string]any) (bool, error) {
	s, ok := m.sessions[sessionID]
	if !ok || s.Status != from {
		return false, nil
	}
	s.Status = to
	if total, ok := extraSet["total_items"].(int); ok {
		s.TotalItems = total
	}
	if counted, ok := extraSet["counted_items"].(int); ok {
		s.CountedItems = counted
	}
	if disc, ok := extraSet["discrepancy_items"].(int); ok {
		s.DiscrepancyItems = disc
	}
	if tv, ok := extraSet["total_value"].(types.Money); ok {
		s.TotalValue = tv
	}
	if dv, ok := extraSet["discrepancy_value"].(types.Money); ok {
		s.DiscrepancyValue = dv
	}
	return true, nil
}

func (m *mockSessionRepo) InsertItems(ctx context.Context, items []Item) error {
	if len(items) == 0 {
		return nil
	}
	sessionID := items[0].SessionID
	m.items[sessionID] = append(m.items[sessionID], items...)
	return nil
}

func (m *mockSessionRepo) GetItem(ctx context.Context, sessionID, productID id.ID) (*Item, error) {
	for i := range m.items[sessionID] {
		if m.items[sessionID][i].ProductID == productID {
			return &m.items[sessionID][i], nil
		}
	}
	return nil, apperror.NewNotFound("stock count item", productID.String())
}

func (m *mockSessionRepo) UpdateItem(ctx context.Context, item *Item) error {
	for i := range m.items[item.SessionID] {
		if m.items[item.SessionID][i].ID == item.ID {
			m.items[item.SessionID][i] = *item
			return nil
		}
	}
	return apperror.NewNotFound("stock count item", item.ID.String())
}

func (m *mockSessionRepo) ListItems(ctx context.Context, sessionID id.ID, statuses []ItemStatus) ([]Item, error) {
	if len(statuses) == 0 {
		return m.items[sessionID], nil
	}
	want := make(map[ItemStatus]bool, len(statuses))
	for _, st := range statuses {
		want[st] = true
	}
	var out []Item
	for _, item := range m.items[sessionID] {
		if want[item.Status] {
			out = append(out, item)
		}
	}
	return out, nil
}

func (m *mockSessionRepo) CountItems(ctx context.Context, sessionID id.ID) (ItemCounts, error) {
	counts := ItemCounts{
		TotalValue:       types.Zero(),
		DiscrepancyValue: types.Zero(),
	}
	for _, item := range m.items[sessionID] {
		counts.Total++
		counts.TotalValue = counts.TotalValue.Add(
			item.UnitCost.Mul(decimal.NewFromInt(item.ExpectedQuantity)))
		if item.Status != ItemNotCounted {
			counts.Counted++
		}
		if item.CountedQuantity != nil {
			counts.DiscrepancyValue = counts.DiscrepancyValue.Add(item.DifferenceValue())
			if item.Difference() != 0 {
				counts.Discrepancy++
			}
		}
	}
	return counts, nil
}

func newTestService(productIDs ...id.ID) (*Service, *mockSessionRepo, *mockStockRepo, *mockProductSource) {
	repo := newMockSessionRepo()
	stockRepo := newMockStockRepo()
	source := &mockProductSource{ids: productIDs, costs: make(map[id.ID]types.Money)}
	txm := &mockTxManager{}
	ledger := stock.NewService(stockRepo, txm)
	svc := NewService(repo, source, ledger, txm, &numerator.MockGenerator{})
	return svc, repo, stockRepo, source
}

func TestStart_SnapshotsExpectedQuantities(t *testing.T) {
	p1, p2 := id.New(), id.New()
	svc, repo, stockRepo, source := newTestService(p1, p2)
	ctx := context.Background()

	stockRepo.set(p1, 12)
	source.costs[p1] = types.MustMoney("2.50")
	// p2 has no balance row and no cost: both snapshot at zero

	session, err := svc.Create(ctx, CreateInput{Name: "Friday count"})
	require.NoError(t, err)
	assert.Equal(t, SessionPlanned, session.Status)

	started, err := svc.Start(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, SessionInProgress, started.Status)

	items := repo.items[session.ID]
	require.Len(t, items, 2)
	assert.Equal(t, int64(12), items[0].ExpectedQuantity)
	assert.True(t, types.MustMoney("2.50").Equal(items[0].UnitCost))
	assert.Equal(t, int64(0), items[1].ExpectedQuantity)
	assert.Equal(t, ItemNotCounted, items[0].Status)

	// Starting twice is invalid
	_, err = svc.Start(ctx, session.ID)
	assert.Error(t, err)
}

func TestStart_EmptyScope(t *testing.T) {
	svc, _, _, _ := newTestService()
	ctx := context.Background()

	session, err := svc.Create(ctx, CreateInput{Name: "Empty"})
	require.NoError(t, err)

	_, err = svc.Start(ctx, session.ID)
	assert.Error(t, err)
}

func TestRecordCount_DerivesStatus(t *testing.T) {
	p1 := id.New()
	svc, _, stockRepo, _ := newTestService(p1)
	ctx := context.Background()
	stockRepo.set(p1, 10)

	session, err := svc.Create(ctx, CreateInput{Name: "Count"})
	require.NoError(t, err)
	_, err = svc.Start(ctx, session.ID)
	require.NoError(t, err)

	item, err := svc.RecordCount(ctx, session.ID, p1, 10, "")
	require.NoError(t, err)
	assert.Equal(t, ItemCounted, item.Status)
	assert.Equal(t, int64(0), item.Difference())

	// Recounting overwrites
	item, err = svc.RecordCount(ctx, session.ID, p1, 7, "shelf was short")
	require.NoError(t, err)
	assert.Equal(t, ItemDiscrepancy, item.Status)
	assert.Equal(t, int64(-3), item.Difference())

	_, err = svc.RecordCount(ctx, session.ID, p1, -1, "")
	assert.Error(t, err)
}

func TestRecordCount_RequiresOpenSession(t *testing.T) {
	p1 := id.New()
	svc, _, _, _ := newTestService(p1)
	ctx := context.Background()

	session, err := svc.Create(ctx, CreateInput{Name: "Planned only"})
	require.NoError(t, err)

	_, err = svc.RecordCount(ctx, session.ID, p1, 5, "")
	assert.Error(t, err)
}

func TestVerifyItem_RequiresRecordedCount(t *testing.T) {
	p1, p2 := id.New(), id.New()
	svc, _, stockRepo, _ := newTestService(p1, p2)
	ctx := context.Background()
	stockRepo.set(p1, 10)
	stockRepo.set(p2, 4)

	session, err := svc.Create(ctx, CreateInput{Name: "Verify"})
	require.NoError(t, err)
	_, err = svc.Start(ctx, session.ID)
	require.NoError(t, err)

	// Not counted yet
	_, err = svc.VerifyItem(ctx, session.ID, p1)
	require.Error(t, err)

	// A discrepancy can be verified; the difference stays as recorded
	_, err = svc.RecordCount(ctx, session.ID, p1, 8, "")
	require.NoError(t, err)

	item, err := svc.VerifyItem(ctx, session.ID, p1)
	require.NoError(t, err)
	assert.Equal(t, ItemVerified, item.Status)
	assert.NotNil(t, item.VerifiedAt)
	assert.Equal(t, int64(-2), item.Difference())

	// A matching count can be verified too
	_, err = svc.RecordCount(ctx, session.ID, p2, 4, "")
	require.NoError(t, err)

	item, err = svc.VerifyItem(ctx, session.ID, p2)
	require.NoError(t, err)
	assert.Equal(t, ItemVerified, item.Status)
	assert.Equal(t, int64(0), item.Difference())
}

func TestComplete_AutoAdjustWritesLedger(t *testing.T) {
	p1, p2, p3 := id.New(), id.New(), id.New()
	svc, _, stockRepo, _ := newTestService(p1, p2, p3)
	ctx := context.Background()
	stockRepo.set(p1, 10)
	stockRepo.set(p2, 5)
	stockRepo.set(p3, 2)

	session, err := svc.Create(ctx, CreateInput{Name: "Full count", AutoAdjust: true})
	require.NoError(t, err)
	_, err = svc.Start(ctx, session.ID)
	require.NoError(t, err)

	// p1 short by 3, p2 matches, p3 never counted
	_, err = svc.RecordCount(ctx, session.ID, p1, 7, "")
	require.NoError(t, err)
	_, err = svc.RecordCount(ctx, session.ID, p2, 5, "")
	require.NoError(t, err)

	completed, err := svc.Complete(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, SessionCompleted, completed.Status)
	assert.Equal(t, 3, completed.TotalItems)
	assert.Equal(t, 2, completed.CountedItems)
	assert.Equal(t, 1, completed.DiscrepancyItems)

	// Only the discrepancy reaches the ledger
	require.Len(t, stockRepo.movements, 1)
	mv := stockRepo.movements[0]
	assert.Equal(t, p1, mv.ProductID)
	assert.Equal(t, stock.TypeAdjustment, mv.Type)
	assert.Equal(t, int64(-3), mv.QuantityDelta)
	assert.Equal(t, session.ID, mv.RecorderID)

	assert.Equal(t, int64(7), stockRepo.qty(p1))
	assert.Equal(t, int64(5), stockRepo.qty(p2))
	assert.Equal(t, int64(2), stockRepo.qty(p3))
}

func TestComplete_StoresValueAggregates(t *testing.T) {
	p1, p2 := id.New(), id.New()
	svc, _, stockRepo, source := newTestService(p1, p2)
	ctx := context.Background()
	stockRepo.set(p1, 10)
	stockRepo.set(p2, 4)
	source.costs[p1] = types.MustMoney("2.50")
	source.costs[p2] = types.MustMoney("1.00")

	session, err := svc.Create(ctx, CreateInput{Name: "Valued count"})
	require.NoError(t, err)
	_, err = svc.Start(ctx, session.ID)
	require.NoError(t, err)

	// p1 short by 3 at 2.50 each; p2 never counted
	_, err = svc.RecordCount(ctx, session.ID, p1, 7, "")
	require.NoError(t, err)

	completed, err := svc.Complete(ctx, session.ID)
	require.NoError(t, err)

	// Expected stock value: 10*2.50 + 4*1.00
	assert.True(t, types.MustMoney("29.00").Equal(completed.TotalValue), "got %s", completed.TotalValue)
	// Shrinkage: -3 * 2.50; the uncounted line contributes nothing
	assert.True(t, types.MustMoney("-7.50").Equal(completed.DiscrepancyValue), "got %s", completed.DiscrepancyValue)
}

func TestComplete_WithoutAutoAdjust(t *testing.T) {
	p1 := id.New()
	svc, _, stockRepo, _ := newTestService(p1)
	ctx := context.Background()
	stockRepo.set(p1, 10)

	session, err := svc.Create(ctx, CreateInput{Name: "Report only"})
	require.NoError(t, err)
	_, err = svc.Start(ctx, session.ID)
	require.NoError(t, err)
	_, err = svc.RecordCount(ctx, session.ID, p1, 4, "")
	require.NoError(t, err)

	_, err = svc.Complete(ctx, session.ID)
	require.NoError(t, err)

	assert.Empty(t, stockRepo.movements)
	assert.Equal(t, int64(10), stockRepo.qty(p1))
}

func TestComplete_NoCountsIsClean(t *testing.T) {
	p1 := id.New()
	svc, _, stockRepo, source := newTestService(p1)
	ctx := context.Background()
	stockRepo.set(p1, 6)
	source.costs[p1] = types.MustMoney("3.00")

	session, err := svc.Create(ctx, CreateInput{Name: "Abandoned count", AutoAdjust: true})
	require.NoError(t, err)
	_, err = svc.Start(ctx, session.ID)
	require.NoError(t, err)

	// Nobody recorded a single count before completion
	completed, err := svc.Complete(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, SessionCompleted, completed.Status)
	assert.Equal(t, 1, completed.TotalItems)
	assert.Equal(t, 0, completed.CountedItems)
	assert.Equal(t, 0, completed.DiscrepancyItems)

	// The expected value is still reported; nothing counts as shrinkage
	assert.True(t, types.MustMoney("18.00").Equal(completed.TotalValue))
	assert.True(t, completed.DiscrepancyValue.IsZero())

	// Auto-adjust has nothing to do: no movements, balances untouched
	assert.Empty(t, stockRepo.movements)
	assert.Equal(t, int64(6), stockRepo.qty(p1))
}

func TestCancel(t *testing.T) {
	p1 := id.New()
	svc, _, stockRepo, _ := newTestService(p1)
	ctx := context.Background()
	stockRepo.set(p1, 10)

	// Planned sessions cancel directly
	planned, err := svc.Create(ctx, CreateInput{Name: "Planned"})
	require.NoError(t, err)
	got, err := svc.Cancel(ctx, planned.ID)
	require.NoError(t, err)
	assert.Equal(t, SessionCancelled, got.Status)

	// In-progress sessions cancel without ledger writes
	inProgress, err := svc.Create(ctx, CreateInput{Name: "In progress", AutoAdjust: true})
	require.NoError(t, err)
	_, err = svc.Start(ctx, inProgress.ID)
	require.NoError(t, err)
	_, err = svc.RecordCount(ctx, inProgress.ID, p1, 3, "")
	require.NoError(t, err)

	got, err = svc.Cancel(ctx, inProgress.ID)
	require.NoError(t, err)
	assert.Equal(t, SessionCancelled, got.Status)
	assert.Empty(t, stockRepo.movements)

	// Cancelled sessions cannot complete
	_, err = svc.Complete(ctx, inProgress.ID)
	assert.Error(t, err)
}
