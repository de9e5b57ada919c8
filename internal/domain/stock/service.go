package stock

import (
	"context"
	"fmt"

	appctx "retailcore/internal/core/context"
	"retailcore/internal/core/id"
	"retailcore/internal/core/tx"
	"retailcore/pkg/logger"
)

// Service is the single entry point for stock mutations. Documents never
// touch balances directly: they produce Movements and hand them here.
type Service struct {
	repo      Repository
	txManager tx.Manager
}

// NewService creates a new stock ledger service.
func NewService(repo Repository, txManager tx.Manager) *Service {
	return &Service{
		repo:      repo,
		txManager: txManager,
	}
}

// RecordMovement appends a ledger entry and applies its delta to the balance
// in one transaction. The balance may go negative: an oversold product is a
// representable state, surfaced through the low-stock predicates rather than
// rejected here. Returns the resulting on-hand quantity.
func (s *Service) RecordMovement(ctx context.Context, m Movement) (int64, error) {
	if err := m.Validate(ctx); err != nil {
		return 0, err
	}

	if m.CreatedBy == "" {
		m.CreatedBy = appctx.GetUserID(ctx)
	}

	var newQty int64
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.repo.InsertMovement(ctx, m); err != nil {
			return fmt.Errorf("insert movement: %w", err)
		}

		qty, err := s.repo.ApplyDelta(ctx, m.Ref(), m.QuantityDelta)
		if err != nil {
			return fmt.Errorf("apply delta: %w", err)
		}
		newQty = qty
		return nil
	})
	if err != nil {
		return 0, err
	}

	logger.Info(ctx, "stock movement recorded",
		"product_id", m.ProductID,
		"variant_id", m.VariantID,
		"type", m.Type,
		"delta", m.QuantityDelta,
		"on_hand", newQty,
	)

	return newQty, nil
}

// RecordMovements records a batch of movements atomically. Either every
// entry applies or none do.
func (s *Service) RecordMovements(ctx context.Context, movements []Movement) error {
	if len(movements) == 0 {
		return nil
	}

	return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		for _, m := range movements {
			if _, err := s.RecordMovement(ctx, m); err != nil {
				return err
			}
		}
		return nil
	})
}

// GetOnHand returns the current on-hand quantity for one counter.
func (s *Service) GetOnHand(ctx context.Context, ref Ref) (int64, error) {
	balance, err := s.repo.GetBalance(ctx, ref)
	if err != nil {
		return 0, fmt.Errorf("get balance: %w", err)
	}
	return balance.Quantity, nil
}

// GetOnHandBatch returns base-product on-hand quantities for multiple
// products.
func (s *Service) GetOnHandBatch(ctx context.Context, productIDs []id.ID) (map[id.ID]int64, error) {
	return s.repo.GetBalances(ctx, productIDs)
}

// GetHistory returns the movement journal for a product.
func (s *Service) GetHistory(ctx context.Context, productID id.ID, filter MovementFilter) ([]Movement, error) {
	return s.repo.GetMovementHistory(ctx, productID, filter)
}

// GetTurnover calculates inbound/outbound totals for a period.
func (s *Service) GetTurnover(ctx context.Context, filter TurnoverFilter) (Turnover, error) {
	return s.repo.GetTurnover(ctx, filter)
}

// Drift describes a counter whose materialized balance disagrees with the
// ledger sum.
type Drift struct {
	ProductID id.ID  `json:"productId"`
	VariantID *id.ID `json:"variantId,omitempty"`
	LedgerSum int64  `json:"ledgerSum"`
	Balance   int64  `json:"balance"`
}

// Reconcile compares materialized balances against the ledger sum and
// repairs any drift, treating the ledger as the source of truth. Variant
// counters are checked alongside base counters.
// Returns the drifts found (empty when everything agreed).
func (s *Service) Reconcile(ctx context.Context, productIDs []id.ID) ([]Drift, error) {
	var drifts []Drift

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		sums, err := s.repo.SumMovements(ctx, productIDs)
		if err != nil {
			return fmt.Errorf("sum movements: %w", err)
		}

		balances, err := s.repo.ListBalances(ctx, productIDs)
		if err != nil {
			return fmt.Errorf("list balances: %w", err)
		}

		// A counter can exist on either side only: a balance row with no
		// movements, or movements never materialized into a row.
		refs := make(map[Ref]struct{}, len(sums)+len(balances))
		for ref := range sums {
			refs[ref] = struct{}{}
		}
		for ref := range balances {
			refs[ref] = struct{}{}
		}

		for ref := range refs {
			ledgerSum := sums[ref]
			balance := balances[ref]
			if ledgerSum == balance {
				continue
			}

			drifts = append(drifts, Drift{
				ProductID: ref.ProductID,
				VariantID: ref.Variant(),
				LedgerSum: ledgerSum,
				Balance:   balance,
			})

			if err := s.repo.SetBalance(ctx, ref, ledgerSum); err != nil {
				return fmt.Errorf("repair balance for %s: %w", ref.ProductID, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, d := range drifts {
		logger.Warn(ctx, "stock balance drift repaired",
			"product_id", d.ProductID,
			"variant_id", d.VariantID,
			"ledger_sum", d.LedgerSum,
			"stale_balance", d.Balance,
		)
	}

	return drifts, nil
}
