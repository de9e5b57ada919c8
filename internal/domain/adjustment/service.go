package adjustment

import (
	"context"
	"fmt"
	"time"

	"retailcore/internal/core/apperror"
	appctx "retailcore/internal/core/context"
	"retailcore/internal/core/id"
	"retailcore/internal/core/numerator"
	"retailcore/internal/core/tx"
	"retailcore/internal/domain"
	"retailcore/internal/domain/stock"
	"retailcore/pkg/logger"
)

// Service provides the adjustment review workflow.
type Service struct {
	repo      Repository
	ledger    *stock.Service
	txManager tx.Manager
	numerator numerator.Generator
}

// NewService creates a new adjustment service.
func NewService(repo Repository, ledger *stock.Service, txManager tx.Manager, gen numerator.Generator) *Service {
	return &Service{
		repo:      repo,
		ledger:    ledger,
		txManager: txManager,
		numerator: gen,
	}
}

// Create snapshots the current on-hand quantity and files a pending
// adjustment proposing newQuantity. A variant narrows the correction to that
// variant's counter.
func (s *Service) Create(ctx context.Context, productID id.ID, variantID *id.ID, newQuantity int64, reason Reason, notes string) (*Adjustment, error) {
	onHand, err := s.ledger.GetOnHand(ctx, stock.NewRef(productID, variantID))
	if err != nil {
		return nil, err
	}

	adj := New(productID, onHand, newQuantity, reason)
	adj.VariantID = variantID
	adj.Notes = notes
	adj.CreatedBy = appctx.GetUserID(ctx)

	if err := adj.Validate(ctx); err != nil {
		return nil, err
	}

	number, err := s.numerator.GetNextNumber(ctx, numerator.DefaultConfig("ADJ"), nil, time.Now())
	if err != nil {
		return nil, fmt.Errorf("generate number: %w", err)
	}
	adj.Number = number

	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		return s.repo.Create(ctx, adj)
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "adjustment created",
		"number", adj.Number,
		"product_id", adj.ProductID,
		"difference", adj.QuantityDifference,
	)

	return adj, nil
}

// Approve applies a pending adjustment. The signed quantity difference is
// recorded through the stock ledger, so a concurrent sale between creation
// and approval is preserved rather than overwritten. Only pending
// adjustments can be approved; the status transition and the ledger write
// commit atomically.
func (s *Service) Approve(ctx context.Context, adjustmentID id.ID, comment string) (*Adjustment, error) {
	var adj *Adjustment

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		current, err := s.repo.GetByID(ctx, adjustmentID)
		if err != nil {
			return err
		}

		reviewer := appctx.GetUserID(ctx)
		moved, err := s.repo.TransitionStatus(ctx, adjustmentID, StatusPending, StatusApproved, reviewer, comment)
		if err != nil {
			return err
		}
		if !moved {
			return apperror.NewInvalidTransition("adjustment", string(current.Status), string(StatusApproved))
		}

		if current.QuantityDifference != 0 {
			m := stock.NewMovement(current.ProductID, stock.TypeAdjustment, current.QuantityDifference)
			m.VariantID = current.VariantID
			m.Reason = string(current.Reason)
			m.RecorderType = "adjustment"
			m.RecorderID = current.ID
			if _, err := s.ledger.RecordMovement(ctx, m); err != nil {
				return err
			}
		}

		adj, err = s.repo.GetByID(ctx, adjustmentID)
		return err
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "adjustment approved",
		"number", adj.Number,
		"product_id", adj.ProductID,
		"difference", adj.QuantityDifference,
	)

	return adj, nil
}

// Reject declines a pending adjustment. Stock is untouched.
func (s *Service) Reject(ctx context.Context, adjustmentID id.ID, comment string) (*Adjustment, error) {
	var adj *Adjustment

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		current, err := s.repo.GetByID(ctx, adjustmentID)
		if err != nil {
			return err
		}

		reviewer := appctx.GetUserID(ctx)
		moved, err := s.repo.TransitionStatus(ctx, adjustmentID, StatusPending, StatusRejected, reviewer, comment)
		if err != nil {
			return err
		}
		if !moved {
			return apperror.NewInvalidTransition("adjustment", string(current.Status), string(StatusRejected))
		}

		adj, err = s.repo.GetByID(ctx, adjustmentID)
		return err
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "adjustment rejected", "number", adj.Number)

	return adj, nil
}

// GetByID retrieves an adjustment.
func (s *Service) GetByID(ctx context.Context, adjustmentID id.ID) (*Adjustment, error) {
	return s.repo.GetByID(ctx, adjustmentID)
}

// List retrieves adjustments with filtering.
func (s *Service) List(ctx context.Context, filter ListFilter) (domain.ListResult[*Adjustment], error) {
	return s.repo.List(ctx, filter)
}

// CountPending returns the review backlog size.
func (s *Service) CountPending(ctx context.Context) (int64, error) {
	return s.repo.CountPending(ctx)
}
