package stockcount

import (
	"context"
	"fmt"
	"time"

	"retailcore/internal/core/apperror"
	appctx "retailcore/internal/core/context"
	"retailcore/internal/core/id"
	"retailcore/internal/core/numerator"
	"retailcore/internal/core/tx"
	"retailcore/internal/core/types"
	"retailcore/internal/domain"
	"retailcore/internal/domain/stock"
	"retailcore/pkg/logger"
)

// ProductSource supplies the product scope and cost snapshots for a
// counting session.
type ProductSource interface {
	// ScopeIDs returns IDs of products in scope, optionally limited to a
	// category subtree. Inactive products are included only on request.
	ScopeIDs(ctx context.Context, categoryID *string, includeInactive bool) ([]id.ID, error)

	// UnitCosts returns the current purchase cost per product.
	UnitCosts(ctx context.Context, productIDs []id.ID) (map[id.ID]types.Money, error)
}

// Service provides the physical inventory counting workflow.
type Service struct {
	repo      Repository
	products  ProductSource
	ledger    *stock.Service
	txManager tx.Manager
	numerator numerator.Generator
}

// NewService creates a new stock count service.
func NewService(repo Repository, products ProductSource, ledger *stock.Service, txManager tx.Manager, gen numerator.Generator) *Service {
	return &Service{
		repo:      repo,
		products:  products,
		ledger:    ledger,
		txManager: txManager,
		numerator: gen,
	}
}

// CreateInput describes a counting session to plan. AutoAdjust and the scope
// settings are fixed at planning time and drive Start and Complete later.
type CreateInput struct {
	Name            string
	CategoryID      *string
	IncludeInactive bool
	AutoAdjust      bool
	Comment         string
}

// Create files a planned counting session. No snapshot is taken yet.
func (s *Service) Create(ctx context.Context, input CreateInput) (*Session, error) {
	session := NewSession(input.Name)
	session.CategoryID = input.CategoryID
	session.IncludeInactive = input.IncludeInactive
	session.AutoAdjust = input.AutoAdjust
	session.Comment = input.Comment
	session.CreatedBy = appctx.GetUserID(ctx)

	if err := session.Validate(ctx); err != nil {
		return nil, err
	}

	number, err := s.numerator.GetNextNumber(ctx, numerator.DefaultConfig("CNT"), nil, time.Now())
	if err != nil {
		return nil, fmt.Errorf("generate number: %w", err)
	}
	session.Number = number

	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		return s.repo.Create(ctx, session)
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "counting session created", "number", session.Number)

	return session, nil
}

// Start moves a planned session to in_progress and snapshots the expected
// quantity and unit cost of every product in scope. Products with no
// recorded movements snapshot at zero, so a count against them still
// surfaces discrepancies.
func (s *Service) Start(ctx context.Context, sessionID id.ID) (*Session, error) {
	var session *Session
	var scopeSize int

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		current, err := s.repo.GetByID(ctx, sessionID)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		userID := appctx.GetUserID(ctx)
		moved, err := s.repo.TransitionStatus(ctx, sessionID, SessionPlanned, SessionInProgress, map[string]any{
			"started_at": now,
			"started_by": userID,
		})
		if err != nil {
			return err
		}
		if !moved {
			return apperror.NewInvalidTransition("stock count session", string(current.Status), string(SessionInProgress))
		}

		productIDs, err := s.products.ScopeIDs(ctx, current.CategoryID, current.IncludeInactive)
		if err != nil {
			return fmt.Errorf("resolve product scope: %w", err)
		}
		if len(productIDs) == 0 {
			return apperror.NewBusinessRule("EMPTY_SCOPE", "no products in session scope")
		}

		onHand, err := s.ledger.GetOnHandBatch(ctx, productIDs)
		if err != nil {
			return fmt.Errorf("snapshot balances: %w", err)
		}

		costs, err := s.products.UnitCosts(ctx, productIDs)
		if err != nil {
			return fmt.Errorf("snapshot costs: %w", err)
		}

		items := make([]Item, 0, len(productIDs))
		for _, pid := range productIDs {
			items = append(items, NewItem(sessionID, pid, onHand[pid], costs[pid]))
		}
		if err := s.repo.InsertItems(ctx, items); err != nil {
			return fmt.Errorf("insert items: %w", err)
		}
		scopeSize = len(items)

		session, err = s.repo.GetByID(ctx, sessionID)
		return err
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "counting session started",
		"number", session.Number,
		"products", scopeSize,
	)

	return session, nil
}

// RecordCount stores the physical count for one product. Counting the same
// product again overwrites the previous count while the session is open.
func (s *Service) RecordCount(ctx context.Context, sessionID, productID id.ID, counted int64, notes string) (*Item, error) {
	if counted < 0 {
		return nil, apperror.NewValidation("counted quantity cannot be negative").
			WithDetail("field", "countedQuantity")
	}

	var item *Item
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		session, err := s.repo.GetByID(ctx, sessionID)
		if err != nil {
			return err
		}
		if !session.IsOpen() {
			return apperror.NewBusinessRule("SESSION_NOT_OPEN",
				fmt.Sprintf("cannot record counts in %s session", session.Status))
		}

		item, err = s.repo.GetItem(ctx, sessionID, productID)
		if err != nil {
			return err
		}

		item.RecordCount(counted, appctx.GetUserID(ctx), time.Now().UTC())
		if notes != "" {
			item.Notes = &notes
		}

		return s.repo.UpdateItem(ctx, item)
	})
	if err != nil {
		return nil, err
	}

	return item, nil
}

// VerifyItem confirms that a recorded count was double-checked. The
// discrepancy value is left as is.
func (s *Service) VerifyItem(ctx context.Context, sessionID, productID id.ID) (*Item, error) {
	var item *Item
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		session, err := s.repo.GetByID(ctx, sessionID)
		if err != nil {
			return err
		}
		if !session.IsOpen() {
			return apperror.NewBusinessRule("SESSION_NOT_OPEN",
				fmt.Sprintf("cannot verify items in %s session", session.Status))
		}

		item, err = s.repo.GetItem(ctx, sessionID, productID)
		if err != nil {
			return err
		}
		if item.Status != ItemCounted && item.Status != ItemDiscrepancy {
			return apperror.NewInvalidTransition("stock count item", string(item.Status), string(ItemVerified))
		}

		now := time.Now().UTC()
		userID := appctx.GetUserID(ctx)
		item.Status = ItemVerified
		item.VerifiedBy = &userID
		item.VerifiedAt = &now

		return s.repo.UpdateItem(ctx, item)
	})
	if err != nil {
		return nil, err
	}

	return item, nil
}

// Complete closes an in-progress session and stores its aggregates. When
// the session was planned with auto-adjust, every counted difference is
// written through the stock ledger so on-hand quantities land on the counted
// values. Lines never counted are left alone.
func (s *Service) Complete(ctx context.Context, sessionID id.ID) (*Session, error) {
	var session *Session

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		current, err := s.repo.GetByID(ctx, sessionID)
		if err != nil {
			return err
		}

		counts, err := s.repo.CountItems(ctx, sessionID)
		if err != nil {
			return fmt.Errorf("count items: %w", err)
		}

		now := time.Now().UTC()
		userID := appctx.GetUserID(ctx)
		moved, err := s.repo.TransitionStatus(ctx, sessionID, SessionInProgress, SessionCompleted, map[string]any{
			"completed_at":      now,
			"completed_by":      userID,
			"total_items":       counts.Total,
			"counted_items":     counts.Counted,
			"discrepancy_items": counts.Discrepancy,
			"total_value":       counts.TotalValue,
			"discrepancy_value": counts.DiscrepancyValue,
		})
		if err != nil {
			return err
		}
		if !moved {
			return apperror.NewInvalidTransition("stock count session", string(current.Status), string(SessionCompleted))
		}

		if current.AutoAdjust {
			items, err := s.repo.ListItems(ctx, sessionID, []ItemStatus{ItemDiscrepancy, ItemVerified})
			if err != nil {
				return fmt.Errorf("list discrepancies: %w", err)
			}
			for _, item := range items {
				diff := item.Difference()
				if diff == 0 {
					continue
				}
				m := stock.NewMovement(item.ProductID, stock.TypeAdjustment, diff)
				m.VariantID = item.VariantID
				m.Reason = "stock count " + current.Number
				m.RecorderType = "stock_count"
				m.RecorderID = sessionID
				if _, err := s.ledger.RecordMovement(ctx, m); err != nil {
					return fmt.Errorf("adjust product %s: %w", item.ProductID, err)
				}
			}
		}

		session, err = s.repo.GetByID(ctx, sessionID)
		return err
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "counting session completed",
		"number", session.Number,
		"counted", session.CountedItems,
		"discrepancies", session.DiscrepancyItems,
		"discrepancy_value", session.DiscrepancyValue,
		"auto_adjust", session.AutoAdjust,
	)

	return session, nil
}

// Cancel abandons a planned or in-progress session. Recorded counts stay in
// the database for audit but never reach the ledger.
func (s *Service) Cancel(ctx context.Context, sessionID id.ID) (*Session, error) {
	var session *Session

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		current, err := s.repo.GetByID(ctx, sessionID)
		if err != nil {
			return err
		}

		for _, from := range []SessionStatus{SessionPlanned, SessionInProgress} {
			moved, err := s.repo.TransitionStatus(ctx, sessionID, from, SessionCancelled, nil)
			if err != nil {
				return err
			}
			if moved {
				session, err = s.repo.GetByID(ctx, sessionID)
				return err
			}
		}
		return apperror.NewInvalidTransition("stock count session", string(current.Status), string(SessionCancelled))
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "counting session cancelled", "number", session.Number)

	return session, nil
}

// GetByID retrieves a session.
func (s *Service) GetByID(ctx context.Context, sessionID id.ID) (*Session, error) {
	return s.repo.GetByID(ctx, sessionID)
}

// List retrieves sessions with filtering.
func (s *Service) List(ctx context.Context, filter ListFilter) (domain.ListResult[*Session], error) {
	return s.repo.List(ctx, filter)
}

// ListItems returns session lines, optionally narrowed by status.
func (s *Service) ListItems(ctx context.Context, sessionID id.ID, statuses []ItemStatus) ([]Item, error) {
	return s.repo.ListItems(ctx, sessionID, statuses)
}
