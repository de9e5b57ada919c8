package purchasing

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

// Service provides the purchase order workflow.
type Service struct {
	repo      Repository
	ledger    *stock.Service
	txManager tx.Manager
	numerator numerator.Generator
}

// NewService creates a new purchasing service.
func NewService(repo Repository, ledger *stock.Service, txManager tx.Manager, gen numerator.Generator) *Service {
	return &Service{
		repo:      repo,
		ledger:    ledger,
		txManager: txManager,
		numerator: gen,
	}
}

// ComposeInput describes a purchase order to create.
type ComposeInput struct {
	SupplierName string
	Comment      string
	ExpectedDate *time.Time

	Lines []ComposeLine
}

// ComposeLine is one requested item.
type ComposeLine struct {
	ProductID id.ID
	VariantID *id.ID
	Quantity  int64
	UnitCost  types.Money
}

// Compose creates a draft purchase order with priced lines.
func (s *Service) Compose(ctx context.Context, input ComposeInput) (*Order, error) {
	if len(input.Lines) == 0 {
		return nil, apperror.NewValidation("purchase order requires at least one line")
	}

	order := NewOrder(input.SupplierName)
	order.Comment = input.Comment
	order.ExpectedDate = input.ExpectedDate
	order.CreatedBy = appctx.GetUserID(ctx)

	lines := make([]Line, 0, len(input.Lines))
	for _, in := range input.Lines {
		line := Line{
			ID:        id.New(),
			OrderID:   order.ID,
			ProductID: in.ProductID,
			VariantID: in.VariantID,
			Quantity:  in.Quantity,
			UnitCost:  in.UnitCost,
		}
		if err := line.Validate(); err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}

	recalculate(order, lines)

	if err := order.Validate(ctx); err != nil {
		return nil, err
	}

	number, err := s.numerator.GetNextNumber(ctx, numerator.DefaultConfig("PO"), nil, time.Now())
	if err != nil {
		return nil, fmt.Errorf("generate number: %w", err)
	}
	order.Number = number

	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		return s.repo.CreateWithLines(ctx, order, lines)
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "purchase order composed",
		"number", order.Number,
		"supplier", order.SupplierName,
		"lines", len(lines),
	)

	return order, nil
}

// Submit sends a draft order to the supplier.
func (s *Service) Submit(ctx context.Context, orderID id.ID) (*Order, error) {
	return s.transition(ctx, orderID, StatusDraft, StatusOrdered, nil)
}

// Receive books an ordered purchase into stock: one inbound ledger movement
// per line, atomically with the status change.
func (s *Service) Receive(ctx context.Context, orderID id.ID) (*Order, error) {
	var order *Order

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		current, err := s.repo.GetByID(ctx, orderID)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		userID := appctx.GetUserID(ctx)
		moved, err := s.repo.TransitionStatus(ctx, orderID, StatusOrdered, StatusReceived, map[string]any{
			"received_at": now,
			"received_by": userID,
		})
		if err != nil {
			return err
		}
		if !moved {
			return apperror.NewInvalidTransition("purchase order", string(current.Status), string(StatusReceived))
		}

		lines, err := s.repo.GetLines(ctx, orderID)
		if err != nil {
			return err
		}

		for _, line := range lines {
			m := stock.NewMovement(line.ProductID, stock.TypePurchase, line.Quantity)
			m.VariantID = line.VariantID
			m.Reason = "purchase " + current.Number
			m.RecorderType = "purchase_order"
			m.RecorderID = orderID
			if _, err := s.ledger.RecordMovement(ctx, m); err != nil {
				return err
			}
		}

		order, err = s.repo.GetByID(ctx, orderID)
		return err
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "purchase order received",
		"number", order.Number,
		"supplier", order.SupplierName,
	)

	return order, nil
}

// Cancel abandons a draft or ordered purchase. Received orders cannot be
// cancelled; corrections go through adjustments.
func (s *Service) Cancel(ctx context.Context, orderID id.ID) (*Order, error) {
	var order *Order

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		current, err := s.repo.GetByID(ctx, orderID)
		if err != nil {
			return err
		}

		for _, from := range []Status{StatusDraft, StatusOrdered} {
			moved, err := s.repo.TransitionStatus(ctx, orderID, from, StatusCancelled, nil)
			if err != nil {
				return err
			}
			if moved {
				order, err = s.repo.GetByID(ctx, orderID)
				return err
			}
		}
		return apperror.NewInvalidTransition("purchase order", string(current.Status), string(StatusCancelled))
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "purchase order cancelled", "number", order.Number)

	return order, nil
}

func (s *Service) transition(ctx context.Context, orderID id.ID, from, to Status, extraSet map[string]any) (*Order, error) {
	var order *Order

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		current, err := s.repo.GetByID(ctx, orderID)
		if err != nil {
			return err
		}

		moved, err := s.repo.TransitionStatus(ctx, orderID, from, to, extraSet)
		if err != nil {
			return err
		}
		if !moved {
			return apperror.NewInvalidTransition("purchase order", string(current.Status), string(to))
		}

		order, err = s.repo.GetByID(ctx, orderID)
		return err
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "purchase order status changed", "number", order.Number, "status", order.Status)

	return order, nil
}

// GetByID retrieves a purchase order.
func (s *Service) GetByID(ctx context.Context, orderID id.ID) (*Order, error) {
	return s.repo.GetByID(ctx, orderID)
}

// GetLines returns the order's lines.
func (s *Service) GetLines(ctx context.Context, orderID id.ID) ([]Line, error) {
	return s.repo.GetLines(ctx, orderID)
}

// List retrieves purchase orders with filtering.
func (s *Service) List(ctx context.Context, filter ListFilter) (domain.ListResult[*Order], error) {
	return s.repo.List(ctx, filter)
}
