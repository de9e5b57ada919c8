package sales

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
	"retailcore/internal/domain/promotion"
	"retailcore/internal/domain/stock"
	"retailcore/pkg/logger"
)

// Service provides the sale workflow: compose a priced sale, complete it
// against the stock ledger, or return it.
type Service struct {
	repo       Repository
	ledger     *stock.Service
	promotions *promotion.Service
	txManager  tx.Manager
	numerator  numerator.Generator
}

// NewService creates a new sales service.
func NewService(repo Repository, ledger *stock.Service, promotions *promotion.Service, txManager tx.Manager, gen numerator.Generator) *Service {
	return &Service{
		repo:       repo,
		ledger:     ledger,
		promotions: promotions,
		txManager:  txManager,
		numerator:  gen,
	}
}

// ComposeInput describes a sale to create.
type ComposeInput struct {
	CustomerName string
	Comment      string

	// PromoCode unlocks a code-gated promotion for eligible lines
	PromoCode string

	Lines []ComposeLine
}

// ComposeLine is one requested item.
type ComposeLine struct {
	ProductID id.ID
	VariantID *id.ID
	Quantity  int64
	UnitPrice types.Money
}

// Compose prices the requested lines, consulting the promotion engine per
// line, and stores the sale as open. Stock is untouched until Complete.
func (s *Service) Compose(ctx context.Context, input ComposeInput) (*Sale, error) {
	if len(input.Lines) == 0 {
		return nil, apperror.NewValidation("sale requires at least one line")
	}

	sale := NewSale()
	sale.CustomerName = input.CustomerName
	sale.Comment = input.Comment
	sale.CreatedBy = appctx.GetUserID(ctx)

	var promo *promotion.Promotion
	if input.PromoCode != "" {
		p, err := s.promotions.ValidatePromoCode(ctx, input.PromoCode)
		if err != nil {
			return nil, err
		}
		promo = p
		sale.PromoCode = &input.PromoCode
	}

	lines := make([]Line, 0, len(input.Lines))
	saleTotal := types.Zero()
	for _, in := range input.Lines {
		line := Line{
			ID:        id.New(),
			SaleID:    sale.ID,
			ProductID: in.ProductID,
			VariantID: in.VariantID,
			Quantity:  in.Quantity,
			UnitPrice: in.UnitPrice,
			Discount:  types.Zero(),
		}
		if err := line.Validate(); err != nil {
			return nil, err
		}
		saleTotal = saleTotal.Add(line.GrossTotal())
		lines = append(lines, line)
	}

	if promo != nil {
		for i := range lines {
			discount, err := s.promotions.CalculateDiscount(ctx, promo.ID, promotion.Line{
				ProductID: lines[i].ProductID,
				VariantID: lines[i].VariantID,
				Quantity:  lines[i].Quantity,
				UnitPrice: lines[i].UnitPrice,
				SaleTotal: saleTotal,
			})
			if err != nil {
				return nil, err
			}
			if discount.IsPositive() {
				lines[i].PromotionID = &promo.ID
				lines[i].Discount = discount
			}
		}
	}

	recalculate(sale, lines)

	if err := sale.Validate(ctx); err != nil {
		return nil, err
	}

	number, err := s.numerator.GetNextNumber(ctx, numerator.DefaultConfig("SALE"), nil, time.Now())
	if err != nil {
		return nil, fmt.Errorf("generate number: %w", err)
	}
	sale.Number = number

	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		return s.repo.CreateWithLines(ctx, sale, lines)
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "sale composed",
		"number", sale.Number,
		"lines", len(lines),
		"total", sale.Total,
	)

	return sale, nil
}

// Complete finalizes an open sale: one outbound ledger movement per line and
// one usage record per granted discount, all in a single transaction.
// Selling past the on-hand quantity is allowed; the counter goes negative
// and the product surfaces as out of stock.
func (s *Service) Complete(ctx context.Context, saleID id.ID) (*Sale, error) {
	var sale *Sale

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		current, err := s.repo.GetByID(ctx, saleID)
		if err != nil {
			return err
		}

		moved, err := s.repo.TransitionStatus(ctx, saleID, StatusOpen, StatusCompleted)
		if err != nil {
			return err
		}
		if !moved {
			return apperror.NewInvalidTransition("sale", string(current.Status), string(StatusCompleted))
		}

		lines, err := s.repo.GetLines(ctx, saleID)
		if err != nil {
			return err
		}

		for _, line := range lines {
			m := stock.NewMovement(line.ProductID, stock.TypeSale, -line.Quantity)
			m.VariantID = line.VariantID
			m.Reason = "sale " + current.Number
			m.RecorderType = "sale"
			m.RecorderID = saleID
			if _, err := s.ledger.RecordMovement(ctx, m); err != nil {
				return err
			}

			if line.PromotionID != nil && line.Discount.IsPositive() {
				if _, err := s.promotions.Apply(ctx, *line.PromotionID, saleID, line.Discount, current.PromoCode); err != nil {
					return err
				}
			}
		}

		sale, err = s.repo.GetByID(ctx, saleID)
		return err
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "sale completed", "number", sale.Number, "total", sale.Total)

	return sale, nil
}

// Cancel abandons an open sale. Stock was never touched.
func (s *Service) Cancel(ctx context.Context, saleID id.ID) (*Sale, error) {
	var sale *Sale

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		current, err := s.repo.GetByID(ctx, saleID)
		if err != nil {
			return err
		}

		moved, err := s.repo.TransitionStatus(ctx, saleID, StatusOpen, StatusCancelled)
		if err != nil {
			return err
		}
		if !moved {
			return apperror.NewInvalidTransition("sale", string(current.Status), string(StatusCancelled))
		}

		sale, err = s.repo.GetByID(ctx, saleID)
		return err
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "sale cancelled", "number", sale.Number)

	return sale, nil
}

// Return reverses a completed sale: every line comes back into stock as an
// inbound return movement.
func (s *Service) Return(ctx context.Context, saleID id.ID) (*Sale, error) {
	var sale *Sale

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		current, err := s.repo.GetByID(ctx, saleID)
		if err != nil {
			return err
		}

		moved, err := s.repo.TransitionStatus(ctx, saleID, StatusCompleted, StatusReturned)
		if err != nil {
			return err
		}
		if !moved {
			return apperror.NewInvalidTransition("sale", string(current.Status), string(StatusReturned))
		}

		lines, err := s.repo.GetLines(ctx, saleID)
		if err != nil {
			return err
		}

		for _, line := range lines {
			m := stock.NewMovement(line.ProductID, stock.TypeReturn, line.Quantity)
			m.VariantID = line.VariantID
			m.Reason = "return of sale " + current.Number
			m.RecorderType = "sale_return"
			m.RecorderID = saleID
			if _, err := s.ledger.RecordMovement(ctx, m); err != nil {
				return err
			}
		}

		sale, err = s.repo.GetByID(ctx, saleID)
		return err
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "sale returned", "number", sale.Number)

	return sale, nil
}

// GetByID retrieves a sale.
func (s *Service) GetByID(ctx context.Context, saleID id.ID) (*Sale, error) {
	return s.repo.GetByID(ctx, saleID)
}

// GetLines returns the sale's lines.
func (s *Service) GetLines(ctx context.Context, saleID id.ID) ([]Line, error) {
	return s.repo.GetLines(ctx, saleID)
}

// List retrieves sales with filtering.
func (s *Service) List(ctx context.Context, filter ListFilter) (domain.ListResult[*Sale], error) {
	return s.repo.List(ctx, filter)
}
