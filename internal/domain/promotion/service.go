package promotion

import (
	"context"
	"time"

	"retailcore/internal/core/apperror"
	appctx "retailcore/internal/core/context"
	"retailcore/internal/core/id"
	"retailcore/internal/core/tx"
	"retailcore/internal/core/types"
	"retailcore/internal/domain"
	"retailcore/pkg/logger"
)

// Service provides promotion management and the per-line discount engine.
type Service struct {
	repo      Repository
	txManager tx.Manager
	cache     Cache

	// now is swapped in tests to pin the eligibility window
	now func() time.Time
}

// NewService creates a new promotion service.
func NewService(repo Repository, txManager tx.Manager) *Service {
	return &Service{
		repo:      repo,
		txManager: txManager,
		now:       time.Now,
	}
}

// WithCache attaches a read-through cache for promotion lookups.
func (s *Service) WithCache(c Cache) *Service {
	s.cache = c
	return s
}

// getByID reads through the cache when one is attached.
func (s *Service) getByID(ctx context.Context, promotionID id.ID) (*Promotion, error) {
	if s.cache != nil {
		if p, ok := s.cache.GetByID(ctx, promotionID.String()); ok {
			return p, nil
		}
	}

	p, err := s.repo.GetByID(ctx, promotionID)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		s.cache.Put(ctx, p)
	}
	return p, nil
}

func (s *Service) invalidate(ctx context.Context, p *Promotion) {
	if s.cache != nil && p != nil {
		s.cache.Invalidate(ctx, p)
	}
}

// Create files a draft promotion. Promo codes are checked for global
// uniqueness here, not at lookup time.
func (s *Service) Create(ctx context.Context, p *Promotion) error {
	if p.Status == "" {
		p.Status = StatusDraft
	}
	p.CreatedBy = appctx.GetUserID(ctx)

	if err := p.Validate(ctx); err != nil {
		return err
	}

	if p.PromoCode != nil && *p.PromoCode != "" {
		exists, err := s.repo.PromoCodeExists(ctx, *p.PromoCode, nil)
		if err != nil {
			return err
		}
		if exists {
			return apperror.NewDuplicate("promotion", "promo code", *p.PromoCode)
		}
	}

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		return s.repo.Create(ctx, p)
	})
	if err != nil {
		return err
	}

	logger.Info(ctx, "promotion created", "name", p.Name, "type", p.Type)

	return nil
}

// Update saves promotion changes. Terminal promotions cannot be edited.
func (s *Service) Update(ctx context.Context, p *Promotion) error {
	if err := p.Validate(ctx); err != nil {
		return err
	}
	if p.Status.IsTerminal() {
		return apperror.NewBusinessRule("PROMOTION_TERMINAL",
			"expired or cancelled promotions cannot be edited")
	}

	if p.PromoCode != nil && *p.PromoCode != "" {
		exists, err := s.repo.PromoCodeExists(ctx, *p.PromoCode, &p.ID)
		if err != nil {
			return err
		}
		if exists {
			return apperror.NewDuplicate("promotion", "promo code", *p.PromoCode)
		}
	}

	p.UpdatedBy = appctx.GetUserID(ctx)

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		return s.repo.Update(ctx, p)
	})
	if err != nil {
		return err
	}

	s.invalidate(ctx, p)
	return nil
}

// SetProducts replaces the promotion's product list.
func (s *Service) SetProducts(ctx context.Context, promotionID id.ID, refs []ProductRef) error {
	for i := range refs {
		refs[i].PromotionID = promotionID
	}
	return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		return s.repo.ReplaceProducts(ctx, promotionID, refs)
	})
}

// transition runs one guarded status change.
func (s *Service) transition(ctx context.Context, promotionID id.ID, from []Status, to Status) (*Promotion, error) {
	var p *Promotion

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		current, err := s.repo.GetByID(ctx, promotionID)
		if err != nil {
			return err
		}

		for _, f := range from {
			moved, err := s.repo.TransitionStatus(ctx, promotionID, f, to)
			if err != nil {
				return err
			}
			if moved {
				p, err = s.repo.GetByID(ctx, promotionID)
				return err
			}
		}
		return apperror.NewInvalidTransition("promotion", string(current.Status), string(to))
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, p)
	logger.Info(ctx, "promotion status changed", "name", p.Name, "status", p.Status)

	return p, nil
}

// Activate publishes a draft or paused promotion.
func (s *Service) Activate(ctx context.Context, promotionID id.ID) (*Promotion, error) {
	return s.transition(ctx, promotionID, []Status{StatusDraft, StatusPaused}, StatusActive)
}

// Pause suspends an active promotion; it can be activated again.
func (s *Service) Pause(ctx context.Context, promotionID id.ID) (*Promotion, error) {
	return s.transition(ctx, promotionID, []Status{StatusActive}, StatusPaused)
}

// Cancel ends a promotion for good.
func (s *Service) Cancel(ctx context.Context, promotionID id.ID) (*Promotion, error) {
	return s.transition(ctx, promotionID, []Status{StatusDraft, StatusActive, StatusPaused}, StatusCancelled)
}

// Delete cancels a promotion (when not already terminal) and sets its
// deletion mark. Usage history is kept.
func (s *Service) Delete(ctx context.Context, promotionID id.ID) error {
	var p *Promotion

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		p, err = s.repo.GetByID(ctx, promotionID)
		if err != nil {
			return err
		}

		if !p.Status.IsTerminal() {
			moved, err := s.repo.TransitionStatus(ctx, promotionID, p.Status, StatusCancelled)
			if err != nil {
				return err
			}
			if moved {
				p.Status = StatusCancelled
			}
		}

		return s.repo.SetDeletionMark(ctx, promotionID, true)
	})
	if err != nil {
		return err
	}

	s.invalidate(ctx, p)
	logger.Info(ctx, "promotion deleted", "name", p.Name)

	return nil
}

// ExpireOverdue marks active promotions whose end date has passed. Run
// periodically by the background worker.
func (s *Service) ExpireOverdue(ctx context.Context) (int64, error) {
	var n int64
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		n, err = s.repo.ExpireOverdue(ctx, s.now())
		return err
	})
	if err != nil {
		return 0, err
	}
	if n > 0 {
		logger.Info(ctx, "promotions expired", "count", n)
	}
	return n, nil
}

// CanApply decides whether the promotion applies to the candidate line.
// A missing promotion is "not eligible", not an error: the sale proceeds
// without a discount.
func (s *Service) CanApply(ctx context.Context, promotionID id.ID, line Line) (bool, error) {
	p, err := s.getByID(ctx, promotionID)
	if err != nil {
		if apperror.IsNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return s.canApply(ctx, p, line)
}

func (s *Service) canApply(ctx context.Context, p *Promotion, line Line) (bool, error) {
	if !p.EligibleAt(s.now()) {
		return false, nil
	}
	if !meetsMinimum(p, line.SaleTotal) {
		return false, nil
	}
	if !p.ApplyToAllProducts {
		covered, err := s.repo.HasProduct(ctx, p.ID, line.ProductID, line.VariantID)
		if err != nil {
			return false, err
		}
		if !covered {
			return false, nil
		}
	}
	return true, nil
}

// CalculateDiscount computes the bounded discount for the candidate line.
// Returns zero whenever the promotion is missing or not eligible.
func (s *Service) CalculateDiscount(ctx context.Context, promotionID id.ID, line Line) (types.Money, error) {
	p, err := s.getByID(ctx, promotionID)
	if err != nil {
		if apperror.IsNotFound(err) {
			return types.Zero(), nil
		}
		return types.Zero(), err
	}

	ok, err := s.canApply(ctx, p, line)
	if err != nil || !ok {
		return types.Zero(), err
	}

	return clampDiscount(p, line, computeDiscount(p, line)), nil
}

// ValidatePromoCode resolves a buyer-supplied code. The code must match an
// active, code-gated promotion inside its date window; matching is exact
// and case-sensitive.
func (s *Service) ValidatePromoCode(ctx context.Context, code string) (*Promotion, error) {
	if code == "" {
		return nil, apperror.NewPromotionNotApplicable("promo code is empty")
	}

	var p *Promotion
	if s.cache != nil {
		if cached, ok := s.cache.GetByCode(ctx, code); ok {
			p = cached
		}
	}
	if p == nil {
		var err error
		p, err = s.repo.GetByPromoCode(ctx, code)
		if err != nil {
			if apperror.IsNotFound(err) {
				return nil, apperror.NewPromotionNotApplicable("unknown promo code").
					WithDetail("code", code)
			}
			return nil, err
		}
		if s.cache != nil {
			s.cache.Put(ctx, p)
		}
	}

	if !p.RequirePromoCode {
		return nil, apperror.NewPromotionNotApplicable("promotion is not code-gated")
	}
	if !p.EligibleAt(s.now()) {
		return nil, apperror.NewPromotionNotApplicable("promotion is not active")
	}

	return p, nil
}

// Apply records one applied discount as an immutable usage row. Aggregate
// usage is computed from these rows on demand; the promotion itself carries
// no live counters.
func (s *Service) Apply(ctx context.Context, promotionID, saleID id.ID, discount types.Money, promoCode *string) (Usage, error) {
	u := Usage{
		ID:             id.New(),
		PromotionID:    promotionID,
		SaleID:         saleID,
		DiscountAmount: discount,
		PromoCode:      promoCode,
		CreatedBy:      appctx.GetUserID(ctx),
		CreatedAt:      time.Now().UTC(),
	}

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		return s.repo.InsertUsage(ctx, u)
	})
	if err != nil {
		return Usage{}, err
	}

	logger.Info(ctx, "promotion applied",
		"promotion_id", promotionID,
		"sale_id", saleID,
		"discount", discount,
	)

	return u, nil
}

// GetByID retrieves a promotion.
func (s *Service) GetByID(ctx context.Context, promotionID id.ID) (*Promotion, error) {
	return s.repo.GetByID(ctx, promotionID)
}

// List retrieves promotions with filtering.
func (s *Service) List(ctx context.Context, filter ListFilter) (domain.ListResult[*Promotion], error) {
	return s.repo.List(ctx, filter)
}

// ListProducts returns the promotion's product list.
func (s *Service) ListProducts(ctx context.Context, promotionID id.ID) ([]ProductRef, error) {
	return s.repo.ListProducts(ctx, promotionID)
}

// GetUsageStats aggregates the usage journal for one promotion.
func (s *Service) GetUsageStats(ctx context.Context, promotionID id.ID) (UsageStats, error) {
	return s.repo.GetUsageStats(ctx, promotionID)
}
