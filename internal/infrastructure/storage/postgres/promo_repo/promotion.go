// Package promo_repo provides the PostgreSQL implementation of promotion
// persistence: promotions, their product lists and the append-only usage
// journal.
package promo_repo

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"

	"retailcore/internal/core/apperror"
	"retailcore/internal/core/id"
	"retailcore/internal/domain"
	"retailcore/internal/domain/promotion"
	"retailcore/internal/infrastructure/storage/postgres"
)

const (
	promotionTable = "promotions"
	promoProdTable = "promotion_products"
	promoUsedTable = "promotion_usages"
)

// PromotionRepo implements promotion.Repository.
type PromotionRepo struct {
	txManager  *postgres.TxManager
	selectCols []string
}

// NewPromotionRepo creates a new promotion repository.
func NewPromotionRepo(txManager *postgres.TxManager) *PromotionRepo {
	return &PromotionRepo{
		txManager:  txManager,
		selectCols: postgres.ExtractDBColumns[promotion.Promotion](),
	}
}

func (r *PromotionRepo) builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

func (r *PromotionRepo) querier(ctx context.Context) postgres.Querier {
	return r.txManager.GetQuerier(ctx)
}

func (r *PromotionRepo) baseSelect() squirrel.SelectBuilder {
	return r.builder().
		Select(r.selectCols...).
		From(promotionTable)
}

// Create inserts a new promotion.
func (r *PromotionRepo) Create(ctx context.Context, p *promotion.Promotion) error {
	data := postgres.StructToMap(p)

	filtered := make(map[string]any, len(r.selectCols))
	for _, col := range r.selectCols {
		if val, ok := data[col]; ok {
			filtered[col] = val
		}
	}

	q := r.builder().
		Insert(promotionTable).
		SetMap(filtered)

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := r.querier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert promotion: %w", err)
	}

	return nil
}

// GetByID retrieves a promotion.
func (r *PromotionRepo) GetByID(ctx context.Context, promotionID id.ID) (*promotion.Promotion, error) {
	q := r.baseSelect().
		Where(squirrel.Eq{"id": promotionID}).
		Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	p := &promotion.Promotion{}
	if err := pgxscan.Get(ctx, r.querier(ctx), p, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("promotion", promotionID.String())
		}
		return nil, fmt.Errorf("get promotion: %w", err)
	}

	return p, nil
}

// Update modifies a promotion with optimistic locking.
func (r *PromotionRepo) Update(ctx context.Context, p *promotion.Promotion) error {
	data := postgres.StructToMap(p)

	filtered := make(map[string]any, len(r.selectCols))
	for _, col := range r.selectCols {
		if col == "id" || col == "version" || col == "created_at" || col == "created_by" || col == "updated_at" {
			continue
		}
		if val, ok := data[col]; ok {
			filtered[col] = val
		}
	}

	q := r.builder().
		Update(promotionTable).
		SetMap(filtered).
		Set("version", squirrel.Expr("version + 1")).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": p.ID}).
		Where(squirrel.Eq{"version": p.Version})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	result, err := r.querier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update promotion: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperror.NewConcurrentModification("promotion", p.ID)
	}

	return nil
}

// SetDeletionMark sets or clears the deletion mark.
func (r *PromotionRepo) SetDeletionMark(ctx context.Context, promotionID id.ID, mark bool) error {
	q := r.builder().
		Update(promotionTable).
		Set("deletion_mark", mark).
		Set("version", squirrel.Expr("version + 1")).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": promotionID})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build set deletion mark: %w", err)
	}

	result, err := r.querier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("set deletion mark: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperror.NewNotFound("promotion", promotionID.String())
	}

	return nil
}

// List retrieves promotions with filtering.
func (r *PromotionRepo) List(ctx context.Context, f promotion.ListFilter) (domain.ListResult[*promotion.Promotion], error) {
	result := domain.ListResult[*promotion.Promotion]{
		Limit:  f.Limit,
		Offset: f.Offset,
	}

	q := r.baseSelect()

	if !f.IncludeDeleted {
		q = q.Where(squirrel.Eq{"deletion_mark": false})
	}
	if f.Search != "" {
		q = q.Where(squirrel.ILike{"name": "%" + f.Search + "%"})
	}
	if f.Status != nil {
		q = q.Where(squirrel.Eq{"status": *f.Status})
	}
	if f.Type != nil {
		q = q.Where(squirrel.Eq{"type": *f.Type})
	}
	if f.ActiveAt != nil {
		q = q.Where(squirrel.LtOrEq{"start_date": *f.ActiveAt}).
			Where(squirrel.Gt{"end_date": *f.ActiveAt})
	}

	countQ := r.builder().Select("COUNT(*)").FromSelect(q, "sub")
	countSQL, countArgs, err := countQ.ToSql()
	if err != nil {
		return result, fmt.Errorf("build count: %w", err)
	}

	querier := r.querier(ctx)
	if err := querier.QueryRow(ctx, countSQL, countArgs...).Scan(&result.TotalCount); err != nil {
		return result, fmt.Errorf("count: %w", err)
	}

	orderBy, err := r.parseOrderBy(f.OrderBy)
	if err != nil {
		return result, err
	}
	q = q.OrderBy(orderBy)

	if f.Limit > 0 {
		q = q.Limit(uint64(f.Limit))
	}
	if f.Offset > 0 {
		q = q.Offset(uint64(f.Offset))
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return result, fmt.Errorf("build query: %w", err)
	}

	if err := pgxscan.Select(ctx, querier, &result.Items, sql, args...); err != nil {
		return result, fmt.Errorf("list promotions: %w", err)
	}

	return result, nil
}

func (r *PromotionRepo) parseOrderBy(orderBy string) (string, error) {
	allowed := make(map[string]struct{}, len(r.selectCols))
	for _, col := range r.selectCols {
		allowed[col] = struct{}{}
	}

	if strings.TrimSpace(orderBy) == "" {
		return "start_date DESC", nil
	}

	direction := "ASC"
	field := orderBy
	if strings.HasPrefix(orderBy, "-") {
		direction = "DESC"
		field = strings.TrimPrefix(orderBy, "-")
	} else if strings.HasPrefix(orderBy, "+") {
		field = strings.TrimPrefix(orderBy, "+")
	}

	field = strings.TrimSpace(field)
	if _, ok := allowed[field]; !ok {
		return "", apperror.NewValidation("invalid orderBy").WithDetail("orderBy", orderBy)
	}

	return field + " " + direction, nil
}

// GetByPromoCode performs an exact, case-sensitive code lookup.
func (r *PromotionRepo) GetByPromoCode(ctx context.Context, code string) (*promotion.Promotion, error) {
	q := r.baseSelect().
		Where(squirrel.Eq{"promo_code": code}).
		Where(squirrel.Eq{"deletion_mark": false}).
		Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	p := &promotion.Promotion{}
	if err := pgxscan.Get(ctx, r.querier(ctx), p, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("promotion", code)
		}
		return nil, fmt.Errorf("get by promo code: %w", err)
	}

	return p, nil
}

// PromoCodeExists checks global code uniqueness.
func (r *PromotionRepo) PromoCodeExists(ctx context.Context, code string, excludeID *id.ID) (bool, error) {
	q := r.builder().
		Select("1").
		From(promotionTable).
		Where(squirrel.Eq{"promo_code": code}).
		Limit(1)

	if excludeID != nil {
		q = q.Where(squirrel.NotEq{"id": *excludeID})
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return false, fmt.Errorf("build query: %w", err)
	}

	var exists int
	err = r.querier(ctx).QueryRow(ctx, sql, args...).Scan(&exists)
	if err == pgx.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("promo code exists: %w", err)
	}

	return true, nil
}

// TransitionStatus moves the promotion out of fromStatus with a guarded
// update.
func (r *PromotionRepo) TransitionStatus(ctx context.Context, promotionID id.ID, from, to promotion.Status) (bool, error) {
	q := r.builder().
		Update(promotionTable).
		Set("status", to).
		Set("version", squirrel.Expr("version + 1")).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": promotionID}).
		Where(squirrel.Eq{"status": from})

	sql, args, err := q.ToSql()
	if err != nil {
		return false, fmt.Errorf("build status update: %w", err)
	}

	result, err := r.querier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return false, fmt.Errorf("update status: %w", err)
	}

	return result.RowsAffected() > 0, nil
}

// ExpireOverdue marks active promotions whose window has closed.
func (r *PromotionRepo) ExpireOverdue(ctx context.Context, now time.Time) (int64, error) {
	q := r.builder().
		Update(promotionTable).
		Set("status", promotion.StatusExpired).
		Set("version", squirrel.Expr("version + 1")).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"status": promotion.StatusActive}).
		Where(squirrel.LtOrEq{"end_date": now})

	sql, args, err := q.ToSql()
	if err != nil {
		return 0, fmt.Errorf("build expire: %w", err)
	}

	result, err := r.querier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return 0, fmt.Errorf("expire overdue: %w", err)
	}

	return result.RowsAffected(), nil
}

// ReplaceProducts rewrites the promotion's product list.
func (r *PromotionRepo) ReplaceProducts(ctx context.Context, promotionID id.ID, refs []promotion.ProductRef) error {
	delQ := r.builder().
		Delete(promoProdTable).
		Where(squirrel.Eq{"promotion_id": promotionID})

	sql, args, err := delQ.ToSql()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}
	if _, err := r.querier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("clear promotion products: %w", err)
	}

	if len(refs) == 0 {
		return nil
	}

	insQ := r.builder().
		Insert(promoProdTable).
		Columns("promotion_id", "product_id", "variant_id")
	for _, ref := range refs {
		insQ = insQ.Values(ref.PromotionID, ref.ProductID, ref.VariantID)
	}

	sql, args, err = insQ.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := r.querier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert promotion products: %w", err)
	}

	return nil
}

// ListProducts returns the promotion's product list.
func (r *PromotionRepo) ListProducts(ctx context.Context, promotionID id.ID) ([]promotion.ProductRef, error) {
	q := r.builder().
		Select("promotion_id", "product_id", "variant_id").
		From(promoProdTable).
		Where(squirrel.Eq{"promotion_id": promotionID})

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var refs []promotion.ProductRef
	if err := pgxscan.Select(ctx, r.querier(ctx), &refs, sql, args...); err != nil {
		return nil, fmt.Errorf("list promotion products: %w", err)
	}

	return refs, nil
}

// HasProduct checks exact (product, variant) membership. Variant entries
// never cover the base product and vice versa.
func (r *PromotionRepo) HasProduct(ctx context.Context, promotionID, productID id.ID, variantID *id.ID) (bool, error) {
	q := r.builder().
		Select("1").
		From(promoProdTable).
		Where(squirrel.Eq{"promotion_id": promotionID}).
		Where(squirrel.Eq{"product_id": productID}).
		Where(squirrel.Eq{"variant_id": variantID}).
		Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return false, fmt.Errorf("build query: %w", err)
	}

	var exists int
	err = r.querier(ctx).QueryRow(ctx, sql, args...).Scan(&exists)
	if err == pgx.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("has product: %w", err)
	}

	return true, nil
}

// InsertUsage appends one immutable usage record.
func (r *PromotionRepo) InsertUsage(ctx context.Context, u promotion.Usage) error {
	q := r.builder().
		Insert(promoUsedTable).
		Columns("id", "promotion_id", "sale_id", "discount_amount", "promo_code", "created_by", "created_at").
		Values(u.ID, u.PromotionID, u.SaleID, u.DiscountAmount, u.PromoCode, u.CreatedBy, u.CreatedAt)

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := r.querier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert usage: %w", err)
	}

	return nil
}

// GetUsageStats aggregates the usage journal on demand.
func (r *PromotionRepo) GetUsageStats(ctx context.Context, promotionID id.ID) (promotion.UsageStats, error) {
	sql := fmt.Sprintf(`
        SELECT
            $1 AS promotion_id,
            COUNT(*) AS times_used,
            COALESCE(SUM(discount_amount), 0) AS total_discount
        FROM %s
        WHERE promotion_id = $1`, promoUsedTable)

	var stats promotion.UsageStats
	if err := pgxscan.Get(ctx, r.querier(ctx), &stats, sql, promotionID); err != nil {
		return stats, fmt.Errorf("usage stats: %w", err)
	}

	return stats, nil
}

// ListUsage returns usage records for a promotion, newest first.
func (r *PromotionRepo) ListUsage(ctx context.Context, promotionID id.ID, limit, offset uint64) ([]promotion.Usage, error) {
	q := r.builder().
		Select("id", "promotion_id", "sale_id", "discount_amount", "promo_code", "created_by", "created_at").
		From(promoUsedTable).
		Where(squirrel.Eq{"promotion_id": promotionID}).
		OrderBy("created_at DESC")

	if limit > 0 {
		q = q.Limit(limit)
	}
	if offset > 0 {
		q = q.Offset(offset)
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var usages []promotion.Usage
	if err := pgxscan.Select(ctx, r.querier(ctx), &usages, sql, args...); err != nil {
		return nil, fmt.Errorf("list usage: %w", err)
	}

	return usages, nil
}

var _ promotion.Repository = (*PromotionRepo)(nil)
