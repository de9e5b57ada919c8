package document_repo

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"retailcore/internal/core/id"
	"retailcore/internal/domain"
	"retailcore/internal/domain/adjustment"
	"retailcore/internal/infrastructure/storage/postgres"
)

const adjustmentTable = "doc_adjustments"

// AdjustmentRepo implements adjustment.Repository.
type AdjustmentRepo struct {
	*BaseDocumentRepo[*adjustment.Adjustment]
}

// NewAdjustmentRepo creates a new adjustment repository.
func NewAdjustmentRepo(txManager *postgres.TxManager) *AdjustmentRepo {
	return &AdjustmentRepo{
		BaseDocumentRepo: NewBaseDocumentRepo(
			txManager,
			adjustmentTable,
			postgres.ExtractDBColumns[adjustment.Adjustment](),
			func() *adjustment.Adjustment { return &adjustment.Adjustment{} },
		),
	}
}

// TransitionStatus moves the adjustment out of fromStatus, stamping the
// reviewer in the same guarded update.
func (r *AdjustmentRepo) TransitionStatus(ctx context.Context, adjustmentID id.ID, from, to adjustment.Status, reviewedBy, comment string) (bool, error) {
	return r.UpdateStatusGuarded(ctx, adjustmentID, string(from), string(to), map[string]any{
		"reviewed_by":    reviewedBy,
		"reviewed_at":    time.Now().UTC(),
		"review_comment": comment,
	})
}

// List retrieves adjustments with adjustment-specific filtering.
func (r *AdjustmentRepo) List(ctx context.Context, f adjustment.ListFilter) (domain.ListResult[*adjustment.Adjustment], error) {
	result := domain.ListResult[*adjustment.Adjustment]{
		Limit:  f.Limit,
		Offset: f.Offset,
	}

	q := r.baseSelect()

	if !f.IncludeDeleted {
		q = q.Where(squirrel.Eq{"deletion_mark": false})
	}
	if f.Search != "" {
		q = q.Where(squirrel.ILike{"number": "%" + f.Search + "%"})
	}
	if f.ProductID != nil {
		q = q.Where(squirrel.Eq{"product_id": *f.ProductID})
	}
	if f.Status != nil {
		q = q.Where(squirrel.Eq{"status": *f.Status})
	}
	if f.Reason != nil {
		q = q.Where(squirrel.Eq{"reason": *f.Reason})
	}

	countQ := r.Builder().Select("COUNT(*)").FromSelect(q, "sub")
	countSQL, countArgs, err := countQ.ToSql()
	if err != nil {
		return result, fmt.Errorf("build count: %w", err)
	}

	querier := r.Querier(ctx)
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
		return result, fmt.Errorf("list adjustments: %w", err)
	}

	return result, nil
}

// CountPending returns the review backlog size.
func (r *AdjustmentRepo) CountPending(ctx context.Context) (int64, error) {
	q := r.Builder().
		Select("COUNT(*)").
		From(adjustmentTable).
		Where(squirrel.Eq{"status": adjustment.StatusPending}).
		Where(squirrel.Eq{"deletion_mark": false})

	sql, args, err := q.ToSql()
	if err != nil {
		return 0, fmt.Errorf("build query: %w", err)
	}

	var count int64
	if err := r.Querier(ctx).QueryRow(ctx, sql, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count pending: %w", err)
	}

	return count, nil
}

var _ adjustment.Repository = (*AdjustmentRepo)(nil)
