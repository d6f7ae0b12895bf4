package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sasm-ims-api/internal/models"
)

const evaluationColumns = `id, scholar_id, office, evaluator_id, period, ratings, average, comments, status, submitted_at, created_at, updated_at`

// EvaluationRepository persists scholar evaluations.
type EvaluationRepository struct {
	db *sqlx.DB
}

// NewEvaluationRepository constructs the repository.
func NewEvaluationRepository(db *sqlx.DB) *EvaluationRepository {
	return &EvaluationRepository{db: db}
}

func (r *EvaluationRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	return pick(exec, r.db)
}

// Create inserts an evaluation.
func (r *EvaluationRepository) Create(ctx context.Context, exec sqlx.ExtContext, eval *models.Evaluation) error {
	if eval.ID == "" {
		eval.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	eval.CreatedAt = now
	eval.UpdatedAt = now
	const query = `INSERT INTO evaluations (id, scholar_id, office, evaluator_id, period, ratings, average, comments, status, submitted_at, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`
	if _, err := r.exec(exec).ExecContext(ctx, query,
		eval.ID, eval.ScholarID, eval.Office, eval.EvaluatorID, eval.Period, eval.Ratings,
		eval.Average, eval.Comments, eval.Status, eval.SubmittedAt, eval.CreatedAt, eval.UpdatedAt,
	); err != nil {
		return fmt.Errorf("create evaluation: %w", err)
	}
	return nil
}

// GetByID returns one evaluation.
func (r *EvaluationRepository) GetByID(ctx context.Context, id string) (*models.Evaluation, error) {
	query := `SELECT ` + evaluationColumns + ` FROM evaluations WHERE id = $1`
	var eval models.Evaluation
	if err := r.db.GetContext(ctx, &eval, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("get evaluation: %w", err)
	}
	return &eval, nil
}

// Update rewrites a draft evaluation, optionally submitting it.
func (r *EvaluationRepository) Update(ctx context.Context, exec sqlx.ExtContext, eval *models.Evaluation) error {
	eval.UpdatedAt = time.Now().UTC()
	const query = `UPDATE evaluations SET ratings = $2, average = $3, comments = $4, status = $5, submitted_at = $6, updated_at = $7 WHERE id = $1 AND status = $8`
	res, err := r.exec(exec).ExecContext(ctx, query, eval.ID, eval.Ratings, eval.Average, eval.Comments, eval.Status, eval.SubmittedAt, eval.UpdatedAt, models.EvaluationStatusDraft)
	if err != nil {
		return fmt.Errorf("update evaluation: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update evaluation rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// List returns evaluations matching the filter with total count.
func (r *EvaluationRepository) List(ctx context.Context, filter models.EvaluationFilter) ([]models.Evaluation, int, error) {
	where := whereBuilder{}
	if filter.ScholarID != "" {
		where.add("scholar_id = $%d", filter.ScholarID)
	}
	if filter.Office != "" {
		where.add("office = $%d", filter.Office)
	}
	if filter.Period != "" {
		where.add("period = $%d", filter.Period)
	}
	if filter.Status != "" {
		where.add("status = $%d", filter.Status)
	}
	limit, offset := pageWindow(filter.Page, filter.PageSize)
	query := fmt.Sprintf("SELECT %s FROM evaluations%s ORDER BY created_at DESC LIMIT %d OFFSET %d", evaluationColumns, where.clause(), limit, offset)

	var evals []models.Evaluation
	if err := r.db.SelectContext(ctx, &evals, query, where.args...); err != nil {
		return nil, 0, fmt.Errorf("list evaluations: %w", err)
	}
	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM evaluations"+where.clause(), where.args...); err != nil {
		return nil, 0, fmt.Errorf("count evaluations: %w", err)
	}
	return evals, total, nil
}

// AverageForScholar returns the mean of the scholar's submitted evaluation averages,
// nil when none are submitted.
func (r *EvaluationRepository) AverageForScholar(ctx context.Context, exec sqlx.ExtContext, scholarID string) (*float64, error) {
	const query = `SELECT ROUND(AVG(average)::numeric, 2)::float8 FROM evaluations WHERE scholar_id = $1 AND status = $2`
	var avg sql.NullFloat64
	if err := sqlx.GetContext(ctx, r.exec(exec), &avg, query, scholarID, models.EvaluationStatusSubmitted); err != nil {
		return nil, fmt.Errorf("average scholar evaluations: %w", err)
	}
	if !avg.Valid {
		return nil, nil
	}
	return &avg.Float64, nil
}
