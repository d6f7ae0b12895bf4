package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sasm-ims-api/internal/models"
)

const scholarColumns = `id, user_id, application_id, full_name, scholar_office, scholar_type, status, deployed_by, deployed_at, performance_rating, created_at, updated_at`

// ScholarRepository manages deployed scholars.
type ScholarRepository struct {
	db *sqlx.DB
}

// NewScholarRepository constructs the repository.
func NewScholarRepository(db *sqlx.DB) *ScholarRepository {
	return &ScholarRepository{db: db}
}

func (r *ScholarRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	return pick(exec, r.db)
}

// Create inserts a scholar.
func (r *ScholarRepository) Create(ctx context.Context, exec sqlx.ExtContext, scholar *models.Scholar) error {
	if scholar.ID == "" {
		scholar.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if scholar.DeployedAt.IsZero() {
		scholar.DeployedAt = now
	}
	if scholar.Status == "" {
		scholar.Status = models.ScholarStatusActive
	}
	scholar.CreatedAt = now
	scholar.UpdatedAt = now
	const query = `INSERT INTO scholars (id, user_id, application_id, full_name, scholar_office, scholar_type, status, deployed_by, deployed_at, performance_rating, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`
	if _, err := r.exec(exec).ExecContext(ctx, query,
		scholar.ID, scholar.UserID, scholar.ApplicationID, scholar.FullName, scholar.ScholarOffice,
		scholar.ScholarType, scholar.Status, scholar.DeployedBy, scholar.DeployedAt,
		scholar.PerformanceRating, scholar.CreatedAt, scholar.UpdatedAt,
	); err != nil {
		return fmt.Errorf("create scholar: %w", err)
	}
	return nil
}

// GetByID returns one scholar.
func (r *ScholarRepository) GetByID(ctx context.Context, id string) (*models.Scholar, error) {
	query := `SELECT ` + scholarColumns + ` FROM scholars WHERE id = $1`
	var scholar models.Scholar
	if err := r.db.GetContext(ctx, &scholar, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("get scholar: %w", err)
	}
	return &scholar, nil
}

// FindByUserID returns the scholar record of a user, preferring the active one.
func (r *ScholarRepository) FindByUserID(ctx context.Context, exec sqlx.ExtContext, userID string) (*models.Scholar, error) {
	query := `SELECT ` + scholarColumns + ` FROM scholars WHERE user_id = $1 ORDER BY (status = 'active') DESC, deployed_at DESC LIMIT 1`
	var scholar models.Scholar
	if err := sqlx.GetContext(ctx, r.exec(exec), &scholar, query, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find scholar by user: %w", err)
	}
	return &scholar, nil
}

// List returns scholars matching the filter with total count.
func (r *ScholarRepository) List(ctx context.Context, filter models.ScholarFilter) ([]models.Scholar, int, error) {
	where := whereBuilder{}
	if filter.Office != "" {
		where.add("scholar_office = $%d", filter.Office)
	}
	if filter.Type != "" {
		where.add("scholar_type = $%d", filter.Type)
	}
	if filter.Status != "" {
		where.add("status = $%d", filter.Status)
	}
	if filter.Search != "" {
		where.add("LOWER(full_name) LIKE $%d", "%"+strings.ToLower(filter.Search)+"%")
	}
	order := orderBy(filter.SortBy, filter.SortOrder, "deployed_at", map[string]bool{
		"deployed_at":        true,
		"full_name":          true,
		"scholar_office":     true,
		"performance_rating": true,
	})
	limit, offset := pageWindow(filter.Page, filter.PageSize)

	query := fmt.Sprintf("SELECT %s FROM scholars%s ORDER BY %s LIMIT %d OFFSET %d", scholarColumns, where.clause(), order, limit, offset)
	var scholars []models.Scholar
	if err := r.db.SelectContext(ctx, &scholars, query, where.args...); err != nil {
		return nil, 0, fmt.Errorf("list scholars: %w", err)
	}
	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM scholars"+where.clause(), where.args...); err != nil {
		return nil, 0, fmt.Errorf("count scholars: %w", err)
	}
	return scholars, total, nil
}

// ListActive returns every active scholar.
func (r *ScholarRepository) ListActive(ctx context.Context) ([]models.Scholar, error) {
	query := `SELECT ` + scholarColumns + ` FROM scholars WHERE status = $1 ORDER BY deployed_at ASC`
	var scholars []models.Scholar
	if err := r.db.SelectContext(ctx, &scholars, query, models.ScholarStatusActive); err != nil {
		return nil, fmt.Errorf("list active scholars: %w", err)
	}
	return scholars, nil
}

// Update persists office, type, status and rating.
func (r *ScholarRepository) Update(ctx context.Context, scholar *models.Scholar) error {
	scholar.UpdatedAt = time.Now().UTC()
	const query = `UPDATE scholars SET scholar_office = :scholar_office, scholar_type = :scholar_type, status = :status, performance_rating = :performance_rating, updated_at = :updated_at WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, scholar)
	if err != nil {
		return fmt.Errorf("update scholar: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// SetPerformanceRating stores the recomputed rating.
func (r *ScholarRepository) SetPerformanceRating(ctx context.Context, exec sqlx.ExtContext, id string, rating *float64) error {
	const query = `UPDATE scholars SET performance_rating = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.exec(exec).ExecContext(ctx, query, id, rating, time.Now().UTC()); err != nil {
		return fmt.Errorf("set scholar performance rating: %w", err)
	}
	return nil
}

// Deactivate marks every active scholar record of the user inactive.
func (r *ScholarRepository) Deactivate(ctx context.Context, exec sqlx.ExtContext, userID string) (int64, error) {
	const query = `UPDATE scholars SET status = $2, updated_at = $3 WHERE user_id = $1 AND status = $4`
	res, err := r.exec(exec).ExecContext(ctx, query, userID, models.ScholarStatusInactive, time.Now().UTC(), models.ScholarStatusActive)
	if err != nil {
		return 0, fmt.Errorf("deactivate scholar: %w", err)
	}
	return res.RowsAffected()
}

// Reactivate redeploys an existing scholar record with the fields set on scholar.
func (r *ScholarRepository) Reactivate(ctx context.Context, exec sqlx.ExtContext, scholar *models.Scholar) error {
	scholar.UpdatedAt = time.Now().UTC()
	const query = `UPDATE scholars SET application_id = $2, full_name = $3, scholar_office = $4, scholar_type = $5, status = $6, deployed_by = $7, deployed_at = $8, updated_at = $9 WHERE id = $1`
	res, err := r.exec(exec).ExecContext(ctx, query,
		scholar.ID, scholar.ApplicationID, scholar.FullName, scholar.ScholarOffice, scholar.ScholarType,
		scholar.Status, scholar.DeployedBy, scholar.DeployedAt, scholar.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("reactivate scholar: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// CountActiveByOffice groups active scholars by office.
func (r *ScholarRepository) CountActiveByOffice(ctx context.Context) (map[string]int, error) {
	var rows []struct {
		Office string `db:"scholar_office"`
		Total  int    `db:"total"`
	}
	const query = `SELECT scholar_office, COUNT(*) AS total FROM scholars WHERE status = $1 GROUP BY scholar_office`
	if err := r.db.SelectContext(ctx, &rows, query, models.ScholarStatusActive); err != nil {
		return nil, fmt.Errorf("count scholars by office: %w", err)
	}
	out := make(map[string]int, len(rows))
	for _, row := range rows {
		out[row.Office] = row.Total
	}
	return out, nil
}

// DistinctOffices lists every office value stored on scholar records.
func (r *ScholarRepository) DistinctOffices(ctx context.Context) ([]string, error) {
	var offices []string
	if err := r.db.SelectContext(ctx, &offices, `SELECT DISTINCT scholar_office FROM scholars ORDER BY scholar_office`); err != nil {
		return nil, fmt.Errorf("list scholar offices: %w", err)
	}
	return offices, nil
}
