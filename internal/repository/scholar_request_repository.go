package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/sasm-ims-api/internal/models"
)

const scholarRequestColumns = `id, office, requested_by, scholar_type, quantity, reason, status, reviewed_by, reviewed_at, review_note, fulfilled_at, created_at, updated_at`

// ScholarRequestRepository persists office staffing requests.
type ScholarRequestRepository struct {
	db *sqlx.DB
}

// NewScholarRequestRepository constructs the repository.
func NewScholarRequestRepository(db *sqlx.DB) *ScholarRequestRepository {
	return &ScholarRequestRepository{db: db}
}

// Create inserts a pending request.
func (r *ScholarRequestRepository) Create(ctx context.Context, req *models.ScholarRequest) error {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	req.CreatedAt = now
	req.UpdatedAt = now
	req.Status = models.ScholarRequestPending
	const query = `INSERT INTO scholar_requests (id, office, requested_by, scholar_type, quantity, reason, status, reviewed_by, reviewed_at, review_note, fulfilled_at, created_at, updated_at)
VALUES (:id, :office, :requested_by, :scholar_type, :quantity, :reason, :status, :reviewed_by, :reviewed_at, :review_note, :fulfilled_at, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, req); err != nil {
		return fmt.Errorf("create scholar request: %w", err)
	}
	return nil
}

// GetByID returns one request.
func (r *ScholarRequestRepository) GetByID(ctx context.Context, id string) (*models.ScholarRequest, error) {
	query := `SELECT ` + scholarRequestColumns + ` FROM scholar_requests WHERE id = $1`
	var req models.ScholarRequest
	if err := r.db.GetContext(ctx, &req, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("get scholar request: %w", err)
	}
	return &req, nil
}

// List returns requests matching the filter with total count.
func (r *ScholarRequestRepository) List(ctx context.Context, filter models.ScholarRequestFilter) ([]models.ScholarRequest, int, error) {
	where := whereBuilder{}
	if filter.Office != "" {
		where.add("office = $%d", filter.Office)
	}
	if len(filter.Statuses) > 0 {
		statuses := make([]string, len(filter.Statuses))
		for i, s := range filter.Statuses {
			statuses[i] = string(s)
		}
		where.add("status = ANY($%d)", pq.Array(statuses))
	}
	limit, offset := pageWindow(filter.Page, filter.PageSize)
	query := fmt.Sprintf("SELECT %s FROM scholar_requests%s ORDER BY created_at DESC LIMIT %d OFFSET %d", scholarRequestColumns, where.clause(), limit, offset)

	var reqs []models.ScholarRequest
	if err := r.db.SelectContext(ctx, &reqs, query, where.args...); err != nil {
		return nil, 0, fmt.Errorf("list scholar requests: %w", err)
	}
	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM scholar_requests"+where.clause(), where.args...); err != nil {
		return nil, 0, fmt.Errorf("count scholar requests: %w", err)
	}
	return reqs, total, nil
}

// Transition moves a request from one status to another. It returns sql.ErrNoRows when
// the stored status no longer equals from.
func (r *ScholarRequestRepository) Transition(ctx context.Context, req *models.ScholarRequest, from models.ScholarRequestStatus) error {
	req.UpdatedAt = time.Now().UTC()
	const query = `UPDATE scholar_requests SET status = $2, reviewed_by = $3, reviewed_at = $4, review_note = $5, fulfilled_at = $6, updated_at = $7 WHERE id = $1 AND status = $8`
	res, err := r.db.ExecContext(ctx, query, req.ID, req.Status, req.ReviewedBy, req.ReviewedAt, req.ReviewNote, req.FulfilledAt, req.UpdatedAt, from)
	if err != nil {
		return fmt.Errorf("update scholar request status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update scholar request rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// CountByStatus counts requests in a status, optionally within an office.
func (r *ScholarRequestRepository) CountByStatus(ctx context.Context, status models.ScholarRequestStatus, office string) (int, error) {
	where := whereBuilder{}
	where.add("status = $%d", status)
	if office != "" {
		where.add("office = $%d", office)
	}
	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM scholar_requests"+where.clause(), where.args...); err != nil {
		return 0, fmt.Errorf("count scholar requests: %w", err)
	}
	return total, nil
}
