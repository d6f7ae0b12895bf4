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

const leaveColumns = `id, user_id, scholar_id, office, leave_type, start_date, end_date, reason, status, reviewed_by, reviewed_at, review_note, created_at, updated_at`

// LeaveRepository persists leave requests.
type LeaveRepository struct {
	db *sqlx.DB
}

// NewLeaveRepository constructs the repository.
func NewLeaveRepository(db *sqlx.DB) *LeaveRepository {
	return &LeaveRepository{db: db}
}

// Create inserts a pending leave.
func (r *LeaveRepository) Create(ctx context.Context, leave *models.Leave) error {
	if leave.ID == "" {
		leave.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	leave.CreatedAt = now
	leave.UpdatedAt = now
	leave.Status = models.LeaveStatusPending
	const query = `INSERT INTO leaves (id, user_id, scholar_id, office, leave_type, start_date, end_date, reason, status, reviewed_by, reviewed_at, review_note, created_at, updated_at)
VALUES (:id, :user_id, :scholar_id, :office, :leave_type, :start_date, :end_date, :reason, :status, :reviewed_by, :reviewed_at, :review_note, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, leave); err != nil {
		return fmt.Errorf("create leave: %w", err)
	}
	return nil
}

// GetByID returns one leave.
func (r *LeaveRepository) GetByID(ctx context.Context, id string) (*models.Leave, error) {
	query := `SELECT ` + leaveColumns + ` FROM leaves WHERE id = $1`
	var leave models.Leave
	if err := r.db.GetContext(ctx, &leave, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("get leave: %w", err)
	}
	return &leave, nil
}

// List returns leaves matching the filter with total count.
func (r *LeaveRepository) List(ctx context.Context, filter models.LeaveFilter) ([]models.Leave, int, error) {
	where := whereBuilder{}
	if filter.UserID != "" {
		where.add("user_id = $%d", filter.UserID)
	}
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
	query := fmt.Sprintf("SELECT %s FROM leaves%s ORDER BY created_at DESC LIMIT %d OFFSET %d", leaveColumns, where.clause(), limit, offset)

	var leaves []models.Leave
	if err := r.db.SelectContext(ctx, &leaves, query, where.args...); err != nil {
		return nil, 0, fmt.Errorf("list leaves: %w", err)
	}
	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM leaves"+where.clause(), where.args...); err != nil {
		return nil, 0, fmt.Errorf("count leaves: %w", err)
	}
	return leaves, total, nil
}

// Transition moves a pending leave to the target status. It returns sql.ErrNoRows when
// the leave is no longer pending.
func (r *LeaveRepository) Transition(ctx context.Context, id string, to models.LeaveStatus, reviewerID *string, note *string, at time.Time) error {
	const query = `UPDATE leaves SET status = $2, reviewed_by = $3, reviewed_at = $4, review_note = $5, updated_at = $4 WHERE id = $1 AND status = $6`
	res, err := r.db.ExecContext(ctx, query, id, to, reviewerID, at, note, models.LeaveStatusPending)
	if err != nil {
		return fmt.Errorf("update leave status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update leave status rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// CountPending counts pending leaves, optionally within an office.
func (r *LeaveRepository) CountPending(ctx context.Context, office string) (int, error) {
	where := whereBuilder{}
	where.add("status = $%d", models.LeaveStatusPending)
	if office != "" {
		where.add("office = $%d", office)
	}
	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM leaves"+where.clause(), where.args...); err != nil {
		return 0, fmt.Errorf("count pending leaves: %w", err)
	}
	return total, nil
}
