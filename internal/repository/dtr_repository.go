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

const dtrColumns = `id, user_id, scholar_id, office, work_date, time_in, time_out, hours, status, remarks, reviewed_by, reviewed_at, created_at, updated_at`

// DTRRepository persists daily time records.
type DTRRepository struct {
	db *sqlx.DB
}

// NewDTRRepository constructs the repository.
func NewDTRRepository(db *sqlx.DB) *DTRRepository {
	return &DTRRepository{db: db}
}

// Create inserts a time-in record.
func (r *DTRRepository) Create(ctx context.Context, entry *models.DTREntry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	entry.CreatedAt = now
	entry.UpdatedAt = now
	if entry.Status == "" {
		entry.Status = models.DTRStatusOpen
	}
	const query = `INSERT INTO dtr_entries (id, user_id, scholar_id, office, work_date, time_in, time_out, hours, status, remarks, reviewed_by, reviewed_at, created_at, updated_at)
VALUES (:id, :user_id, :scholar_id, :office, :work_date, :time_in, :time_out, :hours, :status, :remarks, :reviewed_by, :reviewed_at, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, entry); err != nil {
		return fmt.Errorf("create dtr entry: %w", err)
	}
	return nil
}

// GetByID returns one record.
func (r *DTRRepository) GetByID(ctx context.Context, id string) (*models.DTREntry, error) {
	query := `SELECT ` + dtrColumns + ` FROM dtr_entries WHERE id = $1`
	var entry models.DTREntry
	if err := r.db.GetContext(ctx, &entry, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("get dtr entry: %w", err)
	}
	return &entry, nil
}

// FindLatestOpen returns the user's most recent record without a time out,
// whatever day it was opened on.
func (r *DTRRepository) FindLatestOpen(ctx context.Context, userID string) (*models.DTREntry, error) {
	query := `SELECT ` + dtrColumns + ` FROM dtr_entries WHERE user_id = $1 AND status = $2 ORDER BY time_in DESC LIMIT 1`
	var entry models.DTREntry
	if err := r.db.GetContext(ctx, &entry, query, userID, models.DTRStatusOpen); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find open dtr entry: %w", err)
	}
	return &entry, nil
}

// CloseEntry records time out and hours for an open record.
func (r *DTRRepository) CloseEntry(ctx context.Context, id string, timeOut time.Time, hours float64, remarks *string) error {
	const query = `UPDATE dtr_entries SET time_out = $2, hours = $3, remarks = COALESCE($4, remarks), status = $5, updated_at = $6 WHERE id = $1 AND status = $7`
	res, err := r.db.ExecContext(ctx, query, id, timeOut, hours, remarks, models.DTRStatusSubmitted, time.Now().UTC(), models.DTRStatusOpen)
	if err != nil {
		return fmt.Errorf("close dtr entry: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("close dtr entry rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Review sets the final status of a submitted record.
func (r *DTRRepository) Review(ctx context.Context, id string, status models.DTRStatus, reviewerID string, remarks *string, at time.Time) error {
	const query = `UPDATE dtr_entries SET status = $2, reviewed_by = $3, reviewed_at = $4, remarks = COALESCE($5, remarks), updated_at = $4 WHERE id = $1 AND status = $6`
	res, err := r.db.ExecContext(ctx, query, id, status, reviewerID, at, remarks, models.DTRStatusSubmitted)
	if err != nil {
		return fmt.Errorf("review dtr entry: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("review dtr entry rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func dtrWhere(filter models.DTRFilter) whereBuilder {
	where := whereBuilder{}
	if filter.UserID != "" {
		where.add("user_id = $%d", filter.UserID)
	}
	if filter.Office != "" {
		where.add("office = $%d", filter.Office)
	}
	if filter.Status != "" {
		where.add("status = $%d", filter.Status)
	}
	if filter.From != nil {
		where.add("work_date >= $%d", *filter.From)
	}
	if filter.To != nil {
		where.add("work_date <= $%d", *filter.To)
	}
	return where
}

// List returns records matching the filter with total count, newest day first.
func (r *DTRRepository) List(ctx context.Context, filter models.DTRFilter) ([]models.DTREntry, int, error) {
	where := dtrWhere(filter)
	limit, offset := pageWindow(filter.Page, filter.PageSize)
	query := fmt.Sprintf("SELECT %s FROM dtr_entries%s ORDER BY work_date DESC, time_in DESC LIMIT %d OFFSET %d", dtrColumns, where.clause(), limit, offset)

	var entries []models.DTREntry
	if err := r.db.SelectContext(ctx, &entries, query, where.args...); err != nil {
		return nil, 0, fmt.Errorf("list dtr entries: %w", err)
	}
	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM dtr_entries"+where.clause(), where.args...); err != nil {
		return nil, 0, fmt.Errorf("count dtr entries: %w", err)
	}
	return entries, total, nil
}

// ListAll returns every record matching the filter in chronological order. Used for exports.
func (r *DTRRepository) ListAll(ctx context.Context, filter models.DTRFilter) ([]models.DTREntry, error) {
	where := dtrWhere(filter)
	query := fmt.Sprintf("SELECT %s FROM dtr_entries%s ORDER BY work_date ASC, time_in ASC", dtrColumns, where.clause())
	var entries []models.DTREntry
	if err := r.db.SelectContext(ctx, &entries, query, where.args...); err != nil {
		return nil, fmt.Errorf("list dtr entries for export: %w", err)
	}
	return entries, nil
}

// CountByStatus counts records in a status, optionally within an office.
func (r *DTRRepository) CountByStatus(ctx context.Context, status models.DTRStatus, office string) (int, error) {
	where := dtrWhere(models.DTRFilter{Status: status, Office: office})
	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM dtr_entries"+where.clause(), where.args...); err != nil {
		return 0, fmt.Errorf("count dtr entries by status: %w", err)
	}
	return total, nil
}
