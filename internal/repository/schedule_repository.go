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

const scheduleColumns = `id, user_id, application_id, scholar_id, user_type, class_schedule_data, duty_hours, last_modified_by, last_modified_at, created_at, updated_at`

// ScheduleRepository provides persistence for trainee and scholar schedules.
type ScheduleRepository struct {
	db *sqlx.DB
}

// NewScheduleRepository creates a new schedule repository.
func NewScheduleRepository(db *sqlx.DB) *ScheduleRepository {
	return &ScheduleRepository{db: db}
}

func (r *ScheduleRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	return pick(exec, r.db)
}

// GetByUserID returns the user's schedule.
func (r *ScheduleRepository) GetByUserID(ctx context.Context, userID string) (*models.Schedule, error) {
	query := `SELECT ` + scheduleColumns + ` FROM schedules WHERE user_id = $1 ORDER BY updated_at DESC LIMIT 1`
	var schedule models.Schedule
	if err := r.db.GetContext(ctx, &schedule, query, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("get schedule by user: %w", err)
	}
	return &schedule, nil
}

// ListByUser returns every schedule row of the user.
func (r *ScheduleRepository) ListByUser(ctx context.Context, exec sqlx.ExtContext, userID string) ([]models.Schedule, error) {
	query := `SELECT ` + scheduleColumns + ` FROM schedules WHERE user_id = $1 ORDER BY created_at ASC`
	var schedules []models.Schedule
	if err := sqlx.SelectContext(ctx, r.exec(exec), &schedules, query, userID); err != nil {
		return nil, fmt.Errorf("list schedules by user: %w", err)
	}
	return schedules, nil
}

// ListByUserType returns schedules labelled with the given user type.
func (r *ScheduleRepository) ListByUserType(ctx context.Context, userType models.ScheduleUserType) ([]models.Schedule, error) {
	query := `SELECT ` + scheduleColumns + ` FROM schedules WHERE user_type = $1 ORDER BY created_at ASC`
	var schedules []models.Schedule
	if err := r.db.SelectContext(ctx, &schedules, query, userType); err != nil {
		return nil, fmt.Errorf("list schedules by user type: %w", err)
	}
	return schedules, nil
}

// Upsert creates the user's schedule or replaces its data.
func (r *ScheduleRepository) Upsert(ctx context.Context, schedule *models.Schedule) error {
	if schedule.ID == "" {
		schedule.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if schedule.CreatedAt.IsZero() {
		schedule.CreatedAt = now
	}
	schedule.UpdatedAt = now
	const query = `INSERT INTO schedules (id, user_id, application_id, scholar_id, user_type, class_schedule_data, duty_hours, last_modified_by, last_modified_at, created_at, updated_at)
VALUES (:id, :user_id, :application_id, :scholar_id, :user_type, :class_schedule_data, :duty_hours, :last_modified_by, :last_modified_at, :created_at, :updated_at)
ON CONFLICT (user_id) DO UPDATE SET
	class_schedule_data = EXCLUDED.class_schedule_data,
	duty_hours = EXCLUDED.duty_hours,
	last_modified_by = EXCLUDED.last_modified_by,
	last_modified_at = EXCLUDED.last_modified_at,
	updated_at = EXCLUDED.updated_at`
	if _, err := r.db.NamedExecContext(ctx, query, schedule); err != nil {
		return fmt.Errorf("upsert schedule: %w", err)
	}
	return nil
}

// RelabelForScholar marks every schedule of the user as a scholar schedule linked to the
// scholar and application. Rows already carrying the right labels are left untouched.
func (r *ScheduleRepository) RelabelForScholar(ctx context.Context, exec sqlx.ExtContext, userID, scholarID, applicationID, actorID string, at time.Time) (int64, error) {
	const query = `UPDATE schedules SET user_type = $2, scholar_id = $3, application_id = $4, last_modified_by = $5, last_modified_at = $6, updated_at = $6
WHERE user_id = $1 AND (user_type <> $2 OR scholar_id IS DISTINCT FROM $3 OR application_id IS DISTINCT FROM $4)`
	res, err := r.exec(exec).ExecContext(ctx, query, userID, models.ScheduleUserScholar, scholarID, applicationID, actorID, at)
	if err != nil {
		return 0, fmt.Errorf("relabel schedules: %w", err)
	}
	return res.RowsAffected()
}
