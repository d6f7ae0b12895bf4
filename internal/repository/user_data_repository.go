package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sasm-ims-api/internal/models"
)

const userDataColumns = `user_id, service_months, service_periods, effectivity_date, created_at, updated_at`

// UserDataRepository stores service history per user.
type UserDataRepository struct {
	db *sqlx.DB
}

// NewUserDataRepository constructs the repository.
func NewUserDataRepository(db *sqlx.DB) *UserDataRepository {
	return &UserDataRepository{db: db}
}

func (r *UserDataRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	return pick(exec, r.db)
}

// Get returns the user's record. Inside a transaction the row is locked for update.
func (r *UserDataRepository) Get(ctx context.Context, exec sqlx.ExtContext, userID string) (*models.UserData, error) {
	query := `SELECT ` + userDataColumns + ` FROM user_data WHERE user_id = $1`
	if exec != nil {
		query += ` FOR UPDATE`
	}
	var data models.UserData
	if err := sqlx.GetContext(ctx, r.exec(exec), &data, query, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("get user data: %w", err)
	}
	return &data, nil
}

// Upsert writes the full record.
func (r *UserDataRepository) Upsert(ctx context.Context, exec sqlx.ExtContext, data *models.UserData) error {
	now := time.Now().UTC()
	if data.CreatedAt.IsZero() {
		data.CreatedAt = now
	}
	data.UpdatedAt = now
	const query = `INSERT INTO user_data (user_id, service_months, service_periods, effectivity_date, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (user_id) DO UPDATE SET
	service_months = EXCLUDED.service_months,
	service_periods = EXCLUDED.service_periods,
	effectivity_date = EXCLUDED.effectivity_date,
	updated_at = EXCLUDED.updated_at`
	if _, err := r.exec(exec).ExecContext(ctx, query, data.UserID, data.ServiceMonths, data.ServicePeriods, data.EffectivityDate, data.CreatedAt, data.UpdatedAt); err != nil {
		return fmt.Errorf("upsert user data: %w", err)
	}
	return nil
}

// MissingEffectivity is a scholar whose service record lacks an effectivity date.
type MissingEffectivity struct {
	UserID     string    `db:"user_id"`
	FullName   string    `db:"full_name"`
	DeployedAt time.Time `db:"deployed_at"`
}

// ListMissingEffectivity returns active scholars without an effectivity date.
func (r *UserDataRepository) ListMissingEffectivity(ctx context.Context) ([]MissingEffectivity, error) {
	const query = `SELECT s.user_id, s.full_name, s.deployed_at
FROM scholars s LEFT JOIN user_data d ON d.user_id = s.user_id
WHERE s.status = $1 AND d.effectivity_date IS NULL
ORDER BY s.deployed_at ASC`
	var items []MissingEffectivity
	if err := r.db.SelectContext(ctx, &items, query, models.ScholarStatusActive); err != nil {
		return nil, fmt.Errorf("list missing effectivity dates: %w", err)
	}
	return items, nil
}

// SetEffectivityDate sets the date only where it is still missing, creating the record if needed.
func (r *UserDataRepository) SetEffectivityDate(ctx context.Context, exec sqlx.ExtContext, userID string, date time.Time) (int64, error) {
	const query = `INSERT INTO user_data (user_id, service_months, service_periods, effectivity_date, created_at, updated_at)
VALUES ($1, 0, '[]', $2, $3, $3)
ON CONFLICT (user_id) DO UPDATE SET effectivity_date = EXCLUDED.effectivity_date, updated_at = EXCLUDED.updated_at
WHERE user_data.effectivity_date IS NULL`
	res, err := r.exec(exec).ExecContext(ctx, query, userID, date, time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("set effectivity date: %w", err)
	}
	return res.RowsAffected()
}
