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

const (
	userColumns         = `id, email, password_hash, full_name, role, office, student_no, active, last_login, created_at, updated_at`
	refreshTokenColumns = `id, user_id, token, expires_at, created_at, revoked, revoked_at, ip_address, user_agent`
)

var userSortable = map[string]bool{
	"email":      true,
	"full_name":  true,
	"created_at": true,
	"updated_at": true,
}

// UserRepository stores accounts together with their refresh sessions and
// the audit trail written by every service.
type UserRepository struct {
	db *sqlx.DB
}

func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

// FindByEmail matches the address case-insensitively.
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.getUser(ctx, "LOWER(email) = LOWER($1)", strings.TrimSpace(email))
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	return r.getUser(ctx, "id = $1", id)
}

// getUser passes sql.ErrNoRows through unwrapped so callers can map it to 404.
func (r *UserRepository) getUser(ctx context.Context, cond string, arg interface{}) (*models.User, error) {
	var user models.User
	err := r.db.GetContext(ctx, &user, `SELECT `+userColumns+` FROM users WHERE `+cond+` LIMIT 1`, arg)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, err
	case err != nil:
		return nil, fmt.Errorf("load user (%s): %w", cond, err)
	}
	return &user, nil
}

// ListIDsByRole returns the ids of active accounts holding role, oldest
// first. A non-empty office narrows the result to that office.
func (r *UserRepository) ListIDsByRole(ctx context.Context, role models.UserRole, office string) ([]string, error) {
	var where whereBuilder
	where.add("role = $%d", role)
	where.conditions = append(where.conditions, "active = TRUE")
	if office != "" {
		where.add("office = $%d", office)
	}
	ids := []string{}
	if err := r.db.SelectContext(ctx, &ids, `SELECT id FROM users`+where.clause()+` ORDER BY created_at`, where.args...); err != nil {
		return nil, fmt.Errorf("list %s recipients: %w", role, err)
	}
	return ids, nil
}

func (r *UserRepository) UpdateLastLogin(ctx context.Context, id string, ts time.Time) error {
	return r.exec(ctx, "touch last login", `UPDATE users SET last_login = $2, updated_at = $2 WHERE id = $1`, id, ts)
}

func (r *UserRepository) UpdatePassword(ctx context.Context, id, passwordHash string, updatedAt time.Time) error {
	return r.exec(ctx, "change password", `UPDATE users SET password_hash = $2, updated_at = $3 WHERE id = $1`, id, passwordHash, updatedAt)
}

// List pages through accounts. Search matches email or full name.
func (r *UserRepository) List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error) {
	var where whereBuilder
	if filter.Role != nil {
		where.add("role = $%d", *filter.Role)
	}
	if filter.Office != "" {
		where.add("office = $%d", filter.Office)
	}
	if filter.Active != nil {
		where.add("active = $%d", *filter.Active)
	}
	if term := strings.ToLower(strings.TrimSpace(filter.Search)); term != "" {
		where.args = append(where.args, "%"+term+"%")
		n := len(where.args)
		where.conditions = append(where.conditions, fmt.Sprintf("(LOWER(email) LIKE $%d OR LOWER(full_name) LIKE $%d)", n, n))
	}

	limit, offset := pageWindow(filter.Page, filter.PageSize)
	order := orderBy(filter.SortBy, filter.SortOrder, "created_at", userSortable)

	users := []models.User{}
	query := fmt.Sprintf("SELECT %s FROM users%s ORDER BY %s LIMIT %d OFFSET %d", userColumns, where.clause(), order, limit, offset)
	if err := r.db.SelectContext(ctx, &users, query, where.args...); err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}
	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM users"+where.clause(), where.args...); err != nil {
		return nil, 0, fmt.Errorf("count users: %w", err)
	}
	return users, total, nil
}

// Create assigns an id when missing and stamps both timestamps.
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	user.UpdatedAt = time.Now().UTC()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = user.UpdatedAt
	}
	return r.namedExec(ctx, "insert user", `INSERT INTO users (id, email, password_hash, full_name, role, office, student_no, active, created_at, updated_at)
VALUES (:id, :email, :password_hash, :full_name, :role, :office, :student_no, :active, :created_at, :updated_at)`, user)
}

// Update rewrites the profile fields. Email and password are not touched.
func (r *UserRepository) Update(ctx context.Context, user *models.User) error {
	user.UpdatedAt = time.Now().UTC()
	return r.namedExec(ctx, "update user", `UPDATE users
SET full_name = :full_name, role = :role, office = :office, student_no = :student_no, active = :active, updated_at = :updated_at
WHERE id = :id`, user)
}

// Delete deactivates the account; rows are never removed.
func (r *UserRepository) Delete(ctx context.Context, id string) error {
	return r.exec(ctx, "deactivate user", `UPDATE users SET active = FALSE, updated_at = $2 WHERE id = $1`, id, time.Now().UTC())
}

func (r *UserRepository) CreateRefreshToken(ctx context.Context, token *models.RefreshToken) error {
	if token.ID == "" {
		token.ID = uuid.NewString()
	}
	if token.CreatedAt.IsZero() {
		token.CreatedAt = time.Now().UTC()
	}
	return r.namedExec(ctx, "insert refresh token", `INSERT INTO refresh_tokens (`+refreshTokenColumns+`)
VALUES (:id, :user_id, :token, :expires_at, :created_at, :revoked, :revoked_at, :ip_address, :user_agent)`, token)
}

// FindRefreshToken looks a session up by its opaque token value.
func (r *UserRepository) FindRefreshToken(ctx context.Context, token string) (*models.RefreshToken, error) {
	var rt models.RefreshToken
	err := r.db.GetContext(ctx, &rt, `SELECT `+refreshTokenColumns+` FROM refresh_tokens WHERE token = $1 LIMIT 1`, token)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, err
	case err != nil:
		return nil, fmt.Errorf("load refresh token: %w", err)
	}
	return &rt, nil
}

func (r *UserRepository) RevokeRefreshToken(ctx context.Context, id string, revokedAt time.Time) error {
	return r.exec(ctx, "revoke refresh token", `UPDATE refresh_tokens SET revoked = TRUE, revoked_at = $2 WHERE id = $1`, id, revokedAt)
}

// RevokeUserRefreshTokens ends every live session of the user.
func (r *UserRepository) RevokeUserRefreshTokens(ctx context.Context, userID string) error {
	return r.exec(ctx, "revoke user sessions", `UPDATE refresh_tokens SET revoked = TRUE, revoked_at = $2 WHERE user_id = $1 AND revoked = FALSE`, userID, time.Now().UTC())
}

// CreateAuditLog appends to the audit trail.
func (r *UserRepository) CreateAuditLog(ctx context.Context, entry *models.AuditLog) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	return r.namedExec(ctx, "insert audit log", `INSERT INTO audit_logs (id, user_id, action, resource, resource_id, old_values, new_values, ip_address, user_agent, created_at)
VALUES (:id, :user_id, :action, :resource, :resource_id, :old_values, :new_values, :ip_address, :user_agent, :created_at)`, entry)
}

func (r *UserRepository) exec(ctx context.Context, op, query string, args ...interface{}) error {
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (r *UserRepository) namedExec(ctx context.Context, op, query string, arg interface{}) error {
	if _, err := r.db.NamedExecContext(ctx, query, arg); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
