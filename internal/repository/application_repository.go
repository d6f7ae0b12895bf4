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
	"github.com/lib/pq"

	"github.com/noah-isme/sasm-ims-api/internal/models"
	"github.com/noah-isme/sasm-ims-api/internal/workflow"
)

const applicationColumns = `id, user_id, applicant_name, position, status, scholar_office, semester, notes, priority, tags, last_reviewed_by, status_changed_at, submitted_at, updated_at`

const archivedColumns = `id, application_id, user_id, position, status, scholar_office, semester, archive_reason, archived_by, archived_at, snapshot`

// ApplicationRepository handles applications, their status history and the archive.
type ApplicationRepository struct {
	db *sqlx.DB
}

// NewApplicationRepository constructs the repository.
func NewApplicationRepository(db *sqlx.DB) *ApplicationRepository {
	return &ApplicationRepository{db: db}
}

func (r *ApplicationRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	return pick(exec, r.db)
}

func statusStrings(statuses []workflow.Status) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}

// Create inserts a new application.
func (r *ApplicationRepository) Create(ctx context.Context, app *models.Application) error {
	if app.ID == "" {
		app.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if app.SubmittedAt.IsZero() {
		app.SubmittedAt = now
	}
	app.UpdatedAt = now
	if app.Status == "" {
		app.Status = workflow.StatusPending
	}
	if app.Priority == "" {
		app.Priority = models.PriorityNormal
	}
	if app.Tags == nil {
		app.Tags = pq.StringArray{}
	}
	const query = `INSERT INTO applications (id, user_id, applicant_name, position, status, scholar_office, semester, notes, priority, tags, last_reviewed_by, status_changed_at, submitted_at, updated_at)
VALUES (:id, :user_id, :applicant_name, :position, :status, :scholar_office, :semester, :notes, :priority, :tags, :last_reviewed_by, :status_changed_at, :submitted_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, app); err != nil {
		return fmt.Errorf("create application: %w", err)
	}
	return nil
}

// GetByID returns one application.
func (r *ApplicationRepository) GetByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Application, error) {
	query := `SELECT ` + applicationColumns + ` FROM applications WHERE id = $1`
	var app models.Application
	if err := sqlx.GetContext(ctx, r.exec(exec), &app, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("get application: %w", err)
	}
	return &app, nil
}

// FindOpenByUser returns the user's application that has not reached a failure status.
func (r *ApplicationRepository) FindOpenByUser(ctx context.Context, userID string) (*models.Application, error) {
	query := `SELECT ` + applicationColumns + ` FROM applications WHERE user_id = $1 AND NOT (status = ANY($2)) ORDER BY submitted_at DESC LIMIT 1`
	closed := statusStrings([]workflow.Status{workflow.StatusRejected, workflow.StatusWithdrawn, workflow.StatusPsychometricFailed, workflow.StatusInterviewFailed})
	var app models.Application
	if err := r.db.GetContext(ctx, &app, query, userID, pq.Array(closed)); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find open application: %w", err)
	}
	return &app, nil
}

// FindAcceptedByUser returns the user's most recent accepted application.
func (r *ApplicationRepository) FindAcceptedByUser(ctx context.Context, exec sqlx.ExtContext, userID string) (*models.Application, error) {
	query := `SELECT ` + applicationColumns + ` FROM applications WHERE user_id = $1 AND status = $2 ORDER BY status_changed_at DESC NULLS LAST LIMIT 1`
	var app models.Application
	if err := sqlx.GetContext(ctx, r.exec(exec), &app, query, userID, workflow.StatusAccepted); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find accepted application: %w", err)
	}
	return &app, nil
}

// List returns applications matching the filter with total count.
func (r *ApplicationRepository) List(ctx context.Context, filter models.ApplicationFilter) ([]models.Application, int, error) {
	where := whereBuilder{}
	if len(filter.Statuses) > 0 {
		where.add("status = ANY($%d)", pq.Array(statusStrings(filter.Statuses)))
	}
	if filter.Position != "" {
		where.add("position = $%d", filter.Position)
	}
	if filter.Office != "" {
		where.add("scholar_office = $%d", filter.Office)
	}
	if filter.Priority != "" {
		where.add("priority = $%d", filter.Priority)
	}
	if filter.Tag != "" {
		where.add("$%d = ANY(tags)", filter.Tag)
	}
	if filter.UserID != "" {
		where.add("user_id = $%d", filter.UserID)
	}
	if filter.Semester != "" {
		where.add("semester = $%d", filter.Semester)
	}
	if filter.Search != "" {
		where.add("LOWER(applicant_name) LIKE $%d", "%"+strings.ToLower(filter.Search)+"%")
	}

	order := orderBy(filter.SortBy, filter.SortOrder, "submitted_at", map[string]bool{
		"submitted_at":      true,
		"updated_at":        true,
		"status_changed_at": true,
		"applicant_name":    true,
		"status":            true,
		"priority":          true,
	})
	limit, offset := pageWindow(filter.Page, filter.PageSize)

	query := fmt.Sprintf("SELECT %s FROM applications%s ORDER BY %s LIMIT %d OFFSET %d", applicationColumns, where.clause(), order, limit, offset)
	var apps []models.Application
	if err := r.db.SelectContext(ctx, &apps, query, where.args...); err != nil {
		return nil, 0, fmt.Errorf("list applications: %w", err)
	}
	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM applications"+where.clause(), where.args...); err != nil {
		return nil, 0, fmt.Errorf("count applications: %w", err)
	}
	return apps, total, nil
}

// ListBySemester returns every application of the semester, oldest first.
func (r *ApplicationRepository) ListBySemester(ctx context.Context, semester string) ([]models.Application, error) {
	query := `SELECT ` + applicationColumns + ` FROM applications WHERE semester = $1 ORDER BY submitted_at ASC`
	var apps []models.Application
	if err := r.db.SelectContext(ctx, &apps, query, semester); err != nil {
		return nil, fmt.Errorf("list applications by semester: %w", err)
	}
	return apps, nil
}

// Update persists notes and the assigned office.
func (r *ApplicationRepository) Update(ctx context.Context, app *models.Application) error {
	app.UpdatedAt = time.Now().UTC()
	const query = `UPDATE applications SET scholar_office = :scholar_office, notes = :notes, priority = :priority, tags = :tags, updated_at = :updated_at WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, app)
	if err != nil {
		return fmt.Errorf("update application: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// UpdateStatus moves the application from -> to. It returns sql.ErrNoRows when the
// stored status no longer equals from, so concurrent reviewers cannot both apply a change.
func (r *ApplicationRepository) UpdateStatus(ctx context.Context, exec sqlx.ExtContext, id string, from, to workflow.Status, actorID string, at time.Time) error {
	const query = `UPDATE applications SET status = $3, last_reviewed_by = $4, status_changed_at = $5, updated_at = $5 WHERE id = $1 AND status = $2`
	res, err := r.exec(exec).ExecContext(ctx, query, id, from, to, actorID, at)
	if err != nil {
		return fmt.Errorf("update application status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update application status rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// InsertStatusChange appends a history row.
func (r *ApplicationRepository) InsertStatusChange(ctx context.Context, exec sqlx.ExtContext, change *models.ApplicationStatusChange) error {
	if change.ID == "" {
		change.ID = uuid.NewString()
	}
	if change.ChangedAt.IsZero() {
		change.ChangedAt = time.Now().UTC()
	}
	const query = `INSERT INTO application_status_changes (id, application_id, from_status, to_status, note, changed_by, changed_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`
	if _, err := r.exec(exec).ExecContext(ctx, query, change.ID, change.ApplicationID, change.FromStatus, change.ToStatus, change.Note, change.ChangedBy, change.ChangedAt); err != nil {
		return fmt.Errorf("insert application status change: %w", err)
	}
	return nil
}

// History returns the status changes of an application in chronological order.
func (r *ApplicationRepository) History(ctx context.Context, applicationID string) ([]models.ApplicationStatusChange, error) {
	const query = `SELECT id, application_id, from_status, to_status, note, changed_by, changed_at
FROM application_status_changes WHERE application_id = $1 ORDER BY changed_at ASC`
	var changes []models.ApplicationStatusChange
	if err := r.db.SelectContext(ctx, &changes, query, applicationID); err != nil {
		return nil, fmt.Errorf("list application history: %w", err)
	}
	return changes, nil
}

// CountByStatus groups applications by status, optionally limited to an office.
func (r *ApplicationRepository) CountByStatus(ctx context.Context, office string) (map[workflow.Status]int, error) {
	where := whereBuilder{}
	if office != "" {
		where.add("scholar_office = $%d", office)
	}
	var rows []struct {
		Status workflow.Status `db:"status"`
		Total  int             `db:"total"`
	}
	query := "SELECT status, COUNT(*) AS total FROM applications" + where.clause() + " GROUP BY status"
	if err := r.db.SelectContext(ctx, &rows, query, where.args...); err != nil {
		return nil, fmt.Errorf("count applications by status: %w", err)
	}
	out := make(map[workflow.Status]int, len(rows))
	for _, row := range rows {
		out[row.Status] = row.Total
	}
	return out, nil
}

// Delete removes an application row. Used when archiving.
func (r *ApplicationRepository) Delete(ctx context.Context, exec sqlx.ExtContext, id string) error {
	if _, err := r.exec(exec).ExecContext(ctx, `DELETE FROM applications WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete application: %w", err)
	}
	return nil
}

// InsertArchived stores an archived copy of an application.
func (r *ApplicationRepository) InsertArchived(ctx context.Context, exec sqlx.ExtContext, archived *models.ArchivedApplication) error {
	if archived.ID == "" {
		archived.ID = uuid.NewString()
	}
	if archived.ArchivedAt.IsZero() {
		archived.ArchivedAt = time.Now().UTC()
	}
	const query = `INSERT INTO archived_applications (id, application_id, user_id, position, status, scholar_office, semester, archive_reason, archived_by, archived_at, snapshot)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	if _, err := r.exec(exec).ExecContext(ctx, query,
		archived.ID, archived.ApplicationID, archived.UserID, archived.Position, archived.Status,
		archived.ScholarOffice, archived.Semester, archived.ArchiveReason, archived.ArchivedBy,
		archived.ArchivedAt, archived.Snapshot,
	); err != nil {
		return fmt.Errorf("insert archived application: %w", err)
	}
	return nil
}

// ListArchived returns archived applications with the given reason and status.
func (r *ApplicationRepository) ListArchived(ctx context.Context, reason string, status workflow.Status) ([]models.ArchivedApplication, error) {
	query := `SELECT ` + archivedColumns + ` FROM archived_applications WHERE archive_reason = $1 AND status = $2 ORDER BY archived_at ASC`
	var items []models.ArchivedApplication
	if err := r.db.SelectContext(ctx, &items, query, reason, status); err != nil {
		return nil, fmt.Errorf("list archived applications: %w", err)
	}
	return items, nil
}
