package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sasm-ims-api/internal/models"
	"github.com/noah-isme/sasm-ims-api/internal/workflow"
)

var applicationRowColumns = []string{"id", "user_id", "applicant_name", "position", "status", "scholar_office", "semester", "notes", "priority", "tags", "last_reviewed_by", "status_changed_at", "submitted_at", "updated_at"}

func TestApplicationRepositoryCreateDefaultsPending(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewApplicationRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO applications")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	app := &models.Application{UserID: "u1", ApplicantName: "Ana", Position: models.PositionStudentAssistant, Semester: "2024-1"}
	require.NoError(t, repo.Create(context.Background(), app))
	assert.NotEmpty(t, app.ID)
	assert.Equal(t, workflow.StatusPending, app.Status)
	assert.Equal(t, models.PriorityNormal, app.Priority)
	assert.NotNil(t, app.Tags)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplicationRepositoryListFilters(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewApplicationRepository(db)

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("FROM applications WHERE status = ANY($1) AND scholar_office = $2 ORDER BY submitted_at DESC LIMIT 20 OFFSET 20")).
		WithArgs(sqlmock.AnyArg(), "Library").
		WillReturnRows(sqlmock.NewRows(applicationRowColumns).
			AddRow("a1", "u1", "Ana", "student_assistant", "trainee", "Library", "2024-1", nil, "high", "{returning,cs}", nil, nil, now, now))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM applications WHERE status = ANY($1) AND scholar_office = $2")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(21))

	apps, total, err := repo.List(context.Background(), models.ApplicationFilter{
		Statuses: []workflow.Status{workflow.StatusTrainee},
		Office:   "Library",
		Page:     2,
		SortBy:   "drop table",
	})
	require.NoError(t, err)
	require.Len(t, apps, 1)
	assert.Equal(t, workflow.StatusTrainee, apps[0].Status)
	assert.Equal(t, models.PriorityHigh, apps[0].Priority)
	assert.Equal(t, []string{"returning", "cs"}, []string(apps[0].Tags))
	assert.Equal(t, 21, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplicationRepositoryUpdateStatusStale(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewApplicationRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE applications SET status = $3")).
		WithArgs("a1", workflow.StatusPending, workflow.StatusUnderReview, "hr-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateStatus(context.Background(), nil, "a1", workflow.StatusPending, workflow.StatusUnderReview, "hr-1", time.Now())
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplicationRepositoryStatusChangeInTx(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewApplicationRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO application_status_changes")).
		WithArgs(sqlmock.AnyArg(), "a1", workflow.StatusTrainee, workflow.StatusTrainingCompleted, nil, "hr-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	tx, err := db.Beginx()
	require.NoError(t, err)
	require.NoError(t, repo.InsertStatusChange(context.Background(), tx, &models.ApplicationStatusChange{
		ApplicationID: "a1",
		FromStatus:    workflow.StatusTrainee,
		ToStatus:      workflow.StatusTrainingCompleted,
		ChangedBy:     "hr-1",
	}))
	require.NoError(t, tx.Commit())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplicationRepositoryCountByStatus(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewApplicationRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT status, COUNT(*) AS total FROM applications GROUP BY status")).
		WillReturnRows(sqlmock.NewRows([]string{"status", "total"}).
			AddRow("pending", 4).
			AddRow("on_hold", 1))

	counts, err := repo.CountByStatus(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, 4, counts[workflow.StatusPending])
	assert.Equal(t, 1, counts[workflow.StatusOnHold])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplicationRepositoryListByPriorityAndTag(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewApplicationRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM applications WHERE priority = $1 AND $2 = ANY(tags) ORDER BY priority ASC")).
		WithArgs(models.PriorityUrgent, "returning").
		WillReturnRows(sqlmock.NewRows(applicationRowColumns))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM applications WHERE priority = $1 AND $2 = ANY(tags)")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	apps, total, err := repo.List(context.Background(), models.ApplicationFilter{
		Priority:  models.PriorityUrgent,
		Tag:       "returning",
		SortBy:    "priority",
		SortOrder: "asc",
	})
	require.NoError(t, err)
	assert.Empty(t, apps)
	assert.Zero(t, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplicationRepositoryUpdateWritesPriorityAndTags(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewApplicationRepository(db)

	mock.ExpectExec(`UPDATE applications SET .*priority = .*tags = .*WHERE id = `).
		WillReturnResult(sqlmock.NewResult(0, 1))

	app := &models.Application{ID: "a1", Priority: models.PriorityHigh, Tags: []string{"cs"}}
	require.NoError(t, repo.Update(context.Background(), app))
	assert.False(t, app.UpdatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}
