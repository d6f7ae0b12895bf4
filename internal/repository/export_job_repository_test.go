package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sasm-ims-api/internal/models"
)

var exportJobRowColumns = []string{"id", "type", "params", "status", "progress", "result_url", "created_by", "created_at", "finished_at", "error_message"}

func TestExportJobRepositoryCreateAndGet(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewExportJobRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO export_jobs")).
		WithArgs(sqlmock.AnyArg(), "dtr", sqlmock.AnyArg(), "QUEUED", 0, nil, "hr-1", sqlmock.AnyArg(), nil, nil).
		WillReturnResult(sqlmock.NewResult(1, 1))

	job := &models.ExportJob{
		Type:      models.ExportTypeDTR,
		Params:    models.ExportJobParams{Format: models.ExportFormatCSV, UserID: "u1"},
		CreatedBy: "hr-1",
	}
	require.NoError(t, repo.Create(context.Background(), job))

	mock.ExpectQuery(regexp.QuoteMeta("FROM export_jobs WHERE id = $1")).
		WithArgs(job.ID).
		WillReturnRows(sqlmock.NewRows(exportJobRowColumns).
			AddRow(job.ID, "dtr", `{"format":"csv","userId":"u1"}`, "QUEUED", 0, nil, "hr-1", time.Now(), nil, nil))

	fetched, err := repo.GetByID(context.Background(), job.ID)
	require.NoError(t, err)
	require.Equal(t, "u1", fetched.Params.UserID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestExportJobRepositoryUpdate(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewExportJobRepository(db)

	now := time.Now()
	status := models.ExportStatusFinished
	progress := 100
	result := "/api/v1/export/token"
	mock.ExpectExec(regexp.QuoteMeta("UPDATE export_jobs SET status = $1, progress = $2, result_url = $3, finished_at = $4 WHERE id = $5")).
		WithArgs(status, progress, result, now, "job-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Update(context.Background(), "job-1", ExportJobUpdate{
		Status:     &status,
		Progress:   &progress,
		ResultURL:  &result,
		FinishedAt: &now,
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestExportJobRepositoryUpdateNothing(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewExportJobRepository(db)

	require.NoError(t, repo.Update(context.Background(), "job-1", ExportJobUpdate{}))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestExportJobRepositoryListFinishedBefore(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewExportJobRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM export_jobs WHERE status = $1 AND finished_at IS NOT NULL AND finished_at < $2 ORDER BY finished_at ASC LIMIT $3")).
		WithArgs(models.ExportStatusFinished, sqlmock.AnyArg(), 50).
		WillReturnRows(sqlmock.NewRows(exportJobRowColumns).
			AddRow("job-1", "roster", `{"format":"pdf"}`, "FINISHED", 100, "/api/v1/export/token", "hr-1", time.Now().Add(-48*time.Hour), time.Now().Add(-25*time.Hour), nil))

	jobs, err := repo.ListFinishedBefore(context.Background(), time.Now(), 0)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	require.NoError(t, mock.ExpectationsWereMet())
}
