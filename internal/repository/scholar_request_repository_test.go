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
)

func TestScholarRequestRepositoryListByStatus(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewScholarRequestRepository(db)

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("FROM scholar_requests WHERE office = $1 AND status = ANY($2) ORDER BY created_at DESC LIMIT 20 OFFSET 0")).
		WithArgs("Library", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id", "office", "requested_by", "scholar_type", "quantity", "reason", "status", "reviewed_by", "reviewed_at", "review_note", "fulfilled_at", "created_at", "updated_at"}).
			AddRow("r1", "Library", "office-1", "student_assistant", 2, "enrollment week", "pending", nil, nil, nil, nil, now, now))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM scholar_requests")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	reqs, total, err := repo.List(context.Background(), models.ScholarRequestFilter{
		Office:   "Library",
		Statuses: []models.ScholarRequestStatus{models.ScholarRequestPending, models.ScholarRequestApproved},
	})
	require.NoError(t, err)
	require.Len(t, reqs, 1)
	assert.Equal(t, 2, reqs[0].Quantity)
	assert.Equal(t, 1, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScholarRequestRepositoryTransitionStale(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewScholarRequestRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE scholar_requests SET status = $2")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Transition(context.Background(), &models.ScholarRequest{ID: "r1", Status: models.ScholarRequestFulfilled}, models.ScholarRequestApproved)
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}
