package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sasm-ims-api/internal/dto"
	"github.com/noah-isme/sasm-ims-api/internal/models"
	appErrors "github.com/noah-isme/sasm-ims-api/pkg/errors"
)

type stubEvaluationRepo struct {
	evals      map[string]*models.Evaluation
	average    *float64
	lastFilter models.EvaluationFilter
}

func (s *stubEvaluationRepo) Create(_ context.Context, _ sqlx.ExtContext, eval *models.Evaluation) error {
	eval.ID = "ev-new"
	copy := *eval
	s.evals[eval.ID] = &copy
	return nil
}

func (s *stubEvaluationRepo) GetByID(_ context.Context, id string) (*models.Evaluation, error) {
	if eval, ok := s.evals[id]; ok {
		copy := *eval
		return &copy, nil
	}
	return nil, sql.ErrNoRows
}

func (s *stubEvaluationRepo) Update(_ context.Context, _ sqlx.ExtContext, eval *models.Evaluation) error {
	current, ok := s.evals[eval.ID]
	if !ok || current.Status != models.EvaluationStatusDraft {
		return sql.ErrNoRows
	}
	copy := *eval
	s.evals[eval.ID] = &copy
	return nil
}

func (s *stubEvaluationRepo) List(_ context.Context, filter models.EvaluationFilter) ([]models.Evaluation, int, error) {
	s.lastFilter = filter
	return []models.Evaluation{}, 0, nil
}

func (s *stubEvaluationRepo) AverageForScholar(context.Context, sqlx.ExtContext, string) (*float64, error) {
	return s.average, nil
}

type stubRatedScholars struct {
	stubScholarRepo
	ratings map[string]*float64
}

func (s *stubRatedScholars) SetPerformanceRating(_ context.Context, _ sqlx.ExtContext, id string, rating *float64) error {
	s.ratings[id] = rating
	return nil
}

type evaluationFixture struct {
	svc      *EvaluationService
	mock     sqlmock.Sqlmock
	repo     *stubEvaluationRepo
	scholars *stubRatedScholars
	notifier *recordingNotifier
}

func newEvaluationFixture(t *testing.T) *evaluationFixture {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	scholar := &models.Scholar{ID: "s1", UserID: "u1", ScholarOffice: "Library", Status: models.ScholarStatusActive}
	scholars := &stubRatedScholars{ratings: map[string]*float64{}}
	scholars.byID = map[string]*models.Scholar{"s1": scholar}
	scholars.byUser = map[string]*models.Scholar{"u1": scholar}

	avg := 4.5
	f := &evaluationFixture{
		mock:     mock,
		repo:     &stubEvaluationRepo{evals: map[string]*models.Evaluation{}, average: &avg},
		scholars: scholars,
		notifier: &recordingNotifier{},
	}
	f.svc = NewEvaluationService(sqlx.NewDb(db, "sqlmock"), f.repo, f.scholars, f.notifier, nil, nil)
	f.svc.now = func() time.Time { return time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC) }
	return f
}

var libraryOffice = &models.JWTClaims{UserID: "o1", Role: models.RoleOffice, Office: "Library"}

func TestEvaluationSubmitUpdatesRating(t *testing.T) {
	f := newEvaluationFixture(t)
	f.mock.ExpectBegin()
	f.mock.ExpectCommit()

	eval, err := f.svc.Create(context.Background(), libraryOffice, dto.EvaluationRequest{
		ScholarID: "s1", Period: "2026-02", Ratings: map[string]int{"punctuality": 5, "quality": 4}, Submit: true,
	})
	require.NoError(t, err)
	assert.Equal(t, models.EvaluationStatusSubmitted, eval.Status)
	assert.Equal(t, 4.5, eval.Average)
	require.NotNil(t, eval.SubmittedAt)
	require.NotNil(t, f.scholars.ratings["s1"])
	assert.Equal(t, 4.5, *f.scholars.ratings["s1"])
	require.Len(t, f.notifier.sent, 1)
	assert.Equal(t, "u1", f.notifier.sent[0].RecipientID)
	require.NoError(t, f.mock.ExpectationsWereMet())
}

func TestEvaluationDraftLeavesRatingAlone(t *testing.T) {
	f := newEvaluationFixture(t)
	f.mock.ExpectBegin()
	f.mock.ExpectCommit()

	eval, err := f.svc.Create(context.Background(), libraryOffice, dto.EvaluationRequest{
		ScholarID: "s1", Period: "2026-02", Ratings: map[string]int{"quality": 3},
	})
	require.NoError(t, err)
	assert.Equal(t, models.EvaluationStatusDraft, eval.Status)
	assert.Empty(t, f.scholars.ratings)
	assert.Empty(t, f.notifier.sent)
}

func TestEvaluationRejectsOtherOffice(t *testing.T) {
	f := newEvaluationFixture(t)
	_, err := f.svc.Create(context.Background(), &models.JWTClaims{UserID: "o2", Role: models.RoleOffice, Office: "Registrar"}, dto.EvaluationRequest{
		ScholarID: "s1", Period: "2026-02", Ratings: map[string]int{"quality": 3},
	})
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErr.Code)
}

func TestEvaluationRejectsOutOfRangeRating(t *testing.T) {
	f := newEvaluationFixture(t)
	_, err := f.svc.Create(context.Background(), libraryOffice, dto.EvaluationRequest{
		ScholarID: "s1", Period: "2026-02", Ratings: map[string]int{"quality": 9},
	})
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestEvaluationSubmittedIsFinal(t *testing.T) {
	f := newEvaluationFixture(t)
	f.repo.evals["ev-1"] = &models.Evaluation{ID: "ev-1", ScholarID: "s1", Office: "Library", Status: models.EvaluationStatusSubmitted}

	_, err := f.svc.Update(context.Background(), libraryOffice, "ev-1", dto.EvaluationRequest{
		ScholarID: "s1", Period: "2026-02", Ratings: map[string]int{"quality": 3},
	})
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
}

func TestEvaluationStudentSeesOnlyOwnSubmitted(t *testing.T) {
	f := newEvaluationFixture(t)
	f.repo.evals["ev-1"] = &models.Evaluation{ID: "ev-1", ScholarID: "s1", Office: "Library", Status: models.EvaluationStatusDraft}
	student := &models.JWTClaims{UserID: "u1", Role: models.RoleStudent}

	_, err := f.svc.Get(context.Background(), student, "ev-1")
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)

	_, _, err = f.svc.List(context.Background(), student, dto.EvaluationQuery{ScholarID: "other"})
	require.NoError(t, err)
	assert.Equal(t, "s1", f.repo.lastFilter.ScholarID)
	assert.Equal(t, models.EvaluationStatusSubmitted, f.repo.lastFilter.Status)
}
