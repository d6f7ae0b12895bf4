package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sasm-ims-api/internal/dto"
	"github.com/noah-isme/sasm-ims-api/internal/models"
	appErrors "github.com/noah-isme/sasm-ims-api/pkg/errors"
)

type fakeEvaluationSrv struct {
	req       dto.EvaluationRequest
	query     dto.EvaluationQuery
	updateErr error
}

func (f *fakeEvaluationSrv) Create(_ context.Context, _ *models.JWTClaims, req dto.EvaluationRequest) (*models.Evaluation, error) {
	f.req = req
	return &models.Evaluation{ID: "eval-1", ScholarID: req.ScholarID, Period: req.Period}, nil
}

func (f *fakeEvaluationSrv) Update(_ context.Context, _ *models.JWTClaims, id string, req dto.EvaluationRequest) (*models.Evaluation, error) {
	f.req = req
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	return &models.Evaluation{ID: id}, nil
}

func (f *fakeEvaluationSrv) Get(_ context.Context, _ *models.JWTClaims, id string) (*models.Evaluation, error) {
	return &models.Evaluation{ID: id}, nil
}

func (f *fakeEvaluationSrv) List(_ context.Context, _ *models.JWTClaims, query dto.EvaluationQuery) ([]models.Evaluation, *models.Pagination, error) {
	f.query = query
	return []models.Evaluation{}, &models.Pagination{Page: 1, PageSize: 20}, nil
}

func TestEvaluationHandlerCreateBindsRatings(t *testing.T) {
	service := &fakeEvaluationSrv{}
	handler := NewEvaluationHandler(service)

	body := []byte(`{"scholarId":"sch-1","period":"2026-1","ratings":{"punctuality":5,"teamwork":4},"submit":true}`)
	c, w := newGinContext(http.MethodPost, "/evaluations", body)
	handler.Create(c)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "sch-1", service.req.ScholarID)
	assert.Equal(t, 4, service.req.Ratings["teamwork"])
	assert.True(t, service.req.Submit)
}

func TestEvaluationHandlerUpdateSubmitted(t *testing.T) {
	handler := NewEvaluationHandler(&fakeEvaluationSrv{updateErr: appErrors.Clone(appErrors.ErrConflict, "evaluation already submitted")})

	c, w := newGinContext(http.MethodPut, "/evaluations/eval-1", []byte(`{"scholarId":"sch-1","period":"2026-1","ratings":{"punctuality":3}}`))
	c.Params = gin.Params{{Key: "id", Value: "eval-1"}}
	handler.Update(c)

	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestEvaluationHandlerListFilters(t *testing.T) {
	service := &fakeEvaluationSrv{}
	handler := NewEvaluationHandler(service)

	c, w := newGinContext(http.MethodGet, "/evaluations?scholarId=sch-1&status=draft", nil)
	handler.List(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "sch-1", service.query.ScholarID)
	assert.Equal(t, "draft", service.query.Status)
}
