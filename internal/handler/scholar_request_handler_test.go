package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sasm-ims-api/internal/dto"
	"github.com/noah-isme/sasm-ims-api/internal/middleware"
	"github.com/noah-isme/sasm-ims-api/internal/models"
	appErrors "github.com/noah-isme/sasm-ims-api/pkg/errors"
)

type fakeScholarRequestSrv struct {
	created   dto.CreateScholarRequestRequest
	reviewed  dto.ReviewScholarRequestRequest
	reviewErr error
}

func (f *fakeScholarRequestSrv) Create(_ context.Context, actor *models.JWTClaims, req dto.CreateScholarRequestRequest) (*models.ScholarRequest, error) {
	f.created = req
	return &models.ScholarRequest{ID: "req-1", Office: actor.Office, Quantity: req.Quantity, Status: models.ScholarRequestPending}, nil
}

func (f *fakeScholarRequestSrv) List(context.Context, *models.JWTClaims, dto.ScholarRequestQuery) ([]models.ScholarRequest, *models.Pagination, error) {
	return []models.ScholarRequest{}, &models.Pagination{Page: 1, PageSize: 20}, nil
}

func (f *fakeScholarRequestSrv) Get(_ context.Context, _ *models.JWTClaims, id string) (*models.ScholarRequest, error) {
	return &models.ScholarRequest{ID: id}, nil
}

func (f *fakeScholarRequestSrv) Review(_ context.Context, _ *models.JWTClaims, id string, req dto.ReviewScholarRequestRequest, _ models.RequestMeta) (*models.ScholarRequest, error) {
	f.reviewed = req
	if f.reviewErr != nil {
		return nil, f.reviewErr
	}
	return &models.ScholarRequest{ID: id, Status: req.Decision}, nil
}

func (f *fakeScholarRequestSrv) Cancel(_ context.Context, _ *models.JWTClaims, id string) (*models.ScholarRequest, error) {
	return &models.ScholarRequest{ID: id, Status: models.ScholarRequestCancelled}, nil
}

func TestScholarRequestHandlerCreate(t *testing.T) {
	service := &fakeScholarRequestSrv{}
	handler := NewScholarRequestHandler(service)

	c, w := newGinContext(http.MethodPost, "/scholar-requests", []byte(`{"scholarType":"student_assistant","quantity":3,"reason":"exam season"}`))
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "o1", Role: models.RoleOffice, Office: "Library"})
	handler.Create(c)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, 3, service.created.Quantity)
	assert.Contains(t, w.Body.String(), `"office":"Library"`)
}

func TestScholarRequestHandlerReviewInvalidTransition(t *testing.T) {
	service := &fakeScholarRequestSrv{reviewErr: appErrors.ErrInvalidTransition}
	handler := NewScholarRequestHandler(service)

	c, w := newGinContext(http.MethodPut, "/scholar-requests/req-1/review", []byte(`{"decision":"fulfilled"}`))
	c.Params = gin.Params{{Key: "id", Value: "req-1"}}
	handler.Review(c)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, models.ScholarRequestFulfilled, service.reviewed.Decision)
}

func TestScholarRequestHandlerCancel(t *testing.T) {
	handler := NewScholarRequestHandler(&fakeScholarRequestSrv{})

	c, w := newGinContext(http.MethodPut, "/scholar-requests/req-1/cancel", nil)
	c.Params = gin.Params{{Key: "id", Value: "req-1"}}
	handler.Cancel(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"cancelled"`)
}
