package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sasm-ims-api/internal/dto"
	"github.com/noah-isme/sasm-ims-api/internal/middleware"
	"github.com/noah-isme/sasm-ims-api/internal/models"
	"github.com/noah-isme/sasm-ims-api/internal/workflow"
	appErrors "github.com/noah-isme/sasm-ims-api/pkg/errors"
)

type fakeApplicationSrv struct {
	statusReq dto.UpdateApplicationStatusRequest
	statusErr error
	meta      models.RequestMeta
	query     dto.ApplicationQuery
}

func (f *fakeApplicationSrv) Submit(_ context.Context, actor *models.JWTClaims, req dto.SubmitApplicationRequest, _ models.RequestMeta) (*models.Application, error) {
	return &models.Application{ID: "app-1", UserID: actor.UserID, Position: req.Position, Status: workflow.StatusPending}, nil
}

func (f *fakeApplicationSrv) List(_ context.Context, _ *models.JWTClaims, query dto.ApplicationQuery) ([]models.Application, *models.Pagination, error) {
	f.query = query
	return []models.Application{{ID: "app-1"}}, &models.Pagination{Page: 1, PageSize: 20, TotalCount: 1}, nil
}

func (f *fakeApplicationSrv) Get(_ context.Context, _ *models.JWTClaims, id string) (*models.Application, error) {
	return &models.Application{ID: id}, nil
}

func (f *fakeApplicationSrv) Progress(_ context.Context, _ *models.JWTClaims, _ string) (*workflow.Progress, error) {
	p := workflow.Classify(workflow.StatusInterviewPassed)
	return &p, nil
}

func (f *fakeApplicationSrv) History(context.Context, *models.JWTClaims, string) ([]models.ApplicationStatusChange, error) {
	return []models.ApplicationStatusChange{}, nil
}

func (f *fakeApplicationSrv) Update(_ context.Context, _ *models.JWTClaims, id string, _ dto.UpdateApplicationRequest) (*models.Application, error) {
	return &models.Application{ID: id}, nil
}

func (f *fakeApplicationSrv) UpdateStatus(_ context.Context, _ *models.JWTClaims, id string, req dto.UpdateApplicationStatusRequest, meta models.RequestMeta) (*models.Application, error) {
	f.statusReq = req
	f.meta = meta
	if f.statusErr != nil {
		return nil, f.statusErr
	}
	return &models.Application{ID: id, Status: req.Status}, nil
}

func (f *fakeApplicationSrv) Bulk(_ context.Context, _ *models.JWTClaims, req dto.BulkApplicationAction, _ models.RequestMeta) (*dto.BulkActionResult, error) {
	return &dto.BulkActionResult{Succeeded: req.ApplicationIDs, Failed: map[string]string{}}, nil
}

func (f *fakeApplicationSrv) Archive(_ context.Context, _ *models.JWTClaims, req dto.ArchiveSemesterRequest, _ models.RequestMeta) (*dto.ArchiveSemesterResult, error) {
	return &dto.ArchiveSemesterResult{Semester: req.Semester, Archived: 2}, nil
}

func applicationContext(method, target string, body []byte, role models.UserRole) (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(method, target, bytes.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")
	c.Request.Header.Set("User-Agent", "handler-test")
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "user-1", Role: role})
	return c, rec
}

func TestApplicationHandlerSubmitCreated(t *testing.T) {
	handler := NewApplicationHandler(&fakeApplicationSrv{})

	c, rec := applicationContext(http.MethodPost, "/applications", []byte(`{"position":"student_assistant","semester":"2024-1"}`), models.RoleStudent)
	handler.Submit(c)

	assert.Equal(t, http.StatusCreated, rec.Code)
	var envelope responseEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, "pending", envelope.Data["status"])
	assert.Equal(t, "user-1", envelope.Data["userId"])
}

func TestApplicationHandlerSubmitMalformed(t *testing.T) {
	handler := NewApplicationHandler(&fakeApplicationSrv{})

	c, rec := applicationContext(http.MethodPost, "/applications", []byte(`{"position":`), models.RoleStudent)
	handler.Submit(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestApplicationHandlerListPagination(t *testing.T) {
	service := &fakeApplicationSrv{}
	handler := NewApplicationHandler(service)

	c, rec := applicationContext(http.MethodGet, "/applications?status=pending,on_hold&page=2&pageSize=5", nil, models.RoleHR)
	handler.List(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "pending,on_hold", service.query.Status)
	assert.Equal(t, 2, service.query.Page)
	assert.Equal(t, 5, service.query.PageSize)
	assert.Contains(t, rec.Body.String(), `"pagination"`)
}

func TestApplicationHandlerProgress(t *testing.T) {
	handler := NewApplicationHandler(&fakeApplicationSrv{})

	c, rec := applicationContext(http.MethodGet, "/applications/app-1/progress", nil, models.RoleStudent)
	c.Params = gin.Params{{Key: "id", Value: "app-1"}}
	handler.Progress(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	var envelope responseEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.EqualValues(t, 2, envelope.Data["currentStep"])
	assert.Equal(t, false, envelope.Data["isFailed"])
}

func TestApplicationHandlerUpdateStatusPassesMeta(t *testing.T) {
	service := &fakeApplicationSrv{}
	handler := NewApplicationHandler(service)

	c, rec := applicationContext(http.MethodPatch, "/applications/app-1/status", []byte(`{"status":"under_review","note":"looks good"}`), models.RoleHR)
	c.Params = gin.Params{{Key: "id", Value: "app-1"}}
	handler.UpdateStatus(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, workflow.StatusUnderReview, service.statusReq.Status)
	assert.Equal(t, "handler-test", service.meta.UserAgent)
}

func TestApplicationHandlerUpdateStatusInvalidTransition(t *testing.T) {
	handler := NewApplicationHandler(&fakeApplicationSrv{statusErr: appErrors.ErrInvalidTransition})

	c, rec := applicationContext(http.MethodPatch, "/applications/app-1/status", []byte(`{"status":"accepted"}`), models.RoleHR)
	c.Params = gin.Params{{Key: "id", Value: "app-1"}}
	handler.UpdateStatus(c)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	var envelope responseEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, "INVALID_TRANSITION", envelope.Error["code"])
}

func TestApplicationHandlerBulk(t *testing.T) {
	handler := NewApplicationHandler(&fakeApplicationSrv{})

	body := []byte(`{"kind":"assign","applicationIds":["a","b"],"assign":{"scholarOffice":"Library"}}`)
	c, rec := applicationContext(http.MethodPost, "/applications/bulk", body, models.RoleHR)
	handler.Bulk(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"succeeded":["a","b"]`)
}

func TestApplicationHandlerArchive(t *testing.T) {
	handler := NewApplicationHandler(&fakeApplicationSrv{})

	c, rec := applicationContext(http.MethodPost, "/applications/archive", []byte(`{"semester":"2024-1"}`), models.RoleHR)
	handler.Archive(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	var envelope responseEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.EqualValues(t, 2, envelope.Data["archived"])
}
