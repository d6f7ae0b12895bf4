package handler

import (
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
	appErrors "github.com/noah-isme/sasm-ims-api/pkg/errors"
)

type fakeDashboardSrv struct {
	hrResp      *dto.HRDashboardResponse
	hrHit       bool
	officeResp  *dto.OfficeDashboardResponse
	officeErr   error
	studentResp *dto.StudentDashboardResponse
	lastOffice  string
	lastActor   *models.JWTClaims
}

func (f *fakeDashboardSrv) HR(_ context.Context, actor *models.JWTClaims) (*dto.HRDashboardResponse, bool, error) {
	f.lastActor = actor
	return f.hrResp, f.hrHit, nil
}

func (f *fakeDashboardSrv) Office(_ context.Context, actor *models.JWTClaims, office string) (*dto.OfficeDashboardResponse, bool, error) {
	f.lastActor = actor
	f.lastOffice = office
	return f.officeResp, false, f.officeErr
}

func (f *fakeDashboardSrv) Student(_ context.Context, actor *models.JWTClaims) (*dto.StudentDashboardResponse, bool, error) {
	f.lastActor = actor
	return f.studentResp, false, nil
}

func TestDashboardHandlerHRReportsCacheHit(t *testing.T) {
	gin.SetMode(gin.TestMode)
	service := &fakeDashboardSrv{
		hrResp: &dto.HRDashboardResponse{ActiveScholars: 12},
		hrHit:  true,
	}
	handler := NewDashboardHandler(service)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/dashboard/hr", nil)
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "hr-1", Role: models.RoleHR})

	handler.HR(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	var envelope responseEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, true, envelope.Meta["cache_hit"])
	assert.Contains(t, envelope.Meta, "processing_time_ms")
	assert.EqualValues(t, 12, envelope.Data["activeScholars"])
	assert.Equal(t, "hr-1", service.lastActor.UserID)
}

func TestDashboardHandlerOfficePassesQuery(t *testing.T) {
	gin.SetMode(gin.TestMode)
	service := &fakeDashboardSrv{officeResp: &dto.OfficeDashboardResponse{Office: "Library"}}
	handler := NewDashboardHandler(service)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/dashboard/office?office=%20Library%20", nil)

	handler.Office(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Library", service.lastOffice)
	var envelope responseEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, false, envelope.Meta["cache_hit"])
}

func TestDashboardHandlerOfficeForbidden(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewDashboardHandler(&fakeDashboardSrv{officeErr: appErrors.ErrForbidden})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/dashboard/office", nil)

	handler.Office(c)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestDashboardHandlerStudent(t *testing.T) {
	gin.SetMode(gin.TestMode)
	service := &fakeDashboardSrv{studentResp: &dto.StudentDashboardResponse{UnreadNotifications: 3, ServiceMonths: 6}}
	handler := NewDashboardHandler(service)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/dashboard/student", nil)
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "stu-1", Role: models.RoleStudent})

	handler.Student(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	var envelope responseEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.EqualValues(t, 3, envelope.Data["unreadNotifications"])
	assert.EqualValues(t, 6, envelope.Data["serviceMonths"])
}

func TestDashboardHandlerWithoutService(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewDashboardHandler(nil)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/dashboard/hr", nil)

	handler.HR(c)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

type responseEnvelope struct {
	Data  map[string]interface{} `json:"data"`
	Error map[string]interface{} `json:"error"`
	Meta  map[string]interface{} `json:"meta"`
}
