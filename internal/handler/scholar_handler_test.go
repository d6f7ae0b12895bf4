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

type fakeScholarSrv struct {
	query       dto.ScholarQuery
	update      dto.UpdateScholarRequest
	deactivated string
}

func (f *fakeScholarSrv) List(_ context.Context, _ *models.JWTClaims, query dto.ScholarQuery) ([]models.Scholar, *models.Pagination, error) {
	f.query = query
	return []models.Scholar{}, &models.Pagination{Page: 1, PageSize: 20}, nil
}

func (f *fakeScholarSrv) Get(_ context.Context, _ *models.JWTClaims, id string) (*models.Scholar, error) {
	return &models.Scholar{ID: id}, nil
}

func (f *fakeScholarSrv) Mine(_ context.Context, actor *models.JWTClaims) (*models.Scholar, error) {
	if actor == nil || actor.Role != models.RoleStudent {
		return nil, appErrors.ErrForbidden
	}
	return nil, appErrors.Clone(appErrors.ErrNotFound, "no active scholar record")
}

func (f *fakeScholarSrv) Update(_ context.Context, _ *models.JWTClaims, id string, req dto.UpdateScholarRequest, _ models.RequestMeta) (*models.Scholar, error) {
	f.update = req
	return &models.Scholar{ID: id}, nil
}

func (f *fakeScholarSrv) Deactivate(_ context.Context, _ *models.JWTClaims, id string, _ models.RequestMeta) error {
	f.deactivated = id
	return nil
}

func TestScholarHandlerListBindsFilters(t *testing.T) {
	service := &fakeScholarSrv{}
	handler := NewScholarHandler(service)

	c, w := newGinContext(http.MethodGet, "/scholars?office=Library&type=student_marshal&status=active", nil)
	handler.List(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Library", service.query.Office)
	assert.Equal(t, "student_marshal", service.query.Type)
	assert.Equal(t, "active", service.query.Status)
}

func TestScholarHandlerMineNotDeployed(t *testing.T) {
	handler := NewScholarHandler(&fakeScholarSrv{})

	c, w := newGinContext(http.MethodGet, "/scholars/me", nil)
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "stu-1", Role: models.RoleStudent})
	handler.Mine(c)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestScholarHandlerUpdatePassesPartialFields(t *testing.T) {
	service := &fakeScholarSrv{}
	handler := NewScholarHandler(service)

	c, w := newGinContext(http.MethodPut, "/scholars/sch-1", []byte(`{"scholarOffice":"Registrar"}`))
	c.Params = gin.Params{{Key: "id", Value: "sch-1"}}
	handler.Update(c)

	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, service.update.ScholarOffice)
	assert.Equal(t, "Registrar", *service.update.ScholarOffice)
	assert.Nil(t, service.update.Status)
}

func TestScholarHandlerDeactivate(t *testing.T) {
	service := &fakeScholarSrv{}
	handler := NewScholarHandler(service)

	c, _ := newGinContext(http.MethodDelete, "/scholars/sch-1", nil)
	c.Params = gin.Params{{Key: "id", Value: "sch-1"}}
	handler.Deactivate(c)

	assert.Equal(t, http.StatusNoContent, c.Writer.Status())
	assert.Equal(t, "sch-1", service.deactivated)
}
