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

type fakeUserSrv struct {
	query     dto.UserQuery
	created   dto.CreateUserRequest
	actorID   string
	deletedID string
}

func (f *fakeUserSrv) List(_ context.Context, query dto.UserQuery) ([]models.User, *models.Pagination, error) {
	f.query = query
	return []models.User{{ID: "u-1"}}, &models.Pagination{Page: 1, PageSize: 20, TotalCount: 1}, nil
}

func (f *fakeUserSrv) Get(_ context.Context, id string) (*models.User, error) {
	if id != "u-1" {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
	}
	return &models.User{ID: id}, nil
}

func (f *fakeUserSrv) Create(_ context.Context, actor *models.JWTClaims, req dto.CreateUserRequest, _ models.RequestMeta) (*models.User, error) {
	f.created = req
	f.actorID = actor.UserID
	return &models.User{ID: "u-2", Email: req.Email}, nil
}

func (f *fakeUserSrv) Update(_ context.Context, actor *models.JWTClaims, id string, _ dto.UpdateUserRequest, _ models.RequestMeta) (*models.User, error) {
	f.actorID = actor.UserID
	return &models.User{ID: id}, nil
}

func (f *fakeUserSrv) Delete(_ context.Context, actor *models.JWTClaims, id string, _ models.RequestMeta) error {
	f.deletedID = id
	f.actorID = actor.UserID
	return nil
}

func TestUserHandlerListBindsFilters(t *testing.T) {
	service := &fakeUserSrv{}
	handler := NewUserHandler(service)

	c, w := newGinContext(http.MethodGet, "/users?role=OFFICE&office=Library&search=cruz&page=2", nil)
	handler.List(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "OFFICE", service.query.Role)
	assert.Equal(t, "Library", service.query.Office)
	assert.Equal(t, "cruz", service.query.Search)
	assert.Equal(t, 2, service.query.Page)
	assert.Contains(t, w.Body.String(), `"totalCount":1`)
}

func TestUserHandlerGetNotFound(t *testing.T) {
	handler := NewUserHandler(&fakeUserSrv{})

	c, w := newGinContext(http.MethodGet, "/users/missing", nil)
	c.Params = gin.Params{{Key: "id", Value: "missing"}}
	handler.Get(c)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUserHandlerCreateRequiresClaims(t *testing.T) {
	service := &fakeUserSrv{}
	handler := NewUserHandler(service)

	c, w := newGinContext(http.MethodPost, "/users", []byte(`{"email":"new@example.edu"}`))
	handler.Create(c)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Empty(t, service.created.Email)
}

func TestUserHandlerCreate(t *testing.T) {
	service := &fakeUserSrv{}
	handler := NewUserHandler(service)

	c, w := newGinContext(http.MethodPost, "/users", []byte(`{"email":"new@example.edu","fullName":"New Staff","role":"HR","password":"longenough"}`))
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "admin-1", Role: models.RoleSuperAdmin})
	handler.Create(c)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "new@example.edu", service.created.Email)
	assert.Equal(t, "admin-1", service.actorID)
}

func TestUserHandlerDelete(t *testing.T) {
	service := &fakeUserSrv{}
	handler := NewUserHandler(service)

	c, _ := newGinContext(http.MethodDelete, "/users/u-1", nil)
	c.Params = gin.Params{{Key: "id", Value: "u-1"}}
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "admin-1", Role: models.RoleSuperAdmin})
	handler.Delete(c)

	assert.Equal(t, http.StatusNoContent, c.Writer.Status())
	assert.Equal(t, "u-1", service.deletedID)
}
