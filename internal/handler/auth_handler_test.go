package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sasm-ims-api/internal/middleware"
	"github.com/noah-isme/sasm-ims-api/internal/models"
	appErrors "github.com/noah-isme/sasm-ims-api/pkg/errors"
)

type fakeAuthSrv struct {
	login        models.LoginRequest
	loginErr     error
	logoutToken  string
	logoutUser   string
	passwordUser string
}

func (f *fakeAuthSrv) Login(_ context.Context, req models.LoginRequest) (*models.TokenPair, error) {
	f.login = req
	if f.loginErr != nil {
		return nil, f.loginErr
	}
	return &models.TokenPair{AccessToken: "access", RefreshToken: "refresh", ExpiresIn: 900}, nil
}

func (f *fakeAuthSrv) Refresh(_ context.Context, req models.RefreshTokenRequest) (*models.TokenPair, error) {
	if req.RefreshToken != "refresh" {
		return nil, appErrors.ErrUnauthorized
	}
	return &models.TokenPair{AccessToken: "access-2", RefreshToken: "refresh-2"}, nil
}

func (f *fakeAuthSrv) Logout(_ context.Context, refreshToken, userID string) error {
	f.logoutToken = refreshToken
	f.logoutUser = userID
	return nil
}

func (f *fakeAuthSrv) Me(_ context.Context, userID string) (*models.UserInfo, error) {
	return &models.UserInfo{ID: userID, Email: "hr@example.edu", Role: models.RoleHR}, nil
}

func (f *fakeAuthSrv) ChangePassword(_ context.Context, userID string, _ models.ChangePasswordRequest) error {
	f.passwordUser = userID
	return nil
}

func TestAuthHandlerLoginCapturesClient(t *testing.T) {
	service := &fakeAuthSrv{}
	handler := NewAuthHandler(service)

	c, w := newGinContext(http.MethodPost, "/auth/login", []byte(`{"email":"hr@example.edu","password":"secret123"}`))
	c.Request.Header.Set("User-Agent", "portal/1.0")
	handler.Login(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "hr@example.edu", service.login.Email)
	assert.Equal(t, "portal/1.0", service.login.UserAgent)

	var body responseEnvelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "access", body.Data["accessToken"])
}

func TestAuthHandlerLoginInvalidCredentials(t *testing.T) {
	handler := NewAuthHandler(&fakeAuthSrv{loginErr: appErrors.ErrInvalidCredentials})

	c, w := newGinContext(http.MethodPost, "/auth/login", []byte(`{"email":"hr@example.edu","password":"nope"}`))
	handler.Login(c)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "INVALID_CREDENTIALS")
}

func TestAuthHandlerRefreshRejectsUnknownToken(t *testing.T) {
	handler := NewAuthHandler(&fakeAuthSrv{})

	c, w := newGinContext(http.MethodPost, "/auth/refresh", []byte(`{"refreshToken":"stale"}`))
	handler.Refresh(c)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthHandlerLogoutRequiresToken(t *testing.T) {
	service := &fakeAuthSrv{}
	handler := NewAuthHandler(service)

	c, w := newGinContext(http.MethodPost, "/auth/logout", []byte(`{}`))
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "hr-1"})
	handler.Logout(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, service.logoutToken)
}

func TestAuthHandlerLogoutRevokesForCaller(t *testing.T) {
	service := &fakeAuthSrv{}
	handler := NewAuthHandler(service)

	c, _ := newGinContext(http.MethodPost, "/auth/logout", []byte(`{"refreshToken":"refresh"}`))
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "hr-1"})
	handler.Logout(c)

	assert.Equal(t, http.StatusNoContent, c.Writer.Status())
	assert.Equal(t, "refresh", service.logoutToken)
	assert.Equal(t, "hr-1", service.logoutUser)
}

func TestAuthHandlerMeWithoutClaims(t *testing.T) {
	handler := NewAuthHandler(&fakeAuthSrv{})

	c, w := newGinContext(http.MethodGet, "/auth/me", nil)
	handler.Me(c)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthHandlerChangePassword(t *testing.T) {
	service := &fakeAuthSrv{}
	handler := NewAuthHandler(service)

	c, _ := newGinContext(http.MethodPost, "/auth/change-password", []byte(`{"oldPassword":"old-secret","newPassword":"new-secret"}`))
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "stu-1"})
	handler.ChangePassword(c)

	assert.Equal(t, http.StatusNoContent, c.Writer.Status())
	assert.Equal(t, "stu-1", service.passwordUser)
}
