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
	appErrors "github.com/noah-isme/sasm-ims-api/pkg/errors"
)

type fakeNotificationSrv struct {
	items     []models.Notification
	lastQuery dto.NotificationQuery
	lastIDs   []string
	lastUser  string
	modified  int64
	deleteErr error
}

func (f *fakeNotificationSrv) List(_ context.Context, userID string, query dto.NotificationQuery) ([]models.Notification, error) {
	f.lastUser = userID
	f.lastQuery = query
	if query.IsRead == "maybe" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid notification query")
	}
	return f.items, nil
}

func (f *fakeNotificationSrv) MarkRead(_ context.Context, id, userID string) (*models.Notification, error) {
	f.lastUser = userID
	return &models.Notification{ID: id, RecipientID: userID, IsRead: true}, nil
}

func (f *fakeNotificationSrv) MarkAllRead(_ context.Context, userID string) (*dto.ModifiedCountResponse, error) {
	f.lastUser = userID
	resp := &dto.ModifiedCountResponse{ModifiedCount: f.modified}
	f.modified = 0
	return resp, nil
}

func (f *fakeNotificationSrv) MarkManyRead(_ context.Context, userID string, req dto.NotificationIDsRequest) (*dto.ModifiedCountResponse, error) {
	f.lastUser = userID
	f.lastIDs = req.NotificationIDs
	return &dto.ModifiedCountResponse{ModifiedCount: int64(len(req.NotificationIDs))}, nil
}

func (f *fakeNotificationSrv) Delete(_ context.Context, _ string, userID string) error {
	f.lastUser = userID
	return f.deleteErr
}

func (f *fakeNotificationSrv) DeleteMany(_ context.Context, userID string, req dto.NotificationIDsRequest) (*dto.DeletedCountResponse, error) {
	f.lastUser = userID
	f.lastIDs = req.NotificationIDs
	return &dto.DeletedCountResponse{DeletedCount: int64(len(req.NotificationIDs))}, nil
}

func (f *fakeNotificationSrv) UnreadCount(_ context.Context, userID string) (*dto.UnreadCountResponse, error) {
	f.lastUser = userID
	return &dto.UnreadCountResponse{Count: 4}, nil
}

func notificationContext(method, target string, body []byte) (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(method, target, bytes.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "user-1", Role: models.RoleStudent})
	return c, rec
}

func TestNotificationHandlerListPassesQuery(t *testing.T) {
	service := &fakeNotificationSrv{items: []models.Notification{{ID: "n1"}}}
	handler := NewNotificationHandler(service)

	c, rec := notificationContext(http.MethodGet, "/notifications?isRead=false&limit=10&skip=5", nil)
	handler.List(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "user-1", service.lastUser)
	assert.Equal(t, dto.NotificationQuery{IsRead: "false", Limit: "10", Skip: "5"}, service.lastQuery)
}

func TestNotificationHandlerListRejectsBadQuery(t *testing.T) {
	handler := NewNotificationHandler(&fakeNotificationSrv{})

	c, rec := notificationContext(http.MethodGet, "/notifications?isRead=maybe", nil)
	handler.List(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var envelope responseEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, "VALIDATION_ERROR", envelope.Error["code"])
}

func TestNotificationHandlerRequiresUser(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewNotificationHandler(&fakeNotificationSrv{})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/notifications/unread-count", nil)
	handler.UnreadCount(c)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestNotificationHandlerMarkAllReadTwice(t *testing.T) {
	service := &fakeNotificationSrv{modified: 3}
	handler := NewNotificationHandler(service)

	c, rec := notificationContext(http.MethodPut, "/notifications/mark-all-read", nil)
	handler.MarkAllRead(c)
	require.Equal(t, http.StatusOK, rec.Code)
	var first responseEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &first))
	assert.EqualValues(t, 3, first.Data["modifiedCount"])

	c, rec = notificationContext(http.MethodPut, "/notifications/mark-all-read", nil)
	handler.MarkAllRead(c)
	var second responseEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &second))
	assert.EqualValues(t, 0, second.Data["modifiedCount"])
}

func TestNotificationHandlerBulkRead(t *testing.T) {
	service := &fakeNotificationSrv{}
	handler := NewNotificationHandler(service)

	c, rec := notificationContext(http.MethodPut, "/notifications/bulk-read", []byte(`{"notificationIDs":["a","b"]}`))
	handler.MarkManyRead(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"a", "b"}, service.lastIDs)
}

func TestNotificationHandlerBulkDeleteMalformedBody(t *testing.T) {
	handler := NewNotificationHandler(&fakeNotificationSrv{})

	c, rec := notificationContext(http.MethodDelete, "/notifications/bulk", []byte(`{"notificationIDs":`))
	handler.DeleteMany(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestNotificationHandlerDeleteMissing(t *testing.T) {
	handler := NewNotificationHandler(&fakeNotificationSrv{deleteErr: appErrors.Clone(appErrors.ErrNotFound, "notification not found")})

	c, rec := notificationContext(http.MethodDelete, "/notifications/n9", nil)
	c.Params = gin.Params{{Key: "id", Value: "n9"}}
	handler.Delete(c)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	var envelope responseEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, "notification not found", envelope.Error["message"])
}
