package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sasm-ims-api/internal/dto"
	"github.com/noah-isme/sasm-ims-api/internal/models"
	"github.com/noah-isme/sasm-ims-api/pkg/response"
)

type notificationService interface {
	List(ctx context.Context, userID string, query dto.NotificationQuery) ([]models.Notification, error)
	MarkRead(ctx context.Context, id, userID string) (*models.Notification, error)
	MarkAllRead(ctx context.Context, userID string) (*dto.ModifiedCountResponse, error)
	MarkManyRead(ctx context.Context, userID string, req dto.NotificationIDsRequest) (*dto.ModifiedCountResponse, error)
	Delete(ctx context.Context, id, userID string) error
	DeleteMany(ctx context.Context, userID string, req dto.NotificationIDsRequest) (*dto.DeletedCountResponse, error)
	UnreadCount(ctx context.Context, userID string) (*dto.UnreadCountResponse, error)
}

// NotificationHandler exposes the per-user notification inbox.
type NotificationHandler struct {
	service notificationService
}

// NewNotificationHandler builds the handler.
func NewNotificationHandler(service notificationService) *NotificationHandler {
	return &NotificationHandler{service: service}
}

// List godoc
// @Summary List notifications of the current user
// @Tags Notifications
// @Produce json
// @Param isRead query string false "true or false"
// @Param limit query string false "Maximum number of items"
// @Param skip query string false "Number of items to skip"
// @Success 200 {object} response.Envelope
// @Router /notifications [get]
func (h *NotificationHandler) List(c *gin.Context) {
	claims, ok := requireClaims(c)
	if !ok {
		return
	}
	var query dto.NotificationQuery
	if !bindQuery(c, &query, "invalid query parameters") {
		return
	}
	items, err := h.service.List(c.Request.Context(), claims.UserID, query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}

// UnreadCount godoc
// @Summary Count unread notifications
// @Tags Notifications
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /notifications/unread-count [get]
func (h *NotificationHandler) UnreadCount(c *gin.Context) {
	claims, ok := requireClaims(c)
	if !ok {
		return
	}
	count, err := h.service.UnreadCount(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, count, nil)
}

// MarkAllRead godoc
// @Summary Mark every notification as read
// @Tags Notifications
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /notifications/mark-all-read [put]
func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	claims, ok := requireClaims(c)
	if !ok {
		return
	}
	result, err := h.service.MarkAllRead(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// MarkManyRead godoc
// @Summary Mark several notifications as read
// @Tags Notifications
// @Accept json
// @Produce json
// @Param payload body dto.NotificationIDsRequest true "Notification ids"
// @Success 200 {object} response.Envelope
// @Router /notifications/bulk-read [put]
func (h *NotificationHandler) MarkManyRead(c *gin.Context) {
	claims, ok := requireClaims(c)
	if !ok {
		return
	}
	var req dto.NotificationIDsRequest
	if !bindJSON(c, &req, "invalid payload") {
		return
	}
	result, err := h.service.MarkManyRead(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// MarkRead godoc
// @Summary Mark one notification as read
// @Tags Notifications
// @Produce json
// @Param id path string true "Notification ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /notifications/{id}/read [put]
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	claims, ok := requireClaims(c)
	if !ok {
		return
	}
	n, err := h.service.MarkRead(c.Request.Context(), c.Param("id"), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, n, nil)
}

// DeleteMany godoc
// @Summary Delete several notifications
// @Tags Notifications
// @Accept json
// @Produce json
// @Param payload body dto.NotificationIDsRequest true "Notification ids"
// @Success 200 {object} response.Envelope
// @Router /notifications/bulk [delete]
func (h *NotificationHandler) DeleteMany(c *gin.Context) {
	claims, ok := requireClaims(c)
	if !ok {
		return
	}
	var req dto.NotificationIDsRequest
	if !bindJSON(c, &req, "invalid payload") {
		return
	}
	result, err := h.service.DeleteMany(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Delete godoc
// @Summary Delete one notification
// @Tags Notifications
// @Produce json
// @Param id path string true "Notification ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /notifications/{id} [delete]
func (h *NotificationHandler) Delete(c *gin.Context) {
	claims, ok := requireClaims(c)
	if !ok {
		return
	}
	id := c.Param("id")
	if err := h.service.Delete(c.Request.Context(), id, claims.UserID); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"id": id, "deleted": true}, nil)
}
