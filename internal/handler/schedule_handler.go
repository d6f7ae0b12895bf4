package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sasm-ims-api/internal/dto"
	"github.com/noah-isme/sasm-ims-api/internal/models"
	appErrors "github.com/noah-isme/sasm-ims-api/pkg/errors"
	"github.com/noah-isme/sasm-ims-api/pkg/response"
)

type scheduleService interface {
	Get(ctx context.Context, actor *models.JWTClaims, userID string) (*models.Schedule, error)
	Upsert(ctx context.Context, actor *models.JWTClaims, userID string, req dto.UpsertScheduleRequest) (*models.Schedule, error)
}

// ScheduleHandler serves per-user class and duty schedules.
type ScheduleHandler struct {
	service scheduleService
}

// NewScheduleHandler constructs the handler.
func NewScheduleHandler(service scheduleService) *ScheduleHandler {
	return &ScheduleHandler{service: service}
}

// scheduleOwner resolves the :userId path segment, "me" meaning the caller.
func scheduleOwner(c *gin.Context) (string, error) {
	userID := c.Param("userId")
	if userID != "me" {
		return userID, nil
	}
	claims := claimsFromContext(c)
	if claims == nil {
		return "", appErrors.ErrUnauthorized
	}
	return claims.UserID, nil
}

// Get godoc
// @Summary Get a user's schedule
// @Tags Schedules
// @Produce json
// @Param userId path string true "User ID or me"
// @Success 200 {object} response.Envelope
// @Router /schedules/{userId} [get]
func (h *ScheduleHandler) Get(c *gin.Context) {
	userID, err := scheduleOwner(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	schedule, err := h.service.Get(c.Request.Context(), claimsFromContext(c), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, schedule, nil)
}

// Upsert godoc
// @Summary Create or replace a user's schedule
// @Tags Schedules
// @Accept json
// @Produce json
// @Param userId path string true "User ID or me"
// @Param payload body dto.UpsertScheduleRequest true "Schedule payload"
// @Success 200 {object} response.Envelope
// @Router /schedules/{userId} [put]
func (h *ScheduleHandler) Upsert(c *gin.Context) {
	userID, err := scheduleOwner(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.UpsertScheduleRequest
	if !bindJSON(c, &req, "invalid schedule payload") {
		return
	}
	schedule, err := h.service.Upsert(c.Request.Context(), claimsFromContext(c), userID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, schedule, nil)
}
