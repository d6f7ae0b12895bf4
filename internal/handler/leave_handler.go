package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sasm-ims-api/internal/dto"
	"github.com/noah-isme/sasm-ims-api/internal/models"
	"github.com/noah-isme/sasm-ims-api/pkg/response"
)

type leaveService interface {
	Create(ctx context.Context, actor *models.JWTClaims, req dto.CreateLeaveRequest) (*models.Leave, error)
	List(ctx context.Context, actor *models.JWTClaims, query dto.LeaveQuery) ([]models.Leave, *models.Pagination, error)
	Review(ctx context.Context, actor *models.JWTClaims, id string, req dto.ReviewRequest, meta models.RequestMeta) (*models.Leave, error)
	Cancel(ctx context.Context, actor *models.JWTClaims, id string) (*models.Leave, error)
}

// LeaveHandler serves scholar leave requests.
type LeaveHandler struct {
	service leaveService
}

// NewLeaveHandler constructs the handler.
func NewLeaveHandler(service leaveService) *LeaveHandler {
	return &LeaveHandler{service: service}
}

// Create godoc
// @Summary File a leave
// @Tags Leaves
// @Accept json
// @Produce json
// @Param payload body dto.CreateLeaveRequest true "Leave payload"
// @Success 201 {object} response.Envelope
// @Router /leaves [post]
func (h *LeaveHandler) Create(c *gin.Context) {
	var req dto.CreateLeaveRequest
	if !bindJSON(c, &req, "invalid leave payload") {
		return
	}
	leave, err := h.service.Create(c.Request.Context(), claimsFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, leave)
}

// List godoc
// @Summary List leaves
// @Tags Leaves
// @Produce json
// @Param status query string false "Comma separated statuses"
// @Param office query string false "Office filter"
// @Param userId query string false "User filter"
// @Param page query int false "Page number"
// @Param pageSize query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /leaves [get]
func (h *LeaveHandler) List(c *gin.Context) {
	var query dto.LeaveQuery
	if !bindQuery(c, &query, "invalid query parameters") {
		return
	}
	items, pagination, err := h.service.List(c.Request.Context(), claimsFromContext(c), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, pagination)
}

// Review godoc
// @Summary Approve or reject a leave
// @Tags Leaves
// @Accept json
// @Produce json
// @Param id path string true "Leave ID"
// @Param payload body dto.ReviewRequest true "Decision"
// @Success 200 {object} response.Envelope
// @Router /leaves/{id}/review [put]
func (h *LeaveHandler) Review(c *gin.Context) {
	var req dto.ReviewRequest
	if !bindJSON(c, &req, "invalid review payload") {
		return
	}
	leave, err := h.service.Review(c.Request.Context(), claimsFromContext(c), c.Param("id"), req, requestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, leave, nil)
}

// Cancel godoc
// @Summary Cancel a pending leave
// @Tags Leaves
// @Produce json
// @Param id path string true "Leave ID"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /leaves/{id}/cancel [put]
func (h *LeaveHandler) Cancel(c *gin.Context) {
	leave, err := h.service.Cancel(c.Request.Context(), claimsFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, leave, nil)
}
