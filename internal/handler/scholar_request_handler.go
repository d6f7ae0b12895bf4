package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sasm-ims-api/internal/dto"
	"github.com/noah-isme/sasm-ims-api/internal/models"
	"github.com/noah-isme/sasm-ims-api/pkg/response"
)

type scholarRequestService interface {
	Create(ctx context.Context, actor *models.JWTClaims, req dto.CreateScholarRequestRequest) (*models.ScholarRequest, error)
	List(ctx context.Context, actor *models.JWTClaims, query dto.ScholarRequestQuery) ([]models.ScholarRequest, *models.Pagination, error)
	Get(ctx context.Context, actor *models.JWTClaims, id string) (*models.ScholarRequest, error)
	Review(ctx context.Context, actor *models.JWTClaims, id string, req dto.ReviewScholarRequestRequest, meta models.RequestMeta) (*models.ScholarRequest, error)
	Cancel(ctx context.Context, actor *models.JWTClaims, id string) (*models.ScholarRequest, error)
}

// ScholarRequestHandler serves office requests for additional scholars.
type ScholarRequestHandler struct {
	service scholarRequestService
}

// NewScholarRequestHandler constructs the handler.
func NewScholarRequestHandler(service scholarRequestService) *ScholarRequestHandler {
	return &ScholarRequestHandler{service: service}
}

// Create godoc
// @Summary Request scholars for an office
// @Tags ScholarRequests
// @Accept json
// @Produce json
// @Param payload body dto.CreateScholarRequestRequest true "Request payload"
// @Success 201 {object} response.Envelope
// @Router /scholar-requests [post]
func (h *ScholarRequestHandler) Create(c *gin.Context) {
	var req dto.CreateScholarRequestRequest
	if !bindJSON(c, &req, "invalid request payload") {
		return
	}
	item, err := h.service.Create(c.Request.Context(), claimsFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, item)
}

// List godoc
// @Summary List scholar requests
// @Tags ScholarRequests
// @Produce json
// @Param office query string false "Office filter"
// @Param status query string false "Comma separated statuses"
// @Param page query int false "Page number"
// @Param pageSize query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /scholar-requests [get]
func (h *ScholarRequestHandler) List(c *gin.Context) {
	var query dto.ScholarRequestQuery
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

// Get godoc
// @Summary Get a scholar request
// @Tags ScholarRequests
// @Produce json
// @Param id path string true "Request ID"
// @Success 200 {object} response.Envelope
// @Router /scholar-requests/{id} [get]
func (h *ScholarRequestHandler) Get(c *gin.Context) {
	item, err := h.service.Get(c.Request.Context(), claimsFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item, nil)
}

// Review godoc
// @Summary Approve, reject or fulfil a scholar request
// @Tags ScholarRequests
// @Accept json
// @Produce json
// @Param id path string true "Request ID"
// @Param payload body dto.ReviewScholarRequestRequest true "Decision"
// @Success 200 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /scholar-requests/{id}/review [put]
func (h *ScholarRequestHandler) Review(c *gin.Context) {
	var req dto.ReviewScholarRequestRequest
	if !bindJSON(c, &req, "invalid review payload") {
		return
	}
	item, err := h.service.Review(c.Request.Context(), claimsFromContext(c), c.Param("id"), req, requestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item, nil)
}

// Cancel godoc
// @Summary Cancel a pending scholar request
// @Tags ScholarRequests
// @Produce json
// @Param id path string true "Request ID"
// @Success 200 {object} response.Envelope
// @Router /scholar-requests/{id}/cancel [put]
func (h *ScholarRequestHandler) Cancel(c *gin.Context) {
	item, err := h.service.Cancel(c.Request.Context(), claimsFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item, nil)
}
