package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sasm-ims-api/internal/dto"
	"github.com/noah-isme/sasm-ims-api/internal/models"
	"github.com/noah-isme/sasm-ims-api/pkg/response"
)

type scholarService interface {
	List(ctx context.Context, actor *models.JWTClaims, query dto.ScholarQuery) ([]models.Scholar, *models.Pagination, error)
	Get(ctx context.Context, actor *models.JWTClaims, id string) (*models.Scholar, error)
	Mine(ctx context.Context, actor *models.JWTClaims) (*models.Scholar, error)
	Update(ctx context.Context, actor *models.JWTClaims, id string, req dto.UpdateScholarRequest, meta models.RequestMeta) (*models.Scholar, error)
	Deactivate(ctx context.Context, actor *models.JWTClaims, id string, meta models.RequestMeta) error
}

// ScholarHandler exposes deployed scholars.
type ScholarHandler struct {
	service scholarService
}

// NewScholarHandler constructs the handler.
func NewScholarHandler(service scholarService) *ScholarHandler {
	return &ScholarHandler{service: service}
}

// List godoc
// @Summary List scholars
// @Tags Scholars
// @Produce json
// @Param office query string false "Office filter"
// @Param type query string false "student_assistant or student_marshal"
// @Param status query string false "active or inactive"
// @Param search query string false "Name search"
// @Param page query int false "Page number"
// @Param pageSize query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /scholars [get]
func (h *ScholarHandler) List(c *gin.Context) {
	var query dto.ScholarQuery
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

// Mine godoc
// @Summary Scholar record of the current user
// @Tags Scholars
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /scholars/me [get]
func (h *ScholarHandler) Mine(c *gin.Context) {
	scholar, err := h.service.Mine(c.Request.Context(), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, scholar, nil)
}

// Get godoc
// @Summary Get scholar detail
// @Tags Scholars
// @Produce json
// @Param id path string true "Scholar ID"
// @Success 200 {object} response.Envelope
// @Router /scholars/{id} [get]
func (h *ScholarHandler) Get(c *gin.Context) {
	scholar, err := h.service.Get(c.Request.Context(), claimsFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, scholar, nil)
}

// Update godoc
// @Summary Update scholar office, type, status or rating
// @Tags Scholars
// @Accept json
// @Produce json
// @Param id path string true "Scholar ID"
// @Param payload body dto.UpdateScholarRequest true "Scholar payload"
// @Success 200 {object} response.Envelope
// @Router /scholars/{id} [put]
func (h *ScholarHandler) Update(c *gin.Context) {
	var req dto.UpdateScholarRequest
	if !bindJSON(c, &req, "invalid scholar payload") {
		return
	}
	scholar, err := h.service.Update(c.Request.Context(), claimsFromContext(c), c.Param("id"), req, requestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, scholar, nil)
}

// Deactivate godoc
// @Summary Deactivate a scholar
// @Tags Scholars
// @Param id path string true "Scholar ID"
// @Success 204
// @Router /scholars/{id} [delete]
func (h *ScholarHandler) Deactivate(c *gin.Context) {
	if err := h.service.Deactivate(c.Request.Context(), claimsFromContext(c), c.Param("id"), requestMeta(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
