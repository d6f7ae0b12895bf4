package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sasm-ims-api/internal/dto"
	"github.com/noah-isme/sasm-ims-api/internal/models"
	"github.com/noah-isme/sasm-ims-api/pkg/response"
)

type evaluationService interface {
	Create(ctx context.Context, actor *models.JWTClaims, req dto.EvaluationRequest) (*models.Evaluation, error)
	Update(ctx context.Context, actor *models.JWTClaims, id string, req dto.EvaluationRequest) (*models.Evaluation, error)
	Get(ctx context.Context, actor *models.JWTClaims, id string) (*models.Evaluation, error)
	List(ctx context.Context, actor *models.JWTClaims, query dto.EvaluationQuery) ([]models.Evaluation, *models.Pagination, error)
}

// EvaluationHandler serves office evaluations of scholars.
type EvaluationHandler struct {
	service evaluationService
}

// NewEvaluationHandler constructs the handler.
func NewEvaluationHandler(service evaluationService) *EvaluationHandler {
	return &EvaluationHandler{service: service}
}

// Create godoc
// @Summary Create a draft or submitted evaluation
// @Tags Evaluations
// @Accept json
// @Produce json
// @Param payload body dto.EvaluationRequest true "Evaluation payload"
// @Success 201 {object} response.Envelope
// @Router /evaluations [post]
func (h *EvaluationHandler) Create(c *gin.Context) {
	var req dto.EvaluationRequest
	if !bindJSON(c, &req, "invalid evaluation payload") {
		return
	}
	eval, err := h.service.Create(c.Request.Context(), claimsFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, eval)
}

// Update godoc
// @Summary Edit or submit a draft evaluation
// @Tags Evaluations
// @Accept json
// @Produce json
// @Param id path string true "Evaluation ID"
// @Param payload body dto.EvaluationRequest true "Evaluation payload"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /evaluations/{id} [put]
func (h *EvaluationHandler) Update(c *gin.Context) {
	var req dto.EvaluationRequest
	if !bindJSON(c, &req, "invalid evaluation payload") {
		return
	}
	eval, err := h.service.Update(c.Request.Context(), claimsFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, eval, nil)
}

// Get godoc
// @Summary Get an evaluation
// @Tags Evaluations
// @Produce json
// @Param id path string true "Evaluation ID"
// @Success 200 {object} response.Envelope
// @Router /evaluations/{id} [get]
func (h *EvaluationHandler) Get(c *gin.Context) {
	eval, err := h.service.Get(c.Request.Context(), claimsFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, eval, nil)
}

// List godoc
// @Summary List evaluations
// @Tags Evaluations
// @Produce json
// @Param scholarId query string false "Scholar filter"
// @Param office query string false "Office filter"
// @Param period query string false "Period filter"
// @Param status query string false "draft or submitted"
// @Param page query int false "Page number"
// @Param pageSize query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /evaluations [get]
func (h *EvaluationHandler) List(c *gin.Context) {
	var query dto.EvaluationQuery
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
