package handler

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sasm-ims-api/internal/dto"
	"github.com/noah-isme/sasm-ims-api/internal/models"
	appErrors "github.com/noah-isme/sasm-ims-api/pkg/errors"
	"github.com/noah-isme/sasm-ims-api/pkg/response"
)

type dtrService interface {
	TimeIn(ctx context.Context, actor *models.JWTClaims, req dto.TimeInRequest) (*models.DTREntry, error)
	TimeOut(ctx context.Context, actor *models.JWTClaims, req dto.TimeOutRequest) (*models.DTREntry, error)
	List(ctx context.Context, actor *models.JWTClaims, query dto.DTRQuery) ([]models.DTREntry, *models.Pagination, error)
	Review(ctx context.Context, actor *models.JWTClaims, id string, req dto.ReviewRequest, meta models.RequestMeta) (*models.DTREntry, error)
}

// DTRHandler serves daily time records.
type DTRHandler struct {
	service dtrService
}

// NewDTRHandler constructs the handler.
func NewDTRHandler(service dtrService) *DTRHandler {
	return &DTRHandler{service: service}
}

// bindOptionalJSON accepts an empty body as the zero value.
func bindOptionalJSON(c *gin.Context, dest interface{}) error {
	if err := c.ShouldBindJSON(dest); err != nil && !errors.Is(err, io.EOF) {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload")
	}
	return nil
}

// TimeIn godoc
// @Summary Open today's time record
// @Tags DTR
// @Accept json
// @Produce json
// @Param payload body dto.TimeInRequest false "Remarks"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /dtr/time-in [post]
func (h *DTRHandler) TimeIn(c *gin.Context) {
	var req dto.TimeInRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		response.Error(c, err)
		return
	}
	entry, err := h.service.TimeIn(c.Request.Context(), claimsFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, entry)
}

// TimeOut godoc
// @Summary Close today's time record
// @Tags DTR
// @Accept json
// @Produce json
// @Param payload body dto.TimeOutRequest false "Remarks"
// @Success 200 {object} response.Envelope
// @Router /dtr/time-out [post]
func (h *DTRHandler) TimeOut(c *gin.Context) {
	var req dto.TimeOutRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		response.Error(c, err)
		return
	}
	entry, err := h.service.TimeOut(c.Request.Context(), claimsFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entry, nil)
}

// List godoc
// @Summary List time records
// @Tags DTR
// @Produce json
// @Param userId query string false "User filter"
// @Param office query string false "Office filter"
// @Param status query string false "open, submitted, approved or rejected"
// @Param from query string false "From date (YYYY-MM-DD)"
// @Param to query string false "To date (YYYY-MM-DD)"
// @Param page query int false "Page number"
// @Param pageSize query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /dtr [get]
func (h *DTRHandler) List(c *gin.Context) {
	var query dto.DTRQuery
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
// @Summary Approve or reject a time record
// @Tags DTR
// @Accept json
// @Produce json
// @Param id path string true "DTR ID"
// @Param payload body dto.ReviewRequest true "Decision"
// @Success 200 {object} response.Envelope
// @Router /dtr/{id}/review [put]
func (h *DTRHandler) Review(c *gin.Context) {
	var req dto.ReviewRequest
	if !bindJSON(c, &req, "invalid review payload") {
		return
	}
	entry, err := h.service.Review(c.Request.Context(), claimsFromContext(c), c.Param("id"), req, requestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entry, nil)
}
