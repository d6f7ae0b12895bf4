package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sasm-ims-api/internal/dto"
	"github.com/noah-isme/sasm-ims-api/internal/models"
	"github.com/noah-isme/sasm-ims-api/internal/workflow"
	"github.com/noah-isme/sasm-ims-api/pkg/response"
)

type applicationService interface {
	Submit(ctx context.Context, actor *models.JWTClaims, req dto.SubmitApplicationRequest, meta models.RequestMeta) (*models.Application, error)
	List(ctx context.Context, actor *models.JWTClaims, query dto.ApplicationQuery) ([]models.Application, *models.Pagination, error)
	Get(ctx context.Context, actor *models.JWTClaims, id string) (*models.Application, error)
	Progress(ctx context.Context, actor *models.JWTClaims, id string) (*workflow.Progress, error)
	History(ctx context.Context, actor *models.JWTClaims, id string) ([]models.ApplicationStatusChange, error)
	Update(ctx context.Context, actor *models.JWTClaims, id string, req dto.UpdateApplicationRequest) (*models.Application, error)
	UpdateStatus(ctx context.Context, actor *models.JWTClaims, id string, req dto.UpdateApplicationStatusRequest, meta models.RequestMeta) (*models.Application, error)
	Bulk(ctx context.Context, actor *models.JWTClaims, req dto.BulkApplicationAction, meta models.RequestMeta) (*dto.BulkActionResult, error)
	Archive(ctx context.Context, actor *models.JWTClaims, req dto.ArchiveSemesterRequest, meta models.RequestMeta) (*dto.ArchiveSemesterResult, error)
}

// ApplicationHandler serves the applicant pipeline.
type ApplicationHandler struct {
	service applicationService
}

// NewApplicationHandler constructs the handler.
func NewApplicationHandler(service applicationService) *ApplicationHandler {
	return &ApplicationHandler{service: service}
}

// Submit godoc
// @Summary Submit an application
// @Tags Applications
// @Accept json
// @Produce json
// @Param payload body dto.SubmitApplicationRequest true "Application payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /applications [post]
func (h *ApplicationHandler) Submit(c *gin.Context) {
	var req dto.SubmitApplicationRequest
	if !bindJSON(c, &req, "invalid application payload") {
		return
	}
	app, err := h.service.Submit(c.Request.Context(), claimsFromContext(c), req, requestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, app)
}

// List godoc
// @Summary List applications
// @Tags Applications
// @Produce json
// @Param status query string false "Comma separated statuses"
// @Param position query string false "student_assistant or student_marshal"
// @Param office query string false "Office filter"
// @Param semester query string false "Semester filter"
// @Param search query string false "Applicant name or email"
// @Param page query int false "Page number"
// @Param pageSize query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /applications [get]
func (h *ApplicationHandler) List(c *gin.Context) {
	var query dto.ApplicationQuery
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
// @Summary Get application detail
// @Tags Applications
// @Produce json
// @Param id path string true "Application ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /applications/{id} [get]
func (h *ApplicationHandler) Get(c *gin.Context) {
	app, err := h.service.Get(c.Request.Context(), claimsFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, app, nil)
}

// Progress godoc
// @Summary Pipeline progress of an application
// @Tags Applications
// @Produce json
// @Param id path string true "Application ID"
// @Success 200 {object} response.Envelope
// @Router /applications/{id}/progress [get]
func (h *ApplicationHandler) Progress(c *gin.Context) {
	progress, err := h.service.Progress(c.Request.Context(), claimsFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, progress, nil)
}

// History godoc
// @Summary Status history of an application
// @Tags Applications
// @Produce json
// @Param id path string true "Application ID"
// @Success 200 {object} response.Envelope
// @Router /applications/{id}/history [get]
func (h *ApplicationHandler) History(c *gin.Context) {
	items, err := h.service.History(c.Request.Context(), claimsFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}

// Update godoc
// @Summary Update staff-managed application fields
// @Tags Applications
// @Accept json
// @Produce json
// @Param id path string true "Application ID"
// @Param payload body dto.UpdateApplicationRequest true "Update payload"
// @Success 200 {object} response.Envelope
// @Router /applications/{id} [put]
func (h *ApplicationHandler) Update(c *gin.Context) {
	var req dto.UpdateApplicationRequest
	if !bindJSON(c, &req, "invalid payload") {
		return
	}
	app, err := h.service.Update(c.Request.Context(), claimsFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, app, nil)
}

// UpdateStatus godoc
// @Summary Move an application to another status
// @Tags Applications
// @Accept json
// @Produce json
// @Param id path string true "Application ID"
// @Param payload body dto.UpdateApplicationStatusRequest true "Status payload"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /applications/{id}/status [patch]
func (h *ApplicationHandler) UpdateStatus(c *gin.Context) {
	var req dto.UpdateApplicationStatusRequest
	if !bindJSON(c, &req, "invalid status payload") {
		return
	}
	app, err := h.service.UpdateStatus(c.Request.Context(), claimsFromContext(c), c.Param("id"), req, requestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, app, nil)
}

// Bulk godoc
// @Summary Apply one action to many applications
// @Tags Applications
// @Accept json
// @Produce json
// @Param payload body dto.BulkApplicationAction true "Bulk action"
// @Success 200 {object} response.Envelope
// @Router /applications/bulk [post]
func (h *ApplicationHandler) Bulk(c *gin.Context) {
	var req dto.BulkApplicationAction
	if !bindJSON(c, &req, "invalid bulk payload") {
		return
	}
	result, err := h.service.Bulk(c.Request.Context(), claimsFromContext(c), req, requestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Archive godoc
// @Summary Archive every application of a semester
// @Tags Applications
// @Accept json
// @Produce json
// @Param payload body dto.ArchiveSemesterRequest true "Semester to close"
// @Success 200 {object} response.Envelope
// @Router /applications/archive [post]
func (h *ApplicationHandler) Archive(c *gin.Context) {
	var req dto.ArchiveSemesterRequest
	if !bindJSON(c, &req, "invalid archive payload") {
		return
	}
	result, err := h.service.Archive(c.Request.Context(), claimsFromContext(c), req, requestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}
