package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sasm-ims-api/internal/dto"
	"github.com/noah-isme/sasm-ims-api/internal/models"
	appErrors "github.com/noah-isme/sasm-ims-api/pkg/errors"
	"github.com/noah-isme/sasm-ims-api/pkg/response"
)

type dashboardService interface {
	HR(ctx context.Context, actor *models.JWTClaims) (*dto.HRDashboardResponse, bool, error)
	Office(ctx context.Context, actor *models.JWTClaims, office string) (*dto.OfficeDashboardResponse, bool, error)
	Student(ctx context.Context, actor *models.JWTClaims) (*dto.StudentDashboardResponse, bool, error)
}

// DashboardHandler wires dashboard service to HTTP endpoints.
type DashboardHandler struct {
	service dashboardService
}

// NewDashboardHandler constructs the handler.
func NewDashboardHandler(service dashboardService) *DashboardHandler {
	return &DashboardHandler{service: service}
}

// HR godoc
// @Summary HR dashboard summary
// @Tags Dashboard
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /dashboard/hr [get]
func (h *DashboardHandler) HR(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	start := time.Now()
	summary, cacheHit, err := h.service.HR(c.Request.Context(), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil, timedMeta(c, start, cacheHit))
}

// Office godoc
// @Summary Office dashboard summary
// @Tags Dashboard
// @Produce json
// @Param office query string false "Office name (HR only, office users are pinned to their own)"
// @Success 200 {object} response.Envelope
// @Router /dashboard/office [get]
func (h *DashboardHandler) Office(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	start := time.Now()
	office := strings.TrimSpace(c.Query("office"))
	summary, cacheHit, err := h.service.Office(c.Request.Context(), claimsFromContext(c), office)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil, timedMeta(c, start, cacheHit))
}

// Student godoc
// @Summary Student dashboard
// @Tags Dashboard
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /dashboard/student [get]
func (h *DashboardHandler) Student(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	start := time.Now()
	summary, cacheHit, err := h.service.Student(c.Request.Context(), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil, timedMeta(c, start, cacheHit))
}
