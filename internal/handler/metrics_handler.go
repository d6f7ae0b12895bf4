package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sasm-ims-api/internal/service"
	"github.com/noah-isme/sasm-ims-api/pkg/response"
)

const readinessTimeout = 2 * time.Second

// DependencyCheck is a named check run by the readiness endpoint.
type DependencyCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// MetricsHandler serves the health, scrape and snapshot endpoints.
type MetricsHandler struct {
	metrics *service.MetricsService
	checks  []DependencyCheck
}

func NewMetricsHandler(metrics *service.MetricsService, checks ...DependencyCheck) *MetricsHandler {
	return &MetricsHandler{metrics: metrics, checks: checks}
}

// Prometheus answers 503 when metrics are not collected.
func (h *MetricsHandler) Prometheus(c *gin.Context) {
	if h.metrics == nil {
		c.Status(http.StatusServiceUnavailable)
		return
	}
	h.metrics.Handler().ServeHTTP(c.Writer, c.Request)
}

// Snapshot godoc
// @Summary Aggregated request, cache and database metrics
// @Tags System
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /system/metrics [get]
func (h *MetricsHandler) Snapshot(c *gin.Context) {
	response.JSON(c, http.StatusOK, h.metrics.Snapshot(), nil)
}

// Health reports liveness. It never touches dependencies.
func (h *MetricsHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Ready runs every dependency check under one shared deadline and reports the failures.
func (h *MetricsHandler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), readinessTimeout)
	defer cancel()

	failed := gin.H{}
	for _, p := range h.checks {
		if err := p.Check(ctx); err != nil {
			failed[p.Name] = err.Error()
		}
	}
	if len(failed) > 0 {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "checks": failed})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}
