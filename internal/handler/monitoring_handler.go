package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/newsroom-api/internal/models"
	"github.com/noah-isme/newsroom-api/internal/service"
	"github.com/noah-isme/newsroom-api/pkg/response"
)

type monitoringService interface {
	Stats(ctx context.Context) (*models.MonitoringStats, error)
	Ready(ctx context.Context) error
}

// MonitoringHandler exposes observability endpoints.
type MonitoringHandler struct {
	monitoring monitoringService
	metrics    *service.MetricsService
}

// NewMonitoringHandler constructs a monitoring handler.
func NewMonitoringHandler(monitoring monitoringService, metrics *service.MetricsService) *MonitoringHandler {
	return &MonitoringHandler{monitoring: monitoring, metrics: metrics}
}

// Prometheus serves the Prometheus metrics endpoint.
func (h *MonitoringHandler) Prometheus(c *gin.Context) {
	if h.metrics == nil {
		c.Status(http.StatusServiceUnavailable)
		return
	}
	h.metrics.Handler().ServeHTTP(c.Writer, c.Request)
}

// Health responds with a generic OK payload for liveness checks.
func (h *MonitoringHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Ready reports whether the database answers.
func (h *MonitoringHandler) Ready(c *gin.Context) {
	if err := h.monitoring.Ready(c.Request.Context()); err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}

// Stats godoc
// @Summary Dashboard statistics
// @Description Article counts by status, source totals, live sessions and process metrics.
// @Tags Monitoring
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /admin/monitoring/stats [get]
func (h *MonitoringHandler) Stats(c *gin.Context) {
	stats, err := h.monitoring.Stats(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stats)
}
