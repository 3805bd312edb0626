package handler

import (
	"net/http"
	"time"

	"github.com/Payphone-Digital/socialhub/internal/constants"
	"github.com/Payphone-Digital/socialhub/pkg/health"
	"github.com/Payphone-Digital/socialhub/pkg/logger"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type HealthHandler struct {
	monitor *health.Monitor
}

type HealthCheckResponse struct {
	Status    health.Status                 `json:"status"`
	Version   string                        `json:"version"`
	Timestamp time.Time                     `json:"timestamp"`
	Checks    map[string]health.CheckResult `json:"checks"`
}

func NewHealthHandler(monitor *health.Monitor) *HealthHandler {
	return &HealthHandler{monitor: monitor}
}

// HealthCheck probes every dependency. Only critical failures return 503.
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	report := h.monitor.CheckAll(c.Request.Context())

	statusCode := http.StatusOK
	if report.Status == health.StatusUnhealthy {
		statusCode = http.StatusServiceUnavailable
	}

	logger.GetLogger().Debug("Health check performed",
		zap.String("overall_status", report.Status.String()),
		zap.Int("status_code", statusCode),
	)

	c.JSON(statusCode, HealthCheckResponse{
		Status:    report.Status,
		Version:   constants.AppVersion,
		Timestamp: time.Now().UTC(),
		Checks:    report.Checks,
	})
}

// BasicHealth is a dependency-free liveness probe for load balancers
func (h *HealthHandler) BasicHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    health.StatusHealthy,
		"version":   constants.AppVersion,
		"timestamp": time.Now().UTC(),
	})
}
