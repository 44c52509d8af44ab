package handler

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Health handles GET /health
// Pings the database and runs the broker self-test
func (h *HealthHandler) Health(c *gin.Context) {
	ctx := c.Request.Context()
	status := http.StatusOK
	checks := gin.H{}

	if h.database != nil {
		if err := h.database.HealthCheck(ctx); err != nil {
			h.logger.WarnContext(ctx, "Database health check failed", slog.Any("error", err))
			checks["database"] = err.Error()
			status = http.StatusServiceUnavailable
		} else {
			checks["database"] = "ok"
		}
	}

	if h.broker != nil {
		if err := h.broker.SelfTest(ctx, h.selfTestQueue); err != nil {
			h.logger.WarnContext(ctx, "Broker self-test failed", slog.Any("error", err))
			checks["broker"] = err.Error()
			status = http.StatusServiceUnavailable
		} else {
			checks["broker"] = "ok"
		}
	}

	state := "healthy"
	if status != http.StatusOK {
		state = "unhealthy"
	}

	c.JSON(status, gin.H{
		"status":  state,
		"service": h.serviceName,
		"checks":  checks,
	})
}
