package api

import (
	"time"

	"character-chat/backend/pkg/health"

	"github.com/gin-gonic/gin"
)

// HealthHandler serves the health checker's report
type HealthHandler struct {
	checker *health.Checker
	started time.Time
	version string
}

func NewHealthHandler(checker *health.Checker, version string) *HealthHandler {
	return &HealthHandler{checker: checker, started: time.Now(), version: version}
}

// Health reports component status; 503 when a critical component is down
func (h *HealthHandler) Health(c *gin.Context) {
	c.Header("X-Uptime", time.Since(h.started).Truncate(time.Second).String())
	if h.version != "" {
		c.Header("X-App-Version", h.version)
	}
	h.checker.HTTPHandler()(c.Writer, c.Request)
}

// RegisterRoutes registers health check related routes
func (h *HealthHandler) RegisterRoutes(router gin.IRoutes) {
	router.GET("/health", h.Health)
}
