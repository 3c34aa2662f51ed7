package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/render"
)

// HealthHandler serves liveness and version endpoints.
type HealthHandler struct {
	version   string
	buildTime string
	logger    *slog.Logger
	started   time.Time
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(version, buildTime string, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{
		version:   version,
		buildTime: buildTime,
		logger:    logger.With(slog.String("component", "health_handler")),
		started:   time.Now(),
	}
}

// HealthCheck handles GET /api/health
func (h *HealthHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]interface{}{
		"status":    "healthy",
		"version":   h.version,
		"uptime":    time.Since(h.started).String(),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// Version handles GET /api/version
func (h *HealthHandler) Version(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]interface{}{
		"version":    h.version,
		"build_time": h.buildTime,
	})
}
