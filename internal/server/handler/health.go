package handler

import (
	"log/slog"
	"net/http"
	"time"
)

// HealthHandler serves the unauthenticated liveness endpoint.
type HealthHandler struct {
	logger *slog.Logger
}

// NewHealthHandler creates a HealthHandler with the provided logger.
func NewHealthHandler(logger *slog.Logger) *HealthHandler {
	return &HealthHandler{logger: logger}
}

// HealthCheck reports process liveness only; broker and store health live on
// the status endpoint.
// GET /healthz
func (h *HealthHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"service":   "tradebot",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
