package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/chatgrove/chatgrove/internal/store"
	"github.com/go-chi/chi/v5"
)

const healthCheckTimeout = 5 * time.Second

// HealthHandler handles health check endpoints.
type HealthHandler struct {
	repo    store.Repository
	browser interface{ Connected() bool }
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(repo store.Repository, browser interface{ Connected() bool }) *HealthHandler {
	return &HealthHandler{repo: repo, browser: browser}
}

// Health returns the health status of the daemon and its dependencies.
// A missing browser connection degrades the report but not the status
// code: the daemon is fully serviceable for reads without a browser.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	status := map[string]interface{}{
		"status": "healthy",
		"checks": map[string]string{"api": "ok"},
	}
	statusCode := http.StatusOK

	checks := status["checks"].(map[string]string)
	if err := h.repo.Ping(ctx); err != nil {
		slog.Error("Health check failed", "error", err)
		status["status"] = "degraded"
		checks["database"] = "unreachable"
		statusCode = http.StatusServiceUnavailable
	} else {
		checks["database"] = "ok"
	}

	if h.browser.Connected() {
		checks["browser"] = "connected"
	} else {
		checks["browser"] = "disconnected"
	}

	JSON(w, statusCode, status)
}

// RegisterHealth registers the health check route.
func (h *HealthHandler) RegisterHealth(r chi.Router) {
	r.Get("/api/health", h.Health)
}
