package controllers

import (
	"net/http"

	"github.com/postpilothq/postpilot/internal/observability/logger"
)

// HealthController responde los checks de vida y readiness.
type HealthController struct {
	ready func() error
}

// Healthz: el proceso está vivo.
func (c *HealthController) Healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Readyz: las dependencias (storage) responden.
func (c *HealthController) Readyz(w http.ResponseWriter, r *http.Request) {
	if c.ready != nil {
		if err := c.ready(); err != nil {
			logger.From(r.Context()).Warn("readiness check failed", logger.Err(err))
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "unavailable",
				"error":  err.Error(),
			})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
