package controllers

import (
	"net/http"

	"github.com/postpilothq/postpilot/internal/http/errors"
	"github.com/postpilothq/postpilot/internal/scheduler"
)

// SchedulerController expone el estado del loop de publicación.
type SchedulerController struct {
	service *scheduler.Service
}

// Status devuelve el snapshot del scheduler.
func (c *SchedulerController) Status(w http.ResponseWriter, r *http.Request) {
	if c.service == nil {
		errors.WriteError(w, errors.ErrNotFound.WithDetail("scheduler disabled"))
		return
	}
	writeJSON(w, http.StatusOK, c.service.Snapshot())
}
