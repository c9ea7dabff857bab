// Package controllers agrupa los controllers HTTP del API.
package controllers

import (
	"encoding/json"
	"net/http"

	"github.com/postpilothq/postpilot/internal/authflow"
	"github.com/postpilothq/postpilot/internal/credentials"
	"github.com/postpilothq/postpilot/internal/credits"
	"github.com/postpilothq/postpilot/internal/oauth/exchange"
	"github.com/postpilothq/postpilot/internal/posts"
	"github.com/postpilothq/postpilot/internal/providers"
	"github.com/postpilothq/postpilot/internal/publish"
	"github.com/postpilothq/postpilot/internal/scheduler"
)

// Deps agrupa todo lo que los controllers necesitan. Se arma una vez en el
// wiring de la app.
type Deps struct {
	Registry   *providers.Registry
	Flow       *authflow.Manager
	Exchange   *exchange.Adapter
	Creds      credentials.Store
	Posts      posts.Store
	Dispatcher *publish.Dispatcher
	Gate       credits.Gate
	Scheduler  *scheduler.Service
	Ready      func() error // nil = siempre listo
}

// Controllers agrupa los controllers por dominio.
type Controllers struct {
	OAuth     *OAuthController
	Publish   *PublishController
	Scheduler *SchedulerController
	Health    *HealthController
}

// New crea el agregador de controllers con las dependencias inyectadas.
func New(d Deps) *Controllers {
	return &Controllers{
		OAuth: &OAuthController{
			registry: d.Registry,
			flow:     d.Flow,
			exchange: d.Exchange,
			creds:    d.Creds,
		},
		Publish: &PublishController{
			posts:      d.Posts,
			dispatcher: d.Dispatcher,
			gate:       d.Gate,
		},
		Scheduler: &SchedulerController{service: d.Scheduler},
		Health:    &HealthController{ready: d.Ready},
	}
}

// writeJSON serializa una respuesta JSON con el status indicado.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
