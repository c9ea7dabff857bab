// Package router arma el árbol de rutas del API.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/postpilothq/postpilot/internal/http/controllers"
	"github.com/postpilothq/postpilot/internal/http/middlewares"
	"github.com/postpilothq/postpilot/internal/rate"
)

// Deps contiene las dependencias del router.
type Deps struct {
	Controllers *controllers.Controllers
	Auth        middlewares.AuthConfig
	Rate        *rate.CategorySet // nil desactiva el rate limiting
}

// New construye el handler raíz con la cadena de middlewares estándar:
// request id → logging → recover, y por grupo auth + rate según categoría.
func New(d Deps) http.Handler {
	r := chi.NewRouter()

	authed := mw(middlewares.WithAuth(d.Auth))
	c := d.Controllers

	// Flujo OAuth. El callback es público: llega por redirect del proveedor,
	// sin bearer del tenant (la identidad viaja en el state).
	r.Group(func(r chi.Router) {
		r.Use(mw(middlewares.WithRateLimit(d.Rate, rate.CategoryPublic)))
		r.Get("/oauth/{platform}/callback", c.OAuth.Callback)
	})
	r.Group(func(r chi.Router) {
		r.Use(authed, mw(middlewares.WithRateLimit(d.Rate, rate.CategoryAuth)))
		r.Get("/oauth/{platform}/authorize", c.OAuth.Authorize)
		r.Delete("/oauth/{platform}", c.OAuth.Disconnect)
	})

	// Publicación.
	r.Group(func(r chi.Router) {
		r.Use(authed, mw(middlewares.WithRateLimit(d.Rate, rate.CategoryExpensive)))
		r.Post("/publish", c.Publish.Publish)
	})
	r.Group(func(r chi.Router) {
		r.Use(authed, mw(middlewares.WithRateLimit(d.Rate, rate.CategoryDefault)))
		r.Get("/oauth/providers", c.OAuth.Providers)
		r.Get("/posts/{id}", c.Publish.GetPost)
		r.Get("/scheduler/status", c.Scheduler.Status)
	})

	// Observabilidad, sin auth ni rate limiting.
	r.Get("/healthz", c.Health.Healthz)
	r.Get("/readyz", c.Health.Readyz)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	// La base envuelve todo el árbol, /metrics incluido.
	return middlewares.Chain(r,
		middlewares.WithRequestID(),
		middlewares.WithLogging(),
		middlewares.WithRecover(),
	)
}

// mw adapta nuestro tipo Middleware a la firma de chi.
func mw(m middlewares.Middleware) func(http.Handler) http.Handler {
	return m
}
