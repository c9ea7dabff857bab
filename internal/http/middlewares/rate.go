package middlewares

import (
	"net/http"
	"strconv"
	"time"

	"github.com/postpilothq/postpilot/internal/http/errors"
	"github.com/postpilothq/postpilot/internal/metrics"
	"github.com/postpilothq/postpilot/internal/observability/logger"
	"github.com/postpilothq/postpilot/internal/rate"
)

// WithRateLimit limita requests con el presupuesto de la categoría indicada.
// La clave es el tenant autenticado, o la IP si la ruta es pública.
func WithRateLimit(set *rate.CategorySet, category rate.Category) Middleware {
	if set == nil {
		return func(next http.Handler) http.Handler { return next }
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := GetTenantID(r.Context())
			if key == "" {
				key = clientIP(r)
			}
			key = string(category) + "|" + key

			res, err := set.Allow(r.Context(), category, key)
			if err != nil {
				// Si el limiter falla, dejamos pasar el request.
				logger.From(r.Context()).Warn("rate limiter error", logger.Err(err))
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.FormatInt(res.CurrentHits+res.Remaining, 10))

			if !res.Allowed {
				metrics.RateLimitRejections.WithLabelValues(string(category)).Inc()
				if res.RetryAfter > 0 {
					w.Header().Set("Retry-After", strconv.Itoa(int(res.RetryAfter.Seconds()+0.5)))
				}
				if res.WindowTTL > 0 {
					resetAt := time.Now().Add(res.WindowTTL).Unix()
					w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(resetAt, 10))
				}
				errors.WriteError(w, errors.ErrRateLimited)
				return
			}

			// Headers informativos
			w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(res.Remaining, 10))
			if res.WindowTTL > 0 {
				resetAt := time.Now().Add(res.WindowTTL).Unix()
				w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(resetAt, 10))
			}

			next.ServeHTTP(w, r)
		})
	}
}
