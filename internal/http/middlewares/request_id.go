package middlewares

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/postpilothq/postpilot/internal/observability/logger"
)

// WithRequestID asigna un request ID (o respeta el entrante) y deja un logger
// scoped en el contexto para el resto del pipeline.
func WithRequestID() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := r.Header.Get("X-Request-Id")
			if requestID == "" {
				requestID = uuid.NewString()
			}

			ctx := setRequestID(r.Context(), requestID)
			ctx = logger.ToContext(ctx, logger.From(ctx).With(logger.RequestID(requestID)))
			w.Header().Set("X-Request-Id", requestID)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
