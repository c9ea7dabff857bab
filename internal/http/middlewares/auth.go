package middlewares

import (
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/postpilothq/postpilot/internal/http/errors"
	"github.com/postpilothq/postpilot/internal/observability/logger"
)

// AuthConfig configura la validación del bearer token del tenant.
type AuthConfig struct {
	Secret []byte
	Issuer string
}

// WithAuth valida el JWT del tenant (HS256) y deja tenant_id y org_id en el
// contexto. El claim sub es el tenant; org_id es opcional.
func WithAuth(cfg AuthConfig) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := bearerToken(r)
			if raw == "" {
				errors.WriteError(w, errors.ErrUnauthorized.WithDetail("missing bearer token"))
				return
			}

			claims := jwt.MapClaims{}
			opts := []jwt.ParserOption{jwt.WithValidMethods([]string{"HS256"})}
			if cfg.Issuer != "" {
				opts = append(opts, jwt.WithIssuer(cfg.Issuer))
			}
			_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
				return cfg.Secret, nil
			}, opts...)
			if err != nil {
				logger.From(r.Context()).Warn("invalid bearer token", logger.Err(err))
				errors.WriteError(w, errors.ErrUnauthorized)
				return
			}

			tenantID, _ := claims.GetSubject()
			if tenantID == "" {
				errors.WriteError(w, errors.ErrUnauthorized.WithDetail("token has no subject"))
				return
			}
			orgID, _ := claims["org_id"].(string)

			ctx := WithTenant(r.Context(), tenantID, orgID)
			ctx = logger.ToContext(ctx, logger.From(ctx).With(logger.TenantID(tenantID)))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "Bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}
