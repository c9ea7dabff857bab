package middlewares

import "context"

// =================================================================================
// CONTEXT KEYS
// =================================================================================

type ctxKey string

const (
	// ctxRequestIDKey guarda el request ID
	ctxRequestIDKey ctxKey = "request_id"
	// ctxTenantIDKey guarda el tenant (user) ID extraído del token
	ctxTenantIDKey ctxKey = "tenant_id"
	// ctxOrgIDKey guarda el organization ID del token, si existe
	ctxOrgIDKey ctxKey = "org_id"
)

// setRequestID inyecta el request ID en el contexto (interno)
func setRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ctxRequestIDKey, requestID)
}

// WithTenant inyecta la identidad del tenant en el contexto.
func WithTenant(ctx context.Context, tenantID, orgID string) context.Context {
	ctx = context.WithValue(ctx, ctxTenantIDKey, tenantID)
	if orgID != "" {
		ctx = context.WithValue(ctx, ctxOrgIDKey, orgID)
	}
	return ctx
}

// GetRequestID obtiene el request ID del contexto.
func GetRequestID(ctx context.Context) string {
	if v, ok := ctx.Value(ctxRequestIDKey).(string); ok {
		return v
	}
	return ""
}

// GetTenantID obtiene el tenant ID del contexto. Cadena vacía si el
// middleware de auth no se aplicó.
func GetTenantID(ctx context.Context) string {
	if v, ok := ctx.Value(ctxTenantIDKey).(string); ok {
		return v
	}
	return ""
}

// GetOrgID obtiene el organization ID del contexto, si el tenant pertenece a
// una organización.
func GetOrgID(ctx context.Context) string {
	if v, ok := ctx.Value(ctxOrgIDKey).(string); ok {
		return v
	}
	return ""
}
