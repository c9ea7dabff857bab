package controllers

import (
	stderrors "errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/postpilothq/postpilot/internal/authflow"
	"github.com/postpilothq/postpilot/internal/credentials"
	"github.com/postpilothq/postpilot/internal/http/dto"
	"github.com/postpilothq/postpilot/internal/http/errors"
	"github.com/postpilothq/postpilot/internal/http/middlewares"
	"github.com/postpilothq/postpilot/internal/oauth/exchange"
	"github.com/postpilothq/postpilot/internal/observability/logger"
	"github.com/postpilothq/postpilot/internal/providers"
)

// OAuthController maneja el ciclo de autorización: authorize, callback,
// disconnect y el listado de proveedores configurados.
type OAuthController struct {
	registry *providers.Registry
	flow     *authflow.Manager
	exchange *exchange.Adapter
	creds    credentials.Store
}

// Authorize arranca el flujo para una plataforma lógica. Requiere tenant
// autenticado; devuelve la URL de autorización del proveedor.
func (c *OAuthController) Authorize(w http.ResponseWriter, r *http.Request) {
	platform, err := providers.ParsePlatform(chi.URLParam(r, "platform"))
	if err != nil {
		errors.WriteError(w, errors.ErrBadRequest.WithDetail("unknown platform"))
		return
	}

	tenantID := middlewares.GetTenantID(r.Context())
	orgID := middlewares.GetOrgID(r.Context())

	res, err := c.flow.Begin(r.Context(), tenantID, orgID, platform)
	if err != nil {
		if stderrors.Is(err, providers.ErrProviderNotConfigured) {
			errors.WriteError(w, errors.ErrProviderNotConfigured)
			return
		}
		logger.From(r.Context()).Error("authorize failed", logger.Err(err))
		errors.WriteError(w, errors.ErrInternal)
		return
	}

	writeJSON(w, http.StatusOK, dto.AuthorizeResponse{AuthorizationURL: res.AuthorizationURL})
}

// Callback completa el flujo: valida y consume el state, intercambia el code
// y persiste la credencial como la única activa para su clave.
func (c *OAuthController) Callback(w http.ResponseWriter, r *http.Request) {
	callbackProvider := chi.URLParam(r, "platform")
	q := r.URL.Query()

	if denied := q.Get("error"); denied != "" {
		errors.WriteError(w, errors.ErrTokenExchangeFailed.WithDetail("provider returned "+denied))
		return
	}
	state, code := q.Get("state"), q.Get("code")
	if state == "" || code == "" {
		errors.WriteError(w, errors.ErrInvalidState.WithDetail("missing state or code"))
		return
	}

	st, err := c.flow.Complete(r.Context(), callbackProvider, state)
	if err != nil {
		switch {
		case stderrors.Is(err, authflow.ErrPlatformMismatch):
			errors.WriteError(w, errors.ErrPlatformMismatch)
		case stderrors.Is(err, authflow.ErrStateInvalid):
			errors.WriteError(w, errors.ErrInvalidState)
		default:
			logger.From(r.Context()).Error("state validation failed", logger.Err(err))
			errors.WriteError(w, errors.ErrInternal)
		}
		return
	}

	res, err := c.exchange.Exchange(r.Context(), st.Platform, code, st.PKCEVerifier)
	if err != nil {
		logger.From(r.Context()).Warn("token exchange failed",
			logger.Provider(callbackProvider), logger.Err(err))
		errors.WriteError(w, errors.ErrTokenExchangeFailed.WithDetail(err.Error()))
		return
	}

	providerKey, err := st.Platform.Provider()
	if err != nil {
		errors.WriteError(w, errors.ErrInternal)
		return
	}

	rec := credentials.Record{
		OwnerScope:         credentials.ScopeUser,
		OwnerID:            st.TenantID,
		Provider:           providerKey,
		AccessToken:        res.AccessToken,
		RefreshToken:       res.RefreshToken,
		ProviderAccountID:  res.AccountID,
		IdentityUnverified: res.IdentityUnverified,
	}
	if st.OrgID != "" {
		rec.OwnerScope = credentials.ScopeOrganization
		rec.OwnerID = st.OrgID
	}
	if res.ExpiresIn > 0 {
		rec.ExpiresAt = time.Now().Add(time.Duration(res.ExpiresIn) * time.Second)
	}

	if _, err := c.creds.Save(r.Context(), rec); err != nil {
		logger.From(r.Context()).Error("persist credential failed", logger.Err(err))
		errors.WriteError(w, errors.ErrInternal)
		return
	}

	logger.From(r.Context()).Info("platform connected",
		logger.TenantID(st.TenantID),
		logger.Platform(string(st.Platform)),
		logger.AccountID(res.AccountID),
	)
	writeJSON(w, http.StatusOK, dto.CallbackResponse{
		Provider:           providerKey,
		Platform:           string(st.Platform),
		AccountID:          res.AccountID,
		IdentityUnverified: res.IdentityUnverified,
	})
}

// Disconnect desactiva (soft delete) la credencial activa del caller para el
// proveedor.
func (c *OAuthController) Disconnect(w http.ResponseWriter, r *http.Request) {
	platform, err := providers.ParsePlatform(chi.URLParam(r, "platform"))
	if err != nil {
		errors.WriteError(w, errors.ErrBadRequest.WithDetail("unknown provider"))
		return
	}
	providerKey, _ := platform.Provider()

	ctx := r.Context()
	tenantID := middlewares.GetTenantID(ctx)
	orgID := middlewares.GetOrgID(ctx)

	if orgID != "" {
		if err := c.creds.Deactivate(ctx, credentials.ScopeOrganization, orgID, providerKey); err == nil {
			w.WriteHeader(http.StatusNoContent)
			return
		} else if !stderrors.Is(err, credentials.ErrNoActiveCredential) {
			logger.From(ctx).Error("disconnect failed", logger.Err(err))
			errors.WriteError(w, errors.ErrInternal)
			return
		}
	}

	if err := c.creds.Deactivate(ctx, credentials.ScopeUser, tenantID, providerKey); err != nil {
		if stderrors.Is(err, credentials.ErrNoActiveCredential) {
			errors.WriteError(w, errors.ErrNoActiveCredential)
			return
		}
		logger.From(ctx).Error("disconnect failed", logger.Err(err))
		errors.WriteError(w, errors.ErrInternal)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Providers lista los proveedores con credenciales configuradas y las
// plataformas lógicas que cada uno respalda.
func (c *OAuthController) Providers(w http.ResponseWriter, r *http.Request) {
	configured := c.registry.Configured()

	byProvider := make(map[string]*dto.ProviderInfo)
	order := make([]string, 0, len(configured))
	for _, platform := range configured {
		name, err := platform.Provider()
		if err != nil {
			continue
		}
		info, ok := byProvider[name]
		if !ok {
			spec, err := c.registry.Spec(platform)
			if err != nil {
				continue
			}
			info = &dto.ProviderInfo{Name: name, Scopes: spec.Scopes}
			byProvider[name] = info
			order = append(order, name)
		}
		info.Platforms = append(info.Platforms, string(platform))
	}

	out := make([]dto.ProviderInfo, 0, len(order))
	for _, name := range order {
		out = append(out, *byProvider[name])
	}
	writeJSON(w, http.StatusOK, map[string]any{"providers": out})
}
