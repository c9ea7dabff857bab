package credentials

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/postpilothq/postpilot/internal/metrics"
	"github.com/postpilothq/postpilot/internal/oauth/exchange"
	"github.com/postpilothq/postpilot/internal/observability/logger"
	"github.com/postpilothq/postpilot/internal/providers"
)

// TokenRefresher refresca un access token contra el proveedor.
type TokenRefresher interface {
	Refresh(ctx context.Context, platform providers.Platform, refreshToken string) (*exchange.Result, error)
}

// Refresher guarantees a usable access token before publishing. Concurrent
// refreshes of the same credential are collapsed with singleflight, keyed per
// credential; unrelated credentials never wait on each other.
type Refresher struct {
	store  Store
	tokens TokenRefresher
	grace  time.Duration
	group  singleflight.Group
}

// NewRefresher creates a Refresher. grace is how close to expiry a token may
// get before we refresh it proactively.
func NewRefresher(store Store, tokens TokenRefresher, grace time.Duration) *Refresher {
	return &Refresher{store: store, tokens: tokens, grace: grace}
}

// EnsureFresh returns rec as-is when the token is still comfortably valid,
// otherwise refreshes it, persists the new tokens and returns the updated
// record. A provider rejection of the refresh token deactivates the
// credential and returns ErrCredentialInvalid.
func (f *Refresher) EnsureFresh(ctx context.Context, rec Record) (Record, error) {
	if rec.ExpiresAt.IsZero() || time.Now().Before(rec.ExpiresAt.Add(-f.grace)) {
		return rec, nil
	}
	if rec.RefreshToken == "" {
		// Sin refresh token no hay nada que intentar: reconexión.
		if err := f.store.Deactivate(ctx, rec.OwnerScope, rec.OwnerID, rec.Provider); err != nil && !errors.Is(err, ErrNoActiveCredential) {
			return Record{}, err
		}
		return Record{}, ErrCredentialInvalid
	}

	v, err, _ := f.group.Do(rec.Key(), func() (any, error) {
		return f.refresh(ctx, rec)
	})
	if err != nil {
		return Record{}, err
	}
	return v.(Record), nil
}

// Deactivate retires a credential after the provider rejected its token at
// publish time. Idempotent.
func (f *Refresher) Deactivate(ctx context.Context, rec Record) error {
	err := f.store.Deactivate(ctx, rec.OwnerScope, rec.OwnerID, rec.Provider)
	if errors.Is(err, ErrNoActiveCredential) {
		return nil
	}
	return err
}

func (f *Refresher) refresh(ctx context.Context, rec Record) (Record, error) {
	// Otro vuelo pudo haber refrescado mientras esperábamos el lock lógico.
	current, err := f.store.FindActive(ctx, rec.OwnerScope, rec.OwnerID, rec.Provider)
	if err == nil && time.Now().Before(current.ExpiresAt.Add(-f.grace)) {
		return current, nil
	}
	if err == nil {
		rec = current
	}

	res, err := f.tokens.Refresh(ctx, providers.Platform(rec.Provider), rec.RefreshToken)
	if err != nil {
		var xerr *exchange.Error
		if errors.As(err, &xerr) && (xerr.Status == http.StatusBadRequest || xerr.Status == http.StatusUnauthorized) {
			// Refresh token revocado o expirado: la credencial deja de servir.
			metrics.TokenRefreshes.WithLabelValues(rec.Provider, "invalid").Inc()
			logger.From(ctx).Warn("refresh token rejected, deactivating credential",
				logger.Provider(rec.Provider), logger.Err(err))
			if derr := f.store.Deactivate(ctx, rec.OwnerScope, rec.OwnerID, rec.Provider); derr != nil && !errors.Is(derr, ErrNoActiveCredential) {
				return Record{}, derr
			}
			return Record{}, fmt.Errorf("%w: %v", ErrCredentialInvalid, err)
		}
		metrics.TokenRefreshes.WithLabelValues(rec.Provider, "error").Inc()
		return Record{}, err
	}

	newRefresh := res.RefreshToken
	if newRefresh == "" {
		// Proveedores que no rotan el refresh token.
		newRefresh = rec.RefreshToken
	}
	expiresAt := time.Time{}
	if res.ExpiresIn > 0 {
		expiresAt = time.Now().Add(time.Duration(res.ExpiresIn) * time.Second)
	}

	updated, err := f.store.UpdateTokens(ctx, rec.ID, res.AccessToken, newRefresh, expiresAt)
	if err != nil {
		return Record{}, err
	}
	metrics.TokenRefreshes.WithLabelValues(rec.Provider, "ok").Inc()
	logger.From(ctx).Info("access token refreshed", logger.Provider(rec.Provider))
	return updated, nil
}
