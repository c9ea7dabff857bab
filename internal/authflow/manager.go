package authflow

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/postpilothq/postpilot/internal/observability/logger"
	"github.com/postpilothq/postpilot/internal/providers"
)

// ManagerDeps contains dependencies for the authorization flow manager.
type ManagerDeps struct {
	Registry *providers.Registry
	States   StateStore

	// BaseURL pública del servicio; los redirect_uri se arman como
	// <BaseURL>/oauth/<provider>/callback.
	BaseURL string

	// StateTTL overrides the default 10m TTL (tests only).
	StateTTL time.Duration
}

// Manager issues single-use state tokens and validates callbacks.
type Manager struct {
	registry *providers.Registry
	states   StateStore
	baseURL  string
	stateTTL time.Duration
}

// NewManager creates the authorization flow manager.
func NewManager(d ManagerDeps) *Manager {
	ttl := d.StateTTL
	if ttl == 0 {
		ttl = StateTTL
	}
	return &Manager{
		registry: d.Registry,
		states:   d.States,
		baseURL:  strings.TrimRight(d.BaseURL, "/"),
		stateTTL: ttl,
	}
}

// BeginResult carries the fully-formed provider authorization URL.
type BeginResult struct {
	AuthorizationURL string
}

// Begin generates a cryptographically random state (plus PKCE verifier when
// the provider requires it), persists it with a 10-minute expiry, and builds
// the provider authorization URL.
func (m *Manager) Begin(ctx context.Context, tenantID, orgID string, platform providers.Platform) (*BeginResult, error) {
	log := logger.From(ctx).With(logger.Layer("service"), logger.Component("authflow"))

	spec, err := m.registry.Spec(platform)
	if err != nil {
		return nil, err
	}
	creds, err := m.registry.Credentials(platform)
	if err != nil {
		return nil, err
	}

	state, err := randomToken(32)
	if err != nil {
		return nil, fmt.Errorf("authflow: generate state: %w", err)
	}

	rec := StateRecord{
		TenantID:  tenantID,
		OrgID:     orgID,
		Platform:  platform,
		CreatedAt: time.Now().UTC(),
	}
	rec.ExpiresAt = rec.CreatedAt.Add(m.stateTTL)

	var challenge string
	if spec.RequiresPKCE {
		verifier, err := NewVerifier()
		if err != nil {
			return nil, fmt.Errorf("authflow: generate verifier: %w", err)
		}
		rec.PKCEVerifier = verifier
		challenge = Challenge(verifier)
	}

	if err := m.states.Put(ctx, state, rec, m.stateTTL); err != nil {
		log.Error("failed to persist state", logger.Err(err))
		return nil, fmt.Errorf("authflow: persist state: %w", err)
	}

	u, err := url.Parse(spec.AuthURL)
	if err != nil {
		return nil, fmt.Errorf("authflow: bad auth url for %s: %w", spec.Name, err)
	}
	q := u.Query()
	q.Set(spec.ClientIDParamName(), creds.ClientID)
	q.Set("redirect_uri", m.RedirectURI(spec))
	q.Set("response_type", "code")
	q.Set("scope", strings.Join(spec.Scopes, " "))
	q.Set("state", state)
	if spec.RequiresPKCE {
		q.Set("code_challenge", challenge)
		q.Set("code_challenge_method", "S256")
	}
	for k, v := range spec.ExtraAuthParams {
		q.Set(k, v)
	}
	u.RawQuery = q.Encode()

	log.Info("authorization started",
		logger.TenantID(tenantID),
		logger.Platform(string(platform)),
		logger.Provider(spec.Name),
	)

	return &BeginResult{AuthorizationURL: u.String()}, nil
}

// RedirectURI builds the callback URL for a provider. Logical platforms that
// share a provider share this URL; the platform travels in the state.
func (m *Manager) RedirectURI(spec providers.Spec) string {
	return fmt.Sprintf("%s/oauth/%s/callback", m.baseURL, spec.Name)
}

// Complete validates a callback: the state must exist, be unexpired and
// unused, and the provider the callback arrived on must back the platform
// recorded in the state. The state is consumed before returning, so a
// replayed callback always fails after the first success.
func (m *Manager) Complete(ctx context.Context, callbackProvider, state string) (StateRecord, error) {
	rec, err := m.states.Consume(ctx, state)
	if err != nil {
		return StateRecord{}, err
	}

	wantProvider, err := rec.Platform.Provider()
	if err != nil {
		return StateRecord{}, ErrStateInvalid
	}
	if wantProvider != callbackProvider {
		logger.From(ctx).Warn("callback provider does not match stored state",
			logger.Provider(callbackProvider),
			logger.Platform(string(rec.Platform)),
		)
		return StateRecord{}, ErrPlatformMismatch
	}
	return rec, nil
}
