// Package authflow manages the OAuth authorization round-trip: CSRF-safe,
// single-use state tokens (with PKCE where the provider requires it),
// authorization-URL construction and callback validation.
package authflow

import (
	"context"
	"errors"
	"time"

	"github.com/postpilothq/postpilot/internal/providers"
)

// StateTTL is the fixed lifetime of a state token.
const StateTTL = 10 * time.Minute

var (
	// ErrStateInvalid covers missing, expired and already-consumed states.
	// Callers must not be able to distinguish the three.
	ErrStateInvalid = errors.New("authflow: invalid state")

	// ErrPlatformMismatch: the callback arrived on a provider endpoint that
	// does not back the platform recorded in the state.
	ErrPlatformMismatch = errors.New("authflow: platform mismatch")
)

// StateRecord is what survives the redirect round-trip, keyed by the opaque
// state value. Consumed (deleted) atomically on first successful validation.
type StateRecord struct {
	TenantID     string             `json:"tenant_id"`
	OrgID        string             `json:"org_id,omitempty"`
	Platform     providers.Platform `json:"platform"`
	PKCEVerifier string             `json:"pkce_verifier,omitempty"`
	CreatedAt    time.Time          `json:"created_at"`
	ExpiresAt    time.Time          `json:"expires_at"`
}

// StateStore persists state records for the duration of the redirect.
// Implementations are injected at startup (in-process for a single node,
// redis for multi-instance deployments); no module-level globals.
type StateStore interface {
	// Put stores the record under the state value with the given TTL.
	Put(ctx context.Context, state string, rec StateRecord, ttl time.Duration) error

	// Consume atomically retrieves AND deletes the record. A second Consume
	// with the same state must return ErrStateInvalid, even under
	// concurrent callers.
	Consume(ctx context.Context, state string) (StateRecord, error)
}
