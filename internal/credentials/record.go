// Package credentials persists and resolves per-tenant, per-provider OAuth
// credentials, with organization-level and user-level scoping.
package credentials

import (
	"errors"
	"time"
)

// OwnerScope says whether a credential belongs to an organization (shared by
// its members) or an individual user.
type OwnerScope string

const (
	ScopeOrganization OwnerScope = "organization"
	ScopeUser         OwnerScope = "user"
)

var (
	// ErrNoActiveCredential: no active record for the requested owner key.
	ErrNoActiveCredential = errors.New("credentials: no active credential")

	// ErrCredentialInvalid: the provider rejected the refresh token; the
	// credential was deactivated and the tenant must reconnect.
	ErrCredentialInvalid = errors.New("credentials: credential invalid, reconnect required")
)

// Record is one stored credential. At most one active record exists per
// (owner_scope, owner_id, provider); Save enforces this atomically.
type Record struct {
	ID         string
	OwnerScope OwnerScope
	OwnerID    string

	// Provider is the OAuth app key (twitter, facebook, ...). Logical
	// platforms sharing an app share the credential.
	Provider string

	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time

	ProviderAccountID string

	// IdentityUnverified: the identity call failed during connect and
	// ProviderAccountID holds a placeholder.
	IdentityUnverified bool

	IsActive    bool
	ConnectedAt time.Time
}

// Key identifies the unique-active constraint for this record.
func (r Record) Key() string {
	return string(r.OwnerScope) + "|" + r.OwnerID + "|" + r.Provider
}
