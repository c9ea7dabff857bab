package credentials

import (
	"context"
	"time"
)

// Store persists credential records.
//
// Save must be atomic: deactivating the prior active record for the same
// (owner_scope, owner_id, provider) and inserting the new active one happen
// in a single operation, never read-then-write.
type Store interface {
	// Save upserts a record as the single active credential for its key.
	Save(ctx context.Context, rec Record) (Record, error)

	// FindActive returns the active record for the key, or
	// ErrNoActiveCredential.
	FindActive(ctx context.Context, scope OwnerScope, ownerID, provider string) (Record, error)

	// UpdateTokens mutates a record in place after a refresh.
	UpdateTokens(ctx context.Context, id, accessToken, refreshToken string, expiresAt time.Time) (Record, error)

	// Deactivate soft-deletes the active record for the key (is_active=false).
	// Records are never hard-deleted while scheduled work may reference them.
	Deactivate(ctx context.Context, scope OwnerScope, ownerID, provider string) error
}
