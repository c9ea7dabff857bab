package credentials

import (
	"context"
	"errors"
)

// Resolver busca la credencial activa para publicar: primero la del
// organization (si el tenant pertenece a uno), con fallback a la personal.
type Resolver struct {
	store Store
}

func NewResolver(store Store) *Resolver {
	return &Resolver{store: store}
}

// Resolve returns the active credential for (tenant, org, provider).
// Org-scoped wins when present; otherwise the user-scoped one. Inactive
// records never resolve.
func (r *Resolver) Resolve(ctx context.Context, tenantID, orgID, provider string) (Record, error) {
	if orgID != "" {
		rec, err := r.store.FindActive(ctx, ScopeOrganization, orgID, provider)
		if err == nil {
			return rec, nil
		}
		if !errors.Is(err, ErrNoActiveCredential) {
			return Record{}, err
		}
	}
	return r.store.FindActive(ctx, ScopeUser, tenantID, provider)
}
