// Package credits gates expensive operations (scheduling a post) against the
// tenant's plan allowance.
package credits

import (
	"context"
	"errors"
	"sync"
)

// ErrInsufficient: the tenant has no credits left for the operation.
var ErrInsufficient = errors.New("credits: insufficient credits")

// Gate decides whether a tenant may spend one credit on an operation.
type Gate interface {
	// Reserve consumes one credit for the tenant, or ErrInsufficient.
	Reserve(ctx context.Context, tenantID, operation string) error
}

// AllowAll nunca rechaza. Modo por defecto cuando la facturación está apagada.
type AllowAll struct{}

func (AllowAll) Reserve(context.Context, string, string) error { return nil }

// FixedAllowance gives each tenant the same credit budget, tracked in memory.
// A billing-backed implementation replaces this in production.
type FixedAllowance struct {
	allowance int

	mu    sync.Mutex
	spent map[string]int
}

func NewFixedAllowance(allowance int) *FixedAllowance {
	return &FixedAllowance{allowance: allowance, spent: make(map[string]int)}
}

func (g *FixedAllowance) Reserve(_ context.Context, tenantID, _ string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.spent[tenantID] >= g.allowance {
		return ErrInsufficient
	}
	g.spent[tenantID]++
	return nil
}
