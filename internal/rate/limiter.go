// Package rate limita requests por categoría de endpoint. Trae dos backends:
// memoria (sliding window, por defecto) y Redis (fixed window) para despliegues
// con varias réplicas del API.
package rate

import (
	"context"
	"time"
)

// Result contiene el resultado de una consulta al rate limiter.
type Result struct {
	Allowed     bool
	Remaining   int64
	RetryAfter  time.Duration
	WindowTTL   time.Duration
	CurrentHits int64
}

// Limiter define la interfaz mínima para un rate limiter.
type Limiter interface {
	Allow(ctx context.Context, key string) (Result, error)
}

// Category names the endpoint classes with distinct budgets.
type Category string

const (
	CategoryExpensive Category = "expensive"
	CategoryAuth      Category = "auth"
	CategoryPublic    Category = "public"
	CategoryDefault   Category = "default"
)

// Limit is one category's budget.
type Limit struct {
	Max    int
	Window time.Duration
}

// DefaultLimits son los presupuestos por categoría si la config no los pisa.
func DefaultLimits() map[Category]Limit {
	return map[Category]Limit{
		CategoryExpensive: {Max: 10, Window: time.Minute},
		CategoryAuth:      {Max: 5, Window: time.Minute},
		CategoryPublic:    {Max: 30, Window: time.Minute},
		CategoryDefault:   {Max: 100, Window: time.Minute},
	}
}

// CategorySet holds one limiter per category. Unknown categories fall back to
// the default budget.
type CategorySet struct {
	limiters map[Category]Limiter
}

// NewCategorySet builds one limiter per category using the factory, so the
// backend (memory or redis) stays pluggable.
func NewCategorySet(limits map[Category]Limit, factory func(c Category, l Limit) Limiter) *CategorySet {
	out := make(map[Category]Limiter, len(limits))
	for c, l := range limits {
		out[c] = factory(c, l)
	}
	return &CategorySet{limiters: out}
}

// Allow consulta el limiter de la categoría.
func (s *CategorySet) Allow(ctx context.Context, category Category, key string) (Result, error) {
	lim, ok := s.limiters[category]
	if !ok {
		lim = s.limiters[CategoryDefault]
	}
	if lim == nil {
		return Result{Allowed: true}, nil
	}
	return lim.Allow(ctx, key)
}
