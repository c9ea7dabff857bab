package rate

import (
	"context"
	"fmt"
	"testing"
	"time"
)

func residentKeys(l *MemoryLimiter) int {
	n := 0
	for i := range l.shards {
		s := &l.shards[i]
		s.mu.Lock()
		n += len(s.hits)
		s.mu.Unlock()
	}
	return n
}

func TestMemoryLimiter_AllowsUpToMax(t *testing.T) {
	l := NewMemoryLimiter(3, time.Minute)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		res, err := l.Allow(ctx, "tenant-1")
		if err != nil {
			t.Fatal(err)
		}
		if !res.Allowed {
			t.Fatalf("hit %d denied", i+1)
		}
		if want := int64(3 - i - 1); res.Remaining != want {
			t.Errorf("hit %d: remaining = %d, want %d", i+1, res.Remaining, want)
		}
	}

	res, err := l.Allow(ctx, "tenant-1")
	if err != nil {
		t.Fatal(err)
	}
	if res.Allowed {
		t.Fatal("hit over budget allowed")
	}
	if res.RetryAfter <= 0 || res.RetryAfter > time.Minute {
		t.Errorf("RetryAfter = %v", res.RetryAfter)
	}
}

func TestMemoryLimiter_KeysAreIndependent(t *testing.T) {
	l := NewMemoryLimiter(1, time.Minute)
	ctx := context.Background()

	if res, _ := l.Allow(ctx, "tenant-1"); !res.Allowed {
		t.Fatal("tenant-1 first hit denied")
	}
	if res, _ := l.Allow(ctx, "tenant-1"); res.Allowed {
		t.Fatal("tenant-1 second hit allowed")
	}
	if res, _ := l.Allow(ctx, "tenant-2"); !res.Allowed {
		t.Fatal("tenant-2 blocked by tenant-1's budget")
	}
}

func TestMemoryLimiter_WindowSlides(t *testing.T) {
	l := NewMemoryLimiter(2, time.Minute)
	ctx := context.Background()

	base := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	current := base
	l.now = func() time.Time { return current }

	if res, _ := l.Allow(ctx, "k"); !res.Allowed {
		t.Fatal("hit 1 denied")
	}
	current = base.Add(30 * time.Second)
	if res, _ := l.Allow(ctx, "k"); !res.Allowed {
		t.Fatal("hit 2 denied")
	}

	current = base.Add(45 * time.Second)
	res, _ := l.Allow(ctx, "k")
	if res.Allowed {
		t.Fatal("hit 3 allowed inside the window")
	}
	// El hit más viejo (t=0) sale de la ventana en t=60s.
	if want := 15 * time.Second; res.RetryAfter != want {
		t.Errorf("RetryAfter = %v, want %v", res.RetryAfter, want)
	}

	// Pasado el minuto del primer hit queda lugar de nuevo.
	current = base.Add(61 * time.Second)
	if res, _ := l.Allow(ctx, "k"); !res.Allowed {
		t.Fatal("hit denied after the oldest slid out")
	}

	// Pero el de t=30s sigue contando: el presupuesto vuelve a estar lleno.
	current = base.Add(75 * time.Second)
	if res, _ := l.Allow(ctx, "k"); res.Allowed {
		t.Fatal("window is sliding, not fixed: this hit must be denied")
	}
}

func TestMemoryLimiter_SweepEvictsIdleKeys(t *testing.T) {
	l := NewMemoryLimiter(5, time.Minute)
	defer l.Close()
	ctx := context.Background()

	base := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	current := base
	l.now = func() time.Time { return current }

	// Claves de un solo request (p.ej. IPs del callback público) que nunca
	// vuelven a consultarse: la poda perezosa no las alcanza.
	for i := 0; i < 500; i++ {
		if res, _ := l.Allow(ctx, fmt.Sprintf("ip-%d", i)); !res.Allowed {
			t.Fatalf("hit de ip-%d denied", i)
		}
	}
	if got := residentKeys(l); got != 500 {
		t.Fatalf("resident keys = %d, want 500", got)
	}

	current = base.Add(3 * time.Hour)
	l.sweep()

	if got := residentKeys(l); got != 0 {
		t.Fatalf("resident keys after sweep = %d, want 0", got)
	}

	// El limiter sigue operativo después del barrido.
	if res, _ := l.Allow(ctx, "ip-1"); !res.Allowed {
		t.Fatal("fresh hit denied after sweep")
	}
}

func TestMemoryLimiter_ZeroBudgetDeniesWithoutPanic(t *testing.T) {
	l := NewMemoryLimiter(0, time.Minute)
	defer l.Close()

	res, err := l.Allow(context.Background(), "k")
	if err != nil {
		t.Fatal(err)
	}
	if res.Allowed {
		t.Fatal("zero budget must deny everything")
	}
	if res.RetryAfter != time.Minute {
		t.Errorf("RetryAfter = %v, want the full window", res.RetryAfter)
	}
	if got := residentKeys(l); got != 0 {
		t.Errorf("resident keys = %d, denied-only keys must not be stored", got)
	}
}

func TestCategorySet_FallsBackToDefault(t *testing.T) {
	limits := map[Category]Limit{
		CategoryAuth:    {Max: 1, Window: time.Minute},
		CategoryDefault: {Max: 2, Window: time.Minute},
	}
	set := NewCategorySet(limits, func(c Category, l Limit) Limiter {
		return NewMemoryLimiter(l.Max, l.Window)
	})
	ctx := context.Background()

	if res, _ := set.Allow(ctx, CategoryAuth, "k"); !res.Allowed {
		t.Fatal("auth hit 1 denied")
	}
	if res, _ := set.Allow(ctx, CategoryAuth, "k"); res.Allowed {
		t.Fatal("auth hit 2 allowed over budget")
	}

	// Categoría no configurada usa el presupuesto default.
	if res, _ := set.Allow(ctx, CategoryExpensive, "k"); !res.Allowed {
		t.Fatal("unconfigured category denied")
	}
	if res, _ := set.Allow(ctx, CategoryExpensive, "k"); !res.Allowed {
		t.Fatal("default budget is 2")
	}
	if res, _ := set.Allow(ctx, CategoryExpensive, "k"); res.Allowed {
		t.Fatal("default budget exhausted but hit allowed")
	}
}
