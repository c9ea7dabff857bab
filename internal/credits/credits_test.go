package credits

import (
	"context"
	"errors"
	"testing"
)

func TestFixedAllowance(t *testing.T) {
	g := NewFixedAllowance(2)
	ctx := context.Background()

	if err := g.Reserve(ctx, "tenant-1", "publish"); err != nil {
		t.Fatal(err)
	}
	if err := g.Reserve(ctx, "tenant-1", "publish"); err != nil {
		t.Fatal(err)
	}
	if err := g.Reserve(ctx, "tenant-1", "publish"); !errors.Is(err, ErrInsufficient) {
		t.Fatalf("want ErrInsufficient, got %v", err)
	}

	// El presupuesto es por tenant.
	if err := g.Reserve(ctx, "tenant-2", "publish"); err != nil {
		t.Fatal(err)
	}
}

func TestAllowAll(t *testing.T) {
	g := AllowAll{}
	for i := 0; i < 1000; i++ {
		if err := g.Reserve(context.Background(), "tenant-1", "publish"); err != nil {
			t.Fatal(err)
		}
	}
}
