package credentials

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestMemoryStore_SaveDeactivatesPriorActive(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	first, err := s.Save(ctx, Record{
		OwnerScope:  ScopeUser,
		OwnerID:     "tenant-1",
		Provider:    "twitter",
		AccessToken: "at-old",
	})
	if err != nil {
		t.Fatal(err)
	}

	second, err := s.Save(ctx, Record{
		OwnerScope:  ScopeUser,
		OwnerID:     "tenant-1",
		Provider:    "twitter",
		AccessToken: "at-new",
	})
	if err != nil {
		t.Fatal(err)
	}
	if second.ID == first.ID {
		t.Fatal("second save reused the first record id")
	}

	active, err := s.FindActive(ctx, ScopeUser, "tenant-1", "twitter")
	if err != nil {
		t.Fatalf("FindActive err: %v", err)
	}
	if active.ID != second.ID || active.AccessToken != "at-new" {
		t.Errorf("active = %+v, want the reconnected credential", active)
	}
}

func TestMemoryStore_SaveIsolatesOwnerKeys(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	if _, err := s.Save(ctx, Record{OwnerScope: ScopeUser, OwnerID: "tenant-1", Provider: "twitter", AccessToken: "a"}); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Save(ctx, Record{OwnerScope: ScopeUser, OwnerID: "tenant-2", Provider: "twitter", AccessToken: "b"}); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Save(ctx, Record{OwnerScope: ScopeUser, OwnerID: "tenant-1", Provider: "reddit", AccessToken: "c"}); err != nil {
		t.Fatal(err)
	}

	for _, tc := range []struct {
		owner, provider, want string
	}{
		{"tenant-1", "twitter", "a"},
		{"tenant-2", "twitter", "b"},
		{"tenant-1", "reddit", "c"},
	} {
		rec, err := s.FindActive(ctx, ScopeUser, tc.owner, tc.provider)
		if err != nil {
			t.Fatalf("FindActive(%s,%s): %v", tc.owner, tc.provider, err)
		}
		if rec.AccessToken != tc.want {
			t.Errorf("FindActive(%s,%s) = %q, want %q", tc.owner, tc.provider, rec.AccessToken, tc.want)
		}
	}
}

func TestMemoryStore_Deactivate(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	if _, err := s.Save(ctx, Record{OwnerScope: ScopeUser, OwnerID: "tenant-1", Provider: "twitter"}); err != nil {
		t.Fatal(err)
	}
	if err := s.Deactivate(ctx, ScopeUser, "tenant-1", "twitter"); err != nil {
		t.Fatalf("Deactivate err: %v", err)
	}
	if _, err := s.FindActive(ctx, ScopeUser, "tenant-1", "twitter"); !errors.Is(err, ErrNoActiveCredential) {
		t.Fatalf("want ErrNoActiveCredential, got %v", err)
	}
	// Segunda desactivación: ya no hay nada activo.
	if err := s.Deactivate(ctx, ScopeUser, "tenant-1", "twitter"); !errors.Is(err, ErrNoActiveCredential) {
		t.Fatalf("want ErrNoActiveCredential, got %v", err)
	}
}

func TestResolver_OrgWinsOverUser(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	if _, err := s.Save(ctx, Record{OwnerScope: ScopeUser, OwnerID: "tenant-1", Provider: "twitter", AccessToken: "personal"}); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Save(ctx, Record{OwnerScope: ScopeOrganization, OwnerID: "org-9", Provider: "twitter", AccessToken: "shared"}); err != nil {
		t.Fatal(err)
	}

	r := NewResolver(s)

	rec, err := r.Resolve(ctx, "tenant-1", "org-9", "twitter")
	if err != nil {
		t.Fatal(err)
	}
	if rec.AccessToken != "shared" {
		t.Errorf("with org: token = %q, want shared", rec.AccessToken)
	}

	rec, err = r.Resolve(ctx, "tenant-1", "", "twitter")
	if err != nil {
		t.Fatal(err)
	}
	if rec.AccessToken != "personal" {
		t.Errorf("without org: token = %q, want personal", rec.AccessToken)
	}
}

func TestResolver_FallsBackToUserScope(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	if _, err := s.Save(ctx, Record{OwnerScope: ScopeUser, OwnerID: "tenant-1", Provider: "twitter", AccessToken: "personal"}); err != nil {
		t.Fatal(err)
	}

	r := NewResolver(s)
	rec, err := r.Resolve(ctx, "tenant-1", "org-without-credential", "twitter")
	if err != nil {
		t.Fatal(err)
	}
	if rec.AccessToken != "personal" {
		t.Errorf("token = %q, want personal fallback", rec.AccessToken)
	}

	if _, err := r.Resolve(ctx, "tenant-nobody", "org-without-credential", "twitter"); !errors.Is(err, ErrNoActiveCredential) {
		t.Fatalf("want ErrNoActiveCredential, got %v", err)
	}
}

func TestRecordKey(t *testing.T) {
	r := Record{OwnerScope: ScopeOrganization, OwnerID: "org-1", Provider: "reddit", ExpiresAt: time.Now()}
	if got := r.Key(); got != "organization|org-1|reddit" {
		t.Fatalf("Key = %q", got)
	}
}
