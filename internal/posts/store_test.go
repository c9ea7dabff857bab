package posts

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/postpilothq/postpilot/internal/providers"
)

func TestMemoryStore_DueOrderAndLimit(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	now := time.Now()

	mk := func(offset time.Duration) Post {
		p, err := s.Create(ctx, Post{
			TenantID:    "tenant-1",
			Platform:    providers.PlatformTwitter,
			Content:     Content{Body: "hola"},
			ScheduledAt: now.Add(offset),
		})
		if err != nil {
			t.Fatal(err)
		}
		return p
	}

	oldest := mk(-3 * time.Hour)
	middle := mk(-1 * time.Hour)
	mk(-30 * time.Minute)
	future := mk(2 * time.Hour)

	due, err := s.Due(ctx, now, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(due) != 2 {
		t.Fatalf("len(due) = %d, want 2", len(due))
	}
	if due[0].ID != oldest.ID || due[1].ID != middle.ID {
		t.Errorf("due order = %s, %s; want oldest first", due[0].ID, due[1].ID)
	}
	for _, p := range due {
		if p.ID == future.ID {
			t.Error("future post returned as due")
		}
	}
}

func TestMemoryStore_DueSkipsTerminalStates(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	now := time.Now()

	pub, _ := s.Create(ctx, Post{ScheduledAt: now.Add(-time.Hour)})
	fail, _ := s.Create(ctx, Post{ScheduledAt: now.Add(-time.Hour)})
	pending, _ := s.Create(ctx, Post{ScheduledAt: now.Add(-time.Hour)})

	if err := s.MarkPublished(ctx, pub.ID, "ext-1", now); err != nil {
		t.Fatal(err)
	}
	if err := s.MarkFailed(ctx, fail.ID, "boom"); err != nil {
		t.Fatal(err)
	}

	due, err := s.Due(ctx, now, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(due) != 1 || due[0].ID != pending.ID {
		t.Fatalf("due = %+v, want only the still-scheduled post", due)
	}
}

func TestMemoryStore_MarkPublishedIsConditional(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	now := time.Now()

	p, _ := s.Create(ctx, Post{ScheduledAt: now})
	if err := s.MarkPublished(ctx, p.ID, "ext-1", now); err != nil {
		t.Fatal(err)
	}

	// Un segundo publish del mismo post no puede reclamarlo.
	if err := s.MarkPublished(ctx, p.ID, "ext-2", now); !errors.Is(err, ErrNotClaimable) {
		t.Fatalf("want ErrNotClaimable, got %v", err)
	}
	if err := s.MarkFailed(ctx, p.ID, "late"); !errors.Is(err, ErrNotClaimable) {
		t.Fatalf("want ErrNotClaimable, got %v", err)
	}
	if err := s.RecordAttempt(ctx, p.ID, "late"); !errors.Is(err, ErrNotClaimable) {
		t.Fatalf("want ErrNotClaimable, got %v", err)
	}

	got, err := s.Get(ctx, p.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != StatusPublished || got.ProviderPostID != "ext-1" {
		t.Errorf("post = %+v, first publish must win", got)
	}
}

func TestMemoryStore_RecordAttemptKeepsScheduled(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	p, _ := s.Create(ctx, Post{ScheduledAt: time.Now().Add(-time.Minute)})

	if err := s.RecordAttempt(ctx, p.ID, "rate limited"); err != nil {
		t.Fatal(err)
	}
	if err := s.RecordAttempt(ctx, p.ID, "rate limited again"); err != nil {
		t.Fatal(err)
	}

	got, err := s.Get(ctx, p.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != StatusScheduled {
		t.Errorf("status = %q, retryable posts stay scheduled", got.Status)
	}
	if got.Attempts != 2 {
		t.Errorf("attempts = %d, want 2", got.Attempts)
	}
	if got.FailureReason != "rate limited again" {
		t.Errorf("failure reason = %q", got.FailureReason)
	}
}

func TestMemoryStore_PublishingNeverDue(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	now := time.Now()

	// Un publish inmediato nace en publishing, con scheduled_at ya vencido.
	p, err := s.Create(ctx, Post{
		Status:      StatusPublishing,
		ScheduledAt: now.Add(-time.Second),
	})
	if err != nil {
		t.Fatal(err)
	}
	if p.Status != StatusPublishing {
		t.Fatalf("status = %q, Create must honor the claimed status", p.Status)
	}

	due, err := s.Due(ctx, now, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(due) != 0 {
		t.Fatalf("due = %+v, a claimed post must never enter the queue", due)
	}

	// El dispatch en vuelo sí puede cerrar el post.
	if err := s.MarkPublished(ctx, p.ID, "ext-1", now); err != nil {
		t.Fatal(err)
	}
	got, _ := s.Get(ctx, p.ID)
	if got.Status != StatusPublished {
		t.Errorf("status = %q, want published", got.Status)
	}
}

func TestMemoryStore_MarkFailedFromPublishing(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	p, _ := s.Create(ctx, Post{Status: StatusPublishing, ScheduledAt: time.Now()})

	if err := s.MarkFailed(ctx, p.ID, "provider rejected"); err != nil {
		t.Fatal(err)
	}
	got, _ := s.Get(ctx, p.ID)
	if got.Status != StatusFailed || got.FailureReason != "provider rejected" {
		t.Errorf("post = %+v, want failed with reason", got)
	}
}

func TestMemoryStore_GetUnknownID(t *testing.T) {
	s := NewMemoryStore()
	if _, err := s.Get(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}
