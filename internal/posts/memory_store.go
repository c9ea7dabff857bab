package posts

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore guarda posts en memoria, con la misma semántica condicional de
// los Mark* que el store de Postgres. Para desarrollo y tests.
type MemoryStore struct {
	mu    sync.Mutex
	posts map[string]Post
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{posts: make(map[string]Post)}
}

func (s *MemoryStore) Create(_ context.Context, p Post) (Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	now := time.Now()
	if p.Status == "" {
		p.Status = StatusScheduled
	}
	p.CreatedAt = now
	p.UpdatedAt = now
	s.posts[p.ID] = p
	return p, nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.posts[id]
	if !ok {
		return Post{}, ErrNotFound
	}
	return p, nil
}

func (s *MemoryStore) Due(_ context.Context, now time.Time, limit int) ([]Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []Post
	for _, p := range s.posts {
		if p.Status == StatusScheduled && !p.ScheduledAt.After(now) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ScheduledAt.Before(out[j].ScheduledAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) MarkPublished(_ context.Context, id, providerPostID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.posts[id]
	if !ok || (p.Status != StatusScheduled && p.Status != StatusPublishing) {
		return ErrNotClaimable
	}
	p.Status = StatusPublished
	p.PublishedAt = at
	p.ProviderPostID = providerPostID
	p.UpdatedAt = time.Now()
	s.posts[id] = p
	return nil
}

func (s *MemoryStore) MarkFailed(_ context.Context, id, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.posts[id]
	if !ok || (p.Status != StatusScheduled && p.Status != StatusPublishing) {
		return ErrNotClaimable
	}
	p.Status = StatusFailed
	p.FailureReason = reason
	p.UpdatedAt = time.Now()
	s.posts[id] = p
	return nil
}

func (s *MemoryStore) RecordAttempt(_ context.Context, id, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.posts[id]
	if !ok || p.Status != StatusScheduled {
		return ErrNotClaimable
	}
	p.Attempts++
	p.FailureReason = reason
	p.UpdatedAt = time.Now()
	s.posts[id] = p
	return nil
}
