package credentials

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore guarda credenciales en memoria. Para desarrollo y tests; el
// mutex da la misma atomicidad que la sentencia única del store de Postgres.
type MemoryStore struct {
	mu   sync.Mutex
	recs map[string]Record // by id
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{recs: make(map[string]Record)}
}

func (s *MemoryStore) Save(_ context.Context, rec Record) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, r := range s.recs {
		if r.IsActive && r.Key() == rec.Key() {
			r.IsActive = false
			s.recs[id] = r
		}
	}

	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	rec.IsActive = true
	rec.ConnectedAt = time.Now()
	s.recs[rec.ID] = rec
	return rec, nil
}

func (s *MemoryStore) FindActive(_ context.Context, scope OwnerScope, ownerID, provider string) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := string(scope) + "|" + ownerID + "|" + provider
	for _, r := range s.recs {
		if r.IsActive && r.Key() == key {
			return r, nil
		}
	}
	return Record{}, ErrNoActiveCredential
}

func (s *MemoryStore) UpdateTokens(_ context.Context, id, accessToken, refreshToken string, expiresAt time.Time) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.recs[id]
	if !ok {
		return Record{}, ErrNoActiveCredential
	}
	r.AccessToken = accessToken
	r.RefreshToken = refreshToken
	r.ExpiresAt = expiresAt
	s.recs[id] = r
	return r, nil
}

func (s *MemoryStore) Deactivate(_ context.Context, scope OwnerScope, ownerID, provider string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := string(scope) + "|" + ownerID + "|" + provider
	found := false
	for id, r := range s.recs {
		if r.IsActive && r.Key() == key {
			r.IsActive = false
			s.recs[id] = r
			found = true
		}
	}
	if !found {
		return ErrNoActiveCredential
	}
	return nil
}
