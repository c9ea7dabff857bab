package authflow

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// memoryStore respalda los states en memoria para despliegues de un nodo.
// go-cache se encarga del TTL y la limpieza periódica; el mutex hace que
// Consume sea un get+delete atómico (go-cache no trae GetDel).
type memoryStore struct {
	mu sync.Mutex
	c  *gocache.Cache
}

// NewMemoryStore creates an in-process StateStore with TTL eviction.
func NewMemoryStore() StateStore {
	return &memoryStore{c: gocache.New(StateTTL, time.Minute)}
}

func (s *memoryStore) Put(ctx context.Context, state string, rec StateRecord, ttl time.Duration) error {
	b, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.c.Set(state, b, ttl)
	s.mu.Unlock()
	return nil
}

func (s *memoryStore) Consume(ctx context.Context, state string) (StateRecord, error) {
	s.mu.Lock()
	v, ok := s.c.Get(state)
	if ok {
		s.c.Delete(state)
	}
	s.mu.Unlock()

	if !ok {
		return StateRecord{}, ErrStateInvalid
	}
	b, _ := v.([]byte)

	var rec StateRecord
	if err := json.Unmarshal(b, &rec); err != nil {
		return StateRecord{}, ErrStateInvalid
	}
	if time.Now().After(rec.ExpiresAt) {
		return StateRecord{}, ErrStateInvalid
	}
	return rec, nil
}
