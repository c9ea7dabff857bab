package authflow

import (
	"context"
	"encoding/json"
	"time"

	rdb "github.com/redis/go-redis/v9"
)

// redisStore respalda los states en Redis. GETDEL hace el consume atómico
// entre instancias; es el backend para despliegues con más de un nodo HTTP.
type redisStore struct {
	client *rdb.Client
	prefix string
}

// NewRedisStore creates a redis-backed StateStore.
func NewRedisStore(client *rdb.Client, prefix string) StateStore {
	if prefix == "" {
		prefix = "oauthstate"
	}
	return &redisStore{client: client, prefix: prefix}
}

func (s *redisStore) key(state string) string {
	return s.prefix + ":" + state
}

func (s *redisStore) Put(ctx context.Context, state string, rec StateRecord, ttl time.Duration) error {
	b, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.key(state), b, ttl).Err()
}

func (s *redisStore) Consume(ctx context.Context, state string) (StateRecord, error) {
	val, err := s.client.GetDel(ctx, s.key(state)).Result()
	if err == rdb.Nil {
		return StateRecord{}, ErrStateInvalid
	}
	if err != nil {
		return StateRecord{}, err
	}

	var rec StateRecord
	if err := json.Unmarshal([]byte(val), &rec); err != nil {
		return StateRecord{}, ErrStateInvalid
	}
	if time.Now().After(rec.ExpiresAt) {
		return StateRecord{}, ErrStateInvalid
	}
	return rec, nil
}
