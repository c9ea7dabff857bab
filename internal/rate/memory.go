package rate

import (
	"context"
	"hash/fnv"
	"sync"
	"time"
)

// memoryShards reparte las claves en varios locks para que la limpieza de una
// clave nunca bloquee al resto.
const memoryShards = 16

// MemoryLimiter: sliding window exacto en memoria. Guarda los timestamps de
// los hits dentro de la ventana y poda los vencidos de forma perezosa al
// consultar cada clave; un janitor de fondo barre las claves que nadie vuelve
// a consultar (p.ej. IPs de un solo request) para que no queden residentes.
type MemoryLimiter struct {
	max    int64
	window time.Duration
	shards [memoryShards]memoryShard
	stop   chan struct{}

	// now is swappable in tests.
	now func() time.Time
}

type memoryShard struct {
	mu   sync.Mutex
	hits map[string][]time.Time
}

func NewMemoryLimiter(max int, window time.Duration) *MemoryLimiter {
	l := &MemoryLimiter{
		max:    int64(max),
		window: window,
		stop:   make(chan struct{}),
		now:    time.Now,
	}
	for i := range l.shards {
		l.shards[i].hits = make(map[string][]time.Time)
	}
	if window > 0 {
		go l.janitor()
	}
	return l
}

// Close detiene el janitor. El limiter sigue siendo usable después.
func (l *MemoryLimiter) Close() {
	close(l.stop)
}

func (l *MemoryLimiter) janitor() {
	ticker := time.NewTicker(l.window)
	defer ticker.Stop()
	for {
		select {
		case <-l.stop:
			return
		case <-ticker.C:
			l.sweep()
		}
	}
}

// sweep evicts keys whose newest hit already fell out of the window. Lazy
// pruning only runs on keys that get consulted again, so idle keys need this
// pass to be reclaimed.
func (l *MemoryLimiter) sweep() {
	cutoff := l.now().Add(-l.window)
	for i := range l.shards {
		s := &l.shards[i]
		s.mu.Lock()
		for key, hits := range s.hits {
			if len(hits) == 0 || !hits[len(hits)-1].After(cutoff) {
				delete(s.hits, key)
			}
		}
		s.mu.Unlock()
	}
}

func (l *MemoryLimiter) shard(key string) *memoryShard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return &l.shards[h.Sum32()%memoryShards]
}

func (l *MemoryLimiter) Allow(_ context.Context, key string) (Result, error) {
	now := l.now()
	cutoff := now.Add(-l.window)

	s := l.shard(key)
	s.mu.Lock()
	defer s.mu.Unlock()

	hits := s.hits[key]
	// Poda perezosa: descartamos solo los hits fuera de la ventana.
	kept := hits[:0]
	for _, t := range hits {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}

	count := int64(len(kept))
	if count >= l.max {
		if count == 0 {
			// max <= 0 deniega todo; sin hits no hay slice que guardar.
			delete(s.hits, key)
		} else {
			s.hits[key] = kept
		}
		retry := l.window
		if count > 0 {
			retry = kept[0].Add(l.window).Sub(now)
			if retry < 0 {
				retry = 0
			}
		}
		return Result{
			Allowed:     false,
			Remaining:   0,
			RetryAfter:  retry,
			WindowTTL:   retry,
			CurrentHits: count,
		}, nil
	}

	kept = append(kept, now)
	s.hits[key] = kept
	return Result{
		Allowed:     true,
		Remaining:   l.max - count - 1,
		WindowTTL:   l.window,
		CurrentHits: count + 1,
	}, nil
}
