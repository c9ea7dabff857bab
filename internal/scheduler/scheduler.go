// Package scheduler runs the publishing loop: every tick it picks up due
// scheduled posts and pushes them through the dispatcher with bounded
// concurrency. One bad post never takes down the batch.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/postpilothq/postpilot/internal/metrics"
	"github.com/postpilothq/postpilot/internal/observability/logger"
	"github.com/postpilothq/postpilot/internal/posts"
	"github.com/postpilothq/postpilot/internal/publish"
)

// Deps agrupa las dependencias del servicio.
type Deps struct {
	Store      posts.Store
	Dispatcher *publish.Dispatcher

	TickInterval time.Duration // default 1m
	BatchSize    int           // default 50
	Concurrency  int           // default 8
	ItemTimeout  time.Duration // default 30s
	MaxAttempts  int           // default 3
}

// Status is a snapshot of the loop, served by the HTTP status endpoint.
type Status struct {
	Running    bool      `json:"running"`
	LastTickAt time.Time `json:"last_tick_at"`
	LastBatch  int       `json:"last_batch"`
	TotalTicks int64     `json:"total_ticks"`
	Published  int64     `json:"published"`
	Failed     int64     `json:"failed"`
	Retried    int64     `json:"retried"`
	Skipped    int64     `json:"skipped"`
}

// Service is the publishing loop. Create with New, then Start; Stop waits for
// the in-flight tick to drain.
type Service struct {
	deps Deps

	mu     sync.Mutex
	status Status
	cancel context.CancelFunc
	done   chan struct{}
}

func New(deps Deps) *Service {
	if deps.TickInterval <= 0 {
		deps.TickInterval = time.Minute
	}
	if deps.BatchSize <= 0 {
		deps.BatchSize = 50
	}
	if deps.Concurrency <= 0 {
		deps.Concurrency = 8
	}
	if deps.ItemTimeout <= 0 {
		deps.ItemTimeout = 30 * time.Second
	}
	if deps.MaxAttempts <= 0 {
		deps.MaxAttempts = 3
	}
	return &Service{deps: deps}
}

// Start arranca el loop en background. Idempotente mientras no se haga Stop.
func (s *Service) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status.Running {
		return
	}

	loopCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancel = cancel
	s.done = make(chan struct{})
	s.status.Running = true

	go s.loop(loopCtx)
}

// Stop detiene el loop y espera a que termine el tick en curso.
func (s *Service) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done

	s.mu.Lock()
	s.status.Running = false
	s.cancel = nil
	s.mu.Unlock()
}

// Snapshot returns the current loop status.
func (s *Service) Snapshot() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

func (s *Service) loop(ctx context.Context) {
	defer close(s.done)

	log := logger.From(ctx).With(logger.Component("scheduler"))
	log.Info("scheduler started",
		logger.String("tick", s.deps.TickInterval.String()),
		logger.Int("batch_size", s.deps.BatchSize),
		logger.Int("concurrency", s.deps.Concurrency))

	ticker := time.NewTicker(s.deps.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("scheduler stopped")
			return
		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}

// Tick processes one batch of due posts. Exported so tests and the CLI can
// drive the loop manually.
func (s *Service) Tick(ctx context.Context) {
	start := time.Now()
	log := logger.From(ctx).With(logger.Component("scheduler"))

	due, err := s.deps.Store.Due(ctx, start, s.deps.BatchSize)
	if err != nil {
		log.Error("query due posts failed", logger.Err(err))
		return
	}

	metrics.SchedulerBatchSize.Observe(float64(len(due)))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.deps.Concurrency)
	for _, p := range due {
		p := p
		g.Go(func() error {
			s.processOne(gctx, p)
			return nil // item failures never cancel siblings
		})
	}
	_ = g.Wait()

	s.mu.Lock()
	s.status.LastTickAt = start
	s.status.LastBatch = len(due)
	s.status.TotalTicks++
	s.mu.Unlock()

	metrics.SchedulerTickDuration.Observe(time.Since(start).Seconds())
	if len(due) > 0 {
		log.Info("tick processed", logger.Count(len(due)),
			logger.Duration(time.Since(start)))
	}
}

// processOne publishes a single post with its own timeout and panic barrier.
func (s *Service) processOne(ctx context.Context, p posts.Post) {
	itemCtx, cancel := context.WithTimeout(ctx, s.deps.ItemTimeout)
	defer cancel()

	log := logger.From(ctx).With(
		logger.Component("scheduler"),
		logger.PostID(p.ID),
		logger.Platform(string(p.Platform)))

	var providerPostID string
	var err error
	func() {
		defer func() {
			if r := recover(); r != nil {
				err = &publish.Error{Class: publish.ClassPermanent, Reason: fmt.Sprintf("panic: %v", r)}
				log.Error("publish panicked", logger.String("panic", fmt.Sprint(r)))
			}
		}()
		providerPostID, err = s.deps.Dispatcher.Dispatch(itemCtx, p)
	}()

	if err == nil {
		if merr := s.deps.Store.MarkPublished(ctx, p.ID, providerPostID, time.Now()); merr != nil {
			if errors.Is(merr, posts.ErrNotClaimable) {
				// El post cambió de estado por fuera mientras publicábamos.
				s.count("skipped", p)
				return
			}
			log.Error("mark published failed", logger.Err(merr))
			return
		}
		s.count("published", p)
		return
	}

	// Timeout del item cuenta como fallo transitorio.
	if itemCtx.Err() != nil && !errors.Is(err, context.Canceled) {
		err = &publish.Error{Class: publish.ClassTransient, Reason: "publish timed out", Err: err}
	}

	class := publish.ClassOf(err)
	reason := err.Error()
	log.Warn("publish failed", logger.String("class", class.String()), logger.Err(err))

	switch class {
	case publish.ClassTransient:
		if p.Attempts+1 >= s.deps.MaxAttempts {
			s.markFailed(ctx, p, "retries exhausted: "+reason)
			return
		}
		if rerr := s.deps.Store.RecordAttempt(ctx, p.ID, reason); rerr != nil {
			if errors.Is(rerr, posts.ErrNotClaimable) {
				s.count("skipped", p)
				return
			}
			log.Error("record attempt failed", logger.Err(rerr))
			return
		}
		s.count("retried", p)
	default:
		s.markFailed(ctx, p, reason)
	}
}

func (s *Service) markFailed(ctx context.Context, p posts.Post, reason string) {
	if merr := s.deps.Store.MarkFailed(ctx, p.ID, reason); merr != nil {
		if errors.Is(merr, posts.ErrNotClaimable) {
			s.count("skipped", p)
			return
		}
		logger.From(ctx).Error("mark failed failed", logger.PostID(p.ID), logger.Err(merr))
		return
	}
	s.count("failed", p)
}

func (s *Service) count(result string, p posts.Post) {
	metrics.PublishResults.WithLabelValues(string(p.Platform), result).Inc()

	s.mu.Lock()
	defer s.mu.Unlock()
	switch result {
	case "published":
		s.status.Published++
	case "failed":
		s.status.Failed++
	case "retried":
		s.status.Retried++
	case "skipped":
		s.status.Skipped++
	}
}
