// Package app es el composition root: arma todas las dependencias desde la
// config y corre el servidor y el scheduler con apagado graceful.
package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	rdb "github.com/redis/go-redis/v9"

	"github.com/postpilothq/postpilot/internal/authflow"
	"github.com/postpilothq/postpilot/internal/config"
	"github.com/postpilothq/postpilot/internal/credentials"
	"github.com/postpilothq/postpilot/internal/credits"
	"github.com/postpilothq/postpilot/internal/http/controllers"
	"github.com/postpilothq/postpilot/internal/http/middlewares"
	"github.com/postpilothq/postpilot/internal/http/router"
	"github.com/postpilothq/postpilot/internal/http/server"
	"github.com/postpilothq/postpilot/internal/metrics"
	"github.com/postpilothq/postpilot/internal/oauth/exchange"
	"github.com/postpilothq/postpilot/internal/observability/logger"
	"github.com/postpilothq/postpilot/internal/posts"
	"github.com/postpilothq/postpilot/internal/providers"
	"github.com/postpilothq/postpilot/internal/publish"
	"github.com/postpilothq/postpilot/internal/rate"
	"github.com/postpilothq/postpilot/internal/scheduler"
	"github.com/postpilothq/postpilot/internal/security/secretbox"
	migrations "github.com/postpilothq/postpilot/migrations/postgres"
)

// App agrupa los componentes de larga vida del proceso.
type App struct {
	cfg       *config.Config
	server    *server.Server
	scheduler *scheduler.Service
	pool      *pgxpool.Pool
	redis     *rdb.Client
}

// New arma la aplicación completa a partir de la config.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{cfg: cfg}

	// ── Storage ──
	var (
		credStore credentials.Store
		postStore posts.Store
		ready     func() error
	)
	switch cfg.Storage.Driver {
	case "postgres":
		if cfg.Auth.JWTSecret == "" {
			return nil, fmt.Errorf("app: POSTPILOT_JWT_SECRET is required")
		}
		box, err := secretbox.New(cfg.Security.MasterKey)
		if err != nil {
			return nil, fmt.Errorf("app: POSTPILOT_MASTER_KEY: %w", err)
		}
		pool, err := newPool(ctx, cfg)
		if err != nil {
			return nil, err
		}
		a.pool = pool

		n, err := migrations.Apply(ctx, pool)
		if err != nil {
			return nil, fmt.Errorf("app: apply migrations: %w", err)
		}
		if n > 0 {
			logger.L().Info("migrations applied", logger.Count(n))
		}

		credStore = credentials.NewPgStore(pool, box)
		postStore = posts.NewPgStore(pool)
		ready = func() error { return pool.Ping(context.Background()) }

	case "memory":
		// Solo desarrollo: todo se pierde al reiniciar.
		credStore = credentials.NewMemoryStore()
		postStore = posts.NewMemoryStore()

	default:
		return nil, fmt.Errorf("app: unknown storage driver %q", cfg.Storage.Driver)
	}

	// ── OAuth state store ──
	var states authflow.StateStore
	if cfg.Cache.Kind == "redis" {
		a.redis = rdb.NewClient(&rdb.Options{Addr: cfg.Cache.Redis.Addr, DB: cfg.Cache.Redis.DB})
		states = authflow.NewRedisStore(a.redis, cfg.Cache.Redis.Prefix)
	} else {
		states = authflow.NewMemoryStore()
	}

	// ── Dominio ──
	registry := providers.NewRegistry(providerCreds(cfg))
	flow := authflow.NewManager(authflow.ManagerDeps{
		Registry: registry,
		States:   states,
		BaseURL:  cfg.Server.BaseURL,
		StateTTL: cfg.OAuth.StateTTL,
	})
	xchg := exchange.New(registry, cfg.Server.BaseURL)

	resolver := credentials.NewResolver(credStore)
	refresher := credentials.NewRefresher(credStore, xchg, cfg.Credentials.RefreshGrace)
	dispatcher := publish.NewDispatcher(publish.DispatcherDeps{
		Resolver:   resolver,
		Refresher:  refresher,
		Publishers: publish.NewPublishers(),
	})

	var gate credits.Gate = credits.AllowAll{}
	if cfg.Credits.Mode == "fixed" {
		gate = credits.NewFixedAllowance(cfg.Credits.Allowance)
	}

	if cfg.Scheduler.Enabled {
		a.scheduler = scheduler.New(scheduler.Deps{
			Store:        postStore,
			Dispatcher:   dispatcher,
			TickInterval: cfg.Scheduler.TickInterval,
			BatchSize:    cfg.Scheduler.BatchSize,
			Concurrency:  cfg.Scheduler.Concurrency,
			ItemTimeout:  cfg.Scheduler.ItemTimeout,
			MaxAttempts:  cfg.Scheduler.MaxAttempts,
		})
	}

	// ── HTTP ──
	if err := metrics.RegisterPublish(nil); err != nil {
		return nil, fmt.Errorf("app: register metrics: %w", err)
	}

	var rateSet *rate.CategorySet
	if cfg.Rate.Enabled {
		rateSet = rate.NewCategorySet(limitsFromConfig(cfg), func(c rate.Category, l rate.Limit) rate.Limiter {
			if cfg.Rate.Kind == "redis" && a.redis != nil {
				return rate.NewRedisLimiter(a.redis, "rl:"+string(c)+":", l.Max, l.Window)
			}
			return rate.NewMemoryLimiter(l.Max, l.Window)
		})
	}

	ctrls := controllers.New(controllers.Deps{
		Registry:   registry,
		Flow:       flow,
		Exchange:   xchg,
		Creds:      credStore,
		Posts:      postStore,
		Dispatcher: dispatcher,
		Gate:       gate,
		Scheduler:  a.scheduler,
		Ready:      ready,
	})

	handler := router.New(router.Deps{
		Controllers: ctrls,
		Auth: middlewares.AuthConfig{
			Secret: []byte(cfg.Auth.JWTSecret),
			Issuer: cfg.Auth.Issuer,
		},
		Rate: rateSet,
	})
	a.server = server.New(cfg.Server.Addr, handler)

	return a, nil
}

// Run arranca servidor y scheduler y bloquea hasta SIGINT/SIGTERM.
func (a *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if a.scheduler != nil {
		a.scheduler.Start(ctx)
	}

	errCh := make(chan error, 1)
	go func() { errCh <- a.server.Start() }()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return err
		}
	}

	logger.L().Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := a.server.Shutdown(shutdownCtx); err != nil {
		logger.L().Warn("server shutdown", logger.Err(err))
	}
	if a.scheduler != nil {
		a.scheduler.Stop()
	}
	if a.pool != nil {
		a.pool.Close()
	}
	if a.redis != nil {
		_ = a.redis.Close()
	}
	return nil
}

func newPool(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	pcfg, err := pgxpool.ParseConfig(cfg.Storage.DSN)
	if err != nil {
		return nil, fmt.Errorf("app: parse dsn: %w", err)
	}
	if cfg.Storage.Postgres.MaxOpenConns > 0 {
		pcfg.MaxConns = int32(cfg.Storage.Postgres.MaxOpenConns)
	}
	if cfg.Storage.Postgres.ConnMaxLifetime != "" {
		d, err := time.ParseDuration(cfg.Storage.Postgres.ConnMaxLifetime)
		if err == nil {
			pcfg.MaxConnLifetime = d
		}
	}

	pool, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, fmt.Errorf("app: connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("app: ping postgres: %w", err)
	}
	return pool, nil
}

func providerCreds(cfg *config.Config) map[string]providers.Credentials {
	out := make(map[string]providers.Credentials, len(cfg.Providers))
	for name, c := range cfg.Providers {
		out[name] = providers.Credentials{ClientID: c.ClientID, ClientSecret: c.ClientSecret}
	}
	return out
}

func limitsFromConfig(cfg *config.Config) map[rate.Category]rate.Limit {
	rc := cfg.Rate.Categories
	return map[rate.Category]rate.Limit{
		rate.CategoryExpensive: {Max: rc.ExpensiveGeneration.Limit, Window: rc.ExpensiveGeneration.Window},
		rate.CategoryAuth:      {Max: rc.Auth.Limit, Window: rc.Auth.Window},
		rate.CategoryPublic:    {Max: rc.Public.Limit, Window: rc.Public.Window},
		rate.CategoryDefault:   {Max: rc.Default.Limit, Window: rc.Default.Window},
	}
}
