package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Sternrassler/storefront-cache/internal/config"
	"github.com/Sternrassler/storefront-cache/internal/storefront"
	"github.com/Sternrassler/storefront-cache/pkg/cache"
	"github.com/Sternrassler/storefront-cache/pkg/invalidation"
	"github.com/Sternrassler/storefront-cache/pkg/lock"
	"github.com/Sternrassler/storefront-cache/pkg/logging"
	"github.com/Sternrassler/storefront-cache/pkg/policy"
	"github.com/Sternrassler/storefront-cache/pkg/swr"
	"github.com/codeGROOVE-dev/retry"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	redisRetryDelay    = 200 * time.Millisecond
	redisMaxRetryDelay = 5 * time.Second
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration: %v\n", err)
		os.Exit(1)
	}

	logger := logging.Setup(logging.Config{
		Level:   cfg.LogLevel,
		Pretty:  cfg.LogPretty,
		Output:  os.Stderr,
		Service: "storefront-api",
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error().Err(err).Msg("Storefront API stopped")
		stop()
		os.Exit(1)
	}
	logger.Info().Msg("Storefront API stopped")
}

// app is the wired server and what must be closed after it stops.
type app struct {
	server  *storefront.Server
	service *storefront.Service
	engine  *swr.Engine
	closers []func() error
}

func (a *app) close() {
	for _, c := range a.closers {
		_ = c()
	}
}

// shutdown waits up to timeout for background refreshes, then closes the
// backend. Connections stay open while refreshes still use them.
func (a *app) shutdown(timeout time.Duration, logger zerolog.Logger) {
	if !drain(a.engine, timeout) {
		logger.Warn().Msg("Background refreshes still running at shutdown, leaving backend open")
		return
	}
	a.close()
}

// drain reports whether w finished waiting within timeout.
func drain(w interface{ Wait() }, timeout time.Duration) bool {
	done := make(chan struct{})
	go func() {
		w.Wait()
		close(done)
	}()
	select {
	case <-done:
		return true
	case <-time.After(timeout):
		return false
	}
}

// run serves until ctx is cancelled, then shuts the app down.
func run(ctx context.Context, cfg config.Config, logger zerolog.Logger) error {
	a, err := build(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.shutdown(cfg.ShutdownTimeout, logger)

	if cfg.Warmup {
		if report := a.service.Warmup(ctx); report.Failed > 0 {
			logger.Warn().Err(report.Err()).Msg("Cache warmup incomplete, serving anyway")
		}
	}

	if err := a.server.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// build wires store, locker, engine and HTTP server from cfg.
func build(ctx context.Context, cfg config.Config, logger zerolog.Logger) (*app, error) {
	p, err := loadPolicy(cfg.PolicyFile)
	if err != nil {
		return nil, err
	}

	store, locker, closers, err := newBackend(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	opts := append([]swr.Option{swr.WithLogger(logger.With().Str("component", "swr").Logger())}, cfg.SWROptions()...)
	engine := swr.New(store, locker, opts...)
	caps := engine.Capabilities()
	logger.Info().
		Str("backend", cfg.Backend).
		Str("store", store.Name()).
		Bool("tags", caps.Tags).
		Bool("ttl", caps.TTL).
		Bool("patterns", caps.Patterns).
		Msg("Cache ready")

	invalidator := invalidation.NewManager(store, logger.With().Str("component", "invalidation").Logger())
	svc := storefront.NewService(engine, invalidator, p, storefront.SampleCatalog(), logger)

	server := storefront.NewServer(cfg.Addr(), svc, p, logger)
	server.SetShutdownTimeout(cfg.ShutdownTimeout)

	return &app{server: server, service: svc, engine: engine, closers: closers}, nil
}

// newBackend selects the cache store and lock backend.
func newBackend(ctx context.Context, cfg config.Config, logger zerolog.Logger) (cache.Store, lock.Locker, []func() error, error) {
	switch cfg.Backend {
	case config.BackendMemory:
		return cache.NewMemoryStore(), lock.NewMemoryLocker(nil), nil, nil
	case config.BackendMemoryTagged:
		return cache.NewTaggedMemoryStore(), lock.NewMemoryLocker(nil), nil, nil
	}

	opts, err := cfg.RedisOptions()
	if err != nil {
		return nil, nil, nil, err
	}
	client := redis.NewClient(opts)

	if err := connectRedis(ctx, client, cfg.RedisConnectAttempts, logger); err != nil {
		_ = client.Close()
		return nil, nil, nil, fmt.Errorf("connect to redis at %s: %w", opts.Addr, err)
	}
	logger.Info().Str("addr", opts.Addr).Msg("Connected to Redis")

	store := cache.NewRedisStore(client, cache.WithPrefix(cfg.RedisPrefix))
	locker := lock.NewRedisLocker(client, logger.With().Str("component", "lock").Logger())
	return store, locker, []func() error{client.Close}, nil
}

// connectRedis pings Redis with exponential backoff. Redis often starts
// alongside the API and may not accept connections yet.
func connectRedis(ctx context.Context, client *redis.Client, attempts int, logger zerolog.Logger) error {
	if attempts < 1 {
		attempts = 1
	}
	return retry.Do(
		func() error {
			pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
			defer cancel()
			return client.Ping(pingCtx).Err()
		},
		retry.Context(ctx),
		retry.Attempts(uint(attempts)),
		retry.DelayType(retry.BackOffDelay),
		retry.Delay(redisRetryDelay),
		retry.MaxDelay(redisMaxRetryDelay),
		retry.OnRetry(func(n uint, err error) {
			logger.Warn().Err(err).Uint("attempt", n+1).Int("max_attempts", attempts).Msg("Redis not reachable yet")
		}),
		retry.LastErrorOnly(true),
	)
}

func loadPolicy(path string) (*policy.Policy, error) {
	if path == "" {
		return policy.Default(), nil
	}
	return policy.LoadFile(path)
}
