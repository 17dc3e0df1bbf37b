// Package config loads the storefront API configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Sternrassler/storefront-cache/pkg/cache"
	"github.com/Sternrassler/storefront-cache/pkg/logging"
	"github.com/Sternrassler/storefront-cache/pkg/lock"
	"github.com/Sternrassler/storefront-cache/pkg/swr"
	"github.com/redis/go-redis/v9"
)

// Cache backends.
const (
	BackendRedis        = "redis"
	BackendMemory       = "memory"
	BackendMemoryTagged = "memory-tagged"
)

// ErrInvalidConfig indicates an unusable environment value.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config holds the server configuration.
type Config struct {
	// RedisURL is host:port or a redis:// URL
	RedisURL    string
	RedisPrefix string

	// RedisConnectAttempts bounds the startup connection attempts
	RedisConnectAttempts int

	Port      string
	LogLevel  logging.LogLevel
	LogPretty bool

	// PolicyFile overrides the built-in cache policy when set
	PolicyFile string
	Backend    string

	LockTTL        time.Duration
	OpTimeout      time.Duration
	RefreshTimeout time.Duration
	MaxRefreshes   int
	Coalesce       bool

	// Warmup primes the storefront entries before serving
	Warmup bool

	ShutdownTimeout time.Duration
}

// Load reads the configuration from environment variables.
func Load() (Config, error) {
	cfg := Config{
		RedisURL:    getEnv("REDIS_URL", "localhost:6379"),
		RedisPrefix: getEnv("REDIS_PREFIX", cache.DefaultPrefix),
		Port:        getEnv("PORT", "8080"),
		LogLevel:    logging.LogLevel(getEnv("LOG_LEVEL", string(logging.LevelInfo))),
		PolicyFile:  os.Getenv("CACHE_POLICY_FILE"),
		Backend:     getEnv("CACHE_BACKEND", BackendRedis),
	}

	var err error
	if cfg.LogPretty, err = getBool("LOG_PRETTY", false); err != nil {
		return Config{}, err
	}
	if cfg.Coalesce, err = getBool("SWR_COALESCE_COLD_MISSES", false); err != nil {
		return Config{}, err
	}
	if cfg.Warmup, err = getBool("CACHE_WARMUP", false); err != nil {
		return Config{}, err
	}
	if cfg.LockTTL, err = getDuration("SWR_LOCK_TTL", lock.DefaultTTL); err != nil {
		return Config{}, err
	}
	if cfg.OpTimeout, err = getDuration("SWR_OP_TIMEOUT", swr.DefaultOpTimeout); err != nil {
		return Config{}, err
	}
	if cfg.RefreshTimeout, err = getDuration("SWR_REFRESH_TIMEOUT", swr.DefaultRefreshTimeout); err != nil {
		return Config{}, err
	}
	if cfg.ShutdownTimeout, err = getDuration("SHUTDOWN_TIMEOUT", 10*time.Second); err != nil {
		return Config{}, err
	}
	if cfg.MaxRefreshes, err = getInt("SWR_MAX_REFRESHES", swr.DefaultMaxConcurrentRefreshes); err != nil {
		return Config{}, err
	}
	if cfg.RedisConnectAttempts, err = getInt("REDIS_CONNECT_ATTEMPTS", 5); err != nil {
		return Config{}, err
	}

	switch cfg.Backend {
	case BackendRedis, BackendMemory, BackendMemoryTagged:
	default:
		return Config{}, fmt.Errorf("%w: CACHE_BACKEND=%q", ErrInvalidConfig, cfg.Backend)
	}

	return cfg, nil
}

// Addr returns the HTTP listen address.
func (c Config) Addr() string {
	return ":" + c.Port
}

// RedisOptions builds client options from RedisURL, which may be a plain
// host:port or a redis:// URL.
func (c Config) RedisOptions() (*redis.Options, error) {
	if strings.HasPrefix(c.RedisURL, "redis://") || strings.HasPrefix(c.RedisURL, "rediss://") {
		opts, err := redis.ParseURL(c.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("%w: REDIS_URL: %v", ErrInvalidConfig, err)
		}
		return opts, nil
	}
	return &redis.Options{Addr: c.RedisURL}, nil
}

// SWROptions translates the configuration into engine options.
func (c Config) SWROptions() []swr.Option {
	opts := []swr.Option{
		swr.WithLockTTL(c.LockTTL),
		swr.WithOpTimeout(c.OpTimeout),
		swr.WithRefreshTimeout(c.RefreshTimeout),
		swr.WithMaxConcurrentRefreshes(c.MaxRefreshes),
	}
	if c.Coalesce {
		opts = append(opts, swr.WithColdMissCoalescing())
	}
	return opts
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("%w: %s=%q", ErrInvalidConfig, key, value)
	}
	return d, nil
}

func getBool(key string, defaultValue bool) (bool, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("%w: %s=%q", ErrInvalidConfig, key, value)
	}
	return b, nil
}

func getInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%w: %s=%q", ErrInvalidConfig, key, value)
	}
	return n, nil
}
