// Package logging provides structured logging configuration using zerolog.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// LogLevel represents the logging level.
type LogLevel string

const (
	// LevelDebug logs debug messages and above.
	LevelDebug LogLevel = "debug"

	// LevelInfo logs info messages and above.
	LevelInfo LogLevel = "info"

	// LevelWarn logs warning messages and above.
	LevelWarn LogLevel = "warn"

	// LevelError logs error messages only.
	LevelError LogLevel = "error"
)

// Config holds logger configuration.
type Config struct {
	// Level is the minimum log level to output.
	Level LogLevel

	// Pretty enables human-readable console output (default: false for JSON).
	Pretty bool

	// Output is the writer to output logs to (default: os.Stderr).
	Output io.Writer

	// Service is added to every entry as "service" when set.
	Service string
}

// DefaultConfig returns a default logger configuration.
func DefaultConfig() Config {
	return Config{
		Level:   LevelInfo,
		Pretty:  false,
		Output:  os.Stderr,
		Service: "storefront-api",
	}
}

// Setup configures the global zerolog logger.
func Setup(cfg Config) zerolog.Logger {
	// Set global log level
	level := parseLevel(cfg.Level)
	zerolog.SetGlobalLevel(level)

	// Configure output
	var output io.Writer = cfg.Output
	if output == nil {
		output = os.Stderr
	}
	if cfg.Pretty {
		output = zerolog.ConsoleWriter{Out: output}
	}

	// Create logger with timestamp
	ctx := zerolog.New(output).With().Timestamp()
	if cfg.Service != "" {
		ctx = ctx.Str("service", cfg.Service)
	}
	logger := ctx.Logger()

	// Set as global logger
	log.Logger = logger

	return logger
}

// parseLevel converts LogLevel to zerolog.Level.
func parseLevel(level LogLevel) zerolog.Level {
	switch strings.ToLower(string(level)) {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// NewLogger creates a new logger with the given component name.
func NewLogger(component string) zerolog.Logger {
	return log.With().Str("component", component).Logger()
}

// Log Level Guidelines:
//
// Debug: Detailed information for debugging
//   - Cache operations (hit/miss, key, TTL, remaining TTL)
//   - Lock acquisition and contention
//   - Skipped refreshes (lock held, entry already fresh)
//
// Info: Normal operation events
//   - Cache invalidations (tags, keys, patterns)
//   - Served requests
//   - Server startup/shutdown
//
// Warn: Warning conditions that don't prevent operation
//   - Cache backend errors (fail-open to the producer)
//   - Tag invalidation on a store without tags
//   - Locks that could not be released
//   - Refresh pool exhausted
//
// Error: Error conditions requiring attention
//   - Failed background refreshes (producer error or panic)
//   - Failed invalidations
//   - Configuration errors
//
// Context Fields:
//   - component: Emitting package (swr, invalidation, lock, storefront)
//   - key: Logical cache key
//   - tags: Cache tags
//   - ttl: Cache entry TTL
//   - remaining_ttl: Remaining TTL of an aging entry
//   - store: Cache backend name (redis, memory, memory-tagged)
//   - lock_key: Distributed lock key
//   - pattern: Key glob for pattern invalidation
//   - count: Number of entries affected
//   - path, status, duration: HTTP request fields
