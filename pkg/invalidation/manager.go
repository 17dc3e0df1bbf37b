// Package invalidation removes cache entries on demand, by tag, by exact key
// or by key pattern.
//
// Tag invalidation degrades gracefully: on a store without a tag index it
// logs a warning and leaves every entry in place until it expires.
package invalidation

import (
	"context"
	"errors"
	"fmt"

	"github.com/Sternrassler/storefront-cache/pkg/cache"
	"github.com/rs/zerolog"
)

// ErrPatternUnsupported is returned when the store cannot enumerate keys.
var ErrPatternUnsupported = errors.New("store does not support pattern deletion")

// Manager invalidates entries in one cache store.
type Manager struct {
	store    cache.Store
	tagged   cache.TaggableStore
	patterns cache.PatternDeleter
	logger   zerolog.Logger
}

// NewManager creates a manager. Store capabilities are probed once here.
func NewManager(store cache.Store, logger zerolog.Logger) *Manager {
	if store == nil {
		panic("cache store cannot be nil")
	}

	m := &Manager{store: store, logger: logger}
	caps := cache.Probe(store)
	if caps.Tags {
		m.tagged = store.(cache.TaggableStore)
	}
	if caps.Patterns {
		m.patterns = store.(cache.PatternDeleter)
	}
	return m
}

// SupportsTags reports whether tag invalidation has any effect.
func (m *Manager) SupportsTags() bool {
	return m.tagged != nil
}

// InvalidateByTags removes every entry recorded under any of tags and
// returns how many were removed. Without tag support it is a logged no-op.
func (m *Manager) InvalidateByTags(ctx context.Context, tags ...string) (int, error) {
	if len(tags) == 0 {
		return 0, nil
	}
	if m.tagged == nil {
		m.logger.Warn().
			Strs("tags", tags).
			Str("store", m.store.Name()).
			Msg("Store does not support tags, entries stay until they expire")
		return 0, nil
	}

	n, err := m.tagged.FlushTags(ctx, tags...)
	if err != nil {
		m.logger.Error().Err(err).Strs("tags", tags).Msg("Tag invalidation failed")
		return 0, fmt.Errorf("invalidate tags %v: %w", tags, err)
	}

	m.logger.Info().Strs("tags", tags).Int("count", n).Msg("Cache invalidated by tags")
	return n, nil
}

// InvalidateByKey removes a single entry.
func (m *Manager) InvalidateByKey(ctx context.Context, key string) error {
	if err := m.store.Forget(ctx, key); err != nil {
		m.logger.Error().Err(err).Str("key", key).Msg("Key invalidation failed")
		return fmt.Errorf("invalidate key %q: %w", key, err)
	}

	m.logger.Info().Str("key", key).Msg("Cache invalidated by key")
	return nil
}

// InvalidateByPattern removes every entry whose key matches the glob.
func (m *Manager) InvalidateByPattern(ctx context.Context, pattern string) (int, error) {
	if m.patterns == nil {
		return 0, fmt.Errorf("%w: %s", ErrPatternUnsupported, m.store.Name())
	}

	n, err := m.patterns.DeleteByPattern(ctx, pattern)
	if err != nil {
		m.logger.Error().Err(err).Str("pattern", pattern).Msg("Pattern invalidation failed")
		return 0, fmt.Errorf("invalidate pattern %q: %w", pattern, err)
	}

	m.logger.Info().Str("pattern", pattern).Int("count", n).Msg("Cache invalidated by pattern")
	return n, nil
}
