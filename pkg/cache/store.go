package cache

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrInvalidTTL indicates an entry was written without a positive TTL
	ErrInvalidTTL = errors.New("cache ttl must be positive")

	// ErrInvalidEntry indicates the cache entry is invalid or corrupted
	ErrInvalidEntry = errors.New("invalid cache entry")
)

// Store is the basic key-value contract every backend satisfies.
type Store interface {
	// Has reports whether key currently holds an entry.
	Has(ctx context.Context, key string) (bool, error)

	// Get returns the entry for key. A miss is found == false with a nil error.
	Get(ctx context.Context, key string) (entry Entry, found bool, err error)

	// Put stores the entry for entry.TTL(). Tags on the entry are ignored.
	Put(ctx context.Context, entry Entry) error

	// Forget removes key. Removing a missing key is not an error.
	Forget(ctx context.Context, key string) error

	// Name identifies the backend in logs and metrics.
	Name() string
}

// TTLInspector is implemented by stores that can report remaining TTL.
type TTLInspector interface {
	// RemainingTTL returns known == false when the backend cannot tell
	// (missing key, no expiry set).
	RemainingTTL(ctx context.Context, key string) (remaining time.Duration, known bool, err error)
}

// TaggableStore is implemented by stores that maintain a tag index.
type TaggableStore interface {
	Store

	// PutTagged stores the entry and records it under each of entry.Tags.
	PutTagged(ctx context.Context, entry Entry) error

	// FlushTags removes every entry recorded under any of tags and returns
	// the number of entries removed.
	FlushTags(ctx context.Context, tags ...string) (int, error)
}

// PatternDeleter is implemented by stores that can enumerate keys.
type PatternDeleter interface {
	// DeleteByPattern removes all keys matching the glob and returns how many
	// were removed.
	DeleteByPattern(ctx context.Context, glob string) (int, error)
}

// Capabilities describes which optional interfaces a store implements.
type Capabilities struct {
	Tags     bool
	TTL      bool
	Patterns bool
}

// Probe inspects store once and reports its optional capabilities.
func Probe(store Store) Capabilities {
	_, tags := store.(TaggableStore)
	_, ttl := store.(TTLInspector)
	_, patterns := store.(PatternDeleter)
	return Capabilities{Tags: tags, TTL: ttl, Patterns: patterns}
}
