package cache

import (
	"encoding/json"
	"fmt"
	"time"
)

// Entry represents a cached value together with its storage metadata.
type Entry struct {
	// Key is the logical cache key (without any backend prefix)
	Key string `json:"key"`

	// Value is the JSON-encoded producer result
	Value json.RawMessage `json:"value"`

	// TTLSeconds is the lifetime the entry was stored with
	TTLSeconds int `json:"ttl_seconds"`

	// StoredAt is when the value was produced and written
	StoredAt time.Time `json:"stored_at"`

	// Tags group the entry for bulk invalidation
	Tags []string `json:"tags,omitempty"`
}

// NewEntry encodes value and builds an entry stored now.
// ttl is truncated to whole seconds and must be at least one second.
func NewEntry(key string, value any, ttl time.Duration, tags ...string) (Entry, error) {
	seconds := int(ttl / time.Second)
	if seconds <= 0 {
		return Entry{}, fmt.Errorf("%w: %v", ErrInvalidTTL, ttl)
	}

	data, err := json.Marshal(value)
	if err != nil {
		return Entry{}, fmt.Errorf("encode value for %q: %w", key, err)
	}

	return Entry{
		Key:        key,
		Value:      data,
		TTLSeconds: seconds,
		StoredAt:   time.Now(),
		Tags:       tags,
	}, nil
}

// TTL returns the lifetime the entry was stored with.
func (e Entry) TTL() time.Duration {
	return time.Duration(e.TTLSeconds) * time.Second
}

// ExpiresAt returns when the entry expires according to its own metadata.
func (e Entry) ExpiresAt() time.Time {
	return e.StoredAt.Add(e.TTL())
}

// Validate checks the invariants every stored entry must satisfy.
func (e Entry) Validate() error {
	if e.Key == "" {
		return fmt.Errorf("%w: empty key", ErrInvalidEntry)
	}
	if e.TTLSeconds <= 0 {
		return fmt.Errorf("%w: %ds", ErrInvalidTTL, e.TTLSeconds)
	}
	if len(e.Value) == 0 {
		return fmt.Errorf("%w: empty value for %q", ErrInvalidEntry, e.Key)
	}
	return nil
}

// Decode unmarshals the cached value into v.
func (e Entry) Decode(v any) error {
	if err := json.Unmarshal(e.Value, v); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidEntry, err)
	}
	return nil
}

func encodeEntry(e Entry) ([]byte, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("marshal cache entry: %w", err)
	}
	return data, nil
}

func decodeEntry(data []byte) (Entry, error) {
	var e Entry
	if err := json.Unmarshal(data, &e); err != nil {
		return Entry{}, fmt.Errorf("%w: %v", ErrInvalidEntry, err)
	}
	return e, nil
}
