// Package policy decides how long a storefront resource may be cached and
// derives deterministic cache keys from request parameters.
package policy

import (
	"strings"
	"time"
)

// Named TTLs used by storefront callers.
const (
	DefaultTTL = time.Hour
	ShortTTL   = 5 * time.Minute
	MediumTTL  = 30 * time.Minute
	LongTTL    = 24 * time.Hour
)

// Tier assigns one TTL to every resource path containing any of its patterns.
type Tier struct {
	Name     string
	TTL      time.Duration
	Patterns []string
}

// Policy maps resource paths to cache durations. A Policy is immutable after
// construction and safe for concurrent use.
type Policy struct {
	noCache    []string
	tiers      []Tier
	defaultTTL time.Duration
}

// New builds a policy. Patterns are matched by substring, no-cache patterns
// first, then tiers in order.
func New(noCache []string, tiers []Tier, defaultTTL time.Duration) *Policy {
	p := &Policy{
		noCache:    append([]string(nil), noCache...),
		tiers:      make([]Tier, len(tiers)),
		defaultTTL: defaultTTL,
	}
	for i, tier := range tiers {
		tier.Patterns = append([]string(nil), tier.Patterns...)
		p.tiers[i] = tier
	}
	return p
}

// DefaultNoCache lists user-specific or real-time resources.
func DefaultNoCache() []string {
	return []string{"cart", "user/profile", "orders", "checkout", "payment", "notifications"}
}

// DefaultTiers returns the storefront tiers, longest lived first.
func DefaultTiers() []Tier {
	return []Tier{
		{Name: "long", TTL: time.Hour, Patterns: []string{"categories", "settings", "pages", "countries", "states", "cities"}},
		{Name: "medium", TTL: 10 * time.Minute, Patterns: []string{"products", "banners", "promotions", "featured"}},
		{Name: "short", TTL: 2 * time.Minute, Patterns: []string{"stock", "availability", "search"}},
	}
}

// DefaultFallbackTTL applies to resources matching no tier.
const DefaultFallbackTTL = 5 * time.Minute

// Default returns the built-in storefront policy.
func Default() *Policy {
	return New(DefaultNoCache(), DefaultTiers(), DefaultFallbackTTL)
}

// DurationFor returns how long resourcePath may be cached. Zero means the
// resource must not be cached.
func (p *Policy) DurationFor(resourcePath string) time.Duration {
	ttl, _ := p.Match(resourcePath)
	return ttl
}

// Match returns the duration for resourcePath and the name of the rule that
// decided it: "no-cache", a tier name, or "default".
func (p *Policy) Match(resourcePath string) (time.Duration, string) {
	for _, pattern := range p.noCache {
		if strings.Contains(resourcePath, pattern) {
			return 0, "no-cache"
		}
	}
	for _, tier := range p.tiers {
		for _, pattern := range tier.Patterns {
			if strings.Contains(resourcePath, pattern) {
				return tier.TTL, tier.Name
			}
		}
	}
	return p.defaultTTL, "default"
}

// Cacheable reports whether resourcePath may be cached at all.
func (p *Policy) Cacheable(resourcePath string) bool {
	return p.DurationFor(resourcePath) > 0
}

// Tiers returns a copy of the configured tiers.
func (p *Policy) Tiers() []Tier {
	out := make([]Tier, len(p.tiers))
	copy(out, p.tiers)
	return out
}

// NoCache returns a copy of the no-cache patterns.
func (p *Policy) NoCache() []string {
	return append([]string(nil), p.noCache...)
}

// DefaultDuration returns the fallback TTL.
func (p *Policy) DefaultDuration() time.Duration {
	return p.defaultTTL
}
