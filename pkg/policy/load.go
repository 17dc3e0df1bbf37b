package policy

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrInvalidPolicy indicates a malformed policy document.
var ErrInvalidPolicy = errors.New("invalid cache policy")

// fileFormat is the YAML layout of a policy file:
//
//	default_ttl: 5m
//	no_cache: [cart, checkout]
//	tiers:
//	  - name: long
//	    ttl: 1h
//	    patterns: [categories, settings]
type fileFormat struct {
	DefaultTTL string     `yaml:"default_ttl"`
	NoCache    *[]string  `yaml:"no_cache"`
	Tiers      []tierFile `yaml:"tiers"`
}

type tierFile struct {
	Name     string   `yaml:"name"`
	TTL      string   `yaml:"ttl"`
	Patterns []string `yaml:"patterns"`
}

// Load reads a YAML policy. Omitted sections keep the defaults: no_cache
// falls back to DefaultNoCache, tiers to DefaultTiers and default_ttl to
// DefaultFallbackTTL.
func Load(r io.Reader) (*Policy, error) {
	var doc fileFormat
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPolicy, err)
	}

	defaultTTL := DefaultFallbackTTL
	if doc.DefaultTTL != "" {
		d, err := parseTTL(doc.DefaultTTL)
		if err != nil {
			return nil, fmt.Errorf("%w: default_ttl: %v", ErrInvalidPolicy, err)
		}
		defaultTTL = d
	}

	noCache := DefaultNoCache()
	if doc.NoCache != nil {
		noCache = *doc.NoCache
	}

	tiers := DefaultTiers()
	if len(doc.Tiers) > 0 {
		tiers = make([]Tier, 0, len(doc.Tiers))
		for i, tf := range doc.Tiers {
			if tf.Name == "" {
				return nil, fmt.Errorf("%w: tier %d has no name", ErrInvalidPolicy, i)
			}
			if len(tf.Patterns) == 0 {
				return nil, fmt.Errorf("%w: tier %q has no patterns", ErrInvalidPolicy, tf.Name)
			}
			ttl, err := parseTTL(tf.TTL)
			if err != nil {
				return nil, fmt.Errorf("%w: tier %q: %v", ErrInvalidPolicy, tf.Name, err)
			}
			tiers = append(tiers, Tier{Name: tf.Name, TTL: ttl, Patterns: tf.Patterns})
		}
	}

	return New(noCache, tiers, defaultTTL), nil
}

// LoadFile reads a YAML policy from path.
func LoadFile(path string) (*Policy, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open cache policy: %w", err)
	}
	defer f.Close()

	p, err := Load(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return p, nil
}

// parseTTL accepts whole seconds of at least one second.
func parseTTL(s string) (time.Duration, error) {
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d < time.Second {
		return 0, fmt.Errorf("ttl %v below one second", d)
	}
	return d.Truncate(time.Second), nil
}
