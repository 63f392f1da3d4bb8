package config

import (
	"context"
	"fmt"
	"strings"
)

// Well-known keys.
const (
	// KeyAPIBaseURL is the base URL of the project-scoped experiments API.
	KeyAPIBaseURL = "api_base_url"
	// KeyIdentityBaseURL is the base URL of the tenant-management API.
	KeyIdentityBaseURL = "identity_base_url"
)

// Build-time values, set with
//
//	go build -ldflags "-X github.com/jonwraymond/abclient/config.BuildAPIBaseURL=https://..."
var (
	BuildAPIBaseURL      string
	BuildIdentityBaseURL string
)

// Development fallbacks used when nothing else provides a value.
var fallbacks = map[string]string{
	KeyAPIBaseURL:      "http://localhost:8080",
	KeyIdentityBaseURL: "http://localhost:8080",
}

// BuildSource returns the source for build-time values. It reads the
// package variables on every lookup.
func BuildSource() Source {
	return buildSource{}
}

type buildSource struct{}

func (buildSource) Name() string { return "build" }

func (buildSource) Lookup(_ context.Context, key string) (string, bool, error) {
	var v string
	switch key {
	case KeyAPIBaseURL:
		v = BuildAPIBaseURL
	case KeyIdentityBaseURL:
		v = BuildIdentityBaseURL
	}
	return v, v != "", nil
}

// FallbackSource returns the hardcoded development defaults.
func FallbackSource() Source {
	return NewMapSource("fallback", fallbacks)
}

// Chain resolves keys against sources in priority order.
type Chain struct {
	sources []Source
}

// NewChain creates a chain; earlier sources win. Nil sources are skipped.
func NewChain(sources ...Source) *Chain {
	c := &Chain{}
	for _, s := range sources {
		if s != nil {
			c.sources = append(c.sources, s)
		}
	}
	return c
}

// DefaultChain is runtime sources, then build-time values, then fallbacks.
func DefaultChain(runtime ...Source) *Chain {
	sources := append([]Source{}, runtime...)
	sources = append(sources, BuildSource(), FallbackSource())
	return NewChain(sources...)
}

// Resolve returns the first value for key, with ${VAR} references expanded.
func (c *Chain) Resolve(ctx context.Context, key string) (string, error) {
	v, _, err := c.ResolveWithSource(ctx, key)
	return v, err
}

// ResolveWithSource is Resolve that also reports which source answered.
func (c *Chain) ResolveWithSource(ctx context.Context, key string) (string, string, error) {
	for _, s := range c.sources {
		v, ok, err := s.Lookup(ctx, key)
		if err != nil {
			return "", s.Name(), fmt.Errorf("resolve %q from %s: %w", key, s.Name(), err)
		}
		if !ok {
			continue
		}
		expanded, err := ExpandEnvStrict(v)
		if err != nil {
			return "", s.Name(), fmt.Errorf("resolve %q from %s: %w", key, s.Name(), err)
		}
		return expanded, s.Name(), nil
	}
	return "", "", fmt.Errorf("%w: %q", ErrNotFound, key)
}

// Sources returns the names of the configured sources in priority order.
func (c *Chain) Sources() []string {
	names := make([]string, len(c.sources))
	for i, s := range c.sources {
		names[i] = s.Name()
	}
	return names
}

// EnvName builds the environment variable name for key.
func EnvName(prefix, key string) string {
	name := strings.ToUpper(key)
	if prefix == "" {
		return name
	}
	return strings.ToUpper(prefix) + "_" + name
}
