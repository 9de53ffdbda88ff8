package config

import (
	"strings"
	"time"
)

// CacheConfig defines settings for the response cache middleware.
// When Enabled is false or no Redis client is configured, caching will be disabled.
// Methods lists the HTTP methods to cache (e.g. GET, HEAD).  TTL defines the
// lifetime of cache entries.  KeyStrategy determines which parts of the request
// contribute to the cache key.  Prefix and MaxBodyBytes allow control over
// namespacing and the maximum size of responses to cache.  Any successful
// write clears every entry under Prefix, so reads stay consistent.
type CacheConfig struct {
	Enabled      bool          `env:"CACHE_ENABLED" envDefault:"false"`
	MethodList   []string      `env:"CACHE_METHODS" envDefault:"GET" envSeparator:","`
	TTL          time.Duration `env:"CACHE_TTL" envDefault:"30s"`
	KeyStrategy  string        `env:"CACHE_KEY_STRATEGY" envDefault:"route_query"`
	Prefix       string        `env:"CACHE_PREFIX" envDefault:"cache"`
	MaxBodyBytes int           `env:"CACHE_MAX_BODY_BYTES" envDefault:"1048576"`
}

// Methods returns the cacheable methods as an upper-cased set.
func (c CacheConfig) Methods() map[string]bool {
	m := map[string]bool{}
	for _, p := range c.MethodList {
		p = strings.TrimSpace(strings.ToUpper(p))
		if p != "" {
			m[p] = true
		}
	}
	return m
}

// Covers reports whether keys under "<prefix>:" fall inside the cache
// namespace and would be removed by a purge.
func (c CacheConfig) Covers(prefix string) bool {
	return prefix == c.Prefix || strings.HasPrefix(prefix+":", c.Prefix+":")
}
