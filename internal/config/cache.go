package config

import (
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// CacheConfig defines settings for the response cache middleware.
// When Enabled is false or no Redis client is configured, caching will be disabled.
// Methods lists the HTTP methods to cache (e.g. GET, HEAD).  TTL defines the
// lifetime of cache entries.  KeyStrategy determines which parts of the request
// contribute to the cache key.  Prefix and MaxBodyBytes allow control over
// namespacing and the maximum size of responses to cache.
type CacheConfig struct {
	Enabled      bool          `envconfig:"CACHE_ENABLED" default:"true"`
	Methods      []string      `envconfig:"CACHE_METHODS" default:"GET"`
	TTL          time.Duration `envconfig:"CACHE_TTL" default:"30s"`
	KeyStrategy  string        `envconfig:"CACHE_KEY_STRATEGY" default:"route_query"`
	Prefix       string        `envconfig:"CACHE_PREFIX" default:"cache"`
	MaxBodyBytes int           `envconfig:"CACHE_MAX_BODY_BYTES" default:"1048576"`
}

// LoadCacheConfig reads CACHE_* variables.  Defaults are used when they
// are unset or unparsable.
func LoadCacheConfig() CacheConfig {
	var c CacheConfig
	if err := envconfig.Process("", &c); err != nil {
		return CacheConfig{Enabled: false, Methods: []string{"GET"}, TTL: 30 * time.Second, KeyStrategy: "route_query", Prefix: "cache", MaxBodyBytes: 1 << 20}
	}
	return c
}

// Caches reports whether responses to method are cacheable.
func (c CacheConfig) Caches(method string) bool {
	for _, m := range c.Methods {
		if strings.EqualFold(strings.TrimSpace(m), method) {
			return true
		}
	}
	return false
}
