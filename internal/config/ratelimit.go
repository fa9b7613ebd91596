package config

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

// RateLimitConfig configures the token bucket rate limiter.  Prefix
// selects the variable namespace so that several limiters (door scanning,
// OTP requests) can be tuned independently, e.g. RATE_LIMIT_CAPACITY and
// OTP_RATE_LIMIT_CAPACITY.
type RateLimitConfig struct {
	Enabled        bool          `envconfig:"ENABLED" default:"true"`
	Capacity       int           `envconfig:"CAPACITY" default:"60"`
	RefillTokens   int           `envconfig:"REFILL_TOKENS" default:"1"`
	RefillInterval time.Duration `envconfig:"REFILL_INTERVAL" default:"1s"`
	TTL            time.Duration `envconfig:"TTL" default:"10m"`
	KeyStrategy    string        `envconfig:"KEY_STRATEGY" default:"ip_user_route"`
	Prefix         string        `envconfig:"PREFIX" default:"rl"`
	Debug          bool          `envconfig:"DEBUG" default:"false"`
}

// LoadRateLimitConfig reads <envPrefix>_* variables, e.g. "RATE_LIMIT"
// reads RATE_LIMIT_CAPACITY.  Out of range values are clamped.
func LoadRateLimitConfig(envPrefix string) RateLimitConfig {
	var c RateLimitConfig
	if err := envconfig.Process(envPrefix, &c); err != nil {
		c = RateLimitConfig{Enabled: true, Capacity: 60, RefillTokens: 1, RefillInterval: time.Second, TTL: 10 * time.Minute, KeyStrategy: "ip_user_route", Prefix: "rl"}
	}
	return c.normalize()
}

func (c RateLimitConfig) normalize() RateLimitConfig {
	if c.Capacity < 1 {
		c.Capacity = 1
	}
	if c.RefillTokens < 1 {
		c.RefillTokens = 1
	}
	if c.RefillInterval <= 0 {
		c.RefillInterval = time.Second
	}
	if minTTL := 5 * c.RefillInterval; c.TTL < minTTL {
		c.TTL = minTTL
	}
	return c
}
