package config

// Redis backs distributed rate limiting, the HTTP response cache and the
// OTP store.  If it is unreachable at startup, callers degrade gracefully:
// caching and rate limiting are disabled and OTPs are kept in memory.

import (
	"context"
	"crypto/tls"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/redis/go-redis/v9"
)

// RedisConfig holds the Redis connection settings.  Host and Port take
// precedence over Addr when both are set.
type RedisConfig struct {
	Host     string `envconfig:"REDIS_HOST"`
	Port     string `envconfig:"REDIS_PORT"`
	Addr     string `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	Password string `envconfig:"REDIS_PASSWORD"`
	DB       int    `envconfig:"REDIS_DB" default:"0"`
	TLS      bool   `envconfig:"REDIS_TLS" default:"false"`
}

// Address returns the host:port to dial.
func (c RedisConfig) Address() string {
	if c.Host != "" && c.Port != "" {
		return c.Host + ":" + c.Port
	}
	return c.Addr
}

// NewRedisClient instantiates a Redis client from REDIS_* variables and
// pings it.  The returned client is nil if a connection cannot be
// established.
func NewRedisClient() *redis.Client {
	var c RedisConfig
	if err := envconfig.Process("", &c); err != nil {
		return nil
	}
	var tlsConf *tls.Config
	if c.TLS {
		tlsConf = &tls.Config{InsecureSkipVerify: true}
	}
	client := redis.NewClient(&redis.Options{
		Addr:      c.Address(),
		Password:  c.Password,
		DB:        c.DB,
		TLSConfig: tlsConf,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil
	}
	return client
}
