package otp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps records in Redis as JSON with a key TTL equal to the
// record's remaining lifetime, so expiry is enforced by Redis itself and
// any instance behind the load balancer sees the same state.
type RedisStore struct {
	rdb    *redis.Client
	prefix string
	now    func() time.Time
}

func NewRedisStore(rdb *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "otp"
	}
	return &RedisStore{rdb: rdb, prefix: prefix, now: time.Now}
}

func (s *RedisStore) key(email string) string { return s.prefix + ":" + email }

func (s *RedisStore) Save(ctx context.Context, email string, rec Record) error {
	ttl := rec.ExpiresAt.Sub(s.now())
	if ttl <= 0 {
		return s.Delete(ctx, email)
	}
	bs, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	if err := s.rdb.Set(ctx, s.key(email), bs, ttl).Err(); err != nil {
		return fmt.Errorf("otp: save: %w", err)
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, email string) (Record, error) {
	bs, err := s.rdb.Get(ctx, s.key(email)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Record{}, ErrNoRecord
	}
	if err != nil {
		return Record{}, fmt.Errorf("otp: get: %w", err)
	}
	var rec Record
	if err := json.Unmarshal(bs, &rec); err != nil {
		return Record{}, fmt.Errorf("otp: decode: %w", err)
	}
	return rec, nil
}

func (s *RedisStore) Delete(ctx context.Context, email string) error {
	if err := s.rdb.Del(ctx, s.key(email)).Err(); err != nil {
		return fmt.Errorf("otp: delete: %w", err)
	}
	return nil
}
