package throttle

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore counts login failures in Redis so the throttle survives restarts
// and is shared across replicas. Keys expire with the window; expiry doubles
// as the lock duration.
type RedisStore struct {
	client *redis.Client
	window time.Duration
}

func NewRedis(client *redis.Client, window time.Duration) *RedisStore {
	if window <= 0 {
		window = DefaultWindow
	}
	return &RedisStore{client: client, window: window}
}

func (s *RedisStore) RecordFailure(ctx context.Context, key string) (int, error) {
	pipe := s.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.ExpireNX(ctx, key, s.window)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("record login failure: %w", err)
	}
	return int(incr.Val()), nil
}

func (s *RedisStore) Failures(ctx context.Context, key string) (int, error) {
	count, err := s.client.Get(ctx, key).Int()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read login failures: %w", err)
	}
	return count, nil
}

func (s *RedisStore) Clear(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("clear login failures: %w", err)
	}
	return nil
}
