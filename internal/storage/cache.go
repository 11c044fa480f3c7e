package storage

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// CacheGet reads a cached value. A missing key, a nil client and a Redis
// error all come back as a miss; the cache is never authoritative.
func (s *Service) CacheGet(ctx context.Context, key string) (string, bool, error) {
	if s.Redis == nil {
		return "", false, nil
	}
	value, err := s.Redis.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		s.Log.WithError(err).WithField("key", key).Warn("cache read failed")
		return "", false, err
	}
	return value, true, nil
}

// CachePut stores a value with a TTL.
func (s *Service) CachePut(ctx context.Context, key, value string, ttl time.Duration) error {
	if s.Redis == nil {
		return nil
	}
	if err := s.Redis.Set(ctx, key, value, ttl).Err(); err != nil {
		s.Log.WithError(err).WithField("key", key).Warn("cache write failed")
		return err
	}
	return nil
}

// CacheDelete drops keys, used to invalidate on the underlying write.
func (s *Service) CacheDelete(ctx context.Context, keys ...string) error {
	if s.Redis == nil || len(keys) == 0 {
		return nil
	}
	if err := s.Redis.Del(ctx, keys...).Err(); err != nil {
		s.Log.WithError(err).Warn("cache invalidation failed")
		return err
	}
	return nil
}
