package cache

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "aqi_dataset:"

// redisClient is the subset of *redis.Client the store needs
type redisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// RedisStore keeps raw source bytes in Redis so replicas can share a fetch
type RedisStore struct {
	redis redisClient
	ttl   time.Duration
}

// NewRedisStore creates a store. A zero ttl keeps entries until deleted.
func NewRedisStore(client redisClient, ttl time.Duration) *RedisStore {
	return &RedisStore{redis: client, ttl: ttl}
}

// Key returns the Redis key used for a source locator
func Key(source string) string {
	sum := sha1.Sum([]byte(source))
	return keyPrefix + hex.EncodeToString(sum[:])
}

// Get returns the stored bytes for source, with ok=false when absent
func (s *RedisStore) Get(ctx context.Context, source string) ([]byte, bool, error) {
	data, err := s.redis.Get(ctx, Key(source)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get dataset from Redis: %w", err)
	}
	return data, true, nil
}

// Set stores the raw bytes for source
func (s *RedisStore) Set(ctx context.Context, source string, data []byte) error {
	if err := s.redis.Set(ctx, Key(source), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set dataset in Redis: %w", err)
	}
	return nil
}

// Delete removes the stored bytes for source
func (s *RedisStore) Delete(ctx context.Context, source string) error {
	if err := s.redis.Del(ctx, Key(source)).Err(); err != nil {
		return fmt.Errorf("failed to delete dataset from Redis: %w", err)
	}
	return nil
}
