package summary

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/curalink/curalink/internal/cache"
	"github.com/redis/go-redis/v9"
)

// Store persists summaries by content key
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
}

// MemoryStore keeps summaries in a bounded process-local TTL cache
type MemoryStore struct {
	cache *cache.TTLCache[string]
}

func NewMemoryStore(c *cache.TTLCache[string]) *MemoryStore {
	return &MemoryStore{cache: c}
}

func (s *MemoryStore) Get(ctx context.Context, key string) (string, bool, error) {
	v, ok := s.cache.Get(key)
	return v, ok, nil
}

func (s *MemoryStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	s.cache.SetWithTTL(key, value, ttl)
	return nil
}

const redisKeyPrefix = "summary:"

// RedisStore shares summaries across API instances
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := s.client.Get(ctx, redisKeyPrefix+key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("redis get summary: %w", err)
	}
	return v, true, nil
}

func (s *RedisStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := s.client.Set(ctx, redisKeyPrefix+key, value, ttl).Err(); err != nil {
		return fmt.Errorf("redis set summary: %w", err)
	}
	return nil
}
