package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ObjectCache is a TTL key-value store for serialized objects. Implementations
// must be safe for concurrent use; a lost write on a racing population is
// acceptable (last writer wins).
type ObjectCache interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// RedisCache implements ObjectCache on a Redis client.
type RedisCache struct {
	client *redis.Client
	prefix string
}

// NewRedisCache constructs a RedisCache. All keys are stored under prefix.
func NewRedisCache(client *redis.Client, prefix string) *RedisCache {
	return &RedisCache{client: client, prefix: prefix}
}

func (c *RedisCache) key(key string) string {
	if c.prefix == "" {
		return key
	}
	return c.prefix + ":" + key
}

// Get fetches a raw value. A missing key is not an error.
func (c *RedisCache) Get(ctx context.Context, key string) (string, bool, error) {
	value, err := c.client.Get(ctx, c.key(key)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("platform/cache: get %s: %w", key, err)
	}
	return value, true, nil
}

// Set stores a raw value with the given TTL.
func (c *RedisCache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := c.client.Set(ctx, c.key(key), value, ttl).Err(); err != nil {
		return fmt.Errorf("platform/cache: set %s: %w", key, err)
	}
	return nil
}

// Delete removes a key. Deleting an absent key is a no-op.
func (c *RedisCache) Delete(ctx context.Context, key string) error {
	if err := c.client.Del(ctx, c.key(key)).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("platform/cache: delete %s: %w", key, err)
	}
	return nil
}

var _ ObjectCache = (*RedisCache)(nil)

// Keyed is a typed view over an ObjectCache: one value type, one key
// namespace, one TTL. Values are stored as JSON.
type Keyed[V any] struct {
	backend   ObjectCache
	namespace string
	ttl       time.Duration
}

// NewKeyed constructs a Keyed cache over backend.
func NewKeyed[V any](backend ObjectCache, namespace string, ttl time.Duration) *Keyed[V] {
	return &Keyed[V]{backend: backend, namespace: namespace, ttl: ttl}
}

func (c *Keyed[V]) key(key string) string {
	return c.namespace + ":" + key
}

// Get returns the cached value for key if present and unexpired. A corrupt
// entry is evicted and reported as a miss.
func (c *Keyed[V]) Get(ctx context.Context, key string) (V, bool, error) {
	var value V
	raw, found, err := c.backend.Get(ctx, c.key(key))
	if err != nil || !found {
		return value, false, err
	}
	if err := json.Unmarshal([]byte(raw), &value); err != nil {
		_ = c.backend.Delete(ctx, c.key(key))
		return value, false, nil
	}
	return value, true, nil
}

// Set stores value under key with the cache's TTL.
func (c *Keyed[V]) Set(ctx context.Context, key string, value V) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("platform/cache: marshal %s: %w", key, err)
	}
	return c.backend.Set(ctx, c.key(key), string(data), c.ttl)
}

// Delete evicts the entry for key.
func (c *Keyed[V]) Delete(ctx context.Context, key string) error {
	return c.backend.Delete(ctx, c.key(key))
}

// TTL reports the configured entry lifetime.
func (c *Keyed[V]) TTL() time.Duration {
	return c.ttl
}
