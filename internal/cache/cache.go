package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

// Connect opens and verifies a Redis client.
func Connect(ctx context.Context, addr string) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{Addr: addr})

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return rdb, nil
}

// Cache is a small JSON read cache for listing responses.
type Cache struct {
	r   *redis.Client
	ttl time.Duration
}

// New wraps a Redis client with a fixed TTL.
func New(r *redis.Client, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &Cache{r: r, ttl: ttl}
}

// Get loads a cached value into dst, reporting whether the key was present.
func (c *Cache) Get(ctx context.Context, key string, dst any) (bool, error) {
	b, err := c.r.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, json.Unmarshal(b, dst)
}

// Set stores a value under key for the configured TTL.
func (c *Cache) Set(ctx context.Context, key string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.r.Set(ctx, key, b, c.ttl).Err()
}
