package redisad

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"review_lens/internal/adapters/observability"
	"review_lens/internal/domain"
)

const cacheName = "redis"

// Cache stores JSON-encoded analyses and review pages under caller-built keys.
type Cache struct{ rdb *redis.Client }

var _ domain.Cache = (*Cache)(nil)

func New(addr, pass string, db int) *Cache {
	return &Cache{rdb: redis.NewClient(&redis.Options{Addr: addr, Password: pass, DB: db})}
}

func (c *Cache) Ping(ctx context.Context) error { return c.rdb.Ping(ctx).Err() }

func (c *Cache) Close() error { return c.rdb.Close() }

// Get decodes the value at key into dst. A missing key is (false, nil).
func (c *Cache) Get(ctx context.Context, key string, dst any) (bool, error) {
	raw, err := c.rdb.Get(ctx, key).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		observability.ObserveCache(cacheName, "miss")
		return false, nil
	case err != nil:
		observability.ObserveCache(cacheName, "error")
		return false, fmt.Errorf("redis get %s: %w", key, err)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		observability.ObserveCache(cacheName, "corrupt")
		return false, fmt.Errorf("decode cached %s: %w", key, err)
	}
	observability.ObserveCache(cacheName, "hit")
	return true, nil
}

// Set stores v as JSON; ttlSec <= 0 keeps the key until it is deleted.
func (c *Cache) Set(ctx context.Context, key string, v any, ttlSec int) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	ttl := time.Duration(max(ttlSec, 0)) * time.Second
	if err := c.rdb.Set(ctx, key, b, ttl).Err(); err != nil {
		observability.ObserveCache(cacheName, "error")
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	observability.ObserveCache(cacheName, "set")
	return nil
}

// Del removes every key in one round trip; absent keys are ignored.
func (c *Cache) Del(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
		observability.ObserveCache(cacheName, "error")
		return fmt.Errorf("redis del: %w", err)
	}
	observability.ObserveCache(cacheName, "del")
	return nil
}
