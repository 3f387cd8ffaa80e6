package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/pos-backend/pkg/logger"
	"github.com/angelmondragon/pos-backend/pkg/redis"
)

// Cache is a read-through store for derived read models. Writers never rely on
// it; a miss or failure always falls back to the database.
type Cache interface {
	Get(ctx context.Context, key string, dest any) (bool, error)
	Set(ctx context.Context, key string, value any) error
	InvalidatePrefix(ctx context.Context, prefix string) error
}

type store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	DeleteByPrefix(ctx context.Context, prefix string) (int, error)
}

// Noop satisfies Cache without storing anything.
type Noop struct{}

func (Noop) Get(context.Context, string, any) (bool, error) { return false, nil }
func (Noop) Set(context.Context, string, any) error         { return nil }
func (Noop) InvalidatePrefix(context.Context, string) error { return nil }

// RedisCache stores JSON documents under the pos:cache namespace.
type RedisCache struct {
	store  store
	ttl    time.Duration
	logg   *logger.Logger
	prefix string
}

// NewRedis wires a Redis-backed cache.
func NewRedis(client *redis.Client, ttl time.Duration, logg *logger.Logger) (*RedisCache, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client required")
	}
	return newRedisCache(client, client.CacheKey(), ttl, logg), nil
}

func newRedisCache(s store, prefix string, ttl time.Duration, logg *logger.Logger) *RedisCache {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &RedisCache{store: s, ttl: ttl, logg: logg, prefix: prefix}
}

func (c *RedisCache) Get(ctx context.Context, key string, dest any) (bool, error) {
	raw, err := c.store.Get(ctx, c.full(key))
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal([]byte(raw), dest); err != nil {
		return false, fmt.Errorf("decode cache entry %s: %w", key, err)
	}
	return true, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode cache entry %s: %w", key, err)
	}
	return c.store.Set(ctx, c.full(key), string(data), c.ttl)
}

func (c *RedisCache) InvalidatePrefix(ctx context.Context, prefix string) error {
	removed, err := c.store.DeleteByPrefix(ctx, c.full(prefix))
	if err != nil {
		return err
	}
	if c.logg != nil && removed > 0 {
		c.logg.Debug(c.logg.WithFields(ctx, map[string]any{"prefix": prefix, "removed": removed}), "cache invalidated")
	}
	return nil
}

func (c *RedisCache) full(key string) string {
	if c.prefix == "" {
		return key
	}
	return c.prefix + ":" + key
}

// BalancePrefix scopes every cached balance of a business.
func BalancePrefix(businessID uuid.UUID) string {
	return strings.Join([]string{"balance", businessID.String()}, ":") + ":"
}

// BalanceKey identifies one cached product/location balance.
func BalanceKey(businessID, productID, locationID uuid.UUID) string {
	return BalancePrefix(businessID) + productID.String() + ":" + locationID.String()
}
