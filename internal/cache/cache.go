// Package cache is a thin JSON read-through layer over redis. A nil client turns every
// call into a miss so services keep working without redis.
package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"printfleet-system/internal/logging"
)

const (
	TTLShort  = 5 * time.Minute
	TTLMedium = 30 * time.Minute
	TTLLong   = 2 * time.Hour
)

type Cache struct {
	redis *redis.Client
	log   *zap.Logger
}

func New(redisClient *redis.Client, logger *zap.Logger) *Cache {
	return &Cache{redis: redisClient, log: logging.OrNop(logger)}
}

// GetJSON reports whether key was present and decoded into dest.
func (c *Cache) GetJSON(ctx context.Context, key string, dest interface{}) bool {
	if c == nil || c.redis == nil {
		return false
	}

	val, err := c.redis.Get(ctx, key).Result()
	if err != nil {
		if err != redis.Nil {
			c.log.Warn("Redis error on GET, falling back to DB", zap.String("key", key), zap.Error(err))
		}
		return false
	}

	if err := json.Unmarshal([]byte(val), dest); err != nil {
		c.log.Warn("Dropping undecodable cache entry", zap.String("key", key), zap.Error(err))
		_ = c.redis.Del(ctx, key)
		return false
	}
	return true
}

func (c *Cache) SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) {
	if c == nil || c.redis == nil {
		return
	}

	data, err := json.Marshal(value)
	if err != nil {
		c.log.Warn("Failed to encode cache entry", zap.String("key", key), zap.Error(err))
		return
	}
	if err := c.redis.Set(ctx, key, data, ttl).Err(); err != nil {
		c.log.Warn("Failed to set cache", zap.String("key", key), zap.Error(err))
	}
}

func (c *Cache) Invalidate(ctx context.Context, keys ...string) {
	if c == nil || c.redis == nil || len(keys) == 0 {
		return
	}
	if err := c.redis.Del(ctx, keys...).Err(); err != nil {
		c.log.Warn("Failed to invalidate cache", zap.Strings("keys", keys), zap.Error(err))
	}
}

// InvalidatePrefix removes every key starting with prefix.
func (c *Cache) InvalidatePrefix(ctx context.Context, prefix string) {
	if c == nil || c.redis == nil {
		return
	}

	iter := c.redis.Scan(ctx, 0, prefix+"*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		c.log.Warn("Failed to scan cache keys", zap.String("prefix", prefix), zap.Error(err))
		return
	}
	c.Invalidate(ctx, keys...)
}
