package cache

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/openagora/agora/internal/chat"
	"github.com/openagora/agora/internal/common/config"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisCache implements Cache on redis lists: LPUSH at the head,
// LTRIM to the capacity. Semantics stay per-process; redis only lets
// the cache survive restarts.
type RedisCache struct {
	logger   *zap.Logger
	client   *redis.Client
	prefix   string
	capacity int
}

var _ Cache = (*RedisCache)(nil)

// NewRedisCache creates a redis-backed recency cache.
func NewRedisCache(logger *zap.Logger, cfg config.CacheRedisConfig, capacity int) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Username: cfg.Username,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	// Test connection
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	prefix := cfg.Prefix
	if prefix == "" {
		prefix = "chatcache"
	}

	return &RedisCache{
		logger:   logger.Named("chat.cache.redis"),
		client:   client,
		prefix:   prefix + ":",
		capacity: capacity,
	}, nil
}

// Close releases the redis client.
func (c *RedisCache) Close() error {
	return c.client.Close()
}

func (c *RedisCache) key(topic string) string {
	return c.prefix + topic
}

// Add implements Cache.Add
func (c *RedisCache) Add(ctx context.Context, key chat.Context, msg chat.Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	k := c.key(key.Topic())
	pipe := c.client.TxPipeline()
	pipe.LPush(ctx, k, data)
	pipe.LTrim(ctx, k, 0, int64(c.capacity-1))
	_, err = pipe.Exec(ctx)
	return err
}

// Recent implements Cache.Recent
func (c *RedisCache) Recent(ctx context.Context, key chat.Context, limit int) ([]chat.Message, error) {
	values, err := c.client.LRange(ctx, c.key(key.Topic()), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, err
	}
	out := make([]chat.Message, 0, len(values))
	for _, v := range values {
		var m chat.Message
		if err := json.Unmarshal([]byte(v), &m); err != nil {
			c.logger.Warn("dropping undecodable cache entry", zap.Error(err))
			continue
		}
		out = append(out, m)
	}
	return out, nil
}

// Backfill implements Cache.Backfill
func (c *RedisCache) Backfill(ctx context.Context, key chat.Context, msgs []chat.Message) error {
	if len(msgs) > c.capacity {
		msgs = msgs[:c.capacity]
	}
	k := c.key(key.Topic())
	pipe := c.client.TxPipeline()
	pipe.Del(ctx, k)
	// msgs arrive newest first; RPUSH keeps that order
	for _, m := range msgs {
		data, err := json.Marshal(m)
		if err != nil {
			return err
		}
		pipe.RPush(ctx, k, data)
	}
	_, err := pipe.Exec(ctx)
	return err
}

// Remove implements Cache.Remove; it scans every cache key.
func (c *RedisCache) Remove(ctx context.Context, messageID uint64) error {
	iter := c.client.Scan(ctx, 0, c.prefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		k := iter.Val()
		values, err := c.client.LRange(ctx, k, 0, -1).Result()
		if err != nil {
			return err
		}
		for _, v := range values {
			var m chat.Message
			if err := json.Unmarshal([]byte(v), &m); err != nil {
				continue
			}
			if m.ID == messageID {
				if err := c.client.LRem(ctx, k, 1, v).Err(); err != nil {
					return err
				}
			}
		}
	}
	return iter.Err()
}

// Clear implements Cache.Clear
func (c *RedisCache) Clear(ctx context.Context, key chat.Context) error {
	return c.client.Del(ctx, c.key(key.Topic())).Err()
}
