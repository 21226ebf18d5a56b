// Package cache implements the bounded per-context recency cache that
// serves first-page history reads without a store round-trip. The cache
// is a pure performance optimization: eviction or loss never affects
// correctness, only latency.
package cache

import (
	"context"
	"fmt"

	"github.com/openagora/agora/internal/chat"
	"github.com/openagora/agora/internal/common/cnst"
	"github.com/openagora/agora/internal/common/config"
	"go.uber.org/zap"
)

// Cache keeps the newest messages of each context, newest first, capped
// at the configured capacity.
type Cache interface {
	// Add inserts a message at the head of its context's list and
	// truncates the tail beyond capacity.
	Add(ctx context.Context, key chat.Context, msg chat.Message) error

	// Recent returns up to limit newest entries for the context. It
	// never consults the store; a short or empty result means the
	// caller should fall back.
	Recent(ctx context.Context, key chat.Context, limit int) ([]chat.Message, error)

	// Backfill replaces the context's list with a newest-first page
	// read from the store, bounded at capacity.
	Backfill(ctx context.Context, key chat.Context, msgs []chat.Message) error

	// Remove drops any cached entry with the given message id from
	// every context list.
	Remove(ctx context.Context, messageID uint64) error

	// Clear drops the cached list for one context.
	Clear(ctx context.Context, key chat.Context) error
}

// Type represents the type of cache backend
type Type string

const (
	// TypeMemory represents the in-memory cache backend
	TypeMemory Type = "memory"
	// TypeRedis represents the Redis-backed cache
	TypeRedis Type = "redis"
)

// New creates a cache backend based on configuration.
func New(logger *zap.Logger, cfg *config.CacheConfig) (Cache, error) {
	capacity := cfg.Capacity
	if capacity <= 0 {
		capacity = cnst.DefaultCacheCapacity
	}
	logger.Info("initializing recency cache",
		zap.String("type", cfg.Type),
		zap.Int("capacity", capacity))
	switch Type(cfg.Type) {
	case TypeMemory, "":
		return NewMemoryCache(logger, capacity), nil
	case TypeRedis:
		return NewRedisCache(logger, cfg.Redis, capacity)
	default:
		return nil, fmt.Errorf("unsupported cache type: %s", cfg.Type)
	}
}
