package cache

import (
	"context"
	"sync"

	"github.com/openagora/agora/internal/chat"
	"go.uber.org/zap"
)

// MemoryCache implements Cache with per-topic slices behind a single
// coarse mutex. With the small bounded capacity this is cheaper than
// per-context locking; shard the lock if contexts ever number in the
// thousands with high write rates.
type MemoryCache struct {
	logger   *zap.Logger
	capacity int

	mu    sync.Mutex
	lists map[string][]chat.Message // topic -> newest-first entries
}

var _ Cache = (*MemoryCache)(nil)

// NewMemoryCache creates an in-memory recency cache.
func NewMemoryCache(logger *zap.Logger, capacity int) *MemoryCache {
	return &MemoryCache{
		logger:   logger.Named("chat.cache.memory"),
		capacity: capacity,
		lists:    make(map[string][]chat.Message),
	}
}

// Add implements Cache.Add
func (c *MemoryCache) Add(_ context.Context, key chat.Context, msg chat.Message) error {
	topic := key.Topic()
	c.mu.Lock()
	defer c.mu.Unlock()

	list := c.lists[topic]
	// insert at head, truncate beyond capacity
	list = append([]chat.Message{msg}, list...)
	if len(list) > c.capacity {
		list = list[:c.capacity]
	}
	c.lists[topic] = list
	return nil
}

// Recent implements Cache.Recent
func (c *MemoryCache) Recent(_ context.Context, key chat.Context, limit int) ([]chat.Message, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	list := c.lists[key.Topic()]
	if limit > len(list) {
		limit = len(list)
	}
	// copy so callers never alias the cached entries
	out := make([]chat.Message, limit)
	copy(out, list[:limit])
	return out, nil
}

// Backfill implements Cache.Backfill
func (c *MemoryCache) Backfill(_ context.Context, key chat.Context, msgs []chat.Message) error {
	if len(msgs) > c.capacity {
		msgs = msgs[:c.capacity]
	}
	list := make([]chat.Message, len(msgs))
	copy(list, msgs)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.lists[key.Topic()] = list
	return nil
}

// Remove implements Cache.Remove; it scans every context list.
func (c *MemoryCache) Remove(_ context.Context, messageID uint64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for topic, list := range c.lists {
		for i, m := range list {
			if m.ID == messageID {
				c.lists[topic] = append(list[:i:i], list[i+1:]...)
				break
			}
		}
	}
	return nil
}

// Clear implements Cache.Clear
func (c *MemoryCache) Clear(_ context.Context, key chat.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.lists, key.Topic())
	return nil
}
