package cache

import (
	"context"
	"testing"
	"time"

	"github.com/openagora/agora/internal/chat"
	"github.com/openagora/agora/internal/common/cnst"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func int64p(v int64) *int64 { return &v }

func groupCtx(id int64) chat.Context {
	return chat.Context{Type: cnst.ContextGroup, ID: int64p(id)}
}

func msg(id uint64, content string) chat.Message {
	return chat.Message{
		ID:          id,
		UserID:      1,
		Username:    "alice",
		Content:     content,
		Timestamp:   time.Unix(int64(id), 0),
		MessageType: cnst.MessageTypeChat,
	}
}

func TestMemoryCache_AddAndRecent(t *testing.T) {
	c := NewMemoryCache(zap.NewNop(), 100)
	ctx := context.Background()
	key := groupCtx(42)

	assert.NoError(t, c.Add(ctx, key, msg(1, "first")))
	assert.NoError(t, c.Add(ctx, key, msg(2, "second")))
	assert.NoError(t, c.Add(ctx, key, msg(3, "third")))

	got, err := c.Recent(ctx, key, 10)
	assert.NoError(t, err)
	if assert.Len(t, got, 3) {
		// newest first
		assert.Equal(t, uint64(3), got[0].ID)
		assert.Equal(t, uint64(2), got[1].ID)
		assert.Equal(t, uint64(1), got[2].ID)
	}

	// limit smaller than the list
	got, err = c.Recent(ctx, key, 2)
	assert.NoError(t, err)
	assert.Len(t, got, 2)
	assert.Equal(t, uint64(3), got[0].ID)

	// other contexts are untouched
	got, err = c.Recent(ctx, groupCtx(7), 10)
	assert.NoError(t, err)
	assert.Empty(t, got)
}

func TestMemoryCache_CapacityBound(t *testing.T) {
	const capacity = 5
	c := NewMemoryCache(zap.NewNop(), capacity)
	ctx := context.Background()
	key := groupCtx(1)

	for i := 1; i <= 20; i++ {
		assert.NoError(t, c.Add(ctx, key, msg(uint64(i), "m")))
	}

	got, err := c.Recent(ctx, key, capacity+10)
	assert.NoError(t, err)
	assert.Len(t, got, capacity)
	// the newest survive
	assert.Equal(t, uint64(20), got[0].ID)
	assert.Equal(t, uint64(16), got[capacity-1].ID)
}

func TestMemoryCache_NewestFirstTimestamps(t *testing.T) {
	c := NewMemoryCache(zap.NewNop(), 50)
	ctx := context.Background()
	key := chat.Context{Type: cnst.ContextForum}

	for i := 1; i <= 10; i++ {
		assert.NoError(t, c.Add(ctx, key, msg(uint64(i), "m")))
	}
	got, err := c.Recent(ctx, key, 10)
	assert.NoError(t, err)
	for i := 1; i < len(got); i++ {
		assert.True(t, !got[i-1].Timestamp.Before(got[i].Timestamp))
	}
}

func TestMemoryCache_Remove(t *testing.T) {
	c := NewMemoryCache(zap.NewNop(), 10)
	ctx := context.Background()

	assert.NoError(t, c.Add(ctx, groupCtx(1), msg(1, "a")))
	assert.NoError(t, c.Add(ctx, groupCtx(1), msg(2, "b")))
	assert.NoError(t, c.Add(ctx, groupCtx(2), msg(3, "c")))

	assert.NoError(t, c.Remove(ctx, 2))

	got, _ := c.Recent(ctx, groupCtx(1), 10)
	assert.Len(t, got, 1)
	assert.Equal(t, uint64(1), got[0].ID)

	// other context untouched
	got, _ = c.Recent(ctx, groupCtx(2), 10)
	assert.Len(t, got, 1)

	// removing an unknown id is a no-op
	assert.NoError(t, c.Remove(ctx, 99))
}

func TestMemoryCache_Clear(t *testing.T) {
	c := NewMemoryCache(zap.NewNop(), 10)
	ctx := context.Background()

	assert.NoError(t, c.Add(ctx, groupCtx(1), msg(1, "a")))
	assert.NoError(t, c.Clear(ctx, groupCtx(1)))

	got, _ := c.Recent(ctx, groupCtx(1), 10)
	assert.Empty(t, got)
}

func TestMemoryCache_Backfill(t *testing.T) {
	c := NewMemoryCache(zap.NewNop(), 3)
	ctx := context.Background()
	key := groupCtx(1)

	assert.NoError(t, c.Add(ctx, key, msg(99, "stale")))
	assert.NoError(t, c.Backfill(ctx, key, []chat.Message{msg(5, "e"), msg(4, "d"), msg(3, "c"), msg(2, "b")}))

	got, _ := c.Recent(ctx, key, 10)
	// bounded at capacity, newest first
	if assert.Len(t, got, 3) {
		assert.Equal(t, uint64(5), got[0].ID)
		assert.Equal(t, uint64(3), got[2].ID)
	}
}

func TestMemoryCache_RecentReturnsCopies(t *testing.T) {
	c := NewMemoryCache(zap.NewNop(), 10)
	ctx := context.Background()
	key := groupCtx(1)

	assert.NoError(t, c.Add(ctx, key, msg(1, "original")))
	got, _ := c.Recent(ctx, key, 1)
	got[0].Content = "mutated"

	again, _ := c.Recent(ctx, key, 1)
	assert.Equal(t, "original", again[0].Content)
}

func TestMemoryCache_ConcurrentWriters(t *testing.T) {
	c := NewMemoryCache(zap.NewNop(), 100)
	ctx := context.Background()

	done := make(chan struct{})
	for g := 0; g < 8; g++ {
		go func(g int) {
			defer func() { done <- struct{}{} }()
			key := groupCtx(int64(g % 2))
			for i := 0; i < 200; i++ {
				_ = c.Add(ctx, key, msg(uint64(i), "m"))
				_, _ = c.Recent(ctx, key, 10)
			}
		}(g)
	}
	for g := 0; g < 8; g++ {
		<-done
	}

	got, err := c.Recent(ctx, groupCtx(0), 200)
	assert.NoError(t, err)
	assert.LessOrEqual(t, len(got), 100)
}
