package database

import (
	"context"
	"testing"

	"github.com/openagora/agora/internal/common/config"
	"github.com/openagora/agora/internal/common/errorx"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func newTestStore(t *testing.T) *DBStore {
	t.Helper()
	store, err := NewDBStore(zap.NewNop(), &config.DatabaseConfig{Type: "sqlite", DBName: ":memory:"})
	if err != nil {
		t.Fatalf("NewDBStore: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func int64p(v int64) *int64 { return &v }

func TestDBStore_UnsupportedType(t *testing.T) {
	store, err := NewDBStore(zap.NewNop(), &config.DatabaseConfig{Type: "oracle"})
	assert.Nil(t, store)
	assert.Error(t, err)
}

func TestDBStore_Users(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	user := &User{Username: "alice", Password: "hash", Role: RoleNormal}
	assert.NoError(t, store.CreateUser(ctx, user))
	assert.NotZero(t, user.ID)

	got, err := store.GetUserByUsername(ctx, "alice")
	assert.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)

	_, err = store.GetUserByUsername(ctx, "nobody")
	assert.ErrorIs(t, err, errorx.NotFound(""))

	// usernames are unique
	assert.Error(t, store.CreateUser(ctx, &User{Username: "alice", Password: "x"}))
}

func TestDBStore_MessagesByContext(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		m := &Message{UserID: 1, Username: "alice", Content: "in group", ContextType: "group", ContextID: int64p(42)}
		assert.NoError(t, store.CreateMessage(ctx, m))
		assert.NotZero(t, m.ID)
	}
	assert.NoError(t, store.CreateMessage(ctx, &Message{UserID: 1, Username: "alice", Content: "other group", ContextType: "group", ContextID: int64p(7)}))
	assert.NoError(t, store.CreateMessage(ctx, &Message{UserID: 1, Username: "alice", Content: "forum", ContextType: "forum"}))

	// scoped to one context, newest first
	got, err := store.GetMessagesByContext(ctx, "group", int64p(42), 10, 0)
	assert.NoError(t, err)
	assert.Len(t, got, 5)
	for i := 1; i < len(got); i++ {
		assert.Greater(t, got[i-1].ID, got[i].ID)
	}

	// pagination
	page, err := store.GetMessagesByContext(ctx, "group", int64p(42), 2, 2)
	assert.NoError(t, err)
	if assert.Len(t, page, 2) {
		assert.Equal(t, got[2].ID, page[0].ID)
		assert.Equal(t, got[3].ID, page[1].ID)
	}

	// forum context has a NULL context id
	forum, err := store.GetMessagesByContext(ctx, "forum", nil, 10, 0)
	assert.NoError(t, err)
	assert.Len(t, forum, 1)
	assert.Equal(t, "forum", forum[0].ContextType)
}

func TestDBStore_GetAndDeleteMessage(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	m := &Message{UserID: 1, Username: "alice", Content: "hi", ContextType: "thread", ContextID: int64p(3)}
	assert.NoError(t, store.CreateMessage(ctx, m))

	got, err := store.GetMessage(ctx, m.ID)
	assert.NoError(t, err)
	assert.Equal(t, "hi", got.Content)

	assert.NoError(t, store.DeleteMessage(ctx, m.ID))
	_, err = store.GetMessage(ctx, m.ID)
	assert.ErrorIs(t, err, errorx.NotFound(""))
	assert.ErrorIs(t, store.DeleteMessage(ctx, m.ID), errorx.NotFound(""))
}

func TestMessage_ToChat(t *testing.T) {
	m := &Message{ID: 9, UserID: 2, Username: "bob", UserAvatar: "b.png", Content: "hey", ContextType: "post", ContextID: int64p(5)}
	dto := m.ToChat()
	assert.Equal(t, uint64(9), dto.ID)
	assert.Equal(t, uint(2), dto.UserID)
	assert.Equal(t, "bob", dto.Username)
	assert.Equal(t, "CHAT", dto.MessageType)
	if assert.NotNil(t, dto.PostID) {
		assert.Equal(t, int64(5), *dto.PostID)
	}
	assert.Nil(t, dto.GroupID)
	assert.Nil(t, dto.ThreadID)

	forum := &Message{ID: 10, ContextType: "forum"}
	dtoF := forum.ToChat()
	assert.Nil(t, dtoF.PostID)
	assert.Equal(t, "forum", dtoF.Context().Topic())
}
