package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/openagora/agora/internal/apiserver/database"
	"github.com/openagora/agora/internal/apiserver/middleware"
	"github.com/openagora/agora/internal/auth/jwt"
	"github.com/openagora/agora/internal/chat"
	"github.com/openagora/agora/internal/chat/cache"
	"github.com/openagora/agora/internal/chat/history"
	"github.com/openagora/agora/internal/chat/router"
	"github.com/openagora/agora/internal/common/config"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

type nopPublisher struct{}

func (nopPublisher) Publish(string, chat.Message) int { return 0 }

type chatFixture struct {
	engine *gin.Engine
	store  database.Store
	router *router.Router
	jwt    *jwt.Service
}

func newChatFixture(t *testing.T) *chatFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store, err := database.NewDBStore(zap.NewNop(), &config.DatabaseConfig{Type: "sqlite", DBName: ":memory:"})
	if err != nil {
		t.Fatalf("NewDBStore: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	jwtService, err := jwt.NewService(jwt.Config{SecretKey: testSecret, Duration: time.Hour})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	c := cache.NewMemoryCache(zap.NewNop(), 100)
	rt := router.NewRouter(zap.NewNop(), store, c, nopPublisher{}, nil)
	hist := history.NewService(zap.NewNop(), store, c, 100, nil)
	h := NewChat(zap.NewNop(), hist, rt)

	r := gin.New()
	authed := r.Group("/api", middleware.JWTAuthMiddleware(jwtService))
	authed.GET("/chat/history", h.HandleGetHistory)
	authed.DELETE("/chat/messages/:id", h.HandleDeleteMessage)

	return &chatFixture{engine: r, store: store, router: rt, jwt: jwtService}
}

func (f *chatFixture) token(t *testing.T, userID uint, username, role string) string {
	t.Helper()
	token, err := f.jwt.GenerateToken(userID, username, "", role)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	return token
}

func (f *chatFixture) do(method, path, token string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	f.engine.ServeHTTP(w, req)
	return w
}

func (f *chatFixture) seed(t *testing.T, userID uint, username, content string, groupID int64) chat.Message {
	t.Helper()
	msg, err := f.router.Route(t.Context(),
		chat.Submission{Content: content, GroupID: &groupID},
		&chat.Principal{UserID: userID, Username: username, Role: "normal"})
	if err != nil {
		t.Fatalf("Route: %v", err)
	}
	return msg
}

func TestGetHistory(t *testing.T) {
	f := newChatFixture(t)
	token := f.token(t, 1, "alice", "normal")
	for i := 0; i < 3; i++ {
		f.seed(t, 1, "alice", fmt.Sprintf("m%d", i), 42)
	}
	f.seed(t, 1, "alice", "elsewhere", 7)

	w := f.do(http.MethodGet, "/api/chat/history?contextType=group&contextId=42", token)
	assert.Equal(t, http.StatusOK, w.Code)

	var msgs []chat.Message
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &msgs))
	if assert.Len(t, msgs, 3) {
		// newest first
		assert.Equal(t, "m2", msgs[0].Content)
		assert.Equal(t, "m0", msgs[2].Content)
	}
}

func TestGetHistory_BadRequests(t *testing.T) {
	f := newChatFixture(t)
	token := f.token(t, 1, "alice", "normal")

	cases := []struct {
		name string
		path string
	}{
		{"missing contextType", "/api/chat/history"},
		{"unknown contextType", "/api/chat/history?contextType=planet&contextId=1"},
		{"non-integer contextId", "/api/chat/history?contextType=group&contextId=abc"},
		{"group without id", "/api/chat/history?contextType=group"},
		{"forum with id", "/api/chat/history?contextType=forum&contextId=1"},
	}
	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, http.StatusBadRequest, f.do(http.MethodGet, tt.path, token).Code)
		})
	}
}

func TestGetHistory_RequiresAuth(t *testing.T) {
	f := newChatFixture(t)
	w := f.do(http.MethodGet, "/api/chat/history?contextType=forum", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestDeleteMessage_Owner(t *testing.T) {
	f := newChatFixture(t)
	msg := f.seed(t, 1, "alice", "bye", 42)

	token := f.token(t, 1, "alice", "normal")
	w := f.do(http.MethodDelete, fmt.Sprintf("/api/chat/messages/%d", msg.ID), token)
	assert.Equal(t, http.StatusNoContent, w.Code)

	_, err := f.store.GetMessage(t.Context(), msg.ID)
	assert.Error(t, err)
}

func TestDeleteMessage_ForbiddenForOthers(t *testing.T) {
	f := newChatFixture(t)
	msg := f.seed(t, 1, "alice", "keep", 42)

	token := f.token(t, 2, "mallory", "normal")
	w := f.do(http.MethodDelete, fmt.Sprintf("/api/chat/messages/%d", msg.ID), token)
	assert.Equal(t, http.StatusForbidden, w.Code)

	_, err := f.store.GetMessage(t.Context(), msg.ID)
	assert.NoError(t, err)
}

func TestDeleteMessage_Admin(t *testing.T) {
	f := newChatFixture(t)
	msg := f.seed(t, 1, "alice", "moderated", 42)

	token := f.token(t, 9, "root", "admin")
	w := f.do(http.MethodDelete, fmt.Sprintf("/api/chat/messages/%d", msg.ID), token)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestDeleteMessage_Errors(t *testing.T) {
	f := newChatFixture(t)
	token := f.token(t, 1, "alice", "normal")

	assert.Equal(t, http.StatusNotFound, f.do(http.MethodDelete, "/api/chat/messages/999", token).Code)
	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodDelete, "/api/chat/messages/abc", token).Code)
	assert.Equal(t, http.StatusUnauthorized, f.do(http.MethodDelete, "/api/chat/messages/1", "").Code)
}
