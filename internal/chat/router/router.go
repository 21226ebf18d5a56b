// Package router validates and normalizes inbound chat submissions,
// persists them and hands them to the fan-out publisher under the
// context-derived topic.
package router

import (
	"context"
	"strings"

	"github.com/openagora/agora/internal/apiserver/database"
	"github.com/openagora/agora/internal/chat"
	"github.com/openagora/agora/internal/chat/cache"
	"github.com/openagora/agora/internal/common/errorx"
	"github.com/openagora/agora/pkg/metrics"
	"go.uber.org/zap"
)

// Store is the slice of the durable store the router needs.
type Store interface {
	CreateMessage(ctx context.Context, message *database.Message) error
	GetMessage(ctx context.Context, id uint64) (*database.Message, error)
	DeleteMessage(ctx context.Context, id uint64) error
}

// Publisher fans a message out to a topic's subscribers.
type Publisher interface {
	Publish(topic string, msg chat.Message) int
}

// Router is the context router of the chat subsystem.
type Router struct {
	logger  *zap.Logger
	store   Store
	cache   cache.Cache
	pub     Publisher
	metrics *metrics.Metrics
}

// NewRouter wires the router to its collaborators. metrics may be nil.
func NewRouter(logger *zap.Logger, store Store, c cache.Cache, pub Publisher, m *metrics.Metrics) *Router {
	return &Router{
		logger:  logger.Named("chat.router"),
		store:   store,
		cache:   c,
		pub:     pub,
		metrics: m,
	}
}

// Route validates the submission, enriches it from the principal and a
// server-assigned timestamp, persists it, caches it and publishes it.
// Persistence failures abort the operation; a publish failure after a
// successful persist is logged and swallowed, since the message is
// durable and recoverable via history.
func (r *Router) Route(ctx context.Context, sub chat.Submission, principal *chat.Principal) (chat.Message, error) {
	if principal == nil {
		return chat.Message{}, errorx.AuthFailure("connection is not authenticated")
	}
	content := strings.TrimSpace(sub.Content)
	if content == "" {
		return chat.Message{}, errorx.ValidationError("message content must not be empty")
	}
	key, err := sub.Context()
	if err != nil {
		return chat.Message{}, err
	}

	row := database.NewMessage(key, principal, content)
	if err := r.store.CreateMessage(ctx, row); err != nil {
		r.routed(key, "error")
		return chat.Message{}, errorx.DeliveryError("failed to persist message", err)
	}
	msg := row.ToChat()

	// Cache and publish happen after the durable write; neither may
	// fail the delivery. No cache lock is held across store I/O.
	if err := r.cache.Add(ctx, key, msg); err != nil {
		r.logger.Warn("failed to cache message",
			zap.Uint64("id", msg.ID),
			zap.Error(err))
	}

	topic := key.Topic()
	delivered := r.pub.Publish(topic, msg)
	r.logger.Debug("message routed",
		zap.Uint64("id", msg.ID),
		zap.String("topic", topic),
		zap.Int("delivered", delivered))

	r.routed(key, "ok")
	if r.metrics != nil {
		r.metrics.Published()
	}
	return msg, nil
}

// Delete removes a message on behalf of its owner (or an admin) from
// the store and the cache. Store deletion is the source of truth.
func (r *Router) Delete(ctx context.Context, id uint64, principal *chat.Principal) error {
	if principal == nil {
		return errorx.AuthFailure("connection is not authenticated")
	}
	row, err := r.store.GetMessage(ctx, id)
	if err != nil {
		return err
	}
	if row.UserID != principal.UserID && !principal.IsAdmin() {
		return errorx.AuthorizationFailure("cannot delete another user's message")
	}
	if err := r.store.DeleteMessage(ctx, id); err != nil {
		return err
	}
	if err := r.cache.Remove(ctx, id); err != nil {
		r.logger.Warn("failed to evict deleted message from cache",
			zap.Uint64("id", id),
			zap.Error(err))
	}
	return nil
}

func (r *Router) routed(key chat.Context, status string) {
	if r.metrics != nil {
		r.metrics.Routed(string(key.Type), status)
	}
}
