// Package hub fans outbound messages out to every connection currently
// subscribed to a topic. Delivery is best effort and at most once per
// subscriber per publish; offline subscribers catch up via history.
package hub

import (
	"sync"

	"github.com/openagora/agora/internal/chat"
	"go.uber.org/zap"
)

// Subscriber receives outbound frames for one connection.
type Subscriber interface {
	// Send enqueues a frame for delivery. It must not block; a full
	// or closed connection returns an error and the frame is dropped.
	Send(frame chat.ServerFrame) error
}

// Hub maps topics to their current subscriber sets and every session to
// its private error destination.
type Hub struct {
	logger *zap.Logger

	mu       sync.RWMutex
	subs     map[string]Subscriber          // session id -> subscriber
	topics   map[string]map[string]struct{} // topic -> session ids
	sessions map[string]map[string]struct{} // session id -> topics
}

// NewHub creates an empty hub.
func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		logger:   logger.Named("chat.hub"),
		subs:     make(map[string]Subscriber),
		topics:   make(map[string]map[string]struct{}),
		sessions: make(map[string]map[string]struct{}),
	}
}

// Register attaches a connection's subscriber before any subscription.
func (h *Hub) Register(sessionID string, sub Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.subs[sessionID] = sub
}

// Unregister removes the connection from every topic and drops its
// subscriber. Safe to call for unknown sessions.
func (h *Hub) Unregister(sessionID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for topic := range h.sessions[sessionID] {
		delete(h.topics[topic], sessionID)
		if len(h.topics[topic]) == 0 {
			delete(h.topics, topic)
		}
	}
	delete(h.sessions, sessionID)
	delete(h.subs, sessionID)
}

// Subscribe attaches the session to a topic.
func (h *Hub) Subscribe(sessionID, topic string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subs[sessionID]; !ok {
		return
	}
	if h.topics[topic] == nil {
		h.topics[topic] = make(map[string]struct{})
	}
	h.topics[topic][sessionID] = struct{}{}
	if h.sessions[sessionID] == nil {
		h.sessions[sessionID] = make(map[string]struct{})
	}
	h.sessions[sessionID][topic] = struct{}{}
}

// Unsubscribe detaches the session from a topic.
func (h *Hub) Unsubscribe(sessionID, topic string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.topics[topic], sessionID)
	if len(h.topics[topic]) == 0 {
		delete(h.topics, topic)
	}
	delete(h.sessions[sessionID], topic)
}

// Publish delivers a message to the topic's current subscriber set and
// returns the number of successful deliveries. Subscribers that cannot
// accept the frame are skipped, never retried.
func (h *Hub) Publish(topic string, msg chat.Message) int {
	h.mu.RLock()
	targets := make([]Subscriber, 0, len(h.topics[topic]))
	for sessionID := range h.topics[topic] {
		if sub, ok := h.subs[sessionID]; ok {
			targets = append(targets, sub)
		}
	}
	h.mu.RUnlock()

	frame := chat.MessageFrame(topic, msg)
	delivered := 0
	for _, sub := range targets {
		if err := sub.Send(frame); err != nil {
			h.logger.Warn("dropping frame for slow subscriber",
				zap.String("topic", topic),
				zap.Error(err))
			continue
		}
		delivered++
	}
	return delivered
}

// SendError pushes a payload on one session's private error
// destination.
func (h *Hub) SendError(sessionID string, p chat.ErrorPayload) {
	h.mu.RLock()
	sub, ok := h.subs[sessionID]
	h.mu.RUnlock()
	if !ok {
		return
	}
	if err := sub.Send(chat.ErrorFrame(p)); err != nil {
		h.logger.Warn("failed to deliver error frame",
			zap.String("session", sessionID),
			zap.Error(err))
	}
}

// Subscribers reports the current size of a topic's subscriber set.
func (h *Hub) Subscribers(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.topics[topic])
}
