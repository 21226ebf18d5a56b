// Package session binds authenticated principals to websocket
// connections. Frames of one connection may be processed by any worker,
// so identity lives in a session-id-keyed map and is explicitly rebound
// around every frame instead of resting in worker state.
package session

import (
	"strings"
	"sync"

	"github.com/openagora/agora/internal/chat"
	"github.com/openagora/agora/internal/common/errorx"
	"go.uber.org/zap"
)

// TokenValidator turns a bearer token into a principal. The JWT
// service satisfies this through a small adapter in the handler layer.
type TokenValidator interface {
	Validate(token string) (*chat.Principal, error)
}

// Credentials carries the token material observed during the
// connection lifecycle. The handshake cookie wins over the CONNECT
// frame bearer; first present is used.
type Credentials struct {
	CookieToken   string // value of the handshake token cookie
	Authorization string // authorization field of a CONNECT frame
}

func (c Credentials) token() (string, bool) {
	if c.CookieToken != "" {
		return c.CookieToken, true
	}
	if c.Authorization != "" {
		return strings.TrimSpace(strings.TrimPrefix(c.Authorization, "Bearer")), true
	}
	return "", false
}

// Binder establishes and re-asserts connection identity. A session
// moves from unauthenticated to authenticated at most once; failed
// re-validation never downgrades it, it only fails the frame at hand.
type Binder struct {
	logger    *zap.Logger
	validator TokenValidator

	mu         sync.RWMutex
	principals map[string]*chat.Principal // session id -> bound principal
	reasons    map[string]string          // session id -> diagnostic reason while unauthenticated
	frames     map[int]*chat.Principal    // worker id -> identity of the frame in flight
}

// NewBinder creates a binder backed by the given token validator.
func NewBinder(logger *zap.Logger, validator TokenValidator) *Binder {
	return &Binder{
		logger:     logger.Named("chat.session"),
		validator:  validator,
		principals: make(map[string]*chat.Principal),
		reasons:    make(map[string]string),
		frames:     make(map[int]*chat.Principal),
	}
}

// Authenticate validates the first credential present and binds the
// resulting principal to the session. On failure the session is left
// usable but unauthenticated with a recorded diagnostic reason; the
// connection itself is accepted regardless (permissive policy, a
// CONNECT frame may still authenticate it later).
func (b *Binder) Authenticate(sessionID string, creds Credentials) (*chat.Principal, error) {
	token, ok := creds.token()
	if !ok {
		b.markUnauthenticated(sessionID, "no credential presented")
		return nil, errorx.AuthFailure("no credential presented")
	}

	principal, err := b.validator.Validate(token)
	if err != nil {
		b.markUnauthenticated(sessionID, err.Error())
		b.logger.Debug("credential rejected",
			zap.String("session", sessionID),
			zap.Error(err))
		return nil, errorx.AuthFailure(err.Error())
	}

	b.mu.Lock()
	b.principals[sessionID] = principal
	delete(b.reasons, sessionID)
	b.mu.Unlock()

	b.logger.Debug("session authenticated",
		zap.String("session", sessionID),
		zap.Uint("user", principal.UserID))
	return principal, nil
}

// markUnauthenticated records the diagnostic reason without touching an
// existing binding: re-validation failures never downgrade a session.
func (b *Binder) markUnauthenticated(sessionID, reason string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, bound := b.principals[sessionID]; bound {
		return
	}
	b.reasons[sessionID] = reason
}

// Principal returns the identity bound to a session, if any.
func (b *Binder) Principal(sessionID string) (*chat.Principal, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	p, ok := b.principals[sessionID]
	return p, ok
}

// Reason returns the diagnostic reason recorded for an unauthenticated
// session.
func (b *Binder) Reason(sessionID string) string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.reasons[sessionID]
}

// Unbind removes all identity state for a disconnected session.
func (b *Binder) Unbind(sessionID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.principals, sessionID)
	delete(b.reasons, sessionID)
}

// BeginFrame rebinds the session's principal as the worker's current
// frame identity. Every BeginFrame must be paired with an EndFrame,
// success or failure, so identity never bleeds into the worker's next
// frame.
func (b *Binder) BeginFrame(workerID int, sessionID string) (*chat.Principal, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	p, ok := b.principals[sessionID]
	b.frames[workerID] = p
	return p, ok
}

// EndFrame clears the worker's current frame identity unconditionally.
func (b *Binder) EndFrame(workerID int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.frames, workerID)
}

// Current returns the identity of the frame a worker is processing.
func (b *Binder) Current(workerID int) (*chat.Principal, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	p, ok := b.frames[workerID]
	if !ok || p == nil {
		return nil, false
	}
	return p, true
}
