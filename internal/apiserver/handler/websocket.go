package handler

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/openagora/agora/internal/chat"
	"github.com/openagora/agora/internal/chat/hub"
	"github.com/openagora/agora/internal/chat/router"
	"github.com/openagora/agora/internal/chat/session"
	"github.com/openagora/agora/internal/common/cnst"
	"github.com/openagora/agora/internal/common/config"
	"github.com/openagora/agora/internal/common/errorx"
	"github.com/openagora/agora/pkg/metrics"
	"go.uber.org/zap"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// WebSocket serves the chat endpoint. Inbound frames from every
// connection are funneled into one queue drained by a fixed worker
// pool, so consecutive frames of a connection may run on different
// workers; the binder re-asserts identity around each frame.
type WebSocket struct {
	logger    *zap.Logger
	binder    *session.Binder
	hub       *hub.Hub
	router    *router.Router
	metrics   *metrics.Metrics
	upgrader  websocket.Upgrader
	frames    chan frameJob
	queueSize int
}

type frameJob struct {
	sessionID string
	frame     chat.ClientFrame
}

// NewWebSocket creates the websocket handler and starts its worker
// pool.
func NewWebSocket(logger *zap.Logger, binder *session.Binder, h *hub.Hub, rt *router.Router, m *metrics.Metrics, cfg config.ChatConfig) *WebSocket {
	workers := cfg.FrameWorkers
	if workers <= 0 {
		workers = cnst.DefaultFrameWorkers
	}
	queueSize := cfg.SendQueueSize
	if queueSize <= 0 {
		queueSize = 100
	}

	ws := &WebSocket{
		logger:    logger.Named("handler.ws"),
		binder:    binder,
		hub:       h,
		router:    rt,
		metrics:   m,
		queueSize: queueSize,
		frames:    make(chan frameJob, workers*8),
		upgrader: websocket.Upgrader{
			HandshakeTimeout: 10 * time.Second,
			CheckOrigin: func(r *http.Request) bool {
				// Origin checking is delegated to the reverse proxy.
				return true
			},
		},
	}
	for i := 0; i < workers; i++ {
		go ws.worker(i)
	}
	return ws
}

// HandleChat upgrades the request and runs the connection until
// disconnect. A missing or invalid handshake credential does not
// reject the connection; it is accepted unauthenticated with a
// recorded diagnostic reason, and a CONNECT frame may authenticate it
// later.
func (ws *WebSocket) HandleChat(c *gin.Context) {
	conn, err := ws.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		ws.logger.Error("failed to upgrade connection", zap.Error(err))
		return
	}

	sessionID := uuid.NewString()
	creds := session.Credentials{}
	if cookie, err := c.Cookie(cnst.TokenCookieName); err == nil {
		creds.CookieToken = cookie
	}
	if _, err := ws.binder.Authenticate(sessionID, creds); err != nil {
		ws.logger.Info("connection accepted unauthenticated",
			zap.String("session", sessionID),
			zap.String("reason", ws.binder.Reason(sessionID)))
	}

	client := newWSClient(sessionID, conn, ws.queueSize)
	ws.hub.Register(sessionID, client)
	if ws.metrics != nil {
		ws.metrics.ConnOpened()
	}
	ws.logger.Debug("connection opened", zap.String("session", sessionID))

	go client.writePump(ws.logger)
	ws.readPump(client)
}

// readPump reads frames until the transport fails, then tears the
// connection down. In-flight frames already queued keep running to
// completion on the workers.
func (ws *WebSocket) readPump(client *wsClient) {
	defer func() {
		ws.binder.Unbind(client.id)
		ws.hub.Unregister(client.id)
		client.close()
		if ws.metrics != nil {
			ws.metrics.ConnClosed()
		}
		ws.logger.Debug("connection closed", zap.String("session", client.id))
	}()

	client.conn.SetReadLimit(64 << 10)
	_ = client.conn.SetReadDeadline(time.Now().Add(pongWait))
	client.conn.SetPongHandler(func(string) error {
		return client.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var frame chat.ClientFrame
		if err := client.conn.ReadJSON(&frame); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				ws.logger.Warn("connection read failed",
					zap.String("session", client.id),
					zap.Error(err))
			}
			return
		}
		ws.frames <- frameJob{sessionID: client.id, frame: frame}
	}
}

func (ws *WebSocket) worker(id int) {
	for job := range ws.frames {
		ws.processFrame(id, job)
	}
}

// processFrame rebinds the session identity for exactly the duration of
// one frame. EndFrame runs unconditionally so the identity never
// bleeds into the worker's next frame.
func (ws *WebSocket) processFrame(workerID int, job frameJob) {
	principal, _ := ws.binder.BeginFrame(workerID, job.sessionID)
	defer ws.binder.EndFrame(workerID)

	switch job.frame.Type {
	case cnst.FrameConnect:
		// The handshake cookie wins: a session it authenticated is
		// never rebound by a CONNECT bearer.
		if principal != nil {
			return
		}
		creds := session.Credentials{Authorization: job.frame.Authorization}
		if _, err := ws.binder.Authenticate(job.sessionID, creds); err != nil {
			ws.hub.SendError(job.sessionID, chat.NewErrorPayload(err))
		}

	case cnst.FrameSubscribe:
		if job.frame.Topic == "" {
			ws.hub.SendError(job.sessionID, chat.NewErrorPayload(
				errorx.ValidationError("subscribe requires a topic")))
			return
		}
		ws.hub.Subscribe(job.sessionID, job.frame.Topic)

	case cnst.FrameUnsubscribe:
		ws.hub.Unsubscribe(job.sessionID, job.frame.Topic)

	case cnst.FrameSend:
		// Route runs on a background context: a disconnect must not
		// abandon a partially completed persist.
		if _, err := ws.router.Route(context.Background(), job.frame.Submission, principal); err != nil {
			ws.hub.SendError(job.sessionID, chat.NewErrorPayload(err))
		}

	default:
		ws.hub.SendError(job.sessionID, chat.NewErrorPayload(
			errorx.ValidationError("unknown frame type")))
	}
}

// wsClient adapts one gorilla connection to the hub's Subscriber
// interface with a bounded outbound queue and a single writer
// goroutine, which preserves per-connection delivery order.
type wsClient struct {
	id    string
	conn  *websocket.Conn
	queue chan chat.ServerFrame
	done  chan struct{}
	once  sync.Once
}

var _ hub.Subscriber = (*wsClient)(nil)

func newWSClient(id string, conn *websocket.Conn, queueSize int) *wsClient {
	return &wsClient{
		id:    id,
		conn:  conn,
		queue: make(chan chat.ServerFrame, queueSize),
		done:  make(chan struct{}),
	}
}

// Send implements hub.Subscriber. It never blocks; frames for a full or
// closed connection are dropped by the caller.
func (c *wsClient) Send(frame chat.ServerFrame) error {
	select {
	case <-c.done:
		return errors.New("connection closed")
	default:
	}
	select {
	case c.queue <- frame:
		return nil
	default:
		return errors.New("send queue full")
	}
}

func (c *wsClient) close() {
	c.once.Do(func() {
		close(c.done)
		_ = c.conn.Close()
	})
}

func (c *wsClient) writePump(logger *zap.Logger) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.close()
	}()

	for {
		select {
		case frame := <-c.queue:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(frame); err != nil {
				logger.Debug("write failed", zap.String("session", c.id), zap.Error(err))
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			return
		}
	}
}
