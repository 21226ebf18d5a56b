package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/openagora/agora/internal/apiserver/middleware"
	"github.com/openagora/agora/internal/chat"
	"github.com/openagora/agora/internal/chat/history"
	"github.com/openagora/agora/internal/chat/router"
	"github.com/openagora/agora/internal/common/cnst"
	"github.com/openagora/agora/internal/common/errorx"
	"go.uber.org/zap"
)

// Chat serves the request/response side of the messaging subsystem:
// history backfill and message deletion.
type Chat struct {
	logger  *zap.Logger
	history *history.Service
	router  *router.Router
}

// NewChat creates the chat handler.
func NewChat(logger *zap.Logger, hist *history.Service, rt *router.Router) *Chat {
	return &Chat{
		logger:  logger.Named("handler.chat"),
		history: hist,
		router:  rt,
	}
}

// HandleGetHistory serves GET /api/chat/history.
func (h *Chat) HandleGetHistory(c *gin.Context) {
	contextType := c.Query("contextType")
	if contextType == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "contextType is required"})
		return
	}

	var contextID *int64
	if raw := c.Query("contextId"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "contextId must be an integer"})
			return
		}
		contextID = &id
	}

	key, err := chat.NewContext(contextType, contextID)
	if err != nil {
		c.JSON(errorx.HTTPStatus(err), gin.H{"error": err.Error()})
		return
	}

	limit := cnst.DefaultHistoryLimit
	if raw := c.Query("limit"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 && v <= 200 {
			limit = v
		}
	}
	offset := 0
	if raw := c.Query("offset"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v >= 0 {
			offset = v
		}
	}

	msgs, err := h.history.GetHistory(c.Request.Context(), key, limit, offset)
	if err != nil {
		h.logger.Error("history read failed",
			zap.String("topic", key.Topic()),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, msgs)
}

// HandleDeleteMessage serves DELETE /api/chat/messages/:id. Only the
// author or an admin may delete a message.
func (h *Chat) HandleDeleteMessage(c *gin.Context) {
	claims, ok := middleware.ClaimsFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id must be an integer"})
		return
	}

	principal := &chat.Principal{
		UserID:   claims.UserID,
		Username: claims.Username,
		Avatar:   claims.Avatar,
		Role:     claims.Role,
	}
	if err := h.router.Delete(c.Request.Context(), id, principal); err != nil {
		c.JSON(errorx.HTTPStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}
