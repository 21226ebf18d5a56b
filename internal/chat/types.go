// Package chat holds the shared types of the realtime messaging
// subsystem: addressing contexts, the enriched message DTO and the
// authenticated principal.
package chat

import (
	"fmt"
	"strconv"
	"time"

	"github.com/openagora/agora/internal/common/cnst"
	"github.com/openagora/agora/internal/common/errorx"
)

// Principal is an authenticated identity, valid for the life of a
// connection. It is produced by the token validator and never persisted
// by this subsystem.
type Principal struct {
	UserID   uint
	Username string
	Avatar   string
	Role     string
}

// IsAdmin reports whether the principal carries the admin role.
func (p *Principal) IsAdmin() bool {
	return p != nil && p.Role == "admin"
}

// Context is the addressing key scoping a set of messages and their
// fan-out topic. ID is nil only for the forum scope.
type Context struct {
	Type cnst.ContextType
	ID   *int64
}

// NewContext builds and validates a context from its raw parts.
func NewContext(contextType string, id *int64) (Context, error) {
	switch cnst.ContextType(contextType) {
	case cnst.ContextForum:
		// forum has no id; ignore one if supplied
		return Context{Type: cnst.ContextForum}, nil
	case cnst.ContextGroup, cnst.ContextThread, cnst.ContextPost:
		if id == nil {
			return Context{}, errorx.ValidationError(fmt.Sprintf("context type %q requires a context id", contextType))
		}
		return Context{Type: cnst.ContextType(contextType), ID: id}, nil
	default:
		return Context{}, errorx.ValidationError(fmt.Sprintf("unknown context type %q", contextType))
	}
}

// Topic derives the fan-out destination for the context.
func (c Context) Topic() string {
	if c.Type == cnst.ContextForum || c.ID == nil {
		return cnst.TopicForum
	}
	return string(c.Type) + ":" + strconv.FormatInt(*c.ID, 10)
}

// Submission is the client payload of a SEND frame. At most one of the
// id fields may be set; none selects the forum scope. Identity fields
// are deliberately absent: the author is taken from the connection's
// principal, never from the client.
type Submission struct {
	Content  string `json:"content"`
	PostID   *int64 `json:"postId,omitempty"`
	ThreadID *int64 `json:"threadId,omitempty"`
	GroupID  *int64 `json:"groupId,omitempty"`
}

// Context resolves the submission's context selector.
func (s *Submission) Context() (Context, error) {
	set := 0
	for _, id := range []*int64{s.PostID, s.ThreadID, s.GroupID} {
		if id != nil {
			set++
		}
	}
	if set > 1 {
		return Context{}, errorx.ValidationError("message may target at most one of postId, threadId, groupId")
	}
	switch {
	case s.GroupID != nil:
		return Context{Type: cnst.ContextGroup, ID: s.GroupID}, nil
	case s.ThreadID != nil:
		return Context{Type: cnst.ContextThread, ID: s.ThreadID}, nil
	case s.PostID != nil:
		return Context{Type: cnst.ContextPost, ID: s.PostID}, nil
	default:
		return Context{Type: cnst.ContextForum}, nil
	}
}

// Message is the enriched payload delivered to subscribers and returned
// by history reads.
type Message struct {
	ID          uint64    `json:"id"`
	UserID      uint      `json:"userId"`
	Username    string    `json:"username"`
	UserAvatar  string    `json:"userAvatar,omitempty"`
	Content     string    `json:"content"`
	PostID      *int64    `json:"postId,omitempty"`
	ThreadID    *int64    `json:"threadId,omitempty"`
	GroupID     *int64    `json:"groupId,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
	MessageType string    `json:"messageType"`
}

// Context derives the message's addressing key from its id fields.
func (m *Message) Context() Context {
	switch {
	case m.GroupID != nil:
		return Context{Type: cnst.ContextGroup, ID: m.GroupID}
	case m.ThreadID != nil:
		return Context{Type: cnst.ContextThread, ID: m.ThreadID}
	case m.PostID != nil:
		return Context{Type: cnst.ContextPost, ID: m.PostID}
	default:
		return Context{Type: cnst.ContextForum}
	}
}

// ErrorPayload is pushed on a connection's private error destination.
type ErrorPayload struct {
	Message   string                `json:"message"`
	Type      cnst.ErrorChannelType `json:"type"`
	Timestamp time.Time             `json:"timestamp"`
}

// NewErrorPayload converts any failure into its error-channel shape.
func NewErrorPayload(err error) ErrorPayload {
	return ErrorPayload{
		Message:   err.Error(),
		Type:      errorx.ChannelType(err),
		Timestamp: time.Now(),
	}
}
