package database

import (
	"time"

	"github.com/openagora/agora/internal/chat"
	"github.com/openagora/agora/internal/common/cnst"
)

// UserRole represents the role of a user
type UserRole string

const (
	RoleAdmin  UserRole = "admin"
	RoleNormal UserRole = "normal"
)

// User represents a registered account.
type User struct {
	ID        uint      `json:"id" gorm:"primaryKey;autoIncrement"`
	Username  string    `json:"username" gorm:"type:varchar(50);uniqueIndex"`
	Password  string    `json:"-" gorm:"not null"` // bcrypt hash, never exposed
	Avatar    string    `json:"avatar"`
	Role      UserRole  `json:"role" gorm:"not null;default:'normal'"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Message is a persisted chat message. The context columns are set once
// at creation and never mutated; author identity is snapshotted from
// the sending principal.
type Message struct {
	ID          uint64    `json:"id" gorm:"primaryKey;autoIncrement"`
	UserID      uint      `json:"userId" gorm:"index;not null"`
	Username    string    `json:"username" gorm:"type:varchar(50)"`
	UserAvatar  string    `json:"userAvatar"`
	Content     string    `json:"content" gorm:"type:text;not null"`
	ContextType string    `json:"contextType" gorm:"type:varchar(16);index:idx_message_context"`
	ContextID   *int64    `json:"contextId" gorm:"index:idx_message_context"`
	CreatedAt   time.Time `json:"createdAt" gorm:"index"`
}

// ToChat converts the row into the enriched delivery DTO.
func (m *Message) ToChat() chat.Message {
	out := chat.Message{
		ID:          m.ID,
		UserID:      m.UserID,
		Username:    m.Username,
		UserAvatar:  m.UserAvatar,
		Content:     m.Content,
		Timestamp:   m.CreatedAt,
		MessageType: cnst.MessageTypeChat,
	}
	switch cnst.ContextType(m.ContextType) {
	case cnst.ContextGroup:
		out.GroupID = m.ContextID
	case cnst.ContextThread:
		out.ThreadID = m.ContextID
	case cnst.ContextPost:
		out.PostID = m.ContextID
	}
	return out
}

// NewMessage builds a row from a validated context, author principal
// and body. The store assigns ID and CreatedAt on persist.
func NewMessage(key chat.Context, principal *chat.Principal, content string) *Message {
	return &Message{
		UserID:      principal.UserID,
		Username:    principal.Username,
		UserAvatar:  principal.Avatar,
		Content:     content,
		ContextType: string(key.Type),
		ContextID:   key.ID,
	}
}
