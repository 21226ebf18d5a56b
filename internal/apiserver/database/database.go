// Package database is the durable store behind the chat subsystem:
// user accounts and chat messages, queryable by context with
// limit/offset pagination.
package database

import (
	"context"
)

// Store defines the durable persistence operations.
type Store interface {
	// Close closes the database connection.
	Close() error

	// CreateUser persists a new user account.
	CreateUser(ctx context.Context, user *User) error

	// GetUserByUsername looks a user up by unique username.
	GetUserByUsername(ctx context.Context, username string) (*User, error)

	// CreateMessage persists a message and assigns its id.
	CreateMessage(ctx context.Context, message *Message) error

	// GetMessage fetches one message by id.
	GetMessage(ctx context.Context, id uint64) (*Message, error)

	// GetMessagesByContext returns messages of one context, newest
	// first, with limit/offset pagination.
	GetMessagesByContext(ctx context.Context, contextType string, contextID *int64, limit, offset int) ([]*Message, error)

	// DeleteMessage removes a message by id.
	DeleteMessage(ctx context.Context, id uint64) error
}
