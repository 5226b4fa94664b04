// Package conversation persists chat threads and their messages. Each user
// has one active conversation (the most recently updated); message order is
// a per-conversation sequence assigned under a row lock.
package conversation

import (
	"time"

	"github.com/google/uuid"
)

// Message roles. The check constraint on conversation_messages enforces
// the same two values.
const (
	RoleUser  = "user"
	RoleModel = "model"
)

const (
	// DefaultHistoryLimit is used when the caller passes limit <= 0.
	DefaultHistoryLimit = 20

	// MaxHistoryLimit caps how many messages one call may return.
	MaxHistoryLimit = 200

	// TitleMaxLength caps stored conversation titles in runes.
	TitleMaxLength = 50
)

// Conversation is one user's chat thread.
type Conversation struct {
	ID        uuid.UUID
	UserID    string
	Title     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Message is a single turn in a conversation.
type Message struct {
	ID             int64
	ConversationID uuid.UUID
	Sequence       int
	Role           string
	Content        string
	CreatedAt      time.Time
}
