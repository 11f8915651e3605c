// Package history persists conversation transcripts. The store is
// best-effort from the orchestrator's point of view: append failures are
// logged, never surfaced to the caller.
package history

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"chatgate/internal/core"
)

// DefaultRetention is how long a conversation survives without activity.
const DefaultRetention = 30 * 24 * time.Hour

// Conversation is a stored transcript.
type Conversation struct {
	ConversationID string             `json:"conversation_id"`
	UserID         string             `json:"user_id"`
	Messages       []core.ChatMessage `json:"messages"`
	CreatedAt      time.Time          `json:"created_at"`
	UpdatedAt      time.Time          `json:"updated_at"`
}

// Store appends and fetches ordered message lists keyed by conversation.
type Store interface {
	// Append adds a message to the conversation, creating it on first use.
	Append(ctx context.Context, conversationID string, msg core.ChatMessage) error

	// Fetch returns the conversation, or nil when it does not exist.
	Fetch(ctx context.Context, conversationID string) (*Conversation, error)

	// ListByUser returns the conversation ids belonging to a user.
	ListByUser(ctx context.Context, userID string) ([]string, error)

	// Ping reports whether the store is reachable.
	Ping(ctx context.Context) error

	Close() error
}

// NewConversationID mints a fresh conversation identifier.
func NewConversationID() string {
	return fmt.Sprintf("conv-%s", uuid.NewString()[:8])
}
