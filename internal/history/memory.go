package history

import (
	"context"
	"sync"
	"time"

	"chatgate/internal/core"
)

// MemoryStore is an in-process Store for tests and single-node development.
type MemoryStore struct {
	mu            sync.RWMutex
	conversations map[string]*Conversation
}

// NewMemoryStore creates an empty in-memory conversation store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{conversations: make(map[string]*Conversation)}
}

func (s *MemoryStore) Append(_ context.Context, conversationID string, msg core.ChatMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	conv, ok := s.conversations[conversationID]
	if !ok {
		userID := msg.UserID
		if userID == "" {
			userID = "anonymous"
		}
		conv = &Conversation{
			ConversationID: conversationID,
			UserID:         userID,
			CreatedAt:      now,
		}
		s.conversations[conversationID] = conv
	}
	conv.Messages = append(conv.Messages, msg)
	conv.UpdatedAt = now
	return nil
}

func (s *MemoryStore) Fetch(_ context.Context, conversationID string) (*Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	conv, ok := s.conversations[conversationID]
	if !ok {
		return nil, nil
	}
	// Copy so callers cannot mutate shared state.
	out := *conv
	out.Messages = append([]core.ChatMessage(nil), conv.Messages...)
	return &out, nil
}

func (s *MemoryStore) ListByUser(_ context.Context, userID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var ids []string
	for _, conv := range s.conversations {
		if conv.UserID == userID {
			ids = append(ids, conv.ConversationID)
		}
	}
	return ids, nil
}

func (s *MemoryStore) Ping(context.Context) error { return nil }

func (s *MemoryStore) Close() error { return nil }
