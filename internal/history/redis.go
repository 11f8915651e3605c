package history

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"chatgate/internal/core"
)

const conversationKeyPrefix = "conversation:"

// RedisConfig holds the Redis connection configuration.
type RedisConfig struct {
	// URL is the Redis connection URL (e.g., "redis://localhost:6379" or "redis://:password@host:6379/0")
	URL string

	// Retention is the per-conversation expiry (defaults to 30 days).
	Retention time.Duration
}

// RedisStore implements Store on a Redis hash per conversation. Suitable
// for multi-instance deployments behind a load balancer.
type RedisStore struct {
	client    *redis.Client
	retention time.Duration
}

// NewRedisStore creates a Redis-backed conversation store.
func NewRedisStore(cfg RedisConfig) (*RedisStore, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	retention := cfg.Retention
	if retention == 0 {
		retention = DefaultRetention
	}

	slog.Info("redis history store connected", "retention", retention)

	return &RedisStore{
		client:    client,
		retention: retention,
	}, nil
}

func conversationKey(conversationID string) string {
	return conversationKeyPrefix + conversationID
}

// Append adds a message to the conversation hash and refreshes its expiry.
func (s *RedisStore) Append(ctx context.Context, conversationID string, msg core.ChatMessage) error {
	key := conversationKey(conversationID)

	conv, err := s.fetch(ctx, key)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	if conv == nil {
		userID := msg.UserID
		if userID == "" {
			userID = "anonymous"
		}
		conv = &Conversation{
			ConversationID: conversationID,
			UserID:         userID,
			CreatedAt:      now,
		}
	}
	conv.Messages = append(conv.Messages, msg)
	conv.UpdatedAt = now

	data, err := json.Marshal(conv)
	if err != nil {
		return fmt.Errorf("failed to marshal conversation: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, key, map[string]interface{}{
		"data":       data,
		"updated_at": now.Format(time.RFC3339),
	})
	pipe.Expire(ctx, key, s.retention)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save conversation: %w", err)
	}
	return nil
}

// Fetch returns the stored conversation, or nil when absent.
func (s *RedisStore) Fetch(ctx context.Context, conversationID string) (*Conversation, error) {
	return s.fetch(ctx, conversationKey(conversationID))
}

func (s *RedisStore) fetch(ctx context.Context, key string) (*Conversation, error) {
	data, err := s.client.HGet(ctx, key, "data").Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get conversation from redis: %w", err)
	}

	var conv Conversation
	if err := json.Unmarshal(data, &conv); err != nil {
		return nil, fmt.Errorf("failed to parse conversation from redis: %w", err)
	}
	return &conv, nil
}

// ListByUser scans conversation keys and filters by owner. Linear in the
// number of stored conversations; acceptable at this scale.
func (s *RedisStore) ListByUser(ctx context.Context, userID string) ([]string, error) {
	var ids []string
	iter := s.client.Scan(ctx, 0, conversationKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		conv, err := s.fetch(ctx, iter.Val())
		if err != nil || conv == nil {
			continue
		}
		if conv.UserID == userID {
			ids = append(ids, conv.ConversationID)
		}
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan conversations: %w", err)
	}
	return ids, nil
}

// Ping reports store reachability for the health endpoint.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the Redis connection.
func (s *RedisStore) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}
