package core

import "context"

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

const (
	requestIDKey contextKey = "request-id"
	clientKeyKey contextKey = "client-key"
)

// WithRequestID returns a new context with the request ID attached.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// GetRequestID retrieves the request ID from the context.
// Returns empty string if not found.
func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey).(string); ok {
		return id
	}
	return ""
}

// WithClientKey returns a new context carrying the resolved client identity
// used for rate limiting and audit logs.
func WithClientKey(ctx context.Context, key string) context.Context {
	return context.WithValue(ctx, clientKeyKey, key)
}

// GetClientKey retrieves the resolved client identity from the context.
// Returns "unknown" if the middleware never resolved one.
func GetClientKey(ctx context.Context) string {
	if key, ok := ctx.Value(clientKeyKey).(string); ok && key != "" {
		return key
	}
	return "unknown"
}
