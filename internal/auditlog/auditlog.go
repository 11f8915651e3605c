// Package auditlog persists per-request workflow traces. It captures who
// asked what, how the request was classified and how each stage performed,
// and stores the record in a configurable backend.
package auditlog

import (
	"context"
	"strings"
	"time"

	"chatgate/internal/core"
)

// TraceStore defines the interface for trace storage backends.
// Implementations must be safe for concurrent use.
type TraceStore interface {
	// WriteBatch writes multiple trace entries to storage.
	// Called by the Logger when flushing buffered entries.
	WriteBatch(ctx context.Context, entries []*TraceEntry) error

	// Flush forces any pending writes to complete.
	Flush(ctx context.Context) error

	// Close releases resources and flushes pending writes.
	Close() error
}

// TraceEntry is one persisted request trace.
// Core fields are indexed for efficient queries.
type TraceEntry struct {
	// ID is a unique identifier for this entry (UUID).
	ID string `json:"id" bson:"_id"`

	// Timestamp is when the request started.
	Timestamp time.Time `json:"timestamp" bson:"timestamp"`

	// DurationNs is the request duration in nanoseconds.
	DurationNs int64 `json:"duration_ns" bson:"duration_ns"`

	// Core fields (indexed for queries)
	Outcome    string `json:"outcome" bson:"outcome"`
	Category   string `json:"category,omitempty" bson:"category,omitempty"`
	Strategy   string `json:"strategy,omitempty" bson:"strategy,omitempty"`
	StatusCode int    `json:"status_code" bson:"status_code"`

	// Data contains flexible request/trace information as JSON.
	Data *TraceData `json:"data" bson:"data"`
}

// Trace outcomes. Rejections carry the error kind instead.
const (
	OutcomeResponded = "responded"
)

// TraceData contains flexible request/trace information.
// Fields are omitted when empty to save storage space.
type TraceData struct {
	// Identity
	RequestID      string `json:"request_id,omitempty" bson:"request_id,omitempty"`
	ClientIP       string `json:"client_ip,omitempty" bson:"client_ip,omitempty"`
	UserAgent      string `json:"user_agent,omitempty" bson:"user_agent,omitempty"`
	UserID         string `json:"user_id,omitempty" bson:"user_id,omitempty"`
	ConversationID string `json:"conversation_id,omitempty" bson:"conversation_id,omitempty"`

	// Request
	Method string `json:"method,omitempty" bson:"method,omitempty"`
	Path   string `json:"path,omitempty" bson:"path,omitempty"`

	// Classification
	Confidence float64 `json:"confidence,omitempty" bson:"confidence,omitempty"`
	Reasoning  string  `json:"reasoning,omitempty" bson:"reasoning,omitempty"`

	// Workflow trace
	Steps []core.WorkflowStep `json:"steps,omitempty" bson:"steps,omitempty"`

	// Failure details. ErrorID correlates with the opaque id returned to
	// the caller; raw input text is never stored on rejections.
	ErrorType string `json:"error_type,omitempty" bson:"error_type,omitempty"`
	ErrorID   string `json:"error_id,omitempty" bson:"error_id,omitempty"`

	// Optional headers (when LOG_HEADERS is enabled); sensitive headers
	// are auto-redacted.
	RequestHeaders map[string]string `json:"request_headers,omitempty" bson:"request_headers,omitempty"`

	// Optional bodies (when LOG_BODIES is enabled). Stored as interface{}
	// so MongoDB serializes native BSON documents instead of base64 blobs.
	RequestBody  interface{} `json:"request_body,omitempty" bson:"request_body,omitempty"`
	ResponseBody interface{} `json:"response_body,omitempty" bson:"response_body,omitempty"`
}

// RedactedHeaders are replaced with "[REDACTED]" to keep secrets out of
// the trace log.
var RedactedHeaders = []string{
	"authorization",
	"x-api-key",
	"cookie",
	"set-cookie",
	"x-auth-token",
	"x-access-token",
	"proxy-authorization",
}

// RedactHeaders redacts sensitive headers from a header map.
// The original map is not modified; a new map is returned.
func RedactHeaders(headers map[string]string) map[string]string {
	if headers == nil {
		return nil
	}

	result := make(map[string]string, len(headers))
	for key, value := range headers {
		keyLower := strings.ToLower(key)
		redacted := false
		for _, redactKey := range RedactedHeaders {
			if keyLower == redactKey {
				result[key] = "[REDACTED]"
				redacted = true
				break
			}
		}
		if !redacted {
			result[key] = value
		}
	}
	return result
}

// Config holds trace logging configuration.
type Config struct {
	// Enabled controls whether trace logging is active.
	Enabled bool

	// LogBodies enables logging of full request/response bodies.
	LogBodies bool

	// LogHeaders enables logging of request headers.
	LogHeaders bool

	// BufferSize is the number of entries buffered before new ones are dropped.
	BufferSize int

	// FlushInterval is how often buffered entries are flushed.
	FlushInterval time.Duration

	// RetentionDays is how long to keep traces (0 = forever).
	RetentionDays int
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Enabled:       false,
		LogBodies:     false,
		LogHeaders:    false,
		BufferSize:    1000,
		FlushInterval: 5 * time.Second,
		RetentionDays: 30,
	}
}
