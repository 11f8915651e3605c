package auditlog

// Capture limits for trace logging.
const (
	// MaxBodyCapture is the maximum size of request/response bodies to
	// capture (1MB). Prevents memory exhaustion from large payloads.
	MaxBodyCapture = 1024 * 1024
)

// Context keys for storing trace data in request context.
type contextKey string

const (
	// TraceEntryKey is the echo context key for the in-flight trace entry.
	TraceEntryKey contextKey = "auditlog_entry"
)
