package auditlog

import (
	"bufio"
	"bytes"
	"compress/flate"
	"compress/gzip"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/andybalholm/brotli"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"chatgate/internal/core"
)

// Middleware creates an Echo middleware for trace logging. Only the
// conversational routes are traced; operational endpoints such as /health
// and /metrics pass through untouched. The middleware captures request
// metadata at the start and trace metadata at the end, then writes the
// entry asynchronously.
func Middleware(logger LoggerInterface) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if logger == nil || !logger.Config().Enabled {
				return next(c)
			}
			if !IsConversationPath(c.Request().URL.Path) {
				return next(c)
			}

			cfg := logger.Config()
			start := time.Now()
			req := c.Request()

			// The identity middleware stores the correlation id in the
			// request context before we run; fall back to minting one
			// only when the middleware is mounted standalone.
			requestID := core.GetRequestID(req.Context())
			if requestID == "" {
				requestID = uuid.NewString()
			}
			c.Response().Header().Set("X-Request-ID", requestID)

			entry := &TraceEntry{
				ID:        uuid.NewString(),
				Timestamp: start,
				Data: &TraceData{
					RequestID: requestID,
					ClientIP:  c.RealIP(),
					UserAgent: req.UserAgent(),
					Method:    req.Method,
					Path:      req.URL.Path,
				},
			}

			if cfg.LogHeaders {
				entry.Data.RequestHeaders = extractHeaders(req.Header)
			}

			var requestBody []byte
			if cfg.LogBodies && req.Body != nil && req.ContentLength > 0 && req.ContentLength <= MaxBodyCapture {
				bodyBytes, err := io.ReadAll(req.Body)
				if err == nil {
					requestBody = bodyBytes
					// Restore the body for the handler.
					req.Body = io.NopCloser(bytes.NewBuffer(bodyBytes))
				}
			}

			// Store entry in context so the chat handler can attach the
			// classification and workflow trace.
			c.Set(string(TraceEntryKey), entry)

			var responseCapture *responseBodyCapture
			if cfg.LogBodies {
				responseCapture = &responseBodyCapture{
					ResponseWriter: c.Response().Writer,
					body:           &bytes.Buffer{},
				}
				c.Response().Writer = responseCapture
			}

			err := next(c)

			entry.DurationNs = time.Since(start).Nanoseconds()
			entry.StatusCode = c.Response().Status
			if entry.Outcome == "" {
				entry.Outcome = OutcomeResponded
			}

			// The raw input is attached only for answered requests.
			// Rejected messages never reach the trace log.
			if len(requestBody) > 0 && entry.Outcome == OutcomeResponded {
				entry.Data.RequestBody = toJSONOrString(requestBody)
			}

			if cfg.LogBodies && responseCapture != nil && responseCapture.body.Len() > 0 {
				bodyBytes := responseCapture.body.Bytes()
				if enc := c.Response().Header().Get("Content-Encoding"); enc != "" {
					if decompressed, ok := decompressBody(bodyBytes, enc); ok {
						bodyBytes = decompressed
					}
				}
				entry.Data.ResponseBody = toJSONOrString(bodyBytes)
			}

			logger.Write(entry)

			return err
		}
	}
}

// EnrichEntryWithWorkflow attaches the routing decision and step trace to
// the in-flight entry.
func EnrichEntryWithWorkflow(c echo.Context, resp *core.ChatResponse, decision core.RoutingDecision) {
	entry := entryFromContext(c)
	if entry == nil {
		return
	}

	entry.Category = string(decision.Category)
	entry.Strategy = string(decision.Strategy)
	entry.Data.Confidence = decision.Confidence
	entry.Data.Reasoning = decision.Reasoning
	entry.Data.ConversationID = resp.ConversationID
	entry.Data.UserID = resp.UserID
	entry.Data.Steps = resp.AgentWorkflow
}

// EnrichEntryWithError marks the entry as a rejection or failure.
// Only the error kind and correlation id are stored, never the input.
func EnrichEntryWithError(c echo.Context, kind, errorID string) {
	entry := entryFromContext(c)
	if entry == nil {
		return
	}

	entry.Outcome = kind
	entry.Data.ErrorType = kind
	entry.Data.ErrorID = errorID
}

// IsConversationPath returns true if the path is a conversational endpoint.
func IsConversationPath(path string) bool {
	tracedPaths := []string{
		"/chat",
		"/conversations",
	}
	for _, p := range tracedPaths {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}

func entryFromContext(c echo.Context) *TraceEntry {
	entryVal := c.Get(string(TraceEntryKey))
	if entryVal == nil {
		return nil
	}
	entry, ok := entryVal.(*TraceEntry)
	if !ok || entry == nil || entry.Data == nil {
		return nil
	}
	return entry
}

// responseBodyCapture wraps http.ResponseWriter to capture the response
// body. Flusher and Hijacker delegate to the wrapped writer when supported.
type responseBodyCapture struct {
	http.ResponseWriter
	body      *bytes.Buffer
	truncated bool
}

func (r *responseBodyCapture) Write(b []byte) (int, error) {
	if r.body.Len() < int(MaxBodyCapture) {
		r.body.Write(b)
		if r.body.Len() >= int(MaxBodyCapture) {
			r.truncated = true
		}
	}
	return r.ResponseWriter.Write(b)
}

func (r *responseBodyCapture) Flush() {
	if flusher, ok := r.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

func (r *responseBodyCapture) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if hijacker, ok := r.ResponseWriter.(http.Hijacker); ok {
		return hijacker.Hijack()
	}
	return nil, nil, http.ErrNotSupported
}

// extractHeaders flattens http.Header to first values and redacts
// sensitive keys.
func extractHeaders(headers map[string][]string) map[string]string {
	result := make(map[string]string, len(headers))
	for key, values := range headers {
		if len(values) > 0 {
			result[key] = values[0]
		}
	}
	return RedactHeaders(result)
}

// toJSONOrString parses bytes as JSON when possible so MongoDB stores a
// native document; otherwise returns a valid UTF-8 string.
func toJSONOrString(b []byte) interface{} {
	var parsed interface{}
	if err := json.Unmarshal(b, &parsed); err == nil {
		return parsed
	}
	if utf8.Valid(b) {
		return string(b)
	}
	return strings.ToValidUTF8(string(b), "�")
}

// decompressBody decompresses a captured response body based on
// Content-Encoding. Supports gzip, deflate and brotli (br); returns the
// original bytes unchanged on any failure.
func decompressBody(body []byte, contentEncoding string) ([]byte, bool) {
	if len(body) == 0 || contentEncoding == "" {
		return body, false
	}

	encoding := strings.ToLower(strings.TrimSpace(strings.Split(contentEncoding, ",")[0]))
	if encoding == "identity" || encoding == "" {
		return body, false
	}

	// Compression bomb protection.
	const maxDecompressedSize = 2 * 1024 * 1024

	var reader io.ReadCloser
	var err error

	switch encoding {
	case "gzip":
		reader, err = gzip.NewReader(bytes.NewReader(body))
	case "deflate":
		reader = flate.NewReader(bytes.NewReader(body))
	case "br":
		reader = io.NopCloser(brotli.NewReader(bytes.NewReader(body)))
	default:
		return body, false
	}

	if err != nil {
		return body, false
	}
	defer reader.Close()

	decompressed, err := io.ReadAll(io.LimitReader(reader, maxDecompressedSize))
	if err != nil {
		return body, false
	}

	return decompressed, true
}
