// Package guard composes the rate limiter, field validators, injection
// detector and sanitizer into the admission check every request passes
// before routing.
package guard

import (
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"unicode/utf8"

	"chatgate/internal/core"
	"chatgate/internal/observability"
	"chatgate/internal/ratelimit"
	"chatgate/internal/security"
)

// DefaultMaxMessageLength caps the message field, counted in code points.
const DefaultMaxMessageLength = 2000

// idPattern constrains user and conversation identifiers.
var idPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,100}$`)

// Guard runs the admission sequence for inbound chat requests.
type Guard struct {
	limiter   *ratelimit.Limiter
	sanitizer *security.Sanitizer
	detector  *security.Detector
	maxLen    int
}

// Option configures a Guard.
type Option func(*Guard)

// WithMaxMessageLength overrides the message length cap.
func WithMaxMessageLength(n int) Option {
	return func(g *Guard) {
		if n > 0 {
			g.maxLen = n
		}
	}
}

// New creates a guard around the given limiter.
func New(limiter *ratelimit.Limiter, opts ...Option) *Guard {
	g := &Guard{
		limiter:   limiter,
		sanitizer: security.NewSanitizer(),
		detector:  security.NewDetector(),
		maxLen:    DefaultMaxMessageLength,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Admit runs the admission sequence, short-circuiting on the first failure.
// On success it returns a copy of the request with the message sanitized.
// Rejections log pattern identifiers only, never the offending input.
func (g *Guard) Admit(clientKey string, req *core.ChatRequest) (*core.ChatRequest, *core.GatewayError) {
	if !g.limiter.Allow(clientKey) {
		slog.Warn("rate limit exceeded", "client_key", clientKey)
		return nil, core.NewRateLimitedError()
	}

	if strings.TrimSpace(req.Message) == "" {
		return nil, core.NewValidationError(fmt.Errorf("message is required"))
	}

	// The detector sees raw text: sanitizing first would mangle the very
	// phrasings the patterns look for.
	verdict := g.detector.Detect(req.Message)
	if verdict.Suspicious {
		observability.RecordInjectionConfidence(verdict.Confidence)
		slog.Warn("prompt injection rejected",
			"client_key", clientKey,
			"confidence", verdict.Confidence,
			"patterns", verdict.Matched)
		return nil, core.NewPromptInjectionError(
			fmt.Errorf("matched %d injection patterns", len(verdict.Matched)))
	}

	if utf8.RuneCountInString(req.Message) > g.maxLen {
		return nil, core.NewValidationError(
			fmt.Errorf("message exceeds maximum length of %d characters", g.maxLen))
	}

	admitted := *req
	admitted.Message = g.sanitizer.Sanitize(req.Message)

	if req.UserID != "" && !idPattern.MatchString(req.UserID) {
		return nil, core.NewValidationError(fmt.Errorf("user_id has invalid format"))
	}
	if req.ConversationID != "" && !idPattern.MatchString(req.ConversationID) {
		return nil, core.NewValidationError(fmt.Errorf("conversation_id has invalid format"))
	}

	return &admitted, nil
}

// MaxMessageLength reports the configured message cap.
func (g *Guard) MaxMessageLength() int {
	return g.maxLen
}
