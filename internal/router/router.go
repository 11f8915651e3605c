// Package router classifies sanitized messages into a handling category.
// The primary strategy asks the generative backend for a structured verdict;
// a deterministic keyword rule engine backs it so classification never fails.
package router

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"chatgate/internal/core"
	"chatgate/internal/security"
)

// DefaultDecisionTimeout bounds one backend classification call.
const DefaultDecisionTimeout = 10 * time.Second

const systemPrompt = `You are a routing agent that decides which specialized agent should handle user messages.

Available agents:
1. MATH_AGENT: For mathematical calculations, expressions, and arithmetic operations
2. KNOWLEDGE_AGENT: For questions about the product API, documentation, and general help

Analyze the user message and respond with JSON only:
{
  "agent": "MATH_AGENT" or "KNOWLEDGE_AGENT",
  "confidence": 0.0 to 1.0,
  "reasoning": "Brief explanation of why this agent was chosen"
}`

// Router decides a target category per message.
type Router struct {
	generator core.Generator
	detector  *security.Detector
	timeout   time.Duration
}

// Option configures a Router.
type Option func(*Router)

// WithTimeout overrides the backend decision timeout.
func WithTimeout(d time.Duration) Option {
	return func(r *Router) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// New creates a router. A nil generator disables the LLM strategy entirely;
// every decision then comes from the rule engine.
func New(generator core.Generator, opts ...Option) *Router {
	r := &Router{
		generator: generator,
		detector:  security.NewDetector(),
		timeout:   DefaultDecisionTimeout,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Decide classifies one sanitized message. It never returns an error: any
// backend or parse failure falls through to the rule-based strategy.
func (r *Router) Decide(ctx context.Context, message string) core.RoutingDecision {
	if r.generator == nil {
		return RuleDecision(message)
	}

	decision, err := r.llmDecision(ctx, message)
	if err != nil {
		slog.Warn("llm routing failed, falling back to rules",
			"request_id", core.GetRequestID(ctx),
			"error", err)
		return RuleDecision(message)
	}
	return decision
}

func (r *Router) llmDecision(ctx context.Context, message string) (core.RoutingDecision, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	// Residual manipulation phrasing below the rejection threshold gets a
	// hardened preamble instead of the standard one.
	reply, err := r.generator.Generate(ctx, &core.GenerateRequest{
		Prompt:      "User message: " + message,
		System:      r.detector.SafePreamble(message) + "\n\n" + systemPrompt,
		Temperature: 0.1,
		MaxTokens:   200,
	})
	if err != nil {
		return core.RoutingDecision{}, err
	}

	return parseDecision(reply)
}

// parseDecision extracts the structured verdict from a backend reply.
// Models wrap JSON in prose or fences often enough that a strict decoder
// would defeat the primary strategy; gjson tolerates both.
func parseDecision(reply string) (core.RoutingDecision, error) {
	body := extractJSON(reply)
	if !gjson.Valid(body) {
		return core.RoutingDecision{}, fmt.Errorf("routing reply is not valid JSON")
	}

	agent := gjson.Get(body, "agent").String()
	var category core.Category
	switch agent {
	case "MATH_AGENT":
		category = core.CategoryMath
	case "KNOWLEDGE_AGENT":
		category = core.CategoryKnowledge
	default:
		return core.RoutingDecision{}, fmt.Errorf("routing reply names unknown agent %q", agent)
	}

	conf := gjson.Get(body, "confidence")
	if !conf.Exists() {
		return core.RoutingDecision{}, fmt.Errorf("routing reply missing confidence")
	}
	confidence := conf.Float()
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 1 {
		confidence = 1
	}

	return core.RoutingDecision{
		Category:   category,
		Confidence: confidence,
		Reasoning:  gjson.Get(body, "reasoning").String(),
		Strategy:   core.StrategyLLM,
	}, nil
}

// extractJSON trims code fences and surrounding prose down to the first
// top-level JSON object in the reply.
func extractJSON(reply string) string {
	s := strings.TrimSpace(reply)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		if idx := strings.Index(s, "```"); idx >= 0 {
			s = s[:idx]
		}
		s = strings.TrimSpace(s)
	}
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start >= 0 && end > start {
		return s[start : end+1]
	}
	return s
}
