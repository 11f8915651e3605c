// Package agents implements the per-category handlers the orchestrator
// dispatches to: a local arithmetic solver and a retrieval-grounded
// knowledge answerer.
package agents

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"chatgate/internal/core"
)

// questionPhrases are stripped from the message before looking for the
// arithmetic expression itself.
var questionPhrases = []*regexp.Regexp{
	regexp.MustCompile(`(?i)how much is\s*`),
	regexp.MustCompile(`(?i)what is\s*`),
	regexp.MustCompile(`(?i)what's\s*`),
	regexp.MustCompile(`(?i)calculate\s*`),
	regexp.MustCompile(`(?i)compute\s*`),
	regexp.MustCompile(`(?i)solve\s*`),
	regexp.MustCompile(`(?i)can you\s*`),
	regexp.MustCompile(`(?i)could you\s*`),
	regexp.MustCompile(`(?i)would you\s*`),
	regexp.MustCompile(`(?i)please\s*`),
}

// expressionRun matches candidate arithmetic substrings.
var expressionRun = regexp.MustCompile(`[\d+\-*/().×÷\s]+`)

// spelledTimes normalizes the "65 x 3.11" multiplication form.
var spelledTimes = regexp.MustCompile(`(?i)(\d)\s*x\s*(\d)`)

// MathAgent solves arithmetic locally and optionally asks the generative
// backend for a step-by-step explanation.
type MathAgent struct {
	generator core.Generator
}

// NewMathAgent creates the math handler. A nil generator skips the LLM
// explanation step.
func NewMathAgent(generator core.Generator) *MathAgent {
	return &MathAgent{generator: generator}
}

// Name implements core.Handler.
func (a *MathAgent) Name() string { return "MathAgent" }

// Handle extracts the arithmetic expression, evaluates it locally and
// formats the answer. The computation itself never depends on the backend:
// the explanation degrades to a canned line when the backend is down.
func (a *MathAgent) Handle(ctx context.Context, message string) (*core.HandlerResult, error) {
	expression := extractExpression(message)
	if expression == "" {
		return &core.HandlerResult{
			Answer: "I couldn't find a mathematical expression in your message. Please provide a clear math problem.",
			Metadata: map[string]interface{}{
				"calculation_successful": false,
			},
		}, nil
	}

	result, err := evalExpression(expression)
	if err != nil {
		return &core.HandlerResult{
			Answer: fmt.Sprintf("I encountered an error: %s", evalErrorText(err)),
			Metadata: map[string]interface{}{
				"expression":             expression,
				"calculation_successful": false,
			},
		}, nil
	}

	explanation := a.explain(ctx, message, expression, result)

	answer := fmt.Sprintf("**Expression:** %s\n**Result:** %s\n\n**Explanation:**\n%s",
		expression, formatNumber(result), explanation)

	return &core.HandlerResult{
		Answer: answer,
		Metadata: map[string]interface{}{
			"expression":             expression,
			"result":                 result,
			"calculation_successful": true,
		},
	}, nil
}

func (a *MathAgent) explain(ctx context.Context, message, expression string, result float64) string {
	fallback := fmt.Sprintf("I can solve the expression %s, but I had trouble generating a detailed explanation.", expression)
	if a.generator == nil {
		return fallback
	}

	prompt := fmt.Sprintf(`The user asked: %q
The mathematical expression extracted is: %q and its result is %s.

Provide a clear, step-by-step explanation of how to solve this expression.
Include the final answer and show your work. Be concise but thorough.`,
		message, expression, formatNumber(result))

	explanation, err := a.generator.Generate(ctx, &core.GenerateRequest{
		Prompt:      prompt,
		Temperature: 0.1,
		MaxTokens:   300,
	})
	if err != nil {
		slog.Warn("math explanation backend failed",
			"request_id", core.GetRequestID(ctx),
			"error", err)
		return fallback
	}
	return explanation
}

// evalErrorText localizes evaluator failures into user-safe phrasing.
func evalErrorText(err error) string {
	if strings.Contains(err.Error(), "division by zero") {
		return "Division by zero error"
	}
	return "Invalid mathematical expression"
}

// extractExpression strips question phrasing and returns the longest
// arithmetic-looking run in the message.
func extractExpression(message string) string {
	expr := spelledTimes.ReplaceAllString(strings.TrimSpace(message), "$1 * $2")
	for _, re := range questionPhrases {
		expr = re.ReplaceAllString(expr, "")
	}
	expr = strings.TrimSpace(strings.TrimRight(expr, "?"))
	if expr == "" {
		return ""
	}

	// A bare number is already an expression.
	if _, err := strconv.ParseFloat(expr, 64); err == nil {
		return expr
	}

	best := ""
	for _, m := range expressionRun.FindAllString(expr, -1) {
		m = strings.TrimSpace(m)
		if len(m) > 1 && strings.ContainsAny(m, "0123456789") && len(m) > len(best) {
			best = m
		}
	}
	return best
}

// formatNumber renders integers without a trailing ".0".
func formatNumber(v float64) string {
	if v == float64(int64(v)) {
		return strconv.FormatInt(int64(v), 10)
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
