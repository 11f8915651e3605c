package router

import (
	"regexp"
	"strings"

	"chatgate/internal/core"
)

// Rule-based classification. Deterministic and total: RuleDecision always
// returns a decision, so the router can never fail even with the generative
// backend completely down.

var mathKeywords = []string{
	"calculate", "compute", "solve", "math", "mathematical",
	"addition", "subtraction", "multiplication", "division",
	"plus", "minus", "times", "divided", "equals", "=",
	"sum", "difference", "product", "quotient", "percentage",
	"percent", "%", "+", "-", "*", "/", "(", ")",
}

var knowledgeKeywords = []string{
	"help", "how", "what", "where", "when", "why", "explain",
	"documentation", "guide", "tutorial", "support", "api",
	"payment", "integration", "webhook",
	"authentication", "token", "credentials",
}

func containsAny(s string, substrs []string) bool {
	for _, sub := range substrs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func containsDigit(s string) bool {
	for _, r := range s {
		if r >= '0' && r <= '9' {
			return true
		}
	}
	return false
}

// numericTimes matches the spelled multiplication form "65 x 3.11".
var numericTimes = regexp.MustCompile(`(?i)\d\s*[x×÷]\s*\d`)

// isMathExpression reports whether the message looks like arithmetic:
// an operator or a math keyword, in both cases alongside at least one digit.
func isMathExpression(message string) bool {
	lower := strings.ToLower(message)
	hasOperators := strings.ContainsAny(message, "+-*/=()") || numericTimes.MatchString(message)
	hasMathKeywords := containsAny(lower, mathKeywords)
	hasNumbers := containsDigit(message)
	return (hasOperators && hasNumbers) || (hasMathKeywords && hasNumbers)
}

// isKnowledgeQuery reports whether the message reads like a help or
// documentation question.
func isKnowledgeQuery(message string) bool {
	lower := strings.ToLower(message)
	if containsAny(lower, knowledgeKeywords) {
		return true
	}
	return strings.HasSuffix(strings.TrimSpace(message), "?")
}

// RuleDecision classifies a message with the deterministic keyword rules.
// Ambiguous input defaults to the knowledge category, never math.
func RuleDecision(message string) core.RoutingDecision {
	switch {
	case isMathExpression(message):
		return core.RoutingDecision{
			Category:   core.CategoryMath,
			Confidence: 0.8,
			Reasoning:  "Mathematical expression detected",
			Strategy:   core.StrategyRuleFallback,
		}
	case isKnowledgeQuery(message):
		return core.RoutingDecision{
			Category:   core.CategoryKnowledge,
			Confidence: 0.7,
			Reasoning:  "Knowledge query detected",
			Strategy:   core.StrategyRuleFallback,
		}
	default:
		return core.RoutingDecision{
			Category:   core.CategoryKnowledge,
			Confidence: 0.5,
			Reasoning:  "Default to knowledge agent for general queries",
			Strategy:   core.StrategyRuleFallback,
		}
	}
}
