// Package core defines the core types and interfaces for the chat gateway.
package core

import "time"

// Category identifies the handling class a message is routed to.
type Category string

const (
	// CategoryKnowledge routes to the documentation / RAG agent.
	CategoryKnowledge Category = "knowledge"
	// CategoryMath routes to the arithmetic agent.
	CategoryMath Category = "math"
)

// Strategy identifies which classification strategy produced a decision.
type Strategy string

const (
	// StrategyLLM means the decision came from the generative backend.
	StrategyLLM Strategy = "llm"
	// StrategyRuleFallback means the deterministic rule engine decided.
	StrategyRuleFallback Strategy = "rule_fallback"
)

// ChatRequest is the inbound body of POST /chat.
type ChatRequest struct {
	Message        string `json:"message"`
	UserID         string `json:"user_id,omitempty"`
	ConversationID string `json:"conversation_id,omitempty"`
}

// RoutingDecision is the classifier's verdict for one message.
// It is created once per request and immutable thereafter.
type RoutingDecision struct {
	Category   Category `json:"category"`
	Confidence float64  `json:"confidence"`
	Reasoning  string   `json:"reasoning"`
	Strategy   Strategy `json:"strategy"`
}

// WorkflowStep records one stage of the per-request processing trace.
type WorkflowStep struct {
	Agent         string                 `json:"agent"`
	Decision      string                 `json:"decision,omitempty"`
	ExecutionTime float64                `json:"execution_time"`
	Metadata      map[string]interface{} `json:"metadata,omitempty"`
}

// ChatResponse is the terminal artifact of one request.
type ChatResponse struct {
	Response            string         `json:"response"`
	SourceAgentResponse string         `json:"source_agent_response"`
	AgentWorkflow       []WorkflowStep `json:"agent_workflow"`
	ConversationID      string         `json:"conversation_id"`
	Timestamp           time.Time      `json:"timestamp"`
	UserID              string         `json:"user_id,omitempty"`
}

// ChatMessage is a single persisted message in a conversation transcript.
type ChatMessage struct {
	Message        string    `json:"message"`
	Timestamp      time.Time `json:"timestamp"`
	UserID         string    `json:"user_id,omitempty"`
	ConversationID string    `json:"conversation_id,omitempty"`
	Role           string    `json:"role,omitempty"`
}

// HandlerResult is what a category handler returns: the raw answer text plus
// category-specific metadata recorded in the workflow trace.
type HandlerResult struct {
	Answer   string
	Metadata map[string]interface{}
}

// GenerateRequest is a prompt sent to the generative backend.
type GenerateRequest struct {
	Prompt      string
	System      string
	Temperature float64
	MaxTokens   int
}

// RetrievalResult is a ranked passage returned by the retrieval backend.
type RetrievalResult struct {
	Answer  string
	Sources []string
}
