// Package workflow sequences the request lifecycle: admission, routing,
// handler dispatch, response framing and best-effort persistence. Its
// availability guarantee is that every admitted request yields exactly one
// response with a non-empty final text, whatever the collaborators do.
package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"chatgate/internal/core"
	"chatgate/internal/guard"
	"chatgate/internal/history"
	"chatgate/internal/observability"
	"chatgate/internal/router"
)

// DefaultHandlerTimeout bounds one category handler call.
const DefaultHandlerTimeout = 30 * time.Second

// handlerApology replaces the answer when the bound handler fails.
const handlerApology = "Desculpe, não consegui processar sua solicitação no momento. Tente novamente em alguns instantes."

// Orchestrator runs the full chat workflow.
type Orchestrator struct {
	guard          *guard.Guard
	router         *router.Router
	handlers       map[core.Category]core.Handler
	store          history.Store
	handlerTimeout time.Duration
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithHandlerTimeout overrides the per-handler timeout.
func WithHandlerTimeout(d time.Duration) Option {
	return func(o *Orchestrator) {
		if d > 0 {
			o.handlerTimeout = d
		}
	}
}

// New creates an orchestrator. The store may be nil, which disables
// persistence entirely.
func New(g *guard.Guard, r *router.Router, handlers map[core.Category]core.Handler, store history.Store, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		guard:          g,
		router:         r,
		handlers:       handlers,
		store:          store,
		handlerTimeout: DefaultHandlerTimeout,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Process runs one request through the workflow. A non-nil GatewayError
// means the request was rejected at admission; past that point the
// orchestrator always returns a ChatResponse, degrading to canned text on
// collaborator failure.
func (o *Orchestrator) Process(ctx context.Context, req *core.ChatRequest) (*core.ChatResponse, core.RoutingDecision, *core.GatewayError) {
	clientKey := core.GetClientKey(ctx)

	admitted, gerr := o.guard.Admit(clientKey, req)
	if gerr != nil {
		observability.RecordAdmission(string(gerr.Kind))
		return nil, core.RoutingDecision{}, gerr
	}
	observability.RecordAdmission("admitted")

	conversationID := admitted.ConversationID
	if conversationID == "" {
		conversationID = history.NewConversationID()
	}

	o.persist(ctx, conversationID, core.ChatMessage{
		Message:        admitted.Message,
		Timestamp:      time.Now().UTC(),
		UserID:         admitted.UserID,
		ConversationID: conversationID,
		Role:           "user",
	})

	var steps []core.WorkflowStep

	routeStart := time.Now()
	decision := o.router.Decide(ctx, admitted.Message)
	observability.RecordRoutingDecision(string(decision.Category), string(decision.Strategy))
	steps = append(steps, core.WorkflowStep{
		Agent:         "RouterAgent",
		Decision:      string(decision.Category),
		ExecutionTime: time.Since(routeStart).Seconds(),
		Metadata: map[string]interface{}{
			"confidence": decision.Confidence,
			"reasoning":  decision.Reasoning,
			"strategy":   string(decision.Strategy),
		},
	})

	answer, handlerStep := o.dispatch(ctx, decision.Category, admitted.Message)
	steps = append(steps, handlerStep)

	var finalText string
	switch decision.Category {
	case core.CategoryMath:
		finalText = addMathPersonality(answer)
	default:
		finalText = addKnowledgePersonality(answer)
	}

	o.persist(ctx, conversationID, core.ChatMessage{
		Message:        finalText,
		Timestamp:      time.Now().UTC(),
		UserID:         admitted.UserID,
		ConversationID: conversationID,
		Role:           "assistant",
	})

	return &core.ChatResponse{
		Response:            finalText,
		SourceAgentResponse: answer,
		AgentWorkflow:       steps,
		ConversationID:      conversationID,
		Timestamp:           time.Now().UTC(),
		UserID:              admitted.UserID,
	}, decision, nil
}

// dispatch runs the category handler with a bounded timeout and converts
// any failure into the apology answer plus a failure step.
func (o *Orchestrator) dispatch(ctx context.Context, category core.Category, message string) (string, core.WorkflowStep) {
	handler, ok := o.handlers[category]
	start := time.Now()

	if !ok {
		slog.Error("no handler bound for category", "category", category)
		return handlerApology, core.WorkflowStep{
			Agent:         string(category),
			ExecutionTime: time.Since(start).Seconds(),
			Metadata: map[string]interface{}{
				"error": "no handler bound",
			},
		}
	}

	hctx, cancel := context.WithTimeout(ctx, o.handlerTimeout)
	defer cancel()

	result, err := handler.Handle(hctx, message)
	elapsed := time.Since(start)
	observability.RecordHandlerDuration(handler.Name(), elapsed, err != nil)

	if err != nil {
		slog.Warn("handler failed, substituting apology",
			"request_id", core.GetRequestID(ctx),
			"agent", handler.Name(),
			"error", err)
		return handlerApology, core.WorkflowStep{
			Agent:         handler.Name(),
			ExecutionTime: elapsed.Seconds(),
			Metadata: map[string]interface{}{
				"error": "handler_failure",
			},
		}
	}

	return result.Answer, core.WorkflowStep{
		Agent:         handler.Name(),
		ExecutionTime: elapsed.Seconds(),
		Metadata:      result.Metadata,
	}
}

// persist appends a message best-effort; failures are logged, never
// propagated.
func (o *Orchestrator) persist(ctx context.Context, conversationID string, msg core.ChatMessage) {
	if o.store == nil {
		return
	}
	if err := o.store.Append(ctx, conversationID, msg); err != nil {
		slog.Warn("failed to persist message",
			"request_id", core.GetRequestID(ctx),
			"conversation_id", conversationID,
			"error", err)
	}
}

// History returns the stored transcript for a conversation, or nil when
// it does not exist.
func (o *Orchestrator) History(ctx context.Context, conversationID string) (*history.Conversation, error) {
	if o.store == nil {
		return nil, nil
	}
	return o.store.Fetch(ctx, conversationID)
}

// UserConversations lists the conversation ids belonging to a user.
func (o *Orchestrator) UserConversations(ctx context.Context, userID string) ([]string, error) {
	if o.store == nil {
		return nil, nil
	}
	return o.store.ListByUser(ctx, userID)
}

// CheckStore reports persistence reachability for the health endpoint.
func (o *Orchestrator) CheckStore(ctx context.Context) error {
	if o.store == nil {
		return fmt.Errorf("persistence disabled")
	}
	return o.store.Ping(ctx)
}
