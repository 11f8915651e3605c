package agents

import (
	"context"
	"log/slog"

	"chatgate/internal/core"
)

// KnowledgeAgent answers documentation questions through the retrieval
// collaborator, falling back to the bare generative backend when retrieval
// is unavailable.
type KnowledgeAgent struct {
	retriever core.Retriever
	generator core.Generator
}

// NewKnowledgeAgent creates the knowledge handler. Either collaborator may
// be nil; Handle fails only when no source can produce an answer.
func NewKnowledgeAgent(retriever core.Retriever, generator core.Generator) *KnowledgeAgent {
	return &KnowledgeAgent{retriever: retriever, generator: generator}
}

// Name implements core.Handler.
func (a *KnowledgeAgent) Name() string { return "KnowledgeAgent" }

// Handle answers the message, preferring grounded retrieval answers with
// their source list over ungrounded backend generations.
func (a *KnowledgeAgent) Handle(ctx context.Context, message string) (*core.HandlerResult, error) {
	if a.retriever != nil {
		res, err := a.retriever.RetrieveAndAnswer(ctx, message)
		if err == nil {
			return &core.HandlerResult{
				Answer: res.Answer,
				Metadata: map[string]interface{}{
					"sources":   res.Sources,
					"retrieval": true,
				},
			}, nil
		}
		slog.Warn("retrieval failed, falling back to generator",
			"request_id", core.GetRequestID(ctx),
			"error", err)
	}

	if a.generator == nil {
		return nil, core.NewBackendUnavailableError("knowledge", nil)
	}

	answer, err := a.generator.Generate(ctx, &core.GenerateRequest{
		Prompt:      message,
		System:      "You are a helpful support assistant. Answer questions about the product and its API concisely.",
		Temperature: 0.3,
		MaxTokens:   500,
	})
	if err != nil {
		return nil, err
	}

	return &core.HandlerResult{
		Answer: answer,
		Metadata: map[string]interface{}{
			"retrieval": false,
		},
	}, nil
}
