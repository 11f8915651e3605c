package core

import "context"

// Generator is the generative-answer backend: given a prompt, it returns an
// answer string or fails with a backend error. Implementations own their own
// retry policy; callers only bound calls with a context timeout.
type Generator interface {
	Generate(ctx context.Context, req *GenerateRequest) (string, error)
}

// Retriever is the retrieval/embedding backend used by the knowledge handler.
// Given a query it returns an answer grounded in ranked passages with
// provenance. The ranking algorithm is the collaborator's concern.
type Retriever interface {
	RetrieveAndAnswer(ctx context.Context, query string) (*RetrievalResult, error)
}

// Handler answers a sanitized message for one category.
// Implementations must be safe for concurrent use.
type Handler interface {
	// Name identifies the handler in workflow traces (e.g. "KnowledgeAgent").
	Name() string

	// Handle produces an answer plus category-specific trace metadata.
	Handle(ctx context.Context, message string) (*HandlerResult, error)
}

// AvailabilityChecker is an optional interface for collaborators that can
// report reachability for the health endpoint.
type AvailabilityChecker interface {
	CheckAvailability(ctx context.Context) error
}
