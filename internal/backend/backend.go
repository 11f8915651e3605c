// Package backend provides clients for the external generative-answer
// collaborator behind the core.Generator capability. Providers register
// themselves by type; the gateway selects one from configuration.
package backend

import (
	"fmt"
	"net/http"
	"time"

	"chatgate/internal/core"
	"chatgate/internal/httpclient"
)

// Config selects and configures a generative backend.
type Config struct {
	// Type is the registered provider type (e.g. "openai").
	Type string

	// APIKey authenticates against the provider.
	APIKey string

	// BaseURL overrides the provider's default endpoint, e.g. for an
	// OpenAI-compatible local server.
	BaseURL string

	// Model is the model identifier sent with every request.
	Model string

	// Timeout bounds a single call so a slow backend cannot stall a
	// request indefinitely. Zero means DefaultTimeout.
	Timeout time.Duration
}

// DefaultTimeout bounds one generation call.
const DefaultTimeout = 30 * time.Second

// Builder creates a generator from configuration.
type Builder func(cfg Config) (core.Generator, error)

// registry holds all registered backend builders.
var registry = make(map[string]Builder)

// Register allows provider implementations to register themselves.
// Called from init() functions.
func Register(backendType string, builder Builder) {
	registry[backendType] = builder
}

// New instantiates the generator selected by cfg.Type.
func New(cfg Config) (core.Generator, error) {
	builder, ok := registry[cfg.Type]
	if !ok {
		return nil, fmt.Errorf("unknown backend type: %s (registered: %v)", cfg.Type, ListRegistered())
	}
	return builder(cfg)
}

// ListRegistered returns all registered backend types.
func ListRegistered() []string {
	types := make([]string, 0, len(registry))
	for t := range registry {
		types = append(types, t)
	}
	return types
}

// newHTTPClient builds the shared HTTP client for provider implementations.
func newHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return httpclient.NewWithTimeout(timeout)
}
