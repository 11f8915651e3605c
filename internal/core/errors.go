package core

import (
	"fmt"
	"net/http"
	"time"
)

// ErrorKind classifies a gateway failure for status mapping and messaging.
type ErrorKind string

const (
	// ErrorKindValidation indicates malformed, missing, or oversized input (400).
	ErrorKindValidation ErrorKind = "validation_error"
	// ErrorKindPromptInjection indicates the heuristic injection block (400).
	ErrorKindPromptInjection ErrorKind = "prompt_injection_error"
	// ErrorKindRateLimited indicates the per-client quota was exceeded (429).
	ErrorKindRateLimited ErrorKind = "rate_limit_error"
	// ErrorKindBackendUnavailable indicates an external collaborator failed.
	// Never surfaced as 5xx: callers degrade to a fallback strategy instead.
	ErrorKindBackendUnavailable ErrorKind = "backend_unavailable"
	// ErrorKindInternal indicates an unexpected defect (500, opaque to callers).
	ErrorKindInternal ErrorKind = "internal_error"
)

// GatewayError is the base error type for all gateway failures.
// The user-facing message is localized and safe; Err holds the original
// cause for logs only and is never serialized.
type GatewayError struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
	// ErrorID correlates the client-visible response with server logs.
	ErrorID string `json:"error_id,omitempty"`
	Err     error  `json:"-"`
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *GatewayError) Unwrap() error {
	return e.Err
}

// HTTPStatusCode maps the error kind to the status returned to the caller.
func (e *GatewayError) HTTPStatusCode() int {
	switch e.Kind {
	case ErrorKindValidation, ErrorKindPromptInjection:
		return http.StatusBadRequest
	case ErrorKindRateLimited:
		return http.StatusTooManyRequests
	case ErrorKindBackendUnavailable:
		// Recovered upstream; if one ever reaches the edge, degrade politely.
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// ToJSON produces the caller-visible payload. It contains only the kind,
// the localized message, and the correlation id: no raw causes.
func (e *GatewayError) ToJSON() map[string]interface{} {
	body := map[string]interface{}{
		"error":   string(e.Kind),
		"message": e.Message,
	}
	if e.ErrorID != "" {
		body["error_id"] = e.ErrorID
	}
	return body
}

// NewErrorID returns a correlation id for pairing logs with responses.
func NewErrorID() string {
	return fmt.Sprintf("ERR_%d", time.Now().UnixMilli())
}

// SafeMessage returns the localized user-facing text for an error kind.
// Messages are fixed pt-BR strings; they never include request content.
func SafeMessage(kind ErrorKind) string {
	switch kind {
	case ErrorKindValidation:
		return "A mensagem enviada contém conteúdo inválido. Por favor, reformule sua pergunta."
	case ErrorKindPromptInjection:
		return "Sua mensagem contém instruções não permitidas. Por favor, faça uma pergunta sobre o produto ou matemática."
	case ErrorKindRateLimited:
		return "Muitas solicitações. Aguarde um momento antes de tentar novamente."
	case ErrorKindBackendUnavailable:
		return "Serviço temporariamente indisponível. Tente novamente em alguns minutos."
	default:
		return "Desculpe, ocorreu um erro interno. Tente novamente em alguns instantes."
	}
}

// NewValidationError creates a VALIDATION rejection with the standard message.
func NewValidationError(err error) *GatewayError {
	return &GatewayError{
		Kind:    ErrorKindValidation,
		Message: SafeMessage(ErrorKindValidation),
		Err:     err,
	}
}

// NewPromptInjectionError creates a PROMPT_INJECTION rejection.
func NewPromptInjectionError(err error) *GatewayError {
	return &GatewayError{
		Kind:    ErrorKindPromptInjection,
		Message: SafeMessage(ErrorKindPromptInjection),
		Err:     err,
	}
}

// NewRateLimitedError creates a RATE_LIMITED rejection.
func NewRateLimitedError() *GatewayError {
	return &GatewayError{
		Kind:    ErrorKindRateLimited,
		Message: SafeMessage(ErrorKindRateLimited),
	}
}

// NewBackendUnavailableError wraps an external collaborator failure.
func NewBackendUnavailableError(backend string, err error) *GatewayError {
	return &GatewayError{
		Kind:    ErrorKindBackendUnavailable,
		Message: SafeMessage(ErrorKindBackendUnavailable),
		Err:     fmt.Errorf("%s: %w", backend, err),
	}
}

// NewInternalError wraps an unexpected defect with a fresh correlation id.
func NewInternalError(err error) *GatewayError {
	return &GatewayError{
		Kind:    ErrorKindInternal,
		Message: SafeMessage(ErrorKindInternal),
		ErrorID: NewErrorID(),
		Err:     err,
	}
}
