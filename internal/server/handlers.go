// Package server provides the HTTP edge of the chat gateway.
package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"chatgate/internal/auditlog"
	"chatgate/internal/core"
	"chatgate/internal/workflow"
)

// Handler holds the HTTP handlers
type Handler struct {
	orchestrator *workflow.Orchestrator
}

// NewHandler creates a new handler around the orchestrator.
func NewHandler(orch *workflow.Orchestrator) *Handler {
	return &Handler{
		orchestrator: orch,
	}
}

// Chat handles POST /chat
func (h *Handler) Chat(c echo.Context) error {
	var req core.ChatRequest
	if err := c.Bind(&req); err != nil {
		return handleError(c, core.NewValidationError(err))
	}

	resp, decision, gerr := h.orchestrator.Process(c.Request().Context(), &req)
	if gerr != nil {
		return handleError(c, gerr)
	}

	auditlog.EnrichEntryWithWorkflow(c, resp, decision)
	return c.JSON(http.StatusOK, resp)
}

// Conversation handles GET /conversations/:id
func (h *Handler) Conversation(c echo.Context) error {
	conv, err := h.orchestrator.History(c.Request().Context(), c.Param("id"))
	if err != nil {
		return handleError(c, core.NewInternalError(err))
	}
	if conv == nil {
		return c.JSON(http.StatusNotFound, map[string]interface{}{
			"error":   "not_found",
			"message": "Conversa não encontrada.",
		})
	}

	return c.JSON(http.StatusOK, conv)
}

// UserConversations handles GET /conversations/user/:id
func (h *Handler) UserConversations(c echo.Context) error {
	userID := c.Param("id")
	ids, err := h.orchestrator.UserConversations(c.Request().Context(), userID)
	if err != nil {
		return handleError(c, core.NewInternalError(err))
	}
	if ids == nil {
		ids = []string{}
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"user_id":       userID,
		"conversations": ids,
		"count":         len(ids),
	})
}

// Health handles GET /health
func (h *Handler) Health(c echo.Context) error {
	body := map[string]interface{}{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}

	if err := h.orchestrator.CheckStore(c.Request().Context()); err != nil {
		body["history"] = "unavailable"
	} else {
		body["history"] = "ok"
	}

	return c.JSON(http.StatusOK, body)
}

// Root handles GET /
func (h *Handler) Root(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"service": "chatgate",
		"endpoints": map[string]string{
			"chat":               "POST /chat",
			"health":             "GET /health",
			"metrics":            "GET /metrics",
			"conversation":       "GET /conversations/:id",
			"user_conversations": "GET /conversations/user/:id",
		},
	})
}

// handleError converts gateway errors to appropriate HTTP responses.
// Whatever the cause, the body carries only the localized message and the
// correlation id, never the failing input or the upstream error.
func handleError(c echo.Context, err error) error {
	var gatewayErr *core.GatewayError
	if errors.As(err, &gatewayErr) {
		auditlog.EnrichEntryWithError(c, string(gatewayErr.Kind), gatewayErr.ErrorID)
		return c.JSON(gatewayErr.HTTPStatusCode(), gatewayErr.ToJSON())
	}

	// Fallback for unexpected errors
	internal := core.NewInternalError(err)
	auditlog.EnrichEntryWithError(c, string(internal.Kind), internal.ErrorID)
	return c.JSON(internal.HTTPStatusCode(), internal.ToJSON())
}
