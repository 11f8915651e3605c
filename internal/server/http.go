package server

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"chatgate/internal/auditlog"
	"chatgate/internal/core"
	"chatgate/internal/workflow"
)

// DefaultBodySizeLimit caps inbound request bodies.
const DefaultBodySizeLimit = "1M"

// Server wraps the Echo server
type Server struct {
	echo    *echo.Echo
	handler *Handler
}

// New creates a new HTTP server around the workflow orchestrator.
func New(orch *workflow.Orchestrator, logger auditlog.LoggerInterface) *Server {
	e := echo.New()
	e.HideBanner = true

	handler := NewHandler(orch)

	if logger == nil {
		logger = &auditlog.NoopLogger{}
	}

	// Global middleware stack (order matters)
	e.Use(securityHeaders)
	e.Use(clientIdentity)
	e.Use(middleware.Recover())
	e.Use(middleware.BodyLimit(DefaultBodySizeLimit))
	e.Use(auditlog.Middleware(logger))

	// Public routes
	e.GET("/", handler.Root)
	e.GET("/health", handler.Health)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// API routes
	e.POST("/chat", handler.Chat)
	e.GET("/conversations/:id", handler.Conversation)
	e.GET("/conversations/user/:id", handler.UserConversations)

	return &Server{
		echo:    e,
		handler: handler,
	}
}

// securityHeaders stamps the fixed protection headers on every response,
// including error responses. They are not configurable.
func securityHeaders(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		h := c.Response().Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("X-XSS-Protection", "1; mode=block")
		h.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		return next(c)
	}
}

// clientIdentity resolves the rate-limit key for the request and attaches it,
// along with a request id, to the request context.
func clientIdentity(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		requestID := c.Request().Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Response().Header().Set("X-Request-ID", requestID)

		ctx := c.Request().Context()
		ctx = core.WithRequestID(ctx, requestID)
		ctx = core.WithClientKey(ctx, clientKey(c.Request()))
		c.SetRequest(c.Request().WithContext(ctx))
		return next(c)
	}
}

// clientKey derives the caller identity from proxy headers, falling back to
// the socket address. The first X-Forwarded-For entry wins because entries
// after it were appended by intermediaries.
func clientKey(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first := strings.TrimSpace(strings.SplitN(fwd, ",", 2)[0])
		if first != "" {
			return first
		}
	}
	if real := strings.TrimSpace(r.Header.Get("X-Real-IP")); real != "" {
		return real
	}
	if host := strings.TrimSpace(r.RemoteAddr); host != "" {
		if idx := strings.LastIndex(host, ":"); idx > 0 && !strings.HasSuffix(host, "]") {
			host = host[:idx]
		}
		host = strings.Trim(host, "[]")
		if host != "" {
			return host
		}
	}
	return "unknown"
}

// Start starts the HTTP server on the given address
func (s *Server) Start(addr string) error {
	return s.echo.Start(addr)
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// ServeHTTP implements the http.Handler interface, allowing Server to be used with httptest
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}
