// Package main is the entry point for the chat gateway server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lmittmann/tint"

	"chatgate/config"
	"chatgate/internal/agents"
	"chatgate/internal/auditlog"
	"chatgate/internal/backend"
	"chatgate/internal/core"
	"chatgate/internal/guard"
	"chatgate/internal/history"
	"chatgate/internal/ratelimit"
	"chatgate/internal/retrieval"
	"chatgate/internal/router"
	"chatgate/internal/server"
	"chatgate/internal/workflow"
)

// version is set at build time via -ldflags "-X main.version=...".
var version = "dev"

func main() {
	versionFlag := flag.Bool("version", false, "Print version information")
	flag.Parse()

	if *versionFlag {
		fmt.Println("chatgate " + version)
		os.Exit(0)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	setupLogging(cfg.Log)
	slog.Info("starting chatgate", "port", cfg.Server.Port)

	// Generative backend. The gateway still serves traffic without one:
	// routing falls back to rules and the math agent skips explanations.
	var generator core.Generator
	if cfg.Backend.APIKey != "" {
		generator, err = backend.New(backend.Config{
			Type:    cfg.Backend.Type,
			APIKey:  cfg.Backend.APIKey,
			BaseURL: cfg.Backend.BaseURL,
			Model:   cfg.Backend.Model,
			Timeout: cfg.Backend.Timeout,
		})
		if err != nil {
			slog.Error("failed to initialize backend", "error", err)
			os.Exit(1)
		}
		slog.Info("generative backend enabled", "type", cfg.Backend.Type, "model", cfg.Backend.Model)
	} else {
		slog.Warn("no backend API key configured, running with rule-based routing only")
	}

	var retriever core.Retriever
	if cfg.Retrieval.URL != "" {
		retriever, err = retrieval.NewClient(retrieval.Config{
			BaseURL: cfg.Retrieval.URL,
			APIKey:  cfg.Retrieval.APIKey,
		})
		if err != nil {
			slog.Error("failed to initialize retrieval client", "error", err)
			os.Exit(1)
		}
		slog.Info("retrieval backend enabled", "url", cfg.Retrieval.URL)
	}

	// Conversation history. Redis when configured, otherwise in-memory.
	var store history.Store
	if cfg.History.RedisURL != "" {
		store, err = history.NewRedisStore(history.RedisConfig{
			URL:       cfg.History.RedisURL,
			Retention: cfg.History.Retention,
		})
		if err != nil {
			slog.Error("failed to connect to redis", "error", err)
			os.Exit(1)
		}
		slog.Info("conversation history on redis")
	} else {
		store = history.NewMemoryStore()
		slog.Warn("no redis configured, conversation history is in-memory only")
	}
	defer func() {
		_ = store.Close()
	}()

	adm := guard.New(
		ratelimit.New(cfg.Guard.RateLimitPerMinute),
		guard.WithMaxMessageLength(cfg.Guard.MaxMessageLength),
	)
	rtr := router.New(generator, router.WithTimeout(cfg.Router.DecisionTimeout))
	handlers := map[core.Category]core.Handler{
		core.CategoryMath:      agents.NewMathAgent(generator),
		core.CategoryKnowledge: agents.NewKnowledgeAgent(retriever, generator),
	}
	orch := workflow.New(adm, rtr, handlers, store)

	// Workflow trace logging
	auditResult, err := auditlog.New(context.Background(), cfg)
	if err != nil {
		slog.Error("failed to initialize trace logging", "error", err)
		os.Exit(1)
	}
	defer func() {
		_ = auditResult.Close()
	}()

	if cfg.Logging.Enabled {
		slog.Info("trace logging enabled",
			"storage_type", cfg.Storage.Type,
			"log_bodies", cfg.Logging.LogBodies,
			"log_headers", cfg.Logging.LogHeaders,
			"retention_days", cfg.Logging.RetentionDays,
		)
	} else {
		slog.Info("trace logging disabled")
	}

	srv := server.New(orch, auditResult.Logger)

	// Handle graceful shutdown
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit

		slog.Info("shutting down server...")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	addr := ":" + cfg.Server.Port
	slog.Info("starting server", "address", addr)

	if err := srv.Start(addr); err != nil {
		if errors.Is(err, http.ErrServerClosed) {
			slog.Info("server stopped gracefully")
		} else {
			slog.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}
}

// setupLogging installs the default slog handler per configuration.
func setupLogging(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	var handler slog.Handler
	if cfg.Format == "text" {
		handler = tint.NewHandler(os.Stdout, &tint.Options{Level: level})
	} else {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	}
	slog.SetDefault(slog.New(handler))
}
