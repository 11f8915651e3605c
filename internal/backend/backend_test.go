package backend

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatgate/internal/core"
)

func TestRegistryKnowsOpenAI(t *testing.T) {
	assert.Contains(t, ListRegistered(), "openai")
}

func TestNewRejectsUnknownType(t *testing.T) {
	_, err := New(Config{Type: "no-such-backend"})
	require.Error(t, err)
}

func TestNewRequiresAPIKeyForOpenAI(t *testing.T) {
	_, err := New(Config{Type: "openai"})
	require.Error(t, err)
}

func TestOpenAIGenerate(t *testing.T) {
	var captured struct {
		auth string
		body chatCompletionRequest
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured.auth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured.body))
		_ = json.NewEncoder(w).Encode(chatCompletionResponse{
			Choices: []struct {
				Message chatMessage `json:"message"`
			}{{Message: chatMessage{Role: "assistant", Content: "  MATH  "}}},
		})
	}))
	defer srv.Close()

	gen := NewOpenAI(Config{APIKey: "test-key", BaseURL: srv.URL, Model: "gpt-4o-mini"})
	out, err := gen.Generate(t.Context(), &core.GenerateRequest{
		Prompt:      "classify this",
		System:      "you are a classifier",
		Temperature: 0.1,
	})
	require.NoError(t, err)

	assert.Equal(t, "MATH", out, "leading and trailing whitespace should be trimmed")
	assert.Equal(t, "Bearer test-key", captured.auth)
	assert.Equal(t, "gpt-4o-mini", captured.body.Model)
	require.Len(t, captured.body.Messages, 2)
	assert.Equal(t, "system", captured.body.Messages[0].Role)
	assert.Equal(t, "user", captured.body.Messages[1].Role)
}

func TestOpenAIGenerateMapsServerErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"internal secret detail"}}`, http.StatusInternalServerError)
	}))
	defer srv.Close()

	gen := NewOpenAI(Config{APIKey: "k", BaseURL: srv.URL})
	_, err := gen.Generate(t.Context(), &core.GenerateRequest{Prompt: "hi"})
	require.Error(t, err)

	var gerr *core.GatewayError
	require.True(t, errors.As(err, &gerr))
	assert.Equal(t, core.ErrorKindBackendUnavailable, gerr.Kind)
	assert.NotContains(t, gerr.Message, "secret", "upstream error bodies must not leak")
}

func TestOpenAIGenerateEmptyChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	gen := NewOpenAI(Config{APIKey: "k", BaseURL: srv.URL})
	_, err := gen.Generate(t.Context(), &core.GenerateRequest{Prompt: "hi"})
	require.Error(t, err)
}

func TestOpenAIGenerateHonorsContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Drain the body so the server arms its connection watcher and
		// cancels r.Context() when the client disconnects; otherwise this
		// handler never returns and srv.Close deadlocks the package.
		_, _ = io.Copy(io.Discard, r.Body)
		<-r.Context().Done()
	}))
	defer srv.Close()

	gen := NewOpenAI(Config{APIKey: "k", BaseURL: srv.URL})
	ctx, cancel := context.WithTimeout(t.Context(), 50*time.Millisecond)
	defer cancel()

	_, err := gen.Generate(ctx, &core.GenerateRequest{Prompt: "hi"})
	require.Error(t, err)
}

func TestOpenAICheckAvailability(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/models" {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	gen := NewOpenAI(Config{APIKey: "k", BaseURL: srv.URL})
	assert.NoError(t, gen.CheckAvailability(t.Context()))
}
