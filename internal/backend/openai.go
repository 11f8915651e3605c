package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"chatgate/internal/core"
)

const openaiDefaultBaseURL = "https://api.openai.com/v1"

func init() {
	Register("openai", func(cfg Config) (core.Generator, error) {
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("openai backend requires an API key")
		}
		return NewOpenAI(cfg), nil
	})
}

// OpenAI calls an OpenAI-compatible chat completions endpoint.
// It implements core.Generator and core.AvailabilityChecker.
type OpenAI struct {
	httpClient *http.Client
	apiKey     string
	baseURL    string
	model      string
}

// NewOpenAI creates an OpenAI-compatible generator.
func NewOpenAI(cfg Config) *OpenAI {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = openaiDefaultBaseURL
	}
	model := cfg.Model
	if model == "" {
		model = "gpt-4o-mini"
	}
	return &OpenAI{
		httpClient: newHTTPClient(cfg.Timeout),
		apiKey:     cfg.APIKey,
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		model:      model,
	}
}

// chatCompletionRequest is the wire format of the completions call.
type chatCompletionRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Generate sends the prompt and returns the first choice's content.
// Failures come back as BACKEND_UNAVAILABLE gateway errors; the caller's
// context bounds the call.
func (o *OpenAI) Generate(ctx context.Context, req *core.GenerateRequest) (string, error) {
	msgs := make([]chatMessage, 0, 2)
	if req.System != "" {
		msgs = append(msgs, chatMessage{Role: "system", Content: req.System})
	}
	msgs = append(msgs, chatMessage{Role: "user", Content: req.Prompt})

	body := chatCompletionRequest{
		Model:       o.model,
		Messages:    msgs,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return "", core.NewBackendUnavailableError("openai", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", core.NewBackendUnavailableError("openai", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+o.apiKey)
	if requestID := core.GetRequestID(ctx); requestID != "" {
		httpReq.Header.Set("X-Client-Request-Id", requestID)
	}

	resp, err := o.httpClient.Do(httpReq)
	if err != nil {
		return "", core.NewBackendUnavailableError("openai", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		// The upstream error body is intentionally not propagated; logs
		// get the status, callers degrade to their fallback.
		return "", core.NewBackendUnavailableError("openai", fmt.Errorf("status %d", resp.StatusCode))
	}

	var parsed chatCompletionResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", core.NewBackendUnavailableError("openai", err)
	}
	if len(parsed.Choices) == 0 {
		return "", core.NewBackendUnavailableError("openai", fmt.Errorf("empty choices"))
	}

	return strings.TrimSpace(parsed.Choices[0].Message.Content), nil
}

// CheckAvailability verifies the models endpoint responds.
func (o *OpenAI) CheckAvailability(ctx context.Context) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, o.baseURL+"/models", nil)
	if err != nil {
		return err
	}
	httpReq.Header.Set("Authorization", "Bearer "+o.apiKey)

	resp, err := o.httpClient.Do(httpReq)
	if err != nil {
		return err
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode >= 500 {
		return fmt.Errorf("openai backend unhealthy: status %d", resp.StatusCode)
	}
	return nil
}
