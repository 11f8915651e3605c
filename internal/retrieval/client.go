// Package retrieval is a thin HTTP client for the external retrieval
// collaborator used by the knowledge handler. Ranking lives on the other
// side of the wire; this client only carries queries and answers.
package retrieval

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"chatgate/internal/core"
	"chatgate/internal/httpclient"
)

// DefaultTimeout bounds one retrieval call.
const DefaultTimeout = 15 * time.Second

// Client implements core.Retriever against an HTTP retrieval service.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

// Config configures the retrieval client.
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// NewClient creates a retrieval client. BaseURL is required.
func NewClient(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("retrieval base URL is required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		httpClient: httpclient.NewWithTimeout(timeout),
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
	}, nil
}

type queryRequest struct {
	Query string `json:"query"`
}

type queryResponse struct {
	Answer  string   `json:"answer"`
	Sources []string `json:"sources"`
}

// RetrieveAndAnswer sends the query and returns the grounded answer with
// its source list. Failures map to BACKEND_UNAVAILABLE so callers degrade
// instead of surfacing a 5xx.
func (c *Client) RetrieveAndAnswer(ctx context.Context, query string) (*core.RetrievalResult, error) {
	payload, err := json.Marshal(queryRequest{Query: query})
	if err != nil {
		return nil, core.NewBackendUnavailableError("retrieval", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/query", bytes.NewReader(payload))
	if err != nil {
		return nil, core.NewBackendUnavailableError("retrieval", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, core.NewBackendUnavailableError("retrieval", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, core.NewBackendUnavailableError("retrieval", fmt.Errorf("status %d", resp.StatusCode))
	}

	var parsed queryResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, core.NewBackendUnavailableError("retrieval", err)
	}
	if strings.TrimSpace(parsed.Answer) == "" {
		return nil, core.NewBackendUnavailableError("retrieval", fmt.Errorf("empty answer"))
	}

	return &core.RetrievalResult{
		Answer:  parsed.Answer,
		Sources: parsed.Sources,
	}, nil
}
