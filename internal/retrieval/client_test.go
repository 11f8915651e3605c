package retrieval

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatgate/internal/core"
)

func TestNewClientRequiresBaseURL(t *testing.T) {
	_, err := NewClient(Config{})
	require.Error(t, err)
}

func TestRetrieveAndAnswer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/query", r.URL.Path)
		assert.Equal(t, "Bearer rk", r.Header.Get("Authorization"))

		var req queryRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "how do webhooks work", req.Query)

		_ = json.NewEncoder(w).Encode(queryResponse{
			Answer:  "Webhooks notify your endpoint on events.",
			Sources: []string{"https://docs.example.com/webhooks"},
		})
	}))
	defer srv.Close()

	c, err := NewClient(Config{BaseURL: srv.URL, APIKey: "rk"})
	require.NoError(t, err)

	res, err := c.RetrieveAndAnswer(t.Context(), "how do webhooks work")
	require.NoError(t, err)
	assert.Equal(t, "Webhooks notify your endpoint on events.", res.Answer)
	assert.Equal(t, []string{"https://docs.example.com/webhooks"}, res.Sources)
}

func TestRetrieveAndAnswerFailureMapsToBackendUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "index rebuilding", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c, err := NewClient(Config{BaseURL: srv.URL})
	require.NoError(t, err)

	_, err = c.RetrieveAndAnswer(t.Context(), "anything")
	require.Error(t, err)

	var gerr *core.GatewayError
	require.True(t, errors.As(err, &gerr))
	assert.Equal(t, core.ErrorKindBackendUnavailable, gerr.Kind)
}

func TestRetrieveAndAnswerRejectsEmptyAnswer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"answer":"  ","sources":[]}`))
	}))
	defer srv.Close()

	c, err := NewClient(Config{BaseURL: srv.URL})
	require.NoError(t, err)

	_, err = c.RetrieveAndAnswer(t.Context(), "anything")
	require.Error(t, err)
}
