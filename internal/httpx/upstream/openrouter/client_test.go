package openrouter

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vadim/neo-content/internal/domain/generation/entity"
	"github.com/vadim/neo-content/internal/domain/generation/service"
	"github.com/vadim/neo-content/internal/httpx/upstream/tokens"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := New(Config{
		APIKey:        "or-key",
		Model:         "meta-llama/llama-3.1-70b-instruct",
		BaseURL:       srv.URL + "/api/v1/",
		ContextWindow: 8000,
		Counter:       tokens.NewHeuristicCounter(),
	})
	require.NoError(t, err)
	return c
}

func TestClient_Generate(t *testing.T) {
	var req struct {
		Model     string `json:"model"`
		MaxTokens int    `json:"max_tokens"`
		Messages  []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer or-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"gen-1","object":"chat.completion","created":1,"model":"x",
			"choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":"# Boots\n\nBody"}}]}`))
	})

	out, err := c.Generate(context.Background(), service.Prompt{System: "sys", User: "write"}, 4000)
	require.NoError(t, err)
	assert.Equal(t, "# Boots\n\nBody", out)

	assert.Equal(t, "meta-llama/llama-3.1-70b-instruct", req.Model)
	assert.Equal(t, 4000, req.MaxTokens)
	require.Len(t, req.Messages, 2)
	assert.Equal(t, "system", req.Messages[0].Role)
	assert.Equal(t, "write", req.Messages[1].Content)
}

func TestClient_GenerateClassifiesStatus(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantKind entity.ErrorKind
	}{
		{name: "api error unauthorized", status: http.StatusUnauthorized, body: `{"error":{"message":"bad key","code":401}}`, wantKind: entity.ErrorKindProviderAuthFailed},
		{name: "api error overloaded", status: http.StatusServiceUnavailable, body: `{"error":{"message":"overloaded","code":503}}`, wantKind: entity.ErrorKindProviderTransientFailed},
		{name: "plain text forbidden", status: http.StatusForbidden, body: `forbidden`, wantKind: entity.ErrorKindProviderAuthFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			_, err := c.Generate(context.Background(), service.Prompt{System: "sys", User: "write"}, 100)
			require.Error(t, err)

			var pe *entity.ProviderError
			require.True(t, errors.As(err, &pe))
			assert.Equal(t, tt.status, pe.StatusCode)
			assert.Equal(t, tt.wantKind, entity.ClassifyError(err))
		})
	}
}

func TestClient_EmptyChoices(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"gen-1","choices":[]}`))
	})

	_, err := c.Generate(context.Background(), service.Prompt{User: "write"}, 100)
	assert.ErrorIs(t, err, entity.ErrEmptyOutput)
	assert.Equal(t, entity.ErrorKindProviderTransientFailed, entity.ClassifyError(err))
}
