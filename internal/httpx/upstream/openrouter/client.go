package openrouter

import (
	"context"
	"errors"
	"fmt"
	"strings"

	openaigo "github.com/sashabaranov/go-openai"

	"github.com/vadim/neo-content/internal/domain/generation/entity"
	"github.com/vadim/neo-content/internal/domain/generation/service"
	"github.com/vadim/neo-content/internal/httpx/upstream/tokens"
)

const (
	// ProviderName is reported in results and metrics
	ProviderName   = "openrouter"
	DefaultBaseURL = "https://openrouter.ai/api/v1"
	DefaultModel   = "anthropic/claude-3.5-sonnet"
)

// ErrAPIKeyNotSet is returned when the client is created without a key
var ErrAPIKeyNotSet = errors.New("openrouter api key not set")

// Config holds the secondary provider settings
type Config struct {
	APIKey        string
	Model         string
	BaseURL       string
	ContextWindow int
	Counter       *tokens.Counter
}

// Client is the secondary generation provider speaking the OpenAI wire format to an OpenRouter-compatible endpoint
type Client struct {
	client *openaigo.Client
	model  string
	budget tokens.Budget
}

// New creates a new secondary provider
func New(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, ErrAPIKeyNotSet
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Counter == nil {
		cfg.Counter = tokens.NewCounter(cfg.Model)
	}

	config := openaigo.DefaultConfig(cfg.APIKey)
	config.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	return &Client{
		client: openaigo.NewClientWithConfig(config),
		model:  cfg.Model,
		budget: tokens.Budget{Counter: cfg.Counter, ContextWindow: cfg.ContextWindow},
	}, nil
}

func (c *Client) Name() string { return ProviderName }

// Generate sends the prompt and returns the raw message content
func (c *Client) Generate(ctx context.Context, prompt service.Prompt, maxTokens int) (string, error) {
	req := openaigo.ChatCompletionRequest{
		Model: c.model,
		Messages: []openaigo.ChatCompletionMessage{
			{Role: openaigo.ChatMessageRoleSystem, Content: prompt.System},
			{Role: openaigo.ChatMessageRoleUser, Content: prompt.User},
		},
		MaxTokens: c.budget.Clamp(maxTokens, prompt.System, prompt.User),
	}

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", wrapError(err)
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return "", &entity.ProviderError{Provider: ProviderName, Err: entity.ErrEmptyOutput}
	}
	return resp.Choices[0].Message.Content, nil
}

func wrapError(err error) error {
	var apiErr *openaigo.APIError
	if errors.As(err, &apiErr) {
		return &entity.ProviderError{Provider: ProviderName, StatusCode: apiErr.HTTPStatusCode, Err: err}
	}
	var reqErr *openaigo.RequestError
	if errors.As(err, &reqErr) {
		return &entity.ProviderError{Provider: ProviderName, StatusCode: reqErr.HTTPStatusCode, Err: err}
	}
	return &entity.ProviderError{Provider: ProviderName, Err: fmt.Errorf("chat completion: %w", err)}
}
