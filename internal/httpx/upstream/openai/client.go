package openai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	oai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"

	"github.com/vadim/neo-content/internal/domain/generation/entity"
	"github.com/vadim/neo-content/internal/domain/generation/service"
	"github.com/vadim/neo-content/internal/httpx/upstream/tokens"
)

const (
	// ProviderName is reported in results and metrics
	ProviderName = "openai"
	DefaultModel = "gpt-4o-mini"
)

// ErrAPIKeyNotSet is returned when the client is created without a key
var ErrAPIKeyNotSet = errors.New("openai api key not set")

// Client is the primary generation provider backed by the OpenAI chat completions API
type Client struct {
	client oai.Client
	model  string
	budget tokens.Budget
}

type options struct {
	baseURL       string
	contextWindow int
	counter       *tokens.Counter
}

// Option configures the client
type Option func(*options)

// WithBaseURL points the client at a compatible endpoint
func WithBaseURL(u string) Option {
	return func(o *options) { o.baseURL = u }
}

// WithContextWindow sets the model context window used to clamp max tokens
func WithContextWindow(n int) Option {
	return func(o *options) { o.contextWindow = n }
}

// WithTokenCounter overrides the prompt token counter
func WithTokenCounter(c *tokens.Counter) Option {
	return func(o *options) { o.counter = c }
}

// New creates a new OpenAI provider
func New(apiKey, model string, opts ...Option) (*Client, error) {
	if apiKey == "" {
		return nil, ErrAPIKeyNotSet
	}
	if model == "" {
		model = DefaultModel
	}

	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	if o.counter == nil {
		o.counter = tokens.NewCounter(model)
	}

	// Retries belong to the gateway policy, the SDK must not add its own.
	reqOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	if o.baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(o.baseURL))
	}

	return &Client{
		client: oai.NewClient(reqOpts...),
		model:  model,
		budget: tokens.Budget{Counter: o.counter, ContextWindow: o.contextWindow},
	}, nil
}

func (c *Client) Name() string { return ProviderName }

// Generate sends the prompt and returns the raw message content
func (c *Client) Generate(ctx context.Context, prompt service.Prompt, maxTokens int) (string, error) {
	params := oai.ChatCompletionNewParams{
		Model: shared.ChatModel(c.model),
		Messages: []oai.ChatCompletionMessageParamUnion{
			oai.SystemMessage(prompt.System),
			oai.UserMessage(prompt.User),
		},
	}
	if mt := c.budget.Clamp(maxTokens, prompt.System, prompt.User); mt > 0 {
		params.MaxTokens = oai.Int(int64(mt))
	}

	completion, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", wrapError(err)
	}
	if len(completion.Choices) == 0 {
		return "", &entity.ProviderError{Provider: ProviderName, Err: entity.ErrEmptyOutput}
	}

	content := completion.Choices[0].Message.Content
	if strings.TrimSpace(content) == "" {
		return "", &entity.ProviderError{Provider: ProviderName, Err: entity.ErrEmptyOutput}
	}
	return content, nil
}

func wrapError(err error) error {
	var apiErr *oai.Error
	if errors.As(err, &apiErr) {
		return &entity.ProviderError{Provider: ProviderName, StatusCode: apiErr.StatusCode, Err: err}
	}
	return &entity.ProviderError{Provider: ProviderName, Err: fmt.Errorf("chat completion: %w", err)}
}
