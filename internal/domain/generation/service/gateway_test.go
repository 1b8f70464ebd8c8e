package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/vadim/neo-content/internal/domain/generation/entity"
)

const validJSON = `{"title":"Winter Boots Guide","content":"## Pick the right pair\n\nWarm feet matter.","tags":["boots","winter"],"metaDescription":"How to pick boots."}`

type mockProvider struct {
	mock.Mock
	name string
}

func (m *mockProvider) Name() string { return m.name }

func (m *mockProvider) Generate(ctx context.Context, prompt Prompt, maxTokens int) (string, error) {
	args := m.Called(ctx, prompt, maxTokens)
	return args.String(0), args.Error(1)
}

type recordingSleep struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (r *recordingSleep) sleep(_ context.Context, d time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.delays = append(r.delays, d)
	return nil
}

type stubArchiver struct {
	calls int
}

func (a *stubArchiver) ArchiveRaw(_ context.Context, _, _, _ string) (string, error) {
	a.calls++
	return "raw/key.txt", nil
}

func statusErr(provider string, status int) error {
	return &entity.ProviderError{Provider: provider, StatusCode: status, Err: errors.New(http.StatusText(status))}
}

func newTestGateway(sl *recordingSleep, providers ...Provider) *Gateway {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := GatewayConfig{MaxAttempts: 3, BaseDelay: time.Second, MaxTokens: 4000}
	return NewGateway(cfg, logger, providers...).WithSleep(sl.sleep)
}

func TestGateway_PrimarySuccess(t *testing.T) {
	primary := &mockProvider{name: "primary"}
	primary.On("Generate", mock.Anything, mock.Anything, 4000).Return(validJSON, nil).Once()
	secondary := &mockProvider{name: "secondary"}

	sl := &recordingSleep{}
	res := newTestGateway(sl, primary, secondary, NewTemplateProvider()).
		Generate(context.Background(), entity.Request{Topic: "winter boots"})

	require.True(t, res.Succeeded())
	assert.Equal(t, "primary", res.Provider)
	assert.False(t, res.UsesFallbackProvider)
	assert.Equal(t, "Winter Boots Guide", res.Article.Title)
	assert.Equal(t, []string{"boots", "winter"}, res.Article.Tags)
	primary.AssertNumberOfCalls(t, "Generate", 1)
	secondary.AssertNotCalled(t, "Generate", mock.Anything, mock.Anything, mock.Anything)
	assert.Empty(t, sl.delays)
}

func TestGateway_AuthFailureIsNotRetried(t *testing.T) {
	for _, status := range []int{http.StatusUnauthorized, http.StatusForbidden} {
		t.Run(http.StatusText(status), func(t *testing.T) {
			primary := &mockProvider{name: "primary"}
			primary.On("Generate", mock.Anything, mock.Anything, mock.Anything).Return("", statusErr("primary", status))
			secondary := &mockProvider{name: "secondary"}
			secondary.On("Generate", mock.Anything, mock.Anything, mock.Anything).Return(validJSON, nil)

			sl := &recordingSleep{}
			res := newTestGateway(sl, primary, secondary, NewTemplateProvider()).
				Generate(context.Background(), entity.Request{Topic: "winter boots"})

			require.True(t, res.Succeeded())
			assert.Equal(t, "secondary", res.Provider)
			assert.True(t, res.UsesFallbackProvider)
			primary.AssertNumberOfCalls(t, "Generate", 1)
			secondary.AssertNumberOfCalls(t, "Generate", 1)
			assert.Empty(t, sl.delays)
		})
	}
}

func TestGateway_TransientFailureRetriesWithBackoff(t *testing.T) {
	for _, status := range []int{http.StatusTooManyRequests, http.StatusServiceUnavailable, 0} {
		t.Run(http.StatusText(status), func(t *testing.T) {
			primary := &mockProvider{name: "primary"}
			primary.On("Generate", mock.Anything, mock.Anything, mock.Anything).Return("", statusErr("primary", status))
			secondary := &mockProvider{name: "secondary"}
			secondary.On("Generate", mock.Anything, mock.Anything, mock.Anything).Return(validJSON, nil)

			sl := &recordingSleep{}
			res := newTestGateway(sl, primary, secondary, NewTemplateProvider()).
				Generate(context.Background(), entity.Request{Topic: "winter boots"})

			require.True(t, res.Succeeded())
			assert.Equal(t, "secondary", res.Provider)
			assert.True(t, res.UsesFallbackProvider)
			primary.AssertNumberOfCalls(t, "Generate", 3)
			assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, sl.delays)
		})
	}
}

func TestGateway_TransientThenSuccessOnSameProvider(t *testing.T) {
	primary := &mockProvider{name: "primary"}
	primary.On("Generate", mock.Anything, mock.Anything, mock.Anything).Return("", statusErr("primary", http.StatusBadGateway)).Once()
	primary.On("Generate", mock.Anything, mock.Anything, mock.Anything).Return(validJSON, nil).Once()

	sl := &recordingSleep{}
	res := newTestGateway(sl, primary, NewTemplateProvider()).
		Generate(context.Background(), entity.Request{Topic: "winter boots"})

	require.True(t, res.Succeeded())
	assert.Equal(t, "primary", res.Provider)
	assert.False(t, res.UsesFallbackProvider)
	primary.AssertNumberOfCalls(t, "Generate", 2)
}

func TestGateway_TemplateServesWhenRealProvidersFail(t *testing.T) {
	primary := &mockProvider{name: "primary"}
	primary.On("Generate", mock.Anything, mock.Anything, mock.Anything).Return("", statusErr("primary", http.StatusInternalServerError))
	secondary := &mockProvider{name: "secondary"}
	secondary.On("Generate", mock.Anything, mock.Anything, mock.Anything).Return("", errors.New("connection reset"))

	sl := &recordingSleep{}
	res := newTestGateway(sl, primary, secondary, NewTemplateProvider()).
		Generate(context.Background(), entity.Request{Topic: "summer linen shirts"})

	require.True(t, res.Succeeded())
	assert.Equal(t, TemplateProviderName, res.Provider)
	assert.True(t, res.UsesFallbackProvider)
	assert.Contains(t, res.Article.Title, "Summer Linen Shirts")
	assert.NotEmpty(t, res.Article.Content)
	assert.NotEmpty(t, res.Article.Tags)
	primary.AssertNumberOfCalls(t, "Generate", 3)
	secondary.AssertNumberOfCalls(t, "Generate", 3)
}

func TestGateway_UnparseableOutputIsRetriedAndArchived(t *testing.T) {
	primary := &mockProvider{name: "primary"}
	primary.On("Generate", mock.Anything, mock.Anything, mock.Anything).Return("???", nil)

	archiver := &stubArchiver{}
	sl := &recordingSleep{}
	res := newTestGateway(sl, primary, NewTemplateProvider()).
		WithArchiver(archiver).
		Generate(context.Background(), entity.Request{Topic: "winter boots"})

	require.True(t, res.Succeeded())
	assert.Equal(t, TemplateProviderName, res.Provider)
	primary.AssertNumberOfCalls(t, "Generate", 3)
	assert.Equal(t, 3, archiver.calls)
}

func TestGateway_ValidationFailure(t *testing.T) {
	primary := &mockProvider{name: "primary"}

	res := newTestGateway(&recordingSleep{}, primary, NewTemplateProvider()).
		Generate(context.Background(), entity.Request{Topic: "   "})

	require.False(t, res.Succeeded())
	assert.Equal(t, entity.ErrorKindValidationFailed, res.Failure.Reason)
	primary.AssertNotCalled(t, "Generate", mock.Anything, mock.Anything, mock.Anything)
}

func TestGateway_NoProvidersIsExhausted(t *testing.T) {
	res := newTestGateway(&recordingSleep{}).
		Generate(context.Background(), entity.Request{Topic: "winter boots"})

	require.False(t, res.Succeeded())
	assert.Equal(t, entity.ErrorKindProviderExhausted, res.Failure.Reason)
}

func TestGateway_ChainWithoutTemplateCanBeExhausted(t *testing.T) {
	primary := &mockProvider{name: "primary"}
	primary.On("Generate", mock.Anything, mock.Anything, mock.Anything).Return("", statusErr("primary", http.StatusUnauthorized))

	res := newTestGateway(&recordingSleep{}, primary).
		Generate(context.Background(), entity.Request{Topic: "winter boots"})

	require.False(t, res.Succeeded())
	assert.Equal(t, entity.ErrorKindProviderExhausted, res.Failure.Reason)
	assert.Contains(t, res.Failure.Detail, "status 401")
}

func TestGateway_CancelledContextStillServesTemplate(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	primary := &mockProvider{name: "primary"}

	res := newTestGateway(&recordingSleep{}, primary, NewTemplateProvider()).
		Generate(ctx, entity.Request{Topic: "winter boots"})

	require.True(t, res.Succeeded())
	assert.Equal(t, TemplateProviderName, res.Provider)
	primary.AssertNotCalled(t, "Generate", mock.Anything, mock.Anything, mock.Anything)
}

func TestGateway_Providers(t *testing.T) {
	g := newTestGateway(&recordingSleep{}, &mockProvider{name: "openai"}, &mockProvider{name: "openrouter"}, NewTemplateProvider())
	assert.Equal(t, []string{"openai", "openrouter", "template"}, g.Providers())
}
