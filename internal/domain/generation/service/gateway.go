package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/vadim/neo-content/internal/domain/generation/entity"
	"github.com/vadim/neo-content/internal/metrics"
)

// Provider is one link of the generation chain
type Provider interface {
	Name() string
	Generate(ctx context.Context, prompt Prompt, maxTokens int) (string, error)
}

// deterministic is implemented by providers that never call out of process.
// They are still invoked after the request context is cancelled.
type deterministic interface {
	Deterministic() bool
}

// RawArchiver stores provider output that no parse strategy could read
type RawArchiver interface {
	ArchiveRaw(ctx context.Context, provider, topic, raw string) (string, error)
}

// GatewayConfig holds the retry policy of the gateway
type GatewayConfig struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxTokens   int
	CallTimeout time.Duration
}

// DefaultGatewayConfig returns the production retry policy
func DefaultGatewayConfig() GatewayConfig {
	return GatewayConfig{
		MaxAttempts: 3,
		BaseDelay:   time.Second,
		MaxTokens:   4000,
		CallTimeout: 120 * time.Second,
	}
}

// Gateway turns a topic into an article by walking an ordered provider chain
type Gateway struct {
	providers []Provider
	cfg       GatewayConfig
	archiver  RawArchiver
	logger    *slog.Logger
	sleep     func(ctx context.Context, d time.Duration) error
}

// NewGateway creates a gateway over providers in priority order.
// The first provider is the primary; serving from any later one marks the result as fallback.
func NewGateway(cfg GatewayConfig, logger *slog.Logger, providers ...Provider) *Gateway {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Gateway{
		providers: providers,
		cfg:       cfg,
		logger:    logger,
		sleep:     sleepContext,
	}
}

// WithArchiver enables archiving of unparseable provider output
func (g *Gateway) WithArchiver(a RawArchiver) *Gateway {
	g.archiver = a
	return g
}

// WithSleep replaces the backoff wait, used by tests
func (g *Gateway) WithSleep(fn func(ctx context.Context, d time.Duration) error) *Gateway {
	g.sleep = fn
	return g
}

// Providers returns the provider names in chain order
func (g *Gateway) Providers() []string {
	names := make([]string, len(g.providers))
	for i, p := range g.providers {
		names[i] = p.Name()
	}
	return names
}

// Generate produces an article for the request. A Failure is returned only for
// invalid input or when the whole chain, template included, failed.
func (g *Gateway) Generate(ctx context.Context, req entity.Request) entity.Result {
	if err := req.Validate(); err != nil {
		return entity.NewFailure(entity.ErrorKindValidationFailed, err.Error())
	}
	if len(g.providers) == 0 {
		return entity.NewFailure(entity.ErrorKindProviderExhausted, entity.ErrNoProviders.Error())
	}

	prompt := BuildPrompt(req)
	var lastErr error

	for i, p := range g.providers {
		article, err := g.tryProvider(ctx, p, prompt, req.Topic)
		if err != nil {
			lastErr = err
			g.logger.Warn("generation provider gave up",
				"provider", p.Name(),
				"topic", req.Topic,
				"kind", entity.ClassifyError(err),
				"error", err,
			)
			continue
		}

		usesFallback := i > 0
		metrics.RecordResultServed(p.Name())
		g.logger.Info("generation served",
			"provider", p.Name(),
			"topic", req.Topic,
			"uses_fallback_provider", usesFallback,
		)
		return entity.NewSuccess(article, p.Name(), usesFallback)
	}

	detail := entity.ErrProviderExhausted.Error()
	if lastErr != nil {
		detail = fmt.Sprintf("%s: %v", detail, lastErr)
	}
	g.logger.Error("generation chain exhausted", "topic", req.Topic, "error", lastErr)
	return entity.NewFailure(entity.ErrorKindProviderExhausted, detail)
}

// tryProvider runs the retry policy for one provider. Authorization failures end it
// after a single call; transient and parse failures are retried with exponential backoff.
func (g *Gateway) tryProvider(ctx context.Context, p Provider, prompt Prompt, topic string) (entity.Article, error) {
	offline := isDeterministic(p)
	var lastErr error

	for attempt := 0; attempt < g.cfg.MaxAttempts; attempt++ {
		if attempt > 0 {
			delay := g.cfg.BaseDelay * time.Duration(1<<uint(attempt-1))
			g.logger.Warn("retrying generation provider",
				"provider", p.Name(),
				"topic", topic,
				"attempt", attempt+1,
				"delay", delay,
				"error", lastErr,
			)
			if err := g.sleep(ctx, delay); err != nil && !offline {
				return entity.Article{}, &entity.ProviderError{Provider: p.Name(), Err: err}
			}
		}

		if ctx.Err() != nil && !offline {
			return entity.Article{}, &entity.ProviderError{Provider: p.Name(), Err: ctx.Err()}
		}

		article, err := g.attempt(ctx, p, prompt, topic, offline)
		if err == nil {
			return article, nil
		}
		lastErr = err

		if entity.ClassifyError(err) == entity.ErrorKindProviderAuthFailed {
			return entity.Article{}, err
		}
	}

	return entity.Article{}, lastErr
}

func (g *Gateway) attempt(ctx context.Context, p Provider, prompt Prompt, topic string, offline bool) (entity.Article, error) {
	callCtx := ctx
	if offline {
		callCtx = context.WithoutCancel(ctx)
	}
	if g.cfg.CallTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(callCtx, g.cfg.CallTimeout)
		defer cancel()
	}

	start := time.Now()
	raw, err := p.Generate(callCtx, prompt, g.cfg.MaxTokens)
	elapsed := time.Since(start)

	if err != nil {
		var pe *entity.ProviderError
		if !errors.As(err, &pe) {
			err = &entity.ProviderError{Provider: p.Name(), Err: err}
		}
		outcome := "transient_failed"
		if entity.ClassifyError(err) == entity.ErrorKindProviderAuthFailed {
			outcome = "auth_failed"
		}
		metrics.RecordProviderAttempt(p.Name(), outcome, elapsed)
		return entity.Article{}, err
	}

	article, strategy, err := ParseArticle(raw, topic)
	if err != nil {
		metrics.RecordProviderAttempt(p.Name(), "unparseable", elapsed)
		g.archive(ctx, p.Name(), topic, raw)
		return entity.Article{}, &entity.ProviderError{Provider: p.Name(), Err: err}
	}

	metrics.RecordProviderAttempt(p.Name(), "success", elapsed)
	if strategy != parseLadder[0].name {
		g.logger.Debug("provider output recovered", "provider", p.Name(), "topic", topic, "strategy", strategy)
	}
	return article, nil
}

func (g *Gateway) archive(ctx context.Context, provider, topic, raw string) {
	if g.archiver == nil || raw == "" {
		return
	}
	key, err := g.archiver.ArchiveRaw(context.WithoutCancel(ctx), provider, topic, raw)
	if err != nil {
		g.logger.Warn("failed to archive unparseable output", "provider", provider, "error", err)
		return
	}
	g.logger.Info("archived unparseable output", "provider", provider, "topic", topic, "key", key)
}

func isDeterministic(p Provider) bool {
	d, ok := p.(deterministic)
	return ok && d.Deterministic()
}

func sleepContext(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
