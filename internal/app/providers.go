package app

import (
	"fmt"

	"github.com/vadim/neo-content/internal/config"
	batchpolicy "github.com/vadim/neo-content/internal/domain/batch/policy"
	genservice "github.com/vadim/neo-content/internal/domain/generation/service"
	"github.com/vadim/neo-content/internal/httpx/upstream/openai"
	"github.com/vadim/neo-content/internal/httpx/upstream/openrouter"
)

// BuildProviders assembles the provider chain in priority order.
// Real providers are included only when configured; the template always closes the chain.
func BuildProviders(cfg config.Config) ([]genservice.Provider, error) {
	var providers []genservice.Provider

	if cfg.Primary.Enabled() {
		opts := []openai.Option{openai.WithContextWindow(cfg.Primary.ContextWindow)}
		if cfg.Primary.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(cfg.Primary.BaseURL))
		}
		primary, err := openai.New(cfg.Primary.APIKey, cfg.Primary.Model, opts...)
		if err != nil {
			return nil, fmt.Errorf("creating primary provider: %w", err)
		}
		providers = append(providers, primary)
	}

	if cfg.Secondary.Enabled() {
		secondary, err := openrouter.New(openrouter.Config{
			APIKey:        cfg.Secondary.APIKey,
			Model:         cfg.Secondary.Model,
			BaseURL:       cfg.Secondary.BaseURL,
			ContextWindow: cfg.Secondary.ContextWindow,
		})
		if err != nil {
			return nil, fmt.Errorf("creating secondary provider: %w", err)
		}
		providers = append(providers, secondary)
	}

	return append(providers, genservice.NewTemplateProvider()), nil
}

// GatewayConfig maps the generation section onto the gateway retry policy
func GatewayConfig(cfg config.Generation) genservice.GatewayConfig {
	gc := genservice.DefaultGatewayConfig()
	if cfg.MaxAttempts > 0 {
		gc.MaxAttempts = cfg.MaxAttempts
	}
	if cfg.BaseDelay > 0 {
		gc.BaseDelay = cfg.BaseDelay
	}
	if cfg.MaxTokens > 0 {
		gc.MaxTokens = cfg.MaxTokens
	}
	if cfg.CallTimeout > 0 {
		gc.CallTimeout = cfg.CallTimeout
	}
	return gc
}

// ClusterConfig maps the cluster section onto the orchestrator settings
func ClusterConfig(cfg config.Cluster) batchpolicy.Config {
	bc := batchpolicy.DefaultConfig()
	if cfg.Size > 0 {
		bc.ClusterSize = cfg.Size
	}
	if cfg.Timeout > 0 {
		bc.ClusterTimeout = cfg.Timeout
	}
	if cfg.Lookback > 0 {
		bc.Lookback = cfg.Lookback
	}
	if cfg.RecentClaimWindow > 0 {
		bc.RecentClaimWindow = cfg.RecentClaimWindow
	}
	bc.CorrelationMatching = cfg.CorrelationMatching
	return bc
}
