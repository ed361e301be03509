package infrastructure

import (
	"context"
	"strings"
	"time"

	"github.com/google/wire"
	"github.com/rs/zerolog/log"

	"webcontext/internal/domain/search"
	"webcontext/internal/infrastructure/analyzer"
	"webcontext/internal/infrastructure/browser"
	"webcontext/internal/infrastructure/cachestore"
	"webcontext/internal/infrastructure/config"
	"webcontext/internal/infrastructure/searchclient"
)

// InfrastructureProvider provides all infrastructure dependencies
var InfrastructureProvider = wire.NewSet(
	// Config
	ProvideConfig,

	// Search client
	ProvideSearchClient,

	// Content cache
	ProvideCacheStore,

	// Headless browser
	ProvideBrowserFetcher,

	// AI analysis chain
	ProvideAnalyzer,
)

// ProvideConfig loads and provides the application configuration
func ProvideConfig() (*config.Config, error) {
	return config.LoadConfig()
}

// ProvideSearchClient provides the search backend adapter
func ProvideSearchClient(cfg *config.Config) (search.Client, error) {
	provider, err := cfg.ResolveSearchProvider()
	if err != nil {
		return nil, err
	}
	return searchclient.NewSearchClient(searchclient.ClientConfig{
		Provider:     provider,
		BraveAPIKey:  cfg.BraveKey(),
		GoogleAPIKey: cfg.GoogleAPIKey,
		GoogleCXKey:  cfg.GoogleCXKey,
		HTTPTimeout:  cfg.SearchHTTPTimeout,
		Retry: searchclient.RetryConfig{
			MaxAttempts:     cfg.SearchRetryMaxAttempts,
			InitialDelay:    time.Duration(cfg.SearchRetryInitialMs) * time.Millisecond,
			MaxDelay:        time.Duration(cfg.SearchRetryMaxMs) * time.Millisecond,
			BackoffFactor:   cfg.SearchRetryBackoff,
			RetryableErrors: searchclient.DefaultRetryConfig().RetryableErrors,
		},
		CB: searchclient.CircuitBreakerConfig{
			Enabled:          cfg.SearchCBEnabled,
			FailureThreshold: cfg.SearchCBFailures,
			SuccessThreshold: cfg.SearchCBSuccesses,
			Timeout:          cfg.SearchCBTimeout,
			MaxHalfOpenCalls: searchclient.DefaultCircuitBreakerConfig().MaxHalfOpenCalls,
		},
	}), nil
}

// ProvideCacheStore opens the content cache and starts its sweeper
func ProvideCacheStore(ctx context.Context, cfg *config.Config) (*cachestore.Store, error) {
	store, err := cachestore.Open(cachestore.Config{
		Path:          cfg.CachePath,
		DefaultTTL:    cfg.CacheTTL,
		MaxEntries:    cfg.CacheMaxEntries,
		MaxBytes:      cfg.CacheMaxBytes,
		SweepInterval: cfg.CacheSweepInterval,
	})
	if err != nil {
		return nil, err
	}
	store.StartSweeper(ctx)
	return store, nil
}

// ProvideBrowserFetcher provides the headless browser fetcher
func ProvideBrowserFetcher(cfg *config.Config) *browser.Fetcher {
	return browser.NewFetcher(browser.Config{
		Headless:    cfg.BrowserHeadless,
		DebuggerURL: cfg.BrowserDebuggerURL,
		NavTimeout:  cfg.BrowserNavTimeout,
	})
}

// ProvideAnalyzer builds the AI fallback chain from the configured order.
// Backends without credentials are skipped, not errors; an empty chain only
// matters once an instruction-bearing request arrives.
func ProvideAnalyzer(cfg *config.Config) *analyzer.Analyzer {
	var providers []analyzer.Provider
	for _, name := range cfg.AIProviderOrder {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "openai":
			if cfg.OpenAIAPIKey == "" && cfg.OpenAIBaseURL == "" {
				continue
			}
			providers = append(providers, analyzer.NewOpenAIProvider(analyzer.OpenAIConfig{
				Name:    "openai",
				APIKey:  cfg.OpenAIAPIKey,
				BaseURL: cfg.OpenAIBaseURL,
				Model:   cfg.OpenAIModel,
			}))
		case "anthropic":
			if cfg.AnthropicAPIKey == "" {
				continue
			}
			providers = append(providers, analyzer.NewAnthropicProvider(analyzer.AnthropicConfig{
				APIKey: cfg.AnthropicAPIKey,
				Model:  cfg.AnthropicModel,
			}))
		case "local":
			if cfg.LocalAIBaseURL == "" {
				continue
			}
			providers = append(providers, analyzer.NewOpenAIProvider(analyzer.OpenAIConfig{
				Name:    "local",
				APIKey:  "not-needed",
				BaseURL: cfg.LocalAIBaseURL,
				Model:   cfg.LocalAIModel,
			}))
		default:
			log.Warn().Str("provider", name).Msg("unknown AI provider in AI_PROVIDER_ORDER, skipping")
		}
	}

	an := analyzer.NewAnalyzer(analyzer.Config{
		MaxContentBytes: cfg.AIMaxContentBytes,
		RequestTimeout:  cfg.AIRequestTimeout,
	}, providers...)

	log.Info().Strs("providers", an.Providers()).Msg("AI analysis chain configured")
	return an
}
