package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// SearchProvider identifies a search backend.
type SearchProvider string

const (
	ProviderBrave     SearchProvider = "brave"
	ProviderGoogleCSE SearchProvider = "google"
)

// ConfigurationError is fatal at startup, e.g. no search credential present.
type ConfigurationError struct {
	Field   string
	Message string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error (%s): %s", e.Field, e.Message)
}

// Config holds all configuration for the web context service.
type Config struct {
	// HTTP Server
	HTTPPort  string `env:"WEBCTX_HTTP_PORT" envDefault:"8089"`
	LogLevel  string `env:"WEBCTX_LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"WEBCTX_LOG_FORMAT" envDefault:"json"` // json or console

	// Search provider selection and credentials
	SearchProvider    string `env:"SEARCH_PROVIDER"` // brave or google; empty selects by credential presence
	BraveAPIKey       string `env:"BRAVE_API_KEY"`
	BraveSearchAPIKey string `env:"BRAVE_SEARCH_API_KEY"` // legacy alias
	GoogleAPIKey      string `env:"GOOGLE_API_KEY"`
	GoogleCXKey       string `env:"GOOGLE_CX_KEY"`

	// Search client behaviour
	SearchHTTPTimeout      time.Duration `env:"SEARCH_HTTP_TIMEOUT" envDefault:"15s"`
	SearchRetryMaxAttempts int           `env:"SEARCH_RETRY_MAX_ATTEMPTS" envDefault:"3"`
	SearchRetryInitialMs   int           `env:"SEARCH_RETRY_INITIAL_DELAY" envDefault:"250"`
	SearchRetryMaxMs       int           `env:"SEARCH_RETRY_MAX_DELAY" envDefault:"5000"`
	SearchRetryBackoff     float64       `env:"SEARCH_RETRY_BACKOFF_FACTOR" envDefault:"1.5"`
	SearchCBEnabled        bool          `env:"SEARCH_CB_ENABLED" envDefault:"true"`
	SearchCBFailures       int           `env:"SEARCH_CB_FAILURE_THRESHOLD" envDefault:"10"`
	SearchCBSuccesses      int           `env:"SEARCH_CB_SUCCESS_THRESHOLD" envDefault:"3"`
	SearchCBTimeout        time.Duration `env:"SEARCH_CB_TIMEOUT" envDefault:"45s"`

	// Cache store
	CachePath          string        `env:"CACHE_PATH" envDefault:"webcontext-cache.db"`
	CacheTTL           time.Duration `env:"CACHE_TTL" envDefault:"1h"`
	CacheMaxEntries    int64         `env:"CACHE_MAX_ENTRIES" envDefault:"10000"`
	CacheMaxBytes      int64         `env:"CACHE_MAX_BYTES" envDefault:"268435456"` // 256 MiB
	CacheSweepInterval time.Duration `env:"CACHE_SWEEP_INTERVAL" envDefault:"5m"`

	// Browser fetcher
	BrowserHeadless     bool          `env:"BROWSER_HEADLESS" envDefault:"true"`
	BrowserDebuggerURL  string        `env:"BROWSER_DEBUGGER_URL"`
	BrowserNavTimeout   time.Duration `env:"BROWSER_NAV_TIMEOUT" envDefault:"30s"`
	BrowserRetryTimeout time.Duration `env:"BROWSER_RETRY_TIMEOUT" envDefault:"60s"` // second attempt after a FetchError

	// AI analyzer
	AIProviderOrder   []string      `env:"AI_PROVIDER_ORDER" envSeparator:"," envDefault:"openai,anthropic,local"`
	OpenAIAPIKey      string        `env:"OPENAI_API_KEY"`
	OpenAIBaseURL     string        `env:"OPENAI_BASE_URL"`
	OpenAIModel       string        `env:"OPENAI_MODEL" envDefault:"gpt-4o-mini"`
	AnthropicAPIKey   string        `env:"ANTHROPIC_API_KEY"`
	AnthropicModel    string        `env:"ANTHROPIC_MODEL" envDefault:"claude-3-5-haiku-latest"`
	LocalAIBaseURL    string        `env:"LOCAL_AI_BASE_URL"` // OpenAI-compatible local endpoint, e.g. Ollama
	LocalAIModel      string        `env:"LOCAL_AI_MODEL" envDefault:"llama3.1"`
	AIMaxContentBytes int           `env:"AI_MAX_CONTENT_BYTES" envDefault:"48000"`
	AIRequestTimeout  time.Duration `env:"AI_REQUEST_TIMEOUT" envDefault:"120s"`

	// Agentic search loop
	AgentMaxIterations int `env:"AGENT_MAX_ITERATIONS" envDefault:"3"`
	AgentFanoutLimit   int `env:"AGENT_FANOUT_LIMIT" envDefault:"3"`
	AgentMaxCandidates int `env:"AGENT_MAX_CANDIDATES" envDefault:"3"`

	// Tool output limits
	MaxSnippetChars int `env:"MAX_SNIPPET_CHARS" envDefault:"5000"`
	MaxContentChars int `env:"MAX_CONTENT_CHARS" envDefault:"50000"`
}

// LoadConfig loads configuration from environment variables and validates
// invariants that must hold before the service starts.
func LoadConfig() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	if _, err := cfg.ResolveSearchProvider(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// BraveKey returns the Brave credential, honouring the legacy alias.
func (c *Config) BraveKey() string {
	if key := strings.TrimSpace(c.BraveAPIKey); key != "" {
		return key
	}
	return strings.TrimSpace(c.BraveSearchAPIKey)
}

// ResolveSearchProvider picks the active search backend. An explicit
// SEARCH_PROVIDER wins; otherwise a Brave credential selects Brave, else
// Google CSE. Having neither credential is a startup error, not a per-request
// one.
func (c *Config) ResolveSearchProvider() (SearchProvider, error) {
	hasBrave := c.BraveKey() != ""
	hasGoogle := strings.TrimSpace(c.GoogleAPIKey) != "" && strings.TrimSpace(c.GoogleCXKey) != ""

	switch strings.ToLower(strings.TrimSpace(c.SearchProvider)) {
	case string(ProviderBrave):
		if !hasBrave {
			return "", &ConfigurationError{Field: "BRAVE_API_KEY", Message: "SEARCH_PROVIDER=brave but no Brave credential is set"}
		}
		return ProviderBrave, nil
	case string(ProviderGoogleCSE):
		if !hasGoogle {
			return "", &ConfigurationError{Field: "GOOGLE_API_KEY", Message: "SEARCH_PROVIDER=google but GOOGLE_API_KEY/GOOGLE_CX_KEY are not both set"}
		}
		return ProviderGoogleCSE, nil
	case "":
		if hasBrave {
			return ProviderBrave, nil
		}
		if hasGoogle {
			return ProviderGoogleCSE, nil
		}
		return "", &ConfigurationError{Field: "SEARCH_PROVIDER", Message: "no search provider credential found; set BRAVE_API_KEY or GOOGLE_API_KEY+GOOGLE_CX_KEY"}
	default:
		return "", &ConfigurationError{Field: "SEARCH_PROVIDER", Message: fmt.Sprintf("unknown search provider %q", c.SearchProvider)}
	}
}
