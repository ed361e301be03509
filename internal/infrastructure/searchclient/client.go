package searchclient

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"webcontext/internal/domain/search"
	"webcontext/internal/infrastructure/config"
)

const (
	braveWebEndpointDefault  = "https://api.search.brave.com/res/v1/web/search"
	googleCSEEndpointDefault = "https://www.googleapis.com/customsearch/v1"

	// Backend-native page limits: Brave caps count at 20, Google CSE at 10.
	braveMaxPerRequest  = 20
	googleMaxPerRequest = 10

	// Hard ceiling on results fetched across pages, matching backend offset limits.
	maxTotalResults = 100

	pagePause = 50 * time.Millisecond
)

// ClientConfig captures the knobs exposed to operators for the search client.
type ClientConfig struct {
	Provider     config.SearchProvider
	BraveAPIKey  string
	GoogleAPIKey string
	GoogleCXKey  string

	// Endpoint overrides, used by tests and self-hosted proxies.
	BraveEndpoint  string
	GoogleEndpoint string

	HTTPTimeout time.Duration

	Retry RetryConfig
	CB    CircuitBreakerConfig
}

// SearchClient implements search.Client with Brave and Google CSE backends.
// The active backend is resolved once at construction, not per call.
type SearchClient struct {
	cfg         ClientConfig
	provider    config.SearchProvider
	httpClient  *resty.Client
	retryConfig RetryConfig
	cb          *CircuitBreaker
}

var _ search.Client = (*SearchClient)(nil)

// NewSearchClient wires the HTTP client for the configured backend.
func NewSearchClient(cfg ClientConfig) *SearchClient {
	if strings.TrimSpace(cfg.BraveEndpoint) == "" {
		cfg.BraveEndpoint = braveWebEndpointDefault
	}
	if strings.TrimSpace(cfg.GoogleEndpoint) == "" {
		cfg.GoogleEndpoint = googleCSEEndpointDefault
	}

	timeout := cfg.HTTPTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	httpClient := resty.New().
		SetHeader("User-Agent", "webcontext/1.0").
		SetTimeout(timeout).
		SetRetryCount(0)

	retryConfig := cfg.Retry
	if retryConfig.MaxAttempts <= 0 {
		retryConfig = DefaultRetryConfig()
	}
	cbConfig := cfg.CB
	if cbConfig.FailureThreshold <= 0 {
		cbConfig = DefaultCircuitBreakerConfig()
	}

	return &SearchClient{
		cfg:         cfg,
		provider:    cfg.Provider,
		httpClient:  httpClient,
		retryConfig: retryConfig,
		cb:          NewCircuitBreaker(cbConfig),
	}
}

// Provider returns the active backend name.
func (c *SearchClient) Provider() string {
	return string(c.provider)
}

// buildDomainRestrictedQuery applies site: operators uniformly regardless of
// backend, so callers need not know which one is active.
func buildDomainRestrictedQuery(query string, domains []string) string {
	var filters []string
	for _, domain := range domains {
		if trimmed := strings.TrimSpace(domain); trimmed != "" {
			filters = append(filters, fmt.Sprintf("site:%s", trimmed))
		}
	}
	if len(filters) == 0 {
		return query
	}
	return fmt.Sprintf("(%s) %s", strings.Join(filters, " OR "), query)
}

// redactURLQueryParam replaces the value of param in a URL so credentials
// never reach the logs.
func redactURLQueryParam(rawURL, param string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	values := parsed.Query()
	if _, ok := values[param]; ok {
		values.Set(param, "REDACTED")
		parsed.RawQuery = values.Encode()
	}
	return parsed.String()
}

// compactSnippet flattens a response body excerpt onto one line for logging.
func compactSnippet(text string, limit int) string {
	if limit <= 0 {
		limit = 300
	}
	if len(text) > limit {
		text = text[:limit]
	}
	replacer := strings.NewReplacer("\r", "\\r", "\n", "\\n", "\t", "\\t")
	return strings.TrimSpace(replacer.Replace(text))
}

func errStatus(code int, status string) error {
	return fmt.Errorf("unexpected status %d: %s", code, status)
}

// skippableLink filters links the collectors never keep: video platform pages
// and duplicates already seen in this search.
func skippableLink(link string, seen map[string]struct{}) bool {
	if link == "" {
		return true
	}
	if strings.Contains(link, "youtube.com") {
		return true
	}
	_, dup := seen[link]
	return dup
}
