package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"webcontext/internal/infrastructure/analyzer"
	"webcontext/internal/infrastructure/browser"
	"webcontext/internal/infrastructure/cachestore"
	"webcontext/internal/infrastructure/metrics"
)

// Fetcher retrieves rendered page content.
type Fetcher interface {
	Fetch(ctx context.Context, url string, timeout time.Duration) (*browser.Result, error)
}

// Analyzer runs an instruction against page content.
type Analyzer interface {
	Analyze(ctx context.Context, content, instruction string) (*analyzer.Result, error)
	Providers() []string
}

// Cache is the persistence surface the service needs. Failures here must
// never fail an extraction.
type Cache interface {
	Get(ctx context.Context, fingerprint string) ([]byte, bool, error)
	Put(ctx context.Context, fingerprint string, payload []byte, ttl time.Duration) error
}

// Config holds extraction tunables.
type Config struct {
	NavTimeout   time.Duration
	RetryTimeout time.Duration // second attempt budget after a failed fetch
	MaxChars     int           // cap on raw content kept per page
}

// Service implements the extraction pipeline: cache lookup, live fetch with
// one longer-budget retry on fetch failure, optional AI analysis, cache write.
type Service struct {
	fetcher  Fetcher
	analyzer Analyzer
	cache    Cache
	cfg      Config

	// providerTag folds the analysis backend order into the cache key so a
	// reconfigured chain never serves answers produced by a different one.
	providerTag string
}

// NewService wires the pipeline. cache may be nil when caching is disabled.
func NewService(fetcher Fetcher, an Analyzer, cache Cache, cfg Config) *Service {
	if cfg.NavTimeout <= 0 {
		cfg.NavTimeout = 30 * time.Second
	}
	if cfg.RetryTimeout <= cfg.NavTimeout {
		cfg.RetryTimeout = 2 * cfg.NavTimeout
	}
	if cfg.MaxChars <= 0 {
		cfg.MaxChars = 100000
	}

	tag := ""
	if an != nil {
		tag = strings.Join(an.Providers(), ",")
	}

	return &Service{
		fetcher:     fetcher,
		analyzer:    an,
		cache:       cache,
		cfg:         cfg,
		providerTag: tag,
	}
}

// Extract runs one extraction. Identical requests hit the cache within its
// TTL; a stale or missing entry triggers a live fetch whose result replaces
// the cached one.
func (s *Service) Extract(ctx context.Context, req Request) (*Result, error) {
	if strings.TrimSpace(req.URL) == "" {
		return nil, fmt.Errorf("extract: url is required")
	}

	fingerprint := cachestore.Fingerprint(req.URL, req.Instruction, s.providerTag)

	if !req.BypassCache {
		if cached := s.lookupCache(ctx, fingerprint); cached != nil {
			return cached, nil
		}
	}

	page, err := s.fetchWithRetry(ctx, req.URL)
	if err != nil {
		return nil, err
	}

	result := &Result{
		URL:        req.URL,
		Title:      page.Title,
		RawContent: clampRunes(page.Text, s.cfg.MaxChars),
		Source:     SourceLive,
		FetchedAt:  time.Now().UTC(),
	}

	if strings.TrimSpace(req.Instruction) != "" {
		if s.analyzer == nil {
			return nil, fmt.Errorf("extract: instruction given but no analysis backend configured")
		}
		analysis, err := s.analyzer.Analyze(ctx, result.RawContent, req.Instruction)
		if err != nil {
			return nil, err
		}
		result.Analysis = analysis.Output
		result.ProviderUsed = analysis.Provider
	}

	s.storeCache(ctx, fingerprint, result)
	return result, nil
}

// lookupCache returns the cached result or nil. Cache trouble degrades to a
// live fetch and is only logged.
func (s *Service) lookupCache(ctx context.Context, fingerprint string) *Result {
	if s.cache == nil {
		return nil
	}

	payload, ok, err := s.cache.Get(ctx, fingerprint)
	if err != nil {
		metrics.RecordCacheLookup("error")
		log.Warn().
			Err(err).
			Bool("store_unavailable", cachestore.IsUnavailable(err)).
			Msg("cache lookup failed, falling through to live fetch")
		return nil
	}
	if !ok {
		metrics.RecordCacheLookup("miss")
		return nil
	}

	var result Result
	if err := json.Unmarshal(payload, &result); err != nil {
		metrics.RecordCacheLookup("error")
		log.Warn().Err(err).Msg("cache entry is undecodable, falling through to live fetch")
		return nil
	}

	metrics.RecordCacheLookup("hit")
	result.Source = SourceCache
	return &result
}

func (s *Service) storeCache(ctx context.Context, fingerprint string, result *Result) {
	if s.cache == nil {
		return
	}

	payload, err := json.Marshal(result)
	if err != nil {
		log.Warn().Err(err).Msg("cache encode failed, result not persisted")
		return
	}
	if err := s.cache.Put(ctx, fingerprint, payload, 0); err != nil {
		log.Warn().
			Err(err).
			Bool("store_unavailable", cachestore.IsUnavailable(err)).
			Msg("cache write failed, result not persisted")
	}
}

// fetchWithRetry fetches once with the standard budget and, when that
// attempt fails with a typed fetch error, once more with the larger retry
// budget. Errors that are not fetch errors surface immediately.
func (s *Service) fetchWithRetry(ctx context.Context, url string) (*browser.Result, error) {
	page, err := s.fetcher.Fetch(ctx, url, s.cfg.NavTimeout)
	if err == nil {
		return page, nil
	}

	fe, ok := browser.AsFetchError(err)
	if !ok || ctx.Err() != nil {
		return nil, err
	}

	log.Debug().
		Str("url", url).
		Str("reason", string(fe.Reason)).
		Dur("retry_timeout", s.cfg.RetryTimeout).
		Msg("fetch failed, retrying once with larger budget")
	return s.fetcher.Fetch(ctx, url, s.cfg.RetryTimeout)
}

func clampRunes(text string, maxChars int) string {
	if maxChars <= 0 {
		return text
	}
	runes := []rune(text)
	if len(runes) <= maxChars {
		return text
	}
	return string(runes[:maxChars])
}
