package searchclient

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"webcontext/internal/domain/search"
	"webcontext/internal/infrastructure/config"
	"webcontext/internal/infrastructure/metrics"
)

// Search runs req against the configured backend with retry and circuit
// breaker protection. Returning fewer results than requested is not an error.
func (c *SearchClient) Search(ctx context.Context, req search.Request) ([]search.ResultEntry, error) {
	if req.MaxResults <= 0 {
		req.MaxResults = 10
	}
	if req.MaxResults > maxTotalResults {
		req.MaxResults = maxTotalResults
	}

	if !c.cb.allowRequest() {
		log.Warn().
			Str("provider", c.Provider()).
			Str("cb_state", c.cb.GetState().String()).
			Msg("search rejected by circuit breaker")
		return nil, &search.ProviderError{
			Provider: c.Provider(),
			Err:      fmt.Errorf("circuit breaker is open"),
		}
	}

	startTime := time.Now()
	status := "success"
	defer func() {
		metrics.RecordProviderRequest("search", c.Provider(), status)
		metrics.RecordProviderLatency(c.Provider(), time.Since(startTime).Seconds())
	}()

	query := buildDomainRestrictedQuery(req.Query, req.SiteFilter)

	log.Debug().
		Str("operation", "search").
		Str("provider", c.Provider()).
		Str("query", query).
		Int("max_results", req.MaxResults).
		Msg("search client dispatching to backend")

	var (
		results []search.ResultEntry
		err     error
	)
	switch c.provider {
	case config.ProviderBrave:
		results, err = c.searchViaBrave(ctx, query, req.MaxResults)
	case config.ProviderGoogleCSE:
		results, err = c.searchViaGoogleCSE(ctx, query, req.MaxResults)
	default:
		err = &search.ProviderError{
			Provider: string(c.provider),
			Err:      fmt.Errorf("unsupported search provider"),
		}
	}

	c.cb.recordResult("search", err)

	if err != nil {
		status = "error"
		log.Error().Err(err).Str("provider", c.Provider()).Msg("search failed after retries")
		return nil, err
	}
	return results, nil
}
