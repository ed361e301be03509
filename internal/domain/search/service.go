package search

import (
	"context"
	"strings"

	"github.com/rs/zerolog/log"
)

const defaultMaxResults = 10

// Service fronts the configured search backend for the transport layers and
// the agentic loop.
type Service struct {
	client Client
}

// NewService creates a search service around the configured backend adapter.
func NewService(client Client) *Service {
	return &Service{client: client}
}

// Provider returns the name of the active search backend.
func (s *Service) Provider() string {
	return s.client.Provider()
}

// Search runs a query against the active backend. Count defaults to 10 when
// unset; siteFilter entries are applied uniformly as site: operators by the
// adapter so callers need not know which backend is active.
func (s *Service) Search(ctx context.Context, query string, count int, siteFilter []string) ([]ResultEntry, error) {
	if count <= 0 {
		count = defaultMaxResults
	}

	cleaned := make([]string, 0, len(siteFilter))
	for _, domain := range siteFilter {
		if trimmed := strings.TrimSpace(domain); trimmed != "" {
			cleaned = append(cleaned, trimmed)
		}
	}

	results, err := s.client.Search(ctx, Request{
		Query:      query,
		MaxResults: count,
		SiteFilter: cleaned,
	})
	if err != nil {
		return nil, err
	}

	log.Debug().
		Str("provider", s.client.Provider()).
		Str("query", query).
		Int("result_count", len(results)).
		Msg("search completed")
	return results, nil
}
