package searchclient

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"webcontext/internal/domain/search"
)

type braveWebResponse struct {
	Query *braveQueryInfo `json:"query"`
	Web   *braveWebBlock  `json:"web"`
}

type braveQueryInfo struct {
	MoreResultsAvailable *bool `json:"more_results_available"`
}

type braveWebBlock struct {
	Results []braveWebResult `json:"results"`
}

type braveWebResult struct {
	Title         string   `json:"title"`
	URL           string   `json:"url"`
	Description   string   `json:"description"`
	ExtraSnippets []string `json:"extra_snippets"`
}

// searchViaBrave pages through the Brave web search API. Brave caps count at
// 20 per request and offset at 9, so at most 10 pages are fetched.
func (c *SearchClient) searchViaBrave(ctx context.Context, query string, maxResults int) ([]search.ResultEntry, error) {
	perRequest := maxResults
	if perRequest > braveMaxPerRequest {
		perRequest = braveMaxPerRequest
	}
	pages := (maxResults + perRequest - 1) / perRequest
	if pages > 10 {
		pages = 10
	}

	seen := make(map[string]struct{})
	results := make([]search.ResultEntry, 0, maxResults)

	for page := 0; page < pages; page++ {
		payload, err := WithRetry(ctx, c.retryConfig, "brave_search", func() (*braveWebResponse, error) {
			var res braveWebResponse
			resp, err := c.httpClient.R().
				SetContext(ctx).
				SetHeader("Accept", "application/json").
				SetHeader("Accept-Encoding", "gzip").
				SetHeader("X-Subscription-Token", c.cfg.BraveAPIKey).
				SetQueryParams(map[string]string{
					"q":              query,
					"count":          strconv.Itoa(perRequest),
					"offset":         strconv.Itoa(page),
					"extra_snippets": "true",
					"result_filter":  "web,query",
				}).
				SetResult(&res).
				Get(c.cfg.BraveEndpoint)

			if err != nil {
				log.Error().Err(err).Str("service", "brave").Msg("failed to query Brave web search API")
				return nil, &search.ProviderError{Provider: "brave", Err: err}
			}
			if resp.IsError() {
				log.Error().
					Int("status", resp.StatusCode()).
					Str("service", "brave").
					Str("body_snippet", compactSnippet(resp.String(), 300)).
					Msg("Brave web search API error")
				return nil, &search.ProviderError{
					Provider: "brave",
					Status:   resp.StatusCode(),
					Err:      errStatus(resp.StatusCode(), resp.Status()),
				}
			}
			return &res, nil
		})
		if err != nil {
			return nil, err
		}

		entries := parseBraveWebResults(payload)
		if len(entries) == 0 {
			break
		}

		for _, entry := range entries {
			if skippableLink(entry.Link, seen) {
				continue
			}
			results = append(results, entry)
			seen[entry.Link] = struct{}{}
			if len(results) >= maxResults {
				break
			}
		}
		if len(results) >= maxResults {
			break
		}

		if payload.Query != nil && payload.Query.MoreResultsAvailable != nil && !*payload.Query.MoreResultsAvailable {
			break
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(pagePause):
		}
	}

	if len(results) > maxResults {
		results = results[:maxResults]
	}
	return results, nil
}

// parseBraveWebResults maps Brave's native shape into ResultEntry values. The
// snippet is the description augmented with deduplicated extra-snippet text
// when the backend supplies it.
func parseBraveWebResults(payload *braveWebResponse) []search.ResultEntry {
	if payload == nil || payload.Web == nil {
		return nil
	}

	entries := make([]search.ResultEntry, 0, len(payload.Web.Results))
	for _, item := range payload.Web.Results {
		title := strings.TrimSpace(item.Title)
		link := strings.TrimSpace(item.URL)
		if title == "" || link == "" {
			continue
		}

		var parts []string
		if desc := strings.TrimSpace(item.Description); desc != "" {
			parts = append(parts, desc)
		}
		for _, extra := range item.ExtraSnippets {
			if cleaned := strings.TrimSpace(extra); cleaned != "" {
				parts = append(parts, cleaned)
			}
		}

		// De-duplicate while preserving order.
		seen := make(map[string]struct{}, len(parts))
		deduped := parts[:0]
		for _, part := range parts {
			if _, dup := seen[part]; dup {
				continue
			}
			seen[part] = struct{}{}
			deduped = append(deduped, part)
		}

		entries = append(entries, search.ResultEntry{
			Title:   title,
			Link:    link,
			Snippet: strings.Join(deduped, "\n"),
		})
	}
	return entries
}
