package searchclient

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"webcontext/internal/domain/search"
)

type googleCSEResponse struct {
	Items []googleCSEItem `json:"items"`
	Error *googleCSEError `json:"error"`
}

type googleCSEItem struct {
	Title   string `json:"title"`
	Link    string `json:"link"`
	Snippet string `json:"snippet"`
}

type googleCSEError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// searchViaGoogleCSE pages through the Google Custom Search JSON API using the
// 1-based start index. The API returns at most 10 items per request and 100
// items overall.
func (c *SearchClient) searchViaGoogleCSE(ctx context.Context, query string, maxResults int) ([]search.ResultEntry, error) {
	perRequest := maxResults
	if perRequest > googleMaxPerRequest {
		perRequest = googleMaxPerRequest
	}
	pages := (maxResults + perRequest - 1) / perRequest

	seen := make(map[string]struct{})
	results := make([]search.ResultEntry, 0, maxResults)

	for page := 0; page < pages; page++ {
		startIndex := page*perRequest + 1

		payload, err := WithRetry(ctx, c.retryConfig, "google_cse_search", func() (*googleCSEResponse, error) {
			var res googleCSEResponse
			resp, err := c.httpClient.R().
				SetContext(ctx).
				SetQueryParams(map[string]string{
					"key":   c.cfg.GoogleAPIKey,
					"cx":    c.cfg.GoogleCXKey,
					"q":     query,
					"start": strconv.Itoa(startIndex),
					"num":   strconv.Itoa(perRequest),
				}).
				SetResult(&res).
				Get(c.cfg.GoogleEndpoint)

			if err != nil {
				log.Error().Err(err).Str("service", "google_cse").Msg("failed to query Google CSE API")
				return nil, &search.ProviderError{Provider: "google", Err: err}
			}
			if resp.IsError() {
				log.Error().
					Int("status", resp.StatusCode()).
					Str("service", "google_cse").
					Str("url", redactURLQueryParam(resp.Request.URL, "key")).
					Str("body_snippet", compactSnippet(resp.String(), 300)).
					Msg("Google CSE API error")
				return nil, &search.ProviderError{
					Provider: "google",
					Status:   resp.StatusCode(),
					Err:      errStatus(resp.StatusCode(), resp.Status()),
				}
			}
			if res.Error != nil {
				log.Error().
					Int("code", res.Error.Code).
					Str("service", "google_cse").
					Str("message", res.Error.Message).
					Msg("Google CSE API returned an embedded error")
				return nil, &search.ProviderError{
					Provider: "google",
					Status:   res.Error.Code,
					Err:      fmt.Errorf("api error: %s", res.Error.Message),
				}
			}
			return &res, nil
		})
		if err != nil {
			return nil, err
		}

		if len(payload.Items) == 0 {
			break
		}

		for _, item := range payload.Items {
			if item.Title == "" || skippableLink(item.Link, seen) {
				continue
			}
			results = append(results, search.ResultEntry{
				Title:   item.Title,
				Link:    item.Link,
				Snippet: item.Snippet,
			})
			seen[item.Link] = struct{}{}
			if len(results) >= maxResults {
				break
			}
		}

		if len(results) >= maxResults || len(payload.Items) < perRequest {
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
