package search

import (
	"context"
	"errors"
	"fmt"
)

// ResultEntry is the provider-independent shape of a single search result.
// Immutable once constructed.
type ResultEntry struct {
	Title   string `json:"title"`
	Link    string `json:"link"`
	Snippet string `json:"snippet"`
}

// Request describes one search invocation.
type Request struct {
	Query      string   `json:"query"`
	MaxResults int      `json:"max_results,omitempty"`
	SiteFilter []string `json:"site_filter,omitempty"` // restrict results to these domains
}

// Client is implemented by search backend adapters. Backends returning fewer
// results than requested is not an error.
type Client interface {
	Search(ctx context.Context, req Request) ([]ResultEntry, error)
	Provider() string
}

// ProviderError reports a search backend failure, carrying the provider name
// and HTTP status when one was received.
type ProviderError struct {
	Provider string
	Status   int
	Err      error
}

func (e *ProviderError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("search provider %s failed (status %d): %v", e.Provider, e.Status, e.Err)
	}
	return fmt.Sprintf("search provider %s failed: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// AsProviderError unwraps err into a ProviderError if possible.
func AsProviderError(err error) (*ProviderError, bool) {
	var pe *ProviderError
	ok := errors.As(err, &pe)
	return pe, ok
}
