// Package extract turns a URL plus an optional instruction into analyzed page
// content, consulting the content cache before touching the network.
package extract

import "time"

// Source tells the caller whether a result was served from cache or fetched
// live during this call.
type Source string

const (
	SourceCache Source = "cache"
	SourceLive  Source = "live"
)

// Request describes one extraction. The cache is consulted unless BypassCache
// is set.
type Request struct {
	URL         string
	Instruction string
	BypassCache bool
}

// Result is the outcome of an extraction. It is also the payload persisted in
// the cache, minus the Source field which is recomputed per call.
type Result struct {
	URL          string    `json:"url"`
	Title        string    `json:"title,omitempty"`
	RawContent   string    `json:"raw_content"`
	Analysis     string    `json:"analysis,omitempty"`
	ProviderUsed string    `json:"provider_used,omitempty"`
	Source       Source    `json:"source"`
	FetchedAt    time.Time `json:"fetched_at"`
}
