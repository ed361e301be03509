package mcp

import (
	"context"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog/log"

	"webcontext/internal/domain/agentic"
	"webcontext/internal/domain/extract"
	domainsearch "webcontext/internal/domain/search"
	"webcontext/internal/infrastructure/metrics"
)

// SearchWebPagesArgs defines the arguments for the search_web_pages tool
type SearchWebPagesArgs struct {
	Query      string   `json:"query" jsonschema:"the web search query"`
	MaxResults *int     `json:"max_results,omitempty" jsonschema:"maximum number of results to return (default 10, max 100)"`
	SiteFilter []string `json:"site_filter,omitempty" jsonschema:"restrict results to these domains"`
}

// FetchWebContentArgs defines the arguments for the fetch_web_content tool
type FetchWebContentArgs struct {
	URL         string `json:"url" jsonschema:"the URL to fetch"`
	Instruction string `json:"instruction,omitempty" jsonschema:"optional instruction describing what to extract from the page"`
	UseCache    *bool  `json:"use_cache,omitempty" jsonschema:"whether cached content may be served (default true)"`
}

// AgentSearchArgs defines the arguments for the agent_search tool
type AgentSearchArgs struct {
	Query      string   `json:"query" jsonschema:"the question to answer"`
	SiteFilter []string `json:"site_filter,omitempty" jsonschema:"restrict searches to these domains"`
}

type searchResultItem struct {
	Position int    `json:"position"`
	Title    string `json:"title"`
	URL      string `json:"url"`
	Snippet  string `json:"snippet"`
}

type searchToolPayload struct {
	Query    string             `json:"query"`
	Provider string             `json:"provider"`
	Count    int                `json:"count"`
	Results  []searchResultItem `json:"results"`
}

type fetchToolPayload struct {
	URL          string `json:"url"`
	Title        string `json:"title,omitempty"`
	Content      string `json:"content"`
	Analysis     string `json:"analysis,omitempty"`
	ProviderUsed string `json:"provider_used,omitempty"`
	Source       string `json:"source"`
	FetchedAt    string `json:"fetched_at"`
}

type agentToolPayload struct {
	SessionID  string             `json:"session_id"`
	Query      string             `json:"query"`
	Status     string             `json:"status"`
	Answer     string             `json:"answer,omitempty"`
	Incomplete bool               `json:"incomplete,omitempty"`
	Iterations int                `json:"iterations"`
	Evidence   []agentic.Evidence `json:"evidence"`
}

// WebContextMCP registers the web context tools with the MCP server.
type WebContextMCP struct {
	searchService   *domainsearch.Service
	extractService  *extract.Service
	agentLoop       *agentic.Loop
	maxSnippetChars int
}

// WebContextMCPConfig contains configuration for WebContextMCP.
type WebContextMCPConfig struct {
	MaxSnippetChars int
}

// NewWebContextMCP creates the MCP tool handler set.
func NewWebContextMCP(
	searchService *domainsearch.Service,
	extractService *extract.Service,
	agentLoop *agentic.Loop,
	cfg WebContextMCPConfig,
) *WebContextMCP {
	maxSnippet := cfg.MaxSnippetChars
	if maxSnippet <= 0 {
		maxSnippet = 5000
	}
	return &WebContextMCP{
		searchService:   searchService,
		extractService:  extractService,
		agentLoop:       agentLoop,
		maxSnippetChars: maxSnippet,
	}
}

// RegisterTools registers all web context tools with the MCP server
func (w *WebContextMCP) RegisterTools(server *mcp.Server) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "search_web_pages",
		Description: "Search the web through the configured backend and return titles, links and snippets.",
	}, w.handleSearch)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "fetch_web_content",
		Description: "Fetch a URL with a headless browser and return its rendered content, optionally analyzed against an instruction. Results are cached.",
	}, w.handleFetch)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "agent_search",
		Description: "Answer a question by iteratively searching the web, reading the best pages and judging the gathered evidence.",
	}, w.handleAgentSearch)
}

func (w *WebContextMCP) handleSearch(ctx context.Context, req *mcp.CallToolRequest, input SearchWebPagesArgs) (*mcp.CallToolResult, searchToolPayload, error) {
	startTime := time.Now()

	log.Info().
		Str("tool", "search_web_pages").
		Str("query", input.Query).
		Msg("MCP tool call received")

	maxResults := 0
	if input.MaxResults != nil {
		maxResults = *input.MaxResults
	}

	results, err := w.searchService.Search(ctx, input.Query, maxResults, input.SiteFilter)
	if err != nil {
		metrics.RecordToolCall("search_web_pages", "error", time.Since(startTime).Seconds())
		return toolError(err), searchToolPayload{Query: input.Query, Provider: w.searchService.Provider(), Results: []searchResultItem{}}, nil
	}

	payload := searchToolPayload{
		Query:    input.Query,
		Provider: w.searchService.Provider(),
		Count:    len(results),
		Results:  make([]searchResultItem, 0, len(results)),
	}
	for i, entry := range results {
		payload.Results = append(payload.Results, searchResultItem{
			Position: i + 1,
			Title:    entry.Title,
			URL:      entry.Link,
			Snippet:  clampChars(entry.Snippet, w.maxSnippetChars),
		})
	}

	metrics.RecordToolCall("search_web_pages", "success", time.Since(startTime).Seconds())
	return nil, payload, nil
}

func (w *WebContextMCP) handleFetch(ctx context.Context, req *mcp.CallToolRequest, input FetchWebContentArgs) (*mcp.CallToolResult, fetchToolPayload, error) {
	startTime := time.Now()

	log.Info().
		Str("tool", "fetch_web_content").
		Str("url", input.URL).
		Bool("has_instruction", input.Instruction != "").
		Msg("MCP tool call received")

	bypass := false
	if input.UseCache != nil && !*input.UseCache {
		bypass = true
	}

	result, err := w.extractService.Extract(ctx, extract.Request{
		URL:         input.URL,
		Instruction: input.Instruction,
		BypassCache: bypass,
	})
	if err != nil {
		metrics.RecordToolCall("fetch_web_content", "error", time.Since(startTime).Seconds())
		return toolError(err), fetchToolPayload{URL: input.URL}, nil
	}

	payload := fetchToolPayload{
		URL:          result.URL,
		Title:        result.Title,
		Content:      result.RawContent,
		Analysis:     result.Analysis,
		ProviderUsed: result.ProviderUsed,
		Source:       string(result.Source),
		FetchedAt:    result.FetchedAt.Format(time.RFC3339),
	}

	metrics.RecordToolCall("fetch_web_content", "success", time.Since(startTime).Seconds())
	return nil, payload, nil
}

func (w *WebContextMCP) handleAgentSearch(ctx context.Context, req *mcp.CallToolRequest, input AgentSearchArgs) (*mcp.CallToolResult, agentToolPayload, error) {
	startTime := time.Now()

	log.Info().
		Str("tool", "agent_search").
		Str("query", input.Query).
		Msg("MCP tool call received")

	outcome, err := w.agentLoop.Run(ctx, input.Query, input.SiteFilter)
	if err != nil {
		metrics.RecordToolCall("agent_search", "error", time.Since(startTime).Seconds())
		payload := agentToolPayload{Query: input.Query, Status: string(agentic.StatusFailed), Evidence: []agentic.Evidence{}}
		if outcome != nil {
			payload.SessionID = outcome.SessionID
			payload.Iterations = outcome.Iterations
			payload.Evidence = outcome.Evidence
		}
		return toolError(err), payload, nil
	}

	payload := agentToolPayload{
		SessionID:  outcome.SessionID,
		Query:      outcome.Query,
		Status:     string(outcome.Status),
		Answer:     outcome.Answer,
		Incomplete: outcome.Incomplete,
		Iterations: outcome.Iterations,
		Evidence:   outcome.Evidence,
	}
	if payload.Evidence == nil {
		payload.Evidence = []agentic.Evidence{}
	}

	metrics.RecordToolCall("agent_search", "success", time.Since(startTime).Seconds())
	return nil, payload, nil
}

func toolError(err error) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: err.Error()}},
		IsError: true,
	}
}

func clampChars(text string, limit int) string {
	if limit <= 0 {
		return text
	}
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit])
}
