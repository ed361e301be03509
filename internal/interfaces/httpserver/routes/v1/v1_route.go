// Package v1 exposes the web context operations as plain REST endpoints for
// clients that do not speak MCP.
package v1

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"webcontext/internal/domain/agentic"
	"webcontext/internal/domain/extract"
	domainsearch "webcontext/internal/domain/search"
	"webcontext/internal/infrastructure/metrics"
	"webcontext/internal/interfaces/httpserver/responses"
)

type searchRequest struct {
	Query      string   `json:"query" binding:"required"`
	MaxResults int      `json:"max_results"`
	SiteFilter []string `json:"site_filter"`
}

type searchResponseItem struct {
	Position int    `json:"position"`
	Title    string `json:"title"`
	URL      string `json:"url"`
	Snippet  string `json:"snippet"`
}

type searchResponse struct {
	Query    string               `json:"query"`
	Provider string               `json:"provider"`
	Count    int                  `json:"count"`
	Results  []searchResponseItem `json:"results"`
}

type extractRequest struct {
	URL         string `json:"url" binding:"required"`
	Instruction string `json:"instruction"`
	UseCache    *bool  `json:"use_cache"`
}

type extractResponse struct {
	URL          string `json:"url"`
	Title        string `json:"title,omitempty"`
	Content      string `json:"content"`
	Analysis     string `json:"analysis,omitempty"`
	ProviderUsed string `json:"provider_used,omitempty"`
	Source       string `json:"source"`
	FetchedAt    string `json:"fetched_at"`
}

type agentSearchRequest struct {
	Query      string   `json:"query" binding:"required"`
	SiteFilter []string `json:"site_filter"`
}

// Route wires the REST surface over the same domain services the MCP tools
// use.
type Route struct {
	searchService  *domainsearch.Service
	extractService *extract.Service
	agentLoop      *agentic.Loop
}

// NewRoute creates the REST route handler set.
func NewRoute(
	searchService *domainsearch.Service,
	extractService *extract.Service,
	agentLoop *agentic.Loop,
) *Route {
	return &Route{
		searchService:  searchService,
		extractService: extractService,
		agentLoop:      agentLoop,
	}
}

// RegisterRouter mounts the REST endpoints on the given group.
func (r *Route) RegisterRouter(router *gin.RouterGroup) {
	router.POST("/search", r.search)
	router.POST("/extract", r.extract)
	router.POST("/agent-search", r.agentSearch)
}

func (r *Route) search(c *gin.Context) {
	var req searchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		responses.HandleValidationError(c, "invalid search request: "+err.Error())
		return
	}

	startTime := time.Now()
	results, err := r.searchService.Search(c.Request.Context(), req.Query, req.MaxResults, req.SiteFilter)
	if err != nil {
		metrics.RecordToolCall("search_web_pages", "error", time.Since(startTime).Seconds())
		responses.HandleDomainError(c, err)
		return
	}

	resp := searchResponse{
		Query:    req.Query,
		Provider: r.searchService.Provider(),
		Count:    len(results),
		Results:  make([]searchResponseItem, 0, len(results)),
	}
	for i, entry := range results {
		resp.Results = append(resp.Results, searchResponseItem{
			Position: i + 1,
			Title:    entry.Title,
			URL:      entry.Link,
			Snippet:  entry.Snippet,
		})
	}

	metrics.RecordToolCall("search_web_pages", "success", time.Since(startTime).Seconds())
	c.JSON(200, resp)
}

func (r *Route) extract(c *gin.Context) {
	var req extractRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		responses.HandleValidationError(c, "invalid extract request: "+err.Error())
		return
	}

	bypass := req.UseCache != nil && !*req.UseCache

	startTime := time.Now()
	result, err := r.extractService.Extract(c.Request.Context(), extract.Request{
		URL:         req.URL,
		Instruction: req.Instruction,
		BypassCache: bypass,
	})
	if err != nil {
		metrics.RecordToolCall("fetch_web_content", "error", time.Since(startTime).Seconds())
		responses.HandleDomainError(c, err)
		return
	}

	metrics.RecordToolCall("fetch_web_content", "success", time.Since(startTime).Seconds())
	c.JSON(200, extractResponse{
		URL:          result.URL,
		Title:        result.Title,
		Content:      result.RawContent,
		Analysis:     result.Analysis,
		ProviderUsed: result.ProviderUsed,
		Source:       string(result.Source),
		FetchedAt:    result.FetchedAt.Format(time.RFC3339),
	})
}

func (r *Route) agentSearch(c *gin.Context) {
	var req agentSearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		responses.HandleValidationError(c, "invalid agent search request: "+err.Error())
		return
	}

	startTime := time.Now()
	outcome, err := r.agentLoop.Run(c.Request.Context(), req.Query, req.SiteFilter)
	if err != nil {
		metrics.RecordToolCall("agent_search", "error", time.Since(startTime).Seconds())
		log.Warn().Err(err).Str("query", req.Query).Msg("agentic search failed")
		responses.HandleDomainError(c, err)
		return
	}

	metrics.RecordToolCall("agent_search", "success", time.Since(startTime).Seconds())
	c.JSON(200, outcome)
}
