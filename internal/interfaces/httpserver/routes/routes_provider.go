package routes

import (
	"github.com/google/wire"

	"webcontext/internal/domain/agentic"
	"webcontext/internal/domain/extract"
	domainsearch "webcontext/internal/domain/search"
	"webcontext/internal/infrastructure/config"
	"webcontext/internal/interfaces/httpserver/routes/mcp"
	v1 "webcontext/internal/interfaces/httpserver/routes/v1"
)

// RoutesProvider provides all route dependencies
var RoutesProvider = wire.NewSet(
	ProvideWebContextMCP,
	mcp.NewMCPRoute,
	v1.NewRoute,
)

// ProvideWebContextMCP creates the MCP tool handler set
func ProvideWebContextMCP(
	searchService *domainsearch.Service,
	extractService *extract.Service,
	agentLoop *agentic.Loop,
	cfg *config.Config,
) *mcp.WebContextMCP {
	return mcp.NewWebContextMCP(searchService, extractService, agentLoop, mcp.WebContextMCPConfig{
		MaxSnippetChars: cfg.MaxSnippetChars,
	})
}
