package mcp

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"webcontext/internal/interfaces/httpserver/responses"
)

var allowedMCPMethods = map[string]bool{
	// Initialization / handshake
	"initialize":                true,
	"notifications/initialized": true,
	"ping":                      true,

	// Tools
	"tools/list": true,
	"tools/call": true,

	// Prompts
	"prompts/list": true,

	// Resources
	"resources/list":           true,
	"resources/templates/list": true,
	"resources/read":           true,
}

// MCPRoute exposes the web context tools over the streamable HTTP transport.
type MCPRoute struct {
	webMCP      *WebContextMCP
	mcpServer   *mcp.Server
	httpHandler http.Handler
}

// NewMCPRoute builds the MCP server and registers all tools on it.
func NewMCPRoute(webMCP *WebContextMCP) *MCPRoute {
	impl := &mcp.Implementation{
		Name:    "webcontext",
		Version: "1.0.0",
	}
	server := mcp.NewServer(impl, nil)

	webMCP.RegisterTools(server)

	return &MCPRoute{
		webMCP:    webMCP,
		mcpServer: server,
		httpHandler: mcp.NewStreamableHTTPHandler(func(_ *http.Request) *mcp.Server {
			return server
		}, &mcp.StreamableHTTPOptions{Stateless: true}),
	}
}

// RegisterRouter mounts the MCP endpoint on the given group.
func (route *MCPRoute) RegisterRouter(router *gin.RouterGroup) {
	router.POST("/mcp",
		MCPMethodGuard(allowedMCPMethods),
		route.serveMCP,
	)
}

// serveMCP hands the request to the SDK's streamable handler.
func (route *MCPRoute) serveMCP(reqCtx *gin.Context) {
	// Force acceptable content types for the streamable handler even if the
	// client omits Accept.
	reqCtx.Request.Header.Set("Accept", "application/json, text/event-stream")
	route.httpHandler.ServeHTTP(reqCtx.Writer, reqCtx.Request)
}

// MCPMethodGuard rejects JSON-RPC methods outside the allow-list before they
// reach the MCP server.
func MCPMethodGuard(allowedMethods map[string]bool) gin.HandlerFunc {
	return func(reqCtx *gin.Context) {
		bodyBytes, err := io.ReadAll(reqCtx.Request.Body)
		if err != nil {
			responses.HandleInternalError(reqCtx, "failed to read MCP request body")
			return
		}
		_ = reqCtx.Request.Body.Close()

		if len(bodyBytes) == 0 {
			responses.HandleValidationError(reqCtx, "empty MCP request body")
			return
		}

		reqCtx.Request.Body = io.NopCloser(bytes.NewBuffer(bodyBytes))

		var payload struct {
			Method string `json:"method"`
		}
		if err := json.Unmarshal(bodyBytes, &payload); err != nil {
			responses.HandleValidationError(reqCtx, "invalid MCP request payload")
			return
		}
		if payload.Method == "" {
			responses.HandleValidationError(reqCtx, "missing method field in MCP request")
			return
		}
		if !allowedMethods[payload.Method] {
			responses.HandleValidationError(reqCtx, "unsupported MCP method: "+payload.Method)
			return
		}

		reqCtx.Next()
	}
}
