package mcp_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"webcontext/internal/interfaces/httpserver/routes/mcp"
)

func guardRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	allowed := map[string]bool{
		"initialize": true,
		"tools/list": true,
		"tools/call": true,
	}
	router.POST("/mcp", mcp.MCPMethodGuard(allowed), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "passed"})
	})
	return router
}

func TestMCPMethodGuard(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		expectedStatus int
	}{
		{
			name:           "allowed method passes",
			body:           `{"jsonrpc":"2.0","method":"tools/list","id":1}`,
			expectedStatus: http.StatusOK,
		},
		{
			name:           "disallowed method rejected",
			body:           `{"jsonrpc":"2.0","method":"resources/subscribe","id":1}`,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "empty body rejected",
			body:           "",
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "invalid json rejected",
			body:           "{not json",
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "missing method rejected",
			body:           `{"jsonrpc":"2.0","id":1}`,
			expectedStatus: http.StatusBadRequest,
		},
	}

	router := guardRouter()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/mcp", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			if rec.Code != tt.expectedStatus {
				t.Fatalf("status = %d, want %d (body: %s)", rec.Code, tt.expectedStatus, rec.Body.String())
			}
		})
	}
}

func TestMCPMethodGuardPreservesBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	var seenBody string
	router.POST("/mcp", mcp.MCPMethodGuard(map[string]bool{"ping": true}), func(c *gin.Context) {
		raw, _ := c.GetRawData()
		seenBody = string(raw)
		c.Status(http.StatusOK)
	})

	body := `{"jsonrpc":"2.0","method":"ping","id":7}`
	req := httptest.NewRequest(http.MethodPost, "/mcp", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if seenBody != body {
		t.Fatalf("downstream body = %q, want original payload", seenBody)
	}
}
