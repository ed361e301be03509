// Package responses centralizes JSON error bodies and the mapping from
// domain error types to HTTP statuses.
package responses

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"webcontext/internal/domain/search"
	"webcontext/internal/infrastructure/analyzer"
	"webcontext/internal/infrastructure/browser"
)

// ErrorResponse is the JSON body for all error replies.
type ErrorResponse struct {
	Error  string `json:"error"`
	Reason string `json:"reason,omitempty"`
}

// HandleValidationError aborts with a 400.
func HandleValidationError(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{Error: message})
}

// HandleInternalError aborts with a 500.
func HandleInternalError(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusInternalServerError, ErrorResponse{Error: message})
}

// HandleDomainError maps typed domain failures onto HTTP statuses: upstream
// provider trouble is a 502, a fetch timeout is a 504, everything else a 500.
func HandleDomainError(c *gin.Context, err error) {
	if fe, ok := browser.AsFetchError(err); ok {
		status := http.StatusBadGateway
		if fe.Reason == browser.ReasonTimeout {
			status = http.StatusGatewayTimeout
		}
		c.AbortWithStatusJSON(status, ErrorResponse{Error: err.Error(), Reason: string(fe.Reason)})
		return
	}
	if pe, ok := search.AsProviderError(err); ok {
		c.AbortWithStatusJSON(http.StatusBadGateway, ErrorResponse{Error: err.Error(), Reason: pe.Provider})
		return
	}
	if _, ok := analyzer.AsAnalysisError(err); ok {
		c.AbortWithStatusJSON(http.StatusBadGateway, ErrorResponse{Error: err.Error(), Reason: "analysis"})
		return
	}
	c.AbortWithStatusJSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
}
