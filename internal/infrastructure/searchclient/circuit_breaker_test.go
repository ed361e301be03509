package searchclient_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"webcontext/internal/domain/search"
	"webcontext/internal/infrastructure/config"
	"webcontext/internal/infrastructure/searchclient"
)

func TestSearchCircuitBreakerRecoversAfterTimeout(t *testing.T) {
	var healthy atomic.Bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !healthy.Load() {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(braveBody(false, map[string]any{
			"title":       "Recovered",
			"url":         "https://example.com/recovered",
			"description": "backend is healthy again",
		}))
	}))
	defer server.Close()

	client := searchclient.NewSearchClient(searchclient.ClientConfig{
		Provider:      config.ProviderBrave,
		BraveAPIKey:   "test-token",
		BraveEndpoint: server.URL,
		Retry:         searchclient.RetryConfig{MaxAttempts: 1},
		CB: searchclient.CircuitBreakerConfig{
			Enabled:          true,
			FailureThreshold: 1,
			SuccessThreshold: 1,
			Timeout:          150 * time.Millisecond,
			MaxHalfOpenCalls: 1,
		},
	})
	req := search.Request{Query: "golang", MaxResults: 5}

	if _, err := client.Search(context.Background(), req); err == nil {
		t.Fatal("expected the backend failure to surface")
	}

	if _, err := client.Search(context.Background(), req); err == nil || !strings.Contains(err.Error(), "circuit breaker is open") {
		t.Fatalf("expected an open-breaker rejection, got %v", err)
	}

	healthy.Store(true)
	time.Sleep(200 * time.Millisecond)

	results, err := client.Search(context.Background(), req)
	if err != nil {
		t.Fatalf("breaker must recover once its timeout elapses: %v", err)
	}
	if len(results) != 1 || results[0].Link != "https://example.com/recovered" {
		t.Fatalf("unexpected results after recovery: %+v", results)
	}

	// The half-open probe succeeded, so the breaker is closed again.
	if _, err := client.Search(context.Background(), req); err != nil {
		t.Fatalf("search after recovery: %v", err)
	}
}
