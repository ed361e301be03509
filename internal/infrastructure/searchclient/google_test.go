package searchclient_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"webcontext/internal/domain/search"
	"webcontext/internal/infrastructure/config"
	"webcontext/internal/infrastructure/searchclient"
)

func newGoogleClient(endpoint string) *searchclient.SearchClient {
	return searchclient.NewSearchClient(searchclient.ClientConfig{
		Provider:       config.ProviderGoogleCSE,
		GoogleAPIKey:   "test-key",
		GoogleCXKey:    "test-cx",
		GoogleEndpoint: endpoint,
	})
}

func googleItems(links ...string) []map[string]any {
	items := make([]map[string]any, 0, len(links))
	for _, link := range links {
		items = append(items, map[string]any{
			"title":   "Title for " + link,
			"link":    link,
			"snippet": "snippet",
		})
	}
	return items
}

func TestGoogleSearchPaginatesWithOneBasedStart(t *testing.T) {
	var starts []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("key") != "test-key" || q.Get("cx") != "test-cx" {
			t.Errorf("credentials missing from request: %s", r.URL.RawQuery)
		}
		starts = append(starts, q.Get("start"))

		var links []string
		switch q.Get("start") {
		case "1":
			for _, suffix := range []string{"a", "b", "c", "d", "e", "f", "g", "h", "i", "j"} {
				links = append(links, "https://example.com/"+suffix)
			}
		default:
			links = []string{"https://example.com/k", "https://example.com/l"}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"items": googleItems(links...)})
	}))
	defer server.Close()

	client := newGoogleClient(server.URL)
	results, err := client.Search(context.Background(), search.Request{Query: "q", MaxResults: 15})
	if err != nil {
		t.Fatalf("search: %v", err)
	}

	if len(results) != 12 {
		t.Fatalf("expected 12 results across pages, got %d", len(results))
	}
	if len(starts) != 2 || starts[0] != "1" || starts[1] != "11" {
		t.Fatalf("expected start indices [1 11], got %v", starts)
	}
}

func TestGoogleSearchStopsOnShortPage(t *testing.T) {
	var requests int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"items": googleItems("https://example.com/one", "https://example.com/two"),
		})
	}))
	defer server.Close()

	client := newGoogleClient(server.URL)
	results, err := client.Search(context.Background(), search.Request{Query: "q", MaxResults: 30})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if requests != 1 {
		t.Fatalf("a short page must stop pagination, got %d requests", requests)
	}
}

func TestGoogleSearchEmbeddedErrorBecomesProviderError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{"code": 429, "message": "Quota exceeded"},
		})
	}))
	defer server.Close()

	client := newGoogleClient(server.URL)
	_, err := client.Search(context.Background(), search.Request{Query: "q", MaxResults: 5})
	if err == nil {
		t.Fatal("expected an error for an embedded API error")
	}
	pe, ok := search.AsProviderError(err)
	if !ok {
		t.Fatalf("expected ProviderError, got %T: %v", err, err)
	}
	if pe.Provider != "google" {
		t.Fatalf("provider = %q", pe.Provider)
	}
	if pe.Status != 429 {
		t.Fatalf("status = %d", pe.Status)
	}
}

func TestGoogleSearchSkipsUntitledAndYoutubeItems(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"items": []map[string]any{
				{"title": "", "link": "https://example.com/untitled", "snippet": "s"},
				{"title": "Video", "link": "https://youtube.com/watch?v=x", "snippet": "s"},
				{"title": "Kept", "link": "https://example.com/kept", "snippet": "s"},
			},
		})
	}))
	defer server.Close()

	client := newGoogleClient(server.URL)
	results, err := client.Search(context.Background(), search.Request{Query: "q", MaxResults: 10})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) != 1 || results[0].Link != "https://example.com/kept" {
		t.Fatalf("unexpected results: %+v", results)
	}
}
