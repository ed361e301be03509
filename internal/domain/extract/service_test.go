package extract_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"webcontext/internal/domain/extract"
	"webcontext/internal/infrastructure/analyzer"
	"webcontext/internal/infrastructure/browser"
	"webcontext/internal/infrastructure/cachestore"
)

type fakeFetcher struct {
	FetchFunc func(ctx context.Context, url string, timeout time.Duration) (*browser.Result, error)
	calls     int
	timeouts  []time.Duration
}

func (f *fakeFetcher) Fetch(ctx context.Context, url string, timeout time.Duration) (*browser.Result, error) {
	f.calls++
	f.timeouts = append(f.timeouts, timeout)
	return f.FetchFunc(ctx, url, timeout)
}

type fakeAnalyzer struct {
	AnalyzeFunc func(ctx context.Context, content, instruction string) (*analyzer.Result, error)
	calls       int
}

func (f *fakeAnalyzer) Analyze(ctx context.Context, content, instruction string) (*analyzer.Result, error) {
	f.calls++
	if f.AnalyzeFunc != nil {
		return f.AnalyzeFunc(ctx, content, instruction)
	}
	return &analyzer.Result{Output: "analysis of " + instruction, Provider: "openai"}, nil
}

func (f *fakeAnalyzer) Providers() []string { return []string{"openai"} }

type memoryCache struct {
	entries map[string][]byte
	getErr  error
	putErr  error
	gets    int
	puts    int
}

func newMemoryCache() *memoryCache {
	return &memoryCache{entries: make(map[string][]byte)}
}

func (m *memoryCache) Get(ctx context.Context, fingerprint string) ([]byte, bool, error) {
	m.gets++
	if m.getErr != nil {
		return nil, false, m.getErr
	}
	payload, ok := m.entries[fingerprint]
	return payload, ok, nil
}

func (m *memoryCache) Put(ctx context.Context, fingerprint string, payload []byte, ttl time.Duration) error {
	m.puts++
	if m.putErr != nil {
		return m.putErr
	}
	m.entries[fingerprint] = payload
	return nil
}

func pageResult(url, text string) *browser.Result {
	return &browser.Result{URL: url, Title: "Title", Text: text}
}

func TestExtractLiveThenCached(t *testing.T) {
	fetcher := &fakeFetcher{FetchFunc: func(ctx context.Context, url string, timeout time.Duration) (*browser.Result, error) {
		return pageResult(url, "page body"), nil
	}}
	cache := newMemoryCache()
	svc := extract.NewService(fetcher, &fakeAnalyzer{}, cache, extract.Config{})

	req := extract.Request{URL: "https://example.com/doc", Instruction: "summarize"}

	first, err := svc.Extract(context.Background(), req)
	if err != nil {
		t.Fatalf("first extract: %v", err)
	}
	if first.Source != extract.SourceLive {
		t.Fatalf("first source = %q, want live", first.Source)
	}
	if first.Analysis == "" || first.ProviderUsed != "openai" {
		t.Fatalf("analysis missing: %+v", first)
	}

	second, err := svc.Extract(context.Background(), req)
	if err != nil {
		t.Fatalf("second extract: %v", err)
	}
	if second.Source != extract.SourceCache {
		t.Fatalf("second source = %q, want cache", second.Source)
	}
	if second.Analysis != first.Analysis || second.RawContent != first.RawContent {
		t.Fatal("cached result must match the live result")
	}
	if fetcher.calls != 1 {
		t.Fatalf("expected a single live fetch, got %d", fetcher.calls)
	}
}

func TestExtractBypassCacheAlwaysFetches(t *testing.T) {
	fetcher := &fakeFetcher{FetchFunc: func(ctx context.Context, url string, timeout time.Duration) (*browser.Result, error) {
		return pageResult(url, "body"), nil
	}}
	cache := newMemoryCache()
	svc := extract.NewService(fetcher, &fakeAnalyzer{}, cache, extract.Config{})

	req := extract.Request{URL: "https://example.com", BypassCache: true}
	for i := 0; i < 2; i++ {
		result, err := svc.Extract(context.Background(), req)
		if err != nil {
			t.Fatalf("extract %d: %v", i, err)
		}
		if result.Source != extract.SourceLive {
			t.Fatalf("extract %d source = %q, want live", i, result.Source)
		}
	}
	if fetcher.calls != 2 {
		t.Fatalf("bypass must fetch every time, got %d fetches", fetcher.calls)
	}
	if cache.gets != 0 {
		t.Fatalf("bypass must not read the cache, got %d reads", cache.gets)
	}
	// Fresh results still refresh the cache.
	if cache.puts != 2 {
		t.Fatalf("expected 2 cache writes, got %d", cache.puts)
	}
}

func TestExtractRetriesOnceWithLargerBudgetAfterTimeout(t *testing.T) {
	fetcher := &fakeFetcher{}
	fetcher.FetchFunc = func(ctx context.Context, url string, timeout time.Duration) (*browser.Result, error) {
		if fetcher.calls == 1 {
			return nil, &browser.FetchError{URL: url, Reason: browser.ReasonTimeout, Err: context.DeadlineExceeded}
		}
		return pageResult(url, "slow page"), nil
	}
	svc := extract.NewService(fetcher, &fakeAnalyzer{}, newMemoryCache(), extract.Config{
		NavTimeout:   10 * time.Second,
		RetryTimeout: 25 * time.Second,
	})

	result, err := svc.Extract(context.Background(), extract.Request{URL: "https://slow.example.com"})
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if result.Source != extract.SourceLive {
		t.Fatalf("source = %q, want live", result.Source)
	}
	if fetcher.calls != 2 {
		t.Fatalf("expected exactly one retry, got %d calls", fetcher.calls)
	}
	if fetcher.timeouts[0] != 10*time.Second || fetcher.timeouts[1] != 25*time.Second {
		t.Fatalf("timeouts = %v, want [10s 25s]", fetcher.timeouts)
	}
}

func TestExtractSurfacesFetchFailureAfterSingleRetry(t *testing.T) {
	fetcher := &fakeFetcher{FetchFunc: func(ctx context.Context, url string, timeout time.Duration) (*browser.Result, error) {
		return nil, &browser.FetchError{URL: url, Reason: browser.ReasonBlocked, Err: errors.New("blocked")}
	}}
	svc := extract.NewService(fetcher, &fakeAnalyzer{}, newMemoryCache(), extract.Config{})

	_, err := svc.Extract(context.Background(), extract.Request{URL: "https://example.com"})
	if err == nil {
		t.Fatal("expected the fetch failure to surface")
	}
	fe, ok := browser.AsFetchError(err)
	if !ok || fe.Reason != browser.ReasonBlocked {
		t.Fatalf("expected blocked FetchError, got %v", err)
	}
	if fetcher.calls != 2 {
		t.Fatalf("fetch failures get exactly one retry, got %d calls", fetcher.calls)
	}
}

func TestExtractDoesNotRetryUntypedErrors(t *testing.T) {
	fetcher := &fakeFetcher{FetchFunc: func(ctx context.Context, url string, timeout time.Duration) (*browser.Result, error) {
		return nil, errors.New("browser gone")
	}}
	svc := extract.NewService(fetcher, &fakeAnalyzer{}, newMemoryCache(), extract.Config{})

	if _, err := svc.Extract(context.Background(), extract.Request{URL: "https://example.com"}); err == nil {
		t.Fatal("expected the error to surface")
	}
	if fetcher.calls != 1 {
		t.Fatalf("untyped errors must not retry, got %d calls", fetcher.calls)
	}
}

func TestExtractDegradesWhenCacheIsUnavailable(t *testing.T) {
	fetcher := &fakeFetcher{FetchFunc: func(ctx context.Context, url string, timeout time.Duration) (*browser.Result, error) {
		return pageResult(url, "body"), nil
	}}
	cache := newMemoryCache()
	cache.getErr = &cachestore.UnavailableError{Op: "get", Err: errors.New("disk on fire")}
	cache.putErr = &cachestore.UnavailableError{Op: "put", Err: errors.New("disk still on fire")}
	svc := extract.NewService(fetcher, &fakeAnalyzer{}, cache, extract.Config{})

	result, err := svc.Extract(context.Background(), extract.Request{URL: "https://example.com"})
	if err != nil {
		t.Fatalf("cache trouble must not fail the extraction: %v", err)
	}
	if result.Source != extract.SourceLive {
		t.Fatalf("source = %q, want live", result.Source)
	}
}

func TestExtractSkipsAnalysisWithoutInstruction(t *testing.T) {
	fetcher := &fakeFetcher{FetchFunc: func(ctx context.Context, url string, timeout time.Duration) (*browser.Result, error) {
		return pageResult(url, "body"), nil
	}}
	an := &fakeAnalyzer{}
	svc := extract.NewService(fetcher, an, newMemoryCache(), extract.Config{})

	result, err := svc.Extract(context.Background(), extract.Request{URL: "https://example.com"})
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if an.calls != 0 {
		t.Fatal("analyzer must not run without an instruction")
	}
	if result.Analysis != "" || result.ProviderUsed != "" {
		t.Fatalf("unexpected analysis fields: %+v", result)
	}
}

func TestExtractClampsContentLength(t *testing.T) {
	long := make([]byte, 0, 2000)
	for i := 0; i < 2000; i++ {
		long = append(long, 'a')
	}
	fetcher := &fakeFetcher{FetchFunc: func(ctx context.Context, url string, timeout time.Duration) (*browser.Result, error) {
		return pageResult(url, string(long)), nil
	}}
	svc := extract.NewService(fetcher, &fakeAnalyzer{}, newMemoryCache(), extract.Config{MaxChars: 500})

	result, err := svc.Extract(context.Background(), extract.Request{URL: "https://example.com"})
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if len(result.RawContent) != 500 {
		t.Fatalf("content length = %d, want 500", len(result.RawContent))
	}
}

func TestExtractRequiresURL(t *testing.T) {
	svc := extract.NewService(&fakeFetcher{}, &fakeAnalyzer{}, newMemoryCache(), extract.Config{})
	if _, err := svc.Extract(context.Background(), extract.Request{}); err == nil {
		t.Fatal("expected an error for an empty URL")
	}
}
