package agentic_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"webcontext/internal/domain/agentic"
	"webcontext/internal/domain/extract"
	"webcontext/internal/domain/search"
	"webcontext/internal/infrastructure/analyzer"
)

type fakeSearcher struct {
	SearchFunc func(ctx context.Context, query string, maxResults int, siteFilter []string) ([]search.ResultEntry, error)
	mu         sync.Mutex
	queries    []string
}

func (f *fakeSearcher) Search(ctx context.Context, query string, maxResults int, siteFilter []string) ([]search.ResultEntry, error) {
	f.mu.Lock()
	f.queries = append(f.queries, query)
	f.mu.Unlock()
	return f.SearchFunc(ctx, query, maxResults, siteFilter)
}

type fakeExtractor struct {
	ExtractFunc func(ctx context.Context, req extract.Request) (*extract.Result, error)
	mu          sync.Mutex
	urls        []string
}

func (f *fakeExtractor) Extract(ctx context.Context, req extract.Request) (*extract.Result, error) {
	f.mu.Lock()
	f.urls = append(f.urls, req.URL)
	f.mu.Unlock()
	return f.ExtractFunc(ctx, req)
}

func (f *fakeExtractor) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.urls)
}

func entries(links ...string) []search.ResultEntry {
	out := make([]search.ResultEntry, 0, len(links))
	for _, link := range links {
		out = append(out, search.ResultEntry{Title: "t", Link: link, Snippet: "s"})
	}
	return out
}

func okExtractor() *fakeExtractor {
	return &fakeExtractor{ExtractFunc: func(ctx context.Context, req extract.Request) (*extract.Result, error) {
		return &extract.Result{URL: req.URL, Analysis: "summary of " + req.URL}, nil
	}}
}

func TestRunAnswersOnFirstIteration(t *testing.T) {
	searcher := &fakeSearcher{SearchFunc: func(ctx context.Context, query string, maxResults int, siteFilter []string) ([]search.ResultEntry, error) {
		return entries(
			"https://en.wikipedia.org/wiki/Paris",
			"https://example.com/france",
			"https://example.com/capitals",
		), nil
	}}
	extractor := okExtractor()
	judge := func(ctx context.Context, query string, evidence []agentic.Evidence) (agentic.Verdict, error) {
		return agentic.Verdict{Sufficient: true, Answer: "The capital of France is Paris."}, nil
	}

	loop := agentic.NewLoop(searcher, extractor, judge, nil, agentic.Config{MaxIterations: 3, MaxCandidates: 3})
	outcome, err := loop.Run(context.Background(), "What is the capital of France?", nil)
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if outcome.Status != agentic.StatusAnswered {
		t.Fatalf("status = %q, want answered", outcome.Status)
	}
	if outcome.Answer != "The capital of France is Paris." {
		t.Fatalf("answer = %q", outcome.Answer)
	}
	if outcome.Iterations != 1 {
		t.Fatalf("iterations = %d, want 1", outcome.Iterations)
	}
	if outcome.Incomplete {
		t.Fatal("an answered outcome is never incomplete")
	}
	if len(outcome.Evidence) != 3 {
		t.Fatalf("evidence count = %d, want 3", len(outcome.Evidence))
	}
	// Evidence keeps search ranking order regardless of extraction concurrency.
	if outcome.Evidence[0].URL != "https://en.wikipedia.org/wiki/Paris" {
		t.Fatalf("evidence order broken: %+v", outcome.Evidence)
	}
	if outcome.SessionID == "" {
		t.Fatal("session id must be set")
	}
}

func TestRunExhaustsBudgetAndRefinesQueries(t *testing.T) {
	page := 0
	searcher := &fakeSearcher{SearchFunc: func(ctx context.Context, query string, maxResults int, siteFilter []string) ([]search.ResultEntry, error) {
		page++
		return entries(fmt.Sprintf("https://example.com/page-%d", page)), nil
	}}
	extractor := okExtractor()
	judge := func(ctx context.Context, query string, evidence []agentic.Evidence) (agentic.Verdict, error) {
		return agentic.Verdict{
			Sufficient: false,
			Answer:     "partial notes",
			NextQuery:  fmt.Sprintf("refined query %d", len(evidence)),
		}, nil
	}
	synthCalls := 0
	synth := func(ctx context.Context, query string, evidence []agentic.Evidence) (string, error) {
		synthCalls++
		return "synthesized", nil
	}

	loop := agentic.NewLoop(searcher, extractor, judge, synth, agentic.Config{MaxIterations: 3})
	outcome, err := loop.Run(context.Background(), "original question", nil)
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if outcome.Status != agentic.StatusExhausted {
		t.Fatalf("status = %q, want exhausted", outcome.Status)
	}
	if !outcome.Incomplete {
		t.Fatal("an exhausted outcome must be flagged incomplete")
	}
	if outcome.Iterations != 3 {
		t.Fatalf("iterations = %d, want 3", outcome.Iterations)
	}
	if outcome.Answer != "partial notes" {
		t.Fatalf("best-effort answer = %q", outcome.Answer)
	}
	// A judge that already supplied a partial answer preempts synthesis.
	if synthCalls != 0 {
		t.Fatalf("synthesizer ran %d times, want 0", synthCalls)
	}

	if searcher.queries[0] != "original question" {
		t.Fatalf("first search must use the query verbatim, got %q", searcher.queries[0])
	}
	for i, q := range searcher.queries[1:] {
		if q == "original question" {
			t.Fatalf("iteration %d did not refine the query", i+2)
		}
	}
}

func TestRunNeverRevisitsURLs(t *testing.T) {
	searcher := &fakeSearcher{SearchFunc: func(ctx context.Context, query string, maxResults int, siteFilter []string) ([]search.ResultEntry, error) {
		// Same ranking every iteration.
		return entries("https://example.com/a", "https://example.com/b"), nil
	}}
	extractor := okExtractor()
	judge := func(ctx context.Context, query string, evidence []agentic.Evidence) (agentic.Verdict, error) {
		return agentic.Verdict{Sufficient: false, NextQuery: "again"}, nil
	}

	loop := agentic.NewLoop(searcher, extractor, judge, nil, agentic.Config{MaxIterations: 3})
	outcome, err := loop.Run(context.Background(), "q", nil)
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if extractor.calls() != 2 {
		t.Fatalf("each URL must be read at most once, got %d reads", extractor.calls())
	}
	// Iterations without new candidates still consume budget.
	if outcome.Iterations != 3 {
		t.Fatalf("iterations = %d, want 3", outcome.Iterations)
	}
}

func TestRunAbsorbsPerCandidateFailures(t *testing.T) {
	searcher := &fakeSearcher{SearchFunc: func(ctx context.Context, query string, maxResults int, siteFilter []string) ([]search.ResultEntry, error) {
		return entries("https://broken.example.com", "https://ok.example.com"), nil
	}}
	extractor := &fakeExtractor{ExtractFunc: func(ctx context.Context, req extract.Request) (*extract.Result, error) {
		if req.URL == "https://broken.example.com" {
			return nil, errors.New("navigation failed")
		}
		return &extract.Result{URL: req.URL, Analysis: "useful"}, nil
	}}
	judge := func(ctx context.Context, query string, evidence []agentic.Evidence) (agentic.Verdict, error) {
		if len(evidence) == 1 {
			return agentic.Verdict{Sufficient: true, Answer: "done"}, nil
		}
		return agentic.Verdict{Sufficient: false}, nil
	}

	loop := agentic.NewLoop(searcher, extractor, judge, nil, agentic.Config{MaxIterations: 2})
	outcome, err := loop.Run(context.Background(), "q", nil)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if outcome.Status != agentic.StatusAnswered {
		t.Fatalf("status = %q, want answered", outcome.Status)
	}
	if len(outcome.Evidence) != 1 || outcome.Evidence[0].URL != "https://ok.example.com" {
		t.Fatalf("evidence = %+v", outcome.Evidence)
	}
}

func TestRunFailsWhenFirstSearchFails(t *testing.T) {
	searcher := &fakeSearcher{SearchFunc: func(ctx context.Context, query string, maxResults int, siteFilter []string) ([]search.ResultEntry, error) {
		return nil, &search.ProviderError{Provider: "brave", Err: errors.New("down")}
	}}
	judge := func(ctx context.Context, query string, evidence []agentic.Evidence) (agentic.Verdict, error) {
		return agentic.Verdict{}, nil
	}

	loop := agentic.NewLoop(searcher, okExtractor(), judge, nil, agentic.Config{})
	outcome, err := loop.Run(context.Background(), "q", nil)
	if err == nil {
		t.Fatal("expected an error when the first search fails")
	}
	if outcome == nil || outcome.Status != agentic.StatusFailed {
		t.Fatalf("outcome = %+v, want failed status", outcome)
	}
}

// stubbornAnalyzer never finds the evidence sufficient when judging, yet can
// still write a summary when asked for one.
type stubbornAnalyzer struct{}

func (stubbornAnalyzer) Analyze(ctx context.Context, content, instruction string) (*analyzer.Result, error) {
	if strings.Contains(instruction, "INSUFFICIENT") {
		return &analyzer.Result{Output: "INSUFFICIENT: try another angle", Provider: "test"}, nil
	}
	return &analyzer.Result{Output: "Best effort: the gathered pages partially cover the question.", Provider: "test"}, nil
}

func TestRunSynthesizesAnswerWhenExhausted(t *testing.T) {
	page := 0
	searcher := &fakeSearcher{SearchFunc: func(ctx context.Context, query string, maxResults int, siteFilter []string) ([]search.ResultEntry, error) {
		page++
		return entries(fmt.Sprintf("https://example.com/doc-%d", page)), nil
	}}
	an := stubbornAnalyzer{}

	loop := agentic.NewLoop(searcher, okExtractor(), agentic.NewAnalyzerJudge(an), agentic.NewAnalyzerSynthesizer(an), agentic.Config{MaxIterations: 3})
	outcome, err := loop.Run(context.Background(), "hard question", nil)
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if outcome.Status != agentic.StatusExhausted {
		t.Fatalf("status = %q, want exhausted", outcome.Status)
	}
	if !outcome.Incomplete {
		t.Fatal("an exhausted outcome must be flagged incomplete")
	}
	if len(outcome.Evidence) != 3 {
		t.Fatalf("evidence count = %d, want 3", len(outcome.Evidence))
	}
	if outcome.Answer != "Best effort: the gathered pages partially cover the question." {
		t.Fatalf("exhaustion must still produce an answer from the evidence, got %q", outcome.Answer)
	}
}

func TestRunExpiredContextEndsExhausted(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	searcher := &fakeSearcher{SearchFunc: func(ctx context.Context, query string, maxResults int, siteFilter []string) ([]search.ResultEntry, error) {
		return entries("https://example.com/a"), nil
	}}
	judge := func(ctx context.Context, query string, evidence []agentic.Evidence) (agentic.Verdict, error) {
		return agentic.Verdict{Sufficient: false, NextQuery: "again"}, nil
	}

	loop := agentic.NewLoop(searcher, okExtractor(), judge, nil, agentic.Config{MaxIterations: 3})
	outcome, err := loop.Run(ctx, "q", nil)
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if outcome.Status != agentic.StatusExhausted {
		t.Fatalf("status = %q, want exhausted", outcome.Status)
	}
	if !outcome.Incomplete {
		t.Fatal("a cancelled session must be flagged incomplete")
	}
	if outcome.Iterations != 0 || len(outcome.Evidence) != 0 {
		t.Fatalf("no work may start after cancellation, got %d iterations and %d evidence", outcome.Iterations, len(outcome.Evidence))
	}
	if len(searcher.queries) != 0 {
		t.Fatalf("no searches may run after cancellation, got %v", searcher.queries)
	}
}

func TestRunCancellationKeepsCompletedEvidence(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	page := 0
	searcher := &fakeSearcher{SearchFunc: func(ctx context.Context, query string, maxResults int, siteFilter []string) ([]search.ResultEntry, error) {
		page++
		return entries(fmt.Sprintf("https://example.com/page-%d", page)), nil
	}}
	judge := func(ctx context.Context, query string, evidence []agentic.Evidence) (agentic.Verdict, error) {
		cancel()
		return agentic.Verdict{Sufficient: false, NextQuery: "again"}, nil
	}

	loop := agentic.NewLoop(searcher, okExtractor(), judge, nil, agentic.Config{MaxIterations: 5})
	outcome, err := loop.Run(ctx, "q", nil)
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if outcome.Status != agentic.StatusExhausted {
		t.Fatalf("status = %q, want exhausted", outcome.Status)
	}
	if !outcome.Incomplete {
		t.Fatal("a cancelled session must be flagged incomplete")
	}
	if outcome.Iterations != 1 {
		t.Fatalf("iterations = %d, want the single completed one", outcome.Iterations)
	}
	if len(outcome.Evidence) != 1 || outcome.Evidence[0].URL != "https://example.com/page-1" {
		t.Fatalf("only completed evidence may be returned, got %+v", outcome.Evidence)
	}
}

func TestRunValidatesInputs(t *testing.T) {
	loop := agentic.NewLoop(&fakeSearcher{}, okExtractor(), nil, nil, agentic.Config{})
	if _, err := loop.Run(context.Background(), "q", nil); err == nil {
		t.Fatal("expected an error without a judge")
	}

	judge := func(ctx context.Context, query string, evidence []agentic.Evidence) (agentic.Verdict, error) {
		return agentic.Verdict{}, nil
	}
	loop = agentic.NewLoop(&fakeSearcher{}, okExtractor(), judge, nil, agentic.Config{})
	if _, err := loop.Run(context.Background(), "   ", nil); err == nil {
		t.Fatal("expected an error for a blank query")
	}
}
