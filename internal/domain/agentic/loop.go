package agentic

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"webcontext/internal/domain/extract"
	"webcontext/internal/domain/search"
	"webcontext/internal/infrastructure/metrics"
)

// Searcher is the slice of the search service the loop needs.
type Searcher interface {
	Search(ctx context.Context, query string, maxResults int, siteFilter []string) ([]search.ResultEntry, error)
}

// Extractor is the slice of the extraction service the loop needs.
type Extractor interface {
	Extract(ctx context.Context, req extract.Request) (*extract.Result, error)
}

// Config bounds the loop.
type Config struct {
	MaxIterations int
	FanoutLimit   int // concurrent extractions per iteration
	MaxCandidates int // pages read per iteration
	SearchResults int // results requested per search
}

// Loop drives sessions: search, read the best unvisited candidates
// concurrently, then let the judge decide whether to answer or go again.
type Loop struct {
	searcher  Searcher
	extractor Extractor
	judge     Judge
	synth     Synthesizer
	cfg       Config
}

// NewLoop wires the loop. A nil judge is rejected at call time, not here, so
// wiring order stays flexible. synth may be nil, in which case an exhausted
// session returns its evidence without an answer.
func NewLoop(searcher Searcher, extractor Extractor, judge Judge, synth Synthesizer, cfg Config) *Loop {
	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = 3
	}
	if cfg.FanoutLimit <= 0 {
		cfg.FanoutLimit = 3
	}
	if cfg.MaxCandidates <= 0 {
		cfg.MaxCandidates = 3
	}
	if cfg.SearchResults <= 0 {
		cfg.SearchResults = 10
	}
	return &Loop{searcher: searcher, extractor: extractor, judge: judge, synth: synth, cfg: cfg}
}

// Run executes one session to a terminal state. The first iteration searches
// the query verbatim; later iterations use the judge's refinement. Every
// iteration consumes budget even when it yields no new candidates.
func (l *Loop) Run(ctx context.Context, query string, siteFilter []string) (*Outcome, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("agentic: query is required")
	}
	if l.judge == nil {
		return nil, fmt.Errorf("agentic: no judge configured")
	}

	session := &Session{
		ID:            uuid.NewString(),
		OriginalQuery: query,
		MaxIterations: l.cfg.MaxIterations,
		Visited:       make(map[string]struct{}),
		Status:        StatusRunning,
		StartedAt:     time.Now().UTC(),
	}

	log.Info().
		Str("session_id", session.ID).
		Str("query", query).
		Int("max_iterations", session.MaxIterations).
		Msg("agentic session started")

	currentQuery := query
	var lastVerdict Verdict

	for session.IterationCount < session.MaxIterations {
		if ctx.Err() != nil {
			break
		}
		session.IterationCount++
		session.Queries = append(session.Queries, currentQuery)

		results, err := l.searcher.Search(ctx, currentQuery, l.cfg.SearchResults, siteFilter)
		if err != nil {
			if len(session.Evidence) == 0 {
				session.Status = StatusFailed
				metrics.ObserveAgentIterations(session.IterationCount)
				return l.outcome(session, ""), fmt.Errorf("agentic search failed: %w", err)
			}
			log.Warn().
				Err(err).
				Str("session_id", session.ID).
				Msg("search failed mid-session, answering from evidence on hand")
			break
		}

		candidates := l.selectCandidates(session, results)
		if len(candidates) > 0 {
			session.Evidence = append(session.Evidence, l.readCandidates(ctx, session, candidates)...)
		}

		verdict, err := l.judge(ctx, session.OriginalQuery, session.Evidence)
		if err != nil {
			log.Warn().
				Err(err).
				Str("session_id", session.ID).
				Int("iteration", session.IterationCount).
				Msg("judge failed, continuing with current query")
			continue
		}
		lastVerdict = verdict

		if verdict.Sufficient {
			session.Status = StatusAnswered
			metrics.ObserveAgentIterations(session.IterationCount)
			log.Info().
				Str("session_id", session.ID).
				Int("iterations", session.IterationCount).
				Int("evidence", len(session.Evidence)).
				Msg("agentic session answered")
			return l.outcome(session, verdict.Answer), nil
		}

		if next := strings.TrimSpace(verdict.NextQuery); next != "" {
			currentQuery = next
		}
	}

	session.Status = StatusExhausted
	answer := lastVerdict.Answer
	if answer == "" && len(session.Evidence) > 0 && l.synth != nil && ctx.Err() == nil {
		synthesized, err := l.synth(ctx, session.OriginalQuery, session.Evidence)
		if err != nil {
			log.Warn().
				Err(err).
				Str("session_id", session.ID).
				Msg("best-effort synthesis failed, returning evidence without an answer")
		} else {
			answer = synthesized
		}
	}
	metrics.ObserveAgentIterations(session.IterationCount)
	log.Info().
		Str("session_id", session.ID).
		Int("iterations", session.IterationCount).
		Int("evidence", len(session.Evidence)).
		Msg("agentic session exhausted its budget")
	return l.outcome(session, answer), nil
}

// selectCandidates keeps the first unvisited results up to the per-iteration
// cap, preserving search ranking order.
func (l *Loop) selectCandidates(session *Session, results []search.ResultEntry) []search.ResultEntry {
	candidates := make([]search.ResultEntry, 0, l.cfg.MaxCandidates)
	for _, entry := range results {
		if session.visited(entry.Link) {
			continue
		}
		candidates = append(candidates, entry)
		if len(candidates) >= l.cfg.MaxCandidates {
			break
		}
	}
	return candidates
}

// readCandidates extracts the candidates concurrently with bounded fan-out.
// Every candidate is marked visited whether or not its extraction succeeds,
// so the session never re-reads a failing page. Successes are returned in
// selection order.
func (l *Loop) readCandidates(ctx context.Context, session *Session, candidates []search.ResultEntry) []Evidence {
	instruction := fmt.Sprintf("Extract the information relevant to answering: %s", session.OriginalQuery)

	extracted := make([]*extract.Result, len(candidates))
	g, groupCtx := errgroup.WithContext(ctx)
	g.SetLimit(l.cfg.FanoutLimit)

	for i, candidate := range candidates {
		session.markVisited(candidate.Link)
		g.Go(func() error {
			result, err := l.extractor.Extract(groupCtx, extract.Request{
				URL:         candidate.Link,
				Instruction: instruction,
			})
			if err != nil {
				log.Warn().
					Err(err).
					Str("session_id", session.ID).
					Str("url", candidate.Link).
					Msg("candidate extraction failed, dropping it")
				return nil
			}
			extracted[i] = result
			return nil
		})
	}
	_ = g.Wait()

	evidence := make([]Evidence, 0, len(candidates))
	for i, result := range extracted {
		if result == nil {
			continue
		}
		summary := result.Analysis
		if summary == "" {
			summary = result.RawContent
		}
		evidence = append(evidence, Evidence{
			URL:       candidates[i].Link,
			Title:     result.Title,
			Summary:   summary,
			Iteration: session.IterationCount,
		})
	}
	return evidence
}

func (l *Loop) outcome(session *Session, answer string) *Outcome {
	out := &Outcome{
		SessionID:  session.ID,
		Query:      session.OriginalQuery,
		Status:     session.Status,
		Iterations: session.IterationCount,
		Evidence:   session.Evidence,
	}
	switch session.Status {
	case StatusAnswered:
		out.Answer = answer
	case StatusExhausted:
		out.Answer = answer
		out.Incomplete = true
	}
	return out
}
