// Package agentic runs a bounded search-read-judge loop that gathers evidence
// from the web until a query is answered or the iteration budget runs out.
package agentic

import "time"

// Status is the terminal (or in-flight) state of a session.
type Status string

const (
	StatusRunning   Status = "running"
	StatusAnswered  Status = "answered"
	StatusExhausted Status = "exhausted"
	StatusFailed    Status = "failed"
)

// Evidence is one page's contribution to the session, in the order candidates
// were selected.
type Evidence struct {
	URL       string `json:"url"`
	Title     string `json:"title,omitempty"`
	Summary   string `json:"summary"`
	Iteration int    `json:"iteration"`
}

// Session tracks one agentic search from start to terminal state. Visited
// URLs are never fetched twice within a session.
type Session struct {
	ID             string              `json:"id"`
	OriginalQuery  string              `json:"original_query"`
	IterationCount int                 `json:"iteration_count"`
	MaxIterations  int                 `json:"max_iterations"`
	Evidence       []Evidence          `json:"evidence"`
	Visited        map[string]struct{} `json:"-"`
	Queries        []string            `json:"queries"`
	Status         Status              `json:"status"`
	StartedAt      time.Time           `json:"started_at"`
}

// Outcome is what a finished session reports back.
type Outcome struct {
	SessionID  string     `json:"session_id"`
	Query      string     `json:"query"`
	Status     Status     `json:"status"`
	Answer     string     `json:"answer,omitempty"`
	Incomplete bool       `json:"incomplete,omitempty"`
	Iterations int        `json:"iterations"`
	Evidence   []Evidence `json:"evidence"`
}

func (s *Session) markVisited(url string) {
	s.Visited[url] = struct{}{}
}

func (s *Session) visited(url string) bool {
	_, ok := s.Visited[url]
	return ok
}
