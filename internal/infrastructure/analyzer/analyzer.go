// Package analyzer extracts instruction-focused answers from page content by
// calling configured AI backends in a fixed preference order.
package analyzer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"webcontext/internal/infrastructure/metrics"
)

const systemPrompt = "You analyze web page content on behalf of an automated agent. " +
	"Answer the instruction using only the provided content. " +
	"Be factual and concise. If the content does not answer the instruction, say so explicitly."

// Provider is a single AI backend capable of analyzing content.
type Provider interface {
	Name() string
	Analyze(ctx context.Context, content, instruction string) (string, error)
}

// Result carries the analysis output plus which backend produced it.
type Result struct {
	Output   string `json:"output"`
	Provider string `json:"provider"`
}

// ProviderFailure records one backend's failure during a fallback pass.
type ProviderFailure struct {
	Provider string
	Err      error
}

// AnalysisError aggregates the failures of every attempted backend. It is
// returned only when no provider in the chain succeeded.
type AnalysisError struct {
	Failures []ProviderFailure
}

func (e *AnalysisError) Error() string {
	if len(e.Failures) == 0 {
		return "analysis failed: no providers configured"
	}
	parts := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		parts = append(parts, fmt.Sprintf("%s: %v", f.Provider, f.Err))
	}
	return "analysis failed on all providers: " + strings.Join(parts, "; ")
}

// AsAnalysisError unwraps err into an AnalysisError if possible.
func AsAnalysisError(err error) (*AnalysisError, bool) {
	var ae *AnalysisError
	ok := errors.As(err, &ae)
	return ae, ok
}

// Config holds analyzer-wide settings shared by all backends.
type Config struct {
	MaxContentBytes int
	RequestTimeout  time.Duration
}

// Analyzer tries each provider in order and returns the first success.
type Analyzer struct {
	providers []Provider
	cfg       Config
}

// NewAnalyzer builds the fallback chain. Order is preserved as given.
func NewAnalyzer(cfg Config, providers ...Provider) *Analyzer {
	if cfg.MaxContentBytes <= 0 {
		cfg.MaxContentBytes = 48000
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 120 * time.Second
	}
	return &Analyzer{providers: providers, cfg: cfg}
}

// Providers returns the backend names in fallback order.
func (a *Analyzer) Providers() []string {
	names := make([]string, 0, len(a.providers))
	for _, p := range a.providers {
		names = append(names, p.Name())
	}
	return names
}

// Analyze runs the instruction against content, falling through the provider
// chain on failure. Content is truncated deterministically before any backend
// sees it so identical inputs always produce identical prompts.
func (a *Analyzer) Analyze(ctx context.Context, content, instruction string) (*Result, error) {
	if len(a.providers) == 0 {
		return nil, &AnalysisError{}
	}

	content = TruncateContent(content, a.cfg.MaxContentBytes)

	var failures []ProviderFailure
	for _, provider := range a.providers {
		callCtx, cancel := context.WithTimeout(ctx, a.cfg.RequestTimeout)
		startTime := time.Now()
		output, err := provider.Analyze(callCtx, content, instruction)
		cancel()

		if err != nil {
			metrics.RecordProviderRequest("analyze", provider.Name(), "error")
			log.Warn().
				Err(err).
				Str("provider", provider.Name()).
				Msg("analysis provider failed, falling through")
			failures = append(failures, ProviderFailure{Provider: provider.Name(), Err: err})
			if ctx.Err() != nil {
				break
			}
			continue
		}

		metrics.RecordProviderRequest("analyze", provider.Name(), "success")
		metrics.RecordProviderLatency(provider.Name(), time.Since(startTime).Seconds())
		return &Result{Output: output, Provider: provider.Name()}, nil
	}

	return nil, &AnalysisError{Failures: failures}
}
