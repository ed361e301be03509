package domain

import (
	"github.com/google/wire"

	"webcontext/internal/domain/agentic"
	"webcontext/internal/domain/extract"
	domainsearch "webcontext/internal/domain/search"
	"webcontext/internal/infrastructure/analyzer"
	"webcontext/internal/infrastructure/browser"
	"webcontext/internal/infrastructure/cachestore"
	"webcontext/internal/infrastructure/config"
)

// DomainProvider provides all domain services
var DomainProvider = wire.NewSet(
	domainsearch.NewService,
	ProvideExtractService,
	ProvideJudge,
	ProvideSynthesizer,
	ProvideAgenticLoop,
)

// ProvideExtractService wires the extraction pipeline
func ProvideExtractService(
	fetcher *browser.Fetcher,
	an *analyzer.Analyzer,
	store *cachestore.Store,
	cfg *config.Config,
) *extract.Service {
	return extract.NewService(fetcher, an, store, extract.Config{
		NavTimeout:   cfg.BrowserNavTimeout,
		RetryTimeout: cfg.BrowserRetryTimeout,
		MaxChars:     cfg.MaxContentChars,
	})
}

// ProvideJudge provides the default evidence judge
func ProvideJudge(an *analyzer.Analyzer) agentic.Judge {
	return agentic.NewAnalyzerJudge(an)
}

// ProvideSynthesizer provides the best-effort answer writer for exhausted sessions
func ProvideSynthesizer(an *analyzer.Analyzer) agentic.Synthesizer {
	return agentic.NewAnalyzerSynthesizer(an)
}

// ProvideAgenticLoop wires the agentic search loop
func ProvideAgenticLoop(
	searchService *domainsearch.Service,
	extractService *extract.Service,
	judge agentic.Judge,
	synth agentic.Synthesizer,
	cfg *config.Config,
) *agentic.Loop {
	return agentic.NewLoop(searchService, extractService, judge, synth, agentic.Config{
		MaxIterations: cfg.AgentMaxIterations,
		FanoutLimit:   cfg.AgentFanoutLimit,
		MaxCandidates: cfg.AgentMaxCandidates,
	})
}
