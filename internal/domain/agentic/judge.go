package agentic

import (
	"context"
	"fmt"
	"strings"

	"webcontext/internal/infrastructure/analyzer"
)

// Verdict is a judge's decision after an iteration: either the evidence is
// sufficient and Answer holds the final response, or it is not and NextQuery
// proposes the next search.
type Verdict struct {
	Sufficient bool
	Answer     string
	NextQuery  string
}

// Judge decides whether gathered evidence answers the original query. The
// loop treats it as a black box so callers can swap in their own policy.
type Judge func(ctx context.Context, query string, evidence []Evidence) (Verdict, error)

// Synthesizer writes a best-effort answer from whatever evidence a session
// gathered. The loop calls it when the iteration budget runs out without a
// sufficient verdict, so an exhausted session still answers.
type Synthesizer func(ctx context.Context, query string, evidence []Evidence) (string, error)

// Analyzer is the slice of the analysis backend the default judge needs.
type Analyzer interface {
	Analyze(ctx context.Context, content, instruction string) (*analyzer.Result, error)
}

const judgeInstructionFormat = "You are judging whether collected evidence answers this question: %q\n" +
	"Reply with exactly one line in one of these two forms:\n" +
	"INSUFFICIENT: <a single improved web search query that would find the missing information>\n" +
	"SUFFICIENT: <the complete final answer, citing which sources support it>"

// NewAnalyzerJudge builds the default judge on top of the analysis backend.
func NewAnalyzerJudge(an Analyzer) Judge {
	return func(ctx context.Context, query string, evidence []Evidence) (Verdict, error) {
		result, err := an.Analyze(ctx, renderEvidence(evidence), fmt.Sprintf(judgeInstructionFormat, query))
		if err != nil {
			return Verdict{}, err
		}
		return parseVerdict(result.Output), nil
	}
}

const synthesisInstructionFormat = "Write the best possible answer to this question using only the evidence below: %q\n" +
	"If the evidence is incomplete, answer with what it does support and state what is missing."

// NewAnalyzerSynthesizer builds the default best-effort answer writer on top
// of the analysis backend.
func NewAnalyzerSynthesizer(an Analyzer) Synthesizer {
	return func(ctx context.Context, query string, evidence []Evidence) (string, error) {
		result, err := an.Analyze(ctx, renderEvidence(evidence), fmt.Sprintf(synthesisInstructionFormat, query))
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(result.Output), nil
	}
}

func renderEvidence(evidence []Evidence) string {
	if len(evidence) == 0 {
		return "(no evidence gathered yet)"
	}

	var builder strings.Builder
	for i, item := range evidence {
		fmt.Fprintf(&builder, "Source %d: %s", i+1, item.URL)
		if item.Title != "" {
			fmt.Fprintf(&builder, " (%s)", item.Title)
		}
		builder.WriteString("\n")
		builder.WriteString(item.Summary)
		builder.WriteString("\n\n")
	}
	return builder.String()
}

// parseVerdict reads the judge protocol. INSUFFICIENT is checked first since
// SUFFICIENT is a suffix of it. A reply that follows neither form is treated
// as a final answer rather than discarded.
func parseVerdict(output string) Verdict {
	trimmed := strings.TrimSpace(output)
	upper := strings.ToUpper(trimmed)

	if idx := strings.Index(upper, "INSUFFICIENT:"); idx >= 0 {
		next := strings.TrimSpace(trimmed[idx+len("INSUFFICIENT:"):])
		if line := firstLine(next); line != "" {
			return Verdict{Sufficient: false, NextQuery: line}
		}
		return Verdict{Sufficient: false}
	}
	if idx := strings.Index(upper, "SUFFICIENT:"); idx >= 0 {
		answer := strings.TrimSpace(trimmed[idx+len("SUFFICIENT:"):])
		return Verdict{Sufficient: true, Answer: answer}
	}
	return Verdict{Sufficient: true, Answer: trimmed}
}

func firstLine(text string) string {
	if idx := strings.IndexByte(text, '\n'); idx >= 0 {
		text = text[:idx]
	}
	return strings.Trim(strings.TrimSpace(text), `"`)
}
