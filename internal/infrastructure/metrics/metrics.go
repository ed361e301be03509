package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
)

// Web context metrics - using explicit registration
var (
	// HTTP request counter
	RequestsTotal *prometheus.CounterVec

	// Tool call counters (MCP and REST surfaces share these)
	ToolCallsTotal *prometheus.CounterVec

	// Tool duration histogram
	ToolDuration *prometheus.HistogramVec

	// External provider requests (search backends, AI backends, browser)
	ProviderRequestsTotal *prometheus.CounterVec

	// External provider latency
	ProviderLatency *prometheus.HistogramVec

	// Cache hit/miss counter
	CacheLookupsTotal *prometheus.CounterVec

	// Agentic loop iterations per session
	AgentIterations prometheus.Histogram
)

func init() {
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "webcontext",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "status"},
	)

	ToolCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "webcontext",
			Name:      "tool_calls_total",
			Help:      "Total tool invocations",
		},
		[]string{"tool_name", "status"},
	)

	ToolDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "webcontext",
			Name:      "tool_duration_seconds",
			Help:      "Tool execution duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"tool_name"},
	)

	ProviderRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "webcontext",
			Name:      "provider_requests_total",
			Help:      "Requests issued to external providers",
		},
		[]string{"operation", "provider", "status"},
	)

	ProviderLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "webcontext",
			Name:      "provider_latency_seconds",
			Help:      "External provider response time in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"provider"},
	)

	CacheLookupsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "webcontext",
			Name:      "cache_lookups_total",
			Help:      "Cache store lookups by outcome (hit, miss, error)",
		},
		[]string{"outcome"},
	)

	AgentIterations = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "webcontext",
			Name:      "agent_iterations",
			Help:      "Iterations consumed per agentic search session",
			Buckets:   []float64{1, 2, 3, 4, 5, 8, 10},
		},
	)

	prometheus.MustRegister(RequestsTotal)
	prometheus.MustRegister(ToolCallsTotal)
	prometheus.MustRegister(ToolDuration)
	prometheus.MustRegister(ProviderRequestsTotal)
	prometheus.MustRegister(ProviderLatency)
	prometheus.MustRegister(CacheLookupsTotal)
	prometheus.MustRegister(AgentIterations)
	log.Info().Msg("web context metrics registered with Prometheus")
}

// RecordRequest records an HTTP request.
func RecordRequest(method, status string) {
	RequestsTotal.WithLabelValues(method, status).Inc()
}

// RecordToolCall records a tool invocation.
func RecordToolCall(toolName, status string, durationSec float64) {
	if status == "" {
		status = "unknown"
	}
	ToolCallsTotal.WithLabelValues(toolName, status).Inc()
	ToolDuration.WithLabelValues(toolName).Observe(durationSec)
}

// RecordProviderRequest records a request to an external provider.
func RecordProviderRequest(operation, provider, status string) {
	ProviderRequestsTotal.WithLabelValues(operation, provider, status).Inc()
}

// RecordProviderLatency records external provider response time.
func RecordProviderLatency(provider string, seconds float64) {
	ProviderLatency.WithLabelValues(provider).Observe(seconds)
}

// RecordCacheLookup records a cache lookup outcome.
func RecordCacheLookup(outcome string) {
	CacheLookupsTotal.WithLabelValues(outcome).Inc()
}

// ObserveAgentIterations records how many iterations a session consumed.
func ObserveAgentIterations(count int) {
	AgentIterations.Observe(float64(count))
}
