package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Deliberation metrics
	DeliberationsStarted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "consilium_deliberations_started_total",
			Help: "Total number of deliberations started",
		},
		[]string{"mode"},
	)

	DeliberationsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "consilium_deliberations_completed_total",
			Help: "Total number of deliberations completed",
		},
		[]string{"mode", "status"},
	)

	CouncilMemberFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "consilium_council_member_failures_total",
			Help: "Council member invocations dropped from a fan-out stage",
		},
		[]string{"stage"},
	)

	// Model invocation metrics
	ModelInvocations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "consilium_model_invocations_total",
			Help: "Total number of model invocations",
		},
		[]string{"outcome"},
	)

	ModelInvocationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "consilium_model_invocation_duration_ms",
			Help:    "Model invocation duration in milliseconds",
			Buckets: []float64{100, 500, 1000, 2000, 5000, 10000, 30000, 60000},
		},
	)

	TokensUsed = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "consilium_tokens_used",
			Help:    "Tokens consumed per model invocation",
			Buckets: []float64{10, 50, 100, 500, 1000, 2000, 5000, 10000},
		},
	)

	CostUSD = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "consilium_cost_usd",
			Help:    "Estimated cost in USD per model invocation",
			Buckets: []float64{0.0001, 0.001, 0.01, 0.1, 1},
		},
	)

	// Paper search metrics
	PaperSearches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "consilium_paper_searches_total",
			Help: "Total number of paper searches",
		},
		[]string{"outcome"},
	)

	PapersFound = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "consilium_papers_found",
			Help:    "Papers returned per search",
			Buckets: []float64{0, 1, 2, 3, 5, 10, 20},
		},
	)

	// Conversation store metrics
	ConversationsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "consilium_conversations_created_total",
			Help: "Total number of conversations created",
		},
	)

	ConversationCacheSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "consilium_conversation_cache_size",
			Help: "Conversations held in the local cache",
		},
	)

	// Circuit breaker metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "consilium_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerTrips = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "consilium_circuit_breaker_trips_total",
			Help: "Circuit breaker transitions to the open state",
		},
		[]string{"name"},
	)
)
