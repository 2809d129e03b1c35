package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the process-wide Prometheus collectors for tool execution,
// circuit breakers, and model routing.
type Metrics struct {
	ToolCalls       *prometheus.CounterVec
	ToolDuration    *prometheus.HistogramVec
	ToolTimeouts    *prometheus.CounterVec
	BreakerState    *prometheus.GaugeVec
	ModelTierRoutes *prometheus.CounterVec
	ModelFallbacks  *prometheus.CounterVec
	HITLDecisions   *prometheus.CounterVec
	CronRuns        *prometheus.CounterVec
}

// NewMetrics registers all collectors against reg. Pass
// prometheus.NewRegistry() in tests to avoid collisions with the default
// registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		ToolCalls: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lucy",
			Subsystem: "tools",
			Name:      "calls_total",
			Help:      "Total tool invocations by tool name and outcome.",
		}, []string{"tool", "class", "outcome"}),
		ToolDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "lucy",
			Subsystem: "tools",
			Name:      "duration_seconds",
			Help:      "Tool execution latency by tool class.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"tool", "class"}),
		ToolTimeouts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lucy",
			Subsystem: "tools",
			Name:      "timeouts_total",
			Help:      "Tool invocations that exceeded their class budget.",
		}, []string{"tool", "class"}),
		BreakerState: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "lucy",
			Subsystem: "circuit",
			Name:      "state",
			Help:      "Circuit breaker state (0=closed, 1=half_open, 2=open).",
		}, []string{"service"}),
		ModelTierRoutes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lucy",
			Subsystem: "models",
			Name:      "routes_total",
			Help:      "Classifier routing decisions by tier and category.",
		}, []string{"tier", "category"}),
		ModelFallbacks: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lucy",
			Subsystem: "models",
			Name:      "fallbacks_total",
			Help:      "Model provider fallback chain advances.",
		}, []string{"from_provider", "to_provider"}),
		HITLDecisions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lucy",
			Subsystem: "hitl",
			Name:      "decisions_total",
			Help:      "Human-in-the-loop approval decisions.",
		}, []string{"decision"}),
		CronRuns: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lucy",
			Subsystem: "cron",
			Name:      "runs_total",
			Help:      "Cron task executions by outcome.",
		}, []string{"workspace_id", "outcome"}),
	}
}

// BreakerStateValue maps a breaker state name to the gauge value convention
// used by BreakerState.
func BreakerStateValue(state string) float64 {
	switch state {
	case "half_open":
		return 1
	case "open":
		return 2
	default:
		return 0
	}
}
