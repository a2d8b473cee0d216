// Package metrics provides Prometheus metrics instrumentation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestDuration tracks HTTP request duration.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"method", "path", "status"},
	)

	// RequestsTotal tracks total HTTP requests.
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// LLMRequestDuration tracks completion call duration.
	LLMRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "llm_request_duration_seconds",
			Help:    "Completion call duration",
			Buckets: []float64{.25, .5, 1, 2, 5, 10, 20, 30, 60, 120},
		},
		[]string{"provider", "model", "status"},
	)

	// LLMTokensTotal tracks total LLM tokens processed.
	LLMTokensTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "llm_tokens_total",
			Help: "Total LLM tokens processed",
		},
		[]string{"model", "direction"},
	)

	// OrchestratorDecisionsTotal counts decisions by routing target, risk and outcome.
	OrchestratorDecisionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orchestrator_decisions_total",
			Help: "Orchestrator decisions produced",
		},
		[]string{"routed_to", "risk_level", "outcome"},
	)

	// OrchestratorDecisionDuration tracks end-to-end decision latency.
	OrchestratorDecisionDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "orchestrator_decision_duration_seconds",
			Help:    "Time spent producing an orchestrator decision",
			Buckets: []float64{.25, .5, 1, 2, 5, 10, 20, 30, 60},
		},
	)

	// RouterSelectionsTotal counts router selections by agent and selection path.
	RouterSelectionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "router_selections_total",
			Help: "Agents selected by the keyword/LLM router",
		},
		[]string{"agent", "method"},
	)

	// AuditScore holds the last institutional audit score per mode.
	AuditScore = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "institutional_audit_score",
			Help: "Score (0-100) of the last institutional audit run",
		},
		[]string{"mode"},
	)

	// TelemetryEventsTotal counts telemetry events by type and risk level.
	TelemetryEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "telemetry_events_total",
			Help: "Telemetry events emitted",
		},
		[]string{"event_type", "risk_level"},
	)

	// TelemetryEmitFailuresTotal counts failed telemetry writes per sink.
	TelemetryEmitFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "telemetry_emit_failures_total",
			Help: "Telemetry events that a sink failed to persist",
		},
		[]string{"sink"},
	)

	// HistoryTurnsTotal tracks conversation turns appended.
	HistoryTurnsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "conversation_turns_total",
			Help: "Conversation turns appended to history",
		},
		[]string{"agent", "role"},
	)
)

// RecordRequest records metrics for an HTTP request.
func RecordRequest(method, path, status string, duration float64) {
	RequestDuration.WithLabelValues(method, path, status).Observe(duration)
	RequestsTotal.WithLabelValues(method, path, status).Inc()
}

// RecordLLMCall records metrics for a completion call.
func RecordLLMCall(provider, model, status string, duration float64, tokensIn, tokensOut int) {
	LLMRequestDuration.WithLabelValues(provider, model, status).Observe(duration)
	if tokensIn > 0 {
		LLMTokensTotal.WithLabelValues(model, "in").Add(float64(tokensIn))
	}
	if tokensOut > 0 {
		LLMTokensTotal.WithLabelValues(model, "out").Add(float64(tokensOut))
	}
}

// RecordDecision records metrics for an orchestrator decision.
func RecordDecision(routedTo, riskLevel, outcome string, duration float64) {
	OrchestratorDecisionsTotal.WithLabelValues(routedTo, riskLevel, outcome).Inc()
	OrchestratorDecisionDuration.Observe(duration)
}

// RecordRouterSelection records which agent the router picked and how.
func RecordRouterSelection(agent, method string) {
	RouterSelectionsTotal.WithLabelValues(agent, method).Inc()
}
