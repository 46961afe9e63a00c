// Package observability wires agentrt's ambient metrics and tracing
// (SPEC_FULL.md §2 "Metrics/Tracing"): a Prometheus registry exposed at
// /metrics, and OTel spans around provider calls and tool dispatch.
//
// Grounded on the teacher's internal/observability/metrics.go (promauto-
// registered CounterVec/HistogramVec/GaugeVec families plus one recorder
// method per concern), trimmed to the families agentrt's own components
// actually emit: the teacher's database/webhook/channel-queue metrics have
// no counterpart here since those concerns are out of scope.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds every Prometheus collector agentrt registers.
type Metrics struct {
	SignalsClassified   *prometheus.CounterVec
	SignalsFiltered     *prometheus.CounterVec
	LoopIterations      *prometheus.HistogramVec
	LoopOutcomes        *prometheus.CounterVec
	LLMRequestDuration  *prometheus.HistogramVec
	LLMRequestCounter   *prometheus.CounterVec
	LLMTokensUsed       *prometheus.CounterVec
	LLMCostUSD          *prometheus.CounterVec
	ToolExecutionCounter  *prometheus.CounterVec
	ToolExecutionDuration *prometheus.HistogramVec
	BudgetDenials       *prometheus.CounterVec
	ActiveSessions      prometheus.Gauge
	SwarmLaunched       prometheus.Counter
	SwarmActive         prometheus.Gauge
	SwarmTerminal       *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	HTTPRequestCounter  *prometheus.CounterVec
}

// New registers and returns every collector, mirroring the teacher's
// NewMetrics: one promauto call per family, tuned bucket arrays per
// concern.
func New(registry prometheus.Registerer) *Metrics {
	factory := promauto.With(registry)

	return &Metrics{
		SignalsClassified: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "agentrt_signals_classified_total",
			Help: "Signals classified by mode.",
		}, []string{"mode"}),
		SignalsFiltered: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "agentrt_signals_filtered_total",
			Help: "Signals dropped by the Noise Filter.",
		}, []string{"channel"}),
		LoopIterations: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "agentrt_loop_iterations",
			Help:    "Agent Loop iterations per processed message.",
			Buckets: []float64{1, 2, 3, 5, 8, 13, 20},
		}, []string{"status"}),
		LoopOutcomes: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "agentrt_loop_outcomes_total",
			Help: "Agent Loop terminal outcomes by status/reason.",
		}, []string{"status", "reason"}),
		LLMRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "agentrt_llm_request_duration_seconds",
			Help:    "Provider completion call latency.",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		}, []string{"provider", "status"}),
		LLMRequestCounter: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "agentrt_llm_requests_total",
			Help: "Provider completion calls by provider/status.",
		}, []string{"provider", "status"}),
		LLMTokensUsed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "agentrt_llm_tokens_total",
			Help: "Tokens consumed by provider/direction (in, out).",
		}, []string{"provider", "direction"}),
		LLMCostUSD: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "agentrt_llm_cost_usd_total",
			Help: "Estimated USD spend by provider.",
		}, []string{"provider"}),
		ToolExecutionCounter: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "agentrt_tool_executions_total",
			Help: "Tool dispatches by tool/status.",
		}, []string{"tool", "status"}),
		ToolExecutionDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "agentrt_tool_execution_duration_seconds",
			Help:    "Tool dispatch latency.",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60},
		}, []string{"tool"}),
		BudgetDenials: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "agentrt_budget_denials_total",
			Help: "Budget gate denials by reason.",
		}, []string{"reason"}),
		ActiveSessions: factory.NewGauge(prometheus.GaugeOpts{
			Name: "agentrt_active_sessions",
			Help: "Currently live sessions in the Session Registry.",
		}),
		SwarmLaunched: factory.NewCounter(prometheus.CounterOpts{
			Name: "agentrt_swarms_launched_total",
			Help: "Swarms launched.",
		}),
		SwarmActive: factory.NewGauge(prometheus.GaugeOpts{
			Name: "agentrt_swarms_active",
			Help: "Swarms not yet in a terminal state.",
		}),
		SwarmTerminal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "agentrt_swarms_terminal_total",
			Help: "Swarm terminal transitions by status.",
		}, []string{"status"}),
		HTTPRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "agentrt_http_request_duration_seconds",
			Help:    "HTTP handler latency.",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}, []string{"route", "status"}),
		HTTPRequestCounter: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "agentrt_http_requests_total",
			Help: "HTTP requests by route/status.",
		}, []string{"route", "status"}),
	}
}

// RecordLLMRequest records one completed (or failed) provider call.
func (m *Metrics) RecordLLMRequest(provider, status string, durationSeconds float64, inputTokens, outputTokens int, costUSD float64) {
	if m == nil {
		return
	}
	m.LLMRequestCounter.WithLabelValues(provider, status).Inc()
	m.LLMRequestDuration.WithLabelValues(provider, status).Observe(durationSeconds)
	m.LLMTokensUsed.WithLabelValues(provider, "in").Add(float64(inputTokens))
	m.LLMTokensUsed.WithLabelValues(provider, "out").Add(float64(outputTokens))
	if costUSD > 0 {
		m.LLMCostUSD.WithLabelValues(provider).Add(costUSD)
	}
}

// RecordToolExecution records one tool dispatch.
func (m *Metrics) RecordToolExecution(tool, status string, durationSeconds float64) {
	if m == nil {
		return
	}
	m.ToolExecutionCounter.WithLabelValues(tool, status).Inc()
	m.ToolExecutionDuration.WithLabelValues(tool).Observe(durationSeconds)
}

// RecordSwarmLaunch increments the launch counter and the active gauge.
func (m *Metrics) RecordSwarmLaunch() {
	if m == nil {
		return
	}
	m.SwarmLaunched.Inc()
	m.SwarmActive.Inc()
}

// RecordSwarmTerminal records a terminal transition and decrements the
// active gauge.
func (m *Metrics) RecordSwarmTerminal(status string) {
	if m == nil {
		return
	}
	m.SwarmTerminal.WithLabelValues(status).Inc()
	m.SwarmActive.Dec()
}

// RecordHTTPRequest records one served HTTP request.
func (m *Metrics) RecordHTTPRequest(route, status string, durationSeconds float64) {
	if m == nil {
		return
	}
	m.HTTPRequestCounter.WithLabelValues(route, status).Inc()
	m.HTTPRequestDuration.WithLabelValues(route, status).Observe(durationSeconds)
}

// RecordBudgetDenial records one budget gate denial.
func (m *Metrics) RecordBudgetDenial(reason string) {
	if m == nil {
		return
	}
	m.BudgetDenials.WithLabelValues(reason).Inc()
}
