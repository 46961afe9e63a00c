package observability

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, c.Write(&m))
	return m.GetCounter().GetValue()
}

func TestRecordLLMRequestIncrementsCounters(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := New(registry)

	m.RecordLLMRequest("anthropic", "ok", 0.5, 100, 50, 0.01)

	assert.Equal(t, float64(1), counterValue(t, m.LLMRequestCounter.WithLabelValues("anthropic", "ok")))
	assert.Equal(t, float64(100), counterValue(t, m.LLMTokensUsed.WithLabelValues("anthropic", "in")))
	assert.Equal(t, float64(50), counterValue(t, m.LLMTokensUsed.WithLabelValues("anthropic", "out")))
}

func TestRecordSwarmLaunchAndTerminalTrackActiveGauge(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := New(registry)

	m.RecordSwarmLaunch()
	m.RecordSwarmLaunch()
	m.RecordSwarmTerminal("completed")

	var gauge dto.Metric
	require.NoError(t, m.SwarmActive.Write(&gauge))
	assert.Equal(t, float64(1), gauge.GetGauge().GetValue())
	assert.Equal(t, float64(1), counterValue(t, m.SwarmTerminal.WithLabelValues("completed")))
}

func TestNilMetricsRecordingsAreNoops(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordLLMRequest("p", "ok", 0.1, 1, 1, 0)
		m.RecordToolExecution("t", "ok", 0.1)
		m.RecordSwarmLaunch()
		m.RecordSwarmTerminal("completed")
		m.RecordHTTPRequest("/r", "200", 0.1)
		m.RecordBudgetDenial("daily_limit")
	})
}

func TestNewTracerStartSpanIsSafeBeforeProviderInit(t *testing.T) {
	tracer := NewTracer("agentrt-test")
	ctx, span := tracer.StartSpan(context.Background(), "unit-test-span")
	require.NotNil(t, span)
	span.End()
	_ = ctx
}
