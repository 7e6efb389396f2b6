package adapter

import (
	"github.com/kestrel-run/recursion-engine/core"
	"github.com/kestrel-run/recursion-engine/resilience"
)

// TelemetryMetricsCollector adapts core.Telemetry into a
// resilience.MetricsCollector so a circuit breaker protecting an LLM call
// reports through the same metrics backend as the orchestrator's spawn
// and gate counters, instead of a separate, uninstrumented path.
type TelemetryMetricsCollector struct {
	Telemetry core.Telemetry
}

var _ resilience.MetricsCollector = (*TelemetryMetricsCollector)(nil)

func (t *TelemetryMetricsCollector) RecordSuccess(name string) {
	t.Telemetry.RecordMetric("engine.circuit_breaker.success", 1, map[string]string{"breaker": name})
}

func (t *TelemetryMetricsCollector) RecordFailure(name string, errorType string) {
	t.Telemetry.RecordMetric("engine.circuit_breaker.failure", 1, map[string]string{"breaker": name, "error_type": errorType})
}

func (t *TelemetryMetricsCollector) RecordStateChange(name string, from, to string) {
	t.Telemetry.RecordMetric("engine.circuit_breaker.state_change", 1, map[string]string{"breaker": name, "from": from, "to": to})
}

func (t *TelemetryMetricsCollector) RecordRejection(name string) {
	t.Telemetry.RecordMetric("engine.circuit_breaker.rejected", 1, map[string]string{"breaker": name})
}
