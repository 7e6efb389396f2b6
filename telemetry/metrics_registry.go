package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/trace"
)

// The methods below let OTelProvider satisfy core.MetricsRegistry without
// telemetry importing core for anything but the Telemetry/Span interfaces
// it already implements in otel.go. core.SetMetricsRegistry(provider)
// wires this in from cmd/engine-run, which is what lets
// core.ProductionLogger emit an engine.log.events metric per log line and
// tag JSON log entries with trace/span baggage.

// Counter increments a named counter by 1 with the given label pairs.
func (o *OTelProvider) Counter(name string, labels ...string) {
	o.RecordMetric(name, 1, pairsToLabels(labels))
}

// EmitWithContext records value for name with the given label pairs. ctx
// is accepted for interface compatibility and is not read, so the metric
// carries no span or baggage correlation.
func (o *OTelProvider) EmitWithContext(ctx context.Context, name string, value float64, labels ...string) {
	o.RecordMetric(name, value, pairsToLabels(labels))
}

// Gauge records a point-in-time value for name.
func (o *OTelProvider) Gauge(name string, value float64, labels ...string) {
	o.RecordMetric(name, value, pairsToLabels(labels))
}

// Histogram records a distribution sample for name.
func (o *OTelProvider) Histogram(name string, value float64, labels ...string) {
	o.RecordMetric(name, value, pairsToLabels(labels))
}

// GetBaggage extracts the active span's trace/span IDs from ctx for log
// correlation. Returns nil if ctx carries no valid span.
func (o *OTelProvider) GetBaggage(ctx context.Context) map[string]string {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		return nil
	}
	return map[string]string{
		"trace_id": sc.TraceID().String(),
		"span_id":  sc.SpanID().String(),
	}
}

// pairsToLabels turns a flat name,value,name,value... slice into a map,
// the shape core.MetricsRegistry's variadic callers use and the shape
// RecordMetric expects.
func pairsToLabels(pairs []string) map[string]string {
	labels := make(map[string]string, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		labels[pairs[i]] = pairs[i+1]
	}
	return labels
}
