package telemetry

import (
	"context"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

// MetricInstruments holds cached metric instruments for efficient recording
type MetricInstruments struct {
	meter      metric.Meter
	counters   map[string]metric.Int64Counter
	histograms map[string]metric.Float64Histogram
	mu         sync.RWMutex
}

// NewMetricInstruments creates a new metrics instrument cache
func NewMetricInstruments(meterName string) *MetricInstruments {
	return &MetricInstruments{
		meter:      otel.Meter(meterName),
		counters:   make(map[string]metric.Int64Counter),
		histograms: make(map[string]metric.Float64Histogram),
	}
}

// RecordCounter increments a counter metric
func (m *MetricInstruments) RecordCounter(ctx context.Context, name string, value int64, opts ...metric.AddOption) error {
	m.mu.RLock()
	counter, exists := m.counters[name]
	m.mu.RUnlock()

	if !exists {
		m.mu.Lock()
		// Double-check after acquiring write lock
		if counter, exists = m.counters[name]; !exists {
			var err error
			counter, err = m.meter.Int64Counter(name)
			if err != nil {
				m.mu.Unlock()
				return fmt.Errorf("failed to create counter %s: %w", name, err)
			}
			m.counters[name] = counter
		}
		m.mu.Unlock()
	}

	counter.Add(ctx, value, opts...)
	return nil
}

// RecordHistogram records a value distribution (like latencies)
func (m *MetricInstruments) RecordHistogram(ctx context.Context, name string, value float64, opts ...metric.RecordOption) error {
	m.mu.RLock()
	histogram, exists := m.histograms[name]
	m.mu.RUnlock()

	if !exists {
		m.mu.Lock()
		if histogram, exists = m.histograms[name]; !exists {
			var err error
			histogram, err = m.meter.Float64Histogram(name)
			if err != nil {
				m.mu.Unlock()
				return fmt.Errorf("failed to create histogram %s: %w", name, err)
			}
			m.histograms[name] = histogram
		}
		m.mu.Unlock()
	}

	histogram.Record(ctx, value, opts...)
	return nil
}

// Shutdown releases the meter's instrument cache. No-op beyond clearing
// the maps: the SDK's MeterProvider.Shutdown (called separately) owns the
// actual exporter/reader teardown.
func (m *MetricInstruments) Shutdown() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counters = make(map[string]metric.Int64Counter)
	m.histograms = make(map[string]metric.Float64Histogram)
	return nil
}

// Metric name constants recorded by the orchestrator and its supporting
// adapters. Every name here is reachable from a real run: see
// orchestrator.SupervisedSpawn/execute and adapter.TelemetryMetricsCollector.
const (
	MetricSpawnAttempts   = "engine.spawn.attempts"
	MetricSpawnExecutions = "engine.spawn.executions"
	MetricSpawnReturns    = "engine.spawn.returns"
	MetricSpawnErrors     = "engine.spawn.errors"

	MetricGateRejections = "engine.spawn.gate_rejections"
	MetricGatePasses     = "engine.gate.passes"
	MetricGateFailures   = "engine.gate.failures"

	MetricFrontierProofs = "engine.frontier.proofs"

	MetricCircuitBreakerSuccess     = "engine.circuit_breaker.success"
	MetricCircuitBreakerFailure     = "engine.circuit_breaker.failure"
	MetricCircuitBreakerRejected    = "engine.circuit_breaker.rejected"
	MetricCircuitBreakerStateChange = "engine.circuit_breaker.state_change"
)
