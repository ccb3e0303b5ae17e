// Package observe provides observability primitives for agentcall:
// OpenTelemetry metrics for the call and send pipeline, plus an SDK provider
// with a Prometheus exporter bridge.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A package-level
// default [Metrics] instance ([DefaultMetrics]) is provided for convenience;
// tests should use [NewMetrics] with a custom [metric.MeterProvider] to avoid
// cross-test pollution.
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all agentcall metrics.
const meterName = "github.com/voximind/agentcall"

// Metrics holds all OpenTelemetry metric instruments for the SDK.
// All fields are safe for concurrent use — the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// SendDuration tracks wall-clock duration of one simulated-audio send,
	// from lifecycle retire to completion. Use with attribute.String("mode", ...).
	SendDuration metric.Float64Histogram

	// Sends counts simulated-audio send operations. Use with attributes:
	//   attribute.String("mode", "chunked"|"whole"), attribute.String("status", "ok"|"error")
	Sends metric.Int64Counter

	// ChunksPublished counts individual chunks written to simulated tracks.
	ChunksPublished metric.Int64Counter

	// Teardowns counts lifecycle teardown passes that actually retired a
	// publication (idempotent repeats are not counted).
	Teardowns metric.Int64Counter

	// ControlMessages counts control-channel payloads. Use with attribute:
	//   attribute.String("status", "ok"|"malformed"|"ignored")
	ControlMessages metric.Int64Counter

	// ActiveCalls tracks the number of live call sessions.
	ActiveCalls metric.Int64UpDownCounter

	// ActivePublications tracks the number of outstanding simulated track
	// publications. The lifecycle invariant keeps this at 0 or 1 per call.
	ActivePublications metric.Int64UpDownCounter
}

// sendDurationBuckets defines histogram bucket boundaries (in seconds) sized
// for clip playback durations rather than request latencies.
var sendDurationBuckets = []float64{
	0.25, 0.5, 1, 2.5, 5, 10, 20, 30, 60, 120,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.SendDuration, err = m.Float64Histogram("agentcall.send.duration",
		metric.WithDescription("Wall-clock duration of a simulated-audio send."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(sendDurationBuckets...),
	); err != nil {
		return nil, err
	}
	if met.Sends, err = m.Int64Counter("agentcall.sends",
		metric.WithDescription("Total simulated-audio sends by mode and status."),
	); err != nil {
		return nil, err
	}
	if met.ChunksPublished, err = m.Int64Counter("agentcall.send.chunks",
		metric.WithDescription("Total audio chunks written to simulated tracks."),
	); err != nil {
		return nil, err
	}
	if met.Teardowns, err = m.Int64Counter("agentcall.teardowns",
		metric.WithDescription("Total lifecycle teardowns that retired a publication."),
	); err != nil {
		return nil, err
	}
	if met.ControlMessages, err = m.Int64Counter("agentcall.control.messages",
		metric.WithDescription("Total control-channel messages by status."),
	); err != nil {
		return nil, err
	}
	if met.ActiveCalls, err = m.Int64UpDownCounter("agentcall.active_calls",
		metric.WithDescription("Number of live call sessions."),
	); err != nil {
		return nil, err
	}
	if met.ActivePublications, err = m.Int64UpDownCounter("agentcall.active_publications",
		metric.WithDescription("Number of outstanding simulated track publications."),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// defaultMetrics is the lazily-initialised package-level Metrics instance.
var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating it on
// first call using [otel.GetMeterProvider]. Subsequent calls return the same
// pointer. Panics if instrument creation fails (should not happen with the
// global provider).
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// RecordSend records one completed send with its mode, status, and duration
// in seconds.
func (m *Metrics) RecordSend(ctx context.Context, mode, status string, seconds float64) {
	attrs := metric.WithAttributes(
		attribute.String("mode", mode),
		attribute.String("status", status),
	)
	m.Sends.Add(ctx, 1, attrs)
	m.SendDuration.Record(ctx, seconds, metric.WithAttributes(attribute.String("mode", mode)))
}

// RecordControlMessage records one control-channel payload with its status.
func (m *Metrics) RecordControlMessage(ctx context.Context, status string) {
	m.ControlMessages.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))
}
