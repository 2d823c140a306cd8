// Package observe provides observability primitives for murmur:
// OpenTelemetry metrics and tracing for the dictation pipeline, plus the
// glue that attaches them to the transcription engine.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A Prometheus
// exporter bridge is available via [InitProvider] so that metrics can be
// scraped via the standard /metrics endpoint. Tests should use [NewMetrics]
// with a custom [metric.MeterProvider] to avoid cross-test pollution.
package observe

import (
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all murmur metrics.
const meterName = "github.com/MrWong99/murmur"

// Metrics holds all OpenTelemetry metric instruments for the pipeline.
// All fields are safe for concurrent use — the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// InferenceDuration tracks speech-to-text inference latency per pass.
	InferenceDuration metric.Float64Histogram

	// WindowDuration tracks the audio window length (seconds) each pass
	// decoded.
	WindowDuration metric.Float64Histogram

	// Passes counts completed inference passes. Use with attribute:
	//   attribute.String("status", "ok"|"failed")
	Passes metric.Int64Counter

	// Commits counts transcript commit events.
	Commits metric.Int64Counter

	// DroppedSamples counts capture samples discarded because the ring
	// buffer was full.
	DroppedSamples metric.Int64Counter

	// ActiveSessions tracks the number of live dictation sessions.
	ActiveSessions metric.Int64UpDownCounter
}

// latencyBuckets defines histogram bucket boundaries (in seconds) optimised
// for on-device inference latencies.
var latencyBuckets = []float64{
	0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10,
}

// windowBuckets defines histogram bucket boundaries (in seconds) spanning
// the range from the minimum window to the commit threshold.
var windowBuckets = []float64{
	0.25, 0.5, 1, 2, 5, 10, 15, 20, 25, 30,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.InferenceDuration, err = m.Float64Histogram("murmur.inference.duration",
		metric.WithDescription("Latency of one speech-to-text inference pass."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}

	if met.WindowDuration, err = m.Float64Histogram("murmur.inference.window",
		metric.WithDescription("Audio window length decoded per pass."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(windowBuckets...),
	); err != nil {
		return nil, err
	}

	if met.Passes, err = m.Int64Counter("murmur.inference.passes",
		metric.WithDescription("Completed inference passes by status."),
	); err != nil {
		return nil, err
	}

	if met.Commits, err = m.Int64Counter("murmur.transcript.commits",
		metric.WithDescription("Transcript commit events."),
	); err != nil {
		return nil, err
	}

	if met.DroppedSamples, err = m.Int64Counter("murmur.capture.dropped_samples",
		metric.WithDescription("Capture samples dropped due to a full ring buffer."),
	); err != nil {
		return nil, err
	}

	if met.ActiveSessions, err = m.Int64UpDownCounter("murmur.sessions.active",
		metric.WithDescription("Live dictation sessions."),
	); err != nil {
		return nil, err
	}

	return met, nil
}
