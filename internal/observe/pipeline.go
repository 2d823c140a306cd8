package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/MrWong99/murmur/pkg/provider/stt"
	"github.com/MrWong99/murmur/pkg/transcribe"
)

// Compile-time assertion that PipelineObserver satisfies transcribe.Observer.
var _ transcribe.Observer = (*PipelineObserver)(nil)

// PipelineObserver records engine pass and commit events into [Metrics].
// Attach it to an engine with transcribe.WithObserver.
type PipelineObserver struct {
	metrics *Metrics
}

// NewPipelineObserver creates a PipelineObserver writing to m.
func NewPipelineObserver(m *Metrics) *PipelineObserver {
	return &PipelineObserver{metrics: m}
}

// PassCompleted records the pass latency, window length, and outcome.
func (o *PipelineObserver) PassCompleted(window, took time.Duration, err error) {
	ctx := context.Background()
	status := "ok"
	if err != nil {
		status = "failed"
	}
	o.metrics.InferenceDuration.Record(ctx, took.Seconds())
	o.metrics.WindowDuration.Record(ctx, window.Seconds())
	o.metrics.Passes.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))
}

// Committed counts one transcript commit.
func (o *PipelineObserver) Committed(int) {
	o.metrics.Commits.Add(context.Background(), 1)
}

// Compile-time assertion that instrumented satisfies stt.Transcriber.
var _ stt.Transcriber = (*instrumented)(nil)

// InstrumentTranscriber wraps t so every Transcribe call runs inside a
// span named "stt.transcribe" with window size attributes, and errors are
// recorded on the span. Metrics stay with [PipelineObserver]; this wrapper
// only contributes tracing.
func InstrumentTranscriber(t stt.Transcriber) stt.Transcriber {
	return &instrumented{inner: t}
}

type instrumented struct {
	inner stt.Transcriber
}

func (i *instrumented) Transcribe(ctx context.Context, window []float32, prior stt.Context) (stt.Result, error) {
	ctx, span := StartSpan(ctx, "stt.transcribe",
		trace.WithAttributes(
			attribute.Int("stt.window_samples", len(window)),
			attribute.Int("stt.prior_tokens", len(prior.Tokens)),
		),
	)
	defer span.End()

	res, err := i.inner.Transcribe(ctx, window, prior)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return res, err
	}
	span.SetAttributes(attribute.Int("stt.text_chars", len(res.Text)))
	return res, nil
}

func (i *instrumented) Close() error { return i.inner.Close() }
