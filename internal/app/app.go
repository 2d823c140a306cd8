// Package app wires the murmur subsystems into a running dictation session.
//
// The App owns the full lifecycle: New composes the engine, session, and
// optional transcript corrector from config; Run drives the drain loop and
// the optional telemetry listener until the context is cancelled, then
// tears the session down. Inject test doubles through the [Pipeline] struct
// — any capture and transcriber implementing the contracts will do.
package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/MrWong99/murmur/internal/config"
	"github.com/MrWong99/murmur/internal/observe"
	"github.com/MrWong99/murmur/internal/transcript"
	"github.com/MrWong99/murmur/pkg/audio"
	"github.com/MrWong99/murmur/pkg/provider/stt"
	"github.com/MrWong99/murmur/pkg/transcribe"
)

// defaultDrainInterval is the cadence at which the driver loop empties the
// capture ring into the engine. 20 ms keeps worst-case drain latency far
// below the ring capacity at 16 kHz.
const defaultDrainInterval = 20 * time.Millisecond

// Pipeline holds the externally constructed pieces the App composes: the
// inference adapter, the capture backend, and the ring the backend writes
// into. Populated by main.go (or by tests with mocks).
type Pipeline struct {
	Transcriber stt.Transcriber
	Capture     audio.Capture
	Ring        *audio.Ring
}

// Option is a functional option for New.
type Option func(*App)

// WithMetrics attaches pipeline metrics. When unset, the engine runs with a
// no-op observer and dropped-sample accounting is skipped.
func WithMetrics(m *observe.Metrics) Option {
	return func(a *App) { a.metrics = m }
}

// WithTextSink registers a callback receiving the live display text after
// every completed inference pass. It is invoked from the engine goroutine.
func WithTextSink(fn transcribe.Callback) Option {
	return func(a *App) { a.onText = fn }
}

// WithDrainInterval overrides the drain cadence. Used by tests to speed the
// loop up.
func WithDrainInterval(d time.Duration) Option {
	return func(a *App) { a.drainInterval = d }
}

// App owns one dictation session and its telemetry surface.
type App struct {
	cfg     *config.Config
	session *transcribe.Session
	metrics *observe.Metrics
	onText  transcribe.Callback

	drainInterval time.Duration
	lastDropped   uint64
}

// New composes an App from cfg and the supplied pipeline parts. A
// dictionary in cfg attaches a phonetic corrector to the engine.
func New(cfg *config.Config, p Pipeline, opts ...Option) (*App, error) {
	if p.Transcriber == nil {
		return nil, errors.New("app: pipeline transcriber must not be nil")
	}
	if p.Capture == nil {
		return nil, errors.New("app: pipeline capture must not be nil")
	}
	if p.Ring == nil {
		return nil, errors.New("app: pipeline ring must not be nil")
	}

	a := &App{
		cfg:           cfg,
		drainInterval: defaultDrainInterval,
	}
	for _, o := range opts {
		o(a)
	}

	engineOpts := []transcribe.Option{
		transcribe.WithSampleRate(cfg.Audio.SampleRate),
		transcribe.WithIntervals(cfg.Engine.InitialInterval(), cfg.Engine.StreamInterval()),
		transcribe.WithMinWindow(cfg.Engine.MinWindow()),
		transcribe.WithCommitWindow(cfg.Engine.CommitWindow()),
	}
	if len(cfg.Dictionary) > 0 {
		corrector := transcript.New(cfg.Dictionary)
		engineOpts = append(engineOpts, transcribe.WithPostProcessor(corrector.Apply))
	}
	if a.metrics != nil {
		engineOpts = append(engineOpts, transcribe.WithObserver(observe.NewPipelineObserver(a.metrics)))
	}

	engine := transcribe.NewEngine(p.Transcriber, engineOpts...)
	a.session = transcribe.NewSession(p.Capture, p.Ring, engine)
	if a.onText != nil {
		a.session.SetCallback(a.onText)
	}

	return a, nil
}

// Run starts the session and blocks until ctx is cancelled, then stops it.
// The final transcript stays readable through FullText after Run returns.
func (a *App) Run(ctx context.Context) error {
	if a.metrics != nil {
		a.metrics.ActiveSessions.Add(ctx, 1)
		defer a.metrics.ActiveSessions.Add(context.Background(), -1)
	}

	if err := a.session.Start(ctx); err != nil {
		return fmt.Errorf("app: start session: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return a.drainLoop(gctx)
	})

	if addr := a.cfg.Telemetry.ListenAddr; addr != "" {
		g.Go(func() error {
			return a.serveTelemetry(gctx, addr)
		})
	}

	err := g.Wait()

	if stopErr := a.session.Stop(); stopErr != nil {
		slog.Warn("session stop failed", "err", stopErr)
	}

	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// drainLoop moves captured samples into the engine on a fixed cadence and
// accounts dropped samples. It exits when ctx is cancelled.
func (a *App) drainLoop(ctx context.Context) error {
	ticker := time.NewTicker(a.drainInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			a.session.Drain()
			a.recordDropped(ctx)
		}
	}
}

// recordDropped forwards the ring's dropped-sample delta to metrics.
func (a *App) recordDropped(ctx context.Context) {
	if a.metrics == nil {
		return
	}
	dropped := a.session.Dropped()
	if dropped > a.lastDropped {
		a.metrics.DroppedSamples.Add(ctx, int64(dropped-a.lastDropped))
		slog.Warn("capture ring overflow, samples dropped",
			"dropped_total", dropped,
		)
	}
	a.lastDropped = dropped
}

// serveTelemetry exposes /metrics (Prometheus scrape of the OTel bridge)
// and /healthz until ctx is cancelled.
func (a *App) serveTelemetry(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})

	srv := &http.Server{Addr: addr, Handler: mux}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-errCh:
		return fmt.Errorf("app: telemetry listener: %w", err)
	}
}

// FullText returns the current committed-plus-pending transcript.
func (a *App) FullText() string { return a.session.FullText() }

// RecordingSeconds returns the duration of audio received this session.
func (a *App) RecordingSeconds() float64 { return a.session.RecordingSeconds() }

// Reset clears the session state. Only meaningful between runs.
func (a *App) Reset() { a.session.Reset() }
