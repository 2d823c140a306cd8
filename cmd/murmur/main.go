// Command murmur is a push-to-talk dictation engine: it captures the
// microphone, streams it through a local whisper model, and prints the
// growing transcript. Interrupting the process (Ctrl-C) stops capture and
// emits the final text on stdout.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"go.opentelemetry.io/otel"

	"github.com/MrWong99/murmur/internal/app"
	"github.com/MrWong99/murmur/internal/config"
	"github.com/MrWong99/murmur/internal/observe"
	"github.com/MrWong99/murmur/pkg/audio"
	malgocap "github.com/MrWong99/murmur/pkg/audio/malgo"
	"github.com/MrWong99/murmur/pkg/provider/stt"
	sttmock "github.com/MrWong99/murmur/pkg/provider/stt/mock"
	"github.com/MrWong99/murmur/pkg/provider/stt/whisper"
	"github.com/MrWong99/murmur/pkg/transcribe"
)

// version is stamped by the release build via -ldflags.
var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	// ── CLI flags ──────────────────────────────────────────────────────────────
	configPath := flag.String("config", "murmur.yaml", "path to the YAML configuration file")
	listDevices := flag.Bool("list-devices", false, "list audio input devices and exit")
	quiet := flag.Bool("quiet", false, "suppress live transcript updates; print only the final text")
	flag.Parse()

	// ── Load configuration ────────────────────────────────────────────────────
	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			cfg = config.Default()
		} else {
			fmt.Fprintf(os.Stderr, "murmur: %v\n", err)
			return 1
		}
	}

	// ── Logger ────────────────────────────────────────────────────────────────
	logger := newLogger(cfg.LogLevel)
	slog.SetDefault(logger)

	if *listDevices {
		return listInputDevices()
	}

	slog.Info("murmur starting",
		"config", *configPath,
		"adapter", cfg.STT.Adapter,
		"sample_rate", cfg.Audio.SampleRate,
		"log_level", cfg.LogLevel,
	)

	// ── Signal context ────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Telemetry ─────────────────────────────────────────────────────────────
	shutdown, err := observe.InitProvider(ctx, observe.ProviderConfig{ServiceVersion: version})
	if err != nil {
		slog.Error("failed to init telemetry provider", "err", err)
		return 1
	}
	defer func() {
		if err := shutdown(context.Background()); err != nil {
			slog.Warn("telemetry shutdown failed", "err", err)
		}
	}()

	metrics, err := observe.NewMetrics(otel.GetMeterProvider())
	if err != nil {
		slog.Error("failed to create metrics", "err", err)
		return 1
	}

	// ── Inference adapter ─────────────────────────────────────────────────────
	transcriber, err := buildTranscriber(cfg)
	if err != nil {
		slog.Error("failed to build transcriber", "err", err)
		return 1
	}
	transcriber = observe.InstrumentTranscriber(transcriber)
	defer func() {
		if err := transcriber.Close(); err != nil {
			slog.Warn("transcriber close failed", "err", err)
		}
	}()

	// ── Capture pipeline ──────────────────────────────────────────────────────
	ring := audio.NewRing(cfg.Audio.SampleRate * cfg.Audio.RingCapacitySeconds)
	capture := malgocap.New(ring,
		malgocap.WithSampleRate(cfg.Audio.SampleRate),
		malgocap.WithDevice(cfg.Audio.Device),
	)
	defer capture.Close()

	// ── App ───────────────────────────────────────────────────────────────────
	opts := []app.Option{app.WithMetrics(metrics)}
	if !*quiet {
		opts = append(opts, app.WithTextSink(liveTextPrinter()))
	}

	a, err := app.New(cfg, app.Pipeline{
		Transcriber: transcriber,
		Capture:     capture,
		Ring:        ring,
	}, opts...)
	if err != nil {
		slog.Error("failed to build app", "err", err)
		return 1
	}

	slog.Info("recording, press Ctrl-C to finish")
	if err := a.Run(ctx); err != nil {
		slog.Error("session failed", "err", err)
		return 1
	}

	if !*quiet {
		fmt.Fprint(os.Stdout, "\r\033[K")
	}
	fmt.Fprintln(os.Stdout, a.FullText())
	slog.Info("dictation finished",
		"recording_seconds", fmt.Sprintf("%.1f", a.RecordingSeconds()),
		"chars", len(a.FullText()),
	)
	return 0
}

// buildTranscriber instantiates the configured inference adapter.
func buildTranscriber(cfg *config.Config) (stt.Transcriber, error) {
	switch cfg.STT.Adapter {
	case config.AdapterWhisperNative:
		return whisper.NewNative(cfg.STT.ModelPath,
			whisper.WithNativeLanguage(cfg.STT.Language),
			whisper.WithNativeThreads(cfg.STT.Threads),
		)
	case config.AdapterWhisperServer:
		return whisper.NewServer(cfg.STT.ServerURL,
			whisper.WithServerLanguage(cfg.STT.Language),
			whisper.WithServerSampleRate(cfg.Audio.SampleRate),
		)
	case config.AdapterMock:
		// Development stub: echoes window sizes so the pipeline can be
		// exercised without a model.
		return &sttmock.Transcriber{}, nil
	default:
		return nil, fmt.Errorf("unknown stt adapter %q", cfg.STT.Adapter)
	}
}

// liveTextPrinter returns a text sink rewriting the current terminal line
// with the latest transcript after every pass.
func liveTextPrinter() transcribe.Callback {
	return func(text string) {
		fmt.Fprintf(os.Stdout, "\r\033[K%s", text)
	}
}

// listInputDevices prints the available capture devices.
func listInputDevices() int {
	capture := malgocap.New(nil)
	defer capture.Close()

	devices, err := capture.Devices()
	if err != nil {
		slog.Error("failed to enumerate devices", "err", err)
		return 1
	}
	for _, d := range devices {
		marker := " "
		if d.Default {
			marker = "*"
		}
		fmt.Printf("%s %s\n", marker, d.Name)
	}
	return 0
}

// newLogger builds the process-wide slog logger at the configured level.
func newLogger(level config.LogLevel) *slog.Logger {
	var lvl slog.Level
	switch level {
	case config.LogDebug:
		lvl = slog.LevelDebug
	case config.LogWarn:
		lvl = slog.LevelWarn
	case config.LogError:
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
