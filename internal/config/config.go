// Package config provides the configuration schema and loader for the
// murmur dictation daemon.
package config

import "time"

// LogLevel controls log verbosity.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// Adapter selects the speech-to-text backend.
type Adapter string

const (
	// AdapterWhisperNative runs whisper.cpp in-process via CGO bindings.
	AdapterWhisperNative Adapter = "whisper-native"

	// AdapterWhisperServer talks to a running whisper-server over HTTP.
	AdapterWhisperServer Adapter = "whisper-server"

	// AdapterMock is a deterministic stub, useful for development without
	// a model.
	AdapterMock Adapter = "mock"
)

// IsValid reports whether a is a recognised adapter name.
func (a Adapter) IsValid() bool {
	switch a {
	case AdapterWhisperNative, AdapterWhisperServer, AdapterMock:
		return true
	}
	return false
}

// Config is the root configuration structure for murmur, typically loaded
// from a YAML file using [Load] or [LoadFromReader].
type Config struct {
	// LogLevel controls verbosity. Default: info.
	LogLevel LogLevel `yaml:"log_level"`

	Telemetry  TelemetryConfig `yaml:"telemetry"`
	Audio      AudioConfig     `yaml:"audio"`
	Engine     EngineConfig    `yaml:"engine"`
	STT        STTConfig       `yaml:"stt"`

	// Dictionary lists proper nouns (names, jargon) that recognized text is
	// phonetically corrected towards. Empty disables correction.
	Dictionary []string `yaml:"dictionary"`
}

// TelemetryConfig configures the optional metrics/health listener.
type TelemetryConfig struct {
	// ListenAddr is the TCP address for the /metrics and /healthz endpoints
	// (e.g. "127.0.0.1:9464"). Empty disables the listener; metrics are
	// still recorded in-process.
	ListenAddr string `yaml:"listen_addr"`
}

// AudioConfig configures the capture side of the pipeline.
type AudioConfig struct {
	// Device selects the input device by case-insensitive name substring.
	// Empty uses the system default input.
	Device string `yaml:"device"`

	// SampleRate in Hz. Whisper models expect 16000.
	SampleRate int `yaml:"sample_rate"`

	// RingCapacitySeconds sizes the capture ring buffer. It bounds how long
	// the drain loop may stall before samples are dropped.
	RingCapacitySeconds int `yaml:"ring_capacity_seconds"`
}

// EngineConfig tunes the streaming transcription loop.
type EngineConfig struct {
	// InitialIntervalMs is the wait before the very first inference pass,
	// kept short so partial text surfaces quickly.
	InitialIntervalMs int `yaml:"initial_interval_ms"`

	// StreamIntervalMs is the steady-state wait between passes.
	StreamIntervalMs int `yaml:"stream_interval_ms"`

	// MinWindowMs is the minimum accumulated audio before a pass runs.
	MinWindowMs int `yaml:"min_window_ms"`

	// CommitWindowSeconds is the accumulated audio duration beyond which
	// stable text is committed and the window restarted.
	CommitWindowSeconds int `yaml:"commit_window_seconds"`
}

// InitialInterval returns the first-pass wait as a duration.
func (e EngineConfig) InitialInterval() time.Duration {
	return time.Duration(e.InitialIntervalMs) * time.Millisecond
}

// StreamInterval returns the steady-state wait as a duration.
func (e EngineConfig) StreamInterval() time.Duration {
	return time.Duration(e.StreamIntervalMs) * time.Millisecond
}

// MinWindow returns the minimum window as a duration.
func (e EngineConfig) MinWindow() time.Duration {
	return time.Duration(e.MinWindowMs) * time.Millisecond
}

// CommitWindow returns the commit threshold as a duration.
func (e EngineConfig) CommitWindow() time.Duration {
	return time.Duration(e.CommitWindowSeconds) * time.Second
}

// STTConfig selects and configures the speech-to-text adapter.
type STTConfig struct {
	// Adapter names the backend implementation.
	Adapter Adapter `yaml:"adapter"`

	// ModelPath is the ggml model file for the whisper-native adapter.
	ModelPath string `yaml:"model_path"`

	// ServerURL is the whisper-server base URL for the whisper-server
	// adapter (e.g. "http://localhost:8080").
	ServerURL string `yaml:"server_url"`

	// Language is the decoding language code (e.g. "en").
	Language string `yaml:"language"`

	// Threads is the inference thread count for the native adapter.
	// Zero derives it from the CPU count.
	Threads int `yaml:"threads"`
}

// Default returns a Config populated with the defaults the pipeline was
// tuned against.
func Default() *Config {
	return &Config{
		LogLevel: LogInfo,
		Audio: AudioConfig{
			SampleRate:          16000,
			RingCapacitySeconds: 60,
		},
		Engine: EngineConfig{
			InitialIntervalMs:   300,
			StreamIntervalMs:    400,
			MinWindowMs:         250,
			CommitWindowSeconds: 25,
		},
		STT: STTConfig{
			Adapter:   AdapterWhisperNative,
			ModelPath: "models/ggml-base.en.bin",
			ServerURL: "http://localhost:8080",
			Language:  "en",
		},
	}
}
