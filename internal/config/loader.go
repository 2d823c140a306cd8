package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Load reads the YAML configuration file at path and returns a validated
// [Config]. Fields absent from the file keep their [Default] values.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r on top of the defaults and
// validates the result. Unknown keys are rejected. Useful in tests where
// configs are constructed from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values. It returns a
// joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	if !cfg.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("config: unknown log_level %q", cfg.LogLevel))
	}
	if cfg.Audio.SampleRate <= 0 {
		errs = append(errs, fmt.Errorf("config: audio.sample_rate must be positive, got %d", cfg.Audio.SampleRate))
	}
	if cfg.Audio.RingCapacitySeconds <= 0 {
		errs = append(errs, fmt.Errorf("config: audio.ring_capacity_seconds must be positive, got %d", cfg.Audio.RingCapacitySeconds))
	}
	if cfg.Engine.InitialIntervalMs <= 0 {
		errs = append(errs, fmt.Errorf("config: engine.initial_interval_ms must be positive, got %d", cfg.Engine.InitialIntervalMs))
	}
	if cfg.Engine.StreamIntervalMs <= 0 {
		errs = append(errs, fmt.Errorf("config: engine.stream_interval_ms must be positive, got %d", cfg.Engine.StreamIntervalMs))
	}
	if cfg.Engine.MinWindowMs <= 0 {
		errs = append(errs, fmt.Errorf("config: engine.min_window_ms must be positive, got %d", cfg.Engine.MinWindowMs))
	}
	if cfg.Engine.CommitWindowSeconds <= 0 {
		errs = append(errs, fmt.Errorf("config: engine.commit_window_seconds must be positive, got %d", cfg.Engine.CommitWindowSeconds))
	}
	if cfg.Engine.MinWindowMs > cfg.Engine.CommitWindowSeconds*1000 {
		errs = append(errs, errors.New("config: engine.min_window_ms must not exceed engine.commit_window_seconds"))
	}

	if !cfg.STT.Adapter.IsValid() {
		errs = append(errs, fmt.Errorf("config: unknown stt.adapter %q", cfg.STT.Adapter))
	}
	switch cfg.STT.Adapter {
	case AdapterWhisperNative:
		if strings.TrimSpace(cfg.STT.ModelPath) == "" {
			errs = append(errs, errors.New("config: stt.model_path is required for the whisper-native adapter"))
		}
	case AdapterWhisperServer:
		if strings.TrimSpace(cfg.STT.ServerURL) == "" {
			errs = append(errs, errors.New("config: stt.server_url is required for the whisper-server adapter"))
		}
	}
	if cfg.STT.Threads < 0 {
		errs = append(errs, fmt.Errorf("config: stt.threads must not be negative, got %d", cfg.STT.Threads))
	}

	for i, term := range cfg.Dictionary {
		if strings.TrimSpace(term) == "" {
			errs = append(errs, fmt.Errorf("config: dictionary[%d] is empty", i))
		}
	}

	return errors.Join(errs...)
}
