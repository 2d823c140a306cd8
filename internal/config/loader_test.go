package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/MrWong99/murmur/internal/config"
)

func TestLoadFromReader_EmptyYieldsDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := config.LoadFromReader(strings.NewReader(""))
	if err != nil {
		t.Fatalf("LoadFromReader() failed: %v", err)
	}
	def := config.Default()
	if cfg.Audio.SampleRate != def.Audio.SampleRate {
		t.Errorf("sample_rate = %d, want default %d", cfg.Audio.SampleRate, def.Audio.SampleRate)
	}
	if cfg.STT.Adapter != def.STT.Adapter {
		t.Errorf("adapter = %q, want default %q", cfg.STT.Adapter, def.STT.Adapter)
	}
	if cfg.LogLevel != config.LogInfo {
		t.Errorf("log_level = %q, want info", cfg.LogLevel)
	}
}

func TestLoadFromReader_OverridesKeepOtherDefaults(t *testing.T) {
	t.Parallel()

	yaml := `
log_level: debug
audio:
  sample_rate: 48000
stt:
  adapter: whisper-server
  server_url: http://localhost:9000
dictionary:
  - Eldrinax
  - Kubernetes
`
	cfg, err := config.LoadFromReader(strings.NewReader(yaml))
	if err != nil {
		t.Fatalf("LoadFromReader() failed: %v", err)
	}
	if cfg.LogLevel != config.LogDebug {
		t.Errorf("log_level = %q, want debug", cfg.LogLevel)
	}
	if cfg.Audio.SampleRate != 48000 {
		t.Errorf("sample_rate = %d, want 48000", cfg.Audio.SampleRate)
	}
	// Untouched sections keep their defaults.
	if cfg.Engine.CommitWindowSeconds != 25 {
		t.Errorf("commit_window_seconds = %d, want default 25", cfg.Engine.CommitWindowSeconds)
	}
	if cfg.STT.Adapter != config.AdapterWhisperServer {
		t.Errorf("adapter = %q, want whisper-server", cfg.STT.Adapter)
	}
	if len(cfg.Dictionary) != 2 {
		t.Errorf("dictionary = %v, want 2 entries", cfg.Dictionary)
	}
}

func TestLoadFromReader_UnknownKeyRejected(t *testing.T) {
	t.Parallel()

	_, err := config.LoadFromReader(strings.NewReader("no_such_key: true\n"))
	if err == nil {
		t.Fatal("expected error for unknown key, got nil")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	t.Parallel()

	_, err := config.Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil {
		t.Fatal("expected error for missing file, got nil")
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("error should wrap os.ErrNotExist, got: %v", err)
	}
}

func TestLoad_FromFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "murmur.yaml")
	if err := os.WriteFile(path, []byte("log_level: warn\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.LogLevel != config.LogWarn {
		t.Errorf("log_level = %q, want warn", cfg.LogLevel)
	}
}

func TestValidate_CollectsAllFailures(t *testing.T) {
	t.Parallel()

	cfg := config.Default()
	cfg.LogLevel = "loud"
	cfg.Audio.SampleRate = 0
	cfg.STT.Adapter = "parrot"

	err := config.Validate(cfg)
	if err == nil {
		t.Fatal("expected validation error, got nil")
	}
	for _, want := range []string{"log_level", "sample_rate", "adapter"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error should mention %s, got: %v", want, err)
		}
	}
}

func TestValidate_AdapterRequirements(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*config.Config)
		wantErr string
	}{
		{
			name: "native requires model path",
			mutate: func(c *config.Config) {
				c.STT.Adapter = config.AdapterWhisperNative
				c.STT.ModelPath = "  "
			},
			wantErr: "model_path",
		},
		{
			name: "server requires url",
			mutate: func(c *config.Config) {
				c.STT.Adapter = config.AdapterWhisperServer
				c.STT.ServerURL = ""
			},
			wantErr: "server_url",
		},
		{
			name: "mock needs neither",
			mutate: func(c *config.Config) {
				c.STT.Adapter = config.AdapterMock
				c.STT.ModelPath = ""
				c.STT.ServerURL = ""
			},
		},
		{
			name: "negative threads rejected",
			mutate: func(c *config.Config) {
				c.STT.Threads = -1
			},
			wantErr: "threads",
		},
		{
			name: "blank dictionary entry rejected",
			mutate: func(c *config.Config) {
				c.Dictionary = []string{"Eldrinax", " "}
			},
			wantErr: "dictionary[1]",
		},
		{
			name: "min window beyond commit window rejected",
			mutate: func(c *config.Config) {
				c.Engine.MinWindowMs = 30_000
				c.Engine.CommitWindowSeconds = 25
			},
			wantErr: "min_window_ms",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			tc.mutate(cfg)
			err := config.Validate(cfg)
			if tc.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() failed: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("expected error mentioning %q, got nil", tc.wantErr)
			}
			if !strings.Contains(err.Error(), tc.wantErr) {
				t.Errorf("error should mention %q, got: %v", tc.wantErr, err)
			}
		})
	}
}

func TestEngineConfig_Durations(t *testing.T) {
	t.Parallel()

	e := config.EngineConfig{
		InitialIntervalMs:   300,
		StreamIntervalMs:    400,
		MinWindowMs:         250,
		CommitWindowSeconds: 25,
	}
	if got := e.InitialInterval().Milliseconds(); got != 300 {
		t.Errorf("InitialInterval() = %dms, want 300", got)
	}
	if got := e.StreamInterval().Milliseconds(); got != 400 {
		t.Errorf("StreamInterval() = %dms, want 400", got)
	}
	if got := e.MinWindow().Milliseconds(); got != 250 {
		t.Errorf("MinWindow() = %dms, want 250", got)
	}
	if got := e.CommitWindow().Seconds(); got != 25 {
		t.Errorf("CommitWindow() = %vs, want 25", got)
	}
}
