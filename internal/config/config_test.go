package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/pflag"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("", nil)
	if err != nil {
		t.Fatalf("expected defaults to load, got error: %v", err)
	}

	if cfg.Engine.URL != "https://engine.battlesnake.com" {
		t.Errorf("expected default engine url, got %q", cfg.Engine.URL)
	}
	if cfg.Stream.PageSize != 50 {
		t.Errorf("expected page size 50, got %d", cfg.Stream.PageSize)
	}
	if cfg.Stream.RetryDelay != 2*time.Second {
		t.Errorf("expected retry delay 2s, got %v", cfg.Stream.RetryDelay)
	}
	if cfg.Stream.PacingDelay != 100*time.Millisecond {
		t.Errorf("expected pacing delay 100ms, got %v", cfg.Stream.PacingDelay)
	}
	if cfg.Output.Format != OutputJSONL {
		t.Errorf("expected jsonl output, got %q", cfg.Output.Format)
	}
	if cfg.Redis.Enabled {
		t.Error("expected redis disabled by default")
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("SNAKE_REPLAY_ENGINE_URL", "http://localhost:3005")
	t.Setenv("SNAKE_REPLAY_STREAM_PACING_DELAY", "250ms")
	t.Setenv("SNAKE_REPLAY_REDIS_ENABLED", "true")

	cfg, err := Load("", nil)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Engine.URL != "http://localhost:3005" {
		t.Errorf("expected engine url from env, got %q", cfg.Engine.URL)
	}
	if cfg.Stream.PacingDelay != 250*time.Millisecond {
		t.Errorf("expected pacing delay 250ms, got %v", cfg.Stream.PacingDelay)
	}
	if !cfg.Redis.Enabled {
		t.Error("expected redis enabled from env")
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "replay.yaml")
	content := `
engine:
  url: http://engine.local
stream:
  page_size: 25
  retry_delay: 500ms
logging:
  level: debug
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	cfg, err := Load(path, nil)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Engine.URL != "http://engine.local" {
		t.Errorf("expected engine url from file, got %q", cfg.Engine.URL)
	}
	if cfg.Stream.PageSize != 25 {
		t.Errorf("expected page size 25, got %d", cfg.Stream.PageSize)
	}
	if cfg.Stream.RetryDelay != 500*time.Millisecond {
		t.Errorf("expected retry delay 500ms, got %v", cfg.Stream.RetryDelay)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("expected debug level, got %q", cfg.Logging.Level)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml"), nil); err == nil {
		t.Fatal("expected error for explicit missing config file")
	}
}

func TestLoadFlagsOverrideEnv(t *testing.T) {
	t.Setenv("SNAKE_REPLAY_ENGINE_URL", "http://from-env")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("engine-url", "", "")
	flags.Int("page-size", 50, "")
	flags.Duration("pacing-delay", 0, "")
	if err := flags.Parse([]string{"--engine-url", "http://from-flag", "--pacing-delay", "1s"}); err != nil {
		t.Fatalf("parsing flags: %v", err)
	}

	cfg, err := Load("", flags)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Engine.URL != "http://from-flag" {
		t.Errorf("expected flag to win over env, got %q", cfg.Engine.URL)
	}
	if cfg.Stream.PacingDelay != time.Second {
		t.Errorf("expected pacing delay 1s, got %v", cfg.Stream.PacingDelay)
	}
	// unset flags keep their config values
	if cfg.Stream.PageSize != 50 {
		t.Errorf("expected page size 50, got %d", cfg.Stream.PageSize)
	}
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			Engine: EngineConfig{URL: "http://engine"},
			Stream: StreamConfig{PageSize: 50},
			Output: OutputConfig{Format: OutputJSONL},
		}
	}

	tests := []struct {
		name     string
		mutate   func(*Config)
		contains string
	}{
		{"valid", func(c *Config) {}, ""},
		{"missing engine url", func(c *Config) { c.Engine.URL = "" }, "engine url"},
		{"zero page size", func(c *Config) { c.Stream.PageSize = 0 }, "page_size"},
		{"negative retry", func(c *Config) { c.Stream.RetryDelay = -time.Second }, "retry_delay"},
		{"negative pacing", func(c *Config) { c.Stream.PacingDelay = -time.Second }, "pacing_delay"},
		{"unknown format", func(c *Config) { c.Output.Format = "xml" }, "output format"},
		{"no output at all", func(c *Config) { c.Output.Format = OutputNone }, "requires redis"},
		{"redis without addr", func(c *Config) { c.Redis.Enabled = true; c.Redis.Addr = "" }, "redis addr"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()

			if tt.contains == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.contains) {
				t.Errorf("error = %v, want it to contain %q", err, tt.contains)
			}
		})
	}
}
