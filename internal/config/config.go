// Package config loads the snake-replay CLI configuration from defaults,
// an optional YAML file, SNAKE_REPLAY_* environment variables and flags.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of every environment variable, e.g.
// SNAKE_REPLAY_ENGINE_URL or SNAKE_REPLAY_STREAM_PACING_DELAY.
const EnvPrefix = "SNAKE_REPLAY"

// Output formats for delivered frames.
const (
	OutputJSONL = "jsonl"
	OutputNone  = "none"
)

type Config struct {
	Engine  EngineConfig  `mapstructure:"engine"`
	Stream  StreamConfig  `mapstructure:"stream"`
	Output  OutputConfig  `mapstructure:"output"`
	Redis   RedisConfig   `mapstructure:"redis"`
	Metrics MetricsConfig `mapstructure:"metrics"`
	Logging LoggingConfig `mapstructure:"logging"`
}

type EngineConfig struct {
	URL       string        `mapstructure:"url"`
	UserAgent string        `mapstructure:"user_agent"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

type StreamConfig struct {
	PageSize    int           `mapstructure:"page_size"`
	RetryDelay  time.Duration `mapstructure:"retry_delay"`
	PacingDelay time.Duration `mapstructure:"pacing_delay"`
	// Timeout bounds a whole session; 0 polls a stalled game forever.
	Timeout time.Duration `mapstructure:"timeout"`
}

type OutputConfig struct {
	Format string `mapstructure:"format"`
}

type RedisConfig struct {
	Enabled   bool          `mapstructure:"enabled"`
	Addr      string        `mapstructure:"addr"`
	Password  string        `mapstructure:"password"`
	DB        int           `mapstructure:"db"`
	KeyPrefix string        `mapstructure:"key_prefix"`
	TTL       time.Duration `mapstructure:"ttl"`
	Publish   bool          `mapstructure:"publish"`
}

type MetricsConfig struct {
	// Addr to serve /metrics on; empty disables the server.
	Addr string `mapstructure:"addr"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
}

// flagKeys maps CLI flag names to config keys.
var flagKeys = map[string]string{
	"engine-url":   "engine.url",
	"page-size":    "stream.page_size",
	"retry-delay":  "stream.retry_delay",
	"pacing-delay": "stream.pacing_delay",
	"timeout":      "stream.timeout",
	"output":       "output.format",
	"redis":        "redis.enabled",
	"redis-addr":   "redis.addr",
	"metrics-addr": "metrics.addr",
	"log-level":    "logging.level",
	"pretty":       "logging.pretty",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("engine.url", "https://engine.battlesnake.com")
	v.SetDefault("engine.user_agent", "snake-replay-client/0.1.0")
	v.SetDefault("engine.timeout", 30*time.Second)
	v.SetDefault("stream.page_size", 50)
	v.SetDefault("stream.retry_delay", 2*time.Second)
	v.SetDefault("stream.pacing_delay", 100*time.Millisecond)
	v.SetDefault("stream.timeout", time.Duration(0))
	v.SetDefault("output.format", OutputJSONL)
	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.key_prefix", "replay")
	v.SetDefault("redis.ttl", 24*time.Hour)
	v.SetDefault("redis.publish", true)
	v.SetDefault("metrics.addr", "")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.pretty", false)
}

// Load reads the configuration. flags may be nil; only flags the user
// actually set override file and environment values.
func Load(configPath string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("snake-replay")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	if flags != nil {
		for name, key := range flagKeys {
			flag := flags.Lookup(name)
			if flag == nil || !flag.Changed {
				continue
			}
			if err := v.BindPFlag(key, flag); err != nil {
				return nil, fmt.Errorf("binding flag %s: %w", name, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.Engine.URL == "" {
		return fmt.Errorf("engine url is required (set %s_ENGINE_URL)", EnvPrefix)
	}
	if c.Stream.PageSize < 1 {
		return fmt.Errorf("page_size must be >= 1 (got %d)", c.Stream.PageSize)
	}
	if c.Stream.RetryDelay < 0 {
		return fmt.Errorf("retry_delay must be >= 0")
	}
	if c.Stream.PacingDelay < 0 {
		return fmt.Errorf("pacing_delay must be >= 0")
	}
	switch c.Output.Format {
	case OutputJSONL, OutputNone:
	default:
		return fmt.Errorf("output format must be %q or %q (got %q)", OutputJSONL, OutputNone, c.Output.Format)
	}
	if c.Output.Format == OutputNone && !c.Redis.Enabled {
		return fmt.Errorf("output %q requires redis to be enabled", OutputNone)
	}
	if c.Redis.Enabled && c.Redis.Addr == "" {
		return fmt.Errorf("redis addr is required when redis is enabled")
	}
	return nil
}
