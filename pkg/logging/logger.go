// Package logging configures zerolog for the replay client and CLI.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Component names used in the "component" field.
const (
	ComponentCLI       = "cli"
	ComponentEngine    = "engine-client"
	ComponentReplay    = "replay"
	ComponentSink      = "sink"
	ComponentMetrics   = "metrics"
	ComponentPaginator = "paginator"
	ComponentScheduler = "scheduler"
)

// Config holds logger configuration.
type Config struct {
	// Level is the minimum level: debug, info, warn or error.
	Level string

	// Pretty enables human-readable console output instead of JSON.
	Pretty bool

	// Output defaults to os.Stderr; stdout is reserved for frame output.
	Output io.Writer
}

// DefaultConfig returns a default logger configuration.
func DefaultConfig() Config {
	return Config{
		Level:  "info",
		Output: os.Stderr,
	}
}

// Setup configures and returns the global zerolog logger.
func Setup(cfg Config) zerolog.Logger {
	zerolog.SetGlobalLevel(ParseLevel(cfg.Level))
	zerolog.DurationFieldUnit = time.Millisecond

	output := cfg.Output
	if output == nil {
		output = os.Stderr
	}
	if cfg.Pretty {
		output = zerolog.ConsoleWriter{Out: output, TimeFormat: time.Kitchen}
	}

	logger := zerolog.New(output).With().Timestamp().Logger()
	log.Logger = logger

	return logger
}

// ParseLevel converts a level name to a zerolog.Level.
// Unknown names fall back to info.
func ParseLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zerolog.DebugLevel
	case "info", "":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// NewLogger creates a logger from the global one tagged with component.
func NewLogger(component string) zerolog.Logger {
	return log.With().Str("component", component).Logger()
}

// Field conventions:
//
//   - component: emitting component (see Component* constants)
//   - session_id: one ReadAllFrames call
//   - game_id: engine game identifier
//   - offset: frame cursor of the paginator
//   - frames: frames in a page, or total frames delivered
//   - delay: backoff before the next poll
//   - turn: frame turn number
//   - endpoint: engine route template
//   - status: HTTP status code
//   - error_class: client, server, network or decode
//
// Debug covers every page fetched and every engine request, Info the start and
// end of a session, Warn engine errors and dropped frames, Error a session that
// stopped early.
