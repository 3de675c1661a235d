// Package logging configures zerolog for the catalog client and the proxy.
//
// Components never create their own writers: the binary calls Setup once and
// each component derives a child logger with NewLogger, so every line carries
// a component field. Library callers that want silence pass Nop.
//
// Levels in use: Debug for cache hits/misses, queue dispatch and search
// resolution; Info for startup, shutdown, listing loads and requests that
// succeeded after a retry; Warn for retry attempts, dropped batch members,
// degraded ability labels, rejected payloads and Redis tier errors; Error for
// exhausted retries and panicking queued tasks.
//
// Common fields: component, endpoint, attempt, backoff, task_id, key, layer, count.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// LogLevel is a normalized level name.
type LogLevel string

const (
	LevelDebug LogLevel = "debug"
	LevelInfo  LogLevel = "info"
	LevelWarn  LogLevel = "warn"
	LevelError LogLevel = "error"
)

var zerologLevels = map[LogLevel]zerolog.Level{
	LevelDebug: zerolog.DebugLevel,
	LevelInfo:  zerolog.InfoLevel,
	LevelWarn:  zerolog.WarnLevel,
	LevelError: zerolog.ErrorLevel,
}

// levelAliases are accepted spellings that normalize to a LogLevel.
var levelAliases = map[string]LogLevel{
	"warning": LevelWarn,
}

// Config holds logger configuration.
type Config struct {
	Level LogLevel

	// Pretty switches from JSON lines to zerolog's console writer.
	Pretty bool

	// Output defaults to os.Stderr.
	Output io.Writer
}

// DefaultConfig returns info-level JSON output on stderr.
func DefaultConfig() Config {
	return Config{
		Level:  LevelInfo,
		Pretty: false,
		Output: os.Stderr,
	}
}

// ParseLevel normalizes a level name from configuration or the environment.
// Matching ignores case and surrounding space; an empty name selects LevelInfo.
func ParseLevel(name string) (LogLevel, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	if n == "" {
		return LevelInfo, nil
	}
	if alias, ok := levelAliases[n]; ok {
		return alias, nil
	}
	if _, ok := zerologLevels[LogLevel(n)]; ok {
		return LogLevel(n), nil
	}
	return "", fmt.Errorf("unknown log level %q", name)
}

// toZerolog maps l to a zerolog level. Names ParseLevel rejects map to info.
func (l LogLevel) toZerolog() zerolog.Level {
	normalized, err := ParseLevel(string(l))
	if err != nil {
		return zerolog.InfoLevel
	}
	return zerologLevels[normalized]
}

// Setup configures the global zerolog logger and returns it.
func Setup(cfg Config) zerolog.Logger {
	zerolog.SetGlobalLevel(cfg.Level.toZerolog())

	output := cfg.Output
	if output == nil {
		output = os.Stderr
	}
	if cfg.Pretty {
		output = zerolog.ConsoleWriter{Out: output, TimeFormat: time.RFC3339}
	}

	logger := zerolog.New(output).With().Timestamp().Logger()
	log.Logger = logger
	return logger
}

// NewLogger derives a child of the global logger tagged with component.
func NewLogger(component string) zerolog.Logger {
	return log.With().Str("component", component).Logger()
}

// Nop returns a logger that discards everything.
func Nop() zerolog.Logger {
	return zerolog.Nop()
}
