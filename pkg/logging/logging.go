// Package logging provides structured logging shared by the engine and its
// CLI, wrapping charmbracelet/log the way Klingon's node logger does.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/log"
)

// Level is a log verbosity level.
type Level = log.Level

const (
	DebugLevel = log.DebugLevel
	InfoLevel  = log.InfoLevel
	WarnLevel  = log.WarnLevel
	ErrorLevel = log.ErrorLevel
)

// Logger wraps charmbracelet/log with the prefix/component conventions the
// rest of this module expects.
type Logger struct {
	*log.Logger
}

// Config configures a Logger.
type Config struct {
	Level  string
	Prefix string
	Output io.Writer
}

func DefaultConfig() *Config {
	return &Config{Level: "info", Output: os.Stderr}
}

func New(cfg *Config) *Logger {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	output := cfg.Output
	if output == nil {
		output = os.Stderr
	}
	l := log.NewWithOptions(output, log.Options{
		ReportTimestamp: true,
		TimeFormat:      time.TimeOnly,
		Prefix:          cfg.Prefix,
	})
	l.SetLevel(ParseLevel(cfg.Level))
	return &Logger{Logger: l}
}

func ParseLevel(level string) Level {
	switch strings.ToLower(level) {
	case "debug":
		return DebugLevel
	case "warn", "warning":
		return WarnLevel
	case "error":
		return ErrorLevel
	default:
		return InfoLevel
	}
}

// Component returns a logger carrying the given subsystem name as a prefix,
// used by the engine to tag messages as "gc", "visibility", and so on.
func (l *Logger) Component(name string) *Logger {
	sub := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		TimeFormat:      time.TimeOnly,
		Prefix:          name,
	})
	sub.SetLevel(l.GetLevel())
	return &Logger{Logger: sub}
}

var noop = New(&Config{Level: "error", Output: io.Discard})

// Noop returns a logger that discards everything, used as the zero-value
// fallback when an Engine is built without an explicit logger.
func Noop() *Logger { return noop }
