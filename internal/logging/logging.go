// Package logging provides the structured logger shared by every
// subsystem of the gateway. It mirrors the tracing-subscriber setup of
// the original Rust project: human-readable console output on a TTY,
// structured JSON otherwise.
package logging

import (
	"io"
	"os"
	"sync"

	"github.com/rs/zerolog"
)

var (
	once   sync.Once
	logger zerolog.Logger
)

// Get returns the process-wide logger, initializing it on first use.
func Get() zerolog.Logger {
	once.Do(func() {
		zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
		var w io.Writer = os.Stderr
		if isTerminal(os.Stderr) {
			w = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}
		}
		level := zerolog.InfoLevel
		if lvl, err := zerolog.ParseLevel(os.Getenv("LOG_LEVEL")); err == nil {
			level = lvl
		}
		logger = zerolog.New(w).Level(level).With().Timestamp().Caller().Logger()
	})
	return logger
}

// Named returns a logger with a "component" field set, the idiom used
// throughout this repo instead of ad-hoc fmt.Printf prefixes.
func Named(component string) zerolog.Logger {
	return Get().With().Str("component", component).Logger()
}

func isTerminal(f *os.File) bool {
	fi, err := f.Stat()
	if err != nil {
		return false
	}
	return (fi.Mode() & os.ModeCharDevice) != 0
}
