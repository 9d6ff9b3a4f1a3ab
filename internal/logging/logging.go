// Package logging builds the zerolog logger shared by every component.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Levels accepted by ParseLevel.
var Levels = []string{"trace", "debug", "info", "warn", "error", "disabled"}

// ParseLevel maps a config value to a zerolog level. Empty means fallback.
func ParseLevel(s string, fallback zerolog.Level) (zerolog.Level, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return fallback, nil
	}
	lvl, err := zerolog.ParseLevel(s)
	if err != nil || s == "fatal" || s == "panic" {
		return fallback, fmt.Errorf("invalid log level %q (valid: %s)", s, strings.Join(Levels, ", "))
	}
	return lvl, nil
}

// New returns a logger writing to w at lvl. Terminals get the human-readable
// console format; anything else gets JSON lines.
func New(w io.Writer, lvl zerolog.Level) zerolog.Logger {
	if f, ok := w.(*os.File); ok && isatty.IsTerminal(f.Fd()) {
		w = zerolog.ConsoleWriter{Out: f, TimeFormat: time.TimeOnly}
	}
	return zerolog.New(w).Level(lvl).With().Timestamp().Logger()
}

// Setup builds the stderr logger and installs it as the global log.Logger.
func Setup(level string, fallback zerolog.Level) (zerolog.Logger, error) {
	lvl, err := ParseLevel(level, fallback)
	logger := New(os.Stderr, lvl)
	log.Logger = logger
	return logger, err
}
