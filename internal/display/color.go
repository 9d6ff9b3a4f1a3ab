// Package display provides terminal styling for the salah-times CLI using
// raw ANSI escape codes.
//
// It respects the NO_COLOR environment variable (https://no-color.org/) and
// disables colors when stdout is not a terminal.
package display

import (
	"fmt"
	"os"

	"github.com/mattn/go-isatty"
)

// ANSI escape codes for styling.
const (
	reset  = "\033[0m"
	bold   = "\033[1m"
	dim    = "\033[2m"
	red    = "\033[31m"
	green  = "\033[32m"
	yellow = "\033[33m"
	cyan   = "\033[36m"
	fgGray = "\033[90m" // bright black = gray
)

var enabled = shouldEnable()

func shouldEnable() bool {
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return false
	}
	if _, ok := os.LookupEnv("FORCE_COLOR"); ok {
		return true
	}
	fd := os.Stdout.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// SetEnabled overrides the auto-detected color state.
// --json and the watch loop on a pipe force plain output.
func SetEnabled(b bool) {
	enabled = b
}

// Enabled reports whether color output is currently active.
func Enabled() bool {
	return enabled
}

func wrap(code, text string) string {
	if !enabled {
		return text
	}
	return code + text + reset
}

// Bold returns text rendered in bold.
func Bold(text string) string { return wrap(bold, text) }

// Dim returns text rendered faint.
func Dim(text string) string { return wrap(dim, text) }

// Red returns text rendered in red.
func Red(text string) string { return wrap(red, text) }

// Green returns text rendered in green.
func Green(text string) string { return wrap(green, text) }

// Yellow returns text rendered in yellow.
func Yellow(text string) string { return wrap(yellow, text) }

// Cyan returns text rendered in cyan.
func Cyan(text string) string { return wrap(cyan, text) }

// Gray returns text rendered in gray (bright black).
func Gray(text string) string { return wrap(fgGray, text) }

// Accent returns text rendered in the accent color (cyan + bold).
// Used for the "next prayer" highlight.
func Accent(text string) string {
	if !enabled {
		return text
	}
	return bold + cyan + text + reset
}

// Boldf formats and bolds a string.
func Boldf(format string, a ...interface{}) string {
	return Bold(fmt.Sprintf(format, a...))
}

// SourceBadge labels where a schedule came from: green for a fresh remote
// schedule, yellow for a stale or offline one, red when there is no data.
func SourceBadge(source string, stale bool) string {
	switch {
	case source == "none" || source == "":
		return Red("[no data]")
	case source == "offline":
		return Yellow("[offline estimate]")
	case stale:
		return Yellow("[" + source + ", stale]")
	default:
		return Green("[" + source + "]")
	}
}
