// Package logging installs the process-wide slog handler.
package logging

import (
	"io"
	"log/slog"
	"time"

	"github.com/charmbracelet/log"
)

// New returns a slog logger writing human-readable lines to w; verbose
// enables debug records.
func New(w io.Writer, verbose bool) *slog.Logger {
	level := log.InfoLevel
	if verbose {
		level = log.DebugLevel
	}
	handler := log.NewWithOptions(w, log.Options{
		Level:           level,
		ReportTimestamp: true,
		TimeFormat:      time.TimeOnly,
		Prefix:          "gitlanes",
	})
	return slog.New(handler)
}

// Setup makes New(w, verbose) the default logger.
func Setup(w io.Writer, verbose bool) {
	slog.SetDefault(New(w, verbose))
}
