// Package logging installs the process-wide slog logger.
package logging

import (
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/log"
)

// Setup makes a charmbracelet/log handler the slog default. Production
// output is JSON so log collectors can parse it; development output is text.
// Unknown levels fall back to info.
func Setup(w io.Writer, level, environment string) *slog.Logger {
	lvl, err := log.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil {
		lvl = log.InfoLevel
	}

	formatter := log.TextFormatter
	if strings.EqualFold(environment, "production") {
		formatter = log.JSONFormatter
	}

	handler := log.NewWithOptions(w, log.Options{
		Level:           lvl,
		TimeFormat:      time.RFC3339,
		ReportTimestamp: true,
		TimeFunction:    log.NowUTC,
		Formatter:       formatter,
	})

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}
