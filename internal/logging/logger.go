// Package logging builds the slog loggers used across authtree.
package logging

import (
	"io"
	"log/slog"
)

// NewWriter returns a text logger on w. Commands pass stderr, leaving stdout to
// their output and interactive prompts. Attributes named "error" are written as
// "err" so every component reports failures under one key.
func NewWriter(w io.Writer, level slog.Leveler) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: renameError,
	}))
}

// NewNop returns a logger that drops every record.
func NewNop() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func renameError(_ []string, a slog.Attr) slog.Attr {
	if a.Key == "error" {
		a.Key = "err"
	}
	return a
}
