package main

import (
	"log/slog"
	"os"

	"golang.org/x/term"
)

// newLogger builds the process logger. With format "auto" a terminal gets
// the text handler and anything else (files, pipes, CI) gets JSON.
func newLogger(w *os.File, level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(level)}

	if format == "auto" {
		format = "json"
		if term.IsTerminal(int(w.Fd())) { //nolint:gosec // G115: file descriptors fit in int
			format = "text"
		}
	}

	if format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func parseLevel(level string) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return slog.LevelInfo
	}
	return l
}
