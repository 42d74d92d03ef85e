// Package logging builds the process logger: human-readable text on
// stderr plus JSON to a file, fanned out so operators can watch a run live
// while keeping a machine-parseable record.
package logging

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	slogmulti "github.com/samber/slog-multi"
)

// ParseLevel maps a config string to a slog level, defaulting to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// New returns the dual-output logger and a cleanup function closing the
// log file. If the file cannot be opened the logger degrades to
// stderr-only rather than failing the run.
func New(file string, level slog.Level) (*slog.Logger, func() error) {
	stderr := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	if file == "" {
		return slog.New(stderr), func() error { return nil }
	}

	if err := os.MkdirAll(filepath.Dir(file), 0o755); err != nil {
		slog.New(stderr).Warn("log directory unavailable, stderr only", "err", err)
		return slog.New(stderr), func() error { return nil }
	}
	f, err := os.OpenFile(file, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		slog.New(stderr).Warn("log file unavailable, stderr only", "err", err, "file", file)
		return slog.New(stderr), func() error { return nil }
	}

	json := slog.NewJSONHandler(f, &slog.HandlerOptions{Level: level})
	return slog.New(slogmulti.Fanout(stderr, json)), f.Close
}

// NewWithWriters builds the same fanout over arbitrary writers. Test hook.
func NewWithWriters(text, json io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slogmulti.Fanout(
		slog.NewTextHandler(text, &slog.HandlerOptions{Level: level}),
		slog.NewJSONHandler(json, &slog.HandlerOptions{Level: level}),
	))
}
