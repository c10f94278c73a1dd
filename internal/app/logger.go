package app

import (
	"io"
	"log/slog"
)

// newLogger builds the application's isolated slog.Logger. The level string
// comes pre-validated from the CLI; anything unparseable falls back to Info
// so a misconfigured embedder still gets logs. The global logger is never
// touched.
func newLogger(levelStr, formatStr string, outW io.Writer) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(levelStr)); err != nil {
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if formatStr == "json" {
		return slog.New(slog.NewJSONHandler(outW, opts))
	}
	return slog.New(slog.NewTextHandler(outW, opts))
}
