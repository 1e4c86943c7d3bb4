package logger

import (
	"io"
	"log/slog"
	"os"
)

func New(env, service string) *slog.Logger {
	return NewWithWriter(os.Stdout, env, service)
}

func NewWithWriter(w io.Writer, env, service string) *slog.Logger {
	level := slog.LevelInfo
	if env == "dev" {
		level = slog.LevelDebug
	}
	h := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
	return slog.New(h).With("service", service, "env", env)
}

// Discard is used where a logger is required but output is not wanted (tests, tools).
func Discard() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}
