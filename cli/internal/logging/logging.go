package logging

import (
	"io"
	"log/slog"
	"os"
)

// Init installs the default logger on stderr. Errors only unless LOG_LEVEL
// says otherwise, so logs stay out of the way of the terminal UI.
func Init() {
	slog.SetDefault(New(os.Stderr, os.Getenv("LOG_LEVEL")))
}

// New returns a text logger writing to w at the level named by level.
func New(w io.Writer, level string) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: Level(level)}))
}

// Level maps LOG_LEVEL values to slog levels.
func Level(name string) slog.Level {
	switch name {
	case "dev", "development", "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	default:
		return slog.LevelError
	}
}
