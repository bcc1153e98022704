package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/lmittmann/tint"
)

// Configure installs the process-wide default logger.
func Configure(levelStr string, env string) *slog.Logger {
	l := New(os.Stdout, levelStr, env)
	slog.SetDefault(l)
	return l
}

// New builds a logger writing to w. Development environments get colored
// tint output, everything else gets JSON lines.
func New(w io.Writer, levelStr string, env string) *slog.Logger {
	level := ParseLevel(levelStr)

	var handler slog.Handler
	if isDev(env) {
		handler = tint.NewHandler(w, &tint.Options{Level: level})
	} else {
		handler = slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
	}
	return slog.New(handler)
}

func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func isDev(env string) bool {
	switch strings.ToLower(env) {
	case "dev", "development":
		return true
	}
	return false
}
