package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
)

// LogLevel is the verbosity configured via logging.level (or -log-level).
type LogLevel string

const (
	LogLevelError LogLevel = "error"
	LogLevelWarn  LogLevel = "warn"
	LogLevelInfo  LogLevel = "info"
	LogLevelDebug LogLevel = "debug"
)

var slogLevels = map[LogLevel]slog.Level{
	LogLevelError: slog.LevelError,
	LogLevelWarn:  slog.LevelWarn,
	LogLevelInfo:  slog.LevelInfo,
	LogLevelDebug: slog.LevelDebug,
}

// parseLogLevel normalizes a config or flag string into a LogLevel.
func parseLogLevel(level string) (LogLevel, error) {
	l := LogLevel(strings.ToLower(level))
	if l == "warning" {
		l = LogLevelWarn
	}
	if _, ok := slogLevels[l]; !ok {
		return "", fmt.Errorf("invalid log level: %s (must be error, warn, info, or debug)", level)
	}
	return l, nil
}

// setupLogger builds the daemon-wide text logger. The channel workers derive
// their own loggers from it with With("channel", ...), so the channel shows
// up on every playback line.
func setupLogger(level LogLevel) *slog.Logger {
	lvl, ok := slogLevels[level]
	if !ok {
		lvl = slog.LevelInfo
	}
	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	return slog.New(handler)
}
