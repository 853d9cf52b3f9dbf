package logger

import (
	"log/slog"
	"os"
)

var Logger *slog.Logger

// Init sets up the global logger. Debug mode enables verbose output.
func Init(debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	Logger = slog.New(slog.NewTextHandler(os.Stdout, opts))
	slog.SetDefault(Logger)
}

func Info(msg string, args ...any) {
	logger().Info(msg, args...)
}

func Error(msg string, args ...any) {
	logger().Error(msg, args...)
}

func Debug(msg string, args ...any) {
	logger().Debug(msg, args...)
}

func Warn(msg string, args ...any) {
	logger().Warn(msg, args...)
}

func logger() *slog.Logger {
	if Logger == nil {
		Init(os.Getenv("DEBUG") == "true")
	}
	return Logger
}
