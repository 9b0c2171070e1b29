package laketesting

import (
	"log/slog"
	"os"
)

// NewLogger returns a test logger that stays quiet unless DEBUG is set to 1
// (info) or 2 (debug).
func NewLogger() *slog.Logger {
	var level slog.Level
	switch os.Getenv("DEBUG") {
	case "2":
		level = slog.LevelDebug
	case "1":
		level = slog.LevelInfo
	default:
		level = slog.LevelError
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
