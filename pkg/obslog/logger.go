package obslog

import (
	"fmt"
	"io"
	"log/slog"
	"os"
)

// Config controls the pipeline's single logger instance.
type Config struct {
	// Level is "debug", "info", "warn", or "error". Empty means "info".
	Level string
	// Format is "text" or "json". Empty means "text".
	Format string
	// AddSource includes file:line in each record.
	AddSource bool
	// Writer defaults to os.Stderr.
	Writer io.Writer
}

// New builds a *slog.Logger per cfg. Component-scoped children are
// ordinary slog.Logger.With("component", name) calls — no separate
// type is needed for that.
func New(cfg Config) (*slog.Logger, error) {
	level, err := parseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}

	writer := cfg.Writer
	if writer == nil {
		writer = os.Stderr
	}

	opts := &slog.HandlerOptions{Level: level, AddSource: cfg.AddSource}

	var handler slog.Handler
	switch cfg.Format {
	case "json":
		handler = slog.NewJSONHandler(writer, opts)
	case "text", "":
		handler = slog.NewTextHandler(writer, opts)
	default:
		return nil, fmt.Errorf("obslog: unknown format %q", cfg.Format)
	}

	return slog.New(handler), nil
}

func parseLevel(s string) (slog.Level, error) {
	switch s {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("obslog: unknown level %q", s)
	}
}
