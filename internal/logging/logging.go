package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Config contains logging configuration.
type Config struct {
	// Level is the minimum log level (debug, info, warn, error).
	Level string
	// Format is "json" (default) or "text".
	Format string
	// FilePath enables a rotating log file. Empty means stderr only.
	FilePath string
	// MaxSizeMB is the size in MB that triggers rotation (default: 10).
	MaxSizeMB int
	// MaxFiles is the number of rotated files kept (default: 5).
	MaxFiles int
	// Stderr also writes to stderr when a file is set.
	Stderr bool
}

// DefaultConfig returns info-level JSON logs on stderr.
func DefaultConfig() Config {
	return Config{
		Level:     "info",
		Format:    "json",
		MaxSizeMB: 10,
		MaxFiles:  5,
		Stderr:    true,
	}
}

// DebugConfig returns debug-level logs on stderr and in the default log file.
func DebugConfig() Config {
	cfg := DefaultConfig()
	cfg.Level = "debug"
	cfg.FilePath = DefaultLogPath()
	return cfg
}

// Setup builds a logger for cfg. The returned cleanup closes the log file.
func Setup(cfg Config) (*slog.Logger, func(), error) {
	var out io.Writer = os.Stderr
	cleanup := func() {}

	if cfg.FilePath != "" {
		w, err := NewRotatingWriter(cfg.FilePath, cfg.MaxSizeMB, cfg.MaxFiles)
		if err != nil {
			return nil, nil, err
		}
		out = w
		if cfg.Stderr {
			out = io.MultiWriter(w, os.Stderr)
		}
		cleanup = func() { _ = w.Close() }
	}

	return slog.New(newHandler(out, cfg)), cleanup, nil
}

// SetupDefault builds a logger for cfg and installs it as the slog default.
func SetupDefault(cfg Config) (func(), error) {
	logger, cleanup, err := Setup(cfg)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(logger)
	return cleanup, nil
}

func newHandler(w io.Writer, cfg Config) slog.Handler {
	opts := &slog.HandlerOptions{Level: LevelFromString(cfg.Level)}
	if strings.EqualFold(cfg.Format, "text") {
		return slog.NewTextHandler(w, opts)
	}
	return slog.NewJSONHandler(w, opts)
}

// LevelFromString converts a level name to slog.Level. Unknown names are info.
func LevelFromString(level string) slog.Level {
	switch strings.ToLower(level) {
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

// Discard returns a logger that drops everything.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
