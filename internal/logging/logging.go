// Package logging builds the process slog logger.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Rotation defaults for file output.
const (
	maxSizeMB  = 50
	maxBackups = 5
	maxAgeDays = 14
)

// Options configures New.
type Options struct {
	Level  string // debug, info, warn, error
	Format string // text or json
	File   string // empty writes to Output
	Output io.Writer
}

// ParseLevel maps a level name to a slog.Level. Accepts debug, info,
// warn/warning and error, case-insensitive; empty means info.
func ParseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level: %s", level)
	}
}

// New creates a logger from opts. The returned close function releases the
// log file, if any, and is always safe to call.
func New(opts Options) (*slog.Logger, func() error, error) {
	level, err := ParseLevel(opts.Level)
	if err != nil {
		return nil, nil, err
	}

	closeFn := func() error { return nil }

	var w io.Writer = os.Stderr
	if opts.Output != nil {
		w = opts.Output
	}

	if opts.File != "" {
		// lumberjack doesn't create directories
		if dir := filepath.Dir(opts.File); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, nil, fmt.Errorf("failed to create log directory %s: %w", dir, err)
			}
		}
		lj := &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    maxSizeMB,
			MaxBackups: maxBackups,
			MaxAge:     maxAgeDays,
		}
		w = lj
		closeFn = lj.Close
	}

	handlerOpts := &slog.HandlerOptions{Level: level}

	var h slog.Handler
	switch strings.ToLower(opts.Format) {
	case "", "text":
		h = slog.NewTextHandler(w, handlerOpts)
	case "json":
		h = slog.NewJSONHandler(w, handlerOpts)
	default:
		closeFn()
		return nil, nil, fmt.Errorf("unknown log format: %s", opts.Format)
	}

	return slog.New(h), closeFn, nil
}

// Discard returns a logger that drops everything. Used by tests and by
// components constructed without a logger.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError + 1}))
}
