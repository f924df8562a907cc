// Package log builds the process slog.Logger and the raw frame logger.
//
// Without a log file, records below error go to stdout and errors go to
// stderr, so stderr can be redirected on its own. With a log file, console
// output goes to stderr and the file receives a copy of every record.
package log

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
)

// LevelTrace is below Debug and enables raw frame logging.
const LevelTrace slog.Level = -8

// Levels lists the accepted level names, for help texts and enums.
const Levels = "trace,debug,info,warn,error"

func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace":
		return LevelTrace
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

// fanout sends every record to all handlers that accept its level.
type fanout []slog.Handler

func (f fanout) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range f {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (f fanout) Handle(ctx context.Context, r slog.Record) error {
	for _, h := range f {
		if h.Enabled(ctx, r.Level) {
			_ = h.Handle(ctx, r.Clone())
		}
	}
	return nil
}

func (f fanout) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make(fanout, len(f))
	for i, h := range f {
		out[i] = h.WithAttrs(attrs)
	}
	return out
}

func (f fanout) WithGroup(name string) slog.Handler {
	out := make(fanout, len(f))
	for i, h := range f {
		out[i] = h.WithGroup(name)
	}
	return out
}

// below passes only records under max to h.
type below struct {
	max slog.Level
	h   slog.Handler
}

func (b below) Enabled(ctx context.Context, level slog.Level) bool {
	return level < b.max && b.h.Enabled(ctx, level)
}

func (b below) Handle(ctx context.Context, r slog.Record) error { return b.h.Handle(ctx, r) }

func (b below) WithAttrs(attrs []slog.Attr) slog.Handler {
	return below{max: b.max, h: b.h.WithAttrs(attrs)}
}

func (b below) WithGroup(name string) slog.Handler {
	return below{max: b.max, h: b.h.WithGroup(name)}
}

// NewHandler builds the console handler pair for the given writers.
func NewHandler(stdout, stderr io.Writer, level slog.Level) slog.Handler {
	errLevel := max(level, slog.LevelError)
	return fanout{
		below{max: slog.LevelError, h: slog.NewTextHandler(stdout, &slog.HandlerOptions{Level: level})},
		slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: errLevel}),
	}
}

// SetupLogger builds the process logger. The returned closers must be closed on exit.
func SetupLogger(logLevel, logFile string) (*slog.Logger, []io.Closer, error) {
	level := ParseLevel(logLevel)
	if logFile == "" {
		return slog.New(NewHandler(os.Stdout, os.Stderr, level)), nil, nil
	}

	f, err := os.OpenFile(logFile, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, nil, err
	}
	h := fanout{
		slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}),
		slog.NewTextHandler(f, &slog.HandlerOptions{Level: level}),
	}
	return slog.New(h), []io.Closer{f}, nil
}
