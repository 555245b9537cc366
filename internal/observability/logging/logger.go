// Package logging provides structured logging utilities using the standard library's log/slog package.
// It offers helper functions for creating loggers with consistent configuration and context propagation.
package logging

import (
	"context"
	"io"
	"log/slog"
	"time"
)

// LevelTrace is one step below debug. Entry dumps are logged here.
const LevelTrace = slog.Level(-8)

// Verbosity bounds. 1 is errors only, 5 is trace.
const (
	MinVerbosity     = 1
	MaxVerbosity     = 5
	DefaultVerbosity = 3
)

// ClampVerbosity rounds v into [MinVerbosity, MaxVerbosity].
func ClampVerbosity(v int) int {
	if v < MinVerbosity {
		return MinVerbosity
	}
	if v > MaxVerbosity {
		return MaxVerbosity
	}
	return v
}

// LevelForVerbosity maps a verbosity number to the slog level it enables.
//
//	1 error, 2 warn, 3 info, 4 debug, 5 trace
func LevelForVerbosity(v int) slog.Level {
	switch ClampVerbosity(v) {
	case 1:
		return slog.LevelError
	case 2:
		return slog.LevelWarn
	case 3:
		return slog.LevelInfo
	case 4:
		return slog.LevelDebug
	default:
		return LevelTrace
	}
}

// Options configures NewLogger.
type Options struct {
	// Verbosity is clamped to [MinVerbosity, MaxVerbosity]. Zero means DefaultVerbosity.
	Verbosity int
	// Format is "json" or "text". Anything else is text.
	Format string
}

// NewLogger creates a structured logger writing to w.
// Each line carries a timestamp and level; trace lines are labelled TRACE.
func NewLogger(w io.Writer, opts Options) *slog.Logger {
	verbosity := opts.Verbosity
	if verbosity == 0 {
		verbosity = DefaultVerbosity
	}
	level := LevelForVerbosity(verbosity)

	handlerOpts := &slog.HandlerOptions{
		Level: level,
		// Add source code location when debugging
		AddSource:   level <= slog.LevelDebug,
		ReplaceAttr: replaceLevelName,
	}

	var handler slog.Handler
	if opts.Format == "json" {
		handler = slog.NewJSONHandler(w, handlerOpts)
	} else {
		handler = slog.NewTextHandler(w, handlerOpts)
	}
	return slog.New(handler)
}

func replaceLevelName(_ []string, a slog.Attr) slog.Attr {
	if a.Key != slog.LevelKey {
		return a
	}
	if level, ok := a.Value.Any().(slog.Level); ok && level <= LevelTrace {
		a.Value = slog.StringValue("TRACE")
	}
	return a
}

// Discard returns a logger that drops everything. Useful in tests.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError + 1}))
}

// Trace logs msg at LevelTrace.
func Trace(ctx context.Context, logger *slog.Logger, msg string, args ...any) {
	logger.Log(ctx, LevelTrace, msg, args...)
}

// WithRunID returns a new logger tagged with the sync run ID.
func WithRunID(logger *slog.Logger, runID string) *slog.Logger {
	if runID == "" {
		return logger
	}
	return logger.With(slog.String("run_id", runID))
}

// WithFeed returns a new logger tagged with the feed being processed.
func WithFeed(logger *slog.Logger, feed string) *slog.Logger {
	return logger.With(slog.String("feed", feed))
}

// Timed runs fn and logs its start and end at debug level with the elapsed time.
func Timed[T any](ctx context.Context, logger *slog.Logger, msg string, fn func() (T, error)) (T, error) {
	start := time.Now()
	logger.DebugContext(ctx, "TIME START", slog.String("op", msg))
	defer func() {
		logger.DebugContext(ctx, "TIME END",
			slog.String("op", msg),
			slog.Duration("elapsed", time.Since(start)))
	}()
	return fn()
}

// FromContext retrieves the logger from the context, or returns the default logger if not found.
// This enables passing loggers through the application via context.
func FromContext(ctx context.Context) *slog.Logger {
	if logger, ok := ctx.Value(loggerContextKey).(*slog.Logger); ok {
		return logger
	}
	return slog.Default()
}

// LoggerFromContext is FromContext without the default fallback.
func LoggerFromContext(ctx context.Context) (*slog.Logger, bool) {
	logger, ok := ctx.Value(loggerContextKey).(*slog.Logger)
	return logger, ok
}

// WithLogger adds a logger to the context.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerContextKey, logger)
}

type contextKey string

const loggerContextKey contextKey = "logger"
