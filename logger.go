package matchengine

import (
	"context"
	"io"
	"log/slog"
	"os"
)

// Logger wraps slog.Logger with engine-specific helpers.
// This provides structured logging with consistent field names.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a new Logger with the given handler.
// If handler is nil, uses default text handler to stderr.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewJSONLogger creates a Logger that outputs JSON-formatted logs.
func NewJSONLogger(level slog.Level) *Logger {
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NoopLogger creates a Logger that discards all log output.
func NoopLogger() *Logger {
	return &Logger{
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

// WithKind tags the logger with the engine's record kind (e.g. "job").
func (l *Logger) WithKind(kind string) *Logger {
	return &Logger{
		Logger: l.Logger.With("kind", kind),
	}
}

// LogIndex logs an index (upsert) operation.
func (l *Logger) LogIndex(ctx context.Context, key string, size int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "index failed",
			"key", key,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "index completed",
			"key", key,
			"size", size,
		)
	}
}

// LogDelete logs a delete operation.
func (l *Logger) LogDelete(ctx context.Context, key string, found bool, err error) {
	if err != nil {
		l.ErrorContext(ctx, "delete failed",
			"key", key,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "delete completed",
			"key", key,
			"found", found,
		)
	}
}

// LogSearch logs a search operation.
func (l *Logger) LogSearch(ctx context.Context, topK, results int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "search failed",
			"top_k", topK,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "search completed",
			"top_k", topK,
			"results", results,
		)
	}
}

// LogRebuild logs an index rebuild.
func (l *Logger) LogRebuild(ctx context.Context, count int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "rebuild failed",
			"count", count,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "rebuild completed",
			"count", count,
		)
	}
}

// LogFlush logs a persistence flush.
func (l *Logger) LogFlush(ctx context.Context, count int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "flush failed",
			"count", count,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "flush completed",
			"count", count,
		)
	}
}

// LogLoad logs a startup restore.
func (l *Logger) LogLoad(ctx context.Context, count int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "load failed",
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "load completed",
			"count", count,
		)
	}
}
