package openke

import (
	"context"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/lzw429/OpenKE-Embedding-Service/model"
)

// Logger wraps slog.Logger with service-specific context.
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

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
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

// WithKind adds a kind field to the logger.
func (l *Logger) WithKind(kind model.Kind) *Logger {
	return &Logger{
		Logger: l.Logger.With("kind", kind.String()),
	}
}

// LogTable logs the outcome of parsing one source table.
func (l *Logger) LogTable(ctx context.Context, file string, rows, malformed int, err error) {
	switch {
	case err != nil:
		l.ErrorContext(ctx, "table load failed",
			"file", file,
			"error", err,
		)
	case malformed > 0:
		l.WarnContext(ctx, "table loaded with malformed rows",
			"file", file,
			"rows", rows,
			"malformed", malformed,
		)
	default:
		l.DebugContext(ctx, "table loaded",
			"file", file,
			"rows", rows,
		)
	}
}

// LogLoad logs the outcome of opening a dataset.
func (l *Logger) LogLoad(ctx context.Context, stats Stats, duration time.Duration, err error) {
	if err != nil {
		l.ErrorContext(ctx, "dataset load failed",
			"duration", duration,
			"error", err,
		)
		return
	}
	l.InfoContext(ctx, "dataset loaded",
		"entities", stats.Entities,
		"relations", stats.Relations,
		"entity_vectors", stats.EntityVectors,
		"relation_vectors", stats.RelationVectors,
		"triples", stats.Triples,
		"entity_dimension", stats.EntityDimension,
		"relation_dimension", stats.RelationDimension,
		"duration", duration,
	)
}

// LogMiss logs a degraded lookup that substituted a default value.
func (l *Logger) LogMiss(ctx context.Context, op string, err error) {
	l.DebugContext(ctx, "lookup miss substituted",
		"op", op,
		"error", err,
	)
}

// LogSubgraph logs a subgraph build.
func (l *Logger) LogSubgraph(ctx context.Context, triples, entities, dropped int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "subgraph build failed",
			"op", OpSubgraph,
			"triples", triples,
			"error", err,
		)
		return
	}
	if dropped > 0 {
		l.WarnContext(ctx, "subgraph built with unresolved answers",
			"op", OpSubgraph,
			"triples", triples,
			"entities", entities,
			"dropped_answers", dropped,
		)
		return
	}
	l.DebugContext(ctx, "subgraph built",
		"op", OpSubgraph,
		"triples", triples,
		"entities", entities,
	)
}
