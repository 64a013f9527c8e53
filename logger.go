package topiccache

import (
	"context"
	"log/slog"
	"os"

	"github.com/hupe1980/topiccache/model"
)

// Logger wraps slog.Logger with cache-specific context.
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
// level sets the minimum log level (e.g., slog.LevelDebug, slog.LevelInfo).
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
// Use this to disable logging entirely.
func NoopLogger() *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.Level(1000), // Unreachable level
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// WithTopic adds the topic key field to the logger.
func (l *Logger) WithTopic(key model.TopicKey) *Logger {
	return &Logger{
		Logger: l.Logger.With("topic", key.String()),
	}
}

// LogLookup logs a lookup operation.
func (l *Logger) LogLookup(ctx context.Context, key model.TopicKey, hit bool, tier model.Tier) {
	if hit {
		l.DebugContext(ctx, "lookup hit",
			"topic", key.String(),
			"tier", tier.String(),
		)
	} else {
		l.DebugContext(ctx, "lookup miss",
			"topic", key.String(),
		)
	}
}

// LogInsert logs an insert operation.
func (l *Logger) LogInsert(ctx context.Context, key model.TopicKey, evicted int) {
	l.DebugContext(ctx, "insert completed",
		"topic", key.String(),
		"evicted", evicted,
	)
}

// LogTransition logs a tier transition.
func (l *Logger) LogTransition(ctx context.Context, key model.TopicKey, from, to model.Tier, score float64) {
	l.InfoContext(ctx, "tier transition",
		"topic", key.String(),
		"from", from.String(),
		"to", to.String(),
		"score", score,
	)
}

// LogEviction logs a permanent removal from the cache.
func (l *Logger) LogEviction(ctx context.Context, key model.TopicKey, score float64) {
	l.InfoContext(ctx, "entry evicted",
		"topic", key.String(),
		"score", score,
	)
}

// LogLoad logs the startup snapshot load.
func (l *Logger) LogLoad(ctx context.Context, hot, warm, cold int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "snapshot load failed",
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "snapshot loaded",
			"hot", hot,
			"warm", warm,
			"cold", cold,
		)
	}
}

// LogReload logs an emergency reload triggered by an invariant violation.
func (l *Logger) LogReload(ctx context.Context, cause error, err error) {
	if err != nil {
		l.ErrorContext(ctx, "emergency reload failed",
			"cause", cause,
			"error", err,
		)
	} else {
		l.WarnContext(ctx, "emergency reload completed",
			"cause", cause,
		)
	}
}
