package core

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

// Logger provides structured logging for the relay and its features
type Logger struct {
	*slog.Logger
	level    *slog.LevelVar
	mu       *sync.Mutex
	features map[string]*slog.Logger
}

// NewLogger creates a new logger instance writing to stdout
func NewLogger() *Logger {
	return NewLoggerWithWriter(os.Stdout, slog.LevelInfo)
}

// NewLoggerWithWriter creates a logger that writes text records to w
func NewLoggerWithWriter(w io.Writer, level slog.Level) *Logger {
	lv := new(slog.LevelVar)
	lv.Set(level)

	handler := slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: lv,
	})

	return &Logger{
		Logger:   slog.New(handler),
		level:    lv,
		mu:       &sync.Mutex{},
		features: make(map[string]*slog.Logger),
	}
}

// ForFeature returns a logger specific to a feature
func (l *Logger) ForFeature(featureName string) *Logger {
	l.mu.Lock()
	defer l.mu.Unlock()

	featureLogger, exists := l.features[featureName]
	if !exists {
		featureLogger = l.Logger.With("feature", featureName)
		l.features[featureName] = featureLogger
	}

	return l.derive(featureLogger)
}

// ForComponent returns a logger tagged with a component name
func (l *Logger) ForComponent(component string) *Logger {
	return l.derive(l.Logger.With("component", component))
}

// WithContext returns a logger carrying the run id stored in ctx, if any
func (l *Logger) WithContext(ctx context.Context) *Logger {
	if ctx == nil {
		return l
	}

	if runID, ok := RunIDFromContext(ctx); ok {
		return l.derive(l.Logger.With("run_id", runID))
	}

	return l
}

// With returns a logger with additional attributes
func (l *Logger) With(args ...any) *Logger {
	return l.derive(l.Logger.With(args...))
}

// SetLevel sets the logging level for this logger and every logger derived from it
func (l *Logger) SetLevel(level slog.Level) {
	l.level.Set(level)
}

func (l *Logger) derive(inner *slog.Logger) *Logger {
	return &Logger{
		Logger:   inner,
		level:    l.level,
		mu:       l.mu,
		features: l.features,
	}
}

// ParseLevel converts a level name into a slog level
func ParseLevel(name string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", name)
	}
}

type runIDKey struct{}

// ContextWithRunID stores a poll run id in ctx
func ContextWithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, runIDKey{}, runID)
}

// RunIDFromContext extracts the poll run id from ctx
func RunIDFromContext(ctx context.Context) (string, bool) {
	runID, ok := ctx.Value(runIDKey{}).(string)
	return runID, ok && runID != ""
}
