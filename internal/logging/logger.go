// Package logging provides the diagnostic and audit logger for sshcheck.
//
// The logger travels on the context. Code that has no logger attached gets
// a no-op implementation, so library packages log unconditionally.
package logging

import (
	"context"
	"io"
	"os"

	"github.com/google/uuid"
)

// Logger writes leveled diagnostics and named audit events.
type Logger interface {
	Debug(component, msg string, fields ...any)
	Info(component, msg string, fields ...any)
	Warn(component, msg string, fields ...any)
	Error(component, msg string, fields ...any)
	Event(ctx context.Context, event string, fields map[string]any)
	Close() error
}

type loggerKey struct{}

type runIDKey struct{}

// WithLogger attaches l to ctx.
func WithLogger(ctx context.Context, l Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, l)
}

// From returns the logger on ctx, or a no-op logger.
func From(ctx context.Context) Logger {
	if l, ok := ctx.Value(loggerKey{}).(Logger); ok {
		return l
	}
	return &noopLogger{}
}

// WithRunID tags ctx with a fresh run identifier. Call once per invocation.
func WithRunID(ctx context.Context) context.Context {
	return context.WithValue(ctx, runIDKey{}, uuid.NewString())
}

// RunID returns the run identifier on ctx, or "".
func RunID(ctx context.Context) string {
	if id, ok := ctx.Value(runIDKey{}).(string); ok {
		return id
	}
	return ""
}

// NewLogger builds a logger from cfg.
func NewLogger(cfg Config) (Logger, error) {
	var w io.Writer
	var closer io.Closer

	if cfg.Output == "" || cfg.Output == "stderr" {
		w = os.Stderr
	} else {
		f, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
		if err != nil {
			return nil, err
		}
		w = f
		closer = f
	}

	if cfg.Format == FormatJSONL {
		return &jsonlLogger{
			writer:   w,
			closer:   closer,
			minLevel: levelPriority(cfg.Level),
		}, nil
	}

	return &textLogger{
		writer:   w,
		closer:   closer,
		minLevel: levelPriority(cfg.Level),
	}, nil
}

// Tee fans every call out to each logger.
func Tee(loggers ...Logger) Logger {
	return multiLogger(loggers)
}

type multiLogger []Logger

func (m multiLogger) Debug(component, msg string, fields ...any) {
	for _, l := range m {
		l.Debug(component, msg, fields...)
	}
}

func (m multiLogger) Info(component, msg string, fields ...any) {
	for _, l := range m {
		l.Info(component, msg, fields...)
	}
}

func (m multiLogger) Warn(component, msg string, fields ...any) {
	for _, l := range m {
		l.Warn(component, msg, fields...)
	}
}

func (m multiLogger) Error(component, msg string, fields ...any) {
	for _, l := range m {
		l.Error(component, msg, fields...)
	}
}

func (m multiLogger) Event(ctx context.Context, event string, fields map[string]any) {
	for _, l := range m {
		l.Event(ctx, event, fields)
	}
}

func (m multiLogger) Close() error {
	var first error
	for _, l := range m {
		if err := l.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

type noopLogger struct{}

func (n *noopLogger) Debug(component, msg string, fields ...any)                  {}
func (n *noopLogger) Info(component, msg string, fields ...any)                   {}
func (n *noopLogger) Warn(component, msg string, fields ...any)                   {}
func (n *noopLogger) Error(component, msg string, fields ...any)                  {}
func (n *noopLogger) Event(ctx context.Context, event string, fields map[string]any) {}
func (n *noopLogger) Close() error                                                { return nil }

// fieldMap converts alternating key/value pairs into a map. Non-string keys
// and a trailing odd value are dropped.
func fieldMap(fields []any) map[string]any {
	if len(fields) < 2 {
		return nil
	}
	m := make(map[string]any, len(fields)/2)
	for i := 0; i+1 < len(fields); i += 2 {
		if key, ok := fields[i].(string); ok {
			m[key] = fields[i+1]
		}
	}
	return m
}
