package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"runtime/debug"
	"time"
)

// LevelCritical marks data-integrity incidents that need a human.
const LevelCritical = slog.Level(12)

type ctxKey struct{}

// WithRequestID returns a context carrying rid for every log line written with it.
func WithRequestID(ctx context.Context, rid string) context.Context {
	return context.WithValue(ctx, ctxKey{}, rid)
}

// RequestID returns the request id stored in ctx, or "".
func RequestID(ctx context.Context) string {
	if v, ok := ctx.Value(ctxKey{}).(string); ok {
		return v
	}
	return ""
}

type Logger struct {
	service  string
	hostname string
	handler  *slog.Logger
}

func NewLogger(service string) *Logger {
	return New(service, os.Stdout, slog.LevelDebug)
}

func New(service string, w io.Writer, level slog.Level) *Logger {
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}

	handler := slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			if a.Key == slog.LevelKey {
				if lvl, ok := a.Value.Any().(slog.Level); ok && lvl == LevelCritical {
					a.Value = slog.StringValue("CRITICAL")
				}
			}
			return a
		},
	}))

	return &Logger{
		service:  service,
		hostname: hostname,
		handler:  handler,
	}
}

// Discard returns a logger that writes nowhere, for tests.
func Discard() *Logger {
	return New("test", io.Discard, slog.LevelDebug)
}

func (l *Logger) base(ctx context.Context, action string) []slog.Attr {
	return []slog.Attr{
		slog.String("timestamp", time.Now().UTC().Format(time.RFC3339)),
		slog.String("service", l.service),
		slog.String("hostname", l.hostname),
		slog.String("action", action),
		slog.String("request_id", RequestID(ctx)),
	}
}

func (l *Logger) Info(ctx context.Context, action, message string, attrs ...slog.Attr) {
	l.handler.LogAttrs(ctx, slog.LevelInfo, message, append(l.base(ctx, action), attrs...)...)
}

func (l *Logger) Debug(ctx context.Context, action, message string, attrs ...slog.Attr) {
	l.handler.LogAttrs(ctx, slog.LevelDebug, message, append(l.base(ctx, action), attrs...)...)
}

func (l *Logger) Warn(ctx context.Context, action, message string, err error, attrs ...slog.Attr) {
	attrs = append(attrs, slog.String("error", err.Error()))
	l.handler.LogAttrs(ctx, slog.LevelWarn, message, append(l.base(ctx, action), attrs...)...)
}

func (l *Logger) Error(ctx context.Context, action, message string, err error, attrs ...slog.Attr) {
	l.log(ctx, slog.LevelError, action, message, err, attrs)
}

// Critical logs an incident where stored state is known to be inconsistent.
func (l *Logger) Critical(ctx context.Context, action, message string, err error, attrs ...slog.Attr) {
	attrs = append(attrs, slog.Bool("incident", true))
	l.log(ctx, LevelCritical, action, message, err, attrs)
}

func (l *Logger) log(ctx context.Context, level slog.Level, action, message string, err error, attrs []slog.Attr) {
	all := append(l.base(ctx, action), attrs...)
	all = append(all, slog.Group("error",
		slog.String("msg", err.Error()),
		slog.String("stack", string(debug.Stack())),
	))
	l.handler.LogAttrs(ctx, level, message, all...)
}
