// Package logging provides the proxy's structured logger.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// Logger is implemented by both the text and JSON loggers.
type Logger interface {
	DebugContext(ctx context.Context, msg string, args ...any)
	InfoContext(ctx context.Context, msg string, args ...any)
	WarnContext(ctx context.Context, msg string, args ...any)
	ErrorContext(ctx context.Context, msg string, args ...any)
	With(args ...any) Logger
}

const (
	Debug = "DEBUG"
	Info  = "INFO"
	Warn  = "WARN"
	Error = "ERROR"
)

// New builds a Logger for the given format ("text" or "json") and level.
func New(format, level string, out, errW io.Writer) (Logger, error) {
	switch strings.ToLower(format) {
	case "json":
		return newStructuredLogger(out, errW, level)
	case "text", "":
		return newTextLogger(out, errW, level)
	default:
		return nil, fmt.Errorf("logging format invalid: %s", format)
	}
}

func levelFromSeverity(s string) (slog.Level, error) {
	switch strings.ToUpper(s) {
	case Debug:
		return slog.LevelDebug, nil
	case Info:
		return slog.LevelInfo, nil
	case Warn:
		return slog.LevelWarn, nil
	case Error:
		return slog.LevelError, nil
	default:
		return slog.Level(0), fmt.Errorf("invalid log level: %s", s)
	}
}

func severityFromLevel(l slog.Level) string {
	switch {
	case l < slog.LevelInfo:
		return Debug
	case l < slog.LevelWarn:
		return Info
	case l < slog.LevelError:
		return Warn
	default:
		return Error
	}
}

// textLogger routes info/debug to out and warn/error to err, as plain text.
type textLogger struct {
	out *slog.Logger
	err *slog.Logger
}

func newTextLogger(out, errW io.Writer, level string) (Logger, error) {
	lvl, err := levelFromSeverity(level)
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: lvl}
	return &textLogger{
		out: slog.New(slog.NewTextHandler(out, opts)),
		err: slog.New(slog.NewTextHandler(errW, opts)),
	}, nil
}

func (l *textLogger) DebugContext(ctx context.Context, msg string, args ...any) {
	l.out.DebugContext(ctx, msg, args...)
}
func (l *textLogger) InfoContext(ctx context.Context, msg string, args ...any) {
	l.out.InfoContext(ctx, msg, args...)
}
func (l *textLogger) WarnContext(ctx context.Context, msg string, args ...any) {
	l.err.WarnContext(ctx, msg, args...)
}
func (l *textLogger) ErrorContext(ctx context.Context, msg string, args ...any) {
	l.err.ErrorContext(ctx, msg, args...)
}
func (l *textLogger) With(args ...any) Logger {
	return &textLogger{out: l.out.With(args...), err: l.err.With(args...)}
}

// structuredLogger emits Cloud-LogEntry-shaped JSON records.
type structuredLogger struct {
	out *slog.Logger
	err *slog.Logger
}

func newStructuredLogger(out, errW io.Writer, level string) (Logger, error) {
	lvl, err := levelFromSeverity(level)
	if err != nil {
		return nil, err
	}

	replace := func(groups []string, a slog.Attr) slog.Attr {
		switch a.Key {
		case slog.LevelKey:
			l, _ := a.Value.Any().(slog.Level)
			return slog.String("severity", severityFromLevel(l))
		case slog.MessageKey:
			return slog.Attr{Key: "message", Value: a.Value}
		case slog.TimeKey:
			return slog.Attr{Key: "timestamp", Value: a.Value}
		case slog.SourceKey:
			return slog.Attr{Key: "sourceLocation", Value: a.Value}
		}
		return a
	}

	opts := &slog.HandlerOptions{Level: lvl, AddSource: true, ReplaceAttr: replace}
	return &structuredLogger{
		out: slog.New(slog.NewJSONHandler(out, opts)),
		err: slog.New(slog.NewJSONHandler(errW, opts)),
	}, nil
}

func (l *structuredLogger) DebugContext(ctx context.Context, msg string, args ...any) {
	l.out.DebugContext(ctx, msg, args...)
}
func (l *structuredLogger) InfoContext(ctx context.Context, msg string, args ...any) {
	l.out.InfoContext(ctx, msg, args...)
}
func (l *structuredLogger) WarnContext(ctx context.Context, msg string, args ...any) {
	l.err.WarnContext(ctx, msg, args...)
}
func (l *structuredLogger) ErrorContext(ctx context.Context, msg string, args ...any) {
	l.err.ErrorContext(ctx, msg, args...)
}
func (l *structuredLogger) With(args ...any) Logger {
	return &structuredLogger{out: l.out.With(args...), err: l.err.With(args...)}
}

// Noop returns a Logger that discards everything, for tests.
func Noop() Logger {
	l, _ := New("text", "ERROR", io.Discard, io.Discard)
	return l
}
