package watermillx

import (
	"context"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"
)

// LevelTrace sits below slog.LevelDebug for watermill's chatty trace logs.
const LevelTrace = slog.LevelDebug - 4

// FilteredSlogLogger adapts slog to watermill.LoggerAdapter and drops records
// below minLevel before any attribute conversion happens.
type FilteredSlogLogger struct {
	logger   *slog.Logger
	minLevel slog.Level
}

func NewFilteredSlogLogger(logger *slog.Logger, minLevel slog.Level) watermill.LoggerAdapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &FilteredSlogLogger{
		logger:   logger.With(slog.String("component", "watermill")),
		minLevel: minLevel,
	}
}

func (l *FilteredSlogLogger) enabled(level slog.Level) bool {
	return level >= l.minLevel && l.logger.Enabled(context.Background(), level)
}

func (l *FilteredSlogLogger) Error(msg string, err error, fields watermill.LogFields) {
	l.log(slog.LevelError, msg, fields, slog.Any("error", err))
}

func (l *FilteredSlogLogger) Info(msg string, fields watermill.LogFields) {
	l.log(slog.LevelInfo, msg, fields)
}

func (l *FilteredSlogLogger) Debug(msg string, fields watermill.LogFields) {
	l.log(slog.LevelDebug, msg, fields)
}

func (l *FilteredSlogLogger) Trace(msg string, fields watermill.LogFields) {
	l.log(LevelTrace, msg, fields)
}

func (l *FilteredSlogLogger) With(fields watermill.LogFields) watermill.LoggerAdapter {
	return &FilteredSlogLogger{
		logger:   l.logger.With(fieldsToAttrs(fields)...),
		minLevel: l.minLevel,
	}
}

func (l *FilteredSlogLogger) log(level slog.Level, msg string, fields watermill.LogFields, extra ...slog.Attr) {
	if !l.enabled(level) {
		return
	}
	l.logger.Log(context.Background(), level, msg, fieldsToAttrs(fields, extra...)...)
}

func fieldsToAttrs(fields watermill.LogFields, extra ...slog.Attr) []any {
	attrs := make([]any, 0, len(fields)+len(extra))
	for k, v := range fields {
		attrs = append(attrs, slog.Any(k, v))
	}
	for _, attr := range extra {
		attrs = append(attrs, attr)
	}
	return attrs
}
