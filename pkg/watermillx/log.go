package watermillx

import (
	"context"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"
)

// LevelTrace sits below slog.LevelDebug for watermill's per-message logs.
const LevelTrace = slog.LevelDebug - 4

// SlogAdapter routes watermill logs into slog, dropping records below minLevel.
type SlogAdapter struct {
	logger   *slog.Logger
	minLevel slog.Level
}

func NewSlogAdapter(logger *slog.Logger, minLevel slog.Level) watermill.LoggerAdapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogAdapter{
		logger:   logger,
		minLevel: minLevel,
	}
}

func (l *SlogAdapter) log(level slog.Level, msg string, fields watermill.LogFields, extra ...slog.Attr) {
	if level < l.minLevel {
		return
	}
	ctx := context.Background()
	if !l.logger.Enabled(ctx, level) {
		return
	}
	l.logger.Log(ctx, level, msg, fieldsToAttrs(fields, extra...)...)
}

func (l *SlogAdapter) Error(msg string, err error, fields watermill.LogFields) {
	l.log(slog.LevelError, msg, fields, slog.Any("error", err))
}

func (l *SlogAdapter) Info(msg string, fields watermill.LogFields) {
	l.log(slog.LevelInfo, msg, fields)
}

func (l *SlogAdapter) Debug(msg string, fields watermill.LogFields) {
	l.log(slog.LevelDebug, msg, fields)
}

func (l *SlogAdapter) Trace(msg string, fields watermill.LogFields) {
	l.log(LevelTrace, msg, fields)
}

func (l *SlogAdapter) With(fields watermill.LogFields) watermill.LoggerAdapter {
	return &SlogAdapter{
		logger:   l.logger.With(fieldsToAttrs(fields)...),
		minLevel: l.minLevel,
	}
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
