package logging

import (
	"context"
	"log/slog"

	amerrors "github.com/Aman-CERP/amandocs/internal/errors"
)

// Reporter separates recoverable notices from fatal failures.
// Info and Warn only log. Fatal logs and hands the error back for the caller
// to return; it never decides on its own whether to raise.
type Reporter interface {
	Info(ctx context.Context, msg string, attrs ...slog.Attr)
	Warn(ctx context.Context, msg string, attrs ...slog.Attr)
	Fatal(ctx context.Context, err error) error
}

// SlogReporter reports through a slog.Logger.
type SlogReporter struct {
	logger *slog.Logger
}

// NewSlogReporter returns a reporter over logger, or slog.Default when nil.
func NewSlogReporter(logger *slog.Logger) *SlogReporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogReporter{logger: logger}
}

// Info logs at info level.
func (r *SlogReporter) Info(ctx context.Context, msg string, attrs ...slog.Attr) {
	r.logger.LogAttrs(ctx, slog.LevelInfo, msg, attrs...)
}

// Warn logs at warn level.
func (r *SlogReporter) Warn(ctx context.Context, msg string, attrs ...slog.Attr) {
	r.logger.LogAttrs(ctx, slog.LevelWarn, msg, attrs...)
}

// Fatal logs err at error level with its structured fields and returns it.
func (r *SlogReporter) Fatal(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	fields := amerrors.FormatForLog(err)
	attrs := make([]slog.Attr, 0, len(fields))
	for k, v := range fields {
		attrs = append(attrs, slog.Any(k, v))
	}
	r.logger.LogAttrs(ctx, slog.LevelError, "operation_failed", attrs...)
	return err
}

// Discard is a Reporter that drops everything except the returned error.
var Discard Reporter = discard{}

type discard struct{}

func (discard) Info(context.Context, string, ...slog.Attr) {}
func (discard) Warn(context.Context, string, ...slog.Attr) {}
func (discard) Fatal(_ context.Context, err error) error { return err }
