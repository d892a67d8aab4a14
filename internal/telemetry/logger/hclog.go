package logger

import (
	"context"
	"io"
	"log/slog"

	"github.com/hashicorp/go-hclog"
)

// hclogLogger adapts a go-hclog logger.
type hclogLogger struct {
	logger hclog.Logger
}

func newHclog(output io.Writer, json, addSource bool) *hclogLogger {
	return &hclogLogger{
		logger: hclog.New(&hclog.LoggerOptions{
			Name:            "srvboot",
			Level:           hclog.Debug,
			Output:          output,
			JSONFormat:      json,
			IncludeLocation: addSource,
			// Skip this adapter's frame when reporting the caller.
			AdditionalLocationOffset: 1,
		}),
	}
}

func (l *hclogLogger) Debug(msg string, args ...any) {
	if enabled(slog.LevelDebug) {
		l.logger.Debug(msg, redactArgs(args)...)
	}
}

func (l *hclogLogger) Info(msg string, args ...any) {
	if enabled(slog.LevelInfo) {
		l.logger.Info(msg, redactArgs(args)...)
	}
}

func (l *hclogLogger) Warn(msg string, args ...any) {
	if enabled(slog.LevelWarn) {
		l.logger.Warn(msg, redactArgs(args)...)
	}
}

func (l *hclogLogger) Error(msg string, args ...any) {
	if enabled(slog.LevelError) {
		l.logger.Error(msg, redactArgs(args)...)
	}
}

func (l *hclogLogger) With(args ...any) Logger {
	return &hclogLogger{logger: l.logger.With(redactArgs(args)...)}
}

func (l *hclogLogger) WithContext(ctx context.Context) Logger {
	fields := contextFields(ctx)
	if len(fields) == 0 {
		return l
	}
	return &hclogLogger{logger: l.logger.With(fields...)}
}
