package logger

import (
	"context"
	"io"
	"log/slog"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// zapLogger adapts a zap SugaredLogger. Level filtering is done against
// globalLevel so SetLevel applies to every backend alike.
type zapLogger struct {
	sugar *zap.SugaredLogger
}

func newZap(output io.Writer, json, addSource bool) *zapLogger {
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "time"
	encCfg.MessageKey = "msg"
	encCfg.EncodeTime = zapcore.RFC3339NanoTimeEncoder

	var enc zapcore.Encoder
	if json {
		enc = zapcore.NewJSONEncoder(encCfg)
	} else {
		enc = zapcore.NewConsoleEncoder(encCfg)
	}

	core := zapcore.NewCore(enc, zapcore.AddSync(output), zapcore.DebugLevel)

	var opts []zap.Option
	if addSource {
		opts = append(opts, zap.AddCaller(), zap.AddCallerSkip(1))
	}
	return &zapLogger{sugar: zap.New(core, opts...).Sugar()}
}

func (l *zapLogger) Debug(msg string, args ...any) {
	if enabled(slog.LevelDebug) {
		l.sugar.Debugw(msg, redactArgs(args)...)
	}
}

func (l *zapLogger) Info(msg string, args ...any) {
	if enabled(slog.LevelInfo) {
		l.sugar.Infow(msg, redactArgs(args)...)
	}
}

func (l *zapLogger) Warn(msg string, args ...any) {
	if enabled(slog.LevelWarn) {
		l.sugar.Warnw(msg, redactArgs(args)...)
	}
}

func (l *zapLogger) Error(msg string, args ...any) {
	if enabled(slog.LevelError) {
		l.sugar.Errorw(msg, redactArgs(args)...)
	}
}

func (l *zapLogger) With(args ...any) Logger {
	return &zapLogger{sugar: l.sugar.With(redactArgs(args)...)}
}

func (l *zapLogger) WithContext(ctx context.Context) Logger {
	fields := contextFields(ctx)
	if len(fields) == 0 {
		return l
	}
	return &zapLogger{sugar: l.sugar.With(fields...)}
}
