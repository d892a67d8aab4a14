package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync/atomic"
)

// Logger is the application logger interface. Every backend satisfies it,
// so components never know which one the process was composed with.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
	With(args ...any) Logger
	WithContext(ctx context.Context) Logger
}

// Backend names accepted by Config.Backend.
const (
	BackendSlog  = "slog"
	BackendZap   = "zap"
	BackendHclog = "hclog"
)

// Config holds logger configuration.
type Config struct {
	// Level is the minimum log level (debug, info, warn, error).
	Level string
	// Format is the output format (json, text).
	Format string
	// Backend selects the implementation (slog, zap, hclog).
	Backend string
	// Output is the output writer (defaults to os.Stderr).
	Output io.Writer
	// AddSource adds source file information to log entries.
	AddSource bool
}

// DefaultConfig returns a default logger configuration.
func DefaultConfig() Config {
	return Config{
		Level:   "info",
		Format:  "json",
		Backend: BackendSlog,
		Output:  os.Stderr,
	}
}

// globalLevel holds the current log level for dynamic adjustment.
// All backends consult it before emitting.
var globalLevel = new(slog.LevelVar)

// New creates a logger for the configured backend.
func New(cfg Config) (Logger, error) {
	globalLevel.Set(parseLevel(cfg.Level))

	output := cfg.Output
	if output == nil {
		output = os.Stderr
	}
	json := !isTextFormat(cfg.Format)

	switch strings.ToLower(cfg.Backend) {
	case "", BackendSlog:
		return newSlog(output, json, cfg.AddSource), nil
	case BackendZap:
		return newZap(output, json, cfg.AddSource), nil
	case BackendHclog:
		return newHclog(output, json, cfg.AddSource), nil
	default:
		return nil, fmt.Errorf("logger: unknown backend %q", cfg.Backend)
	}
}

// Nop returns a logger that discards everything.
func Nop() Logger {
	return &slogLogger{
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		ctx:    context.Background(),
	}
}

func isTextFormat(format string) bool {
	switch strings.ToLower(format) {
	case "text", "console":
		return true
	}
	return false
}

// slogLogger wraps slog.Logger.
type slogLogger struct {
	logger *slog.Logger
	ctx    context.Context
}

func newSlog(output io.Writer, json, addSource bool) *slogLogger {
	opts := &slog.HandlerOptions{
		Level:     globalLevel,
		AddSource: addSource,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			return redactSensitive(a)
		},
	}

	var handler slog.Handler
	if json {
		handler = slog.NewJSONHandler(output, opts)
	} else {
		handler = slog.NewTextHandler(output, opts)
	}

	return &slogLogger{
		logger: slog.New(handler),
		ctx:    context.Background(),
	}
}

func (l *slogLogger) Debug(msg string, args ...any) {
	l.logger.DebugContext(l.ctx, msg, args...)
}

func (l *slogLogger) Info(msg string, args ...any) {
	l.logger.InfoContext(l.ctx, msg, args...)
}

func (l *slogLogger) Warn(msg string, args ...any) {
	l.logger.WarnContext(l.ctx, msg, args...)
}

func (l *slogLogger) Error(msg string, args ...any) {
	l.logger.ErrorContext(l.ctx, msg, args...)
}

func (l *slogLogger) With(args ...any) Logger {
	return &slogLogger{
		logger: l.logger.With(args...),
		ctx:    l.ctx,
	}
}

func (l *slogLogger) WithContext(ctx context.Context) Logger {
	return &slogLogger{
		logger: l.logger.With(contextFields(ctx)...),
		ctx:    ctx,
	}
}

// SetLevel dynamically sets the global log level.
func SetLevel(level string) {
	globalLevel.Set(parseLevel(level))
}

// GetLevel returns the current log level as a string.
func GetLevel() string {
	switch globalLevel.Level() {
	case slog.LevelDebug:
		return "debug"
	case slog.LevelWarn:
		return "warn"
	case slog.LevelError:
		return "error"
	default:
		return "info"
	}
}

func enabled(level slog.Level) bool {
	return level >= globalLevel.Level()
}

// parseLevel converts a string level to slog.Level.
func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// ValidLevel reports whether level is a recognized level name.
func ValidLevel(level string) bool {
	switch strings.ToLower(level) {
	case "debug", "info", "warn", "warning", "error":
		return true
	}
	return false
}

// ValidBackend reports whether backend is a recognized backend name.
func ValidBackend(backend string) bool {
	switch strings.ToLower(backend) {
	case "", BackendSlog, BackendZap, BackendHclog:
		return true
	}
	return false
}

type holder struct{ Logger }

// Global logger instance for convenience methods. The server core never
// reads it; it exists for the CLI and for main before config is loaded.
var defaultLogger atomic.Pointer[holder]

func init() {
	defaultLogger.Store(&holder{newSlog(os.Stderr, true, false)})
}

// SetDefault sets the default global logger.
func SetDefault(l Logger) {
	if l != nil {
		defaultLogger.Store(&holder{l})
	}
}

// Default returns the default global logger.
func Default() Logger {
	return defaultLogger.Load().Logger
}

// Debug logs at debug level using the default logger.
func Debug(msg string, args ...any) {
	Default().Debug(msg, args...)
}

// Info logs at info level using the default logger.
func Info(msg string, args ...any) {
	Default().Info(msg, args...)
}

// Warn logs at warn level using the default logger.
func Warn(msg string, args ...any) {
	Default().Warn(msg, args...)
}

// Error logs at error level using the default logger.
func Error(msg string, args ...any) {
	Default().Error(msg, args...)
}
