// Package logger provides structured logging for srvboot.
//
// One Logger interface fronts three backends chosen by configuration:
//
//   - slog: log/slog JSON or text handler (default)
//   - zap: go.uber.org/zap sugared logger
//   - hclog: hashicorp/go-hclog
//
// All backends share a process-wide level that SetLevel changes at
// runtime, and all redact sensitive keys and sbk_ prefixed secrets.
// context.go carries request and connection IDs through a context.
package logger
