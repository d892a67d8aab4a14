package config

import "time"

// Default configuration values.
const (
	DefaultHost        = "::"
	DefaultPort        = 8443
	DefaultFallback    = "auto"
	DefaultLocalSocket = "/var/run/srvboot-server/srvboot-server.sock"

	DefaultIdleTimeout      = 120 * time.Second
	DefaultHandshakeTimeout = 10 * time.Second
	DefaultGracePeriod      = 10 * time.Second
	DefaultTLSRefresh       = 24 * time.Hour

	DefaultReadHeaderTimeout = 10 * time.Second
	DefaultMaxHeaderBytes    = 1 << 20
	DefaultRequestTimeout    = 30 * time.Second

	DefaultLogLevel   = "info"
	DefaultLogFormat  = "json"
	DefaultLogBackend = "slog"

	DefaultHealthPath = "/health"
	DefaultHealthBody = `{"status":"ok"}`
)

// Default returns the default server configuration.
func Default() *ServerConfig {
	return &ServerConfig{
		Server: ServerSection{
			Listen: ListenConfig{
				Host:      DefaultHost,
				Port:      DefaultPort,
				DualStack: true,
				Fallback:  DefaultFallback,
				ReuseAddr: true,
			},
			TLS: TLSConfig{
				ClientAuth:      "none",
				RefreshInterval: DefaultTLSRefresh,
				Watch:           true,
			},
			IdleTimeout:      DefaultIdleTimeout,
			HandshakeTimeout: DefaultHandshakeTimeout,
			GracePeriod:      DefaultGracePeriod,
			Local: LocalConfig{
				Path: DefaultLocalSocket,
			},
		},
		HTTP: HTTPSection{
			ReadHeaderTimeout: DefaultReadHeaderTimeout,
			MaxHeaderBytes:    DefaultMaxHeaderBytes,
			RequestTimeout:    DefaultRequestTimeout,
		},
		Metrics: MetricsSection{
			Enabled: true,
		},
		Log: LogSection{
			Level:   DefaultLogLevel,
			Format:  DefaultLogFormat,
			Backend: DefaultLogBackend,
		},
		Interceptors: InterceptorSection{
			Health: HealthConfig{
				Enabled: true,
				Path:    DefaultHealthPath,
				Body:    DefaultHealthBody,
			},
			APIKeys: APIKeyConfig{
				SkipPaths: []string{"/health", "/ready", "/version"},
			},
		},
	}
}
