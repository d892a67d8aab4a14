// Package config defines the server configuration structure.
package config

import "time"

// ServerConfig is the root configuration for srvboot-server.
type ServerConfig struct {
	Server       ServerSection      `koanf:"server" yaml:"server"`
	HTTP         HTTPSection        `koanf:"http" yaml:"http"`
	Metrics      MetricsSection     `koanf:"metrics" yaml:"metrics"`
	Log          LogSection         `koanf:"log" yaml:"log"`
	Interceptors InterceptorSection `koanf:"interceptors" yaml:"interceptors"`
}

// ServerSection configures the listener, TLS and connection lifecycle.
type ServerSection struct {
	Listen ListenConfig `koanf:"listen" yaml:"listen"`
	TLS    TLSConfig    `koanf:"tls" yaml:"tls"`

	// IdleTimeout closes connections with no completed read or write.
	IdleTimeout time.Duration `koanf:"idle_timeout" yaml:"idle_timeout"`
	// HandshakeTimeout bounds the TLS handshake.
	HandshakeTimeout time.Duration `koanf:"handshake_timeout" yaml:"handshake_timeout"`
	// GracePeriod is how long a shutdown waits before force-closing.
	GracePeriod time.Duration `koanf:"grace_period" yaml:"grace_period"`

	Local LocalConfig `koanf:"local" yaml:"local"`
}

// ListenConfig configures the bound endpoint.
type ListenConfig struct {
	Host      string `koanf:"host" yaml:"host"`
	Port      int    `koanf:"port" yaml:"port"`
	DualStack bool   `koanf:"dual_stack" yaml:"dual_stack"`
	// Fallback is auto, never or split. See listener.FallbackPolicy.
	Fallback  string `koanf:"fallback" yaml:"fallback"`
	ReuseAddr bool   `koanf:"reuse_addr" yaml:"reuse_addr"`
}

// TLSConfig configures the optional TLS context. Both files empty means
// plaintext.
type TLSConfig struct {
	CertFile     string `koanf:"cert_file" yaml:"cert_file"`
	KeyFile      string `koanf:"key_file" yaml:"key_file"`
	ClientAuth   string `koanf:"client_auth" yaml:"client_auth"`
	ClientCAFile string `koanf:"client_ca_file" yaml:"client_ca_file"`
	// RefreshInterval rebuilds the context periodically (0 = never).
	RefreshInterval time.Duration `koanf:"refresh_interval" yaml:"refresh_interval"`
	// Watch rebuilds the context when the files change.
	Watch bool `koanf:"watch" yaml:"watch"`
}

// Enabled reports whether TLS is configured.
func (c TLSConfig) Enabled() bool {
	return c.CertFile != "" || c.KeyFile != ""
}

// LocalConfig configures the local management socket.
type LocalConfig struct {
	Path string `koanf:"path" yaml:"path"`
}

// HTTPSection configures the HTTP engine.
type HTTPSection struct {
	ReadHeaderTimeout    time.Duration `koanf:"read_header_timeout" yaml:"read_header_timeout"`
	MaxHeaderBytes       int           `koanf:"max_header_bytes" yaml:"max_header_bytes"`
	MaxConcurrentStreams uint32        `koanf:"max_concurrent_streams" yaml:"max_concurrent_streams"`
	CORSAllowedOrigins   []string      `koanf:"cors_allowed_origins" yaml:"cors_allowed_origins"`
	RequestTimeout       time.Duration `koanf:"request_timeout" yaml:"request_timeout"`
}

// MetricsSection configures the Prometheus endpoint.
type MetricsSection struct {
	Enabled bool `koanf:"enabled" yaml:"enabled"`
}

// LogSection configures logging.
type LogSection struct {
	Level   string `koanf:"level" yaml:"level"`
	Format  string `koanf:"format" yaml:"format"`
	Backend string `koanf:"backend" yaml:"backend"`
}

// InterceptorSection configures the built-in request interceptors, in
// the order they run.
type InterceptorSection struct {
	Health    HealthConfig    `koanf:"health" yaml:"health"`
	AllowList []string        `koanf:"allow_list" yaml:"allow_list"`
	GeoIP     GeoIPConfig     `koanf:"geoip" yaml:"geoip"`
	RateLimit RateLimitConfig `koanf:"rate_limit" yaml:"rate_limit"`
	APIKeys   APIKeyConfig    `koanf:"api_keys" yaml:"api_keys"`
}

// HealthConfig configures the health interceptor.
type HealthConfig struct {
	Enabled bool   `koanf:"enabled" yaml:"enabled"`
	Path    string `koanf:"path" yaml:"path"`
	Body    string `koanf:"body" yaml:"body"`
}

// RateLimitConfig configures per-peer rate limiting (0 rps = off).
type RateLimitConfig struct {
	RPS   float64 `koanf:"rps" yaml:"rps"`
	Burst int     `koanf:"burst" yaml:"burst"`
}

// GeoIPConfig configures the country filter.
type GeoIPConfig struct {
	DBPath        string   `koanf:"db_path" yaml:"db_path"`
	DenyCountries []string `koanf:"deny_countries" yaml:"deny_countries"`
}

// APIKeyConfig configures API key authentication. Keys maps key IDs to
// Argon2id hashes as printed by "srvboot-cli apikey generate".
type APIKeyConfig struct {
	Enabled   bool              `koanf:"enabled" yaml:"enabled"`
	Keys      map[string]string `koanf:"keys" yaml:"keys"`
	SkipPaths []string          `koanf:"skip_paths" yaml:"skip_paths"`
}
