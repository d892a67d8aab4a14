package config

import (
	"errors"
	"fmt"
	"net/netip"
	"os"
	"strings"

	"github.com/yndnr/srvboot-go/internal/infra/tlsroots"
	"github.com/yndnr/srvboot-go/internal/server/listener"
	"github.com/yndnr/srvboot-go/internal/telemetry/logger"
	"github.com/yndnr/srvboot-go/pkg/token"
)

// Verify validates the configuration. All problems are reported
// together.
func Verify(cfg *ServerConfig) error {
	return errors.Join(
		verifyServer(&cfg.Server),
		verifyHTTP(&cfg.HTTP),
		verifyLog(&cfg.Log),
		verifyInterceptors(&cfg.Interceptors),
	)
}

func verifyServer(cfg *ServerSection) error {
	var errs []error

	if cfg.Listen.Port < 0 || cfg.Listen.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.listen.port %d out of range", cfg.Listen.Port))
	}
	if !listener.FallbackPolicy(cfg.Listen.Fallback).Valid() {
		errs = append(errs, fmt.Errorf("server.listen.fallback %q must be auto, never or split", cfg.Listen.Fallback))
	}
	if cfg.IdleTimeout <= 0 {
		errs = append(errs, errors.New("server.idle_timeout must be positive"))
	}
	if cfg.HandshakeTimeout < 0 {
		errs = append(errs, errors.New("server.handshake_timeout must not be negative"))
	}
	if cfg.GracePeriod < 0 {
		errs = append(errs, errors.New("server.grace_period must not be negative"))
	}

	tls := cfg.TLS
	switch {
	case tls.CertFile == "" && tls.KeyFile == "":
	case tls.CertFile == "" || tls.KeyFile == "":
		errs = append(errs, errors.New("server.tls.cert_file and server.tls.key_file must be set together"))
	default:
		errs = append(errs, fileExists("server.tls.cert_file", tls.CertFile), fileExists("server.tls.key_file", tls.KeyFile))
	}
	if !tlsroots.ClientAuth(tls.ClientAuth).Valid() {
		errs = append(errs, fmt.Errorf("server.tls.client_auth %q must be none, request or require", tls.ClientAuth))
	} else if tls.ClientAuth != "" && tls.ClientAuth != string(tlsroots.ClientAuthNone) {
		if tls.ClientCAFile == "" {
			errs = append(errs, errors.New("server.tls.client_ca_file is required with client_auth"))
		} else {
			errs = append(errs, fileExists("server.tls.client_ca_file", tls.ClientCAFile))
		}
	}
	if tls.RefreshInterval < 0 {
		errs = append(errs, errors.New("server.tls.refresh_interval must not be negative"))
	}

	return errors.Join(errs...)
}

func verifyHTTP(cfg *HTTPSection) error {
	var errs []error
	if cfg.MaxHeaderBytes < 0 {
		errs = append(errs, errors.New("http.max_header_bytes must not be negative"))
	}
	if cfg.ReadHeaderTimeout < 0 || cfg.RequestTimeout < 0 {
		errs = append(errs, errors.New("http timeouts must not be negative"))
	}
	return errors.Join(errs...)
}

func verifyLog(cfg *LogSection) error {
	var errs []error
	if !logger.ValidLevel(cfg.Level) {
		errs = append(errs, fmt.Errorf("log.level %q is invalid", cfg.Level))
	}
	if cfg.Format != "json" && cfg.Format != "text" {
		errs = append(errs, fmt.Errorf("log.format %q must be json or text", cfg.Format))
	}
	if !logger.ValidBackend(cfg.Backend) {
		errs = append(errs, fmt.Errorf("log.backend %q must be slog, zap or hclog", cfg.Backend))
	}
	return errors.Join(errs...)
}

func verifyInterceptors(cfg *InterceptorSection) error {
	var errs []error

	if cfg.Health.Enabled && !strings.HasPrefix(cfg.Health.Path, "/") {
		errs = append(errs, errors.New("interceptors.health.path must start with /"))
	}
	for _, entry := range cfg.AllowList {
		if _, err := parseAllowEntry(entry); err != nil {
			errs = append(errs, fmt.Errorf("interceptors.allow_list: %w", err))
		}
	}
	if cfg.RateLimit.RPS < 0 || cfg.RateLimit.Burst < 0 {
		errs = append(errs, errors.New("interceptors.rate_limit values must not be negative"))
	}
	if len(cfg.GeoIP.DenyCountries) > 0 {
		if cfg.GeoIP.DBPath == "" {
			errs = append(errs, errors.New("interceptors.geoip.db_path is required with deny_countries"))
		} else {
			errs = append(errs, fileExists("interceptors.geoip.db_path", cfg.GeoIP.DBPath))
		}
	}
	if cfg.APIKeys.Enabled {
		if len(cfg.APIKeys.Keys) == 0 {
			errs = append(errs, errors.New("interceptors.api_keys.keys is empty"))
		}
		for id, hash := range cfg.APIKeys.Keys {
			if !token.IsKeyID(id) {
				errs = append(errs, fmt.Errorf("interceptors.api_keys: invalid key id %q", id))
			}
			if err := token.CheckHash(hash); err != nil {
				errs = append(errs, fmt.Errorf("interceptors.api_keys.%s: %w", id, err))
			}
		}
	}

	return errors.Join(errs...)
}

func parseAllowEntry(entry string) (netip.Prefix, error) {
	if strings.Contains(entry, "/") {
		return netip.ParsePrefix(entry)
	}
	a, err := netip.ParseAddr(entry)
	if err != nil {
		return netip.Prefix{}, err
	}
	return netip.PrefixFrom(a, a.BitLen()), nil
}

func fileExists(key, path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%s: %s is a directory", key, path)
	}
	return nil
}
