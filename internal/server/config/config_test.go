package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/yndnr/srvboot-go/pkg/token"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Server.Listen.Host != DefaultHost {
		t.Errorf("Listen.Host = %q, want %q", cfg.Server.Listen.Host, DefaultHost)
	}
	if cfg.Server.Listen.Port != DefaultPort {
		t.Errorf("Listen.Port = %d, want %d", cfg.Server.Listen.Port, DefaultPort)
	}
	if !cfg.Server.Listen.DualStack {
		t.Error("DualStack should be on by default")
	}
	if cfg.Server.IdleTimeout != DefaultIdleTimeout {
		t.Errorf("IdleTimeout = %v, want %v", cfg.Server.IdleTimeout, DefaultIdleTimeout)
	}
	if cfg.Server.TLS.Enabled() {
		t.Error("TLS should be disabled by default")
	}
	if cfg.Server.Local.Path != DefaultLocalSocket {
		t.Errorf("Local.Path = %q, want %q", cfg.Server.Local.Path, DefaultLocalSocket)
	}
	if cfg.Log.Level != DefaultLogLevel {
		t.Errorf("Log.Level = %q, want %q", cfg.Log.Level, DefaultLogLevel)
	}
	if cfg.Interceptors.Health.Body != DefaultHealthBody {
		t.Errorf("Health.Body = %q", cfg.Interceptors.Health.Body)
	}

	if err := Verify(cfg); err != nil {
		t.Errorf("Verify(Default()) = %v", err)
	}
}

func TestVerify_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*ServerConfig)
		want   string
	}{
		{"port", func(c *ServerConfig) { c.Server.Listen.Port = 70000 }, "port"},
		{"fallback", func(c *ServerConfig) { c.Server.Listen.Fallback = "maybe" }, "fallback"},
		{"idle zero", func(c *ServerConfig) { c.Server.IdleTimeout = 0 }, "idle_timeout"},
		{"grace negative", func(c *ServerConfig) { c.Server.GracePeriod = -time.Second }, "grace_period"},
		{"cert without key", func(c *ServerConfig) { c.Server.TLS.CertFile = "a.pem" }, "set together"},
		{"missing cert file", func(c *ServerConfig) {
			c.Server.TLS.CertFile = "/nonexistent/cert.pem"
			c.Server.TLS.KeyFile = "/nonexistent/key.pem"
		}, "cert_file"},
		{"client auth", func(c *ServerConfig) { c.Server.TLS.ClientAuth = "always" }, "client_auth"},
		{"client ca missing", func(c *ServerConfig) { c.Server.TLS.ClientAuth = "require" }, "client_ca_file"},
		{"log level", func(c *ServerConfig) { c.Log.Level = "loud" }, "log.level"},
		{"log backend", func(c *ServerConfig) { c.Log.Backend = "logrus" }, "log.backend"},
		{"health path", func(c *ServerConfig) { c.Interceptors.Health.Path = "health" }, "health.path"},
		{"allow list", func(c *ServerConfig) { c.Interceptors.AllowList = []string{"not-an-ip"} }, "allow_list"},
		{"rate limit", func(c *ServerConfig) { c.Interceptors.RateLimit.RPS = -1 }, "rate_limit"},
		{"geoip db", func(c *ServerConfig) { c.Interceptors.GeoIP.DenyCountries = []string{"XX"} }, "db_path"},
		{"api keys empty", func(c *ServerConfig) { c.Interceptors.APIKeys.Enabled = true }, "keys is empty"},
		{"api key hash", func(c *ServerConfig) {
			c.Interceptors.APIKeys.Enabled = true
			c.Interceptors.APIKeys.Keys = map[string]string{"bad": "plain"}
		}, "invalid key id"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := Verify(cfg)
			if err == nil {
				t.Fatal("Verify() should fail")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Verify() = %v, want mention of %q", err, tt.want)
			}
		})
	}
}

func TestVerify_ReportsAllProblems(t *testing.T) {
	cfg := Default()
	cfg.Server.Listen.Port = -1
	cfg.Log.Format = "xml"

	err := Verify(cfg)
	if err == nil {
		t.Fatal("Verify() should fail")
	}
	if !strings.Contains(err.Error(), "port") || !strings.Contains(err.Error(), "log.format") {
		t.Errorf("Verify() = %v, want both problems", err)
	}
}

func TestVerify_TLSFiles(t *testing.T) {
	dir := t.TempDir()
	cert := filepath.Join(dir, "cert.pem")
	key := filepath.Join(dir, "key.pem")
	ca := filepath.Join(dir, "ca.pem")
	for _, p := range []string{cert, key, ca} {
		if err := os.WriteFile(p, []byte("x"), 0o600); err != nil {
			t.Fatal(err)
		}
	}

	cfg := Default()
	cfg.Server.TLS.CertFile = cert
	cfg.Server.TLS.KeyFile = key
	cfg.Server.TLS.ClientAuth = "require"
	cfg.Server.TLS.ClientCAFile = ca

	if err := Verify(cfg); err != nil {
		t.Errorf("Verify() = %v", err)
	}

	cfg.Server.TLS.ClientCAFile = dir
	if err := Verify(cfg); err == nil {
		t.Error("Verify() should reject a directory as client CA")
	}
}

func TestVerify_APIKeys(t *testing.T) {
	id, secret, err := token.NewKey()
	if err != nil {
		t.Fatal(err)
	}
	hash, err := token.Hash(secret)
	if err != nil {
		t.Fatal(err)
	}

	cfg := Default()
	cfg.Interceptors.APIKeys.Enabled = true
	cfg.Interceptors.APIKeys.Keys = map[string]string{id: hash}

	if err := Verify(cfg); err != nil {
		t.Errorf("Verify() = %v", err)
	}
}

func TestSanitize(t *testing.T) {
	cfg := Default()
	cfg.Interceptors.APIKeys.Keys = map[string]string{"sbk-abc": "$argon2id$v=19$m=16384,t=2,p=2$c2FsdA$a2V5"}

	sanitized := Sanitize(cfg)

	// Original should be unchanged
	if cfg.Interceptors.APIKeys.Keys["sbk-abc"] != "$argon2id$v=19$m=16384,t=2,p=2$c2FsdA$a2V5" {
		t.Error("Sanitize modified the original config")
	}
	got := sanitized.Interceptors.APIKeys.Keys["sbk-abc"]
	if !strings.Contains(got, "****") || strings.Contains(got, "c2FsdA") {
		t.Errorf("sanitized hash = %q", got)
	}
	if sanitized.Server.Listen.Port != cfg.Server.Listen.Port {
		t.Error("Sanitize should keep non-sensitive fields")
	}
}

func TestMaskSecret(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"", "****"},
		{"abcd", "****"},
		{"abcde", "ab*de"},
		{"secret-value", "se********ue"},
	}

	for _, tt := range tests {
		if got := maskSecret(tt.input); got != tt.want {
			t.Errorf("maskSecret(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "server.yaml")
	content := `
server:
  listen:
    port: 9443
  idle_timeout: 45s
log:
  level: debug
interceptors:
  allow_list: ["10.0.0.0/8", "::1"]
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("SRVBOOT_SERVER__GRACE_PERIOD", "3s")

	cfg, err := Load(path, map[string]any{"log.format": "text"})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Listen.Port != 9443 {
		t.Errorf("Port = %d, want 9443", cfg.Server.Listen.Port)
	}
	if cfg.Server.Listen.Host != DefaultHost {
		t.Errorf("Host = %q, want default kept", cfg.Server.Listen.Host)
	}
	if cfg.Server.IdleTimeout != 45*time.Second {
		t.Errorf("IdleTimeout = %v", cfg.Server.IdleTimeout)
	}
	if cfg.Server.GracePeriod != 3*time.Second {
		t.Errorf("GracePeriod = %v, want env value", cfg.Server.GracePeriod)
	}
	if cfg.Log.Level != "debug" || cfg.Log.Format != "text" {
		t.Errorf("Log = %+v", cfg.Log)
	}
	if len(cfg.Interceptors.AllowList) != 2 {
		t.Errorf("AllowList = %v", cfg.Interceptors.AllowList)
	}
}

func TestLoad_Invalid(t *testing.T) {
	if _, err := Load("", map[string]any{"server.idle_timeout": "0s"}); err == nil {
		t.Error("Load() should reject a zero idle timeout")
	}
}
