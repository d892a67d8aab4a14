package connection

import (
	"context"
	"crypto/tls"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/yndnr/srvboot-go/internal/infra/tlsroots/tlstest"
)

func echoHandler(t *testing.T) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("User-Agent"); got != "srvboot-cli/1.0" {
			t.Errorf("User-Agent = %q", got)
		}
		w.Header().Set("X-Request-ID", "req-test")
		w.Write([]byte(r.Proto + " " + r.Header.Get("Authorization")))
	})
}

func TestNewProber_InvalidNetwork(t *testing.T) {
	if _, err := NewProber(ProbeOptions{Network: "udp"}); err == nil {
		t.Error("NewProber(udp) should fail")
	}
	if _, err := NewProber(ProbeOptions{CAFile: "/nonexistent/ca.pem"}); err == nil {
		t.Error("NewProber() should fail for a missing CA file")
	}
}

func TestProbe_HTTP1(t *testing.T) {
	srv := httptest.NewServer(echoHandler(t))
	defer srv.Close()

	p, err := NewProber(ProbeOptions{Network: "tcp4", APIKey: "sbk-id:sbk_secret"})
	if err != nil {
		t.Fatal(err)
	}
	defer p.CloseIdleConnections()

	res, err := p.Probe(context.Background(), srv.URL+"/health")
	if err != nil {
		t.Fatalf("Probe() error = %v", err)
	}
	if res.Status != http.StatusOK || res.Proto != "HTTP/1.1" {
		t.Errorf("Probe() = %+v", res)
	}
	if res.Body != "HTTP/1.1 Bearer sbk-id:sbk_secret" {
		t.Errorf("Body = %q", res.Body)
	}
	if res.RequestID != "req-test" {
		t.Errorf("RequestID = %q", res.RequestID)
	}
	if !strings.HasPrefix(res.RemoteAddr, "127.0.0.1:") {
		t.Errorf("RemoteAddr = %q", res.RemoteAddr)
	}
	if res.TLSVersion != "" {
		t.Errorf("TLSVersion = %q, want empty for plaintext", res.TLSVersion)
	}
}

func TestProbe_WrongFamily(t *testing.T) {
	srv := httptest.NewServer(echoHandler(t))
	defer srv.Close()

	p, err := NewProber(ProbeOptions{Network: "tcp6"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := p.Probe(context.Background(), srv.URL); err == nil {
		t.Error("Probe() over tcp6 to an IPv4 address should fail")
	}
}

func TestProbe_TLSWithCA(t *testing.T) {
	pair := tlstest.SelfSigned(t)
	cert, err := tls.X509KeyPair(pair.CertPEM, pair.KeyPEM)
	if err != nil {
		t.Fatal(err)
	}

	srv := httptest.NewUnstartedServer(echoHandler(t))
	srv.EnableHTTP2 = true
	srv.TLS = &tls.Config{Certificates: []tls.Certificate{cert}}
	srv.StartTLS()
	defer srv.Close()

	caFile := filepath.Join(t.TempDir(), "ca.pem")
	if err := os.WriteFile(caFile, pair.CertPEM, 0o644); err != nil {
		t.Fatal(err)
	}

	p, err := NewProber(ProbeOptions{CAFile: caFile})
	if err != nil {
		t.Fatal(err)
	}
	defer p.CloseIdleConnections()

	res, err := p.Probe(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Probe() error = %v", err)
	}
	if res.Proto != "HTTP/2.0" || res.ALPN != "h2" {
		t.Errorf("Proto = %q, ALPN = %q, want h2", res.Proto, res.ALPN)
	}
	if res.TLSVersion == "" {
		t.Error("TLSVersion should be set")
	}

	// Without the CA the certificate is not trusted.
	untrusted, err := NewProber(ProbeOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := untrusted.Probe(context.Background(), srv.URL); err == nil {
		t.Error("Probe() should fail without the CA")
	}
}

func TestProbe_H2C(t *testing.T) {
	srv := httptest.NewServer(h2c.NewHandler(echoHandler(t), &http2.Server{}))
	defer srv.Close()

	p, err := NewProber(ProbeOptions{H2C: true})
	if err != nil {
		t.Fatal(err)
	}
	defer p.CloseIdleConnections()

	res, err := p.Probe(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Probe() error = %v", err)
	}
	if res.Proto != "HTTP/2.0" {
		t.Errorf("Proto = %q, want HTTP/2.0", res.Proto)
	}
}
