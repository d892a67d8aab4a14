package bootstrap

import (
	"bufio"
	"context"
	"crypto/tls"
	"errors"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/yndnr/srvboot-go/internal/core/domain"
	"github.com/yndnr/srvboot-go/internal/infra/tlsroots"
	"github.com/yndnr/srvboot-go/internal/infra/tlsroots/tlstest"
	"github.com/yndnr/srvboot-go/internal/server/conn"
	"github.com/yndnr/srvboot-go/internal/telemetry/metric"
)

// ============================================================
// Helpers
// ============================================================

// echoEngine echoes lines until the peer goes away.
var echoEngine = EngineFunc(func(_ context.Context, c *conn.Conn) error {
	r := bufio.NewReader(c.Stream())
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return err
		}
		if _, err := c.Stream().Write([]byte(line)); err != nil {
			return err
		}
	}
})

func startServer(t *testing.T, opts Options) (*Server, <-chan error) {
	t.Helper()

	if opts.Listener == nil {
		ln, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			t.Fatalf("listen: %v", err)
		}
		opts.Listener = ln
	}
	if opts.Engine == nil {
		opts.Engine = echoEngine
	}

	s, err := New(opts)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	errCh := make(chan error, 1)
	go func() { errCh <- s.Serve(context.Background()) }()
	t.Cleanup(func() {
		s.Shutdown(100 * time.Millisecond)
	})
	return s, errCh
}

func roundTrip(t *testing.T, c net.Conn, msg string) string {
	t.Helper()
	c.SetDeadline(time.Now().Add(5 * time.Second))
	if _, err := io.WriteString(c, msg+"\n"); err != nil {
		t.Fatalf("write: %v", err)
	}
	line, err := bufio.NewReader(c).ReadString('\n')
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	return line[:len(line)-1]
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

// ============================================================
// Construction
// ============================================================

func TestNew_Validation(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()

	tests := []struct {
		name string
		opts Options
	}{
		{"no listener", Options{Engine: echoEngine}},
		{"no engine", Options{Listener: ln}},
		{"negative idle", Options{Listener: ln, Engine: echoEngine, IdleTimeout: -time.Second}},
		{"negative grace", Options{Listener: ln, Engine: echoEngine, GracePeriod: -time.Second}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(tt.opts); err == nil {
				t.Error("New() should fail")
			}
		})
	}
}

func TestNew_Defaults(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()

	s, err := New(Options{Listener: ln, Engine: echoEngine})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if s.idleTimeout != DefaultIdleTimeout {
		t.Errorf("idleTimeout = %v, want %v", s.idleTimeout, DefaultIdleTimeout)
	}
	if s.handshakeTimeout != DefaultHandshakeTimeout {
		t.Errorf("handshakeTimeout = %v, want %v", s.handshakeTimeout, DefaultHandshakeTimeout)
	}
	if s.transport.Name() != "plain" {
		t.Errorf("transport = %s, want plain", s.transport.Name())
	}
	if s.State() != StateRunning {
		t.Errorf("State() = %v, want running", s.State())
	}
}

// ============================================================
// Serving
// ============================================================

func TestServer_PlainEcho(t *testing.T) {
	s, _ := startServer(t, Options{})

	c, err := net.Dial("tcp", s.Addr().String())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer c.Close()

	if got := roundTrip(t, c, "hello"); got != "hello" {
		t.Errorf("echo = %q, want hello", got)
	}
	if s.InFlight() != 1 {
		t.Errorf("InFlight() = %d, want 1", s.InFlight())
	}
}

func TestServer_TLSEcho(t *testing.T) {
	pair := tlstest.SelfSigned(t)
	tctx, err := tlsroots.Build(tlsroots.Source{CertPEM: pair.CertPEM, KeyPEM: pair.KeyPEM}, tlsroots.Options{})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	var negotiated atomic.Bool
	engine := EngineFunc(func(ctx context.Context, c *conn.Conn) error {
		if _, ok := c.TLSState(); ok && c.Mode() == conn.ModeTLS {
			negotiated.Store(true)
		}
		return echoEngine(ctx, c)
	})
	s, _ := startServer(t, Options{Transport: TLS(tlsroots.NewHolder(tctx)), Engine: engine})

	c, err := tls.Dial("tcp", s.Addr().String(), &tls.Config{RootCAs: pair.Pool(), ServerName: "localhost"})
	if err != nil {
		t.Fatalf("tls dial: %v", err)
	}
	defer c.Close()

	if got := roundTrip(t, c, "secure"); got != "secure" {
		t.Errorf("echo = %q, want secure", got)
	}
	if !negotiated.Load() {
		t.Error("engine did not see an established TLS connection")
	}
}

func TestServer_HandshakeFailureKeepsServing(t *testing.T) {
	pair := tlstest.SelfSigned(t)
	tctx, err := tlsroots.Build(tlsroots.Source{CertPEM: pair.CertPEM, KeyPEM: pair.KeyPEM}, tlsroots.Options{})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	reg := metric.NewRegistry()
	s, _ := startServer(t, Options{Transport: TLS(tlsroots.NewHolder(tctx)), Metrics: reg})

	bad, err := net.Dial("tcp", s.Addr().String())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	io.WriteString(bad, "GET / HTTP/1.1\r\nHost: x\r\n\r\n")
	bad.SetReadDeadline(time.Now().Add(5 * time.Second))
	io.Copy(io.Discard, bad)
	bad.Close()

	waitFor(t, "handshake failure", func() bool {
		return testutil.ToFloat64(reg.HandshakeFailures) == 1
	})

	good, err := tls.Dial("tcp", s.Addr().String(), &tls.Config{RootCAs: pair.Pool(), ServerName: "localhost"})
	if err != nil {
		t.Fatalf("tls dial after failure: %v", err)
	}
	defer good.Close()
	if got := roundTrip(t, good, "still up"); got != "still up" {
		t.Errorf("echo = %q", got)
	}
}

func TestServer_IdleTimeoutClosesConnection(t *testing.T) {
	reg := metric.NewRegistry()
	s, _ := startServer(t, Options{IdleTimeout: 100 * time.Millisecond, Metrics: reg})

	c, err := net.Dial("tcp", s.Addr().String())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer c.Close()

	roundTrip(t, c, "ping")

	c.SetReadDeadline(time.Now().Add(5 * time.Second))
	start := time.Now()
	_, err = c.Read(make([]byte, 1))
	if err == nil {
		t.Fatal("expected the server to close the idle connection")
	}
	if elapsed := time.Since(start); elapsed < 50*time.Millisecond {
		t.Errorf("closed after %v, before the idle timeout", elapsed)
	}

	waitFor(t, "in-flight to drop", func() bool { return s.InFlight() == 0 })
	if got := testutil.ToFloat64(reg.IdleTimeouts); got != 1 {
		t.Errorf("IdleTimeouts = %v, want 1", got)
	}
}

func TestServer_InFlightReturnsToZero(t *testing.T) {
	s, _ := startServer(t, Options{})

	const clients = 32
	var wg sync.WaitGroup
	for i := 0; i < clients; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c, err := net.Dial("tcp", s.Addr().String())
			if err != nil {
				t.Errorf("dial: %v", err)
				return
			}
			defer c.Close()
			c.SetDeadline(time.Now().Add(5 * time.Second))
			io.WriteString(c, "x\n")
			bufio.NewReader(c).ReadString('\n')
		}()
	}
	wg.Wait()

	waitFor(t, "in-flight to drop", func() bool { return s.InFlight() == 0 })
}

// ============================================================
// Shutdown
// ============================================================

func TestServer_ShutdownClean(t *testing.T) {
	release := make(chan struct{})
	engine := EngineFunc(func(_ context.Context, c *conn.Conn) error {
		<-release
		io.WriteString(c.Stream(), "bye\n")
		return nil
	})
	s, errCh := startServer(t, Options{Engine: engine})

	c, err := net.Dial("tcp", s.Addr().String())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer c.Close()
	waitFor(t, "connection to be in flight", func() bool { return s.InFlight() == 1 })

	done := make(chan Report, 1)
	go func() { done <- s.Shutdown(5 * time.Second) }()

	waitFor(t, "draining", func() bool { return s.State() == StateDraining })
	if s.InFlight() != 1 {
		t.Errorf("InFlight() = %d while draining, want 1", s.InFlight())
	}

	close(release)

	c.SetReadDeadline(time.Now().Add(5 * time.Second))
	line, err := bufio.NewReader(c).ReadString('\n')
	if err != nil || line != "bye\n" {
		t.Fatalf("read = %q, %v; want the in-flight response", line, err)
	}

	report := <-done
	if !report.Clean || report.Forced != 0 {
		t.Errorf("report = %+v, want clean", report)
	}
	if report.Err() != nil {
		t.Errorf("report.Err() = %v, want nil", report.Err())
	}
	if s.State() != StateStopped {
		t.Errorf("State() = %v, want stopped", s.State())
	}
	if err := <-errCh; err != nil {
		t.Errorf("Serve() = %v, want nil", err)
	}
}

func TestServer_ShutdownForced(t *testing.T) {
	reg := metric.NewRegistry()
	engine := EngineFunc(func(_ context.Context, c *conn.Conn) error {
		<-c.Done()
		return nil
	})
	s, errCh := startServer(t, Options{Engine: engine, Metrics: reg})

	var conns []net.Conn
	for i := 0; i < 2; i++ {
		c, err := net.Dial("tcp", s.Addr().String())
		if err != nil {
			t.Fatalf("dial: %v", err)
		}
		defer c.Close()
		conns = append(conns, c)
	}
	waitFor(t, "connections in flight", func() bool { return s.InFlight() == 2 })

	report := s.Shutdown(50 * time.Millisecond)
	if report.Clean {
		t.Error("report.Clean = true, want false")
	}
	if report.Forced != 2 {
		t.Errorf("report.Forced = %d, want 2", report.Forced)
	}
	if !domain.IsKind(report.Err(), domain.KindForcedDrainClosure) {
		t.Errorf("report.Err() = %v, want ForcedDrainClosure", report.Err())
	}
	if s.State() != StateStopped {
		t.Errorf("State() = %v, want stopped", s.State())
	}
	if got := testutil.ToFloat64(reg.ForcedClosures); got != 2 {
		t.Errorf("ForcedClosures = %v, want 2", got)
	}

	for _, c := range conns {
		c.SetReadDeadline(time.Now().Add(5 * time.Second))
		if _, err := c.Read(make([]byte, 1)); err == nil {
			t.Error("forced connection still readable")
		}
	}
	if err := <-errCh; err != nil {
		t.Errorf("Serve() = %v, want nil", err)
	}
}

func TestServer_ShutdownIdleIsImmediate(t *testing.T) {
	s, _ := startServer(t, Options{})

	start := time.Now()
	report := s.Shutdown(5 * time.Second)
	if !report.Clean {
		t.Errorf("report = %+v, want clean", report)
	}
	if time.Since(start) > time.Second {
		t.Errorf("shutdown with nothing in flight took %v", time.Since(start))
	}
}

func TestServer_ShutdownConcurrentCallers(t *testing.T) {
	s, _ := startServer(t, Options{})

	var wg sync.WaitGroup
	reports := make([]Report, 4)
	for i := range reports {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			reports[i] = s.Shutdown(time.Second)
		}(i)
	}
	wg.Wait()

	for i, r := range reports[1:] {
		if r != reports[0] {
			t.Errorf("report %d = %+v, want %+v", i+1, r, reports[0])
		}
	}
}

func TestServer_AcceptAfterDrainIsNotServed(t *testing.T) {
	var served atomic.Int32
	engine := EngineFunc(func(context.Context, *conn.Conn) error {
		served.Add(1)
		return nil
	})
	reg := metric.NewRegistry()
	s, _ := startServer(t, Options{Engine: engine, Metrics: reg})
	s.Shutdown(time.Second)

	// Simulate a connection that raced the listener close.
	client, server := net.Pipe()
	defer client.Close()
	s.dispatch(server)

	client.SetReadDeadline(time.Now().Add(5 * time.Second))
	if _, err := client.Read(make([]byte, 1)); err == nil {
		t.Error("late connection should be closed")
	}
	if served.Load() != 0 {
		t.Errorf("engine served %d connections after drain", served.Load())
	}
	if s.InFlight() != 0 {
		t.Errorf("InFlight() = %d, want 0", s.InFlight())
	}
	if got := testutil.ToFloat64(reg.ConnectionsRejected); got != 1 {
		t.Errorf("ConnectionsRejected = %v, want 1", got)
	}
}

func TestServer_ContextCancelStops(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	s, err := New(Options{Listener: ln, Engine: echoEngine, GracePeriod: time.Second})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- s.Serve(ctx) }()
	cancel()

	select {
	case err := <-errCh:
		if err != nil {
			t.Errorf("Serve() = %v, want nil", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
	select {
	case <-s.Done():
	default:
		t.Error("Done() not closed")
	}
}

func TestServer_ListenerFailureWhileRunning(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	s, err := New(Options{Listener: ln, Engine: echoEngine})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	errCh := make(chan error, 1)
	go func() { errCh <- s.Serve(context.Background()) }()
	ln.Close()

	select {
	case err := <-errCh:
		if !errors.Is(err, domain.ErrAccept) {
			t.Errorf("Serve() = %v, want AcceptError", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return")
	}
}

func TestNextBackoff(t *testing.T) {
	d := time.Duration(0)
	for i := 0; i < 20; i++ {
		d = nextBackoff(d)
	}
	if d != maxAcceptBackoff {
		t.Errorf("backoff = %v, want cap %v", d, maxAcceptBackoff)
	}
	if got := nextBackoff(0); got != minAcceptBackoff {
		t.Errorf("first backoff = %v, want %v", got, minAcceptBackoff)
	}
}
