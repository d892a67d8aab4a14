package listener

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"testing"
	"time"

	"github.com/yndnr/srvboot-go/internal/core/domain"
)

func hasIPv6Loopback() bool {
	ln, err := net.Listen("tcp6", "[::1]:0")
	if err != nil {
		return false
	}
	ln.Close()
	return true
}

// echoOnce greets every accepted connection and closes it.
func echoOnce(t *testing.T, ln net.Listener) {
	t.Helper()
	go func() {
		for {
			c, err := ln.Accept()
			if err != nil {
				return
			}
			go func(c net.Conn) {
				defer c.Close()
				fmt.Fprint(c, "hello")
			}(c)
		}
	}()
}

func dialAndRead(t *testing.T, network, addr string) {
	t.Helper()
	c, err := net.DialTimeout(network, addr, 2*time.Second)
	if err != nil {
		t.Fatalf("Dial(%s, %s) error = %v", network, addr, err)
	}
	defer c.Close()
	c.SetDeadline(time.Now().Add(2 * time.Second))

	b, err := io.ReadAll(c)
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}
	if string(b) != "hello" {
		t.Errorf("read %q, want hello", b)
	}
}

func TestListen_BothFamilies(t *testing.T) {
	if !hasIPv6Loopback() {
		t.Skip("no IPv6 loopback on this host")
	}

	for _, policy := range []FallbackPolicy{FallbackAuto, FallbackSplit} {
		t.Run(string(policy), func(t *testing.T) {
			ln, err := Listen(context.Background(), Config{DualStack: true, Fallback: policy, ReuseAddr: true})
			if err != nil {
				t.Fatalf("Listen() error = %v", err)
			}
			defer ln.Close()
			echoOnce(t, ln)

			port := ln.Addr().(*net.TCPAddr).Port
			dialAndRead(t, "tcp4", fmt.Sprintf("127.0.0.1:%d", port))
			dialAndRead(t, "tcp6", fmt.Sprintf("[::1]:%d", port))
		})
	}
}

func TestListen_Modes(t *testing.T) {
	if !hasIPv6Loopback() {
		t.Skip("no IPv6 loopback on this host")
	}

	tests := []struct {
		name  string
		cfg   Config
		mode  Mode
		addrs int
	}{
		{"dual-stack", Config{DualStack: true, Fallback: FallbackNever}, ModeDualStack, 1},
		{"split", Config{DualStack: true, Fallback: FallbackSplit}, ModeSplit, 2},
		{"ipv4 only", Config{DualStack: false}, ModeSingle, 1},
		{"explicit host", Config{Host: "127.0.0.1", DualStack: true}, ModeSingle, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ln, err := Listen(context.Background(), tt.cfg)
			if err != nil {
				t.Fatalf("Listen() error = %v", err)
			}
			defer ln.Close()

			if ln.Mode() != tt.mode {
				t.Errorf("Mode() = %v, want %v", ln.Mode(), tt.mode)
			}
			if got := len(ln.Addrs()); got != tt.addrs {
				t.Errorf("len(Addrs()) = %d, want %d", got, tt.addrs)
			}
		})
	}
}

func TestListen_PortInUse(t *testing.T) {
	taken, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("net.Listen() error = %v", err)
	}
	defer taken.Close()
	port := taken.Addr().(*net.TCPAddr).Port

	_, err = Listen(context.Background(), Config{Host: "127.0.0.1", Port: port})
	if err == nil {
		t.Fatal("Listen() on a taken port should fail")
	}
	if !errors.Is(err, domain.ErrBind) {
		t.Errorf("error = %v, want BindError", err)
	}
}

func TestListen_InvalidConfig(t *testing.T) {
	tests := []Config{
		{Port: -1},
		{Port: 70000},
		{DualStack: true, Fallback: "sometimes"},
	}
	for _, cfg := range tests {
		if _, err := Listen(context.Background(), cfg); !domain.IsKind(err, domain.KindBind) {
			t.Errorf("Listen(%+v) error = %v, want BindError", cfg, err)
		}
	}
}

func TestMultiListener_CloseUnblocksAccept(t *testing.T) {
	a, _ := net.Listen("tcp4", "127.0.0.1:0")
	b, _ := net.Listen("tcp4", "127.0.0.1:0")
	ml := newMultiListener(a, b)

	errc := make(chan error, 1)
	go func() {
		_, err := ml.Accept()
		errc <- err
	}()

	time.Sleep(20 * time.Millisecond)
	if err := ml.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	select {
	case err := <-errc:
		if !errors.Is(err, net.ErrClosed) {
			t.Errorf("Accept() error = %v, want net.ErrClosed", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Accept() did not return after Close()")
	}

	// Close is idempotent.
	if err := ml.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
}

func TestMultiListener_MergesStreams(t *testing.T) {
	a, _ := net.Listen("tcp4", "127.0.0.1:0")
	b, _ := net.Listen("tcp4", "127.0.0.1:0")
	ml := newMultiListener(a, b)
	defer ml.Close()

	for _, addr := range []string{a.Addr().String(), b.Addr().String()} {
		c, err := net.Dial("tcp4", addr)
		if err != nil {
			t.Fatalf("Dial() error = %v", err)
		}
		defer c.Close()

		got, err := ml.Accept()
		if err != nil {
			t.Fatalf("Accept() error = %v", err)
		}
		got.Close()
	}
}

func TestModeString(t *testing.T) {
	for m, want := range map[Mode]string{
		ModeSingle: "single", ModeDualStack: "dual-stack", ModeSplit: "split", ModeIPv4Only: "ipv4-only",
	} {
		if m.String() != want {
			t.Errorf("Mode(%d).String() = %q, want %q", m, m.String(), want)
		}
	}
}
