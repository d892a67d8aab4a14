package conn

import (
	"errors"
	"io"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"github.com/yndnr/srvboot-go/internal/core/domain"
)

func TestIdleConn_ExpiresWhenIdle(t *testing.T) {
	server, client := net.Pipe()
	defer client.Close()

	var fired atomic.Int32
	start := time.Now()
	ic := NewIdleConn(server, 50*time.Millisecond, func() { fired.Add(1) })

	select {
	case <-ic.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("idle connection was not closed")
	}

	if elapsed := time.Since(start); elapsed < 50*time.Millisecond {
		t.Errorf("closed after %v, before the timeout", elapsed)
	}
	if !ic.Expired() {
		t.Error("Expired() = false")
	}
	if fired.Load() != 1 {
		t.Errorf("onExpire called %d times, want 1", fired.Load())
	}

	_, err := ic.Read(make([]byte, 1))
	if !errors.Is(err, ErrIdleTimeout) {
		t.Fatalf("Read() error = %v, want ErrIdleTimeout", err)
	}
	if !errors.Is(err, domain.ErrIdleTimeout) {
		t.Error("ErrIdleTimeout should match domain.ErrIdleTimeout")
	}
	if errors.Is(err, io.EOF) {
		t.Error("idle timeout must be distinct from io.EOF")
	}
	var ne net.Error
	if !errors.As(err, &ne) || !ne.Timeout() {
		t.Error("ErrIdleTimeout should be a net.Error with Timeout() true")
	}
	if _, err := ic.Write([]byte("x")); !errors.Is(err, ErrIdleTimeout) {
		t.Errorf("Write() error = %v, want ErrIdleTimeout", err)
	}
}

func TestIdleConn_ActivityKeepsAlive(t *testing.T) {
	server, client := net.Pipe()
	defer client.Close()

	ic := NewIdleConn(server, 80*time.Millisecond, nil)
	defer ic.Close()

	go io.Copy(io.Discard, client)

	deadline := time.Now().Add(300 * time.Millisecond)
	for time.Now().Before(deadline) {
		if _, err := ic.Write([]byte("ping")); err != nil {
			t.Fatalf("Write() error = %v", err)
		}
		time.Sleep(20 * time.Millisecond)
	}

	if ic.Expired() {
		t.Error("connection with regular activity expired")
	}
}

func TestIdleConn_UnblocksPendingRead(t *testing.T) {
	server, client := net.Pipe()
	defer client.Close()

	ic := NewIdleConn(server, 40*time.Millisecond, nil)

	errc := make(chan error, 1)
	go func() {
		_, err := ic.Read(make([]byte, 16))
		errc <- err
	}()

	select {
	case err := <-errc:
		if !errors.Is(err, ErrIdleTimeout) {
			t.Errorf("Read() error = %v, want ErrIdleTimeout", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("blocked Read() was not released by the idle timeout")
	}
}

func TestIdleConn_PeerCloseIsEOF(t *testing.T) {
	server, client := net.Pipe()
	ic := NewIdleConn(server, time.Second, nil)
	defer ic.Close()

	client.Close()

	_, err := ic.Read(make([]byte, 1))
	if !errors.Is(err, io.EOF) {
		t.Errorf("Read() error = %v, want io.EOF", err)
	}
	if ic.Expired() {
		t.Error("peer close reported as expiry")
	}
}

func TestIdleConn_CloseIdempotent(t *testing.T) {
	server, client := net.Pipe()
	defer client.Close()

	var fired atomic.Int32
	ic := NewIdleConn(server, 30*time.Millisecond, func() { fired.Add(1) })

	if err := ic.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	ic.Close()

	time.Sleep(80 * time.Millisecond)
	if fired.Load() != 0 {
		t.Error("onExpire ran after explicit Close()")
	}
	select {
	case <-ic.Done():
	default:
		t.Error("Done() not closed after Close()")
	}
}

func TestIdleConn_LastActivity(t *testing.T) {
	server, client := net.Pipe()
	defer client.Close()
	ic := NewIdleConn(server, time.Second, nil)
	defer ic.Close()

	before := ic.LastActivity()
	go client.Write([]byte("a"))
	time.Sleep(10 * time.Millisecond)
	if _, err := ic.Read(make([]byte, 1)); err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if !ic.LastActivity().After(before) {
		t.Error("LastActivity() did not advance after a read")
	}
	if ic.Timeout() != time.Second {
		t.Errorf("Timeout() = %v", ic.Timeout())
	}
}

func TestNewIdleConn_RejectsNonPositive(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("NewIdleConn(0) did not panic")
		}
	}()
	server, client := net.Pipe()
	defer client.Close()
	defer server.Close()
	NewIdleConn(server, 0, nil)
}
