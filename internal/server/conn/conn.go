package conn

import (
	"crypto/tls"
	"errors"
	"net"
	"net/netip"
	"sync/atomic"
	"time"
)

// Mode is the transport of an established connection.
type Mode uint8

const (
	// ModePending means the transport upgrade has not finished.
	ModePending Mode = iota
	ModePlain
	ModeTLS
)

func (m Mode) String() string {
	switch m {
	case ModePlain:
		return "plain"
	case ModeTLS:
		return "tls"
	default:
		return "pending"
	}
}

// ErrAlreadyEstablished is returned when a connection's transport is set twice.
var ErrAlreadyEstablished = errors.New("conn: transport already established")

// Conn is one accepted connection. The idle guard sits directly on the
// socket; the stream handed to the engine is either the guard itself or
// a TLS session over it.
type Conn struct {
	id        uint64
	guard     *IdleConn
	createdAt time.Time
	peer      string

	mode   atomic.Uint32
	stream atomic.Pointer[net.Conn]
}

// New wraps an accepted socket in an idle guard with the given timeout.
func New(id uint64, raw net.Conn, idleTimeout time.Duration, onIdle func()) *Conn {
	c := &Conn{
		id:        id,
		guard:     NewIdleConn(raw, idleTimeout, onIdle),
		createdAt: time.Now(),
		peer:      CanonicalAddr(raw.RemoteAddr()),
	}
	return c
}

// Guard returns the idle-guarded socket, for transports to build on.
func (c *Conn) Guard() *IdleConn {
	return c.guard
}

// Establish records the negotiated stream and mode. It succeeds once.
func (c *Conn) Establish(stream net.Conn, mode Mode) error {
	if mode == ModePending {
		return errors.New("conn: cannot establish pending mode")
	}
	if !c.mode.CompareAndSwap(uint32(ModePending), uint32(mode)) {
		return ErrAlreadyEstablished
	}
	c.stream.Store(&stream)
	return nil
}

// ID returns the server-unique connection number.
func (c *Conn) ID() uint64 { return c.id }

// Mode returns the established transport.
func (c *Conn) Mode() Mode { return Mode(c.mode.Load()) }

// Stream returns the connection the engine should serve. Before
// Establish it is the raw guarded socket.
func (c *Conn) Stream() net.Conn {
	if s := c.stream.Load(); s != nil {
		return *s
	}
	return c.guard
}

// CreatedAt returns the accept time.
func (c *Conn) CreatedAt() time.Time { return c.createdAt }

// LastActivity returns when the last read or write completed.
func (c *Conn) LastActivity() time.Time { return c.guard.LastActivity() }

// Peer returns the remote address with IPv4-mapped IPv6 shown as IPv4.
func (c *Conn) Peer() string { return c.peer }

// IdleExpired reports whether the idle guard closed the connection.
func (c *Conn) IdleExpired() bool { return c.guard.Expired() }

// Done is closed once the socket is closed, by any party.
func (c *Conn) Done() <-chan struct{} { return c.guard.Done() }

// TLSState returns the negotiated session for TLS connections.
func (c *Conn) TLSState() (tls.ConnectionState, bool) {
	if tc, ok := c.Stream().(*tls.Conn); ok {
		return tc.ConnectionState(), true
	}
	return tls.ConnectionState{}, false
}

// Close closes the stream, sending a TLS close_notify when applicable.
func (c *Conn) Close() error {
	return c.Stream().Close()
}

// ForceClose closes the socket immediately without any TLS alert.
func (c *Conn) ForceClose() error {
	c.guard.Conn.SetDeadline(aLongTimeAgo)
	return c.guard.Close()
}

// CanonicalAddr formats a peer address, unmapping IPv4-mapped IPv6.
func CanonicalAddr(addr net.Addr) string {
	if addr == nil {
		return ""
	}
	if tcp, ok := addr.(*net.TCPAddr); ok {
		ap := tcp.AddrPort()
		return netip.AddrPortFrom(ap.Addr().Unmap(), ap.Port()).String()
	}
	return addr.String()
}
