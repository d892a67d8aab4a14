package conn

import (
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/yndnr/srvboot-go/internal/core/domain"
)

// ErrIdleTimeout is returned by every operation on an IdleConn after it
// expired. It is a net.Error with Timeout() true and matches
// domain.ErrIdleTimeout, so it is never mistaken for a peer close (io.EOF).
var ErrIdleTimeout error = idleTimeoutError{}

type idleTimeoutError struct{}

func (idleTimeoutError) Error() string   { return "conn: idle timeout" }
func (idleTimeoutError) Timeout() bool   { return true }
func (idleTimeoutError) Temporary() bool { return false }
func (idleTimeoutError) Unwrap() error   { return domain.ErrIdleTimeout }

// aLongTimeAgo unblocks pending I/O when used as a deadline.
var aLongTimeAgo = time.Unix(1, 0)

// IdleConn closes the wrapped connection when no read or write has
// completed for the configured timeout.
//
// Completed operations only record a timestamp. A single timer checks
// that timestamp when it fires and re-arms for the remaining time, so the
// connection is never expired before timeout has passed since the last
// activity.
type IdleConn struct {
	net.Conn

	timeout  time.Duration
	born     time.Time
	last     atomic.Int64 // nanoseconds since born, monotonic
	expired  atomic.Bool
	closed   atomic.Bool
	timer    *time.Timer
	onExpire func()

	closeOnce sync.Once
	closeErr  error
	done      chan struct{}
}

// NewIdleConn wraps c. onExpire, if set, runs once after an idle expiry
// closed the connection. timeout must be positive.
func NewIdleConn(c net.Conn, timeout time.Duration, onExpire func()) *IdleConn {
	if timeout <= 0 {
		panic("conn: idle timeout must be positive")
	}
	ic := &IdleConn{
		Conn:     c,
		timeout:  timeout,
		born:     time.Now(),
		onExpire: onExpire,
		done:     make(chan struct{}),
	}
	ic.timer = time.AfterFunc(timeout, ic.check)
	return ic
}

func (c *IdleConn) Read(p []byte) (int, error) {
	if c.expired.Load() {
		return 0, ErrIdleTimeout
	}
	n, err := c.Conn.Read(p)
	if n > 0 || err == nil {
		c.touch()
	}
	if err != nil && c.expired.Load() {
		err = ErrIdleTimeout
	}
	return n, err
}

func (c *IdleConn) Write(p []byte) (int, error) {
	if c.expired.Load() {
		return 0, ErrIdleTimeout
	}
	n, err := c.Conn.Write(p)
	if n > 0 || err == nil {
		c.touch()
	}
	if err != nil && c.expired.Load() {
		err = ErrIdleTimeout
	}
	return n, err
}

// Close stops the timer and closes the underlying connection. It is safe
// to call more than once.
func (c *IdleConn) Close() error {
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		c.timer.Stop()
		c.closeErr = c.Conn.Close()
		close(c.done)
	})
	return c.closeErr
}

// Done is closed once the underlying connection has been closed.
func (c *IdleConn) Done() <-chan struct{} {
	return c.done
}

// Expired reports whether the connection was closed for inactivity.
func (c *IdleConn) Expired() bool {
	return c.expired.Load()
}

// LastActivity returns when the last read or write completed, or the
// creation time if none has.
func (c *IdleConn) LastActivity() time.Time {
	return c.born.Add(time.Duration(c.last.Load()))
}

// Timeout returns the configured inactivity limit.
func (c *IdleConn) Timeout() time.Duration {
	return c.timeout
}

func (c *IdleConn) touch() {
	c.last.Store(int64(time.Since(c.born)))
}

func (c *IdleConn) check() {
	if c.closed.Load() {
		return
	}
	idle := time.Since(c.born) - time.Duration(c.last.Load())
	if idle < c.timeout {
		c.timer.Reset(c.timeout - idle)
		return
	}
	c.expire()
}

func (c *IdleConn) expire() {
	if !c.expired.CompareAndSwap(false, true) {
		return
	}
	// Fail blocked operations now rather than at the next syscall.
	c.Conn.SetDeadline(aLongTimeAgo)
	c.Close()
	if c.onExpire != nil {
		c.onExpire()
	}
}
