package bootstrap

import (
	"context"
	"errors"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/yndnr/srvboot-go/internal/core/domain"
	"github.com/yndnr/srvboot-go/internal/server/conn"
	"github.com/yndnr/srvboot-go/internal/telemetry/logger"
	"github.com/yndnr/srvboot-go/internal/telemetry/metric"
	"github.com/yndnr/srvboot-go/pkg/cmap"
)

const (
	// DefaultIdleTimeout closes connections with no completed I/O.
	DefaultIdleTimeout = 120 * time.Second
	// DefaultHandshakeTimeout bounds the transport upgrade.
	DefaultHandshakeTimeout = 10 * time.Second
	// DefaultGracePeriod is used when Serve's context is cancelled.
	DefaultGracePeriod = 10 * time.Second

	minAcceptBackoff = 5 * time.Millisecond
	maxAcceptBackoff = time.Second
)

// Options configures a Server.
type Options struct {
	// Listener is a bound endpoint. The server closes it on shutdown.
	Listener net.Listener
	// Transport defaults to Plain.
	Transport Transport
	// Engine serves established connections. Required.
	Engine Engine

	IdleTimeout      time.Duration
	HandshakeTimeout time.Duration
	// GracePeriod applies when Serve's context is cancelled.
	GracePeriod time.Duration

	Logger  logger.Logger
	Metrics *metric.Registry
}

// Server accepts connections and coordinates their shutdown.
type Server struct {
	ln               net.Listener
	transport        Transport
	engine           Engine
	idleTimeout      time.Duration
	handshakeTimeout time.Duration
	grace            time.Duration
	logger           logger.Logger
	metrics          *metric.Registry

	state    atomic.Int32
	inflight atomic.Int64
	nextID   atomic.Uint64
	serving  atomic.Bool

	// conns holds every connection that may still need a forced close.
	conns *cmap.Map[uint64, *conn.Conn]

	// idle is signalled when the in-flight count drops to zero while
	// not running.
	idle     chan struct{}
	draining chan struct{}
	stopped  chan struct{}

	connCtx     context.Context
	cancelConns context.CancelFunc

	shutdownOnce sync.Once
	report       Report
}

// New validates opts and creates a Server in the Running state.
func New(opts Options) (*Server, error) {
	if opts.Listener == nil {
		return nil, errors.New("bootstrap: listener is required")
	}
	if opts.Engine == nil {
		return nil, errors.New("bootstrap: engine is required")
	}
	if opts.IdleTimeout < 0 || opts.HandshakeTimeout < 0 || opts.GracePeriod < 0 {
		return nil, errors.New("bootstrap: timeouts must not be negative")
	}
	if opts.Transport == nil {
		opts.Transport = Plain()
	}
	if opts.IdleTimeout == 0 {
		opts.IdleTimeout = DefaultIdleTimeout
	}
	if opts.HandshakeTimeout == 0 {
		opts.HandshakeTimeout = DefaultHandshakeTimeout
	}
	if opts.GracePeriod == 0 {
		opts.GracePeriod = DefaultGracePeriod
	}
	if opts.Logger == nil {
		opts.Logger = logger.Nop()
	}
	if opts.Metrics == nil {
		opts.Metrics = metric.NewRegistry()
	}

	s := &Server{
		ln:               opts.Listener,
		transport:        opts.Transport,
		engine:           opts.Engine,
		idleTimeout:      opts.IdleTimeout,
		handshakeTimeout: opts.HandshakeTimeout,
		grace:            opts.GracePeriod,
		logger:           opts.Logger.With("component", "bootstrap"),
		metrics:          opts.Metrics,
		conns:            cmap.New[uint64, *conn.Conn](),
		idle:             make(chan struct{}, 1),
		draining:         make(chan struct{}),
		stopped:          make(chan struct{}),
	}
	s.connCtx, s.cancelConns = context.WithCancel(context.Background())
	return s, nil
}

// Serve runs the accept loop. It returns nil once the server reaches
// Stopped after a shutdown, or an AcceptError if the listener fails while
// running. Cancelling ctx starts a shutdown with the configured grace
// period; it does not cancel the contexts of connections already served.
func (s *Server) Serve(ctx context.Context) error {
	if !s.serving.CompareAndSwap(false, true) {
		return errors.New("bootstrap: Serve called twice")
	}

	stopWatch := context.AfterFunc(ctx, func() {
		s.logger.Info("context cancelled, shutting down", "grace", s.grace.String())
		s.Shutdown(s.grace)
	})
	defer stopWatch()

	s.logger.Info("accepting connections",
		"addr", s.ln.Addr().String(),
		"transport", s.transport.Name(),
		"idle_timeout", s.idleTimeout.String(),
	)

	var backoff time.Duration
	for {
		raw, err := s.ln.Accept()
		if err != nil {
			if s.State() != StateRunning {
				<-s.stopped
				return nil
			}
			if errors.Is(err, net.ErrClosed) {
				return domain.Wrap(domain.KindAccept, "listener closed while running", err)
			}

			backoff = nextBackoff(backoff)
			s.metrics.AcceptErrors.Inc()
			s.logger.Warn("accept failed, retrying", "error", err, "backoff", backoff.String())
			select {
			case <-time.After(backoff):
			case <-s.draining:
			}
			continue
		}
		backoff = 0
		s.dispatch(raw)
	}
}

func nextBackoff(d time.Duration) time.Duration {
	if d == 0 {
		return minAcceptBackoff
	}
	return min(d*2, maxAcceptBackoff)
}

// dispatch counts the connection in flight, then re-checks the state so
// that nothing accepted after draining began is ever served. Registering
// before the check means a forced close either sees the connection or the
// connection sees the drain.
func (s *Server) dispatch(raw net.Conn) {
	s.inflight.Add(1)

	id := s.nextID.Add(1)
	c := conn.New(id, raw, s.idleTimeout, s.metrics.IdleTimeouts.Inc)
	s.conns.Set(id, c)

	if s.State() != StateRunning {
		s.conns.Delete(id)
		c.ForceClose()
		s.metrics.ConnectionsRejected.Inc()
		s.releaseSlot()
		return
	}

	s.metrics.ConnectionsAccepted.Inc()
	go s.serveConn(c)
}

func (s *Server) serveConn(c *conn.Conn) {
	defer s.release(c)

	hctx, cancel := context.WithTimeout(s.connCtx, s.handshakeTimeout)
	err := s.transport.Upgrade(hctx, c)
	cancel()
	if err != nil {
		s.metrics.HandshakeFailures.Inc()
		s.logger.Debug("connection upgrade failed", "peer", c.Peer(), "conn_id", c.ID(), "error", err)
		c.ForceClose()
		return
	}

	ctx := logger.WithConnID(s.connCtx, c.ID())
	if err := s.engine.ServeConn(ctx, c); err != nil {
		s.logConnError(c, err)
	}
	c.ForceClose()
}

// release runs after the connection is fully torn down.
func (s *Server) release(c *conn.Conn) {
	s.conns.Delete(c.ID())
	s.metrics.ConnectionDuration.Observe(time.Since(c.CreatedAt()).Seconds())
	s.releaseSlot()
}

func (s *Server) releaseSlot() {
	if s.inflight.Add(-1) == 0 && s.State() != StateRunning {
		select {
		case s.idle <- struct{}{}:
		default:
		}
	}
}

// logConnError logs peer-side and idle faults at debug and anything else
// at warn.
func (s *Server) logConnError(c *conn.Conn, err error) {
	kv := []any{"peer", c.Peer(), "conn_id", c.ID(), "mode", c.Mode().String(), "error", err}
	switch {
	case c.IdleExpired(), errors.Is(err, conn.ErrIdleTimeout):
		s.logger.Debug("connection idle timeout", kv...)
	case errors.Is(err, io.EOF), errors.Is(err, net.ErrClosed),
		errors.Is(err, syscall.ECONNRESET), errors.Is(err, syscall.EPIPE):
		s.logger.Debug("connection closed by peer", kv...)
	default:
		s.logger.Warn("connection error", kv...)
	}
}

// State returns the current lifecycle state.
func (s *Server) State() State {
	return State(s.state.Load())
}

// StateName returns the state as a string.
func (s *Server) StateName() string {
	return s.State().String()
}

// InFlight returns the number of connections accepted and not yet torn
// down.
func (s *Server) InFlight() int64 {
	return s.inflight.Load()
}

// Addr returns the listener address.
func (s *Server) Addr() net.Addr {
	return s.ln.Addr()
}

// Done is closed when the server reaches Stopped.
func (s *Server) Done() <-chan struct{} {
	return s.stopped
}
