package httpserver

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/yndnr/srvboot-go/internal/core/domain"
	"github.com/yndnr/srvboot-go/internal/server/conn"
	"github.com/yndnr/srvboot-go/internal/telemetry/logger"
	"github.com/yndnr/srvboot-go/internal/telemetry/metric"
)

// EngineConfig configures an Engine.
type EngineConfig struct {
	// Handler serves requests that every interceptor let through.
	Handler http.Handler
	// Interceptors run in order before Handler.
	Interceptors []Interceptor
	// Mapper renders errors. Nil uses the built-in kinds.
	Mapper *domain.Mapper

	ReadHeaderTimeout time.Duration
	MaxHeaderBytes    int
	// MaxConcurrentStreams limits HTTP/2 streams per connection.
	MaxConcurrentStreams uint32

	Logger  logger.Logger
	Metrics *metric.Registry
}

// Engine serves bootstrap connections with net/http. TLS connections get
// HTTP/2 through ALPN; plaintext connections accept HTTP/1.1 and h2c.
//
// Connections handed over after Drain started were accepted before the
// drain and must still be served. http.Server stops accepting once
// Shutdown is called, so those go to a second server with keep-alives
// off that lives until Close.
type Engine struct {
	srv     *http.Server
	late    *http.Server
	ln      *connListener
	mapper  *domain.Mapper
	logger  logger.Logger
	metrics *metric.Registry

	interceptors atomic.Pointer[[]Interceptor]
	useMu        sync.Mutex

	// served maps the stream handed to net/http back to its connection.
	served sync.Map

	serveErr  chan error
	lateErr   chan error
	drainOnce sync.Once
	lateUp    bool
	closeOnce sync.Once
}

// NewEngine creates an Engine and starts its http.Server.
func NewEngine(cfg EngineConfig) (*Engine, error) {
	if cfg.Handler == nil {
		return nil, errors.New("httpserver: handler is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.Nop()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = metric.NewRegistry()
	}
	if cfg.ReadHeaderTimeout == 0 {
		cfg.ReadHeaderTimeout = 10 * time.Second
	}
	if cfg.MaxHeaderBytes == 0 {
		cfg.MaxHeaderBytes = http.DefaultMaxHeaderBytes
	}

	e := &Engine{
		ln:       newConnListener(),
		mapper:   cfg.Mapper,
		logger:   cfg.Logger.With("component", "http"),
		metrics:  cfg.Metrics,
		serveErr: make(chan error, 1),
		lateErr:  make(chan error, 1),
	}
	e.Use(cfg.Interceptors...)

	handler := Chain(cfg.Handler,
		Recover(e.mapper),
		RequestID(),
		Instrument(e.metrics),
		e.intercept,
	)

	var err error
	if e.srv, err = e.newServer(handler, cfg); err != nil {
		return nil, err
	}
	if e.late, err = e.newServer(handler, cfg); err != nil {
		return nil, err
	}
	e.late.SetKeepAlivesEnabled(false)

	go func() {
		e.serveErr <- e.srv.Serve(e.ln.gate())
	}()
	return e, nil
}

func (e *Engine) newServer(handler http.Handler, cfg EngineConfig) (*http.Server, error) {
	h2 := &http2.Server{MaxConcurrentStreams: cfg.MaxConcurrentStreams}
	srv := &http.Server{
		Handler:           h2c.NewHandler(handler, h2),
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
		ConnContext:       e.connContext,
		ConnState:         e.connState,
		ErrorLog:          newErrorLog(e.logger),
	}
	if err := http2.ConfigureServer(srv, h2); err != nil {
		return nil, err
	}
	return srv, nil
}

// Use appends interceptors. It is safe to call while serving; requests
// already in the chain keep the previous list.
func (e *Engine) Use(ics ...Interceptor) {
	if len(ics) == 0 {
		return
	}
	e.useMu.Lock()
	defer e.useMu.Unlock()

	var next []Interceptor
	if cur := e.interceptors.Load(); cur != nil {
		next = append(next, *cur...)
	}
	next = append(next, ics...)
	e.interceptors.Store(&next)
}

// ServeConn hands c to net/http and blocks until the connection is closed
// or ctx is cancelled.
func (e *Engine) ServeConn(ctx context.Context, c *conn.Conn) error {
	stream := c.Stream()
	e.served.Store(stream, c)
	defer e.served.Delete(stream)

	if err := e.ln.push(ctx, stream); err != nil {
		return err
	}

	select {
	case <-c.Done():
	case <-ctx.Done():
		return ctx.Err()
	}
	if c.IdleExpired() {
		return conn.ErrIdleTimeout
	}
	return nil
}

// Drain closes idle keep-alive connections and sends GOAWAY on HTTP/2
// ones, then waits for active requests until ctx expires. Connections
// handed over by ServeConn afterwards are still served, one request each.
func (e *Engine) Drain(ctx context.Context) error {
	e.drainOnce.Do(func() {
		e.lateUp = true
		go func() {
			e.lateErr <- e.late.Serve(e.ln.gate())
		}()
	})
	e.srv.SetKeepAlivesEnabled(false)
	return e.srv.Shutdown(ctx)
}

// Close refuses further connections and stops both servers immediately.
func (e *Engine) Close() error {
	var err error
	e.closeOnce.Do(func() {
		e.drainOnce.Do(func() {})
		e.ln.Close()

		err = errors.Join(e.srv.Close(), e.late.Close())
		if serr := <-e.serveErr; serr != nil && !errors.Is(serr, http.ErrServerClosed) {
			err = errors.Join(err, serr)
		}
		if e.lateUp {
			if serr := <-e.lateErr; serr != nil && !errors.Is(serr, http.ErrServerClosed) {
				err = errors.Join(err, serr)
			}
		}
	})
	return err
}

func (e *Engine) connContext(ctx context.Context, nc net.Conn) context.Context {
	ctx = logger.WithLogger(ctx, e.logger)
	v, ok := e.served.Load(nc)
	if !ok {
		return ctx
	}
	c := v.(*conn.Conn)
	ctx = context.WithValue(ctx, connKey{}, c)
	return logger.WithConnID(ctx, c.ID())
}

func (e *Engine) connState(nc net.Conn, state http.ConnState) {
	if state == http.StateHijacked {
		e.logger.Debug("connection hijacked", "peer", conn.CanonicalAddr(nc.RemoteAddr()))
	}
}

type connKey struct{}

// ConnFromContext returns the connection serving the request, if any.
func ConnFromContext(ctx context.Context) *conn.Conn {
	c, _ := ctx.Value(connKey{}).(*conn.Conn)
	return c
}

// connListener feeds connections pushed by ServeConn to http.Server. It
// refuses pushes only after Close; each server reads it through its own
// gate, which http.Server.Shutdown may close independently.
type connListener struct {
	conns chan net.Conn
	done  chan struct{}
	once  sync.Once
}

func newConnListener() *connListener {
	return &connListener{
		conns: make(chan net.Conn),
		done:  make(chan struct{}),
	}
}

func (l *connListener) gate() *acceptGate {
	return &acceptGate{l: l, closed: make(chan struct{})}
}

func (l *connListener) push(ctx context.Context, c net.Conn) error {
	select {
	case l.conns <- c:
		return nil
	case <-l.done:
		return domain.New(domain.KindUnavailable, "http engine is shut down")
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (l *connListener) Close() error {
	l.once.Do(func() { close(l.done) })
	return nil
}

// acceptGate is one http.Server's view of a connListener.
type acceptGate struct {
	l      *connListener
	closed chan struct{}
	once   sync.Once
}

func (g *acceptGate) Accept() (net.Conn, error) {
	select {
	case c := <-g.l.conns:
		return c, nil
	case <-g.closed:
		return nil, net.ErrClosed
	case <-g.l.done:
		return nil, net.ErrClosed
	}
}

func (g *acceptGate) Close() error {
	g.once.Do(func() { close(g.closed) })
	return nil
}

func (g *acceptGate) Addr() net.Addr {
	return engineAddr{}
}

type engineAddr struct{}

func (engineAddr) Network() string { return "bootstrap" }
func (engineAddr) String() string  { return "bootstrap" }

// newErrorLog routes net/http's own error log to the structured logger.
// Panics are warnings; connection-level chatter is debug.
func newErrorLog(l logger.Logger) *log.Logger {
	return log.New(logWriter{l: l}, "", 0)
}

type logWriter struct {
	l logger.Logger
}

func (w logWriter) Write(p []byte) (int, error) {
	msg := strings.TrimSpace(string(p))
	if strings.Contains(msg, "panic") {
		w.l.Warn("http server", "detail", msg)
	} else {
		w.l.Debug("http server", "detail", msg)
	}
	return len(p), nil
}
