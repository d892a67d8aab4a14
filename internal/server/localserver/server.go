package localserver

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"sync/atomic"
	"time"

	"github.com/yndnr/srvboot-go/internal/telemetry/logger"
)

// Controller is the part of the running server the management socket
// reports on and controls.
type Controller interface {
	StateName() string
	InFlight() int64
	Addr() net.Addr
}

// ShutdownFunc requests a graceful shutdown with the given grace period
// (zero means the configured default). It reports false if shutdown was
// already requested.
type ShutdownFunc func(grace time.Duration) bool

// Server represents the local management server.
type Server struct {
	path     string
	ctrl     Controller
	shutdown ShutdownFunc
	logger   logger.Logger
	started  time.Time

	listener net.Listener
	srv      *http.Server
	running  atomic.Bool
}

// New creates a new local server.
func New(socketPath string, ctrl Controller, shutdown ShutdownFunc, l logger.Logger) *Server {
	if l == nil {
		l = logger.Nop()
	}
	s := &Server{
		path:     socketPath,
		ctrl:     ctrl,
		shutdown: shutdown,
		logger:   l.With("component", "localserver"),
		started:  time.Now(),
	}
	s.srv = &http.Server{
		Handler:           s.routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Listen binds the socket, replacing a stale socket file left by a
// previous process. The socket is only accessible to its owner.
func (s *Server) Listen() error {
	if err := removeStale(s.path); err != nil {
		return err
	}
	ln, err := net.Listen("unix", s.path)
	if err != nil {
		return fmt.Errorf("localserver: listen %s: %w", s.path, err)
	}
	if err := os.Chmod(s.path, 0o600); err != nil {
		ln.Close()
		return fmt.Errorf("localserver: chmod %s: %w", s.path, err)
	}
	s.listener = ln
	return nil
}

// Serve serves requests until Shutdown. Listen must have succeeded.
func (s *Server) Serve() error {
	if s.listener == nil {
		return errors.New("localserver: not listening")
	}
	s.running.Store(true)
	s.logger.Info("local management socket ready", "path", s.path)

	err := s.srv.Serve(s.listener)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// ListenAndServe binds the socket and serves until Shutdown.
func (s *Server) ListenAndServe() error {
	if err := s.Listen(); err != nil {
		return err
	}
	return s.Serve()
}

// Shutdown stops the server, waits for in-progress requests within ctx
// and removes the socket file.
func (s *Server) Shutdown(ctx context.Context) error {
	s.running.Store(false)
	err := s.srv.Shutdown(ctx)
	if rmErr := os.Remove(s.path); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
		err = errors.Join(err, rmErr)
	}
	return err
}

// Running reports whether Serve is active.
func (s *Server) Running() bool {
	return s.running.Load()
}

// removeStale deletes path if it is a socket nobody is listening on.
func removeStale(path string) error {
	info, err := os.Lstat(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	if info.Mode()&os.ModeSocket == 0 {
		return fmt.Errorf("localserver: %s exists and is not a socket", path)
	}
	if c, err := net.DialTimeout("unix", path, 200*time.Millisecond); err == nil {
		c.Close()
		return fmt.Errorf("localserver: %s is in use", path)
	}
	return os.Remove(path)
}
