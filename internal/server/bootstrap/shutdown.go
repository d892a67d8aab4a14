package bootstrap

import (
	"context"
	"errors"
	"io"
	"net"
	"time"
)

// Shutdown drains the server and returns once it is Stopped.
//
// The listener is closed and the engine asked to drain. Connections
// already accepted keep running until they finish or grace elapses, at
// which point the rest are force-closed. Concurrent and repeated calls
// all return the report of the first.
func (s *Server) Shutdown(grace time.Duration) Report {
	s.shutdownOnce.Do(func() {
		s.drain(grace)
	})
	<-s.stopped
	return s.report
}

func (s *Server) drain(grace time.Duration) {
	start := time.Now()
	s.state.Store(int32(StateDraining))
	close(s.draining)

	s.logger.Info("draining", "inflight", s.InFlight(), "grace", grace.String())

	if err := s.ln.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
		s.logger.Warn("close listener", "error", err)
	}

	dctx, cancel := context.WithDeadline(context.Background(), start.Add(grace))
	defer cancel()
	if d, ok := s.engine.(Drainer); ok {
		go func() {
			if err := d.Drain(dctx); err != nil && !errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, context.Canceled) {
				s.logger.Warn("engine drain", "error", err)
			}
		}()
	}

	clean := s.waitIdle(dctx)

	forced := 0
	if !clean {
		for _, c := range s.conns.Drain() {
			c.ForceClose()
			forced++
		}
		s.metrics.ForcedClosures.Add(float64(forced))
	}
	s.cancelConns()

	if closer, ok := s.engine.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			s.logger.Warn("close engine", "error", err)
		}
	}

	s.report = Report{Clean: clean, Forced: forced, Elapsed: time.Since(start)}
	s.state.Store(int32(StateStopped))
	close(s.stopped)

	if clean {
		s.logger.Info("stopped", "elapsed", s.report.Elapsed.String())
	} else {
		s.logger.Warn("stopped after forced close", "forced", forced, "elapsed", s.report.Elapsed.String())
	}
}

// waitIdle blocks until no connection is in flight or ctx expires.
func (s *Server) waitIdle(ctx context.Context) bool {
	for {
		if s.inflight.Load() == 0 {
			return true
		}
		select {
		case <-s.idle:
		case <-ctx.Done():
			return s.inflight.Load() == 0
		}
	}
}
