package listener

import (
	"errors"
	"net"
	"sync"

	"golang.org/x/sync/errgroup"
)

type acceptResult struct {
	conn net.Conn
	err  error
}

// multiListener merges several listeners into one accept stream.
type multiListener struct {
	listeners []net.Listener
	results   chan acceptResult
	done      chan struct{}
	closeOnce sync.Once
	closeErr  error
	group     errgroup.Group
}

func newMultiListener(ls ...net.Listener) *multiListener {
	m := &multiListener{
		listeners: ls,
		results:   make(chan acceptResult),
		done:      make(chan struct{}),
	}
	for _, l := range ls {
		m.group.Go(func() error {
			m.pump(l)
			return nil
		})
	}
	return m
}

// pump forwards every Accept result. The channel is unbuffered so a
// consumer backing off after an error also slows the pump.
func (m *multiListener) pump(l net.Listener) {
	for {
		c, err := l.Accept()
		select {
		case m.results <- acceptResult{conn: c, err: err}:
		case <-m.done:
			if c != nil {
				c.Close()
			}
			return
		}
		if errors.Is(err, net.ErrClosed) {
			return
		}
	}
}

func (m *multiListener) Accept() (net.Conn, error) {
	select {
	case r := <-m.results:
		return r.conn, r.err
	case <-m.done:
		return nil, net.ErrClosed
	}
}

func (m *multiListener) Close() error {
	m.closeOnce.Do(func() {
		close(m.done)
		var errs []error
		for _, l := range m.listeners {
			if err := l.Close(); err != nil {
				errs = append(errs, err)
			}
		}
		m.group.Wait()
		m.closeErr = errors.Join(errs...)
	})
	return m.closeErr
}

// Addr returns the first listener's address. All members share the port.
func (m *multiListener) Addr() net.Addr {
	return m.listeners[0].Addr()
}

// Addrs returns every member's address.
func (m *multiListener) Addrs() []net.Addr {
	out := make([]net.Addr, len(m.listeners))
	for i, l := range m.listeners {
		out[i] = l.Addr()
	}
	return out
}
