package listener

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"

	"github.com/yndnr/srvboot-go/internal/core/domain"
)

// FallbackPolicy controls what happens when one socket cannot serve both
// address families.
type FallbackPolicy string

const (
	// FallbackAuto tries a single dual-stack socket and falls back to one
	// socket per family.
	FallbackAuto FallbackPolicy = "auto"
	// FallbackNever requires a single dual-stack socket.
	FallbackNever FallbackPolicy = "never"
	// FallbackSplit always binds one socket per family.
	FallbackSplit FallbackPolicy = "split"
)

// Valid reports whether p is a known policy. Empty means auto.
func (p FallbackPolicy) Valid() bool {
	switch p {
	case "", FallbackAuto, FallbackNever, FallbackSplit:
		return true
	}
	return false
}

// Mode describes how a Listener was bound.
type Mode int

const (
	// ModeSingle is one socket on an explicit host or a single family.
	ModeSingle Mode = iota
	// ModeDualStack is one IPv6 socket accepting IPv4-mapped peers.
	ModeDualStack
	// ModeSplit is one socket per family merged into one stream.
	ModeSplit
	// ModeIPv4Only is the fallback on hosts without IPv6.
	ModeIPv4Only
)

func (m Mode) String() string {
	switch m {
	case ModeDualStack:
		return "dual-stack"
	case ModeSplit:
		return "split"
	case ModeIPv4Only:
		return "ipv4-only"
	default:
		return "single"
	}
}

// Config describes the endpoint to bind. It is not modified by Listen.
type Config struct {
	// Host is the bind address. Empty, "::" and "0.0.0.0" mean every
	// interface; only the wildcard hosts honor DualStack.
	Host string
	// Port to bind. 0 picks an ephemeral port.
	Port int
	// DualStack serves IPv4 and IPv6 from one endpoint.
	DualStack bool
	// Fallback applies when DualStack is set.
	Fallback FallbackPolicy
	// ReuseAddr sets SO_REUSEADDR where supported.
	ReuseAddr bool
}

// Listener is a bound endpoint. Accept, Close and Addr follow net.Listener.
type Listener struct {
	net.Listener
	mode Mode
}

// Mode reports how the endpoint was bound.
func (l *Listener) Mode() Mode {
	return l.mode
}

// Listen binds cfg and returns a listening endpoint.
func Listen(ctx context.Context, cfg Config) (*Listener, error) {
	if cfg.Port < 0 || cfg.Port > 65535 {
		return nil, domain.New(domain.KindBind, fmt.Sprintf("invalid port %d", cfg.Port))
	}
	if !cfg.Fallback.Valid() {
		return nil, domain.New(domain.KindBind, fmt.Sprintf("invalid fallback policy %q", cfg.Fallback))
	}

	if !isWildcard(cfg.Host) {
		ln, err := listen(ctx, "tcp", cfg.Host, cfg.Port, cfg.ReuseAddr, false)
		if err != nil {
			return nil, bindError(net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)), err)
		}
		return &Listener{Listener: ln, mode: ModeSingle}, nil
	}

	if !cfg.DualStack {
		ln, err := listen(ctx, "tcp4", "0.0.0.0", cfg.Port, cfg.ReuseAddr, false)
		if err != nil {
			return nil, bindError(fmt.Sprintf("0.0.0.0:%d", cfg.Port), err)
		}
		return &Listener{Listener: ln, mode: ModeSingle}, nil
	}

	if cfg.Fallback == FallbackSplit {
		return listenSplit(ctx, cfg, false)
	}

	ln, err := listen(ctx, "tcp6", "::", cfg.Port, cfg.ReuseAddr, false)
	if err == nil {
		return &Listener{Listener: ln, mode: ModeDualStack}, nil
	}
	if cfg.Fallback == FallbackNever || isAddrInUse(err) {
		return nil, bindError(fmt.Sprintf("[::]:%d", cfg.Port), err)
	}
	return listenSplit(ctx, cfg, true)
}

// listenSplit binds IPv4 first so an ephemeral port can be reused for the
// IPv6 socket. With allowV4Only, a host without IPv6 support is served on
// IPv4 alone.
func listenSplit(ctx context.Context, cfg Config, allowV4Only bool) (*Listener, error) {
	v4, err := listen(ctx, "tcp4", "0.0.0.0", cfg.Port, cfg.ReuseAddr, false)
	if err != nil {
		return nil, bindError(fmt.Sprintf("0.0.0.0:%d", cfg.Port), err)
	}
	port := v4.Addr().(*net.TCPAddr).Port

	v6, err := listen(ctx, "tcp6", "::", port, cfg.ReuseAddr, true)
	if err != nil {
		if allowV4Only && familyUnsupported(err) {
			return &Listener{Listener: v4, mode: ModeIPv4Only}, nil
		}
		v4.Close()
		return nil, bindError(fmt.Sprintf("[::]:%d", port), err)
	}

	return &Listener{Listener: newMultiListener(v4, v6), mode: ModeSplit}, nil
}

func listen(ctx context.Context, network, host string, port int, reuse, v6only bool) (net.Listener, error) {
	lc := net.ListenConfig{Control: control(reuse, v6only)}
	return lc.Listen(ctx, network, net.JoinHostPort(host, strconv.Itoa(port)))
}

func isWildcard(host string) bool {
	switch host {
	case "", "::", "[::]", "0.0.0.0":
		return true
	}
	return false
}

func bindError(addr string, err error) error {
	return domain.Wrap(domain.KindBind, "failed to bind "+addr, err)
}

// errDualStackUnsupported is returned by control on platforms where the
// IPV6_V6ONLY option cannot be cleared.
var errDualStackUnsupported = errors.New("listener: dual-stack sockets not supported on this platform")

// Addrs returns every bound address. Only split listeners have more than one.
func (l *Listener) Addrs() []net.Addr {
	if ml, ok := l.Listener.(*multiListener); ok {
		return ml.Addrs()
	}
	return []net.Addr{l.Addr()}
}
