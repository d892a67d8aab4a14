package interceptor

import (
	"net/http"
	"net/netip"
	"strconv"

	"github.com/yndnr/srvboot-go/internal/core/domain"
	"github.com/yndnr/srvboot-go/internal/server/httpserver"
)

// reject builds a Respond result carrying the mapped body for err.
func reject(m *domain.Mapper, err error, extra http.Header) httpserver.Result {
	resp := m.Map(err)
	body := resp.JSON()

	h := http.Header{}
	for k, v := range extra {
		h[k] = v
	}
	h.Set("Content-Type", "application/json")
	h.Set("Content-Length", strconv.Itoa(len(body)))
	h.Set("X-Error-Kind", resp.Kind.String())
	return httpserver.Respond(resp.Status, h, body)
}

// peerAddr extracts the IP from a RequestInfo peer ("ip:port" or "ip").
func peerAddr(peer string) (netip.Addr, bool) {
	if ap, err := netip.ParseAddrPort(peer); err == nil {
		return ap.Addr().Unmap(), true
	}
	if a, err := netip.ParseAddr(peer); err == nil {
		return a.Unmap(), true
	}
	return netip.Addr{}, false
}

// matchPath reports whether path equals one of paths or, for entries
// ending in "/", sits below it.
func matchPath(path string, paths []string) bool {
	for _, p := range paths {
		if p == path {
			return true
		}
		if n := len(p); n > 1 && p[n-1] == '/' && len(path) >= n && path[:n] == p {
			return true
		}
	}
	return false
}
