package interceptor

import (
	"context"
	"fmt"
	"net/netip"
	"strings"

	"github.com/yndnr/srvboot-go/internal/core/domain"
	"github.com/yndnr/srvboot-go/internal/server/httpserver"
	"github.com/yndnr/srvboot-go/internal/telemetry/logger"
)

// ACL admits only peers inside the allow list. An empty list admits
// everyone. Forwarding headers are ignored; only the socket peer counts.
type ACL struct {
	prefixes []netip.Prefix
	mapper   *domain.Mapper
}

// NewACL parses entries as single IPs or CIDR blocks.
func NewACL(allowList []string, m *domain.Mapper) (*ACL, error) {
	acl := &ACL{mapper: m}
	for _, entry := range allowList {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		if strings.Contains(entry, "/") {
			p, err := netip.ParsePrefix(entry)
			if err != nil {
				return nil, fmt.Errorf("allow list entry %q: %w", entry, err)
			}
			acl.prefixes = append(acl.prefixes, p.Masked())
			continue
		}
		a, err := netip.ParseAddr(entry)
		if err != nil {
			return nil, fmt.Errorf("allow list entry %q: %w", entry, err)
		}
		a = a.Unmap()
		acl.prefixes = append(acl.prefixes, netip.PrefixFrom(a, a.BitLen()))
	}
	return acl, nil
}

// Allowed reports whether addr is admitted.
func (a *ACL) Allowed(addr netip.Addr) bool {
	if len(a.prefixes) == 0 {
		return true
	}
	addr = addr.Unmap()
	for _, p := range a.prefixes {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

// Intercept implements httpserver.Interceptor.
func (a *ACL) Intercept(ctx context.Context, req *httpserver.RequestInfo) (httpserver.Result, error) {
	if len(a.prefixes) == 0 {
		return httpserver.Continue(), nil
	}
	addr, ok := peerAddr(req.Peer)
	if ok && a.Allowed(addr) {
		return httpserver.Continue(), nil
	}

	logger.L(ctx).Warn("request denied by network ACL", "peer", req.Peer, "path", req.Path)
	return reject(a.mapper, domain.New(domain.KindForbidden, "client address not allowed"), nil), nil
}
