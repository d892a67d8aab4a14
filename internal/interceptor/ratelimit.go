package interceptor

import (
	"context"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/yndnr/srvboot-go/internal/core/domain"
	"github.com/yndnr/srvboot-go/internal/server/httpserver"
	"github.com/yndnr/srvboot-go/pkg/cmap"
)

const (
	// Peers idle this long lose their bucket on the next sweep.
	limiterIdleTTL = 5 * time.Minute
	sweepEvery     = 1024
)

type peerLimiter struct {
	lim      *rate.Limiter
	lastSeen atomic.Int64
}

// RateLimiter applies a token bucket per peer IP.
type RateLimiter struct {
	limit  rate.Limit
	burst  int
	mapper *domain.Mapper
	peers  *cmap.Map[string, *peerLimiter]
	calls  atomic.Uint64
	now    func() time.Time
}

// NewRateLimiter allows rps requests per second per peer with the given
// burst. A burst below one is raised to rps.
func NewRateLimiter(rps float64, burst int, m *domain.Mapper) *RateLimiter {
	if burst < 1 {
		burst = max(1, int(rps))
	}
	return &RateLimiter{
		limit:  rate.Limit(rps),
		burst:  burst,
		mapper: m,
		peers:  cmap.New[string, *peerLimiter](),
		now:    time.Now,
	}
}

// Intercept implements httpserver.Interceptor.
func (l *RateLimiter) Intercept(_ context.Context, req *httpserver.RequestInfo) (httpserver.Result, error) {
	key := req.Peer
	if addr, ok := peerAddr(req.Peer); ok {
		key = addr.String()
	}

	now := l.now()
	pl, ok := l.peers.Get(key)
	if !ok {
		fresh := &peerLimiter{lim: rate.NewLimiter(l.limit, l.burst)}
		if !l.peers.SetIfAbsent(key, fresh) {
			pl, _ = l.peers.Get(key)
		}
		if pl == nil {
			pl = fresh
		}
	}
	pl.lastSeen.Store(now.UnixNano())

	if l.calls.Add(1)%sweepEvery == 0 {
		l.Sweep(now.Add(-limiterIdleTTL))
	}

	if pl.lim.AllowN(now, 1) {
		return httpserver.Continue(), nil
	}

	retry := time.Second
	if l.limit > 0 {
		retry = max(time.Second, time.Duration(float64(time.Second)/float64(l.limit)))
	}
	return reject(l.mapper, domain.New(domain.KindRateLimited, "too many requests"),
		http.Header{"Retry-After": {strconv.Itoa(int(retry.Seconds()))}}), nil
}

// Sweep drops buckets not used since before. It returns the number
// removed.
func (l *RateLimiter) Sweep(before time.Time) int {
	cutoff := before.UnixNano()
	return l.peers.DeleteIf(func(_ string, pl *peerLimiter) bool {
		return pl.lastSeen.Load() < cutoff
	})
}

// Peers returns the number of tracked peers.
func (l *RateLimiter) Peers() int {
	return l.peers.Count()
}
