package httpserver

import (
	"context"
	"net/http"
	"strconv"

	"github.com/yndnr/srvboot-go/internal/core/domain"
	"github.com/yndnr/srvboot-go/internal/server/conn"
	"github.com/yndnr/srvboot-go/internal/telemetry/logger"
)

// Action is what an interceptor decided to do with a request.
type Action uint8

const (
	// ActionContinue runs the next interceptor or the handler.
	ActionContinue Action = iota
	// ActionRespond sends the interceptor's response and skips the handler.
	ActionRespond
	// ActionDrop aborts the connection without a response.
	ActionDrop
)

func (a Action) String() string {
	switch a {
	case ActionContinue:
		return "continue"
	case ActionRespond:
		return "respond"
	case ActionDrop:
		return "drop"
	default:
		return "action(" + strconv.Itoa(int(a)) + ")"
	}
}

// Result is returned by an Interceptor. Status, Header and Body are only
// used with ActionRespond and are written verbatim. The response also
// carries the RequestIDHeader set before interceptors run; a Header entry
// for it replaces that value.
type Result struct {
	Action Action
	Status int
	Header http.Header
	Body   []byte
}

// Continue passes the request on.
func Continue() Result {
	return Result{Action: ActionContinue}
}

// Respond short-circuits the request with the given response.
func Respond(status int, header http.Header, body []byte) Result {
	return Result{Action: ActionRespond, Status: status, Header: header, Body: body}
}

// Drop aborts the connection.
func Drop() Result {
	return Result{Action: ActionDrop}
}

// RequestInfo is the view of a request given to interceptors.
type RequestInfo struct {
	Method string
	Path   string
	Header http.Header
	// Peer is the client address with IPv4-mapped IPv6 shown as IPv4.
	Peer string
	TLS  bool
}

// Interceptor runs before the request handler. Implementations are
// called concurrently and must not keep per-connection state between
// calls. A returned error is answered with a generic 500 and does not
// affect the connection.
type Interceptor interface {
	Intercept(ctx context.Context, req *RequestInfo) (Result, error)
}

// InterceptorFunc adapts a function to Interceptor.
type InterceptorFunc func(ctx context.Context, req *RequestInfo) (Result, error)

// Intercept implements Interceptor.
func (f InterceptorFunc) Intercept(ctx context.Context, req *RequestInfo) (Result, error) {
	return f(ctx, req)
}

// NewRequestInfo builds the interceptor view of r.
func NewRequestInfo(r *http.Request) *RequestInfo {
	return &RequestInfo{
		Method: r.Method,
		Path:   r.URL.Path,
		Header: r.Header,
		Peer:   peerOf(r),
		TLS:    r.TLS != nil,
	}
}

// peerOf prefers the accepted connection's canonical address.
func peerOf(r *http.Request) string {
	if c := ConnFromContext(r.Context()); c != nil {
		return c.Peer()
	}
	if addr := remoteAddr(r.RemoteAddr); addr != nil {
		return conn.CanonicalAddr(addr)
	}
	return r.RemoteAddr
}

// intercept runs interceptors in order before next. The first Respond or
// Drop ends the chain.
func (e *Engine) intercept(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		chain := e.interceptors.Load()
		if chain == nil || len(*chain) == 0 {
			next.ServeHTTP(w, r)
			return
		}

		info := NewRequestInfo(r)
		for _, ic := range *chain {
			res, err := ic.Intercept(r.Context(), info)
			if err != nil {
				logger.L(r.Context()).Error("interceptor failed", "path", info.Path, "error", err)
				WriteError(w, e.mapper, domain.Wrap(domain.KindInterceptor, "interceptor failed", err))
				return
			}

			switch res.Action {
			case ActionContinue:
				continue
			case ActionRespond:
				e.metrics.InterceptorShortCircuits.WithLabelValues(res.Action.String()).Inc()
				writeResult(w, res)
				return
			case ActionDrop:
				e.metrics.InterceptorShortCircuits.WithLabelValues(res.Action.String()).Inc()
				logger.L(r.Context()).Debug("request dropped by interceptor", "path", info.Path, "peer", info.Peer)
				panic(http.ErrAbortHandler)
			default:
				WriteError(w, e.mapper, domain.New(domain.KindInterceptor, "unknown interceptor action "+res.Action.String()))
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

func writeResult(w http.ResponseWriter, res Result) {
	h := w.Header()
	for k, vs := range res.Header {
		h[k] = append([]string(nil), vs...)
	}
	status := res.Status
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)
	if len(res.Body) > 0 {
		w.Write(res.Body)
	}
}
