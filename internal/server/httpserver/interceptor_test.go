package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/yndnr/srvboot-go/internal/core/domain"
	"github.com/yndnr/srvboot-go/internal/telemetry/metric"
)

func newTestEngine(t *testing.T, h http.Handler, ics ...Interceptor) (*Engine, *metric.Registry) {
	t.Helper()
	reg := metric.NewRegistry()
	e, err := NewEngine(EngineConfig{Handler: h, Interceptors: ics, Metrics: reg})
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}
	t.Cleanup(func() { e.Close() })
	return e, reg
}

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
	w.Write([]byte("handler"))
})

func do(e *Engine, method, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.srv.Handler.ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	return rec
}

func TestIntercept_Continue(t *testing.T) {
	var seen RequestInfo
	ic := InterceptorFunc(func(_ context.Context, req *RequestInfo) (Result, error) {
		seen = *req
		return Continue(), nil
	})
	e, _ := newTestEngine(t, okHandler, ic)

	rec := do(e, "GET", "/some/path")
	if rec.Body.String() != "handler" {
		t.Errorf("body = %q, want handler", rec.Body.String())
	}
	if seen.Method != "GET" || seen.Path != "/some/path" || seen.TLS {
		t.Errorf("request info = %+v", seen)
	}
	if seen.Peer == "" {
		t.Error("peer is empty")
	}
}

func TestIntercept_RespondSkipsHandler(t *testing.T) {
	var handlerCalled, laterCalled atomic.Bool
	h := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		handlerCalled.Store(true)
	})
	first := InterceptorFunc(func(context.Context, *RequestInfo) (Result, error) {
		header := http.Header{"Content-Type": {"application/json"}, "X-Custom": {"1"}}
		return Respond(http.StatusTeapot, header, []byte(`{"status":"ok"}`)), nil
	})
	later := InterceptorFunc(func(context.Context, *RequestInfo) (Result, error) {
		laterCalled.Store(true)
		return Continue(), nil
	})
	e, reg := newTestEngine(t, h, first, later)

	rec := do(e, "GET", "/")
	if rec.Code != http.StatusTeapot {
		t.Errorf("status = %d, want 418", rec.Code)
	}
	if rec.Body.String() != `{"status":"ok"}` {
		t.Errorf("body = %q", rec.Body.String())
	}
	if rec.Header().Get("X-Custom") != "1" {
		t.Error("missing interceptor header")
	}
	if handlerCalled.Load() || laterCalled.Load() {
		t.Error("chain should stop at the first Respond")
	}
	if got := testutil.ToFloat64(reg.InterceptorShortCircuits.WithLabelValues("respond")); got != 1 {
		t.Errorf("short circuits = %v, want 1", got)
	}
}

func TestIntercept_ErrorIsGeneric500(t *testing.T) {
	ic := InterceptorFunc(func(context.Context, *RequestInfo) (Result, error) {
		return Result{}, errors.New("database password rejected")
	})
	e, _ := newTestEngine(t, okHandler, ic)

	rec := do(e, "GET", "/")
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
	var body domain.Body
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	want := domain.BodyError{Kind: "InterceptorError", Message: "internal server error"}
	if body.Error != want {
		t.Errorf("body = %+v, want %+v", body.Error, want)
	}
}

func TestIntercept_ErrorIgnoresMapperTargets(t *testing.T) {
	errMissing := errors.New("tenant missing")
	m := domain.NewMapper()
	m.Register(errMissing, domain.KindNotFound, "tenant not found")
	ic := InterceptorFunc(func(context.Context, *RequestInfo) (Result, error) {
		return Result{}, errMissing
	})
	e, err := NewEngine(EngineConfig{Handler: okHandler, Interceptors: []Interceptor{ic}, Mapper: m, Metrics: metric.NewRegistry()})
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}
	defer e.Close()

	rec := do(e, "GET", "/")
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
	var body domain.Body
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	want := domain.BodyError{Kind: "InterceptorError", Message: "internal server error"}
	if body.Error != want {
		t.Errorf("body = %+v, want %+v", body.Error, want)
	}
}

func TestIntercept_RespondCarriesRequestID(t *testing.T) {
	ic := InterceptorFunc(func(context.Context, *RequestInfo) (Result, error) {
		return Respond(http.StatusOK, http.Header{"X-Custom": {"1"}}, nil), nil
	})
	e, _ := newTestEngine(t, okHandler, ic)

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set(RequestIDHeader, "req-42")
	rec := httptest.NewRecorder()
	e.srv.Handler.ServeHTTP(rec, req)
	if got := rec.Header().Get(RequestIDHeader); got != "req-42" {
		t.Errorf("%s = %q, want req-42", RequestIDHeader, got)
	}
	if rec.Header().Get("X-Custom") != "1" {
		t.Error("missing interceptor header")
	}
}

func TestIntercept_DropAbortsHandler(t *testing.T) {
	ic := InterceptorFunc(func(context.Context, *RequestInfo) (Result, error) {
		return Drop(), nil
	})
	e, _ := newTestEngine(t, okHandler, ic)

	defer func() {
		if rec := recover(); rec != http.ErrAbortHandler {
			t.Errorf("recover() = %v, want http.ErrAbortHandler", rec)
		}
	}()
	do(e, "GET", "/")
	t.Error("Drop should abort the handler")
}

func TestEngine_UseAppends(t *testing.T) {
	var order []string
	mk := func(name string) Interceptor {
		return InterceptorFunc(func(context.Context, *RequestInfo) (Result, error) {
			order = append(order, name)
			return Continue(), nil
		})
	}
	e, _ := newTestEngine(t, okHandler, mk("a"))
	e.Use(mk("b"), mk("c"))

	do(e, "GET", "/")
	if len(order) != 3 || order[0] != "a" || order[1] != "b" || order[2] != "c" {
		t.Errorf("order = %v, want [a b c]", order)
	}
}

func TestAction_String(t *testing.T) {
	tests := map[Action]string{
		ActionContinue: "continue",
		ActionRespond:  "respond",
		ActionDrop:     "drop",
		Action(7):      "action(7)",
	}
	for a, want := range tests {
		if got := a.String(); got != want {
			t.Errorf("Action(%d).String() = %q, want %q", a, got, want)
		}
	}
}
