package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/yndnr/srvboot-go/internal/core/domain"
	"github.com/yndnr/srvboot-go/internal/infra/buildinfo"
)

type fakeState struct {
	name     string
	inflight int64
}

func (s fakeState) StateName() string { return s.name }
func (s fakeState) InFlight() int64   { return s.inflight }

func serve(h http.Handler, method, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) domain.BodyError {
	t.Helper()
	var body domain.Body
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode error body %q: %v", rec.Body.String(), err)
	}
	return body.Error
}

func TestHandleRoot(t *testing.T) {
	rec := serve(New(Config{}), "GET", "/")
	if rec.Code != http.StatusOK || rec.Body.String() != "OK" {
		t.Errorf("GET / = %d %q, want 200 OK", rec.Code, rec.Body.String())
	}
}

func TestHandleHealth(t *testing.T) {
	rec := serve(New(Config{}), "GET", "/health")
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
	if rec.Body.String() != HealthBody {
		t.Errorf("body = %q, want %q", rec.Body.String(), HealthBody)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}
}

func TestHandleReady(t *testing.T) {
	t.Run("running", func(t *testing.T) {
		rec := serve(New(Config{State: fakeState{name: "running", inflight: 3}}), "GET", "/ready")
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}
		var resp struct {
			Data StatusResponse `json:"data"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if resp.Data.InFlight != 3 || resp.Data.State != "running" {
			t.Errorf("data = %+v", resp.Data)
		}
	})

	t.Run("draining", func(t *testing.T) {
		rec := serve(New(Config{State: fakeState{name: "draining"}}), "GET", "/ready")
		if rec.Code != http.StatusServiceUnavailable {
			t.Fatalf("status = %d, want 503", rec.Code)
		}
		if e := decodeError(t, rec); e.Kind != "Unavailable" {
			t.Errorf("kind = %q, want Unavailable", e.Kind)
		}
	})

	t.Run("no state source", func(t *testing.T) {
		if rec := serve(New(Config{}), "GET", "/ready"); rec.Code != http.StatusOK {
			t.Errorf("status = %d, want 200", rec.Code)
		}
	})
}

func TestHandleVersion(t *testing.T) {
	rec := serve(New(Config{}), "GET", "/version")
	var resp struct {
		Data buildinfo.Info `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Data.Version != buildinfo.Version {
		t.Errorf("version = %q, want %q", resp.Data.Version, buildinfo.Version)
	}
}

func TestHandleTime(t *testing.T) {
	h := New(Config{})

	t.Run("custom duration", func(t *testing.T) {
		start := time.Now()
		rec := serve(h, "GET", "/time?d=20ms")
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}
		if time.Since(start) < 20*time.Millisecond {
			t.Error("returned before the requested delay")
		}
	})

	t.Run("invalid duration", func(t *testing.T) {
		for _, d := range []string{"abc", "-1s", "1h"} {
			rec := serve(h, "GET", "/time?d="+d)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("d=%s: status = %d, want 400", d, rec.Code)
			}
		}
	})
}

func TestHandleError(t *testing.T) {
	h := New(Config{})

	tests := []struct {
		query      string
		wantStatus int
		wantKind   string
	}{
		{"", http.StatusInternalServerError, "Internal"},
		{"?kind=NotFound", http.StatusNotFound, "NotFound"},
		{"?kind=IdleTimeoutError", http.StatusRequestTimeout, "IdleTimeoutError"},
		{"?kind=RateLimited", http.StatusTooManyRequests, "RateLimited"},
		{"?kind=Bogus", http.StatusBadRequest, "BadRequest"},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			rec := serve(h, "GET", "/error"+tt.query)
			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			e := decodeError(t, rec)
			if e.Kind != tt.wantKind {
				t.Errorf("kind = %q, want %q", e.Kind, tt.wantKind)
			}
			if strings.Contains(e.Message, "internal detail") {
				t.Errorf("message leaks detail: %q", e.Message)
			}
		})
	}
}

func TestHandleMetrics(t *testing.T) {
	metrics := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("# metrics"))
	})

	if rec := serve(New(Config{Metrics: metrics}), "GET", "/metrics"); rec.Body.String() != "# metrics" {
		t.Errorf("GET /metrics = %q", rec.Body.String())
	}
	if rec := serve(New(Config{}), "GET", "/metrics"); rec.Code != http.StatusNotFound {
		t.Errorf("without metrics handler status = %d, want 404", rec.Code)
	}
}

func TestNotFound(t *testing.T) {
	rec := serve(New(Config{}), "GET", "/nope")
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
	if e := decodeError(t, rec); e.Kind != "NotFound" {
		t.Errorf("kind = %q", e.Kind)
	}
}
