package metric

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNewRegistry(t *testing.T) {
	r := NewRegistry()
	if r.registry == nil {
		t.Fatal("registry field is nil")
	}
	if r.ConnectionsAccepted == nil || r.RequestsTotal == nil || r.TLSReloads == nil {
		t.Error("metric fields not initialized")
	}
}

func TestRegistry_Independent(t *testing.T) {
	r1 := NewRegistry()
	r2 := NewRegistry()

	r1.ConnectionsAccepted.Inc()
	if got := testutil.ToFloat64(r2.ConnectionsAccepted); got != 0 {
		t.Errorf("second registry saw %v accepted", got)
	}
}

func TestHandler(t *testing.T) {
	r := NewRegistry()
	r.RequestsTotal.WithLabelValues("GET", "200").Inc()
	r.IdleTimeouts.Inc()

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	body, _ := io.ReadAll(rec.Body)
	for _, want := range []string{
		`srvboot_http_requests_total{code="200",method="GET"} 1`,
		`srvboot_conn_idle_timeouts_total 1`,
		`go_goroutines`,
	} {
		if !strings.Contains(string(body), want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}
