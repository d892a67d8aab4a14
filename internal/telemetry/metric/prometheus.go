package metric

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "srvboot"

// Registry holds all server metrics on a private prometheus registry.
// Each Registry is independent, so tests and embedded servers do not
// collide on the global default registry.
type Registry struct {
	registry *prometheus.Registry

	// Connection lifecycle
	ConnectionsAccepted prometheus.Counter
	ConnectionsRejected prometheus.Counter
	AcceptErrors        prometheus.Counter
	HandshakeFailures   prometheus.Counter
	IdleTimeouts        prometheus.Counter
	ForcedClosures      prometheus.Counter
	ConnectionDuration  prometheus.Histogram

	// Requests
	RequestsTotal            *prometheus.CounterVec
	RequestDuration          *prometheus.HistogramVec
	InterceptorShortCircuits *prometheus.CounterVec

	// TLS
	TLSReloads *prometheus.CounterVec
}

// NewRegistry creates a registry with all server metrics and the Go
// runtime and process collectors registered.
func NewRegistry() *Registry {
	r := &Registry{
		registry: prometheus.NewRegistry(),

		ConnectionsAccepted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "conn", Name: "accepted_total",
			Help: "Connections accepted and dispatched.",
		}),
		ConnectionsRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "conn", Name: "rejected_total",
			Help: "Connections closed unserved because the server was draining.",
		}),
		AcceptErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "conn", Name: "accept_errors_total",
			Help: "Transient accept failures.",
		}),
		HandshakeFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "conn", Name: "handshake_failures_total",
			Help: "TLS handshakes that failed.",
		}),
		IdleTimeouts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "conn", Name: "idle_timeouts_total",
			Help: "Connections closed by the idle timeout guard.",
		}),
		ForcedClosures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "conn", Name: "forced_closures_total",
			Help: "Connections force-closed at the drain deadline.",
		}),
		ConnectionDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "conn", Name: "duration_seconds",
			Help:    "Lifetime of served connections.",
			Buckets: []float64{.01, .1, 1, 5, 15, 60, 120, 300, 900},
		}),

		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "http", Name: "requests_total",
			Help: "HTTP requests by method and status code.",
		}, []string{"method", "code"}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "http", Name: "request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method"}),
		InterceptorShortCircuits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "http", Name: "interceptor_short_circuits_total",
			Help: "Requests answered or dropped by an interceptor.",
		}, []string{"action"}),

		TLSReloads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "tls", Name: "reloads_total",
			Help: "TLS context rebuilds by result.",
		}, []string{"result"}),
	}

	r.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		r.ConnectionsAccepted,
		r.ConnectionsRejected,
		r.AcceptErrors,
		r.HandshakeFailures,
		r.IdleTimeouts,
		r.ForcedClosures,
		r.ConnectionDuration,
		r.RequestsTotal,
		r.RequestDuration,
		r.InterceptorShortCircuits,
		r.TLSReloads,
	)
	return r
}

// MustRegister registers additional collectors.
func (r *Registry) MustRegister(cs ...prometheus.Collector) {
	r.registry.MustRegister(cs...)
}

// Gatherer exposes the underlying registry for tests and custom exporters.
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.registry
}

// Handler returns an HTTP handler for the /metrics endpoint.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{
		Registry: r.registry,
	})
}
