// Package metric provides Prometheus metrics for srvboot.
//
//   - prometheus.go: Registry with connection, request and TLS metrics
//   - collector.go: scrape-time collector for in-flight count and state
//
// Metrics are exposed by Registry.Handler, mounted at /metrics by the
// server binary.
package metric
