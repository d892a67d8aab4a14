// Package handler provides the example HTTP endpoints served behind the
// interceptor chain:
//
//   - GET /          plain "OK"
//   - GET /health    liveness
//   - GET /ready     readiness, 503 once the server is draining
//   - GET /version   build information
//   - GET /time      slow response for drain testing (?d=duration)
//   - GET /error     mapped error demonstration (?kind=NotFound)
//   - GET /metrics   Prometheus exposition
package handler
