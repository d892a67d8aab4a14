package httpserver

import (
	"net/http"
	"time"

	"github.com/yndnr/srvboot-go/internal/core/domain"
	"github.com/yndnr/srvboot-go/internal/server/httpserver/handler"
	"github.com/yndnr/srvboot-go/internal/telemetry/metric"
)

// RouterConfig holds configuration for the HTTP router.
type RouterConfig struct {
	Mapper *domain.Mapper

	// Metrics is exposed on /metrics when MetricsEnabled is set.
	Metrics        *metric.Registry
	MetricsEnabled bool

	// State feeds /ready. Usually the bootstrap server.
	State handler.StateSource

	// CORSAllowedOrigins is the list of allowed CORS origins (empty = allow all).
	CORSAllowedOrigins []string

	// RequestTimeout bounds handler run time (0 = unbounded).
	RequestTimeout time.Duration
}

// NewRouter creates the application handler. Engine-level middleware
// (recovery, request IDs, metrics, interceptors) is applied by the
// Engine, not here.
func NewRouter(cfg *RouterConfig) http.Handler {
	hc := handler.Config{
		Mapper: cfg.Mapper,
		State:  cfg.State,
	}
	if cfg.MetricsEnabled && cfg.Metrics != nil {
		hc.Metrics = cfg.Metrics.Handler()
	}
	h := handler.New(hc)

	// /time is meant to outlive the request timeout.
	bounded := Chain(h, CORS(cfg.CORSAllowedOrigins), Timeout(cfg.RequestTimeout, cfg.Mapper))
	unbounded := Chain(h, CORS(cfg.CORSAllowedOrigins))

	mux := http.NewServeMux()
	mux.Handle("/", bounded)
	mux.Handle("GET /time", unbounded)
	return mux
}

// DefaultRouterConfig returns default router configuration.
func DefaultRouterConfig() *RouterConfig {
	return &RouterConfig{
		MetricsEnabled: true,
		RequestTimeout: 30 * time.Second,
	}
}
