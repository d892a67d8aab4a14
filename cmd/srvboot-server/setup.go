package main

import (
	"fmt"
	"io"

	"github.com/yndnr/srvboot-go/internal/core/domain"
	"github.com/yndnr/srvboot-go/internal/infra/shutdown"
	"github.com/yndnr/srvboot-go/internal/infra/tlsroots"
	"github.com/yndnr/srvboot-go/internal/interceptor"
	"github.com/yndnr/srvboot-go/internal/server/config"
	"github.com/yndnr/srvboot-go/internal/server/httpserver"
	"github.com/yndnr/srvboot-go/internal/telemetry/logger"
)

// setupTLS builds the initial context and, when rotation is configured,
// a watcher that republishes it. The watcher is not started.
func setupTLS(cfg config.TLSConfig, log logger.Logger) (*tlsroots.Holder, *tlsroots.Watcher, error) {
	src := tlsroots.Source{CertFile: cfg.CertFile, KeyFile: cfg.KeyFile}
	opts := tlsroots.Options{
		ClientAuth:   tlsroots.ClientAuth(cfg.ClientAuth),
		ClientCAFile: cfg.ClientCAFile,
	}

	ctx, err := tlsroots.Build(src, opts)
	if err != nil {
		return nil, nil, err
	}
	log.Info("tls context loaded", "certificate", ctx.Describe())

	holder := tlsroots.NewHolder(ctx)
	if !cfg.Watch && cfg.RefreshInterval <= 0 {
		return holder, nil, nil
	}

	wopts := []tlsroots.WatcherOption{
		tlsroots.WithLogger(log),
		tlsroots.WithRefreshInterval(cfg.RefreshInterval),
	}
	w, err := tlsroots.NewWatcher(src, opts, holder, wopts...)
	if err != nil {
		return nil, nil, err
	}
	return holder, w, nil
}

// buildInterceptors assembles the configured interceptors in order:
// health, allow list, country filter, rate limit, API keys. The returned
// closers release resources held by them.
func buildInterceptors(cfg config.InterceptorSection, m *domain.Mapper) ([]httpserver.Interceptor, []io.Closer, error) {
	var (
		out     []httpserver.Interceptor
		closers []io.Closer
	)

	if cfg.Health.Enabled {
		out = append(out, interceptor.Health(cfg.Health.Path, cfg.Health.Body))
	}
	if len(cfg.AllowList) > 0 {
		acl, err := interceptor.NewACL(cfg.AllowList, m)
		if err != nil {
			return nil, nil, fmt.Errorf("allow list: %w", err)
		}
		out = append(out, acl)
	}
	if len(cfg.GeoIP.DenyCountries) > 0 {
		geo, err := interceptor.OpenGeoFilter(cfg.GeoIP.DBPath, cfg.GeoIP.DenyCountries, m)
		if err != nil {
			return nil, nil, fmt.Errorf("geoip: %w", err)
		}
		out = append(out, geo)
		closers = append(closers, geo)
	}
	if cfg.RateLimit.RPS > 0 {
		out = append(out, interceptor.NewRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst, m))
	}
	if cfg.APIKeys.Enabled {
		keys, err := interceptor.NewAPIKey(cfg.APIKeys.Keys, cfg.APIKeys.SkipPaths, m)
		if err != nil {
			for _, c := range closers {
				c.Close()
			}
			return nil, nil, fmt.Errorf("api keys: %w", err)
		}
		out = append(out, keys)
	}
	return out, closers, nil
}

func closeAll(closers []io.Closer, log logger.Logger) {
	for _, c := range closers {
		if err := c.Close(); err != nil {
			log.Warn("close failed", "error", err)
		}
	}
}

// registerShutdown orders the hooks so that the server drains first, the
// watchers stop next and the local socket goes last. The socket stays up
// while draining so "shutdown --wait" can follow the drain. Hooks run in
// reverse registration order.
func registerShutdown(h *shutdown.Handler, drain, closeLocal shutdown.Hook, stops ...shutdown.Hook) {
	if closeLocal != nil {
		h.OnShutdown(closeLocal)
	}
	for _, stop := range stops {
		h.OnShutdown(stop)
	}
	h.OnShutdown(drain)
}
