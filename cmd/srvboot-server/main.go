package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/yndnr/srvboot-go/internal/core/domain"
	"github.com/yndnr/srvboot-go/internal/infra/buildinfo"
	"github.com/yndnr/srvboot-go/internal/infra/confloader"
	"github.com/yndnr/srvboot-go/internal/infra/shutdown"
	"github.com/yndnr/srvboot-go/internal/infra/tlsroots"
	"github.com/yndnr/srvboot-go/internal/server/bootstrap"
	"github.com/yndnr/srvboot-go/internal/server/config"
	"github.com/yndnr/srvboot-go/internal/server/httpserver"
	"github.com/yndnr/srvboot-go/internal/server/listener"
	"github.com/yndnr/srvboot-go/internal/server/localserver"
	"github.com/yndnr/srvboot-go/internal/telemetry/logger"
	"github.com/yndnr/srvboot-go/internal/telemetry/metric"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configFile  = flag.String("config", "", "Path to configuration file")
		showVersion = flag.Bool("version", false, "Show version information")
		host        = flag.String("host", "", "Listen host (overrides server.listen.host)")
		port        = flag.Int("port", 0, "Listen port (overrides server.listen.port)")
		certFile    = flag.String("tls-cert", "", "TLS certificate file")
		keyFile     = flag.String("tls-key", "", "TLS private key file")
		logLevel    = flag.String("log-level", "", "Log level (debug, info, warn, error)")
		localSocket = flag.String("local-socket", "", "Local management socket path")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("srvboot-server %s\n", buildinfo.String())
		return nil
	}

	overrides := make(map[string]any)
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "host":
			overrides["server.listen.host"] = *host
		case "port":
			overrides["server.listen.port"] = *port
		case "tls-cert":
			overrides["server.tls.cert_file"] = *certFile
		case "tls-key":
			overrides["server.tls.key_file"] = *keyFile
		case "log-level":
			overrides["log.level"] = *logLevel
		case "local-socket":
			overrides["server.local.path"] = *localSocket
		}
	})

	cfg, err := config.Load(*configFile, overrides)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := logger.New(logger.Config{
		Level:   cfg.Log.Level,
		Format:  cfg.Log.Format,
		Backend: cfg.Log.Backend,
		Output:  os.Stdout,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	logger.SetDefault(log)

	log.Info("starting srvboot-server",
		"version", buildinfo.Version,
		"commit", buildinfo.Commit,
		"config", *configFile,
	)
	log.Debug("effective configuration", "config", config.Sanitize(cfg))

	return serve(cfg, *configFile, log)
}

func serve(cfg *config.ServerConfig, configFile string, log logger.Logger) error {
	mapper := domain.NewMapper()
	reg := metric.NewRegistry()

	// TLS material is validated before the port is bound.
	var (
		transport = bootstrap.Plain()
		certs     *tlsroots.Watcher
	)
	if cfg.Server.TLS.Enabled() {
		holder, w, err := setupTLS(cfg.Server.TLS, log)
		if err != nil {
			return err
		}
		transport = bootstrap.TLS(holder)
		certs = w
	}

	ln, err := listener.Listen(context.Background(), listener.Config{
		Host:      cfg.Server.Listen.Host,
		Port:      cfg.Server.Listen.Port,
		DualStack: cfg.Server.Listen.DualStack,
		Fallback:  listener.FallbackPolicy(cfg.Server.Listen.Fallback),
		ReuseAddr: cfg.Server.Listen.ReuseAddr,
	})
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}

	interceptors, closers, err := buildInterceptors(cfg.Interceptors, mapper)
	if err != nil {
		ln.Close()
		return err
	}
	defer closeAll(closers, log)

	state := &serverState{}
	router := httpserver.NewRouter(&httpserver.RouterConfig{
		Mapper:             mapper,
		Metrics:            reg,
		MetricsEnabled:     cfg.Metrics.Enabled,
		State:              state,
		CORSAllowedOrigins: cfg.HTTP.CORSAllowedOrigins,
		RequestTimeout:     cfg.HTTP.RequestTimeout,
	})

	engine, err := httpserver.NewEngine(httpserver.EngineConfig{
		Handler:              router,
		Interceptors:         interceptors,
		Mapper:               mapper,
		ReadHeaderTimeout:    cfg.HTTP.ReadHeaderTimeout,
		MaxHeaderBytes:       cfg.HTTP.MaxHeaderBytes,
		MaxConcurrentStreams: cfg.HTTP.MaxConcurrentStreams,
		Logger:               log,
		Metrics:              reg,
	})
	if err != nil {
		ln.Close()
		return fmt.Errorf("init http engine: %w", err)
	}

	srv, err := bootstrap.New(bootstrap.Options{
		Listener:         ln,
		Transport:        transport,
		Engine:           engine,
		IdleTimeout:      cfg.Server.IdleTimeout,
		HandshakeTimeout: cfg.Server.HandshakeTimeout,
		GracePeriod:      cfg.Server.GracePeriod,
		Logger:           log,
		Metrics:          reg,
	})
	if err != nil {
		ln.Close()
		return err
	}
	state.srv.Store(srv)
	reg.MustRegister(metric.NewCollector(srv, bootstrap.StateNames()...))

	log.Info("listening",
		"addr", srv.Addr().String(),
		"mode", ln.Mode().String(),
		"transport", transport.Name(),
	)

	handler := shutdown.NewHandler(cfg.Server.GracePeriod, log)
	local := localserver.New(cfg.Server.Local.Path, srv, func(grace time.Duration) bool {
		return handler.Trigger("local request", grace)
	}, log)
	localEnabled := cfg.Server.Local.Path != ""
	if localEnabled {
		if err := local.Listen(); err != nil {
			// The management socket is optional; the server still runs.
			log.Warn("local management socket unavailable", "error", err)
			localEnabled = false
		}
	}

	drain := func(ctx context.Context) error {
		report := srv.Shutdown(shutdown.Remaining(ctx, cfg.Server.GracePeriod))
		if err := report.Err(); err != nil {
			log.Warn("drain incomplete", "error", err)
		}
		log.Info("server stopped",
			"clean", report.Clean,
			"forced", report.Forced,
			"elapsed", report.Elapsed.String(),
		)
		return nil
	}
	var stops []shutdown.Hook
	if certs != nil {
		stops = append(stops, func(context.Context) error {
			certs.Stop()
			return nil
		})
	}
	if configFile != "" {
		cw, err := watchConfig(configFile, log)
		if err != nil {
			log.Warn("config watcher disabled", "error", err)
		} else {
			stops = append(stops, func(context.Context) error { return cw.Stop() })
		}
	}
	var closeLocal shutdown.Hook
	if localEnabled {
		// The drain may have used up the hook deadline.
		closeLocal = func(context.Context) error {
			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			return local.Shutdown(ctx)
		}
	}
	registerShutdown(handler, drain, closeLocal, stops...)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return srv.Serve(gctx)
	})
	if certs != nil {
		g.Go(func() error {
			if err := certs.Start(); err != nil {
				log.Warn("certificate watcher stopped", "error", err)
			}
			return nil
		})
	}
	if localEnabled {
		g.Go(local.Serve)
	}
	g.Go(func() error {
		return handler.Wait(gctx)
	})

	log.Info("server started, press Ctrl+C to stop")
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("server exited with error", "error", err)
		return err
	}
	log.Info("server stopped gracefully")
	return nil
}

// serverState lets handlers built before the server report its state.
type serverState struct {
	srv atomic.Pointer[bootstrap.Server]
}

func (s *serverState) StateName() string {
	if srv := s.srv.Load(); srv != nil {
		return srv.StateName()
	}
	return "starting"
}

func (s *serverState) InFlight() int64 {
	if srv := s.srv.Load(); srv != nil {
		return srv.InFlight()
	}
	return 0
}

// watchConfig reapplies the log level when the configuration file
// changes. Other settings need a restart.
func watchConfig(path string, log logger.Logger) (*confloader.Watcher, error) {
	w, err := confloader.NewWatcher(confloader.WithWatcherLogger(log))
	if err != nil {
		return nil, err
	}
	if err := w.Watch(path); err != nil {
		w.Stop()
		return nil, err
	}
	w.OnChange(func(string) {
		cfg, err := config.Load(path, nil)
		if err != nil {
			log.Warn("ignoring invalid configuration change", "error", err)
			return
		}
		if cfg.Log.Level != logger.GetLevel() {
			logger.SetLevel(cfg.Log.Level)
			log.Info("log level changed", "level", logger.GetLevel())
		}
	})
	w.StartAsync()
	return w, nil
}
