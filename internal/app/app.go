package app

import (
	"context"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"github.com/yungbote/babetranslator-backend/internal/data/kv"
	apihttp "github.com/yungbote/babetranslator-backend/internal/http"
	"github.com/yungbote/babetranslator-backend/internal/observability"
	"github.com/yungbote/babetranslator-backend/internal/platform/logger"
)

// Version is stamped at build time with -ldflags "-X .../internal/app.Version=...".
var Version = "dev"

type App struct {
	Log      *logger.Logger
	Cfg      *Config
	Store    kv.Store
	Services Services
	Metrics  *observability.Metrics
	Server   *apihttp.Server

	caps         *capabilitySet
	otelShutdown func(context.Context) error
}

func New(ctx context.Context, cfg *Config) (*App, error) {
	log, err := logger.New(cfg.Env)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	if cfg.Env == "production" || cfg.Env == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}

	otelShutdown := observability.InitOTel(ctx, log, observability.OtelConfig{
		Enabled:     cfg.OTel.Enabled,
		ServiceName: cfg.OTel.ServiceName,
		Environment: cfg.Env,
		Version:     Version,
		Endpoint:    cfg.OTel.Endpoint,
		Insecure:    cfg.OTel.Insecure,
		Headers:     observability.ParseHeaders(cfg.OTel.Headers),
		SampleRatio: cfg.OTel.SampleRatio,
	})

	store, err := wireState(ctx, log, cfg.State)
	if err != nil {
		_ = otelShutdown(context.Background())
		log.Sync()
		return nil, fmt.Errorf("init state: %w", err)
	}

	caps, err := wireCapabilities(ctx, log, cfg)
	if err != nil {
		_ = store.Close()
		_ = otelShutdown(context.Background())
		log.Sync()
		return nil, err
	}

	var metrics *observability.Metrics
	if cfg.Metrics.Enabled {
		metrics = observability.New()
	}

	svcs := wireServices(log, cfg, store, caps.Capabilities, metrics)
	server := wireServer(log, cfg, svcs, metrics)

	return &App{
		Log:          log,
		Cfg:          cfg,
		Store:        store,
		Services:     svcs,
		Metrics:      metrics,
		Server:       server,
		caps:         caps,
		otelShutdown: otelShutdown,
	}, nil
}

// Run serves the API (and the metrics listener when enabled) until ctx is
// done or either server fails.
func (a *App) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	a.Log.Info("Starting API server", "addr", a.Server.Addr(), "version", Version, "state", a.Cfg.State.Backend)
	g.Go(func() error {
		return a.Server.Run(gctx, a.Cfg.HTTP.ShutdownTimeout.Duration)
	})

	if a.Metrics != nil {
		a.Metrics.StartStateCollector(gctx, a.Log, a.Cfg.State.Backend, 15*time.Second, statePing(a.Store))
		g.Go(func() error {
			return a.Metrics.StartServer(gctx, a.Log, a.Cfg.Metrics.Addr)
		})
	}

	err := g.Wait()
	a.Log.Info("Servers stopped")
	return err
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if a.caps != nil {
		a.caps.Close()
	}
	if a.Store != nil {
		if err := a.Store.Close(); err != nil {
			a.Log.Warn("State close failed", "error", err)
		}
	}
	if a.otelShutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.otelShutdown(ctx); err != nil {
			a.Log.Warn("Tracer shutdown failed", "error", err)
		}
	}
	a.Log.Sync()
}
