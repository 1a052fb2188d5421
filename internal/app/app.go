package app

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/yungbote/agentic-studio/internal/data/db"
	repojobs "github.com/yungbote/agentic-studio/internal/data/repos/jobs"
	apphttp "github.com/yungbote/agentic-studio/internal/http"
	httpH "github.com/yungbote/agentic-studio/internal/http/handlers"
	"github.com/yungbote/agentic-studio/internal/jobs/orchestrator"
	"github.com/yungbote/agentic-studio/internal/modules/storyboard"
	"github.com/yungbote/agentic-studio/internal/observability"
	"github.com/yungbote/agentic-studio/internal/platform/logger"
	"github.com/yungbote/agentic-studio/internal/realtime"
	"github.com/yungbote/agentic-studio/internal/realtime/bus"
	"github.com/yungbote/agentic-studio/internal/services"
)

const shutdownGrace = 20 * time.Second

type App struct {
	Log     *logger.Logger
	Cfg     Config
	DB      *db.Service
	Bus     bus.Bus
	SSEHub  *realtime.SSEHub
	Metrics *observability.Metrics
	Jobs    services.JobService
	Server  *apphttp.Server

	closers      []func() error
	otelShutdown func(context.Context) error
}

// Engine is the orchestrator wired from cfg plus whatever must be closed
// with it.
type Engine struct {
	*orchestrator.Engine
	close func() error
}

func (e *Engine) Close() error {
	if e == nil || e.close == nil {
		return nil
	}
	return e.close()
}

// BuildEngine wires every provider from cfg. Unconfigured providers are left
// out and their stages fail at run time.
func BuildEngine(ctx context.Context, log *logger.Logger, cfg Config, metrics *observability.Metrics) (*Engine, error) {
	producer := wireScript(log, cfg)
	renderer := wireRenderer(log, cfg)
	uploaders, err := wireUploaders(ctx, log, cfg)
	if err != nil {
		return nil, err
	}
	store, err := resolveVideoStore(ctx, log, cfg)
	if err != nil {
		return nil, err
	}

	var publisher orchestrator.VideoPublisher
	closeFn := func() error { return nil }
	if store != nil {
		publisher = store
		closeFn = store.Close
	}

	eng := orchestrator.NewEngine(log, producer, storyboard.Compose, renderer, publisher, uploaders)
	eng.StageTimeout = cfg.Jobs.StageTimeout
	if metrics != nil {
		eng.Observer = metrics
	}
	return &Engine{Engine: eng, close: closeFn}, nil
}

func New(ctx context.Context, cfg Config) (*App, error) {
	log, err := logger.New(cfg.LogMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	a := &App{Log: log, Cfg: cfg}

	otelCfg := observability.OtelConfigFromEnv()
	otelCfg.Enabled = cfg.Otel.Enabled
	a.otelShutdown = observability.InitOTel(ctx, log, otelCfg)
	a.Metrics = observability.Init(log, cfg.Metrics.Enabled)

	// Archive
	var archive repojobs.JobRunRepo
	dbCfg := db.Config{DatabaseURL: cfg.Database.URL, SQLitePath: cfg.Database.SQLitePath}
	if dbCfg.Enabled() {
		svc, err := db.Open(log, dbCfg)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("init database: %w", err)
		}
		if err := db.AutoMigrateAll(svc.DB()); err != nil {
			_ = svc.Close()
			a.Close()
			return nil, fmt.Errorf("automigrate: %w", err)
		}
		a.DB = svc
		a.closers = append(a.closers, svc.Close)
		archive = repojobs.NewJobRunRepo(svc.DB(), log)
	} else {
		log.Info("No database configured; finished jobs are kept in memory only")
	}

	// Fan-out
	a.SSEHub = realtime.NewSSEHub(log)
	if cfg.Redis.Addr != "" {
		b, err := bus.NewRedisBus(ctx, log, bus.RedisConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Channel:  cfg.Redis.Channel,
		})
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("init redis bus: %w", err)
		}
		a.Bus = b
	} else {
		a.Bus = bus.NewLocalBus()
	}
	a.closers = append(a.closers, a.Bus.Close)

	engine, err := BuildEngine(ctx, log, cfg, a.Metrics)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.closers = append(a.closers, engine.Close)

	notifier := services.NewJobNotifier(log, a.Bus)
	a.Jobs = services.NewJobService(log, engine, archive, notifier, a.Metrics, cfg.Jobs.MaxConcurrent)

	checks := map[string]httpH.Check{}
	if a.DB != nil {
		checks["database"] = a.DB.Ping
	}
	a.Server = apphttp.NewServer(":"+strconv.Itoa(cfg.Server.Port), apphttp.RouterConfig{
		Log:           log,
		ServiceName:   serviceName(otelCfg),
		CORSOrigins:   cfg.Server.CORSOrigins,
		Metrics:       a.Metrics,
		JobHandler:    httpH.NewJobHandler(log, a.Jobs, a.SSEHub, a.Metrics),
		HealthHandler: httpH.NewHealthHandler(checks),
	})
	return a, nil
}

func serviceName(cfg observability.OtelConfig) string {
	if !cfg.Enabled {
		return ""
	}
	if cfg.ServiceName == "" {
		return "agentic-studio"
	}
	return cfg.ServiceName
}

// Run serves HTTP until ctx is canceled, then cancels in-flight jobs and
// drains the server.
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.Server == nil {
		return fmt.Errorf("app not initialized")
	}
	g, gctx := errgroup.WithContext(ctx)

	if err := a.Bus.StartForwarder(gctx, a.SSEHub.Broadcast); err != nil {
		return fmt.Errorf("start bus forwarder: %w", err)
	}

	g.Go(func() error {
		a.Log.Info("HTTP server listening", "port", a.Cfg.Server.Port)
		return a.Server.Run()
	})
	g.Go(func() error {
		<-gctx.Done()
		a.Log.Info("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := a.Jobs.Shutdown(shutdownCtx); err != nil {
			a.Log.Warn("jobs did not drain", "error", err)
		}
		return a.Server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func (a *App) Close() {
	if a == nil {
		return
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil && a.Log != nil {
			a.Log.Warn("close failed", "error", err)
		}
	}
	a.closers = nil
	if a.otelShutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = a.otelShutdown(ctx)
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}
