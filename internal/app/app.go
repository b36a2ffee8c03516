package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/deferlink/internal/attribution"
	"github.com/MrSnakeDoc/deferlink/internal/config"
	"github.com/MrSnakeDoc/deferlink/internal/httpserver"
	"github.com/MrSnakeDoc/deferlink/internal/httpserver/deps"
	"github.com/MrSnakeDoc/deferlink/internal/index"
	"github.com/MrSnakeDoc/deferlink/internal/logger"
	"github.com/MrSnakeDoc/deferlink/internal/redis"
	"github.com/MrSnakeDoc/deferlink/internal/scheduler"
	redisstore "github.com/MrSnakeDoc/deferlink/internal/store/redis"
	"github.com/MrSnakeDoc/deferlink/internal/version"
)

type App struct {
	cfg          *config.Config
	logger       logger.Logger
	server       *httpserver.Server
	redisClient  *goredis.Client
	seedReloader *scheduler.SeedReloader
	sweeper      *scheduler.Sweeper
}

func New() (*App, error) {
	cfg := config.Load()

	loggerClient := logger.New(cfg.LogLevel, cfg.PrettyLog)

	links := index.NewLinkRegistry()
	pending := index.NewPendingStore()

	opts := attribution.Options{
		SessionTTL:             cfg.SessionTTL,
		AllowCustomFingerprint: cfg.AllowCustomFingerprint,
		Logger:                 loggerClient,
	}

	// Redis is optional. When configured it must be reachable at start-up.
	var (
		redisClient *goredis.Client
		store       *redisstore.Store
	)
	if cfg.RedisEnabled() {
		var err error
		redisClient, err = redis.Connect(context.Background(), redis.OptionsFromConfig(cfg), loggerClient)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		store = redisstore.NewStore(redisClient)
		opts.Mirror = store

		// Warm restart: bring back links and counters mirrored by a previous run
		syncer := scheduler.NewRedisSyncer(store, links, loggerClient)
		if err := syncer.Sync(context.Background()); err != nil {
			loggerClient.Warn("failed to sync links from redis on startup",
				logger.Error(err))
		}
	} else {
		loggerClient.Info("redis not configured, links live in memory only")
	}

	engine := attribution.NewEngine(links, pending, opts)

	var (
		seedReloader  *scheduler.SeedReloader
		reloadTrigger chan struct{}
	)
	if cfg.SeedFile != "" {
		reloadTrigger = make(chan struct{}, 1)
		var saver scheduler.LinkSaver
		if store != nil {
			saver = store
		}
		seedReloader = scheduler.NewSeedReloader(
			cfg.SeedFile,
			links,
			saver,
			loggerClient,
			cfg.SeedReloadInterval,
			reloadTrigger,
		)
	}

	var sweeper *scheduler.Sweeper
	if cfg.SweepInterval > 0 {
		sweeper = scheduler.NewSweeper(pending, loggerClient, cfg.SessionTTL, cfg.SweepInterval)
	}

	d := deps.Deps{
		Logger:          loggerClient,
		StartTime:       time.Now(),
		Version:         version.Version,
		Commit:          version.Commit,
		BuildDate:       version.BuildDate,
		GoVersion:       version.GoVersion,
		TimeNow:         time.Now,
		Engine:          engine,
		FallbackDelay:   cfg.FallbackDelay,
		DebugRoutes:     cfg.DebugRoutes,
		RateLimitBurst:  cfg.RateLimitBurst,
		RateLimitPerMin: cfg.RateLimitPerMin,
		AllowedHosts:    cfg.AllowedHosts,
		AllowedCIDRS:    cfg.AllowedCIDRS,
		TrustProxy:      cfg.TrustProxy,
		RedisClient:     redisClient,
		SeedFile:        cfg.SeedFile,
		ReloadTrigger:   reloadTrigger,
	}
	if seedReloader != nil {
		d.Seed = seedReloader
	}

	if cfg.DebugRoutes {
		loggerClient.Warn("debug routes enabled: /debug/links and /debug/clear-data are exposed")
	}

	return &App{
		cfg:          cfg,
		logger:       loggerClient,
		server:       httpserver.New(cfg, loggerClient, d),
		redisClient:  redisClient,
		seedReloader: seedReloader,
		sweeper:      sweeper,
	}, nil
}

func (a *App) Run() error {
	defer func() { _ = a.logger.Sync() }()

	a.logger.Infof("🚀 Starting %s %s on %s", version.Name, version.Version, a.cfg.ListenPort)
	a.logger.Infof("%s %s (commit=%s, built=%s, go=%s)",
		version.Name, version.Version, version.Commit, version.BuildDate, version.GoVersion)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if a.seedReloader != nil {
		if err := a.seedReloader.Start(ctx); err != nil {
			return fmt.Errorf("failed to start seed reloader: %w", err)
		}
		a.logger.Info("seed reloader started",
			logger.String("file", a.cfg.SeedFile),
			logger.Duration("interval", a.cfg.SeedReloadInterval))
	}

	if a.sweeper != nil {
		a.sweeper.Start(ctx)
		a.logger.Info("pending sweeper started",
			logger.Duration("interval", a.cfg.SweepInterval),
			logger.Duration("session_ttl", a.cfg.SessionTTL))
	}

	errCh := make(chan error, 1)
	go func() {
		if err := a.server.Start(); err != nil {
			errCh <- fmt.Errorf("http server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("⏳ Shutting down gracefully...")
	case err := <-errCh:
		return err
	}

	if a.seedReloader != nil {
		a.seedReloader.Stop()
	}
	if a.sweeper != nil {
		a.sweeper.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()
	if err := a.server.Stop(shutdownCtx); err != nil {
		return fmt.Errorf("failed to stop server: %w", err)
	}

	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			a.logger.Warnf("failed to close redis: %v", err)
		} else {
			a.logger.Info("✅ Redis closed cleanly")
		}
	}

	a.logger.Infof("✅ %s stopped cleanly", version.Name)
	return nil
}
