package entrypoint

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/shelfront/internal/auth"
	"github.com/mrlokans/shelfront/internal/config"
	"github.com/mrlokans/shelfront/internal/covers"
	"github.com/mrlokans/shelfront/internal/database"
	http_controllers "github.com/mrlokans/shelfront/internal/http"
	"github.com/mrlokans/shelfront/internal/logger"
	"github.com/mrlokans/shelfront/internal/page"
	"github.com/mrlokans/shelfront/internal/scheduler"
	"github.com/mrlokans/shelfront/internal/tasks"
)

// ShutdownFunc is called during graceful shutdown to clean up resources.
type ShutdownFunc func(ctx context.Context)

func Serve(router *gin.Engine, cfg *config.Config, onShutdown ShutdownFunc) {
	timeout := time.Duration(cfg.Global.ShutdownTimeoutInSeconds) * time.Second

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("starting server", "addr", srv.Addr)
		// service connections
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("listen failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server.
	// kill (no param) default send syscall.SIGTERM
	// kill -2 is syscall.SIGINT
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("shutting down server", "timeout", timeout)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	// Call shutdown callback first (e.g., to stop task queue)
	if onShutdown != nil {
		onShutdown(ctx)
	}

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("server shutdown", "error", err)
	}

	slog.Info("server exiting")
}

func fatal(msg string, err error) {
	slog.Error(msg, "error", err)
	os.Exit(1)
}

func Run(cfg *config.Config, version string) {
	log := logger.New(logger.Config{
		Format: cfg.Log.Format,
		Level:  logger.ParseLevel(cfg.Log.Level),
	})
	slog.SetDefault(log)
	log.Info("starting shelfront", "version", version, "backend", cfg.Backend.URL)

	if err := scheduler.ValidateSchedule(cfg.Pages.SweepSchedule); err != nil {
		fatal("invalid page sweep schedule", err)
	}

	// Initialize database
	db, err := database.NewDatabase(cfg.Database.Path)
	if err != nil {
		fatal("failed to initialize database", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("error closing database", "error", err)
		}
	}()

	sqlDB, err := db.SQL()
	if err != nil {
		fatal("failed to get SQL DB for sessions", err)
	}
	sessionManager, err := auth.NewSessionManager(sqlDB, cfg.Session)
	if err != nil {
		fatal("failed to initialize session manager", err)
	}

	csrfKey, err := auth.DeriveCSRFKey(cfg.Session.Secret)
	if err != nil {
		fatal("failed to derive CSRF key", err)
	}
	if cfg.Session.Secret == "" {
		log.Warn("SESSION_SECRET is not set; CSRF tokens will not survive a restart")
	}

	// Create cover cache for locally caching covers
	coverCache, err := covers.NewCache(cfg.Covers.CacheDir)
	if err != nil {
		log.Warn("cover cache disabled", "error", err)
	} else {
		log.Info("cover cache initialized", "dir", cfg.Covers.CacheDir)
	}

	registry := page.NewRegistry(log)

	// Initialize task queue if enabled
	var taskClient *tasks.Client
	var taskCtxCancel context.CancelFunc
	if cfg.Tasks.Enabled && coverCache != nil {
		taskClient, err = tasks.NewClient(cfg.Database.Path, tasks.Config{
			Workers:         cfg.Tasks.Workers,
			ReleaseAfter:    cfg.Tasks.ReleaseAfter,
			CleanupInterval: cfg.Tasks.CleanupInterval,
			Logger:          log,
		})
		if err != nil {
			fatal("failed to initialize task queue", err)
		}
		defer func() {
			if err := taskClient.Close(); err != nil {
				log.Error("error closing task client", "error", err)
			}
		}()

		taskClient.Register(tasks.NewWarmCoverQueue(registry))

		// Start task workers in background
		var taskCtx context.Context
		taskCtx, taskCtxCancel = context.WithCancel(context.Background())
		go taskClient.Start(taskCtx)
	}

	sweeper := scheduler.NewPageSweepScheduler(registry, cfg.Pages.SweepSchedule, cfg.Pages.IdleTimeout, log)
	sweepCtx, sweepCancel := context.WithCancel(context.Background())
	if err := sweeper.Start(sweepCtx); err != nil {
		fatal("failed to start page sweeper", err)
	}

	limitCfg := auth.DefaultRateLimitConfig()
	limitCfg.EventsPerSecond = cfg.Pages.EventsPerSecond
	limitCfg.Burst = 0
	limiter := auth.NewEventLimiter(limitCfg)

	factory := &pageFactory{
		cfg:      cfg,
		sessions: sessionManager,
		covers:   coverCache,
		tasks:    taskClient,
		logger:   log,
	}

	if cfg.Log.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := http_controllers.NewRouter(http_controllers.RouterConfig{
		Pages:            registry,
		NewPage:          factory.Options,
		Database:         db,
		Sessions:         sessionManager,
		EventLimits:      limiter,
		CSRFKey:          csrfKey,
		SecureCookies:    cfg.Session.SecureCookies,
		BackendPublicURL: cfg.Backend.Public(),
		Version:          version,
	})

	// Shutdown callback for graceful cleanup
	onShutdown := func(ctx context.Context) {
		sweeper.Stop()
		sweepCancel()
		limiter.Stop()
		if taskClient != nil && taskCtxCancel != nil {
			taskClient.Stop(ctx)
			taskCtxCancel()
		}
		registry.Close()
	}

	Serve(router, cfg, onShutdown)
}
