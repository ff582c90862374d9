package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/nsvirk/nsequotes/internal/api"
	"github.com/nsvirk/nsequotes/internal/api/middleware"
	"github.com/nsvirk/nsequotes/internal/config"
	"github.com/nsvirk/nsequotes/internal/repository"
	"github.com/nsvirk/nsequotes/internal/service"
	"github.com/nsvirk/nsequotes/pkg/utils/zaplogger"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the collector loop, the cron jobs and the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe()
	},
}

func runServe() error {
	// Load configuration
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	printConfig(cfg)

	// Setup logger
	defer zaplogger.Sync()
	zaplogger.SetLogLevel(cfg.ServerLogLevel)

	// Connect the database
	var cycleRepo *repository.CycleRepository
	var pruner service.CyclePruner
	if cfg.DatabaseEnabled() {
		db, err := repository.ConnectDatabase(cfg)
		if err != nil {
			return err
		}
		if err := zaplogger.InitLogger(db); err != nil {
			return err
		}
		zaplogger.SetLogLevel(cfg.ServerLogLevel)
		cycleRepo = repository.NewCycleRepository(db)
		pruner = cycleRepo
		zaplogger.Info("Database initialized", zaplogger.Fields{"driver": cfg.DBDriver})
	}

	// Connect Redis
	var quoteCache *repository.QuoteCacheRepository
	var lookupCache service.QuoteLookupCache
	if cfg.RedisEnabled() {
		redisClient, err := repository.ConnectRedis(cfg)
		if err != nil {
			return err
		}
		defer redisClient.Close()
		quoteCache = repository.NewQuoteCacheRepository(redisClient, cfg.QuoteCacheTTL)
		lookupCache = quoteCache
		zaplogger.Info("Redis initialized")
	}

	// Build the collector
	p, err := newPipeline(cfg)
	if err != nil {
		return err
	}
	if cycleRepo != nil {
		p.collector.SetCycleRecorder(cycleRepo)
	}
	if quoteCache != nil {
		p.collector.SetQuoteCache(quoteCache)
	}
	zaplogger.Info(cfg.APIName+" - "+cfg.APIVersion+" initialized", zaplogger.Fields{
		"symbols":  len(p.symbols),
		"data_dir": p.writer.DataDir(),
		"debug":    cfg.Debug,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Create a new Echo instance
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Setup middleware
	middleware.SetupLoggerMiddleware(e)

	// Setup routes
	api.SetupRoutes(e, cfg, service.NewQuoteService(lookupCache, p.client), p.collector, cycleRepo)

	// Setup and start cron jobs
	cronService := service.NewCronService(cfg, p.collector, p.client, pruner)
	cronService.Start(ctx)

	// Start the server
	go startServer(e, cfg, stop)

	select {
	case <-ctx.Done():
		zaplogger.Info("SHUTDOWN requested, waiting for the collector")
		if err := cronService.WaitCollector(cfg.ShutdownTimeout); err != nil {
			zaplogger.Error("collector shutdown", zaplogger.Fields{"error": err})
		}
	case err := <-cronService.CollectorDone():
		if err != nil {
			zaplogger.Error("collector exited", zaplogger.Fields{"error": err})
		}
		zaplogger.Info("SHUTDOWN after collector stop")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		zaplogger.Error("failed to shut down server", zaplogger.Fields{"error": err})
	}
	cronService.Stop()
	return nil
}

// startServer starts the Echo server on the configured port
func startServer(e *echo.Echo, cfg *config.Config, stop context.CancelFunc) {
	port := cfg.ServerPort
	if port == "" {
		port = "5000"
	}
	zaplogger.Info("SERVER STARTED ON PORT " + port)
	if err := e.Start(":" + port); err != nil && !errors.Is(err, http.ErrServerClosed) {
		zaplogger.Error("server stopped", zaplogger.Fields{"error": err})
		stop()
	}
}
