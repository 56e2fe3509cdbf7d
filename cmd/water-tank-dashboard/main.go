package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	httpapi "github.com/i474232898/water-tank-dashboard/internal/api/http"
	"github.com/i474232898/water-tank-dashboard/internal/config"
	"github.com/i474232898/water-tank-dashboard/internal/logging"
	"github.com/i474232898/water-tank-dashboard/internal/render"
	"github.com/i474232898/water-tank-dashboard/internal/scheduler"
	"github.com/i474232898/water-tank-dashboard/internal/store"
	"github.com/i474232898/water-tank-dashboard/internal/tank"
	"github.com/i474232898/water-tank-dashboard/internal/tank/firebase"
)

func main() {
	bootLog := zerolog.New(os.Stderr).With().Timestamp().Logger()

	if err := godotenv.Load(); err != nil {
		bootLog.Info().Err(err).Msg("no .env file found or error loading it")
	}

	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		bootLog.Fatal().Err(err).Msg("failed to load config")
	}

	log, err := logging.New(cfg.LogLevel, cfg.LogPretty, os.Stderr)
	if err != nil {
		bootLog.Fatal().Err(err).Msg("failed to build logger")
	}

	// Shared HTTP client for outbound database calls.
	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
	}

	// Realtime Database reader with resilience (backoff + circuit breaker).
	fetcher, err := firebase.NewClient(context.Background(), firebase.Config{
		DatabaseURL: cfg.DatabaseURL,
		Path:        cfg.SensorPath,
		Secret:      cfg.DatabaseSecret,
		Credentials: cfg.Credentials,
		HTTPClient:  httpClient,
		Backoff: firebase.BackoffConfig{
			MaxRetries:      cfg.FetchMaxRetries,
			InitialInterval: cfg.FetchInitialBackoff,
			MaxInterval:     cfg.FetchMaxBackoff,
		},
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to configure database client")
	}

	aggregator, err := tank.NewAggregator(cfg.TankFullDistance, cfg.BucketLocation, logging.NewBucketHook(log))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to configure aggregator")
	}

	// In-memory dashboard history with configured retention.
	memStore := store.NewMemoryStore(cfg.StoreMaxHistory, cfg.StoreMaxAge)

	charts := render.NewRegistry()
	renderer := render.NewChartRenderer(cfg.ChartWidth, cfg.ChartHeight, log)

	// Core service orchestrating fetch, aggregation and rendering.
	service := tank.NewService(fetcher, aggregator, memStore, renderer, charts, log)

	log.Info().
		Str("source", fetcher.Name()).
		Str("project", cfg.ProjectID).
		Float64("tank_full_distance", cfg.TankFullDistance).
		Str("bucket_timezone", cfg.BucketLocation.String()).
		Msg("starting water-tank-dashboard")

	// Scheduler that runs the initial fetch and any periodic refresh.
	sched := scheduler.New(cfg.RefreshInterval, service, log)
	if err := sched.Start(); err != nil {
		log.Fatal().Err(err).Msg("failed to start scheduler")
	}
	defer sched.Stop()

	// Basic app configuration
	app := fiber.New(fiber.Config{
		AppName:               "water-tank-dashboard",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          45 * time.Second,
		ErrorHandler:          httpapi.ErrorHandler,
	})

	// Global middleware
	app.Use(logger.New())
	app.Use(recover.New())

	// Basic health endpoint
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": "water-tank-dashboard",
		})
	})

	// API routes.
	httpapi.RegisterRoutes(app, service)

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Error().Err(err).Msg("fiber server stopped")
		}
	}()

	// Wait for termination signal
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("error during shutdown")
	}
}
