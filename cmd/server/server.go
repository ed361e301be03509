package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"webcontext/internal/infrastructure/browser"
	"webcontext/internal/infrastructure/cachestore"
	"webcontext/internal/infrastructure/config"
	"webcontext/internal/infrastructure/logger"
	_ "webcontext/internal/infrastructure/metrics" // Register Prometheus metrics
	"webcontext/internal/interfaces/httpserver"
)

type Application struct {
	httpServer *httpserver.HTTPServer
	fetcher    *browser.Fetcher
	cacheStore *cachestore.Store
}

func init() {
	// Initialize logger with default settings
	logger.Init("info", "json")
}

func (app *Application) Start(ctx context.Context) error {
	return app.httpServer.Run()
}

func (app *Application) Shutdown() {
	if err := app.fetcher.Shutdown(); err != nil {
		log.Warn().Err(err).Msg("browser shutdown failed")
	}
	if err := app.cacheStore.Close(); err != nil {
		log.Warn().Err(err).Msg("cache store close failed")
	}
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}

	// Re-initialize logger with config settings
	logger.Init(cfg.LogLevel, cfg.LogFormat)
	log.Info().
		Str("http_port", cfg.HTTPPort).
		Str("log_level", cfg.LogLevel).
		Msg("Starting web context service")

	// Create application with dependency injection
	application, err := CreateApplication(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create application")
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Info().Str("signal", sig.String()).Msg("Shutting down")
		application.Shutdown()
		cancel()
		os.Exit(0)
	}()

	// Start application
	if err := application.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to start server")
	}
}
