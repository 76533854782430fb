package main

import (
	"context"
	stdlog "log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"ratingbot/internal/models"
	"ratingbot/pkg/config"
	"ratingbot/pkg/di"
	"ratingbot/pkg/logger"
	"ratingbot/pkg/metrics"
	"ratingbot/pkg/router"
	"ratingbot/pkg/secrets"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		stdlog.Println("No .env file found")
	}

	// Initialize structured logger
	logConfig := logger.DefaultConfig()
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		logConfig.Level = level
	}
	logConfig.JSON = os.Getenv("LOG_FORMAT") != "text"

	log := logger.New(logConfig)
	logger.SetGlobal(log)

	log.Info("Starting application", "version", os.Getenv("APP_VERSION"))

	// Resolve the bot token through the secrets manager before the
	// config is validated; plain deployments fall through to the env.
	if err := secrets.Init(log); err != nil {
		log.LogError(err, "Failed to initialize secrets manager")
		os.Exit(1)
	}

	cfg := config.New()
	if cfg.Telegram.Token == "" {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		cfg.Telegram.Token = secrets.GetSecretWithDefault(ctx, "telegram_bot_token", "")
		cancel()
		if cfg.Telegram.PathToken == "" {
			cfg.Telegram.PathToken = cfg.Telegram.Token
		}
	}
	if err := cfg.Validate(); err != nil {
		log.LogError(err, "Invalid configuration")
		os.Exit(1)
	}

	// Initialize tracing and metrics
	shutdownTracing, err := metrics.SetupTracing("ratingbot")
	if err != nil {
		log.LogError(err, "Failed to initialize tracing")
		os.Exit(1)
	}
	defer shutdownTracing()

	m, err := metrics.Setup("ratingbot")
	if err != nil {
		log.LogError(err, "Failed to initialize metrics")
		os.Exit(1)
	}

	// Initialize database
	db, err := config.NewDB()
	if err != nil {
		log.LogError(err, "Failed to initialize database")
		os.Exit(1)
	}

	// Migration failure aborts startup; there is no degraded mode
	// without the message table.
	if err := db.AutoMigrate(&models.Message{}); err != nil {
		log.LogError(err, "Failed to migrate database")
		os.Exit(1)
	}

	// Initialize dependency injection container
	container, err := di.New(db, cfg, log, m)
	if err != nil {
		log.LogError(err, "Failed to initialize dependency container")
		os.Exit(1)
	}

	// Check or register the webhook subscription before accepting
	// traffic
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	err = container.Telegram.EnsureWebhook(ctx)
	cancel()
	if err != nil {
		log.LogError(err, "Failed to ensure webhook subscription")
		os.Exit(1)
	}

	// Initialize and setup router
	r := router.New(container)
	r.SetupRoutes()

	// Create HTTP server
	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           r.Engine,
		ReadHeaderTimeout: cfg.Server.Timeout,
	}

	// Start the server in a goroutine
	go func() {
		log.Info("Server starting", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.LogError(err, "Server failed to start")
			os.Exit(1)
		}
	}()

	// Setup graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.LogError(err, "Server forced to shutdown")
	}

	if sqlDB, err := db.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			log.LogError(err, "Failed to close database")
		}
	}

	log.Info("Server exited")
}
