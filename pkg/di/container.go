package di

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"ratingbot/internal/repository"
	"ratingbot/internal/service"
	"ratingbot/internal/telegram"
	"ratingbot/pkg/config"
	"ratingbot/pkg/health"
	"ratingbot/pkg/logger"
	"ratingbot/pkg/metrics"
)

// Container holds all the dependencies for the application
type Container struct {
	DB                *gorm.DB
	Logger            *logger.Logger
	Metrics           *metrics.Metrics
	MessageRepository repository.MessageRepository
	Telegram          *telegram.Client
	CommandResponder  *service.CommandResponder
	IngestService     *service.IngestService
	Health            *health.Checker
}

// New creates a new dependency injection container
func New(db *gorm.DB, cfg *config.Config, log *logger.Logger, m *metrics.Metrics) (*Container, error) {
	messageRepository := repository.NewGormMessageRepository(db)

	tg, err := telegram.New(cfg, log)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram client: %w", err)
	}

	responder := service.NewCommandResponder(
		messageRepository,
		tg,
		log,
		m,
		cfg.Query.TopLimit,
		cfg.Query.MinRating,
	)

	ingest, err := service.NewIngestService(messageRepository, responder, log, m)
	if err != nil {
		return nil, fmt.Errorf("failed to create ingest service: %w", err)
	}

	checker := health.NewChecker(log, 30*time.Second)
	checker.RegisterDatabaseCheck(func() error {
		return config.TestConnection(db)
	})
	checker.RegisterCheck("telegram", func() (health.Status, string, error) {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tg.CheckWebhook(ctx); err != nil {
			return health.StatusDown, "Webhook subscription check failed", err
		}
		return health.StatusUp, "Webhook subscription active", nil
	})
	checker.Start()

	return &Container{
		DB:                db,
		Logger:            log,
		Metrics:           m,
		MessageRepository: messageRepository,
		Telegram:          tg,
		CommandResponder:  responder,
		IngestService:     ingest,
		Health:            checker,
	}, nil
}
