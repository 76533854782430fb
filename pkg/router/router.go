package router

import (
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"ratingbot/internal/api"
	"ratingbot/pkg/config"
	"ratingbot/pkg/di"
	"ratingbot/pkg/errors"
	"ratingbot/pkg/logger"
	"ratingbot/pkg/metrics"
	"ratingbot/pkg/middleware"
)

// Track server start time for uptime calculations
var startTime = time.Now()

// Router is the main router for the application
type Router struct {
	Engine    *gin.Engine
	Container *di.Container
	Logger    *logger.Logger
	Config    *config.Config
}

// New creates a new router with the given container
func New(container *di.Container) *Router {
	logger.SetGlobal(container.Logger)

	cfg := config.Get()

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()

	// Logger middleware first to capture all requests
	engine.Use(logger.Middleware(container.Logger))
	engine.Use(errors.ErrorHandler())
	engine.Use(errors.RecoveryWithLogger())

	rateLimiter := middleware.NewRateLimiter(container.Logger, middleware.RateLimiterOptions{
		Limit:          rate.Limit(cfg.Security.RateLimit),
		Burst:          cfg.Security.RateLimitBurst,
		ExpiryDuration: time.Hour,
		KeyFunc: func(c *gin.Context) string {
			return c.ClientIP()
		},
	})
	engine.Use(rateLimiter.Middleware())

	return &Router{
		Engine:    engine,
		Container: container,
		Logger:    container.Logger,
		Config:    cfg,
	}
}

// SetupRoutes registers all application routes
func (r *Router) SetupRoutes() {
	webhook := api.NewWebhookController(
		r.Container.IngestService,
		r.Config.Telegram.PathToken,
		r.Logger,
	)
	webhook.RegisterRoutes(r.Engine)

	r.setupHealthRoutes()

	r.Engine.GET("/metrics", gin.WrapH(metrics.Handler()))
}
