package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/deskforge/helpdesk/internal/observability"
)

// ServerConfig configures the fiber application.
type ServerConfig struct {
	AppName        string
	RequestTimeout time.Duration
	Logger         *zap.Logger
	Metrics        *observability.Metrics
}

// NewServer builds the fiber application with middlewares and routes.
func NewServer(cfg ServerConfig, routes RouteConfig) *fiber.App {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	app := fiber.New(fiber.Config{
		AppName:               cfg.AppName,
		DisableStartupMessage: true,
		ErrorHandler:          ErrorHandler(logger, cfg.Metrics),
	})
	RegisterMiddlewares(app, logger, cfg.Metrics, cfg.RequestTimeout)
	if routes.Metrics == nil {
		routes.Metrics = cfg.Metrics
	}
	RegisterRoutes(app, routes)
	return app
}
