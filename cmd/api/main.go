package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	httptransport "github.com/deskforge/helpdesk/internal/api/http"
	"github.com/deskforge/helpdesk/internal/api/http/handlers"
	"github.com/deskforge/helpdesk/internal/auth"
	"github.com/deskforge/helpdesk/internal/config"
	"github.com/deskforge/helpdesk/internal/entitlement"
	"github.com/deskforge/helpdesk/internal/events"
	"github.com/deskforge/helpdesk/internal/observability"
	"github.com/deskforge/helpdesk/internal/persistence"
	"github.com/deskforge/helpdesk/internal/service"
	"github.com/deskforge/helpdesk/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := persistence.OpenDatabase(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to open database", zap.Error(err))
	}
	defer db.Close()
	store := db.Store

	redis := persistence.NewRedis(ctx, cfg.Redis, logger)
	defer redis.Close()

	health := map[string]handlers.Pinger{"store": store}
	if redis.Client != nil {
		health["redis"] = redis
	}

	metrics := observability.NewMetrics("helpdesk")
	dispatcher := events.NewInMemoryDispatcher()
	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes, cfg.Auth.Issuer)
	gate := entitlement.NewGate(
		redis.LimitCache(cfg.Entitlement.CacheTTL()),
		cfg.Entitlement.DefaultMaxUsers,
		logger,
	)

	organizationService := service.NewOrganizationService(service.OrganizationDependencies{
		Store:           store,
		DefaultMaxUsers: cfg.Entitlement.DefaultMaxUsers,
		BcryptCost:      cfg.Auth.BcryptCost,
		Logger:          logger,
	})
	authService := service.NewAuthService(service.AuthDependencies{
		Store:         store,
		Organizations: organizationService,
		Tokens:        tokens,
		BcryptCost:    cfg.Auth.BcryptCost,
		Logger:        logger,
	})
	userService := service.NewUserService(service.UserDependencies{
		Store:      store,
		Gate:       gate,
		BcryptCost: cfg.Auth.BcryptCost,
		Logger:     logger,
	})
	ticketService := service.NewTicketService(service.TicketDependencies{
		Store:      store,
		Dispatcher: dispatcher,
		Logger:     logger,
	})
	billingService := service.NewBillingService(service.BillingDependencies{
		Store:      store,
		Gate:       gate,
		Dispatcher: dispatcher,
		Logger:     logger,
	})
	notificationService := service.NewNotificationService(dispatcher, logger, cfg.Notification)
	worker.StartNotificationWorker(dispatcher, notificationService, metrics)

	if cfg.Auth.SuperAdminEmail != "" {
		if _, err := authService.EnsureSuperAdmin(ctx, "Platform Operator", cfg.Auth.SuperAdminEmail, cfg.Auth.SuperAdminPassword); err != nil {
			logger.Fatal("failed to provision superadmin", zap.Error(err))
		}
	}

	scheduler, err := worker.NewScheduler(billingService, cfg.Jobs.SubscriptionSweepInterval(), metrics, logger)
	if err != nil {
		logger.Fatal("failed to create scheduler", zap.Error(err))
	}
	scheduler.Start()

	app := httptransport.NewServer(httptransport.ServerConfig{
		AppName:        cfg.App.Name,
		RequestTimeout: cfg.App.RequestTimeout(),
		Logger:         logger,
		Metrics:        metrics,
	}, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, health),
		Auth:           handlers.NewAuthHandler(authService),
		Tickets:        handlers.NewTicketsHandler(ticketService),
		Users:          handlers.NewUsersHandler(userService),
		Organizations:  handlers.NewOrganizationHandler(organizationService, billingService),
		Plans:          handlers.NewPlansHandler(billingService),
		AuthMiddleware: auth.NewAuthMiddleware(tokens, store.Repositories().Users),
		LoginLimiter:   httptransport.NewIPRateLimiter(cfg.Auth.LoginRatePerMinute, cfg.Auth.LoginBurst),
	})

	go func() {
		logger.Info("listening", zap.String("addr", cfg.App.Addr()))
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
	if err := scheduler.Stop(); err != nil {
		logger.Warn("scheduler shutdown", zap.Error(err))
	}
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
