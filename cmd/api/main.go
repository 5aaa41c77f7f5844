package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/studiodesk/support-tickets/internal/api/http"
	"github.com/studiodesk/support-tickets/internal/api/http/handlers"
	"github.com/studiodesk/support-tickets/internal/auth"
	"github.com/studiodesk/support-tickets/internal/config"
	"github.com/studiodesk/support-tickets/internal/events"
	"github.com/studiodesk/support-tickets/internal/intake"
	"github.com/studiodesk/support-tickets/internal/observability"
	"github.com/studiodesk/support-tickets/internal/persistence"
	"github.com/studiodesk/support-tickets/internal/repository"
	"github.com/studiodesk/support-tickets/internal/service"
	"github.com/studiodesk/support-tickets/internal/worker"
)

const shutdownTimeout = 10 * time.Second

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

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(ctx, cfg.Redis, logger)
	defer redis.Close()

	pool := pg.PoolHandle()
	ticketRepo := repository.NewTicketRepository(pool)
	historyRepo := repository.NewTicketHistoryRepository(pool)
	userRepo := repository.NewUserRepository(pool)
	studioRepo := repository.NewStudioRepository(pool)
	categoryRepo := repository.NewCategoryRepository(pool)
	settingsRepo := repository.NewSettingsRepository(pool)
	deliveryRepo := repository.NewDeliveryRepository(redis.Client)

	factory := intake.NewFactory(cfg.Tickets.DefaultSLA())
	fallback := intake.NewFallbackResolver(studioRepo, categoryRepo)
	dispatcher := events.NewInMemoryDispatcher()

	ticketService := service.NewTicketService(service.TicketDependencies{
		TicketRepo:           ticketRepo,
		HistoryRepo:          historyRepo,
		CategoryRepo:         categoryRepo,
		Fallback:             fallback,
		Factory:              factory,
		Dispatcher:           dispatcher,
		Logger:               logger.Named("tickets"),
		TicketNumberAttempts: cfg.Tickets.TicketNumberAttempts,
	})
	intakeService := service.NewIntakeService(service.IntakeDependencies{
		SettingsRepo:   settingsRepo,
		DeliveryRepo:   deliveryRepo,
		Fallback:       fallback,
		Tickets:        ticketService,
		Logger:         logger.Named("intake"),
		IdempotencyTTL: cfg.Webhooks.IdempotencyTTL(),
	})
	settingsService := service.NewSettingsService(settingsRepo, dispatcher, factory, fallback, logger.Named("settings"))
	authService, err := service.NewAuthService(*cfg, userRepo)
	if err != nil {
		logger.Fatal("failed to init auth", zap.Error(err))
	}
	notificationService := service.NewNotificationService(dispatcher, settingsRepo, logger.Named("notifications"))

	publisher := events.NewKafkaPublisher(cfg.Kafka, logger.Named("kafka"))
	defer func() {
		if err := publisher.Close(); err != nil {
			logger.Warn("close kafka publisher", zap.Error(err))
		}
	}()
	worker.StartEventSubscribers(dispatcher, notificationService, publisher)

	metrics := observability.NewMetrics()
	validate := validator.New()

	app := fiber.New(fiber.Config{
		AppName:               cfg.App.Name,
		DisableStartupMessage: true,
		BodyLimit:             1 << 20,
	})
	httptransport.RegisterMiddlewares(app, logger, metrics, httptransport.MiddlewareConfig{
		Timeout:        cfg.App.RequestTimeout(),
		AllowedOrigins: cfg.App.CORSAllowedOrigins,
	})

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health: handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, map[string]handlers.Pinger{
			"postgres": pg,
			"redis":    redis,
		}, metrics),
		Auth:           handlers.NewAuthHandler(authService, validate),
		Tickets:        handlers.NewTicketsHandler(ticketService, validate),
		Intake:         handlers.NewIntakeHandler(intakeService, validate),
		Settings:       handlers.NewSettingsHandler(settingsService, validate),
		AuthMiddleware: auth.NewAuthMiddleware(authService.TokenManager(), userRepo),
	})

	go func() {
		logger.Info("listening", zap.String("addr", cfg.App.Addr()), zap.String("env", cfg.App.Env))
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil {
		logger.Warn("shutdown", zap.Error(err))
	}
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
