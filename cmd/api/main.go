package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/property-service/internal/api/http"
	"github.com/spec-kit/property-service/internal/api/http/handlers"
	"github.com/spec-kit/property-service/internal/auth"
	"github.com/spec-kit/property-service/internal/config"
	"github.com/spec-kit/property-service/internal/credential"
	"github.com/spec-kit/property-service/internal/directory"
	"github.com/spec-kit/property-service/internal/events"
	"github.com/spec-kit/property-service/internal/observability"
	"github.com/spec-kit/property-service/internal/persistence"
	"github.com/spec-kit/property-service/internal/repository"
	"github.com/spec-kit/property-service/internal/service"
	"github.com/spec-kit/property-service/internal/session"
	"github.com/spec-kit/property-service/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger, cfg.App)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(cfg.Postgres.DSN, logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	store, err := persistence.OpenStore(ctx, cfg.Postgres, cfg.App.Name, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer store.Close()

	cache := persistence.OpenCache(ctx, cfg.Redis, cfg.App.Name, logger)
	defer cache.Close()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		persistence.NewPoolCollector("postgres", store.Stats),
		persistence.NewPoolCollector("redis", cache.Stats),
	)
	metrics := observability.NewMetrics(registry)

	pool := store.Pool()
	credentialRepo := repository.NewCredentialRepository(pool)
	adminRepo := repository.NewAdminRepository(pool)
	staffRepo := repository.NewStaffRepository(pool)
	userRepo := repository.NewUserProfileRepository(pool)
	propertyRepo := repository.NewPropertyRepository(pool)
	taskRepo := repository.NewTaskRepository(pool)
	tokenStore := repository.NewRedisTokenStore(cache.Client())

	dispatcher := events.NewInMemoryDispatcher(logger)

	provider := credential.NewProvider(cfg.Auth, credential.Dependencies{
		CredentialRepo: credentialRepo,
		TokenStore:     tokenStore,
		Dispatcher:     dispatcher,
		Logger:         logger,
	})
	dir := directory.New(directory.Dependencies{
		AdminRepo: adminRepo,
		StaffRepo: staffRepo,
		UserRepo:  userRepo,
		Logger:    logger,
	})
	authenticator := session.NewAuthenticator(provider, dir, metrics, logger)
	sessions := session.NewRegistry(authenticator, session.NewRedisStore(cache.Client()),
		cfg.Session.NamespacePrefix, cfg.Auth.RefreshTokenTTL(), logger)
	sessions.Subscribe(dispatcher)

	propertyService := service.NewPropertyService(service.PropertyDependencies{
		PropertyRepo: propertyRepo,
		Dispatcher:   dispatcher,
		Metrics:      metrics,
		Logger:       logger,
	})
	taskService := service.NewTaskService(service.TaskDependencies{
		TaskRepo:   taskRepo,
		Directory:  dir,
		Dispatcher: dispatcher,
		Metrics:    metrics,
		Logger:     logger,
	})
	leadService := service.NewLeadService(dir, dir, logger)

	worker.StartNotificationWorker(service.NewNotificationService(dispatcher, logger, cfg.Notification))
	overdue := worker.NewOverdueTaskWorker(taskService, dispatcher, logger)
	go overdue.Start(ctx, cfg.Notification.OverdueScanInterval())

	signInLimiter := httptransport.NewRateLimiter(httptransport.RateLimiterConfig{
		PerMinute: cfg.Auth.SignInRatePerMinute,
		Burst:     cfg.Auth.SignInBurst,
	}, logger)
	defer signInLimiter.Stop()

	app := fiber.New(fiber.Config{
		AppName: cfg.App.Name,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return httptransport.WriteError(c, logger, metrics, err)
		},
	})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health: handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version,
			handlers.DependencyCheck{Name: "postgres", Pinger: store},
			handlers.DependencyCheck{Name: "redis", Pinger: cache}),
		Auth:           handlers.NewAuthHandler(sessions, provider),
		Properties:     handlers.NewPropertiesHandler(propertyService),
		Tasks:          handlers.NewTasksHandler(taskService, time.Now),
		Admin:          handlers.NewAdminHandler(leadService, dir),
		AuthMiddleware: auth.NewAuthMiddleware(provider, dir),
		SignInLimiter:  signInLimiter,
		Metrics:        adaptor.HTTPHandler(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})),
	})

	go func() {
		logger.Info("http server listening", zap.String("addr", cfg.App.Addr()), zap.String("env", cfg.App.Env))
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	cancel()
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
