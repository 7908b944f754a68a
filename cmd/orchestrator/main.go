package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/ops-orchestrator/internal/api/http"
	"github.com/spec-kit/ops-orchestrator/internal/api/http/handlers"
	"github.com/spec-kit/ops-orchestrator/internal/auth"
	"github.com/spec-kit/ops-orchestrator/internal/config"
	"github.com/spec-kit/ops-orchestrator/internal/domain"
	"github.com/spec-kit/ops-orchestrator/internal/events"
	"github.com/spec-kit/ops-orchestrator/internal/observability"
	"github.com/spec-kit/ops-orchestrator/internal/persistence"
	"github.com/spec-kit/ops-orchestrator/internal/repository"
	"github.com/spec-kit/ops-orchestrator/internal/service"
	"github.com/spec-kit/ops-orchestrator/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	if err := domain.ValidateEscalationTables(); err != nil {
		log.Fatalf("invalid escalation tables: %v", err)
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

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	pool := pg.PoolHandle()
	ticketRepo := repository.NewTicketRepository(pool)
	staffRepo := repository.NewStaffRepository(pool)
	historyRepo := repository.NewAssignmentHistoryRepository(pool)
	escalationRepo := repository.NewEscalationLogRepository(pool)
	notificationRepo := repository.NewNotificationRepository(pool)

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()

	notificationService := service.NewNotificationService(
		notificationRepo, staffRepo, logger, metrics, cfg.Orchestrator.TicketBaseURL)
	notificationService.RegisterHandlers(dispatcher)

	orchestrator := service.NewOrchestrator(service.OrchestratorDependencies{
		TicketRepo:     ticketRepo,
		StaffRepo:      staffRepo,
		HistoryRepo:    historyRepo,
		EscalationRepo: escalationRepo,
		Dispatcher:     dispatcher,
		Logger:         logger,
		Metrics:        metrics,
	})

	lease := persistence.NewTickLease(redis, cfg.Orchestrator.LeaseTTL())
	tickWorker := worker.NewTickWorker(orchestrator, lease,
		cfg.Orchestrator.TickInterval(), cfg.Orchestrator.TickTimeout(), logger, metrics)
	go tickWorker.Start(ctx)

	tokenManager := auth.NewTokenManager(cfg.Auth.JWTSecret)

	app := fiber.New()
	httptransport.RegisterMiddlewares(app, logger)
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:       handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis, metrics),
		Ticks:        handlers.NewTickHandler(tickWorker, logger),
		TokenManager: tokenManager,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	cancel()
	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
