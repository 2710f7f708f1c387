package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/gtmhq/gtm-advisor/internal/agent"
	httptransport "github.com/gtmhq/gtm-advisor/internal/api/http"
	"github.com/gtmhq/gtm-advisor/internal/api/http/handlers"
	"github.com/gtmhq/gtm-advisor/internal/auth"
	"github.com/gtmhq/gtm-advisor/internal/cache"
	"github.com/gtmhq/gtm-advisor/internal/config"
	"github.com/gtmhq/gtm-advisor/internal/events"
	"github.com/gtmhq/gtm-advisor/internal/llm"
	"github.com/gtmhq/gtm-advisor/internal/observability"
	"github.com/gtmhq/gtm-advisor/internal/persistence"
	"github.com/gtmhq/gtm-advisor/internal/ratelimit"
	"github.com/gtmhq/gtm-advisor/internal/repository"
	"github.com/gtmhq/gtm-advisor/internal/service"
	"github.com/gtmhq/gtm-advisor/internal/worker"
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

	backend, err := cache.New(cfg.Cache, cfg.App.IsProduction(), logger)
	if err != nil {
		logger.Fatal("failed to init cache backend", zap.Error(err))
	}
	defer backend.Close() //nolint:errcheck

	pool := pg.PoolHandle()
	userRepo := repository.NewUserRepository(pool)
	companyRepo := repository.NewCompanyRepository(pool)
	jobRepo := repository.NewAnalysisJobRepository(pool)

	blacklist := auth.NewBlacklist(backend, cfg.App.IsProduction(), logger)
	userCache := auth.NewUserCache(backend, logger)
	dispatcher := events.NewInMemoryDispatcher()

	authService := service.NewAuthService(cfg.Auth, userRepo, blacklist, logger)
	accountService := service.NewAccountService(userRepo, dispatcher, logger)

	orchestrator := agent.NewOrchestrator(agent.NewRegistry(llm.NewClient(cfg.LLM)))
	analysisService := service.NewAnalysisService(jobRepo, companyRepo, orchestrator, dispatcher, logger)
	if err := analysisService.RecoverOrphans(ctx); err != nil {
		logger.Warn("failed to recover orphaned analysis jobs", zap.Error(err))
	}
	analysisService.Start(ctx)

	worker.StartInvalidationWorker(dispatcher, userCache, logger)

	identity := auth.NewMiddleware(authService.TokenManager(), blacklist, userCache, userRepo, logger)
	limiter := ratelimit.NewLimiter(backend, cfg.Quota, logger)
	metrics := observability.NewMetrics()

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout(), cfg.App.IsProduction())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:    handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, backend),
		Auth:      handlers.NewAuthHandler(authService),
		Account:   handlers.NewAccountHandler(accountService),
		Companies: handlers.NewCompaniesHandler(companyRepo),
		Analysis:  handlers.NewAnalysisHandler(analysisService, accountService, companyRepo),
		Identity:  identity,
		Limiter:   limiter,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
	cancel()
	analysisService.Stop()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
