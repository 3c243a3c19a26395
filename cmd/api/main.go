package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/waitlist-service/internal/api/http"
	"github.com/spec-kit/waitlist-service/internal/api/http/handlers"
	"github.com/spec-kit/waitlist-service/internal/auth"
	"github.com/spec-kit/waitlist-service/internal/bot"
	"github.com/spec-kit/waitlist-service/internal/config"
	"github.com/spec-kit/waitlist-service/internal/events"
	"github.com/spec-kit/waitlist-service/internal/notify"
	"github.com/spec-kit/waitlist-service/internal/observability"
	"github.com/spec-kit/waitlist-service/internal/persistence"
	"github.com/spec-kit/waitlist-service/internal/repository"
	"github.com/spec-kit/waitlist-service/internal/service"
	"github.com/spec-kit/waitlist-service/internal/worker"
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

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	var ticketRepo repository.TicketRepository
	if pool := pg.PoolHandle(); pool != nil {
		ticketRepo = repository.NewTicketRepository(pool)
	} else {
		logger.Warn("using in-memory ticket store; tickets will not survive a restart")
		ticketRepo = repository.NewMemoryTicketRepository()
	}

	metrics := observability.NewMetrics()
	bus := events.NewInMemoryDispatcher()

	queueService := service.NewQueueService(service.QueueDependencies{
		TicketRepo: ticketRepo,
		Dispatcher: bus,
		Logger:     logger,
	})

	transport := notify.NewLineTransport(cfg.Line, logger)
	notifier := notify.NewDispatcher(transport, logger, metrics, notify.Config{
		StoreName: cfg.Queue.StoreName,
		Timeout:   cfg.Line.Timeout(),
	})
	worker.StartNotificationWorker(notifier, bus)

	botRouter := bot.NewRouter(bot.RouterConfig{
		Queue:         queueService,
		Transport:     transport,
		Dedup:         bot.NewRedisDeduper(redis.Client, cfg.Line.DedupTTL(), logger),
		Logger:        logger,
		ChannelSecret: cfg.Line.ChannelSecret,
		StoreName:     cfg.Queue.StoreName,
	})

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes)
	authMiddleware := auth.NewMiddleware(tokens)

	app := fiber.New()
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Tickets:        handlers.NewTicketsHandler(queueService),
		Admin:          handlers.NewAdminHandler(queueService),
		Webhook:        handlers.NewWebhookHandler(botRouter),
		Auth:           handlers.NewAuthHandler(tokens, cfg.Auth),
		AuthMiddleware: authMiddleware,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
