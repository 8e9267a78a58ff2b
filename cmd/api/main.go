package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	httptransport "github.com/spec-kit/helpdesk-service/internal/api/http"
	"github.com/spec-kit/helpdesk-service/internal/api/http/handlers"
	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/collab"
	"github.com/spec-kit/helpdesk-service/internal/config"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/observability"
	"github.com/spec-kit/helpdesk-service/internal/persistence"
	"github.com/spec-kit/helpdesk-service/internal/ratelimit"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	"github.com/spec-kit/helpdesk-service/internal/repository/memory"
	"github.com/spec-kit/helpdesk-service/internal/service"
	"github.com/spec-kit/helpdesk-service/internal/worker"
)

type repositories struct {
	users         repository.UserRepository
	tickets       repository.TicketRepository
	comments      repository.CommentRepository
	activities    repository.ActivityRepository
	notifications repository.NotificationRepository
}

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

	if cfg.Postgres.RunMigrations && pg.Enabled() {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), cfg.Postgres.MigrationsDir, logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	repos := buildRepositories(pg)
	dispatcher := events.NewInMemoryDispatcher(logger)
	metrics := observability.NewMetrics()

	var limiter ratelimit.Limiter = ratelimit.NewMemoryLimiter(cfg.RateLimit.MaxAttempts, cfg.RateLimit.Window())
	if redis.Available() {
		limiter = ratelimit.NewRedisLimiter(redis.Client, "ratelimit:", cfg.RateLimit.MaxAttempts, cfg.RateLimit.Window())
	}

	authService := service.NewAuthService(*cfg, service.AuthDependencies{
		UserRepo: repos.users,
		Limiter:  limiter,
		Logger:   logger,
	})
	userService := service.NewUserService(repos.users, cfg.Auth.BcryptCost, logger, time.Now)
	notificationService := service.NewNotificationService(repos.notifications, logger, time.Now)
	ticketService := service.NewTicketService(service.TicketDependencies{
		TicketRepo:   repos.tickets,
		CommentRepo:  repos.comments,
		ActivityRepo: repos.activities,
		UserRepo:     repos.users,
		Notifier:     notificationService,
		Dispatcher:   dispatcher,
		Logger:       logger,
		Config:       cfg.Tickets,
	})

	relay := service.NewBridgeRelay(buildBridge(cfg.Collab, logger), repos.tickets, repos.users, logger, cfg.Collab.Timeout())
	worker.StartBridgeRelay(relay, dispatcher)

	if _, err := userService.EnsureAdmin(ctx, cfg.Bootstrap); err != nil {
		logger.Fatal("failed to seed admin", zap.Error(err))
	}

	app := httptransport.NewServer(httptransport.ServerConfig{
		AppName:        cfg.App.Name,
		RequestTimeout: cfg.App.RequestTimeout(),
		Logger:         logger,
		Metrics:        metrics,
		Routes: httptransport.RouteConfig{
			Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis, metrics),
			Users:          handlers.NewUsersHandler(authService, userService),
			Tickets:        handlers.NewTicketsHandler(ticketService),
			Notifications:  handlers.NewNotificationsHandler(notificationService),
			Admin:          handlers.NewAdminHandler(userService, ticketService),
			AuthMiddleware: auth.NewAuthMiddleware(authService.TokenManager(), repos.users),
		},
	})

	go func() {
		logger.Info("listening", zap.String("addr", cfg.App.Addr()), zap.String("env", cfg.App.Env))
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Warn("shutdown incomplete", zap.Error(err))
	}
}

func buildRepositories(pg *persistence.Postgres) repositories {
	if !pg.Enabled() {
		store := memory.NewStore()
		return repositories{
			users:         store.Users(),
			tickets:       store.Tickets(),
			comments:      store.Comments(),
			activities:    store.Activities(),
			notifications: store.Notifications(),
		}
	}
	pool := pg.PoolHandle()
	return repositories{
		users:         repository.NewUserRepository(pool),
		tickets:       repository.NewTicketRepository(pool),
		comments:      repository.NewCommentRepository(pool),
		activities:    repository.NewActivityRepository(pool),
		notifications: repository.NewNotificationRepository(pool),
	}
}

func buildBridge(cfg config.CollabConfig, logger *zap.Logger) collab.Bridge {
	if !cfg.Enabled {
		logger.Info("collaboration bridge disabled")
		return collab.NoopBridge{}
	}
	logger.Info("collaboration bridge enabled", zap.String("base_url", cfg.BaseURL))
	return collab.NewGraphBridge(collab.GraphConfig{
		BaseURL:      cfg.BaseURL,
		TokenURL:     cfg.TokenURL,
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Scopes:       strings.Fields(cfg.Scope),
		Timeout:      cfg.Timeout(),
	})
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
