package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/threadmail/internal/api/http"
	"github.com/spec-kit/threadmail/internal/api/http/handlers"
	"github.com/spec-kit/threadmail/internal/api/interactions"
	"github.com/spec-kit/threadmail/internal/auth"
	"github.com/spec-kit/threadmail/internal/config"
	"github.com/spec-kit/threadmail/internal/discord"
	"github.com/spec-kit/threadmail/internal/events"
	"github.com/spec-kit/threadmail/internal/observability"
	"github.com/spec-kit/threadmail/internal/persistence"
	"github.com/spec-kit/threadmail/internal/repository"
	"github.com/spec-kit/threadmail/internal/service"
	"github.com/spec-kit/threadmail/internal/worker"
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

	store, err := persistence.OpenStore(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("failed to open store", zap.Error(err))
	}
	defer store.Close()

	platform, err := discord.NewClient(cfg.Discord)
	if err != nil {
		logger.Fatal("failed to create discord client", zap.Error(err))
	}

	signature, err := auth.NewSignatureMiddleware(cfg.Discord.PublicKey)
	if err != nil {
		logger.Fatal("invalid DISCORD_APP_PUBLIC_KEY", zap.Error(err))
	}

	userRepo := repository.NewUserRepository(store)
	ticketRepo := repository.NewTicketRepository(store)
	guildRepo := repository.NewGuildRepository(store)
	cooldownRepo := repository.NewCooldownRepository(store)

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()

	metadataService := service.NewMetadataService(userRepo, platform, cfg.Discord.LinkedRolePlatform, logger.Named("metadata"))
	authService := service.NewAuthService(*cfg, service.AuthDependencies{
		UserRepo: userRepo,
		Platform: platform,
		Metadata: metadataService,
		Logger:   logger.Named("auth"),
	})
	metadataService.UseTokens(authService)

	ticketService := service.NewTicketService(service.TicketDependencies{
		UserRepo:     userRepo,
		TicketRepo:   ticketRepo,
		GuildRepo:    guildRepo,
		CooldownRepo: cooldownRepo,
		Platform:     platform,
		Tokens:       authService,
		Dispatcher:   dispatcher,
		Logger:       logger.Named("tickets"),
		Config:       cfg.Ticket,
	})
	relayService := service.NewRelayService(service.RelayDependencies{
		UserRepo:   userRepo,
		TicketRepo: ticketRepo,
		GuildRepo:  guildRepo,
		Platform:   platform,
		Dispatcher: dispatcher,
		Logger:     logger.Named("relay"),
	})
	guildService := service.NewGuildService(guildRepo, platform, logger.Named("guilds"))

	notificationService := service.NewNotificationService(dispatcher, metadataService, metrics, logger.Named("events"))
	worker.StartNotificationWorker(notificationService, logger)

	router := interactions.NewRouter(interactions.RouterDependencies{
		Tickets:    ticketService,
		Relay:      relayService,
		Guilds:     guildService,
		Authorizer: authService,
		Metrics:    metrics,
		Logger:     logger.Named("interactions"),
	})

	app := fiber.New(fiber.Config{
		AppName:               cfg.App.Name,
		BodyLimit:             cfg.Discord.InteractionsMaxBodyKB * 1024,
		DisableStartupMessage: true,
	})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:       handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, cfg.Store.Driver, store, metrics),
		Interactions: handlers.NewInteractionsHandler(router),
		OAuth:        handlers.NewOAuthHandler(authService, logger.Named("oauth")),
		Signature:    signature,
	})

	go func() {
		logger.Info("listening", zap.String("addr", cfg.App.Addr()), zap.String("store", cfg.Store.Driver))
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Warn("shutdown", zap.Error(err))
	}
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
