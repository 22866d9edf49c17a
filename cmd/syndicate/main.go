package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fortuna/syndicate/internal/api/rest"
	"github.com/fortuna/syndicate/internal/api/websocket"
	"github.com/fortuna/syndicate/internal/cache"
	"github.com/fortuna/syndicate/internal/config"
	"github.com/fortuna/syndicate/internal/importer"
	"github.com/fortuna/syndicate/internal/ingest"
	"github.com/fortuna/syndicate/internal/ingest/telegram"
	"github.com/fortuna/syndicate/internal/logger"
	"github.com/fortuna/syndicate/internal/payments"
	"github.com/fortuna/syndicate/internal/publisher"
	"github.com/fortuna/syndicate/internal/service"
	"github.com/fortuna/syndicate/internal/store"
	"github.com/fortuna/syndicate/internal/store/repository"
	"github.com/fortuna/syndicate/internal/tipparse"
)

const (
	serviceName    = "syndicate"
	serviceVersion = "1.0.0"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(cfg.Logger()); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to init logger: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logger.Info(ctx).Str("version", serviceVersion).Msgf("Starting %s", serviceName)

	// Initialize database connection
	db, err := store.NewDatabase(cfg.DatabaseDSN)
	if err != nil {
		logger.Fatal(ctx).Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()

	if err := db.RunMigrations(ctx); err != nil {
		logger.Fatal(ctx).Err(err).Msg("Failed to run database migrations")
	}
	logger.Info(ctx).Msg("Database migrations applied")

	// Initialize Redis client with retry logic
	var redisCache *cache.RedisCache
	maxRetries := 30
	retryDelay := 2 * time.Second

	for i := 0; i < maxRetries; i++ {
		redisCache, err = cache.NewRedisCache(cfg.RedisURL)
		if err == nil {
			break
		}

		if i < maxRetries-1 {
			logger.Warn(ctx).Err(err).Int("attempt", i+1).Int("max", maxRetries).Dur("retry_in", retryDelay).Msg("Redis connection failed")
			time.Sleep(retryDelay)
		} else {
			logger.Fatal(ctx).Err(err).Int("attempts", maxRetries).Msg("Failed to connect to Redis")
		}
	}
	defer redisCache.Close()
	logger.Info(ctx).Msg("Connected to Redis")

	events := publisher.NewRedisStreamPublisher(redisCache.Client())

	policy, err := cfg.SegmentPolicy()
	if err != nil {
		logger.Fatal(ctx).Err(err).Msg("Invalid parser policy")
	}
	parser := tipparse.NewParser(policy)

	// Telegram is optional
	tg, err := telegram.NewClient(cfg.TelegramBotToken, cfg.TelegramChannelID)
	if err != nil {
		logger.Fatal(ctx).Err(err).Msg("Failed to connect Telegram bot")
	}
	var (
		posts  rest.PostSource
		poster service.ChannelPoster
	)
	if tg.Configured() {
		posts = tg
		if cfg.TelegramChannelID != "" {
			poster = tg
		}
		logger.Info(ctx).Str("channel", cfg.TelegramChannelID).Msg("Telegram bot connected")
	}

	if !cfg.PaymentsEnabled() {
		logger.Warn(ctx).Msg("STRIPE_API_KEY not set, checkout disabled")
	}

	wsServer := websocket.NewServer(cfg.WSPort, cfg.CORSOrigins)
	go wsServer.Run(ctx)

	betRepo := repository.NewBetRepository(db)
	userRepo := repository.NewUserRepository(db)

	bets := service.NewBetService(betRepo, redisCache, events)
	imp := importer.New(bets, parser, importer.Options{})

	deps := rest.Deps{
		Auth:  service.NewAuthService(userRepo, service.NewTokenIssuer(cfg.JWTSecret, cfg.TokenTTL), cfg.AdminCode),
		Bets:  bets,
		Stats: service.NewStatsService(betRepo, redisCache),
		Notifications: service.NewNotificationService(
			repository.NewNotificationRepository(db), events, wsServer, poster),
		Subscriptions: service.NewSubscriptionService(
			payments.NewStripeCheckout(cfg.StripeAPIKey, cfg.StripeWebhookSecret),
			repository.NewPaymentRepository(db), userRepo),
		Importer: imp,
		Ingester: ingest.NewIngester(parser, imp),
		Telegram: posts,
		Health: map[string]rest.HealthChecker{
			"postgres": db,
			"redis":    redisCache,
		},
	}

	// Initialize REST API server
	restServer := rest.NewServer(cfg.RESTPort, deps, cfg.CORSOrigins)
	go func() {
		logger.Info(ctx).Str("port", cfg.RESTPort).Msg("Starting REST API server")
		if err := restServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error(ctx).Err(err).Msg("REST server stopped")
		}
	}()

	// Initialize WebSocket server
	go func() {
		if err := wsServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error(ctx).Err(err).Msg("WebSocket server stopped")
		}
	}()

	logger.Info(ctx).
		Str("rest", "http://0.0.0.0:"+cfg.RESTPort).
		Str("websocket", "ws://0.0.0.0:"+cfg.WSPort).
		Str("parser_policy", parser.Policy().String()).
		Msgf("%s v%s started", serviceName, serviceVersion)

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info(ctx).Msg("Shutting down gracefully")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := restServer.Shutdown(shutdownCtx); err != nil {
		logger.Error(shutdownCtx).Err(err).Msg("REST API server shutdown error")
	}
	if err := wsServer.Shutdown(shutdownCtx); err != nil {
		logger.Error(shutdownCtx).Err(err).Msg("WebSocket server shutdown error")
	}

	logger.Info(shutdownCtx).Msgf("%s stopped", serviceName)
}
