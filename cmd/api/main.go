package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/cibounipi/mensabot/internal/adapters/cache"
	"github.com/cibounipi/mensabot/internal/adapters/events"
	"github.com/cibounipi/mensabot/internal/adapters/source"
	"github.com/cibounipi/mensabot/internal/api/handlers"
	"github.com/cibounipi/mensabot/internal/api/middleware"
	"github.com/cibounipi/mensabot/internal/api/routes"
	"github.com/cibounipi/mensabot/internal/application/services"
	"github.com/cibounipi/mensabot/internal/domain/providers"
	"github.com/cibounipi/mensabot/internal/infrastructure/clients/redis"
	"github.com/cibounipi/mensabot/internal/infrastructure/observability"
	"github.com/cibounipi/mensabot/internal/store"
	"github.com/cibounipi/mensabot/pkg/config"
)

const memoryCacheSize = 1024

func main() {
	configPath := flag.String("config", os.Getenv("CONFIG_FILE"), "optional YAML config file")
	flag.Parse()

	// A missing .env is fine outside development
	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	observability.InitLogger(cfg.OTEL.ServiceName, cfg.App.Env, cfg.App.LogLevel)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize OpenTelemetry if enabled
	if cfg.OTEL.Enabled && cfg.OTEL.Endpoint != "" {
		shutdown, err := observability.Setup(ctx, cfg.OTEL.ServiceName, cfg.OTEL.ServiceVersion, cfg.OTEL.Endpoint)
		if err != nil {
			log.Warn().Err(err).Msg("Failed to set up OpenTelemetry")
		} else {
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := shutdown(ctx); err != nil {
					log.Error().Err(err).Msg("Error shutting down OpenTelemetry")
				}
			}()
			log.Info().Str("endpoint", cfg.OTEL.Endpoint).Msg("OpenTelemetry initialized")
		}
	}

	metrics, err := observability.InitMetrics()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize metrics")
	}

	loc, err := cfg.Location()
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid timezone")
	}
	cutover, err := cfg.Pricing.Cutover()
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid scholarship cutover")
	}

	docSource, err := newDocumentSource(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize document source")
	}
	log.Info().Str("source", docSource.Name()).Msg("Document source initialized")

	// Redis backs the render cache and the refresh channel; without it renders
	// are cached in process and reloads rely on the interval or the admin route.
	var cacheProvider providers.CacheProvider
	var eventBus providers.EventBus
	if cfg.Redis.Enabled {
		redisClient, err := redis.NewClient(ctx, &cfg.Redis)
		if err != nil {
			log.Warn().Err(err).Msg("Redis unavailable, falling back to in-memory cache")
		} else {
			defer redisClient.Close()
			cacheProvider = cache.NewRedisAdapter(redisClient)
			eventBus = events.NewRedisEventBus(redisClient)
			log.Info().Str("addr", cfg.Redis.RedisAddr()).Msg("Redis client initialized")
		}
	}
	if cacheProvider == nil {
		cacheProvider = cache.NewMemoryAdapter(memoryCacheSize, time.Duration(cfg.Redis.CacheTTLSeconds)*time.Second)
	}

	holder := store.NewHolder(nil)
	snapshotService := services.NewSnapshotService(docSource, holder, services.SnapshotServiceConfig{
		Location: loc,
		Cache:    cacheProvider,
		EventBus: eventBus,
		Channel:  cfg.Redis.RefreshChannel,
		Interval: cfg.Data.ReloadInterval,
		Metrics:  metrics,
	})

	if _, err := snapshotService.Reload(ctx, services.TriggerStartup); err != nil {
		log.Fatal().Err(err).Msg("Failed to load initial snapshot")
	}
	if err := snapshotService.Start(); err != nil {
		log.Fatal().Err(err).Msg("Failed to start snapshot service")
	}

	engine := services.NewQueryEngine(holder, cutover)
	navigator := services.NewNavigator(engine)

	queryHandler := handlers.NewQueryHandler(engine, navigator)
	adminHandler := handlers.NewAdminHandler(snapshotService)
	cacheMiddleware := middleware.NewCacheMiddleware(cacheProvider, queryHandler.CacheScope, cfg.Redis.CacheTTLSeconds, metrics)

	router := routes.NewRouter(queryHandler, adminHandler, cacheMiddleware, metrics)

	server := &http.Server{
		Addr:         cfg.Server.ServerAddr(),
		Handler:      router.SetupRoutes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("Server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Server shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error during server shutdown")
	}

	snapshotService.Stop()

	if eventBus != nil {
		if err := eventBus.Close(); err != nil {
			log.Error().Err(err).Msg("Error closing event bus")
		}
	}

	log.Info().Msg("Server stopped")
}

func newDocumentSource(ctx context.Context, cfg *config.Config) (providers.DocumentSource, error) {
	if cfg.Data.Source == "s3" {
		return source.NewS3Source(ctx, &cfg.Data)
	}
	return source.NewFileSource(cfg.Data.Dir), nil
}
