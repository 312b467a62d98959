package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/zatekoja/careslot/internal/adapters/cache"
	"github.com/zatekoja/careslot/internal/adapters/database"
	"github.com/zatekoja/careslot/internal/adapters/events"
	"github.com/zatekoja/careslot/internal/adapters/locks"
	"github.com/zatekoja/careslot/internal/adapters/memory"
	"github.com/zatekoja/careslot/internal/adapters/search"
	"github.com/zatekoja/careslot/internal/api/handlers"
	"github.com/zatekoja/careslot/internal/api/middleware"
	"github.com/zatekoja/careslot/internal/api/routes"
	"github.com/zatekoja/careslot/internal/application/services"
	"github.com/zatekoja/careslot/internal/domain/providers"
	"github.com/zatekoja/careslot/internal/domain/repositories"
	"github.com/zatekoja/careslot/internal/infrastructure/clients/postgres"
	"github.com/zatekoja/careslot/internal/infrastructure/clients/redis"
	"github.com/zatekoja/careslot/internal/infrastructure/clients/typesense"
	"github.com/zatekoja/careslot/internal/infrastructure/observability"
	"github.com/zatekoja/careslot/pkg/config"
)

const cacheWarmingInterval = 5 * time.Minute

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	observability.InitLogger(cfg.OTEL.ServiceName, cfg.Server.Env)

	// Set up context for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

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
			log.Info().Msg("OpenTelemetry initialized")
		}
	}

	// Initialize metrics
	metrics, err := observability.InitMetrics()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize metrics")
	}

	checks := map[string]handlers.HealthCheck{}

	// Initialize Redis client
	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient, err = redis.NewClient(ctx, &cfg.Redis)
		if err != nil {
			if cfg.Locking.Backend == config.LockBackendRedis {
				log.Fatal().Err(err).Msg("Redis is required for LOCK_BACKEND=redis")
			}
			// Continue without Redis; caching and events are optional
			log.Warn().Err(err).Msg("Failed to initialize Redis client")
		} else {
			defer redisClient.Close()
			checks["redis"] = redisClient.Ping
		}
	}

	var cacheProvider providers.CacheProvider
	var eventBus providers.EventBus
	if redisClient != nil {
		cacheProvider = cache.NewRedisAdapter(redisClient)
		eventBus = events.NewRedisEventBus(redisClient)
		log.Info().Msg("Cache and event bus initialized")
	} else {
		log.Info().Msg("Cache and event bus disabled (Redis not available)")
	}

	// Initialize stores
	var (
		providerRepo     repositories.ProviderRepository
		availabilityRepo repositories.AvailabilityRepository
		appointmentRepo  repositories.AppointmentRepository
	)
	switch cfg.Store.Driver {
	case config.StoreDriverPostgres:
		pgClient, err := postgres.NewClient(ctx, &cfg.Database)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize PostgreSQL client")
		}
		defer pgClient.Close()
		if err := database.EnsureSchema(ctx, pgClient); err != nil {
			log.Fatal().Err(err).Msg("Failed to apply database schema")
		}
		checks["postgres"] = pgClient.Ping

		providerRepo = database.NewProviderAdapter(pgClient)
		if cacheProvider != nil {
			providerRepo = database.NewCachedProviderAdapter(providerRepo, cacheProvider, metrics)
			log.Info().Msg("Provider adapter wrapped with caching layer")
		}
		availabilityRepo = database.NewAvailabilityAdapter(pgClient)
		appointmentRepo = database.NewAppointmentAdapter(pgClient)
	default:
		providerRepo = memory.NewProviderStore()
		availabilityRepo = memory.NewAvailabilityStore()
		appointmentRepo = memory.NewAppointmentStore()
	}
	log.Info().Str("driver", cfg.Store.Driver).Msg("Stores initialized")

	// Initialize slot locker
	var locker providers.SlotLocker
	switch cfg.Locking.Backend {
	case config.LockBackendRedis:
		locker = locks.NewRedisLocker(redisClient.Client(), cfg.Locking.TTL, cfg.Locking.Wait)
	default:
		locker = locks.NewLocalLocker(cfg.Locking.Wait)
	}

	// Initialize search index
	var searchIndex providers.ProviderSearchIndex
	if cfg.Typesense.Enabled {
		tsClient, err := typesense.NewClient(ctx, &cfg.Typesense)
		if err != nil {
			log.Warn().Err(err).Msg("Failed to initialize Typesense client; searching the store directly")
		} else if err := tsClient.InitSchema(ctx); err != nil {
			log.Warn().Err(err).Msg("Failed to init Typesense schema; searching the store directly")
		} else {
			searchIndex = search.NewTypesenseAdapter(tsClient)
			checks["typesense"] = tsClient.Ping
		}
	}

	// Initialize services
	catalogService := services.NewCatalogService(providerRepo, availabilityRepo, searchIndex)
	if cacheProvider != nil {
		catalogService.WithCacheInvalidation(services.NewCacheInvalidationService(cacheProvider))
	}

	if cfg.Store.SeedOnStart {
		if err := seedIfEmpty(ctx, providerRepo, catalogService, cfg.Store.SeedDays); err != nil {
			log.Fatal().Err(err).Msg("Failed to seed catalog")
		}
	}
	if searchIndex != nil {
		if indexed, err := catalogService.Reindex(ctx); err != nil {
			log.Warn().Err(err).Msg("Failed to reindex providers")
		} else {
			log.Info().Int("providers", indexed).Msg("Search index refreshed")
		}
	}

	schedulingService := services.NewSchedulingService(providerRepo, availabilityRepo, appointmentRepo, locker, eventBus, metrics)
	searchService := services.NewSearchService(providerRepo, searchIndex, cfg.Search.MaxLimit)
	providerService := services.NewProviderService(providerRepo, availabilityRepo)
	notificationService := services.NewNotificationService(appointmentRepo, eventBus)

	if cacheProvider != nil && cfg.Store.Driver == config.StoreDriverPostgres {
		services.NewCacheWarmingService(providerRepo).StartPeriodicWarming(ctx, cacheWarmingInterval)
	}

	// Initialize handlers
	providerHandler := handlers.NewProviderHandler(providerService, searchService, cfg.Search)
	appointmentHandler := handlers.NewAppointmentHandler(schedulingService)
	notificationHandler := handlers.NewNotificationHandler(notificationService)
	healthHandler := handlers.NewHealthHandler(cfg.OTEL.ServiceVersion, checks)

	var cacheMiddleware *middleware.CacheMiddleware
	if cacheProvider != nil {
		cacheMiddleware = middleware.NewCacheMiddleware(cacheProvider, metrics)
	}

	// Set up router
	router := routes.NewRouter(
		providerHandler,
		appointmentHandler,
		notificationHandler,
		healthHandler,
		routes.Options{
			ProviderRepo:       providerRepo,
			Cache:              cacheMiddleware,
			Metrics:            metrics,
			DefaultRequesterID: cfg.Auth.DefaultRequesterID,
			AllowedOrigins:     cfg.Server.AllowedOrigins,
		},
	)

	serverAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      router.SetupRoutes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Info().Str("addr", serverAddr).Msg("Server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	<-ctx.Done()
	log.Info().Msg("Server shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error during server shutdown")
	}

	if eventBus != nil {
		if err := eventBus.Close(); err != nil {
			log.Error().Err(err).Msg("Error closing event bus")
		}
	}

	log.Info().Msg("Server stopped")
}

// seedIfEmpty provisions the demo catalog unless providers already exist
func seedIfEmpty(ctx context.Context, providerRepo repositories.ProviderRepository, catalog *services.CatalogService, days int) error {
	existing, err := providerRepo.List(ctx, repositories.ProviderFilter{})
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		log.Info().Int("providers", len(existing)).Msg("Catalog already provisioned, skipping seed")
		return nil
	}
	return catalog.Provision(ctx, services.SeedCatalog(time.Now(), days))
}
