package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/fundbrave/search-service/internal/adapters/cache"
	"github.com/fundbrave/search-service/internal/adapters/database"
	"github.com/fundbrave/search-service/internal/adapters/events"
	"github.com/fundbrave/search-service/internal/adapters/memory"
	"github.com/fundbrave/search-service/internal/api/handlers"
	"github.com/fundbrave/search-service/internal/api/routes"
	"github.com/fundbrave/search-service/internal/application/services"
	"github.com/fundbrave/search-service/internal/domain/providers"
	"github.com/fundbrave/search-service/internal/domain/repositories"
	"github.com/fundbrave/search-service/internal/infrastructure/clients/postgres"
	"github.com/fundbrave/search-service/internal/infrastructure/clients/redis"
	"github.com/fundbrave/search-service/internal/infrastructure/observability"
	"github.com/fundbrave/search-service/pkg/config"
)

// backends are the stores behind every search component
type backends struct {
	search      services.SearchRepositories
	suggestions repositories.SuggestionRepository
	recent      repositories.RecentSearchRepository
	trending    repositories.TrendingRepository
	analytics   repositories.SearchAnalyticsRepository
	close       func()
}

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	observability.InitLogger(cfg.OTEL.ServiceName, cfg.Env, cfg.LogLevel)

	// Set up context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize OpenTelemetry if enabled
	if cfg.OTEL.Enabled && cfg.OTEL.Endpoint != "" {
		shutdown, err := observability.Setup(ctx, cfg.OTEL.ServiceName, cfg.OTEL.ServiceVersion, cfg.OTEL.Endpoint)
		if err != nil {
			log.Warn().Err(err).Msg("failed to set up OpenTelemetry")
		} else {
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := shutdown(ctx); err != nil {
					log.Error().Err(err).Msg("error shutting down OpenTelemetry")
				}
			}()
			log.Info().Str("endpoint", cfg.OTEL.Endpoint).Msg("OpenTelemetry initialized")
		}
	}

	metrics, err := observability.InitMetrics()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize metrics")
	}

	store, err := openBackends(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Str("store", cfg.Search.Store).Msg("failed to initialize search store")
	}
	defer store.close()

	// Redis backs the result cache and the invalidation channel; without it
	// the process falls back to a local LRU and TTL-only expiry.
	var (
		cacheProvider providers.CacheProvider
		eventBus      providers.EventBus
	)
	redisClient, err := redis.NewClient(&cfg.Redis)
	if err != nil {
		log.Warn().Err(err).Msg("Redis unavailable, using in-process cache")
		lru, err := cache.NewLRUAdapter(cfg.Search.LocalCacheSize)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create local cache")
		}
		cacheProvider = lru
	} else {
		defer redisClient.Close()
		cacheProvider = cache.NewRedisAdapter(redisClient)
		eventBus = events.NewRedisEventBus(redisClient)
		log.Info().Str("addr", cfg.Redis.RedisAddr()).Msg("Redis client initialized")
	}

	// Initialize services
	tasks := services.NewBackgroundTasks(cfg.Search.AnalyticsTimeout)
	analyticsService := services.NewSearchAnalyticsService(store.analytics, tasks)
	searchService := services.NewSearchService(
		store.search,
		store.suggestions,
		store.recent,
		services.NewSearchCache(cacheProvider, metrics),
		analyticsService,
		tasks,
		cfg.Search,
		metrics,
	)
	suggestionService := services.NewSuggestionService(store.suggestions, store.recent, cacheProvider, cfg.Search, metrics)
	trendingService := services.NewTrendingService(store.trending, cacheProvider, cfg.Search, metrics)

	var cacheInvalidationService *services.CacheInvalidationService
	if eventBus != nil {
		cacheInvalidationService = services.NewCacheInvalidationService(cacheProvider, eventBus)
		if err := cacheInvalidationService.Start(); err != nil {
			log.Warn().Err(err).Msg("failed to start cache invalidation service")
			cacheInvalidationService = nil
		}
	}

	trendingService.StartPeriodicRefresh(ctx, cfg.Search.TrendingRefreshInterval)

	// Set up router
	router := routes.NewRouter(
		handlers.NewSearchHandler(searchService, suggestionService, trendingService),
		handlers.NewClickHandler(analyticsService, cacheProvider),
		metrics,
	).WithAllowedOrigins(cfg.Server.AllowedOrigins)

	serverAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      router.SetupRoutes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", serverAddr).Str("store", cfg.Search.Store).Msg("server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed to start")
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("server shutting down")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("error during server shutdown")
	}

	if cacheInvalidationService != nil {
		cacheInvalidationService.Stop()
	}
	if eventBus != nil {
		if err := eventBus.Close(); err != nil {
			log.Error().Err(err).Msg("error closing event bus")
		}
	}

	// Let queued analytics writes land before the store closes
	if err := tasks.Wait(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("background tasks did not finish before shutdown")
	}

	log.Info().Msg("server stopped")
}

// openBackends selects PostgreSQL or the in-process store
func openBackends(ctx context.Context, cfg *config.Config) (*backends, error) {
	if cfg.Search.Store == "memory" {
		store := memory.NewStore()
		log.Warn().Msg("using in-process search store, data is not persisted")
		return &backends{
			search: services.SearchRepositories{
				Campaigns: store.Campaigns(),
				Users:     store.Users(),
				Posts:     store.Posts(),
				Hashtags:  store.Hashtags(),
			},
			suggestions: store,
			recent:      store,
			trending:    store,
			analytics:   store,
			close:       func() {},
		}, nil
	}

	pgClient, err := postgres.NewClient(&cfg.Database)
	if err != nil {
		return nil, err
	}

	text, err := database.DetectTextSearch(ctx, pgClient)
	if err != nil {
		log.Warn().Err(err).Msg("could not detect pg_trgm, fuzzy matching disabled")
		text = database.NewTextSearch(false)
	}

	suggestionAdapter := database.NewSuggestionAdapter(pgClient, text)
	return &backends{
		search: services.SearchRepositories{
			Campaigns: database.NewCampaignSearchAdapter(pgClient, text),
			Users:     database.NewUserSearchAdapter(pgClient, text),
			Posts:     database.NewPostSearchAdapter(pgClient, text),
			Hashtags:  database.NewHashtagSearchAdapter(pgClient, text),
		},
		suggestions: suggestionAdapter,
		recent:      suggestionAdapter,
		trending:    database.NewTrendingAdapter(pgClient),
		analytics:   database.NewSearchAnalyticsAdapter(pgClient),
		close: func() {
			if err := pgClient.Close(); err != nil {
				log.Error().Err(err).Msg("error closing PostgreSQL client")
			}
		},
	}, nil
}
