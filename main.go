package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"sjsage522/reviewworker/config"
	"sjsage522/reviewworker/helpers"
	"sjsage522/reviewworker/internal/crawler"
	"sjsage522/reviewworker/logger"
	"sjsage522/reviewworker/pkg/errors"
	"sjsage522/reviewworker/services/cache"
	"sjsage522/reviewworker/services/metrics"
	"sjsage522/reviewworker/services/publisher"
	"sjsage522/reviewworker/services/worker"

	"github.com/joho/godotenv"
)

// blockKey marks the site as rate limited in the shared cache
const blockKey = "tripadvisor_rate_limited"

func main() {
	// Load environment variables
	godotenv.Load()

	// Initialize logger first
	logger.Init()
	log := logger.Default

	// Load and validate configuration
	cfg := config.LoadConfig()
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	log.Info().
		Str("environment", cfg.Environment).
		Str("city", cfg.City).
		Str("sink", cfg.Sink).
		Dur("crawl_interval", cfg.CrawlInterval).
		Msg("Starting application")

	// Set up context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Set up signal handling
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	metrics.Serve(ctx, cfg.MetricsAddr, metrics.InitRegistry())

	// Initialize services
	services, err := initializeServices(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize services")
	}
	defer services.Cleanup()

	fetcher, err := crawler.NewHTTPFetcher(crawler.FetcherConfig{
		RequestsPerSecond: cfg.RequestsPerSecond,
		CacheEnabled:      cfg.HTTPCacheEnabled,
		CacheTTL:          cfg.HTTPCacheTTL,
		BlockKey:          blockKey,
		BlockTime:         cfg.BlockTime,
		ProxyURL:          cfg.ProxyURL,
	}, services.Cache)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create fetcher")
	}

	selectors, err := crawler.LoadSelectors(cfg.SelectorsFile)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load selectors")
	}

	target := crawler.CrawlTarget{
		City:                      cfg.City,
		ListingURLTemplate:        cfg.ListingURLTemplate,
		MaxListingOffsetPages:     cfg.ListingOffsetPages,
		MaxReviewPagesPerActivity: cfg.MaxReviewPages,
	}

	// Create and start worker
	w := worker.NewWorker(
		ctx,
		target,
		fetcher,
		services.Publisher,
		helpers.NewFailureLog(cfg.FailureLogFile),
		worker.Options{
			Concurrency:            cfg.ConcurrentRequests,
			MaxConsecutiveFailures: cfg.MaxConsecutiveFailures,
			CrawlInterval:          cfg.CrawlInterval,
			Production:             cfg.Environment == "production",
			Selectors:              &selectors,
		},
	)

	// Start worker in a goroutine
	workerDone := make(chan struct{})
	go func() {
		logger.ForWorker().Info().Str("city", cfg.City).Msg("Starting review worker")
		w.Start()
		close(workerDone)
	}()

	// Wait for shutdown signal or worker completion
	select {
	case sig := <-sigChan:
		log.Info().
			Str("signal", sig.String()).
			Msg("Received shutdown signal")
		cancel()
		<-workerDone
	case <-workerDone:
		log.Info().Msg("Worker exited normally")
	}

	// Graceful shutdown
	log.Info().Msg("Shutting down gracefully...")
}

// Services holds all the initialized services
type Services struct {
	Cache     cache.CacheService
	Publisher publisher.Publisher
	closers   []func() error
}

// Cleanup cleans up all services
func (s *Services) Cleanup() {
	if s.Publisher != nil {
		if err := s.Publisher.Close(); err != nil {
			logger.LogError("publisher", err, "failed to close publisher")
		}
	}
	for _, closeFn := range s.closers {
		closeFn()
	}
}

// initializeServices initializes all required services
func initializeServices(ctx context.Context, cfg *config.Config) (*Services, error) {
	services := &Services{}

	// Initialize cache service
	switch cfg.CacheBackend {
	case "memcache":
		cacheService := cache.NewMemcacheService(cfg.MemcacheAddr)
		if err := cacheService.Ping(); err != nil {
			return nil, errors.NewCache("memcache", "cannot reach "+cfg.MemcacheAddr, err)
		}
		services.Cache = cacheService
		logger.ForCache().Info().Str("addr", cfg.MemcacheAddr).Msg("Connected to Memcache")
	default:
		cacheService, err := cache.NewMemoryService(ctx, max(cfg.HTTPCacheTTL, cfg.BlockTime))
		if err != nil {
			return nil, errors.NewCache("memory", "failed to create in-process cache", err)
		}
		services.Cache = cacheService
		services.closers = append(services.closers, cacheService.Close)
		logger.ForCache().Info().Dur("ttl", cfg.HTTPCacheTTL).Msg("Using in-process cache")
	}

	// Initialize publisher
	switch cfg.Sink {
	case "redis":
		redisPublisher := publisher.NewRedisPublisher(
			ctx,
			cfg.RedisAddr,
			cfg.RedisDB,
			cfg.RedisStream,
			cfg.RedisStreamCount,
			cfg.RedisStreamMaxLength,
		)
		if err := redisPublisher.Ping(); err != nil {
			return nil, err
		}
		services.Publisher = redisPublisher
		logger.Info("Connected to Redis at %s (DB: %d, Stream: %s)",
			cfg.RedisAddr, cfg.RedisDB, cfg.RedisStream)
	case "mysql":
		mysqlPublisher, err := publisher.NewMySQLPublisher(ctx, cfg.MySQLDSN)
		if err != nil {
			return nil, err
		}
		services.Publisher = mysqlPublisher
		logger.Info("Connected to MySQL")
	default:
		filePublisher, err := publisher.NewFilePublisher(cfg.OutputFile)
		if err != nil {
			return nil, err
		}
		services.Publisher = filePublisher
		logger.Info("Writing records to %s", cfg.OutputFile)
	}

	return services, nil
}
