package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/peakline/catalog-search/internal/cache"
	"github.com/peakline/catalog-search/internal/config"
	esengine "github.com/peakline/catalog-search/internal/engine/elasticsearch"
	pgengine "github.com/peakline/catalog-search/internal/engine/postgres"
	"github.com/peakline/catalog-search/internal/event"
	handler "github.com/peakline/catalog-search/internal/handler/http"
	"github.com/peakline/catalog-search/internal/indexer"
	"github.com/peakline/catalog-search/internal/orchestrator"
	"github.com/peakline/catalog-search/internal/queue"
	"github.com/peakline/catalog-search/pkg/database"
	"github.com/peakline/catalog-search/pkg/health"
	pkgkafka "github.com/peakline/catalog-search/pkg/kafka"
	"github.com/peakline/catalog-search/pkg/middleware"
)

const (
	searchHealthTTL     = 30 * time.Second
	searchHealthTimeout = 2 * time.Second
	perfSampleRetention = 7 * 24 * time.Hour
	metricsRetention    = 24 * time.Hour
)

// App wires together all dependencies and runs the catalog search service.
// The same wiring backs both the HTTP server and the standalone indexer;
// which components run is decided by the constructor used.
type App struct {
	cfg    *config.Config
	logger *slog.Logger

	pool  *pgxpool.Pool
	redis *redis.Client

	httpServer *http.Server
	consumers  []*pkgkafka.Consumer
	worker     *indexer.Worker
}

// shared holds the dependencies common to the server and indexer processes.
type shared struct {
	pool    *pgxpool.Pool
	redis   *redis.Client
	store   *cache.RedisStore
	cache   *cache.Cache
	metrics *cache.Metrics
	queue   *queue.Queue
	pgEng   *pgengine.Engine
	esEng   *esengine.Engine
	health  *health.Handler
}

// buildShared connects to Postgres, Redis, and Elasticsearch and constructs
// the storage-backed components.
func buildShared(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*shared, error) {
	pgCfg := cfg.PostgresConfig()
	pool, err := database.NewPostgresPool(ctx, &pgCfg, logger)
	if err != nil {
		return nil, fmt.Errorf("init postgres pool: %w", err)
	}

	redisClient, err := database.NewRedisClient(ctx, cfg.RedisConfig())
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("init redis client: %w", err)
	}

	store := cache.NewRedisStore(redisClient)
	metrics := cache.NewMetrics(store, metricsRetention, logger)
	c := cache.New(store, metrics, logger)

	q := queue.New(store, logger,
		queue.WithMaxRetries(cfg.QueueMaxRetries),
		queue.WithBackoffBase(float64(cfg.QueueBackoffBase)),
	)

	pgEng := pgengine.New(pool, logger)

	esEng, err := esengine.New(cfg.ElasticsearchURL, cfg.ElasticsearchIndex, logger)
	if err != nil {
		pool.Close()
		_ = redisClient.Close()
		return nil, fmt.Errorf("init elasticsearch engine: %w", err)
	}

	healthHandler := health.NewHandler()
	healthHandler.Register("postgres", pgEng.Health)
	healthHandler.Register("elasticsearch", esEng.Health)
	healthHandler.Register("redis", store.Ping)

	logger.Info("storage backends initialized",
		slog.String("postgres", pgCfg.Host),
		slog.String("redis", cfg.RedisConfig().Addr()),
		slog.String("elasticsearch", cfg.ElasticsearchURL),
	)

	return &shared{
		pool:    pool,
		redis:   redisClient,
		store:   store,
		cache:   c,
		metrics: metrics,
		queue:   q,
		pgEng:   pgEng,
		esEng:   esEng,
		health:  healthHandler,
	}, nil
}

// NewServer creates the HTTP search API process.
func NewServer(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	deps, err := buildShared(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	tracker := orchestrator.NewHealthTracker(deps.esEng, searchHealthTTL, searchHealthTimeout, logger)
	perf := orchestrator.NewPerfTracker(deps.store, perfSampleRetention, logger)

	orch := orchestrator.New(orchestrator.Config{
		PreferEngine:   cfg.PreferElasticsearch,
		ABTestEnabled:  cfg.ABTestEnabled,
		SearchTTL:      cfg.SearchCacheTTL,
		SuggestionsTTL: cfg.SuggestionsCacheTTL,
		FacetsTTL:      cfg.FacetsCacheTTL,
	}, deps.pgEng, deps.esEng, tracker, deps.cache, perf, logger)

	searchHandler := handler.NewSearchHandler(orch, logger)
	adminHandler := handler.NewAdminHandler(deps.queue, deps.cache, deps.metrics, logger)

	corsCfg := middleware.DefaultCORSConfig()
	corsCfg.Environment = cfg.Environment

	router := handler.NewRouter(searchHandler, adminHandler, deps.health, corsCfg, logger)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &App{
		cfg:        cfg,
		logger:     logger,
		pool:       deps.pool,
		redis:      deps.redis,
		httpServer: httpServer,
	}, nil
}

// NewIndexer creates the background indexing process: Kafka consumers that
// enqueue jobs plus the worker that drains the queue into Elasticsearch.
func NewIndexer(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	deps, err := buildShared(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	worker := indexer.New(deps.queue, deps.pgEng, deps.esEng, logger,
		indexer.WithPollInterval(cfg.IndexerPollInterval),
		indexer.WithBatchSize(cfg.IndexerBatchSize),
	)

	eventConsumer := event.NewConsumer(deps.queue, deps.cache, logger)

	topics := []string{
		event.TopicProductCreated,
		event.TopicProductUpdated,
		event.TopicProductDeleted,
	}

	var consumers []*pkgkafka.Consumer
	for _, topic := range topics {
		consumerCfg := pkgkafka.ConsumerConfig{
			Brokers:  cfg.KafkaBrokers,
			GroupID:  cfg.KafkaConsumerGroup,
			Topic:    topic,
			MinBytes: 1,
			MaxBytes: 10e6, // 10 MB
		}
		c := pkgkafka.NewConsumer(consumerCfg, eventConsumer.Handle, logger)
		consumers = append(consumers, c)
	}
	logger.Info("kafka consumers initialized",
		slog.Any("brokers", cfg.KafkaBrokers),
		slog.Int("topic_count", len(topics)),
	)

	deps.health.Register("kafka", func(ctx context.Context) error {
		return pkgkafka.PingBrokers(ctx, cfg.KafkaBrokers)
	})

	return &App{
		cfg:       cfg,
		logger:    logger,
		pool:      deps.pool,
		redis:     deps.redis,
		consumers: consumers,
		worker:    worker,
	}, nil
}

// Run starts all configured components, blocking until the context is
// canceled or a component fails.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 2+len(a.consumers))

	for _, c := range a.consumers {
		c := c
		go func() {
			if err := c.Start(ctx); err != nil {
				errCh <- fmt.Errorf("kafka consumer: %w", err)
			}
		}()
	}

	if a.worker != nil {
		go func() {
			if err := a.worker.Run(ctx); err != nil {
				errCh <- fmt.Errorf("indexing worker: %w", err)
			}
		}()
	}

	if a.httpServer != nil {
		go func() {
			a.logger.Info("starting HTTP server",
				slog.String("addr", a.httpServer.Addr),
			)
			if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				errCh <- fmt.Errorf("http server: %w", err)
			}
		}()
	}

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		return err
	}

	return a.Shutdown()
}

// Shutdown gracefully stops all components.
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	var errs []error

	if a.httpServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
			a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	for _, c := range a.consumers {
		if err := c.Close(); err != nil {
			a.logger.Error("kafka consumer close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Error("redis close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}
	if a.pool != nil {
		a.pool.Close()
	}

	a.logger.Info("application shutdown complete")
	return errors.Join(errs...)
}
