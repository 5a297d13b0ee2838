package config

import (
	"fmt"
	"time"

	pkgconfig "github.com/peakline/catalog-search/pkg/config"
	"github.com/peakline/catalog-search/pkg/database"
)

// Config holds all configuration for the catalog search service.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// HTTP server
	HTTPPort int `env:"SEARCH_HTTP_PORT" envDefault:"8010"`

	// Postgres (system of record, primary search backend)
	PostgresHost     string `env:"POSTGRES_HOST" envDefault:"localhost"`
	PostgresPort     int    `env:"POSTGRES_PORT" envDefault:"5432"`
	PostgresUser     string `env:"POSTGRES_USER" envDefault:"catalog"`
	PostgresPassword string `env:"POSTGRES_PASSWORD" envDefault:"catalog_secret"`
	PostgresDB       string `env:"POSTGRES_DB" envDefault:"catalog"`
	PostgresSSLMode  string `env:"POSTGRES_SSLMODE" envDefault:"disable"`

	// Redis (cache and job queue)
	RedisHost     string `env:"REDIS_HOST" envDefault:"localhost"`
	RedisPort     int    `env:"REDIS_PORT" envDefault:"6379"`
	RedisPassword string `env:"REDIS_PASSWORD" envDefault:""`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	// Elasticsearch (secondary search backend)
	ElasticsearchURL   string `env:"ELASTICSEARCH_URL" envDefault:"http://localhost:9200"`
	ElasticsearchIndex string `env:"ELASTICSEARCH_INDEX" envDefault:"catalog_products"`

	// Kafka (catalog change events)
	KafkaBrokers       []string `env:"KAFKA_BROKERS" envDefault:"localhost:9092" envSeparator:","`
	KafkaConsumerGroup string   `env:"KAFKA_CONSUMER_GROUP" envDefault:"catalog-search-indexer"`

	// Orchestration
	PreferElasticsearch bool `env:"SEARCH_PREFER_ELASTICSEARCH" envDefault:"true"`
	ABTestEnabled       bool `env:"SEARCH_AB_TEST_ENABLED" envDefault:"false"`

	// Cache TTLs
	SearchCacheTTL      time.Duration `env:"SEARCH_CACHE_TTL" envDefault:"5m"`
	SuggestionsCacheTTL time.Duration `env:"SUGGESTIONS_CACHE_TTL" envDefault:"10m"`
	FacetsCacheTTL      time.Duration `env:"FACETS_CACHE_TTL" envDefault:"15m"`

	// Indexing worker
	IndexerEnabled      bool          `env:"INDEXER_ENABLED" envDefault:"true"`
	IndexerPollInterval time.Duration `env:"INDEXER_POLL_INTERVAL" envDefault:"1s"`
	IndexerBatchSize    int           `env:"INDEXER_BATCH_SIZE" envDefault:"100"`
	QueueMaxRetries     int           `env:"QUEUE_MAX_RETRIES" envDefault:"3"`
	QueueBackoffBase    int           `env:"QUEUE_BACKOFF_BASE" envDefault:"2"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.Load(cfg); err != nil {
		return nil, fmt.Errorf("load search config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validate checks configuration invariants.
func (c *Config) validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTPPort)
	}
	if c.IndexerBatchSize < 1 {
		return fmt.Errorf("indexer batch size must be positive: %d", c.IndexerBatchSize)
	}
	if c.QueueMaxRetries < 0 {
		return fmt.Errorf("queue max retries must not be negative: %d", c.QueueMaxRetries)
	}
	if c.QueueBackoffBase < 1 {
		return fmt.Errorf("queue backoff base must be positive: %d", c.QueueBackoffBase)
	}
	return nil
}

// PostgresConfig builds the connection pool configuration for Postgres.
func (c *Config) PostgresConfig() database.PostgresConfig {
	pg := database.DefaultPostgresConfig()
	pg.Host = c.PostgresHost
	pg.Port = c.PostgresPort
	pg.User = c.PostgresUser
	pg.Password = c.PostgresPassword
	pg.DBName = c.PostgresDB
	pg.SSLMode = c.PostgresSSLMode
	return pg
}

// RedisConfig builds the Redis client configuration.
func (c *Config) RedisConfig() database.RedisConfig {
	return database.RedisConfig{
		Host:     c.RedisHost,
		Port:     c.RedisPort,
		Password: c.RedisPassword,
		DB:       c.RedisDB,
	}
}
