package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, 8010, cfg.HTTPPort)
	assert.Equal(t, "localhost", cfg.PostgresHost)
	assert.Equal(t, "catalog", cfg.PostgresDB)
	assert.Equal(t, "catalog_products", cfg.ElasticsearchIndex)
	assert.Equal(t, []string{"localhost:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "catalog-search-indexer", cfg.KafkaConsumerGroup)
	assert.True(t, cfg.PreferElasticsearch)
	assert.False(t, cfg.ABTestEnabled)
	assert.Equal(t, 5*time.Minute, cfg.SearchCacheTTL)
	assert.Equal(t, 10*time.Minute, cfg.SuggestionsCacheTTL)
	assert.Equal(t, 15*time.Minute, cfg.FacetsCacheTTL)
	assert.True(t, cfg.IndexerEnabled)
	assert.Equal(t, time.Second, cfg.IndexerPollInterval)
	assert.Equal(t, 100, cfg.IndexerBatchSize)
	assert.Equal(t, 3, cfg.QueueMaxRetries)
	assert.Equal(t, 2, cfg.QueueBackoffBase)
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Setenv("SEARCH_HTTP_PORT", "9100")
	t.Setenv("SEARCH_PREFER_ELASTICSEARCH", "false")
	t.Setenv("SEARCH_AB_TEST_ENABLED", "true")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092,kafka-2:9092")
	t.Setenv("SEARCH_CACHE_TTL", "30s")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9100, cfg.HTTPPort)
	assert.False(t, cfg.PreferElasticsearch)
	assert.True(t, cfg.ABTestEnabled)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, 30*time.Second, cfg.SearchCacheTTL)
}

func TestLoad_RejectsInvalidPort(t *testing.T) {
	t.Setenv("SEARCH_HTTP_PORT", "70000")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "port")
}

func TestLoad_RejectsInvalidBatchSize(t *testing.T) {
	t.Setenv("INDEXER_BATCH_SIZE", "0")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "batch size")
}

func TestLoad_RejectsInvalidBackoffBase(t *testing.T) {
	t.Setenv("QUEUE_BACKOFF_BASE", "0")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "backoff base")
}

func TestPostgresConfig_CarriesSettings(t *testing.T) {
	t.Setenv("POSTGRES_HOST", "db.internal")
	t.Setenv("POSTGRES_PORT", "5433")

	cfg, err := Load()
	require.NoError(t, err)

	pg := cfg.PostgresConfig()
	assert.Equal(t, "db.internal", pg.Host)
	assert.Equal(t, 5433, pg.Port)
	assert.Equal(t, "catalog", pg.DBName)
}

func TestRedisConfig_CarriesSettings(t *testing.T) {
	t.Setenv("REDIS_HOST", "cache.internal")
	t.Setenv("REDIS_DB", "4")

	cfg, err := Load()
	require.NoError(t, err)

	r := cfg.RedisConfig()
	assert.Equal(t, "cache.internal", r.Host)
	assert.Equal(t, 4, r.DB)
}
