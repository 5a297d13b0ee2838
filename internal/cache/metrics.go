package cache

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// latencyListCap bounds the rolling latency sample list per namespace.
const latencyListCap = 100

var (
	cacheRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_requests_total",
			Help: "Total cache lookups by namespace and outcome",
		},
		[]string{"namespace", "outcome"},
	)

	cacheLookupDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cache_lookup_duration_seconds",
			Help:    "Cache lookup duration in seconds, including compute on miss",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"namespace", "outcome"},
	)
)

// Metrics records per-namespace hit/miss counters and a capped rolling list
// of observed latencies in the shared store, with a retention TTL so samples
// self-prune. Recording failures are logged and dropped; metrics never fail
// a request.
type Metrics struct {
	store     Store
	retention time.Duration
	logger    *slog.Logger
}

// NewMetrics creates a metrics recorder with the given retention window.
func NewMetrics(store Store, retention time.Duration, logger *slog.Logger) *Metrics {
	if retention <= 0 {
		retention = 24 * time.Hour
	}
	return &Metrics{store: store, retention: retention, logger: logger}
}

// MetricsSnapshot is the derived view of a namespace's counters.
type MetricsSnapshot struct {
	Namespace    string  `json:"namespace"`
	Hits         int64   `json:"hits"`
	Misses       int64   `json:"misses"`
	HitRate      float64 `json:"hit_rate"`
	AvgLatencyMs float64 `json:"avg_latency_ms"`
	Samples      int     `json:"samples"`
}

func hitsKey(namespace string) string    { return "metrics:hits:" + namespace }
func missesKey(namespace string) string  { return "metrics:misses:" + namespace }
func latencyKey(namespace string) string { return "metrics:latency:" + namespace }

// RecordHit records a cache hit and its lookup latency.
func (m *Metrics) RecordHit(ctx context.Context, namespace string, elapsed time.Duration) {
	cacheRequestsTotal.WithLabelValues(namespace, "hit").Inc()
	cacheLookupDuration.WithLabelValues(namespace, "hit").Observe(elapsed.Seconds())
	m.record(ctx, hitsKey(namespace), namespace, elapsed)
}

// RecordMiss records a cache miss and the total latency including compute.
func (m *Metrics) RecordMiss(ctx context.Context, namespace string, elapsed time.Duration) {
	cacheRequestsTotal.WithLabelValues(namespace, "miss").Inc()
	cacheLookupDuration.WithLabelValues(namespace, "miss").Observe(elapsed.Seconds())
	m.record(ctx, missesKey(namespace), namespace, elapsed)
}

func (m *Metrics) record(ctx context.Context, counterKey, namespace string, elapsed time.Duration) {
	if _, err := m.store.Incr(ctx, counterKey, m.retention); err != nil {
		m.logger.DebugContext(ctx, "cache metric counter failed", slog.String("error", err.Error()))
		return
	}
	sample := strconv.FormatInt(elapsed.Milliseconds(), 10)
	if err := m.store.PushCapped(ctx, latencyKey(namespace), sample, latencyListCap, m.retention); err != nil {
		m.logger.DebugContext(ctx, "cache metric latency sample failed", slog.String("error", err.Error()))
	}
}

// Snapshot returns the current counters for a namespace. HitRate is derived
// on read, never stored.
func (m *Metrics) Snapshot(ctx context.Context, namespace string) (*MetricsSnapshot, error) {
	hits, err := m.store.GetInt(ctx, hitsKey(namespace))
	if err != nil {
		return nil, fmt.Errorf("read hit counter: %w", err)
	}
	misses, err := m.store.GetInt(ctx, missesKey(namespace))
	if err != nil {
		return nil, fmt.Errorf("read miss counter: %w", err)
	}

	snapshot := &MetricsSnapshot{
		Namespace: namespace,
		Hits:      hits,
		Misses:    misses,
	}
	if total := hits + misses; total > 0 {
		snapshot.HitRate = float64(hits) / float64(total)
	}

	samples, err := m.store.ListRange(ctx, latencyKey(namespace), 0, latencyListCap-1)
	if err != nil {
		return nil, fmt.Errorf("read latency samples: %w", err)
	}
	var sum int64
	for _, s := range samples {
		ms, parseErr := strconv.ParseInt(s, 10, 64)
		if parseErr != nil {
			continue
		}
		sum += ms
	}
	snapshot.Samples = len(samples)
	if len(samples) > 0 {
		snapshot.AvgLatencyMs = float64(sum) / float64(len(samples))
	}

	return snapshot, nil
}
