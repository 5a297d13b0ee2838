package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/peakline/catalog-search/internal/domain"
)

// Logical cache namespaces. Each namespace carries its own TTL and metrics.
const (
	NamespaceSearch      = "search:products"
	NamespaceSuggestions = "search:suggestions"
	NamespaceFacets      = "facets"
)

// Cache is the cache-aside layer sitting in front of expensive read paths.
// A failed store round trip never fails the wrapped computation; the result
// is simply returned uncached.
type Cache struct {
	store   Store
	metrics *Metrics
	logger  *slog.Logger
}

// New creates a cache-aside layer over the given store.
func New(store Store, metrics *Metrics, logger *slog.Logger) *Cache {
	return &Cache{store: store, metrics: metrics, logger: logger}
}

// Store exposes the underlying store for health checks.
func (c *Cache) Store() Store {
	return c.store
}

// Key builds a stable cache key from the semantically relevant parts of a
// search request: query text, active filters, and locale. Pagination and
// identity fields are included so each page caches separately, but session
// and user IDs are excluded, so two users issuing the same query share an entry.
func Key(namespace string, req *domain.SearchRequest) string {
	h := sha256.New()

	writeField := func(parts ...string) {
		for _, p := range parts {
			h.Write([]byte(p))
			h.Write([]byte{0})
		}
	}

	writeField(req.Query, req.Locale, req.SortBy)
	writeField(fmt.Sprintf("%d:%d", req.Page, req.PerPage))
	writeField(strings.Join(req.CategoryIDs, ","), strings.Join(req.BrandIDs, ","))
	writeField(strings.Join(req.Colors, ","), strings.Join(req.Sizes, ","))

	writeOpt := func(label string, present bool, value string) {
		if present {
			writeField(label + "=" + value)
		}
	}
	writeOpt("min_price", req.MinPrice != nil, formatInt(req.MinPrice))
	writeOpt("max_price", req.MaxPrice != nil, formatInt(req.MaxPrice))
	writeOpt("on_sale", req.OnSale != nil, formatBool(req.OnSale))
	writeOpt("featured", req.Featured != nil, formatBool(req.Featured))
	writeOpt("in_stock", req.InStock != nil, formatBool(req.InStock))
	if req.MinRating != nil {
		writeField(fmt.Sprintf("min_rating=%g", *req.MinRating))
	}

	return fmt.Sprintf("cache:%s:%s", namespace, hex.EncodeToString(h.Sum(nil)))
}

func formatInt(v *int64) string {
	if v == nil {
		return ""
	}
	return fmt.Sprintf("%d", *v)
}

func formatBool(v *bool) string {
	if v == nil {
		return ""
	}
	return fmt.Sprintf("%t", *v)
}

// GetCached returns the cached value under key, or computes, stores, and
// returns it. Hit and miss samples are recorded against the namespace. When
// the store is unreachable the compute function still runs and its result is
// returned uncached; correctness never depends on cache availability.
func GetCached[T any](ctx context.Context, c *Cache, key string, ttl time.Duration, namespace string, compute func(ctx context.Context) (T, error)) (T, error) {
	start := time.Now()

	raw, err := c.store.Get(ctx, key)
	if err == nil {
		var value T
		if unmarshalErr := json.Unmarshal([]byte(raw), &value); unmarshalErr == nil {
			c.metrics.RecordHit(ctx, namespace, time.Since(start))
			return value, nil
		}
		// A corrupt entry is treated as a miss and overwritten below.
		c.logger.WarnContext(ctx, "cache entry corrupt, recomputing", slog.String("key", key))
	} else if !errors.Is(err, ErrMiss) {
		c.logger.WarnContext(ctx, "cache store unreachable, bypassing",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
		return compute(ctx)
	}

	value, err := compute(ctx)
	if err != nil {
		return value, err
	}

	c.metrics.RecordMiss(ctx, namespace, time.Since(start))

	data, err := json.Marshal(value)
	if err != nil {
		c.logger.WarnContext(ctx, "cache value not serializable", slog.String("key", key))
		return value, nil
	}
	if err := c.store.Set(ctx, key, string(data), ttl); err != nil {
		c.logger.WarnContext(ctx, "cache store write failed",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
	}

	return value, nil
}

// InvalidateAll drops every cached entry across all namespaces. Catalog
// writes trigger this broad wildcard invalidation rather than per-entity
// invalidation; recompute cost is low relative to the correctness risk of a
// partial invalidation.
func (c *Cache) InvalidateAll(ctx context.Context) error {
	if err := c.store.DeletePattern(ctx, "cache:*"); err != nil {
		return fmt.Errorf("invalidate cache: %w", err)
	}
	return nil
}
