package event

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/peakline/catalog-search/internal/domain"
	"github.com/peakline/catalog-search/internal/queue"
	pkgkafka "github.com/peakline/catalog-search/pkg/kafka"
)

// Kafka topic constants for product domain events consumed by the indexer.
const (
	TopicProductCreated = "catalog.product.created"
	TopicProductUpdated = "catalog.product.updated"
	TopicProductDeleted = "catalog.product.deleted"
)

// productEventData is the subset of the product event payload the indexer
// cares about. Documents are re-read from Postgres at processing time, so
// only the ID matters here.
type productEventData struct {
	ID string `json:"id"`
}

// Invalidator clears cached search responses after catalog changes.
type Invalidator interface {
	InvalidateAll(ctx context.Context) error
}

// Consumer translates product domain events into index jobs and cache
// invalidations.
type Consumer struct {
	queue  queue.Enqueuer
	cache  Invalidator
	logger *slog.Logger
}

// NewConsumer creates a new event consumer for the indexing pipeline.
func NewConsumer(q queue.Enqueuer, cache Invalidator, logger *slog.Logger) *Consumer {
	return &Consumer{
		queue:  q,
		cache:  cache,
		logger: logger,
	}
}

// Handle processes a Kafka event based on its type.
func (c *Consumer) Handle(ctx context.Context, event *pkgkafka.Event) error {
	switch event.EventType {
	case TopicProductCreated, TopicProductUpdated:
		return c.handleProductChanged(ctx, event)
	case TopicProductDeleted:
		return c.handleProductDeleted(ctx, event)
	default:
		c.logger.WarnContext(ctx, "unknown event type received",
			slog.String("event_type", event.EventType),
			slog.String("event_id", event.EventID),
		)
		return nil
	}
}

// handleProductChanged enqueues a re-index job for a created or updated
// product and invalidates cached search responses.
func (c *Consumer) handleProductChanged(ctx context.Context, event *pkgkafka.Event) error {
	var data productEventData
	if err := json.Unmarshal(event.Data, &data); err != nil {
		return fmt.Errorf("unmarshal %s data: %w", event.EventType, err)
	}

	job := domain.NewIndexJob(data.ID)
	if err := c.queue.Enqueue(ctx, job); err != nil {
		return fmt.Errorf("enqueue index job for product %s: %w", data.ID, err)
	}

	c.invalidate(ctx)

	c.logger.InfoContext(ctx, "enqueued index job from product event",
		slog.String("event_type", event.EventType),
		slog.String("product_id", data.ID),
		slog.String("job_id", job.ID),
	)

	return nil
}

// handleProductDeleted enqueues a delete job for the removed product.
func (c *Consumer) handleProductDeleted(ctx context.Context, event *pkgkafka.Event) error {
	var data productEventData
	if err := json.Unmarshal(event.Data, &data); err != nil {
		return fmt.Errorf("unmarshal product.deleted data: %w", err)
	}

	job := domain.NewDeleteJob(data.ID)
	if err := c.queue.Enqueue(ctx, job); err != nil {
		return fmt.Errorf("enqueue delete job for product %s: %w", data.ID, err)
	}

	c.invalidate(ctx)

	c.logger.InfoContext(ctx, "enqueued delete job from product event",
		slog.String("product_id", data.ID),
		slog.String("job_id", job.ID),
	)

	return nil
}

// invalidate clears cached responses. Failures are logged and swallowed so a
// flaky cache never blocks event consumption; stale entries expire via TTL.
func (c *Consumer) invalidate(ctx context.Context) {
	if c.cache == nil {
		return
	}
	if err := c.cache.InvalidateAll(ctx); err != nil {
		c.logger.WarnContext(ctx, "cache invalidation failed",
			slog.String("error", err.Error()),
		)
	}
}
