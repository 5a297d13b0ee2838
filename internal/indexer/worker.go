package indexer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/peakline/catalog-search/internal/domain"
	"github.com/peakline/catalog-search/internal/engine"
	"github.com/peakline/catalog-search/internal/queue"
)

// Source supplies searchable documents from the system of record. Jobs
// re-derive documents through it rather than trusting event payloads, so the
// index always reflects the authoritative catalog row.
type Source interface {
	// Documents loads documents for the given product IDs. Missing IDs are
	// skipped, not errors.
	Documents(ctx context.Context, ids []string) ([]domain.SearchableProduct, error)

	// StreamAll walks the catalog in batches of batchSize, invoking fn per batch.
	StreamAll(ctx context.Context, filter *domain.ReindexFilter, batchSize int, fn func(batch []domain.SearchableProduct) error) error
}

// Worker is the single-consumer poll loop that drains the indexing queue and
// applies each job against the external search index. A failing job is routed
// to the queue's retry path; the loop itself never stops on job errors.
type Worker struct {
	queue        *queue.Queue
	source       Source
	indexer      engine.Indexer
	pollInterval time.Duration
	batchSize    int
	logger       *slog.Logger
}

// Option configures a Worker.
type Option func(*Worker)

// WithPollInterval sets the idle sleep between empty polls.
func WithPollInterval(d time.Duration) Option {
	return func(w *Worker) { w.pollInterval = d }
}

// WithBatchSize bounds reindex-all batches.
func WithBatchSize(n int) Option {
	return func(w *Worker) { w.batchSize = n }
}

// New creates a worker. Defaults: 1s poll interval, batch size 100.
func New(q *queue.Queue, source Source, indexer engine.Indexer, logger *slog.Logger, opts ...Option) *Worker {
	w := &Worker{
		queue:        q,
		source:       source,
		indexer:      indexer,
		pollInterval: time.Second,
		batchSize:    100,
		logger:       logger,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run polls the queue until the context is canceled. The stop signal is
// honored only between jobs; a job in flight finishes before Run returns.
func (w *Worker) Run(ctx context.Context) error {
	w.logger.Info("indexing worker started",
		slog.Duration("poll_interval", w.pollInterval),
		slog.Int("batch_size", w.batchSize),
	)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("indexing worker stopping")
			return nil
		default:
		}

		if !w.RunOnce(ctx) {
			select {
			case <-ctx.Done():
				w.logger.Info("indexing worker stopping")
				return nil
			case <-time.After(w.pollInterval):
			}
		}
	}
}

// RunOnce processes at most one job and reports whether one was available.
// It is the unit of work exercised directly by tests.
func (w *Worker) RunOnce(ctx context.Context) bool {
	job, err := w.queue.Dequeue(ctx)
	if err != nil {
		if !errors.Is(err, queue.ErrEmpty) {
			w.logger.ErrorContext(ctx, "dequeue failed", slog.String("error", err.Error()))
		}
		return false
	}

	if err := w.process(ctx, job); err != nil {
		w.logger.WarnContext(ctx, "job processing failed",
			slog.String("job_id", job.ID),
			slog.String("kind", job.Kind),
			slog.String("error", err.Error()),
		)
		if failErr := w.queue.Fail(ctx, job.ID, err.Error()); failErr != nil {
			w.logger.ErrorContext(ctx, "failed to record job failure",
				slog.String("job_id", job.ID),
				slog.String("error", failErr.Error()),
			)
		}
		return true
	}

	if err := w.queue.Complete(ctx, job.ID); err != nil {
		w.logger.ErrorContext(ctx, "failed to complete job",
			slog.String("job_id", job.ID),
			slog.String("error", err.Error()),
		)
	}
	return true
}

// process dispatches a job by kind.
func (w *Worker) process(ctx context.Context, job *domain.IndexJob) error {
	switch job.Kind {
	case domain.JobIndex:
		return w.indexProducts(ctx, []string{job.ProductID})
	case domain.JobBatchUpdate:
		return w.indexProducts(ctx, job.ProductIDs)
	case domain.JobDelete:
		if job.ProductID == "" {
			return fmt.Errorf("delete job %s: missing product id", job.ID)
		}
		return w.indexer.Delete(ctx, job.ProductID)
	case domain.JobReindexAll:
		return w.reindexAll(ctx, job)
	default:
		return fmt.Errorf("job %s: unknown kind %q", job.ID, job.Kind)
	}
}

// indexProducts re-derives documents from the system of record and upserts
// them. Products that no longer exist are removed from the index instead.
func (w *Worker) indexProducts(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	docs, err := w.source.Documents(ctx, ids)
	if err != nil {
		return fmt.Errorf("load documents: %w", err)
	}

	found := make(map[string]struct{}, len(docs))
	for i := range docs {
		found[docs[i].ID] = struct{}{}
	}

	if len(docs) == 1 {
		if err := w.indexer.Index(ctx, &docs[0]); err != nil {
			return err
		}
	} else if len(docs) > 1 {
		if err := w.indexer.BulkIndex(ctx, docs); err != nil {
			return err
		}
	}

	// IDs missing from the catalog were deleted since the job was enqueued.
	for _, id := range ids {
		if _, ok := found[id]; ok {
			continue
		}
		if err := w.indexer.Delete(ctx, id); err != nil {
			return fmt.Errorf("delete vanished product %s: %w", id, err)
		}
	}

	return nil
}

// reindexAll streams the catalog through the bulk upsert path in bounded
// batches, logging progress after each batch.
func (w *Worker) reindexAll(ctx context.Context, job *domain.IndexJob) error {
	w.logger.InfoContext(ctx, "full reindex started", slog.String("job_id", job.ID))

	total := 0
	start := time.Now()

	err := w.source.StreamAll(ctx, job.Filter, w.batchSize, func(batch []domain.SearchableProduct) error {
		if err := w.indexer.BulkIndex(ctx, batch); err != nil {
			return fmt.Errorf("bulk index batch: %w", err)
		}
		total += len(batch)
		w.logger.InfoContext(ctx, "reindex progress",
			slog.String("job_id", job.ID),
			slog.Int("indexed", total),
		)
		return nil
	})
	if err != nil {
		return fmt.Errorf("reindex all: %w", err)
	}

	w.logger.InfoContext(ctx, "full reindex finished",
		slog.String("job_id", job.ID),
		slog.Int("total", total),
		slog.Duration("elapsed", time.Since(start)),
	)
	return nil
}
