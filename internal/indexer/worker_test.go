package indexer

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/peakline/catalog-search/internal/cache"
	"github.com/peakline/catalog-search/internal/domain"
	"github.com/peakline/catalog-search/internal/engine/memory"
	"github.com/peakline/catalog-search/internal/queue"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeSource is a map-backed system of record.
type fakeSource struct {
	products map[string]domain.SearchableProduct
	err      error
}

func newFakeSource(products ...domain.SearchableProduct) *fakeSource {
	s := &fakeSource{products: make(map[string]domain.SearchableProduct)}
	for _, p := range products {
		s.products[p.ID] = p
	}
	return s
}

func (s *fakeSource) Documents(_ context.Context, ids []string) ([]domain.SearchableProduct, error) {
	if s.err != nil {
		return nil, s.err
	}
	var docs []domain.SearchableProduct
	for _, id := range ids {
		if p, ok := s.products[id]; ok {
			docs = append(docs, p)
		}
	}
	return docs, nil
}

func (s *fakeSource) StreamAll(_ context.Context, filter *domain.ReindexFilter, batchSize int, fn func(batch []domain.SearchableProduct) error) error {
	if s.err != nil {
		return s.err
	}
	batch := make([]domain.SearchableProduct, 0, batchSize)
	for _, p := range s.products {
		if filter != nil && filter.Status != "" && p.Status != filter.Status {
			continue
		}
		batch = append(batch, p)
		if len(batch) == batchSize {
			if err := fn(batch); err != nil {
				return err
			}
			batch = batch[:0]
		}
	}
	if len(batch) > 0 {
		return fn(batch)
	}
	return nil
}

type workerDeps struct {
	queue  *queue.Queue
	source *fakeSource
	index  *memory.Engine
	worker *Worker
}

func newTestWorker(products ...domain.SearchableProduct) *workerDeps {
	logger := newTestLogger()
	q := queue.New(cache.NewMemStore(), logger)
	source := newFakeSource(products...)
	index := memory.New()
	return &workerDeps{
		queue:  q,
		source: source,
		index:  index,
		worker: New(q, source, index, logger, WithBatchSize(2)),
	}
}

func enqueue(t *testing.T, q *queue.Queue, job *domain.IndexJob) {
	t.Helper()
	require.NoError(t, q.Enqueue(context.Background(), job))
}

func TestRunOnce_EmptyQueue(t *testing.T) {
	deps := newTestWorker()

	assert.False(t, deps.worker.RunOnce(context.Background()))
}

func TestRunOnce_IndexJobUpsertsDocument(t *testing.T) {
	ctx := context.Background()
	deps := newTestWorker(domain.SearchableProduct{ID: "p1", Name: "Trail Boots"})
	enqueue(t, deps.queue, domain.NewIndexJob("p1"))

	assert.True(t, deps.worker.RunOnce(ctx))
	assert.True(t, deps.index.Has("p1"))

	stats, err := deps.queue.Stats(ctx)
	require.NoError(t, err)
	assert.Zero(t, stats.Pending)
	assert.Zero(t, stats.Processing)
}

func TestRunOnce_IndexJobForVanishedProductDeletes(t *testing.T) {
	ctx := context.Background()
	deps := newTestWorker()

	// The document is in the index but its catalog row is gone.
	require.NoError(t, deps.index.Index(ctx, &domain.SearchableProduct{ID: "p1", Name: "Trail Boots"}))
	enqueue(t, deps.queue, domain.NewIndexJob("p1"))

	assert.True(t, deps.worker.RunOnce(ctx))
	assert.False(t, deps.index.Has("p1"))
}

func TestRunOnce_DeleteJobRemovesDocument(t *testing.T) {
	ctx := context.Background()
	deps := newTestWorker()
	require.NoError(t, deps.index.Index(ctx, &domain.SearchableProduct{ID: "p1", Name: "Trail Boots"}))
	enqueue(t, deps.queue, domain.NewDeleteJob("p1"))

	assert.True(t, deps.worker.RunOnce(ctx))
	assert.False(t, deps.index.Has("p1"))
}

func TestRunOnce_BatchUpdateIndexesAllPresentIDs(t *testing.T) {
	ctx := context.Background()
	deps := newTestWorker(
		domain.SearchableProduct{ID: "p1", Name: "Trail Boots"},
		domain.SearchableProduct{ID: "p2", Name: "Road Runners"},
	)
	// p3 vanished from the catalog but is still indexed.
	require.NoError(t, deps.index.Index(ctx, &domain.SearchableProduct{ID: "p3", Name: "Rain Jacket"}))
	enqueue(t, deps.queue, domain.NewBatchUpdateJob([]string{"p1", "p2", "p3"}))

	assert.True(t, deps.worker.RunOnce(ctx))
	assert.True(t, deps.index.Has("p1"))
	assert.True(t, deps.index.Has("p2"))
	assert.False(t, deps.index.Has("p3"))
}

func TestRunOnce_ReindexAllStreamsCatalog(t *testing.T) {
	ctx := context.Background()
	deps := newTestWorker(
		domain.SearchableProduct{ID: "p1", Name: "Trail Boots", Status: "active"},
		domain.SearchableProduct{ID: "p2", Name: "Road Runners", Status: "active"},
		domain.SearchableProduct{ID: "p3", Name: "Rain Jacket", Status: "active"},
	)
	enqueue(t, deps.queue, domain.NewReindexAllJob(nil))

	assert.True(t, deps.worker.RunOnce(ctx))
	assert.Equal(t, 3, deps.index.Len())
}

func TestRunOnce_ReindexAllHonorsStatusFilter(t *testing.T) {
	ctx := context.Background()
	deps := newTestWorker(
		domain.SearchableProduct{ID: "p1", Name: "Trail Boots", Status: "active"},
		domain.SearchableProduct{ID: "p2", Name: "Old Sandals", Status: "archived"},
	)
	enqueue(t, deps.queue, domain.NewReindexAllJob(&domain.ReindexFilter{Status: "active"}))

	assert.True(t, deps.worker.RunOnce(ctx))
	assert.True(t, deps.index.Has("p1"))
	assert.False(t, deps.index.Has("p2"))
}

func TestRunOnce_FailingIndexerRoutesJobToRetry(t *testing.T) {
	ctx := context.Background()
	deps := newTestWorker(domain.SearchableProduct{ID: "p1", Name: "Trail Boots"})
	deps.index.SetFailing(true)
	enqueue(t, deps.queue, domain.NewIndexJob("p1"))

	assert.True(t, deps.worker.RunOnce(ctx))

	// The job left the processing list and is queued for retry, not lost.
	stats, err := deps.queue.Stats(ctx)
	require.NoError(t, err)
	assert.Zero(t, stats.Processing)
	assert.False(t, deps.index.Has("p1"))
}

func TestRunOnce_SourceErrorFailsJob(t *testing.T) {
	ctx := context.Background()
	deps := newTestWorker()
	deps.source.err = errors.New("connection refused")
	enqueue(t, deps.queue, domain.NewIndexJob("p1"))

	assert.True(t, deps.worker.RunOnce(ctx))

	stats, err := deps.queue.Stats(ctx)
	require.NoError(t, err)
	assert.Zero(t, stats.Processing)
}

func TestRunOnce_UnknownKindFailsJob(t *testing.T) {
	ctx := context.Background()
	deps := newTestWorker()
	job := domain.NewIndexJob("p1")
	job.Kind = "defragment"
	enqueue(t, deps.queue, job)

	assert.True(t, deps.worker.RunOnce(ctx))

	stats, err := deps.queue.Stats(ctx)
	require.NoError(t, err)
	assert.Zero(t, stats.Processing)
}

func TestRun_StopsOnContextCancel(t *testing.T) {
	deps := newTestWorker()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.NoError(t, deps.worker.Run(ctx))
}
