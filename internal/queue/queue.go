package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/peakline/catalog-search/internal/cache"
	"github.com/peakline/catalog-search/internal/domain"
)

// Queue list names in the shared store.
const (
	MainList       = "queue:main"
	ProcessingList = "queue:processing"
	FailedList     = "queue:failed"
)

// ErrEmpty is returned by Dequeue when no job is waiting.
var ErrEmpty = errors.New("queue: empty")

var jobsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "index_queue_jobs_total",
		Help: "Index jobs by kind and outcome",
	},
	[]string{"kind", "outcome"},
)

// Enqueuer is the narrow capability handed to catalog mutation hooks. The
// worker never depends on how mutations are triggered, only on this surface.
type Enqueuer interface {
	Enqueue(ctx context.Context, job *domain.IndexJob) error
}

// Queue is a durable FIFO of index jobs backed by the shared store's list
// primitives. Dequeue moves a job to an in-flight list, so a job is never
// absent from every list until explicitly completed: at-least-once delivery.
type Queue struct {
	store      store
	maxRetries int
	backoff    float64
	logger     *slog.Logger

	// schedule defers the re-push of a failed job. Overridable in tests.
	schedule func(d time.Duration, fn func())
}

// store is the subset of cache.Store the queue needs.
type store interface {
	ListPush(ctx context.Context, key, value string) error
	ListPopToList(ctx context.Context, src, dst string) (string, error)
	ListRemove(ctx context.Context, key, value string, count int64) (int64, error)
	ListRange(ctx context.Context, key string, start, stop int64) ([]string, error)
	ListLen(ctx context.Context, key string) (int64, error)
	Delete(ctx context.Context, key string) error
}

// Option configures a Queue.
type Option func(*Queue)

// WithMaxRetries sets the retry ceiling before a job is parked as dead.
func WithMaxRetries(n int) Option {
	return func(q *Queue) { q.maxRetries = n }
}

// WithBackoffBase sets the exponential backoff base in seconds.
func WithBackoffBase(base float64) Option {
	return func(q *Queue) { q.backoff = base }
}

// WithScheduler overrides the deferred re-push timer.
func WithScheduler(schedule func(d time.Duration, fn func())) Option {
	return func(q *Queue) { q.schedule = schedule }
}

// New creates a queue over the given store. Defaults: 3 retries, backoff base 2.
func New(s store, logger *slog.Logger, opts ...Option) *Queue {
	q := &Queue{
		store:      s,
		maxRetries: 3,
		backoff:    2,
		logger:     logger,
		schedule: func(d time.Duration, fn func()) {
			time.AfterFunc(d, fn)
		},
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Enqueue appends a job to the main queue.
func (q *Queue) Enqueue(ctx context.Context, job *domain.IndexJob) error {
	raw, err := job.Marshal()
	if err != nil {
		return err
	}
	if err := q.store.ListPush(ctx, MainList, raw); err != nil {
		return fmt.Errorf("enqueue job %s: %w", job.ID, err)
	}

	jobsTotal.WithLabelValues(job.Kind, "enqueued").Inc()
	q.logger.DebugContext(ctx, "job enqueued",
		slog.String("job_id", job.ID),
		slog.String("kind", job.Kind),
	)
	return nil
}

// Dequeue pops the oldest job from the main queue and moves it to the
// in-flight list in one atomic step. Returns ErrEmpty when nothing waits.
func (q *Queue) Dequeue(ctx context.Context) (*domain.IndexJob, error) {
	raw, err := q.store.ListPopToList(ctx, MainList, ProcessingList)
	if errors.Is(err, cache.ErrMiss) {
		return nil, ErrEmpty
	}
	if err != nil {
		return nil, fmt.Errorf("dequeue: %w", err)
	}

	job, err := domain.UnmarshalIndexJob(raw)
	if err != nil {
		// A record we cannot parse can never be completed by ID; drop it
		// from the in-flight list so it does not accumulate.
		if _, remErr := q.store.ListRemove(ctx, ProcessingList, raw, 1); remErr != nil {
			q.logger.ErrorContext(ctx, "failed to drop unparsable job", slog.String("error", remErr.Error()))
		}
		return nil, fmt.Errorf("dequeue: %w", err)
	}

	return job, nil
}

// Complete removes the finished job from the in-flight list.
func (q *Queue) Complete(ctx context.Context, jobID string) error {
	raw, found, err := q.findInList(ctx, ProcessingList, jobID)
	if err != nil {
		return err
	}
	if !found {
		return nil
	}
	if _, err := q.store.ListRemove(ctx, ProcessingList, raw, 1); err != nil {
		return fmt.Errorf("complete job %s: %w", jobID, err)
	}

	jobsTotal.WithLabelValues(kindOf(raw), "completed").Inc()
	q.logger.DebugContext(ctx, "job completed", slog.String("job_id", jobID))
	return nil
}

// Fail removes the job from the in-flight list, increments its attempt
// counter, and either schedules a delayed re-push onto the main queue with
// exponential backoff or parks it on the dead list once the retry ceiling
// is reached.
func (q *Queue) Fail(ctx context.Context, jobID string, errText string) error {
	raw, found, err := q.findInList(ctx, ProcessingList, jobID)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("fail job %s: not in flight", jobID)
	}
	if _, err := q.store.ListRemove(ctx, ProcessingList, raw, 1); err != nil {
		return fmt.Errorf("fail job %s: %w", jobID, err)
	}

	job, err := domain.UnmarshalIndexJob(raw)
	if err != nil {
		return fmt.Errorf("fail job %s: %w", jobID, err)
	}

	job.Attempts++
	job.LastError = errText

	updated, err := job.Marshal()
	if err != nil {
		return fmt.Errorf("fail job %s: %w", jobID, err)
	}

	if job.Attempts >= q.maxRetries {
		if err := q.store.ListPush(ctx, FailedList, updated); err != nil {
			return fmt.Errorf("fail job %s: park dead: %w", jobID, err)
		}
		jobsTotal.WithLabelValues(job.Kind, "dead").Inc()
		q.logger.ErrorContext(ctx, "job exhausted retries",
			slog.String("job_id", job.ID),
			slog.String("kind", job.Kind),
			slog.Int("attempts", job.Attempts),
			slog.String("last_error", errText),
		)
		return nil
	}

	delay := q.RetryDelay(job.Attempts)
	jobsTotal.WithLabelValues(job.Kind, "retried").Inc()
	q.logger.WarnContext(ctx, "job failed, retry scheduled",
		slog.String("job_id", job.ID),
		slog.String("kind", job.Kind),
		slog.Int("attempts", job.Attempts),
		slog.Duration("delay", delay),
		slog.String("error", errText),
	)

	// Deferred, non-blocking re-push; the worker loop is not held.
	q.schedule(delay, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := q.store.ListPush(ctx, MainList, updated); err != nil {
			q.logger.Error("failed to re-enqueue job after backoff",
				slog.String("job_id", job.ID),
				slog.String("error", err.Error()),
			)
		}
	})

	return nil
}

// RetryDelay returns base^attempts seconds; it strictly increases with the
// attempt counter.
func (q *Queue) RetryDelay(attempts int) time.Duration {
	return time.Duration(math.Pow(q.backoff, float64(attempts)) * float64(time.Second))
}

// Stats reports the depth of each queue list.
type Stats struct {
	Pending    int64 `json:"pending"`
	Processing int64 `json:"processing"`
	Failed     int64 `json:"failed"`
}

// Stats returns the current depth of the main, in-flight, and dead lists.
func (q *Queue) Stats(ctx context.Context) (*Stats, error) {
	pending, err := q.store.ListLen(ctx, MainList)
	if err != nil {
		return nil, fmt.Errorf("queue stats: %w", err)
	}
	processing, err := q.store.ListLen(ctx, ProcessingList)
	if err != nil {
		return nil, fmt.Errorf("queue stats: %w", err)
	}
	failed, err := q.store.ListLen(ctx, FailedList)
	if err != nil {
		return nil, fmt.Errorf("queue stats: %w", err)
	}
	return &Stats{Pending: pending, Processing: processing, Failed: failed}, nil
}

// Clear drops every job in the named list.
func (q *Queue) Clear(ctx context.Context, name string) error {
	switch name {
	case MainList, ProcessingList, FailedList:
	default:
		return fmt.Errorf("clear queue: unknown list %q", name)
	}
	if err := q.store.Delete(ctx, name); err != nil {
		return fmt.Errorf("clear queue %s: %w", name, err)
	}
	q.logger.InfoContext(ctx, "queue cleared", slog.String("list", name))
	return nil
}

// RetryAllFailed drains the dead list, resets attempt counters and recorded
// errors, and re-enqueues every job onto the main queue.
func (q *Queue) RetryAllFailed(ctx context.Context) (int, error) {
	retried := 0
	for {
		raw, err := q.store.ListPopToList(ctx, FailedList, ProcessingList)
		if errors.Is(err, cache.ErrMiss) {
			break
		}
		if err != nil {
			return retried, fmt.Errorf("retry failed jobs: %w", err)
		}
		if _, err := q.store.ListRemove(ctx, ProcessingList, raw, 1); err != nil {
			return retried, fmt.Errorf("retry failed jobs: %w", err)
		}

		job, err := domain.UnmarshalIndexJob(raw)
		if err != nil {
			q.logger.ErrorContext(ctx, "dropping unparsable dead job", slog.String("error", err.Error()))
			continue
		}

		job.Attempts = 0
		job.LastError = ""

		if err := q.Enqueue(ctx, job); err != nil {
			return retried, err
		}
		retried++
	}

	if retried > 0 {
		q.logger.InfoContext(ctx, "dead jobs re-enqueued", slog.Int("count", retried))
	}
	return retried, nil
}

// findInList scans the named list for the job with the given ID and returns
// its raw record.
func (q *Queue) findInList(ctx context.Context, list, jobID string) (string, bool, error) {
	entries, err := q.store.ListRange(ctx, list, 0, -1)
	if err != nil {
		return "", false, fmt.Errorf("scan %s: %w", list, err)
	}
	for _, raw := range entries {
		job, err := domain.UnmarshalIndexJob(raw)
		if err != nil {
			continue
		}
		if job.ID == jobID {
			return raw, true, nil
		}
	}
	return "", false, nil
}

func kindOf(raw string) string {
	job, err := domain.UnmarshalIndexJob(raw)
	if err != nil {
		return "unknown"
	}
	return job.Kind
}
