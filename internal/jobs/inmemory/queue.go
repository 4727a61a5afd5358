package inmemory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dvloznov/vehicle-tracker/internal/jobs"
	"github.com/dvloznov/vehicle-tracker/internal/logger"
)

// Queue is an in-process Publisher and Consumer backed by a buffered
// channel. It suits single-instance deployments and tests.
type Queue struct {
	jobChan   chan *jobs.ParseTextJob
	closeChan chan struct{}
	wg        sync.WaitGroup
	mu        sync.RWMutex
	store     jobs.JobStore
	workers   int
	closed    bool
	backoff   func(attempt int) time.Duration
	now       func() time.Time
}

// NewQueue creates a queue. bufferSize bounds how many jobs wait before
// PublishParseText blocks; workers is the number of concurrent handlers.
// store may be nil.
func NewQueue(bufferSize, workers int, store jobs.JobStore) *Queue {
	if workers < 1 {
		workers = 1
	}
	return &Queue{
		jobChan:   make(chan *jobs.ParseTextJob, bufferSize),
		closeChan: make(chan struct{}),
		store:     store,
		workers:   workers,
		backoff:   jobs.Backoff,
		now:       time.Now,
	}
}

// WithBackoff overrides the retry delay, mainly for tests.
func (q *Queue) WithBackoff(backoff func(attempt int) time.Duration) *Queue {
	q.backoff = backoff
	return q
}

func (q *Queue) PublishParseText(ctx context.Context, job *jobs.ParseTextJob) error {
	q.mu.RLock()
	closed := q.closed
	q.mu.RUnlock()
	if closed {
		return fmt.Errorf("PublishParseText: queue is closed")
	}

	job.Prepare(q.now())

	if q.store != nil {
		if err := q.store.SaveJob(ctx, job); err != nil {
			return fmt.Errorf("PublishParseText: save job: %w", err)
		}
	}

	return q.enqueue(ctx, job.Clone())
}

func (q *Queue) enqueue(ctx context.Context, job *jobs.ParseTextJob) error {
	select {
	case q.jobChan <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-q.closeChan:
		return fmt.Errorf("enqueue: queue is closed")
	}
}

func (q *Queue) Start(ctx context.Context, handler jobs.JobHandler) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return fmt.Errorf("Start: queue is closed")
	}

	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.worker(ctx, handler)
	}
	log := logger.FromContext(ctx)
	log.Info().Int("workers", q.workers).Msg("In-memory job queue started")
	return nil
}

func (q *Queue) worker(ctx context.Context, handler jobs.JobHandler) {
	defer q.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case <-q.closeChan:
			return
		case job := <-q.jobChan:
			if job == nil {
				return
			}
			q.processJob(ctx, job, handler)
		}
	}
}

func (q *Queue) processJob(ctx context.Context, job *jobs.ParseTextJob, handler jobs.JobHandler) {
	log := logger.FromContext(ctx).With().Str("job_id", job.ID).Logger()

	job.Begin(q.now())
	q.save(ctx, job)

	err := handler(ctx, job)
	retry := job.Finish(err, q.now())
	q.save(ctx, job)

	if !retry {
		if err != nil {
			log.Error().Err(err).Int("retry_count", job.RetryCount).Msg("Job failed")
		}
		return
	}

	delay := q.backoff(job.RetryCount)
	log.Warn().Err(err).Int("retry_count", job.RetryCount).Dur("backoff", delay).Msg("Job will be retried")

	next := job.Clone()
	time.AfterFunc(delay, func() {
		next.Status = jobs.JobStatusQueued
		next.StartedAt = nil
		q.save(ctx, next)
		if err := q.enqueue(context.WithoutCancel(ctx), next); err != nil {
			log.Warn().Err(err).Msg("Dropping retry")
		}
	})
}

func (q *Queue) save(ctx context.Context, job *jobs.ParseTextJob) {
	if q.store == nil {
		return
	}
	if err := q.store.SaveJob(context.WithoutCancel(ctx), job); err != nil {
		log := logger.FromContext(ctx)
		log.Warn().Err(err).Str("job_id", job.ID).Msg("Failed to save job state")
	}
}

func (q *Queue) Stop(ctx context.Context) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	close(q.closeChan)
	q.mu.Unlock()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *Queue) Close() error {
	return q.Stop(context.Background())
}

var _ jobs.Publisher = (*Queue)(nil)
var _ jobs.Consumer = (*Queue)(nil)
