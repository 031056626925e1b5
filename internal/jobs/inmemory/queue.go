package inmemory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dvloznov/monomind/internal/jobs"
	"github.com/dvloznov/monomind/internal/logger"
)

// Defaults for Options.
const (
	DefaultBufferSize   = 256
	DefaultWorkers      = 2
	DefaultRetryBackoff = time.Second
)

// Options configures a Queue.
type Options struct {
	BufferSize int
	Workers    int
	// RetryBackoff is multiplied by the attempt number before each retry.
	RetryBackoff time.Duration
}

// Queue is an in-memory implementation of job publisher and consumer,
// suitable for single-instance deployments and tests.
type Queue struct {
	jobChan   chan *jobs.RecordRunJob
	closeChan chan struct{}
	wg        sync.WaitGroup
	mu        sync.RWMutex
	store     jobs.JobStore
	opts      Options
	closed    bool
}

// NewQueue creates a new in-memory job queue. store may be nil.
func NewQueue(opts Options, store jobs.JobStore) *Queue {
	if opts.BufferSize <= 0 {
		opts.BufferSize = DefaultBufferSize
	}
	if opts.Workers <= 0 {
		opts.Workers = DefaultWorkers
	}
	if opts.RetryBackoff <= 0 {
		opts.RetryBackoff = DefaultRetryBackoff
	}
	return &Queue{
		jobChan:   make(chan *jobs.RecordRunJob, opts.BufferSize),
		closeChan: make(chan struct{}),
		store:     store,
		opts:      opts,
	}
}

// PublishRecordRun implements the Publisher interface.
func (q *Queue) PublishRecordRun(ctx context.Context, job *jobs.RecordRunJob) error {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		return jobs.ErrQueueClosed
	}

	if job.JobID == "" {
		job.JobID = job.Record.RunID
	}
	if job.JobID == "" {
		return fmt.Errorf("PublishRecordRun: job has no run id")
	}
	if job.Status == "" {
		job.Status = jobs.JobStatusPending
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now()
	}
	if job.MaxRetries == 0 {
		job.MaxRetries = jobs.DefaultMaxRetries
	}

	if q.store != nil {
		if err := q.store.SaveJob(ctx, job); err != nil {
			return fmt.Errorf("failed to save job: %w", err)
		}
	}

	select {
	case q.jobChan <- job.Clone():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-q.closeChan:
		return jobs.ErrQueueClosed
	}
}

// Start implements the Consumer interface.
func (q *Queue) Start(ctx context.Context, handler jobs.JobHandler) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return jobs.ErrQueueClosed
	}

	for i := 0; i < q.opts.Workers; i++ {
		q.wg.Add(1)
		go q.worker(ctx, handler)
	}
	return nil
}

func (q *Queue) worker(ctx context.Context, handler jobs.JobHandler) {
	defer q.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case <-q.closeChan:
			q.drain(ctx, handler)
			return
		case job := <-q.jobChan:
			q.processJob(ctx, job, handler)
		}
	}
}

// drain processes whatever was queued before Stop so accepted records are
// not dropped on shutdown.
func (q *Queue) drain(ctx context.Context, handler jobs.JobHandler) {
	for {
		select {
		case job := <-q.jobChan:
			q.processJob(ctx, job, handler)
		default:
			return
		}
	}
}

// processJob runs the handler, retrying in place with linear backoff. The
// job is owned by this worker for its whole life.
func (q *Queue) processJob(ctx context.Context, job *jobs.RecordRunJob, handler jobs.JobHandler) {
	log := logger.FromContext(ctx).With().Str("job_id", job.JobID).Str("job_type", string(job.GetType())).Logger()

	for {
		now := time.Now()
		job.Status = jobs.JobStatusRunning
		job.StartedAt = &now
		job.CompletedAt = nil
		q.save(ctx, job)

		err := handler(ctx, job)

		completedAt := time.Now()
		job.CompletedAt = &completedAt

		if err == nil {
			job.Status = jobs.JobStatusCompleted
			job.Error = ""
			q.save(ctx, job)
			return
		}

		job.Error = err.Error()
		if job.RetryCount >= job.MaxRetries {
			job.Status = jobs.JobStatusFailed
			q.save(ctx, job)
			log.Error().Err(err).Int("retries", job.RetryCount).Msg("Job failed")
			return
		}

		job.RetryCount++
		job.Status = jobs.JobStatusRetrying
		q.save(ctx, job)
		log.Warn().Err(err).Int("retry", job.RetryCount).Msg("Job failed, retrying")

		backoff := time.Duration(job.RetryCount) * q.opts.RetryBackoff
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			job.Status = jobs.JobStatusFailed
			q.save(context.WithoutCancel(ctx), job)
			return
		}
	}
}

func (q *Queue) save(ctx context.Context, job *jobs.RecordRunJob) {
	if q.store != nil {
		_ = q.store.SaveJob(ctx, job)
	}
}

// Stop implements the Consumer interface. Queued jobs are drained before
// the workers exit.
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

// Close implements the Publisher interface.
func (q *Queue) Close() error {
	return q.Stop(context.Background())
}

var _ jobs.Publisher = (*Queue)(nil)
var _ jobs.Consumer = (*Queue)(nil)
