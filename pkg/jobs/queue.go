package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ErrQueueNotStarted is returned by Enqueue before Start or after Stop.
var ErrQueueNotStarted = errors.New("queue not started")

// ErrDuplicateJob matches a DuplicateJobError.
var ErrDuplicateJob = errors.New("job already in flight")

// DuplicateJobError reports that a job with the same key is queued or running.
type DuplicateJobError struct {
	Key   string
	JobID string
}

func (e *DuplicateJobError) Error() string {
	return fmt.Sprintf("job %s already in flight for key %q", e.JobID, e.Key)
}

// Is makes errors.Is(err, ErrDuplicateJob) hold.
func (e *DuplicateJobError) Is(target error) bool { return target == ErrDuplicateJob }

// Job is a unit of background work. Jobs sharing a non-empty Key are
// coalesced: while one is queued, running or waiting for a retry, further
// jobs with that key are rejected with a DuplicateJobError.
type Job struct {
	ID       string
	Type     string
	Key      string
	Payload  interface{}
	Attempt  int
	Enqueued time.Time
}

// Handler processes a job.
type Handler func(context.Context, Job) error

// Mux routes jobs to handlers by Job.Type.
type Mux struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

// NewMux builds an empty router.
func NewMux() *Mux {
	return &Mux{handlers: make(map[string]Handler)}
}

// Handle registers handler for jobs of the given type.
func (m *Mux) Handle(jobType string, handler Handler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[jobType] = handler
}

// Dispatch runs the handler registered for job.Type.
func (m *Mux) Dispatch(ctx context.Context, job Job) error {
	m.mu.RLock()
	handler, ok := m.handlers[job.Type]
	m.mu.RUnlock()
	if !ok {
		return fmt.Errorf("no handler for job type %q", job.Type)
	}
	return handler(ctx, job)
}

// QueueConfig configures the worker pool.
type QueueConfig struct {
	Workers    int
	BufferSize int
	MaxRetries int
	RetryDelay time.Duration
	Logger     *zap.Logger
}

// Queue is an in-memory job dispatcher with a fixed worker pool and linear
// retry backoff. Buffered jobs are dropped on Stop.
type Queue struct {
	name       string
	handler    Handler
	workers    int
	maxRetries int
	retryDelay time.Duration
	logger     *zap.Logger
	jobs       chan Job

	mu       sync.Mutex
	ctx      context.Context
	cancel   context.CancelFunc
	started  bool
	inflight map[string]string
	wg       sync.WaitGroup
}

// NewQueue builds a queue feeding handler.
func NewQueue(name string, handler Handler, cfg QueueConfig) *Queue {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = cfg.Workers * 4
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Queue{
		name:       name,
		handler:    handler,
		workers:    cfg.Workers,
		maxRetries: cfg.MaxRetries,
		retryDelay: cfg.RetryDelay,
		logger:     cfg.Logger.With(zap.String("queue", name)),
		jobs:       make(chan Job, cfg.BufferSize),
		inflight:   make(map[string]string),
	}
}

// Start launches the workers. Later calls are no-ops until Stop.
func (q *Queue) Start(ctx context.Context) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.started {
		return
	}
	q.ctx, q.cancel = context.WithCancel(ctx)
	q.started = true
	for i := 1; i <= q.workers; i++ {
		q.wg.Add(1)
		go q.worker(i)
	}
	q.logger.Info("queue started", zap.Int("workers", q.workers))
}

// Stop cancels the workers and waits for running jobs to return.
func (q *Queue) Stop() {
	q.mu.Lock()
	if !q.started {
		q.mu.Unlock()
		return
	}
	q.cancel()
	q.started = false
	q.inflight = make(map[string]string)
	q.mu.Unlock()

	q.wg.Wait()
	q.logger.Info("queue stopped", zap.Int("dropped", len(q.jobs)))
}

// Pending reports the number of buffered jobs.
func (q *Queue) Pending() int {
	return len(q.jobs)
}

// InFlight returns the id of the job holding key, if any.
func (q *Queue) InFlight(key string) (string, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	id, ok := q.inflight[key]
	return id, ok
}

// Enqueue buffers job, blocking while the buffer is full.
func (q *Queue) Enqueue(job Job) error {
	q.mu.Lock()
	if !q.started {
		q.mu.Unlock()
		return fmt.Errorf("%s: %w", q.name, ErrQueueNotStarted)
	}
	if job.Key != "" {
		if holder, ok := q.inflight[job.Key]; ok && holder != job.ID {
			q.mu.Unlock()
			return &DuplicateJobError{Key: job.Key, JobID: holder}
		}
		q.inflight[job.Key] = job.ID
	}
	ctx := q.ctx
	q.mu.Unlock()

	if job.Enqueued.IsZero() {
		job.Enqueued = time.Now().UTC()
	}
	select {
	case <-ctx.Done():
		q.release(job)
		return fmt.Errorf("%s: %w", q.name, ErrQueueNotStarted)
	case q.jobs <- job:
		return nil
	}
}

func (q *Queue) worker(id int) {
	defer q.wg.Done()
	for {
		select {
		case <-q.ctx.Done():
			return
		case job := <-q.jobs:
			started := time.Now()
			if err := q.handler(q.ctx, job); err != nil {
				q.retry(job, err)
				continue
			}
			q.release(job)
			q.logger.Debug("job done",
				zap.Int("worker", id),
				zap.String("job_id", job.ID),
				zap.String("type", job.Type),
				zap.Duration("duration", time.Since(started)),
			)
		}
	}
}

func (q *Queue) retry(job Job, err error) {
	job.Attempt++
	fields := []zap.Field{zap.String("job_id", job.ID), zap.String("type", job.Type), zap.Int("attempt", job.Attempt), zap.Error(err)}
	if job.Attempt > q.maxRetries {
		q.release(job)
		q.logger.Error("job exceeded retries", fields...)
		return
	}
	q.logger.Warn("job failed, retrying", fields...)

	delay := q.retryDelay * time.Duration(job.Attempt)
	go func() {
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-q.ctx.Done():
		case <-timer.C:
			if err := q.Enqueue(job); err != nil {
				q.release(job)
				q.logger.Error("failed to requeue job", zap.String("job_id", job.ID), zap.Error(err))
			}
		}
	}()
}

func (q *Queue) release(job Job) {
	if job.Key == "" {
		return
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.inflight[job.Key] == job.ID {
		delete(q.inflight, job.Key)
	}
}
