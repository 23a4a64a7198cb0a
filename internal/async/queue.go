// Package async runs pipeline work on a bounded in-process worker pool so
// HTTP submissions return immediately.
package async

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Job is one unit of queued work.
type Job struct {
	ProblemID   uuid.UUID
	SubmittedAt time.Time
	TraceID     string
}

// ErrQueueFull is returned when the submission buffer is at capacity.
// Callers surface it as backpressure instead of blocking the request.
var ErrQueueFull = errors.New("processing queue is full")

// ErrStopped is returned for submissions after shutdown began.
var ErrStopped = errors.New("processing queue is stopped")

// ProcessFunc handles one job; the pipeline processor satisfies it.
type ProcessFunc func(ctx context.Context, id uuid.UUID) error

// Queue accepts jobs for background processing.
type Queue interface {
	Enqueue(ctx context.Context, job Job) error
}

// ProcessorQueue fans jobs out to a fixed worker pool, each job bounded by a
// per-job timeout.
type ProcessorQueue struct {
	process        ProcessFunc
	logger         *slog.Logger
	workers        int
	queueSize      int
	processTimeout time.Duration

	jobs chan Job
	wg   sync.WaitGroup

	mu      sync.Mutex
	stopped bool
}

type Option func(*ProcessorQueue)

func WithWorkers(n int) Option {
	return func(q *ProcessorQueue) {
		if n > 0 {
			q.workers = n
		}
	}
}

func WithQueueSize(n int) Option {
	return func(q *ProcessorQueue) {
		if n > 0 {
			q.queueSize = n
		}
	}
}

func WithProcessTimeout(d time.Duration) Option {
	return func(q *ProcessorQueue) {
		if d > 0 {
			q.processTimeout = d
		}
	}
}

func NewProcessorQueue(process ProcessFunc, logger *slog.Logger, opts ...Option) *ProcessorQueue {
	if logger == nil {
		logger = slog.Default()
	}
	q := &ProcessorQueue{
		process:        process,
		logger:         logger,
		workers:        4,
		queueSize:      64,
		processTimeout: 5 * time.Minute,
	}
	for _, opt := range opts {
		opt(q)
	}
	q.jobs = make(chan Job, q.queueSize)
	return q
}

// Start launches the worker pool.
func (q *ProcessorQueue) Start() {
	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.worker(i)
	}
	q.logger.Info("queue.started", "workers", q.workers, "queue_size", q.queueSize)
}

// Stop drains the queue: queued jobs still run, new submissions are refused.
// Blocks until the workers exit.
func (q *ProcessorQueue) Stop() {
	q.mu.Lock()
	if q.stopped {
		q.mu.Unlock()
		return
	}
	q.stopped = true
	close(q.jobs)
	q.mu.Unlock()

	q.wg.Wait()
	q.logger.Info("queue.stopped")
}

func (q *ProcessorQueue) Enqueue(_ context.Context, job Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.stopped {
		return ErrStopped
	}
	select {
	case q.jobs <- job:
		q.logger.Debug("queue.enqueued", "problem_id", job.ProblemID, "trace_id", job.TraceID)
		return nil
	default:
		q.logger.Warn("queue.full", "problem_id", job.ProblemID)
		return ErrQueueFull
	}
}

func (q *ProcessorQueue) worker(n int) {
	defer q.wg.Done()
	for job := range q.jobs {
		start := time.Now()
		ctx, cancel := context.WithTimeout(context.Background(), q.processTimeout)
		err := q.process(ctx, job.ProblemID)
		cancel()
		if err != nil {
			q.logger.Error("queue.job_failed",
				"worker", n,
				"problem_id", job.ProblemID,
				"trace_id", job.TraceID,
				"wait", time.Since(job.SubmittedAt).String(),
				"took", time.Since(start).String(),
				"err", err)
			continue
		}
		q.logger.Info("queue.job_done",
			"worker", n,
			"problem_id", job.ProblemID,
			"trace_id", job.TraceID,
			"took", time.Since(start).String())
	}
}
