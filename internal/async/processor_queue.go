package async

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/pantry-receipts/constants"
	"github.com/joseph-ayodele/pantry-receipts/internal/pipeline"
)

// ErrClosed is returned by Enqueue after Shutdown.
var ErrClosed = errors.New("queue is shutting down")

// FileProcessor is the part of pipeline.Processor the workers need.
type FileProcessor interface {
	ProcessFile(ctx context.Context, path string, opts pipeline.Options) (*pipeline.Result, error)
}

type ProcessorQueue struct {
	proc    FileProcessor
	logger  *slog.Logger
	workers int
	timeout time.Duration

	ch   chan Job
	wg   sync.WaitGroup
	once sync.Once

	mu     sync.Mutex
	closed bool

	stateMu sync.RWMutex
	states  map[uuid.UUID]JobState
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
			q.ch = make(chan Job, n)
		}
	}
}

func WithProcessTimeout(d time.Duration) Option {
	return func(q *ProcessorQueue) {
		if d > 0 {
			q.timeout = d
		}
	}
}

func NewProcessorQueue(proc FileProcessor, logger *slog.Logger, opts ...Option) *ProcessorQueue {
	if logger == nil {
		logger = slog.Default()
	}
	q := &ProcessorQueue{
		proc:    proc,
		logger:  logger,
		workers: 2,
		timeout: 3 * time.Minute,
		ch:      make(chan Job, 64),
		states:  make(map[uuid.UUID]JobState),
	}
	for _, o := range opts {
		o(q)
	}
	q.start()
	return q
}

func (q *ProcessorQueue) start() {
	q.once.Do(func() {
		for i := 0; i < q.workers; i++ {
			q.wg.Add(1)
			go func(workerID int) {
				defer q.wg.Done()
				q.logger.Info("worker started", "worker_id", workerID)

				for job := range q.ch {
					q.run(workerID, job)
				}

				q.logger.Info("worker stopped", "worker_id", workerID)
			}(i + 1)
		}
	})
}

func (q *ProcessorQueue) run(workerID int, job Job) {
	q.setState(job.ID, JobState{Status: constants.JobStatusRunning})

	ctx, cancel := context.WithTimeout(context.Background(), q.timeout)
	res, err := q.proc.ProcessFile(ctx, job.Path, pipeline.Options{UserID: job.UserID, SourcePath: job.Path})
	cancel()

	if err != nil {
		q.logger.Error("processing failed", "worker_id", workerID, "job_id", job.ID, "path", job.Path, "error", err)
		q.setState(job.ID, JobState{Status: constants.JobStatusFailed, Error: err.Error()})
		return
	}
	q.logger.Info("processed receipt successfully",
		"worker_id", workerID,
		"job_id", job.ID,
		"receipt_id", res.ReceiptID,
		"duplicate", res.Duplicate,
		"items", len(res.Items),
		"wait_ms", time.Since(job.SubmittedAt).Milliseconds(),
	)
	q.setState(job.ID, JobState{
		Status:    constants.JobStatusParsed,
		ReceiptID: res.ReceiptID,
		Duplicate: res.Duplicate,
		Items:     len(res.Items),
	})
}

// Enqueue assigns an id when the job has none. A full queue blocks until a
// worker frees a slot or ctx is done.
func (q *ProcessorQueue) Enqueue(ctx context.Context, job Job) (uuid.UUID, error) {
	if job.ID == uuid.Nil {
		job.ID = uuid.New()
	}
	if job.SubmittedAt.IsZero() {
		job.SubmittedAt = time.Now()
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		q.logger.Warn("cannot enqueue: queue is shutting down", "path", job.Path)
		return uuid.Nil, ErrClosed
	}
	q.setState(job.ID, JobState{Status: constants.JobStatusQueued})
	select {
	case q.ch <- job:
		q.logger.Info("queued receipt for processing", "job_id", job.ID, "path", job.Path)
		return job.ID, nil
	default:
	}

	q.logger.Warn("queue full, applying backpressure", "job_id", job.ID, "path", job.Path)
	select {
	case q.ch <- job:
		return job.ID, nil
	case <-ctx.Done():
		q.setState(job.ID, JobState{Status: constants.JobStatusFailed, Error: ctx.Err().Error()})
		return uuid.Nil, ctx.Err()
	}
}

func (q *ProcessorQueue) Status(id uuid.UUID) (JobState, bool) {
	q.stateMu.RLock()
	defer q.stateMu.RUnlock()
	s, ok := q.states[id]
	return s, ok
}

func (q *ProcessorQueue) setState(id uuid.UUID, s JobState) {
	s.UpdatedAt = time.Now()
	q.stateMu.Lock()
	q.states[id] = s
	q.stateMu.Unlock()
}

// Shutdown stops accepting jobs and waits for queued ones to finish, or for
// ctx to end.
func (q *ProcessorQueue) Shutdown(ctx context.Context) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.ch)
	q.mu.Unlock()

	done := make(chan struct{})
	go func() { defer close(done); q.wg.Wait() }()

	select {
	case <-ctx.Done():
		q.logger.Warn("shutdown interrupted by context")
	case <-done:
		q.logger.Info("queue drained, shutdown complete")
	}
}
