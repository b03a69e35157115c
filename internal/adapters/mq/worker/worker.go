// Package worker drains the recompute queue: each job evaluates a mode and
// hands the overall standings to a publisher.
package worker

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/okian/swatrank/internal/adapters/mq/queue"
	"github.com/okian/swatrank/internal/domain/model"
	"github.com/okian/swatrank/internal/domain/scoring"
	"github.com/okian/swatrank/pkg/logger"
	"github.com/okian/swatrank/pkg/metrics"
	"github.com/okian/swatrank/pkg/tracing"
)

// Default worker configuration constants.
const (
	defaultWorkerCount  = 2
	poolShutdownTimeout = 30 * time.Second
)

// Evaluator computes the current standings of a mode.
type Evaluator interface {
	Evaluate(ctx context.Context, mode string) (scoring.Result, error)
}

// Publisher pushes standings to an external reader.
type Publisher interface {
	Publish(ctx context.Context, mode string, overall []model.OverallOutcome) error
}

// Queue defines how workers receive jobs.
type Queue interface {
	Dequeue(ctx context.Context) <-chan queue.Job
}

// Worker processes recompute jobs.
type Worker interface {
	// Run starts the worker loop until ctx is canceled.
	Run(ctx context.Context)

	// Shutdown gracefully stops the worker.
	Shutdown(ctx context.Context) error
}

// InMemoryWorker implements Worker on top of an in-process queue.
type InMemoryWorker struct {
	queue     Queue
	evaluator Evaluator
	publisher Publisher
	name      string

	shutdown     chan struct{}
	shutdownOnce sync.Once
	done         chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(q Queue, evaluator Evaluator, publisher Publisher, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:     q,
		evaluator: evaluator,
		publisher: publisher,
		name:      "worker",
		shutdown:  make(chan struct{}),
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.logger == nil {
		w.logger = logger.Get().Named(w.name)
	}
	return w
}

// Run starts the worker loop. After Shutdown, jobs still buffered in a closed
// queue are processed before Run returns.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	jobs := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			w.drain(ctx, jobs)
			return
		case job, ok := <-jobs:
			if !ok {
				return
			}
			w.handle(ctx, job)
		}
	}
}

func (w *InMemoryWorker) drain(ctx context.Context, jobs <-chan queue.Job) {
	closer, ok := w.queue.(interface{ IsClosed() bool })
	if !ok || !closer.IsClosed() {
		return
	}
	for {
		select {
		case <-ctx.Done():
			return
		case job, ok := <-jobs:
			if !ok {
				return
			}
			w.handle(ctx, job)
		}
	}
}

func (w *InMemoryWorker) handle(ctx context.Context, job queue.Job) {
	if err := w.process(ctx, job); err != nil {
		w.logger.Error(ctx, "error processing job", logger.String("mode", job.Mode), logger.Error(err))
	}
}

// Shutdown gracefully stops the worker.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	w.shutdownOnce.Do(func() { close(w.shutdown) })

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

func (w *InMemoryWorker) process(ctx context.Context, job queue.Job) (err error) {
	ctx, done := tracing.StartSpan(ctx, "worker.publish", attribute.String("mode", job.Mode))
	defer func() { done(err) }()

	start := time.Now()
	defer func() {
		metrics.RecordWorkerProcessingLatency(float64(time.Since(start).Microseconds()) / 1000)
	}()

	res, err := w.evaluator.Evaluate(ctx, job.Mode)
	if err != nil {
		metrics.RecordWorkerError()
		metrics.RecordErrorByComponent("worker", "evaluate_error")
		metrics.RecordErrorByType("evaluate_error", "high")
		return fmt.Errorf("evaluating %s: %w", job.Mode, err)
	}

	publishStart := time.Now()
	if err := w.publisher.Publish(ctx, job.Mode, res.Overall); err != nil {
		metrics.RecordWorkerError()
		metrics.RecordPublishError(job.Mode)
		metrics.RecordErrorByComponent("worker", "publish_error")
		metrics.RecordErrorByType("publish_error", "medium")
		return fmt.Errorf("publishing %s: %w", job.Mode, err)
	}
	metrics.RecordPublish(job.Mode, float64(time.Since(publishStart).Microseconds())/1000)

	w.logger.Debug(ctx, "standings published",
		logger.String("mode", job.Mode),
		logger.Int("participants", len(res.Overall)),
		logger.Duration("queued_for", publishStart.Sub(job.RequestedAt)),
	)
	return nil
}

// Pool manages multiple workers.
type Pool struct {
	workers []*InMemoryWorker
	queue   Queue
	logger  logger.Logger
}

// NewPool creates a new worker pool.
func NewPool(workerCount int, q Queue, evaluator Evaluator, publisher Publisher) *Pool {
	if workerCount < 1 {
		workerCount = defaultWorkerCount
	}

	pool := &Pool{
		workers: make([]*InMemoryWorker, workerCount),
		queue:   q,
		logger:  logger.Get().Named("worker-pool"),
	}
	for i := 0; i < workerCount; i++ {
		pool.workers[i] = NewInMemoryWorker(q, evaluator, publisher,
			WithName("worker-"+strconv.Itoa(i)),
		)
	}

	metrics.UpdateWorkerCount(workerCount)
	return pool
}

// Size returns the number of workers.
func (p *Pool) Size() int {
	return len(p.workers)
}

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
}

// Shutdown closes the queue and waits for the workers to stop.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	var firstErr error
	for i, w := range p.workers {
		if err := w.Shutdown(shutdownCtx); err != nil {
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}
