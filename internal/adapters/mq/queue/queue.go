// Package queue holds pending standings recomputations.
//
// Jobs are keyed by competition mode. While a mode is waiting in the queue,
// further requests for it are folded into the pending job, so a burst of
// writes costs one recompute.
package queue

import (
	"context"
	"sync"
	"time"

	"github.com/okian/swatrank/pkg/metrics"
)

const defaultQueueCapacity = 64

// Job asks for the standings of Mode to be recomputed and published.
type Job struct {
	Mode        string
	RequestedAt time.Time
}

// Queue provides non-blocking enqueue and channel-based dequeue semantics.
type Queue interface {
	// Enqueue requests a recompute of mode. Returns false if the queue is
	// full or closed. A request for a mode that is already pending succeeds
	// without adding a job.
	Enqueue(ctx context.Context, mode string) bool

	// Dequeue returns a channel that will receive jobs as they become available.
	// The channel will be closed when the queue is closed.
	Dequeue(ctx context.Context) <-chan Job

	// Len returns the number of pending jobs.
	Len(ctx context.Context) int

	// Close gracefully shuts down the queue.
	Close() error

	// IsClosed returns true if the queue has been closed.
	IsClosed() bool
}

// CoalescingQueue implements Queue with a buffered channel and a pending set.
type CoalescingQueue struct {
	jobs     chan Job
	capacity int

	mu      sync.Mutex
	pending map[string]struct{}
	closed  bool
}

// NewCoalescingQueue creates a queue with configuration options.
func NewCoalescingQueue(opts ...Option) *CoalescingQueue {
	q := &CoalescingQueue{
		capacity: defaultQueueCapacity,
		pending:  make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(q)
	}
	q.jobs = make(chan Job, q.capacity)

	metrics.UpdateQueueCapacity(q.capacity)
	metrics.UpdateQueueSize(0)

	return q
}

// Enqueue implements Queue.Enqueue.
func (q *CoalescingQueue) Enqueue(ctx context.Context, mode string) bool {
	if ctx.Err() != nil {
		metrics.RecordQueueEnqueueError()
		metrics.RecordErrorByComponent("queue", "context_cancelled")
		return false
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		metrics.RecordQueueEnqueueError()
		metrics.RecordErrorByComponent("queue", "closed")
		return false
	}
	if _, ok := q.pending[mode]; ok {
		metrics.RecordQueueCoalesced()
		return true
	}

	select {
	case q.jobs <- Job{Mode: mode, RequestedAt: time.Now()}:
		q.pending[mode] = struct{}{}
		metrics.RecordQueueEnqueue()
		metrics.UpdateQueueSize(len(q.jobs))
		return true
	default:
		metrics.RecordQueueEnqueueError()
		metrics.RecordErrorByComponent("queue", "queue_full")
		return false
	}
}

// Dequeue implements Queue.Dequeue. A mode leaves the pending set when it is
// picked up, so writes that land during its recompute schedule another one.
func (q *CoalescingQueue) Dequeue(ctx context.Context) <-chan Job {
	out := make(chan Job)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case job, ok := <-q.jobs:
				if !ok {
					return
				}
				q.mu.Lock()
				delete(q.pending, job.Mode)
				q.mu.Unlock()
				metrics.UpdateQueueSize(len(q.jobs))

				select {
				case out <- job:
					metrics.RecordQueueDequeue()
				case <-ctx.Done():
					q.putBack(job)
					return
				}
			}
		}
	}()
	return out
}

// putBack returns a job that was taken but never delivered. It is dropped
// when the queue is closed or the mode is pending again.
func (q *CoalescingQueue) putBack(job Job) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		metrics.RecordErrorByComponent("queue", "dropped_on_close")
		return
	}
	if _, ok := q.pending[job.Mode]; ok {
		return
	}
	select {
	case q.jobs <- job:
		q.pending[job.Mode] = struct{}{}
		metrics.UpdateQueueSize(len(q.jobs))
	default:
		metrics.RecordErrorByComponent("queue", "queue_full")
	}
}

// Len implements Queue.Len.
func (q *CoalescingQueue) Len(_ context.Context) int {
	size := len(q.jobs)
	metrics.UpdateQueueSize(size)
	return size
}

// Close implements Queue.Close.
func (q *CoalescingQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}
	close(q.jobs)
	q.closed = true
	return nil
}

// IsClosed implements Queue.IsClosed.
func (q *CoalescingQueue) IsClosed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}
