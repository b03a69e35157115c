package worker_test

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"testing"
	"time"

	queue "github.com/okian/swatrank/internal/adapters/mq/queue"
	worker "github.com/okian/swatrank/internal/adapters/mq/worker"
	model "github.com/okian/swatrank/internal/domain/model"
	"github.com/okian/swatrank/internal/domain/scoring"
	logging "github.com/okian/swatrank/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

// Mock implementations for testing.
type mockQueue struct {
	jobs chan queue.Job
	once sync.Once
}

func newMockQueue() *mockQueue {
	return &mockQueue{jobs: make(chan queue.Job, 10)}
}

func (mq *mockQueue) Dequeue(ctx context.Context) <-chan queue.Job {
	return mq.jobs
}

func (mq *mockQueue) Close() error {
	mq.once.Do(func() { close(mq.jobs) })
	return nil
}

func (mq *mockQueue) add(mode string) {
	mq.jobs <- queue.Job{Mode: mode, RequestedAt: time.Now()}
}

type mockEvaluator struct {
	mu     sync.Mutex
	errs   map[string]error
	calls  map[string]int
	result scoring.Result
}

func newMockEvaluator() *mockEvaluator {
	return &mockEvaluator{
		errs:  make(map[string]error),
		calls: make(map[string]int),
		result: scoring.Result{Overall: []model.OverallOutcome{
			{Participant: model.Participant{ID: "p1", Name: "Ahmet"}, Total: 85, Position: 1},
		}},
	}
}

func (m *mockEvaluator) Evaluate(ctx context.Context, mode string) (scoring.Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls[mode]++
	if err, ok := m.errs[mode]; ok {
		return scoring.Result{}, err
	}
	return m.result, nil
}

func (m *mockEvaluator) setError(mode string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errs[mode] = err
}

type mockPublisher struct {
	mu        sync.Mutex
	published map[string][]model.OverallOutcome
	err       error
}

func newMockPublisher() *mockPublisher {
	return &mockPublisher{published: make(map[string][]model.OverallOutcome)}
}

func (m *mockPublisher) Publish(ctx context.Context, mode string, overall []model.OverallOutcome) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.published[mode] = overall
	return nil
}

func (m *mockPublisher) get(mode string) ([]model.OverallOutcome, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.published[mode]
	return o, ok
}

func TestInMemoryWorker(t *testing.T) {
	convey.Convey("Given a new InMemoryWorker", t, func() {
		_ = logging.Init()

		q := newMockQueue()
		evaluator := newMockEvaluator()
		publisher := newMockPublisher()

		convey.Convey("When creating a worker with options", func() {
			w := worker.NewInMemoryWorker(q, evaluator, publisher,
				worker.WithName("test-worker"),
				worker.WithLogger(logging.Get().Named("custom")),
			)

			convey.Convey("Then it should be created successfully", func() {
				convey.So(w, convey.ShouldNotBeNil)
			})
		})

		convey.Convey("When running a worker", func() {
			w := worker.NewInMemoryWorker(q, evaluator, publisher)
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			go w.Run(ctx)

			convey.Convey("And a job arrives", func() {
				q.add("piyade")

				convey.Convey("Then the standings should be published", func() {
					convey.So(waitFor(func() bool { _, ok := publisher.get("piyade"); return ok }), convey.ShouldBeTrue)
					overall, _ := publisher.get("piyade")
					convey.So(overall[0].Participant.Name, convey.ShouldEqual, "Ahmet")
				})
			})

			convey.Convey("And evaluation fails", func() {
				evaluator.setError("keskin", errors.New("store down"))
				q.add("keskin")
				q.add("piyade")

				convey.Convey("Then the worker should keep going", func() {
					convey.So(waitFor(func() bool { _, ok := publisher.get("piyade"); return ok }), convey.ShouldBeTrue)
					_, ok := publisher.get("keskin")
					convey.So(ok, convey.ShouldBeFalse)
				})
			})

			convey.Convey("And it is shut down", func() {
				shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), time.Second)
				defer shutdownCancel()

				convey.Convey("Then it should stop cleanly", func() {
					convey.So(w.Shutdown(shutdownCtx), convey.ShouldBeNil)
					convey.So(w.Shutdown(shutdownCtx), convey.ShouldBeNil)
				})
			})
		})

		convey.Convey("When publishing fails", func() {
			publisher.err = errors.New("redis unavailable")
			w := worker.NewInMemoryWorker(q, evaluator, publisher)
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			go w.Run(ctx)

			q.add("piyade")

			convey.Convey("Then the job should be evaluated but not recorded", func() {
				convey.So(waitFor(func() bool {
					evaluator.mu.Lock()
					defer evaluator.mu.Unlock()
					return evaluator.calls["piyade"] == 1
				}), convey.ShouldBeTrue)
				_, ok := publisher.get("piyade")
				convey.So(ok, convey.ShouldBeFalse)
			})
		})
	})
}

func TestWorkerPool(t *testing.T) {
	convey.Convey("Given a worker pool over a coalescing queue", t, func() {
		_ = logging.Init()

		q := queue.NewCoalescingQueue(queue.WithCapacity(8))
		evaluator := newMockEvaluator()
		publisher := newMockPublisher()
		pool := worker.NewPool(3, q, evaluator, publisher)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		pool.Start(ctx)

		convey.Convey("When several modes are requested", func() {
			q.Enqueue(ctx, "piyade")
			q.Enqueue(ctx, "keskin")

			convey.Convey("Then each should be published", func() {
				convey.So(waitFor(func() bool {
					_, a := publisher.get("piyade")
					_, b := publisher.get("keskin")
					return a && b
				}), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When the pool is shut down", func() {
			err := pool.Shutdown(context.Background())

			convey.Convey("Then the queue should be closed", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(q.IsClosed(), convey.ShouldBeTrue)
				convey.So(pool.Size(), convey.ShouldEqual, 3)
			})
		})
	})

	convey.Convey("Given a single worker with a backlog", t, func() {
		_ = logging.Init()

		baseline := runtime.NumGoroutine()
		q := queue.NewCoalescingQueue(queue.WithCapacity(8))
		evaluator := newMockEvaluator()
		publisher := newMockPublisher()
		for i := 0; i < 5; i++ {
			q.Enqueue(context.Background(), fmt.Sprintf("mode-%d", i))
		}
		pool := worker.NewPool(1, q, evaluator, publisher)
		pool.Start(context.Background())

		convey.Convey("When the pool is shut down", func() {
			err := pool.Shutdown(context.Background())

			convey.Convey("Then every queued mode should be published", func() {
				convey.So(err, convey.ShouldBeNil)
				for i := 0; i < 5; i++ {
					_, ok := publisher.get(fmt.Sprintf("mode-%d", i))
					convey.So(ok, convey.ShouldBeTrue)
				}
			})

			convey.Convey("Then no goroutine should be left behind", func() {
				convey.So(waitFor(func() bool { return runtime.NumGoroutine() <= baseline }), convey.ShouldBeTrue)
			})
		})
	})

	convey.Convey("Given a non-positive worker count", t, func() {
		_ = logging.Init()
		pool := worker.NewPool(0, newMockQueue(), newMockEvaluator(), newMockPublisher())

		convey.Convey("Then the default size should be used", func() {
			convey.So(pool.Size(), convey.ShouldEqual, 2)
		})
	})
}

func waitFor(cond func() bool) bool {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return false
}
