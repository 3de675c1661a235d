package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

// DefaultMinInterval is the pause the worker takes after each task.
const DefaultMinInterval = 100 * time.Millisecond

// Prometheus metrics for the request queue.
var (
	queueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "dex_queue_depth",
		Help: "Number of tasks waiting in the request queue",
	})

	queueWaitSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "dex_queue_wait_seconds",
		Help:    "Time tasks spend queued before dispatch",
		Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30},
	})

	queueTasksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dex_queue_tasks_total",
		Help: "Total dispatched tasks by outcome",
	}, []string{"outcome"})
)

// Result is the outcome of one queued operation.
type Result struct {
	Value any
	Err   error
}

type task struct {
	id         string
	op         func() (any, error)
	done       chan Result
	enqueuedAt time.Time
}

// Queue serializes operations in strict FIFO order with a fixed pause after
// each one. At most one worker goroutine runs at a time; it starts on the
// first Enqueue into an idle queue and exits once the queue drains.
//
// The queue is unbounded. Under sustained overload it grows without limit.
type Queue struct {
	mu       sync.Mutex
	pending  []*task
	running  bool
	interval time.Duration
	sleep    func(time.Duration)
	logger   zerolog.Logger
}

// QueueOption customizes a Queue.
type QueueOption func(*Queue)

// WithSleep replaces the pause function, mainly for tests.
func WithSleep(sleep func(time.Duration)) QueueOption {
	return func(q *Queue) {
		q.sleep = sleep
	}
}

// NewQueue creates a queue that waits interval after each task.
// A negative interval is treated as zero.
func NewQueue(interval time.Duration, logger zerolog.Logger, opts ...QueueOption) *Queue {
	if interval < 0 {
		interval = 0
	}
	q := &Queue{
		interval: interval,
		sleep:    time.Sleep,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Enqueue appends op to the queue and returns a channel that receives its
// Result exactly once. A failing or panicking op affects only its own Result.
func (q *Queue) Enqueue(op func() (any, error)) <-chan Result {
	t := &task{
		id:         uuid.NewString(),
		op:         op,
		done:       make(chan Result, 1),
		enqueuedAt: time.Now(),
	}

	q.mu.Lock()
	q.pending = append(q.pending, t)
	queueDepth.Set(float64(len(q.pending)))
	start := !q.running
	q.running = true
	q.mu.Unlock()

	q.logger.Debug().
		Str("task_id", t.id).
		Bool("start_worker", start).
		Msg("Task enqueued")

	if start {
		go q.run()
	}
	return t.done
}

// Len returns the number of tasks waiting for dispatch.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Running reports whether a worker is active.
func (q *Queue) Running() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.running
}

func (q *Queue) run() {
	for {
		q.mu.Lock()
		if len(q.pending) == 0 {
			q.running = false
			q.mu.Unlock()
			return
		}
		t := q.pending[0]
		q.pending[0] = nil
		q.pending = q.pending[1:]
		queueDepth.Set(float64(len(q.pending)))
		q.mu.Unlock()

		queueWaitSeconds.Observe(time.Since(t.enqueuedAt).Seconds())
		t.done <- q.dispatch(t)

		if q.interval > 0 {
			q.sleep(q.interval)
		}
	}
}

func (q *Queue) dispatch(t *task) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			q.logger.Error().
				Str("task_id", t.id).
				Interface("panic", r).
				Msg("Queued task panicked")
			queueTasksTotal.WithLabelValues("panic").Inc()
			res = Result{Err: fmt.Errorf("queued task panicked: %v", r)}
		}
	}()

	q.logger.Debug().Str("task_id", t.id).Msg("Dispatching task")

	v, err := t.op()
	if err != nil {
		queueTasksTotal.WithLabelValues("failure").Inc()
		return Result{Err: err}
	}
	queueTasksTotal.WithLabelValues("success").Inc()
	return Result{Value: v}
}

// Do enqueues op on q and waits for its result. If ctx ends first Do returns
// ctx.Err(); the task still runs when its turn comes and its result is dropped.
func Do[T any](ctx context.Context, q *Queue, op func(context.Context) (T, error)) (T, error) {
	var zero T
	done := q.Enqueue(func() (any, error) {
		return op(ctx)
	})

	select {
	case res := <-done:
		if res.Err != nil {
			return zero, res.Err
		}
		v, ok := res.Value.(T)
		if !ok && res.Value != nil {
			return zero, fmt.Errorf("queued task returned %T", res.Value)
		}
		return v, nil
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}
