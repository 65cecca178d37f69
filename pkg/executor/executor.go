// Package executor runs classification and storage work off the
// critical path of the intercepted LLM call, so recording a turn never
// adds classifier latency to the caller's response time.
package executor

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
)

// Task is a unit of background work. It receives a context that is
// canceled when the executor is shut down with Close.
type Task func(ctx context.Context) error

// Executor runs submitted tasks on a single worker goroutine draining a
// buffered channel, the same "one long-lived goroutine plus a
// lifecycle Close" shape used by the memory service and rate limiter.
type Executor struct {
	tasks    chan Task
	inFlight atomic.Int64
	wg       sync.WaitGroup
	cancel   context.CancelFunc
	log      *slog.Logger

	closeOnce sync.Once
	closed    atomic.Bool
}

// Config configures an Executor.
type Config struct {
	QueueSize int // default 256
	Logger    *slog.Logger
}

func New(cfg Config) *Executor {
	if cfg.QueueSize == 0 {
		cfg.QueueSize = 256
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())
	e := &Executor{
		tasks:  make(chan Task, cfg.QueueSize),
		cancel: cancel,
		log:    cfg.Logger,
	}

	e.wg.Add(1)
	go e.run(ctx)
	return e
}

func (e *Executor) run(ctx context.Context) {
	defer e.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case task, ok := <-e.tasks:
			if !ok {
				return
			}
			e.inFlight.Add(1)
			if err := task(ctx); err != nil {
				e.log.Warn("background task failed", "error", err)
			}
			e.inFlight.Add(-1)
		}
	}
}

// Submit enqueues a task. It returns an error rather than blocking
// forever if the queue is full or the executor is shutting down.
func (e *Executor) Submit(task Task) error {
	if e.closed.Load() {
		return fmt.Errorf("executor: closed")
	}
	select {
	case e.tasks <- task:
		return nil
	default:
		return fmt.Errorf("executor: queue full")
	}
}

// QueueDepth reports the number of tasks currently in flight or
// waiting, for the executor_queue_depth metric.
func (e *Executor) QueueDepth() int {
	return len(e.tasks) + int(e.inFlight.Load())
}

// Close cancels any in-flight task contexts and stops the worker. It
// does not wait for the queue to drain: tasks still queued when Close
// is called may be dropped without running, and any that do run
// receive the canceled context.
func (e *Executor) Close() {
	e.closeOnce.Do(func() {
		e.closed.Store(true)
		close(e.tasks)
		e.cancel()
	})
	e.wg.Wait()
}
