// Package dispatch runs fire-and-forget background tasks for the
// folder registry.
//
// Lifecycle events must never stall the caller: registry mutations are
// synchronous, while propagation to the analysis backend is submitted
// here and executed by a single background worker. The queue is
// unbounded FIFO, so sub-operations of one submission keep their order
// and a slow backend only delays delivery, never registration.
package dispatch

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// Task is one unit of background work.
type Task struct {
	// Name identifies the task in logs.
	Name string

	// Run executes the task. Errors are logged at the task boundary
	// and never reach the submitter.
	Run func(ctx context.Context) error
}

// Queue executes submitted tasks on a single background worker in
// submission order.
type Queue struct {
	mu     sync.Mutex
	cond   *sync.Cond
	tasks  []Task
	closed bool

	ctx     context.Context
	cancel  context.CancelFunc
	done    chan struct{}
	logger  *zap.Logger
	metrics *Metrics
}

// NewQueue creates a queue. Start must be called before tasks execute.
func NewQueue(ctx context.Context, logger *zap.Logger) *Queue {
	ctx, cancel := context.WithCancel(ctx)
	q := &Queue{
		ctx:     ctx,
		cancel:  cancel,
		done:    make(chan struct{}),
		logger:  logger,
		metrics: NewMetrics(logger),
	}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Start begins the background worker.
func (q *Queue) Start() {
	go q.runLoop()
}

// Submit enqueues a task. It never blocks. Tasks submitted after
// Shutdown are dropped with a warning.
func (q *Queue) Submit(name string, run func(ctx context.Context) error) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		q.logger.Warn("dispatch: queue closed, dropping task", zap.String("task", name))
		return
	}
	q.tasks = append(q.tasks, Task{Name: name, Run: run})
	q.mu.Unlock()

	q.metrics.TaskQueued(q.ctx)
	q.cond.Signal()
}

// runLoop drains the queue until Shutdown is called and the queue is empty.
func (q *Queue) runLoop() {
	defer close(q.done)
	for {
		q.mu.Lock()
		for len(q.tasks) == 0 && !q.closed {
			q.cond.Wait()
		}
		if len(q.tasks) == 0 && q.closed {
			q.mu.Unlock()
			return
		}
		task := q.tasks[0]
		q.tasks = q.tasks[1:]
		q.mu.Unlock()

		q.runTask(task)
	}
}

// runTask executes one task, capturing errors and panics at the boundary.
func (q *Queue) runTask(task Task) {
	defer q.metrics.TaskDone(q.ctx)

	if err := q.runWithRecover(task); err != nil {
		q.metrics.TaskFailed(q.ctx, task.Name)
		q.logger.Error("dispatch: task failed",
			zap.String("task", task.Name),
			zap.Error(err))
	}
}

func (q *Queue) runWithRecover(task Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return task.Run(q.ctx)
}

// Shutdown stops intake and waits for queued tasks to finish, bounded
// by ctx. On timeout the running task's context is cancelled and
// remaining tasks execute against the cancelled context.
func (q *Queue) Shutdown(ctx context.Context) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		<-q.done
		return nil
	}
	q.closed = true
	q.mu.Unlock()
	q.cond.Broadcast()

	select {
	case <-q.done:
		return nil
	case <-ctx.Done():
		q.cancel()
		<-q.done
		return fmt.Errorf("dispatch: drain interrupted: %w", ctx.Err())
	}
}

// Pending returns the number of tasks waiting to run.
func (q *Queue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.tasks)
}
