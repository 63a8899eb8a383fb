package queue

import (
	"context"
	"errors"
	"log"
	"sync"
)

// Task is one serializable unit of saga work.
type Task struct {
	RunID string `json:"run_id"`
	Topic string `json:"topic"`
}

// Runner executes one run end to end.
type Runner interface {
	Execute(ctx context.Context, runID, topic string) error
}

// ErrQueueFull is returned when submission outpaces the workers.
var ErrQueueFull = errors.New("task queue is full")

// Dispatcher decouples HTTP submission from execution: Enqueue returns
// immediately and a fixed pool of workers drains the queue, one run per
// task. Runner failures are logged here; retry/alerting policy lives with
// the operator.
type Dispatcher struct {
	runner  Runner
	tasks   chan Task
	workers int
	logger  *log.Logger
	wg      sync.WaitGroup
}

func NewDispatcher(runner Runner, workers, buffer int) *Dispatcher {
	if workers <= 0 {
		workers = 4
	}
	if buffer <= 0 {
		buffer = 64
	}
	return &Dispatcher{
		runner:  runner,
		tasks:   make(chan Task, buffer),
		workers: workers,
		logger:  log.New(log.Writer(), "[QUEUE] ", log.LstdFlags),
	}
}

// Start launches the worker pool. Workers stop when ctx is cancelled.
func (d *Dispatcher) Start(ctx context.Context) {
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.work(ctx, i)
	}
}

func (d *Dispatcher) work(ctx context.Context, id int) {
	defer d.wg.Done()
	for {
		select {
		case <-ctx.Done():
			d.logger.Printf("worker %d stopping: %v", id, ctx.Err())
			return
		case task := <-d.tasks:
			d.logger.Printf("worker %d executing run %s", id, task.RunID)
			if err := d.runner.Execute(ctx, task.RunID, task.Topic); err != nil {
				d.logger.Printf("error: run %s: %v", task.RunID, err)
			}
		}
	}
}

// Enqueue submits a task without blocking the caller.
func (d *Dispatcher) Enqueue(task Task) error {
	select {
	case d.tasks <- task:
		return nil
	default:
		return ErrQueueFull
	}
}

// Wait blocks until every worker has exited.
func (d *Dispatcher) Wait() { d.wg.Wait() }
