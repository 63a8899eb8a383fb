package queue

import (
	"context"
	"sync"
	"testing"
	"time"
)

type recordingRunner struct {
	mu   sync.Mutex
	runs []Task
	done chan struct{}
}

func (r *recordingRunner) Execute(ctx context.Context, runID, topic string) error {
	r.mu.Lock()
	r.runs = append(r.runs, Task{RunID: runID, Topic: topic})
	r.mu.Unlock()
	r.done <- struct{}{}
	return nil
}

func TestDispatcherExecutesEnqueuedTasks(t *testing.T) {
	runner := &recordingRunner{done: make(chan struct{}, 2)}
	d := NewDispatcher(runner, 2, 8)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	d.Start(ctx)

	if err := d.Enqueue(Task{RunID: "r1", Topic: "ai"}); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if err := d.Enqueue(Task{RunID: "r2", Topic: "ml"}); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	for i := 0; i < 2; i++ {
		select {
		case <-runner.done:
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for task %d", i)
		}
	}

	runner.mu.Lock()
	defer runner.mu.Unlock()
	if len(runner.runs) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(runner.runs))
	}
}

func TestEnqueueFailsWhenFull(t *testing.T) {
	runner := &recordingRunner{done: make(chan struct{}, 1)}
	d := NewDispatcher(runner, 1, 1)
	// workers not started, so the buffer fills up

	if err := d.Enqueue(Task{RunID: "r1"}); err != nil {
		t.Fatalf("first enqueue should fit: %v", err)
	}
	if err := d.Enqueue(Task{RunID: "r2"}); err != ErrQueueFull {
		t.Fatalf("expected ErrQueueFull, got %v", err)
	}
}
