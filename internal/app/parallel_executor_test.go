package app

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestParallelExecutorExecuteTasksEmpty(t *testing.T) {
	pe := NewParallelExecutor(4, time.Second)
	results, err := pe.ExecuteTasks(context.Background(), nil)
	if err != nil {
		t.Fatalf("ExecuteTasks(nil) returned error: %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("results = %d, want 0", len(results))
	}
}

func TestParallelExecutorExecuteTasksMixedOutcomes(t *testing.T) {
	pe := NewParallelExecutor(2, time.Second)

	tasks := []*Task{
		{ID: "ok", Execute: func(ctx context.Context) error { return nil }},
		{ID: "fail", Execute: func(ctx context.Context) error { return errors.New("boom") }},
	}

	results, err := pe.ExecuteTasks(context.Background(), tasks)
	if err != nil {
		t.Fatalf("ExecuteTasks returned error: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("results = %d, want 2", len(results))
	}

	byID := make(map[string]TaskResult, len(results))
	for _, r := range results {
		byID[r.TaskID] = r
	}
	if !byID["ok"].Success {
		t.Fatal("task ok should have succeeded")
	}
	if byID["fail"].Success {
		t.Fatal("task fail should not have succeeded")
	}
	if byID["fail"].Error == nil {
		t.Fatal("task fail's result should carry its error")
	}

	// Active-task tracking must be empty once all tasks finish.
	if active := pe.GetActiveTasks(); len(active) != 0 {
		t.Fatalf("active tasks after completion = %d, want 0", len(active))
	}
}

func TestParallelExecutorConcurrencyLimit(t *testing.T) {
	const maxConcurrent = 2
	pe := NewParallelExecutor(maxConcurrent, 2*time.Second)

	var mu = &struct {
		current int
		peak    int
	}{}
	var lock = make(chan struct{}, 1)
	lock <- struct{}{}

	makeTask := func(id string) *Task {
		return &Task{ID: id, Execute: func(ctx context.Context) error {
			<-lock
			mu.current++
			if mu.current > mu.peak {
				mu.peak = mu.current
			}
			lock <- struct{}{}

			time.Sleep(30 * time.Millisecond)

			<-lock
			mu.current--
			lock <- struct{}{}
			return nil
		}}
	}

	tasks := []*Task{makeTask("a"), makeTask("b"), makeTask("c"), makeTask("d")}
	if _, err := pe.ExecuteTasks(context.Background(), tasks); err != nil {
		t.Fatalf("ExecuteTasks returned error: %v", err)
	}

	if mu.peak > maxConcurrent {
		t.Fatalf("observed peak concurrency = %d, want <= %d", mu.peak, maxConcurrent)
	}
}

func TestParallelExecutorCancelAll(t *testing.T) {
	pe := NewParallelExecutor(4, 5*time.Second)

	started := make(chan struct{})
	task := &Task{ID: "long", Execute: func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		return ctx.Err()
	}}

	resultsCh := make(chan []TaskResult, 1)
	go func() {
		results, _ := pe.ExecuteTasks(context.Background(), []*Task{task})
		resultsCh <- results
	}()

	select {
	case <-started:
	case <-time.After(time.Second):
		t.Fatal("task never started")
	}

	pe.CancelAll()

	select {
	case results := <-resultsCh:
		if len(results) != 1 || results[0].Success {
			t.Fatalf("results = %+v, want a single cancelled/failed result", results)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for cancelled task to finish")
	}
}
