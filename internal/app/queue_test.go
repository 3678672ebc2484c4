package app

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestPriorityString(t *testing.T) {
	tests := []struct {
		p    Priority
		want string
	}{
		{PriorityHigh, "HIGH"},
		{PriorityNormal, "NORMAL"},
		{PriorityLow, "LOW"},
		{Priority(99), "UNKNOWN"},
	}
	for _, tt := range tests {
		if got := tt.p.String(); got != tt.want {
			t.Fatalf("Priority(%d).String() = %q, want %q", tt.p, got, tt.want)
		}
	}
}

func TestQueueManagerDequeueOrdersByPriority(t *testing.T) {
	qm := NewQueueManager(10)
	ctx := context.Background()
	noop := func(context.Context) error { return nil }

	if _, err := qm.Enqueue(ctx, "low", PriorityLow, noop, nil); err != nil {
		t.Fatalf("enqueue low: %v", err)
	}
	if _, err := qm.Enqueue(ctx, "normal", PriorityNormal, noop, nil); err != nil {
		t.Fatalf("enqueue normal: %v", err)
	}
	if _, err := qm.Enqueue(ctx, "high", PriorityHigh, noop, nil); err != nil {
		t.Fatalf("enqueue high: %v", err)
	}

	first := qm.Dequeue()
	if first == nil || first.Priority != PriorityHigh {
		t.Fatalf("first dequeued = %+v, want high priority task", first)
	}
	second := qm.Dequeue()
	if second == nil || second.Priority != PriorityNormal {
		t.Fatalf("second dequeued = %+v, want normal priority task", second)
	}
	third := qm.Dequeue()
	if third == nil || third.Priority != PriorityLow {
		t.Fatalf("third dequeued = %+v, want low priority task", third)
	}
	if qm.Dequeue() != nil {
		t.Fatal("expected nil from an empty queue")
	}
}

func TestQueueManagerFIFOWithinSamePriority(t *testing.T) {
	qm := NewQueueManager(10)
	ctx := context.Background()
	noop := func(context.Context) error { return nil }

	id1, _ := qm.Enqueue(ctx, "first", PriorityNormal, noop, nil)
	id2, _ := qm.Enqueue(ctx, "second", PriorityNormal, noop, nil)

	first := qm.Dequeue()
	second := qm.Dequeue()
	if first.ID != id1 {
		t.Fatalf("first dequeued ID = %s, want %s (FIFO within same priority)", first.ID, id1)
	}
	if second.ID != id2 {
		t.Fatalf("second dequeued ID = %s, want %s", second.ID, id2)
	}
}

func TestQueueManagerFullQueueDropsLowPriority(t *testing.T) {
	qm := NewQueueManager(2)
	ctx := context.Background()
	noop := func(context.Context) error { return nil }

	if _, err := qm.Enqueue(ctx, "a", PriorityNormal, noop, nil); err != nil {
		t.Fatalf("enqueue a: %v", err)
	}
	if _, err := qm.Enqueue(ctx, "b", PriorityNormal, noop, nil); err != nil {
		t.Fatalf("enqueue b: %v", err)
	}

	// Queue is now full; a normal-priority task must be rejected.
	if _, err := qm.Enqueue(ctx, "c", PriorityNormal, noop, nil); err == nil {
		t.Fatal("expected error enqueueing into a full queue at normal priority")
	}

	// A high-priority task must still get in by evicting the lowest-priority entry.
	id, err := qm.Enqueue(ctx, "urgent", PriorityHigh, noop, nil)
	if err != nil {
		t.Fatalf("expected high priority task to evict room, got error: %v", err)
	}
	if qm.Len() != 2 {
		t.Fatalf("queue length after eviction = %d, want 2 (capacity preserved)", qm.Len())
	}

	stats := qm.GetStats()
	if stats.TotalDropped == 0 {
		t.Fatal("expected TotalDropped to be incremented by the eviction")
	}

	task, ok := qm.GetTask(id)
	if !ok || task.Priority != PriorityHigh {
		t.Fatalf("GetTask(%s) = %+v, %v; want the urgent high priority task", id, task, ok)
	}
}

func TestQueueManagerDisabledExecutesImmediately(t *testing.T) {
	qm := NewQueueManager(10)
	qm.SetEnabled(false)

	done := make(chan error, 1)
	_, err := qm.Enqueue(context.Background(), "direct", PriorityNormal,
		func(context.Context) error { return errors.New("boom") },
		func(err error) { done <- err })
	if err != nil {
		t.Fatalf("Enqueue with disabled queue returned error: %v", err)
	}

	select {
	case got := <-done:
		if got == nil || got.Error() != "boom" {
			t.Fatalf("OnComplete error = %v, want boom", got)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for direct execution callback")
	}

	if qm.Len() != 0 {
		t.Fatalf("disabled queue should never buffer tasks, length = %d", qm.Len())
	}
}

func TestQueueManagerRemoveAndClear(t *testing.T) {
	qm := NewQueueManager(10)
	ctx := context.Background()
	noop := func(context.Context) error { return nil }

	id, _ := qm.Enqueue(ctx, "a", PriorityNormal, noop, nil)
	if !qm.Remove(id) {
		t.Fatal("Remove should report success for an existing task")
	}
	if qm.Remove(id) {
		t.Fatal("Remove should report failure for an already-removed task")
	}

	qm.Enqueue(ctx, "b", PriorityLow, noop, nil)
	qm.Enqueue(ctx, "c", PriorityHigh, noop, nil)
	qm.Clear()
	if qm.Len() != 0 {
		t.Fatalf("Len after Clear = %d, want 0", qm.Len())
	}
	if qm.Peek() != nil {
		t.Fatal("Peek after Clear should be nil")
	}
}

func TestQueueManagerProcessQueueRunsCallbacks(t *testing.T) {
	qm := NewQueueManager(10)
	var started, completed bool
	qm.SetCallbacks(
		func(task *QueueTask) { started = true },
		func(task *QueueTask, err error) { completed = true },
	)

	executed := make(chan struct{})
	qm.Enqueue(context.Background(), "work", PriorityNormal, func(context.Context) error {
		close(executed)
		return nil
	}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	go qm.ProcessQueue(ctx)
	defer cancel()

	select {
	case <-executed:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for queued task to execute")
	}

	// Give the callbacks a moment to run after execution completes.
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if started && completed {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	if !started || !completed {
		t.Fatalf("onStart=%v onComplete=%v, want both true", started, completed)
	}

	stats := qm.GetStats()
	if stats.TotalProcessed != 1 {
		t.Fatalf("TotalProcessed = %d, want 1", stats.TotalProcessed)
	}
}
