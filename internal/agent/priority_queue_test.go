package agent

import "testing"

func TestTaskQueuePopOrdersByPriority(t *testing.T) {
	tq := NewTaskQueue()
	tq.PushTask(&CoordinatedTask{ID: "low", Priority: PriorityLow})
	tq.PushTask(&CoordinatedTask{ID: "high", Priority: PriorityHigh})
	tq.PushTask(&CoordinatedTask{ID: "normal", Priority: PriorityNormal})

	if got := tq.PopTask(); got == nil || got.ID != "high" {
		t.Fatalf("first pop = %+v, want high priority task", got)
	}
	if got := tq.PopTask(); got == nil || got.ID != "normal" {
		t.Fatalf("second pop = %+v, want normal priority task", got)
	}
	if got := tq.PopTask(); got == nil || got.ID != "low" {
		t.Fatalf("third pop = %+v, want low priority task", got)
	}
	if tq.PopTask() != nil {
		t.Fatal("expected nil from an empty queue")
	}
}

func TestTaskQueuePeekDoesNotRemove(t *testing.T) {
	tq := NewTaskQueue()
	tq.PushTask(&CoordinatedTask{ID: "only", Priority: PriorityNormal})

	if got := tq.PeekTask(); got == nil || got.ID != "only" {
		t.Fatalf("PeekTask = %+v, want the only task", got)
	}
	if tq.Size() != 1 {
		t.Fatalf("Size after Peek = %d, want 1 (peek must not remove)", tq.Size())
	}
}

func TestTaskQueueUpdatePriorityReordersHeap(t *testing.T) {
	tq := NewTaskQueue()
	low := &CoordinatedTask{ID: "low", Priority: PriorityLow}
	normal := &CoordinatedTask{ID: "normal", Priority: PriorityNormal}
	tq.PushTask(low)
	tq.PushTask(normal)

	tq.UpdatePriority(low, PriorityHigh)

	if got := tq.PeekTask(); got == nil || got.ID != "low" {
		t.Fatalf("after promotion, top of queue = %+v, want the promoted task", got)
	}
}

func TestTaskQueueRemoveTask(t *testing.T) {
	tq := NewTaskQueue()
	tq.PushTask(&CoordinatedTask{ID: "a", Priority: PriorityNormal})
	tq.PushTask(&CoordinatedTask{ID: "b", Priority: PriorityNormal})

	removed := tq.RemoveTask("a")
	if removed == nil || removed.ID != "a" {
		t.Fatalf("RemoveTask(a) = %+v, want task a", removed)
	}
	if tq.Size() != 1 {
		t.Fatalf("Size after remove = %d, want 1", tq.Size())
	}
	if tq.RemoveTask("does-not-exist") != nil {
		t.Fatal("RemoveTask for an unknown ID should return nil")
	}
}

func TestTaskQueueGetReadyTasks(t *testing.T) {
	tq := NewTaskQueue()
	tq.PushTask(&CoordinatedTask{ID: "blocked", Priority: PriorityNormal, Status: TaskStatusBlocked})
	tq.PushTask(&CoordinatedTask{ID: "ready1", Priority: PriorityNormal, Status: TaskStatusReady})
	tq.PushTask(&CoordinatedTask{ID: "ready2", Priority: PriorityHigh, Status: TaskStatusReady})

	ready := tq.GetReadyTasks()
	if len(ready) != 2 {
		t.Fatalf("ready tasks = %d, want 2", len(ready))
	}
	for _, task := range ready {
		if task.Status != TaskStatusReady {
			t.Fatalf("GetReadyTasks returned a non-ready task: %+v", task)
		}
	}
}
