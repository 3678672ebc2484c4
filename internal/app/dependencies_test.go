package app

import (
	"context"
	"errors"
	"sync"
	"testing"
)

func TestTaskDependenciesAddTaskRejectsEmptyIDAndDuplicate(t *testing.T) {
	td := NewTaskDependencies()

	if err := td.AddTask(&DependencyTask{ID: ""}); err == nil {
		t.Fatal("expected error adding a task with an empty ID")
	}

	if err := td.AddTask(&DependencyTask{ID: "a"}); err != nil {
		t.Fatalf("AddTask(a): %v", err)
	}
	if err := td.AddTask(&DependencyTask{ID: "a"}); err == nil {
		t.Fatal("expected error adding a duplicate task ID")
	}
}

func TestTaskDependenciesAddTaskWithDependenciesValidatesExistence(t *testing.T) {
	td := NewTaskDependencies()
	td.AddTask(&DependencyTask{ID: "a"})

	if err := td.AddTaskWithDependencies(&DependencyTask{ID: "b"}, []string{"missing"}); err == nil {
		t.Fatal("expected error referencing a nonexistent dependency")
	}

	if err := td.AddTaskWithDependencies(&DependencyTask{ID: "c"}, []string{"a"}); err != nil {
		t.Fatalf("AddTaskWithDependencies: %v", err)
	}
	task, _ := td.GetTask("c")
	if len(task.Dependencies) != 1 || task.Dependencies[0] != "a" {
		t.Fatalf("task c dependencies = %v, want [a]", task.Dependencies)
	}
}

func TestBuildExecutionOrderLinearChain(t *testing.T) {
	td := NewTaskDependencies()
	td.AddTask(&DependencyTask{ID: "a"})
	td.AddTaskWithDependencies(&DependencyTask{ID: "b"}, []string{"a"})
	td.AddTaskWithDependencies(&DependencyTask{ID: "c"}, []string{"b"})

	levels, err := td.BuildExecutionOrder()
	if err != nil {
		t.Fatalf("BuildExecutionOrder: %v", err)
	}
	if len(levels) != 3 {
		t.Fatalf("levels = %d, want 3 for a linear chain", len(levels))
	}
	if levels[0][0] != "a" || levels[1][0] != "b" || levels[2][0] != "c" {
		t.Fatalf("levels = %v, want [[a] [b] [c]]", levels)
	}
}

func TestBuildExecutionOrderParallelBranches(t *testing.T) {
	td := NewTaskDependencies()
	td.AddTask(&DependencyTask{ID: "root"})
	td.AddTaskWithDependencies(&DependencyTask{ID: "left"}, []string{"root"})
	td.AddTaskWithDependencies(&DependencyTask{ID: "right"}, []string{"root"})
	td.AddTaskWithDependencies(&DependencyTask{ID: "join"}, []string{"left", "right"})

	levels, err := td.BuildExecutionOrder()
	if err != nil {
		t.Fatalf("BuildExecutionOrder: %v", err)
	}
	if len(levels) != 3 {
		t.Fatalf("levels = %d, want 3 (root, [left,right], join)", len(levels))
	}
	if len(levels[1]) != 2 {
		t.Fatalf("middle level = %v, want 2 parallel tasks", levels[1])
	}
}

// BuildExecutionOrder cannot see cyclic dependencies via AddTaskWithDependencies
// (it requires the dependency to already exist), so a cycle is constructed by
// mutating Dependencies directly after both tasks exist.
func TestBuildExecutionOrderDetectsCycle(t *testing.T) {
	td := NewTaskDependencies()
	td.AddTask(&DependencyTask{ID: "a"})
	td.AddTaskWithDependencies(&DependencyTask{ID: "b"}, []string{"a"})

	taskA, _ := td.GetTask("a")
	taskA.Dependencies = []string{"b"}

	if _, err := td.BuildExecutionOrder(); err == nil {
		t.Fatal("expected a cyclic dependency error")
	}
}

func TestGetPlanComputesMaxParallelAndDepth(t *testing.T) {
	td := NewTaskDependencies()
	td.AddTask(&DependencyTask{ID: "root"})
	td.AddTaskWithDependencies(&DependencyTask{ID: "a"}, []string{"root"})
	td.AddTaskWithDependencies(&DependencyTask{ID: "b"}, []string{"root"})
	td.AddTaskWithDependencies(&DependencyTask{ID: "c"}, []string{"root"})

	plan, err := td.GetPlan()
	if err != nil {
		t.Fatalf("GetPlan: %v", err)
	}
	if plan.TotalTasks != 4 {
		t.Fatalf("TotalTasks = %d, want 4", plan.TotalTasks)
	}
	if plan.ExecutionDepth != 2 {
		t.Fatalf("ExecutionDepth = %d, want 2", plan.ExecutionDepth)
	}
	if plan.MaxParallel != 3 {
		t.Fatalf("MaxParallel = %d, want 3", plan.MaxParallel)
	}
}

func TestGetStatsReflectsCycles(t *testing.T) {
	td := NewTaskDependencies()
	td.AddTask(&DependencyTask{ID: "a"})
	td.AddTaskWithDependencies(&DependencyTask{ID: "b"}, []string{"a"})

	taskA, _ := td.GetTask("a")
	taskA.Dependencies = []string{"b"}

	stats := td.GetStats()
	if !stats.HasCycles {
		t.Fatal("GetStats should report HasCycles=true")
	}
	if stats.TotalTasks != 2 {
		t.Fatalf("TotalTasks = %d, want 2", stats.TotalTasks)
	}
}

func TestMarkTaskStatusTimestampsAndCallback(t *testing.T) {
	td := NewTaskDependencies()
	td.AddTask(&DependencyTask{ID: "a"})

	var transitions []TaskStatus
	var mu sync.Mutex
	td.onStatusChange = func(id string, status TaskStatus) {
		mu.Lock()
		transitions = append(transitions, status)
		mu.Unlock()
	}

	td.MarkTaskStatus("a", TaskStatusRunning, nil)
	td.MarkTaskStatus("a", TaskStatusCompleted, nil)

	task, _ := td.GetTask("a")
	if task.StartedAt == nil {
		t.Fatal("StartedAt should be set once a task starts running")
	}
	if task.CompletedAt == nil {
		t.Fatal("CompletedAt should be set once a task completes")
	}

	mu.Lock()
	defer mu.Unlock()
	if len(transitions) != 2 || transitions[0] != TaskStatusRunning || transitions[1] != TaskStatusCompleted {
		t.Fatalf("transitions = %v, want [Running Completed]", transitions)
	}
}

func TestDependencyManagerExecuteDependenciesSkipsDownstreamOnFailure(t *testing.T) {
	dm := NewDependencyManager()

	dm.AddTask(&DependencyTask{ID: "root", Execute: func(ctx context.Context) error {
		return errors.New("root failed")
	}})
	dm.AddTaskWithDependencies(&DependencyTask{ID: "child", Execute: func(ctx context.Context) error {
		return nil
	}}, []string{"root"})

	if err := dm.ExecuteDependencies(context.Background(), 2); err != nil {
		t.Fatalf("ExecuteDependencies: %v", err)
	}

	rootTask, _ := dm.GetTask("root")
	if rootTask.Status != TaskStatusFailed {
		t.Fatalf("root status = %v, want Failed", rootTask.Status)
	}

	childTask, _ := dm.GetTask("child")
	if childTask.Status != TaskStatusSkipped {
		t.Fatalf("child status = %v, want Skipped (its dependency failed)", childTask.Status)
	}
}

func TestDependencyManagerExecuteDependenciesAllSucceed(t *testing.T) {
	dm := NewDependencyManager()

	var order []string
	var mu sync.Mutex
	record := func(id string) func(ctx context.Context) error {
		return func(ctx context.Context) error {
			mu.Lock()
			order = append(order, id)
			mu.Unlock()
			return nil
		}
	}

	dm.AddTask(&DependencyTask{ID: "a", Execute: record("a")})
	dm.AddTaskWithDependencies(&DependencyTask{ID: "b", Execute: record("b")}, []string{"a"})

	if err := dm.ExecuteDependencies(context.Background(), 1); err != nil {
		t.Fatalf("ExecuteDependencies: %v", err)
	}

	stats := dm.GetStats()
	if stats.Completed != 2 {
		t.Fatalf("Completed = %d, want 2", stats.Completed)
	}
	if len(order) != 2 || order[0] != "a" || order[1] != "b" {
		t.Fatalf("execution order = %v, want [a b] (dependency ordering respected)", order)
	}
}
