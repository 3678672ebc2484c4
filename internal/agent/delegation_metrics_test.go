package agent

import (
	"testing"
	"time"
)

func TestDelegationMetricsGetSuccessRateDefault(t *testing.T) {
	dm := NewDelegationMetrics(t.TempDir())
	if got := dm.GetSuccessRate("planner", "coder", "code_review"); got != 0.5 {
		t.Fatalf("GetSuccessRate for unseen path = %v, want 0.5", got)
	}
}

func TestDelegationMetricsRecordExecutionUpdatesSuccessRate(t *testing.T) {
	dm := NewDelegationMetrics(t.TempDir())

	dm.RecordExecution("planner", "coder", "code_review", true, 10*time.Millisecond, "")
	dm.RecordExecution("planner", "coder", "code_review", true, 10*time.Millisecond, "")
	dm.RecordExecution("planner", "coder", "code_review", false, 10*time.Millisecond, "timeout")

	rate := dm.GetSuccessRate("planner", "coder", "code_review")
	want := 2.0 / 3.0
	if diff := rate - want; diff > 1e-9 || diff < -1e-9 {
		t.Fatalf("GetSuccessRate = %v, want %v", rate, want)
	}

	// A distinct path must not be affected.
	if got := dm.GetSuccessRate("planner", "reviewer", "code_review"); got != 0.5 {
		t.Fatalf("GetSuccessRate for a different path = %v, want 0.5 (unaffected)", got)
	}
}

func TestDelegationMetricsRuleWeightMovesWithOutcomes(t *testing.T) {
	dm := NewDelegationMetrics(t.TempDir())

	initial := dm.GetRuleWeight("planner", "coder", "code_review")
	if initial != 1.0 {
		t.Fatalf("initial weight = %v, want 1.0 (neutral default)", initial)
	}

	for i := 0; i < 5; i++ {
		dm.RecordExecution("planner", "coder", "code_review", true, time.Millisecond, "")
	}
	afterSuccess := dm.GetRuleWeight("planner", "coder", "code_review")
	if afterSuccess <= initial {
		t.Fatalf("weight after repeated success = %v, want > %v", afterSuccess, initial)
	}

	for i := 0; i < 20; i++ {
		dm.RecordExecution("planner", "coder", "code_review", false, time.Millisecond, "error")
	}
	afterFailure := dm.GetRuleWeight("planner", "coder", "code_review")
	if afterFailure >= afterSuccess {
		t.Fatalf("weight after repeated failure = %v, want < %v", afterFailure, afterSuccess)
	}
	if afterFailure < 0.5 {
		t.Fatalf("weight = %v, must stay clamped to >= 0.5", afterFailure)
	}
}

func TestDelegationMetricsRecentResultsCapped(t *testing.T) {
	dm := NewDelegationMetrics(t.TempDir())

	for i := 0; i < MaxRecentResults+10; i++ {
		dm.RecordExecution("planner", "coder", "ctx", true, time.Millisecond, "")
	}

	key := buildPathKey("planner", "coder", "ctx")
	dm.mu.RLock()
	n := len(dm.PathMetrics[key].RecentResults)
	dm.mu.RUnlock()

	if n != MaxRecentResults {
		t.Fatalf("RecentResults length = %d, want capped at %d", n, MaxRecentResults)
	}
}
