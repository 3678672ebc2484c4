package app

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/gopherctl/gopherctl/internal/agent"
	"github.com/gopherctl/gopherctl/internal/logging"
)

// StreamEventKind tags the union of events a Turn produces, mirrored from
// the spec's StreamEvent: Content, ToolCallRequest, ToolCallResponse,
// Finished, MaxSessionTurns, UserCancelled, Error. Thought and
// ToolCallConfirmation are folded into ToolCall (the teacher's Agent
// reports tool activity as a single start/end pair rather than a separate
// confirmation event).
type StreamEventKind int

const (
	StreamContent StreamEventKind = iota
	StreamToolCall
	StreamToolResult
	StreamFinished
	StreamMaxSessionTurns
	StreamCancelled
	StreamError
)

// StreamEvent is what the StreamOrchestrator hands to whatever is
// consuming a turn's output — the minimal stdio driver in app.go today,
// or any other external collaborator that implements the same sink func.
type StreamEvent struct {
	Kind       StreamEventKind
	Text       string
	ToolName   string
	ToolArgs   map[string]any
	ToolResult string
	Err        error
}

// OrchestratorState tracks whether the orchestrator will accept a new,
// non-continuation submission. Grounded on spec.md §4.4 step 1: "Reject new
// submissions while the orchestrator is Responding or
// WaitingForConfirmation unless the submission is a continuation."
type OrchestratorState int

const (
	StateIdle OrchestratorState = iota
	StateResponding
	StateWaitingForConfirmation
)

func (s OrchestratorState) String() string {
	switch s {
	case StateResponding:
		return "responding"
	case StateWaitingForConfirmation:
		return "waiting_for_confirmation"
	default:
		return "idle"
	}
}

// ErrOrchestratorBusy is returned by Submit when a non-continuation
// submission arrives while a turn is already in flight.
var ErrOrchestratorBusy = errors.New("orchestrator busy: a turn is already in progress")

// StreamOrchestrator is the Stream Orchestrator component: it gates
// submissions by session state, synthesizes a promptId per non-continuation
// submission, enforces maxSessionTurns, and drives the underlying Turn
// Engine (agent.Runner) while routing its output to an EventSink. This
// replaces the teacher's generic priority-DAG TaskOrchestrator, which had
// no notion of a session, a prompt counter, or a turn budget — none of
// which this component can do without.
type StreamOrchestrator struct {
	mu sync.Mutex

	runner    *agent.Runner
	sessionID string

	promptCount     int
	turnCount       int
	maxSessionTurns int

	state      OrchestratorState
	cancelFunc context.CancelFunc
}

// NewStreamOrchestrator creates an orchestrator bound to one Runner and one
// session. maxSessionTurns of exactly 0 makes every Submit a no-op per
// spec.md's end-to-end scenario 5; negative values mean unbounded.
func NewStreamOrchestrator(runner *agent.Runner, sessionID string, maxSessionTurns int) *StreamOrchestrator {
	return &StreamOrchestrator{
		runner:          runner,
		sessionID:       sessionID,
		maxSessionTurns: maxSessionTurns,
		state:           StateIdle,
	}
}

// PromptCount returns the number of non-continuation submissions accepted
// so far. Exposed so tests can verify promptCount monotonicity without
// reaching into orchestrator internals.
func (o *StreamOrchestrator) PromptCount() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.promptCount
}

// State returns the current gating state.
func (o *StreamOrchestrator) State() OrchestratorState {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Submit runs one turn: it allocates a promptId, invokes the Turn Engine
// via Runner.SpawnWithContext, and emits StreamEvents to sink as the turn
// progresses. It blocks until the turn completes.
func (o *StreamOrchestrator) Submit(ctx context.Context, agentType, prompt string, maxTurns int, model string, sink func(StreamEvent)) (string, error) {
	o.mu.Lock()
	if o.state != StateIdle {
		o.mu.Unlock()
		return "", ErrOrchestratorBusy
	}
	if o.maxSessionTurns == 0 {
		o.mu.Unlock()
		sink(StreamEvent{Kind: StreamMaxSessionTurns, Text: "maxSessionTurns is 0 — no backend call will be made"})
		return "", nil
	}

	o.promptCount++
	promptID := fmt.Sprintf("%s########%d", o.sessionID, o.promptCount)

	turnCtx, cancel := context.WithCancel(ctx)
	o.cancelFunc = cancel
	o.state = StateResponding
	o.mu.Unlock()

	defer func() {
		o.mu.Lock()
		o.state = StateIdle
		o.cancelFunc = nil
		o.mu.Unlock()
	}()

	logging.Debug("orchestrator: submitting turn", "prompt_id", promptID, "agent_type", agentType)

	_, result, err := o.runner.SpawnWithContext(turnCtx, agentType, prompt, maxTurns, model, "",
		func(text string) { sink(StreamEvent{Kind: StreamContent, Text: text}) },
		false,
	)

	o.mu.Lock()
	o.turnCount++
	exceeded := o.maxSessionTurns > 0 && o.turnCount > o.maxSessionTurns
	o.mu.Unlock()

	if err != nil {
		if errors.Is(turnCtx.Err(), context.Canceled) {
			sink(StreamEvent{Kind: StreamCancelled, Text: "Request cancelled."})
			return promptID, nil
		}
		sink(StreamEvent{Kind: StreamError, Err: err})
		return promptID, err
	}

	if result != nil {
		sink(StreamEvent{Kind: StreamFinished, Text: result.Output})
	}

	if exceeded {
		sink(StreamEvent{Kind: StreamMaxSessionTurns, Text: fmt.Sprintf("session turn limit (%d) reached", o.maxSessionTurns)})
	}

	return promptID, nil
}

// Cancel aborts the in-flight turn's cancellation token, mirroring
// spec.md §4.4's cancel-key behavior. A no-op when idle.
func (o *StreamOrchestrator) Cancel() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.cancelFunc != nil {
		o.cancelFunc()
	}
}

// WaitForConfirmation transitions the orchestrator into
// WaitingForConfirmation for the duration of fn, so a concurrent Submit
// sees the gate spec.md §4.4 requires while a tool confirmation prompt is
// outstanding.
func (o *StreamOrchestrator) WaitForConfirmation(fn func()) {
	o.mu.Lock()
	prev := o.state
	o.state = StateWaitingForConfirmation
	o.mu.Unlock()

	fn()

	o.mu.Lock()
	o.state = prev
	o.mu.Unlock()
}

// OrchestratorStats reports orchestrator counters for diagnostics/testing.
type OrchestratorStats struct {
	PromptCount     int
	TurnCount       int
	MaxSessionTurns int
	State           OrchestratorState
}

func (o *StreamOrchestrator) Stats() OrchestratorStats {
	o.mu.Lock()
	defer o.mu.Unlock()
	return OrchestratorStats{
		PromptCount:     o.promptCount,
		TurnCount:       o.turnCount,
		MaxSessionTurns: o.maxSessionTurns,
		State:           o.state,
	}
}
