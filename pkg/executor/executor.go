package executor

import (
	"context"
	"encoding/hex"
	"errors"
	"sync"
	"time"

	"github.com/rird-project/rird/internal/blake3"
)

// TaskOutcomeState is an enqueued task's progress through the bounded
// executor (spec §4.8).
type TaskOutcomeState string

const (
	OutcomeQueued     TaskOutcomeState = "queued"
	OutcomeRunning    TaskOutcomeState = "running"
	OutcomeCompleted  TaskOutcomeState = "completed"
	OutcomeDelivering TaskOutcomeState = "delivering"
	OutcomeDelivered  TaskOutcomeState = "delivered"
	OutcomeFailed     TaskOutcomeState = "failed"
	OutcomeTimedOut   TaskOutcomeState = "timed_out"
)

// defaultTimeout is used when a task's deadline leaves more room than the
// operator's configured default; minTimeout is the floor regardless of
// how close the deadline is (spec §4.8: "timeout = min(deadline-now,
// default_timeout) but >= 10s").
const minTimeout = 10 * time.Second

// ErrAgentCannotHandle is returned by Enqueue when the agent's CanHandle
// rejects the task.
var ErrAgentCannotHandle = errors.New("executor: agent cannot handle task")

// ErrAtCapacity is returned by Enqueue when the executor already has
// maxConcurrent tasks in flight.
var ErrAtCapacity = errors.New("executor: at capacity")

// Outcome is the terminal (or in-flight) record of one enqueued task.
type Outcome struct {
	TaskID     string
	State      TaskOutcomeState
	ResultHash string // "blake3:<hex>", set on completion
	Reason     string // set on failed/timed_out
}

// Clock abstracts time.Now so deadline-derived timeouts are deterministic
// in tests.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock is the default, wall-clock-backed Clock.
var SystemClock Clock = systemClock{}

// Executor runs agent tasks under a bounded concurrency limit, emitting a
// terminal Outcome for each.
type Executor struct {
	mu            sync.Mutex
	clock         Clock
	agent         Agent
	maxConcurrent int
	defaultTimeout time.Duration
	inFlight      int
	outcomes      map[string]*Outcome
}

// NewExecutor constructs an Executor bound to agent, using the system
// clock.
func NewExecutor(agent Agent, maxConcurrent int, defaultTimeout time.Duration) *Executor {
	return NewExecutorWithClock(SystemClock, agent, maxConcurrent, defaultTimeout)
}

// NewExecutorWithClock is NewExecutor parameterized by Clock.
func NewExecutorWithClock(clock Clock, agent Agent, maxConcurrent int, defaultTimeout time.Duration) *Executor {
	return &Executor{
		clock:          clock,
		agent:          agent,
		maxConcurrent:  maxConcurrent,
		defaultTimeout: defaultTimeout,
		outcomes:       make(map[string]*Outcome),
	}
}

// Enqueue runs spec synchronously against the agent under a deadline
// derived from the task deadline and the executor's default timeout,
// blocking the caller until the task reaches a terminal state. The
// caller (ingress/lifecycle dispatch) is expected to invoke this from a
// worker-pool goroutine, per spec §5's "heavy operations may run on a
// worker pool; completions re-enter the pipeline via a queue."
func (e *Executor) Enqueue(ctx context.Context, spec TaskSpec, deadline time.Time) *Outcome {
	if !e.tryReserveSlot(spec.TaskID) {
		return &Outcome{TaskID: spec.TaskID, State: OutcomeFailed, Reason: ErrAtCapacity.Error()}
	}
	defer e.releaseSlot(spec.TaskID)

	if !e.agent.CanHandle(spec) {
		return e.setOutcome(spec.TaskID, OutcomeFailed, "", ErrAgentCannotHandle.Error())
	}

	timeout := e.timeoutFor(deadline)
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	e.setOutcome(spec.TaskID, OutcomeRunning, "", "")

	type runResult struct {
		res ExecutionResult
		err error
	}
	resultCh := make(chan runResult, 1)
	go func() {
		res, err := e.agent.Execute(runCtx, spec)
		resultCh <- runResult{res, err}
	}()

	select {
	case <-runCtx.Done():
		return e.setOutcome(spec.TaskID, OutcomeTimedOut, "", "execution deadline exceeded")
	case r := <-resultCh:
		if r.err != nil {
			return e.setOutcome(spec.TaskID, OutcomeFailed, "", r.err.Error())
		}
		digest := blake3.Sum(r.res.OutputBytes)
		resultHash := "blake3:" + hex.EncodeToString(digest[:])
		return e.setOutcome(spec.TaskID, OutcomeCompleted, resultHash, "")
	}
}

func (e *Executor) timeoutFor(deadline time.Time) time.Duration {
	remaining := deadline.Sub(e.clock.Now())
	timeout := e.defaultTimeout
	if remaining > 0 && remaining < timeout {
		timeout = remaining
	}
	if timeout < minTimeout {
		timeout = minTimeout
	}
	return timeout
}

func (e *Executor) tryReserveSlot(taskID string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.inFlight >= e.maxConcurrent {
		return false
	}
	e.inFlight++
	e.outcomes[taskID] = &Outcome{TaskID: taskID, State: OutcomeQueued}
	return true
}

func (e *Executor) releaseSlot(string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.inFlight--
}

func (e *Executor) setOutcome(taskID string, state TaskOutcomeState, resultHash, reason string) *Outcome {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := &Outcome{TaskID: taskID, State: state, ResultHash: resultHash, Reason: reason}
	e.outcomes[taskID] = out
	return out
}

// OutcomeFor returns the last known outcome for taskID, if any.
func (e *Executor) OutcomeFor(taskID string) (*Outcome, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	out, ok := e.outcomes[taskID]
	return out, ok
}

// InFlight returns the number of tasks currently occupying a concurrency
// slot.
func (e *Executor) InFlight() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.inFlight
}
