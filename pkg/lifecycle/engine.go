package lifecycle

import (
	"sort"
	"sync"
	"time"

	"github.com/rird-project/rird/pkg/record"
	"github.com/rird-project/rird/pkg/safety"
)

// Blocklist reports whether an agent is currently suspended or killed
// (governance.Registry satisfies this).
type Blocklist interface {
	IsBlocked(agent string) bool
}

// Flagger reports whether a target (agent or task) has been auto-hidden
// by community flags (flagging.Flagger satisfies this).
type Flagger interface {
	IsHidden(target string) bool
}

// Engine projects the task state machine from dispatched records for one
// node, identified by selfAgent (its own public key hex) — needed to
// apply the "bid accepted only if this node posted the task" rule and to
// decide when this node is the poster vs. the assigned executor.
type Engine struct {
	mu        sync.Mutex
	selfAgent string
	blocklist Blocklist
	flagger   Flagger
	tasks     map[string]*Task
}

// NewEngine constructs an Engine for a node identified by selfAgent.
// flagger may be nil, in which case a task.flag record never hides a task
// on its own (spec §4.11's community-flag auto-hide is flagger's
// responsibility, not the engine's to approximate).
func NewEngine(selfAgent string, blocklist Blocklist, flagger Flagger) *Engine {
	return &Engine{
		selfAgent: selfAgent,
		blocklist: blocklist,
		flagger:   flagger,
		tasks:     make(map[string]*Task),
	}
}

// Task returns a copy of the current projection for taskID, if known.
func (e *Engine) Task(taskID string) (Task, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	t, ok := e.tasks[taskID]
	if !ok {
		return Task{}, false
	}
	return *t, true
}

// OpenTasks returns a snapshot of every task currently in StateOpen,
// sorted by id, for the marketplace browse surface.
func (e *Engine) OpenTasks() []Task {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]Task, 0, len(e.tasks))
	for _, t := range e.tasks {
		if t.State == StateOpen {
			out = append(out, *t)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// HandleRecord applies one dispatched record to the projection and
// returns the recommended next action, if any. Unknown or currently
// irrelevant record types return ReactionNone.
func (e *Engine) HandleRecord(r *record.Record) Reaction {
	e.mu.Lock()
	defer e.mu.Unlock()

	switch r.Type {
	case record.TypeTaskPosted:
		return e.handlePosted(r)
	case record.TypeTaskBid:
		return e.handleBid(r)
	case record.TypeTaskAssigned:
		return e.handleAssigned(r)
	case record.TypeTaskCompleted:
		return e.handleCompleted(r)
	case record.TypeTaskVerified:
		return e.handleVerified(r)
	case record.TypeTaskSettled:
		return e.handleSettled(r)
	case record.TypeTaskFailed:
		return e.handleFailed(r)
	case record.TypeTaskFlag:
		return e.handleFlag(r)
	default:
		return Reaction{Kind: ReactionNone}
	}
}

func str(data map[string]interface{}, key string) string {
	v, _ := data[key].(string)
	return v
}

func num(data map[string]interface{}, key string) float64 {
	switch v := data[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	}
	return 0
}

func strSlice(data map[string]interface{}, key string) []string {
	raw, ok := data[key].([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func (e *Engine) handlePosted(r *record.Record) Reaction {
	taskID := r.ID
	if _, exists := e.tasks[taskID]; exists {
		return Reaction{Kind: ReactionNone} // duplicate: first observed wins
	}

	description := str(r.Data, "description")
	category := str(r.Data, "category")
	requirements := strSlice(r.Data, "requirements")

	result := safety.Evaluate(safety.Request{
		Description:  description,
		Category:     category,
		Requirements: requirements,
	})

	task := &Task{
		ID:           taskID,
		PosterAgent:  r.Agent,
		Description:  description,
		Category:     category,
		Requirements: requirements,
		BudgetXMR:    num(r.Data, "budget_xmr"),
		TrustTier:    int(num(r.Data, "trust_tier")),
		Deadline:     time.Unix(int64(num(r.Data, "deadline")), 0),
		State:        StateOpen,
	}
	if !result.Safe {
		task.State = StateHidden
	}
	e.tasks[taskID] = task
	return Reaction{Kind: ReactionNone}
}

func (e *Engine) handleBid(r *record.Record) Reaction {
	taskID := str(r.Data, "task_id")
	task, ok := e.tasks[taskID]
	if !ok || task.PosterAgent != e.selfAgent {
		return Reaction{Kind: ReactionNone} // not ours to act on
	}
	if task.State != StateOpen {
		return Reaction{Kind: ReactionNone}
	}

	task.Bids = append(task.Bids, Bid{
		RecordID: r.ID,
		Agent:    r.Agent,
		PriceXMR: num(r.Data, "price_xmr"),
		TS:       r.TS,
	})
	return Reaction{Kind: ReactionNone}
}

func (e *Engine) handleAssigned(r *record.Record) Reaction {
	taskID := str(r.Data, "task_id")
	task, ok := e.tasks[taskID]
	if !ok || task.State != StateOpen {
		return Reaction{Kind: ReactionNone} // first observed transition wins
	}

	executor := str(r.Data, "executor")
	task.State = StateAssigned
	task.EscrowID = str(r.Data, "escrow_id")
	task.AssignedAt = time.Unix(r.TS, 0)
	task.AssignedBid = &Bid{Agent: executor, PriceXMR: num(r.Data, "price_xmr")}

	if executor == e.selfAgent {
		return Reaction{Kind: ReactionEnqueueExecution, TaskID: taskID}
	}
	return Reaction{Kind: ReactionNone}
}

func (e *Engine) handleCompleted(r *record.Record) Reaction {
	taskID := str(r.Data, "task_id")
	task, ok := e.tasks[taskID]
	if !ok || task.State != StateAssigned {
		return Reaction{Kind: ReactionNone}
	}

	task.State = StateCompleted
	task.ResultHash = str(r.Data, "result_hash")
	task.CompletedAt = time.Unix(r.TS, 0)

	if task.PosterAgent == e.selfAgent {
		return Reaction{Kind: ReactionVerifyNow, TaskID: taskID}
	}
	return Reaction{Kind: ReactionNone}
}

func (e *Engine) handleVerified(r *record.Record) Reaction {
	taskID := str(r.Data, "task_id")
	task, ok := e.tasks[taskID]
	if !ok || task.State != StateCompleted {
		return Reaction{Kind: ReactionNone}
	}

	passed := r.Data["passed"] == true
	task.VerifiedPassed = passed
	task.VerificationScore = num(r.Data, "score")

	if passed {
		task.State = StateVerified
		if task.PosterAgent == e.selfAgent {
			return Reaction{Kind: ReactionSettleNow, TaskID: taskID}
		}
		return Reaction{Kind: ReactionNone}
	}

	task.State = StateFailed
	task.FailureReason = str(r.Data, "reason")
	return Reaction{Kind: ReactionNone}
}

func (e *Engine) handleSettled(r *record.Record) Reaction {
	taskID := str(r.Data, "task_id")
	task, ok := e.tasks[taskID]
	if !ok || task.State != StateVerified {
		return Reaction{Kind: ReactionNone}
	}

	task.State = StateSettled
	task.SettledAmountXMR = num(r.Data, "amount_xmr")

	if task.PosterAgent == e.selfAgent || (task.AssignedBid != nil && task.AssignedBid.Agent == e.selfAgent) {
		return Reaction{Kind: ReactionAttestExpected, TaskID: taskID}
	}
	return Reaction{Kind: ReactionNone}
}

func (e *Engine) handleFailed(r *record.Record) Reaction {
	taskID := str(r.Data, "task_id")
	task, ok := e.tasks[taskID]
	if !ok || task.State.IsTerminal() {
		return Reaction{Kind: ReactionNone}
	}
	task.State = StateFailed
	task.FailureReason = str(r.Data, "reason")
	return Reaction{Kind: ReactionNone}
}

// handleFlag applies an already-recorded community flag to the
// projection. It never hides a task itself on the strength of one flag
// record: flagging.Flagger owns the reputable-flag count and the
// >=3-reputable-flags auto-hide threshold (spec §4.11); the engine only
// reflects a decision flagger has already made.
func (e *Engine) handleFlag(r *record.Record) Reaction {
	taskID := str(r.Data, "task_id")
	if taskID == "" {
		return Reaction{Kind: ReactionNone} // flag targets an agent, not a task
	}
	task, ok := e.tasks[taskID]
	if !ok {
		return Reaction{Kind: ReactionNone}
	}
	target := str(r.Data, "target")
	if target == "" {
		target = taskID
	}
	if e.flagger != nil && e.flagger.IsHidden(target) {
		task.State = StateHidden
	}
	return Reaction{Kind: ReactionNone}
}

// AcceptableBid selects the winning bid for taskID per the
// first-acceptable-bid rule (spec §4.6): not blocked, price in
// [bidderMin, budget], earliest ts, then lexicographically smallest
// agent key as the tiebreak.
func (e *Engine) AcceptableBid(taskID string, bidderMin func(agent string) float64) (Bid, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	task, ok := e.tasks[taskID]
	if !ok {
		return Bid{}, false
	}

	candidates := make([]Bid, 0, len(task.Bids))
	for _, b := range task.Bids {
		if e.blocklist != nil && e.blocklist.IsBlocked(b.Agent) {
			continue
		}
		if b.PriceXMR > task.BudgetXMR {
			continue
		}
		if bidderMin != nil && b.PriceXMR < bidderMin(b.Agent) {
			continue
		}
		candidates = append(candidates, b)
	}
	if len(candidates) == 0 {
		return Bid{}, false
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].TS != candidates[j].TS {
			return candidates[i].TS < candidates[j].TS
		}
		return candidates[i].Agent < candidates[j].Agent
	})
	return candidates[0], true
}
