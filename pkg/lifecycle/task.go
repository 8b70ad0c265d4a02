// Package lifecycle implements the task state machine (spec C6): the
// projection derived from the record log, the first-acceptable-bid
// assignment rule, and the reactive hooks the poster/bidder sides use to
// drive escrow, execution, verification, and settlement. The engine
// itself performs no I/O — HandleRecord returns a Reaction describing
// what the orchestrating layer (the node's main loop) should do next,
// keeping this package pure state-machine logic, consistent with the
// "component boundaries return outcomes" policy (spec §7).
package lifecycle

import "time"

// State is a task's derived lifecycle state.
type State string

const (
	StateOpen      State = "open"
	StateAssigned  State = "assigned"
	StateCompleted State = "completed"
	StateVerified  State = "verified"
	StateSettled   State = "settled"
	StateFailed    State = "failed"
	StateHidden    State = "hidden"
)

// Bid is one observed task.bid against an open task.
type Bid struct {
	RecordID string
	Agent    string
	PriceXMR float64
	TS       int64
}

// Task is the projected state of one task lineage.
type Task struct {
	ID           string
	PosterAgent  string
	Description  string
	Category     string
	Requirements []string
	BudgetXMR    float64
	TrustTier    int
	Deadline     time.Time

	State State

	Bids             []Bid
	AssignedBid      *Bid
	EscrowID         string
	ResultHash       string
	VerifiedPassed   bool
	VerificationScore float64
	SettledAmountXMR float64
	FailureReason    string

	// assignedAt/completedAt drive executionTimeout enforcement at the
	// orchestration layer; the engine only records them.
	AssignedAt  time.Time
	CompletedAt time.Time
}

// IsTerminal reports whether state no longer accepts further lifecycle
// transitions driven by task records (settled/failed/hidden).
func (s State) IsTerminal() bool {
	return s == StateSettled || s == StateFailed || s == StateHidden
}
