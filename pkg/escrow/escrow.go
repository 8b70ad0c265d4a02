// Package escrow implements the trust-tiered escrow state machine (spec
// C7): lock-duration-by-tier, the pending/funded/locked/claimable/claimed/
// refunded/disputed transitions, and the claim fee split. This package
// owns only the state machine and arithmetic: the Engine holds no Wallet
// and moves no funds, and the transaction hashes it records are supplied
// by its callers.
package escrow

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// Tier is the trust tier selected at task posting (spec §4.7).
type Tier int

const (
	Tier1 Tier = 1
	Tier2 Tier = 2
	Tier3 Tier = 3
)

// State is an escrow's current lifecycle state.
type State string

const (
	StatePending   State = "pending"
	StateFunded    State = "funded"
	StateLocked    State = "locked"
	StateClaimable State = "claimable"
	StateClaimed   State = "claimed"
	StateRefunded  State = "refunded"
	StateDisputed  State = "disputed"
)

// verifierFeeByTier is the percentage of the claimed amount retained for
// verifier compensation, by trust tier (spec §4.7).
var verifierFeeByTier = map[Tier]float64{
	Tier1: 0.0,
	Tier2: 0.01,
	Tier3: 0.03,
}

// ErrCannotTransition is returned when an operation is attempted from a
// state that does not permit it; it carries the offending state so
// callers can report it without a type assertion.
type ErrCannotTransition struct {
	Op    string
	State State
}

func (e *ErrCannotTransition) Error() string {
	return fmt.Sprintf("escrow: cannot %s from state %s", e.Op, e.State)
}

var (
	// ErrNotFound is returned when an escrow id is unknown.
	ErrNotFound = errors.New("escrow: not found")
	// ErrLocked is returned when claim is attempted before lockUntil for
	// tier > 1.
	ErrLocked = errors.New("escrow: locked until lockUntil")
	// ErrInvalidTier rejects an unrecognized trust tier at create.
	ErrInvalidTier = errors.New("escrow: invalid trust tier")
)

// CreateParams configures a new escrow (spec C7 create(params)).
type CreateParams struct {
	TaskID            string
	Tier              Tier
	Amount            float64 // XMR, as a decimal string elsewhere; float64 here for arithmetic
	ExecutionTimeout  time.Duration
	VerificationTimeout time.Duration
	Verifiers         []string // tier 3 only; empty at create means deferred assignment
	ProtocolFeeBps    int      // from config, default 0
}

// Escrow is one trust-tiered fund hold for a single task.
type Escrow struct {
	ID                string
	TaskID            string
	Tier              Tier
	Amount            float64
	State             State
	CreatedAt         time.Time
	LockUntil         time.Time
	FundTxHash        string
	ClaimTxHash       string
	RefundTxHash      string
	Verifiers         []string
	DisputeReason     string
	ProtocolFeeBps    int
}

// Clock abstracts time.Now so lock/refund-eligibility windows are
// deterministic in tests.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock is the default, wall-clock-backed Clock.
var SystemClock Clock = systemClock{}

// IDGenerator produces a new escrow id at create time.
type IDGenerator func() string

// Engine owns the in-memory escrow map, guarded by a mutex, mirroring the
// teacher's session.Manager pattern.
type Engine struct {
	mu      sync.RWMutex
	clock   Clock
	nextID  IDGenerator
	escrows map[string]*Escrow
	byTask  map[string][]string
}

// NewEngine constructs an Engine using the system clock.
func NewEngine(nextID IDGenerator) *Engine {
	return NewEngineWithClock(SystemClock, nextID)
}

// NewEngineWithClock is NewEngine parameterized by Clock.
func NewEngineWithClock(clock Clock, nextID IDGenerator) *Engine {
	return &Engine{
		clock:   clock,
		nextID:  nextID,
		escrows: make(map[string]*Escrow),
		byTask:  make(map[string][]string),
	}
}

func lockDuration(tier Tier, execTimeout, verifyTimeout time.Duration) time.Duration {
	switch tier {
	case Tier1:
		return 0
	case Tier2:
		return execTimeout + verifyTimeout
	case Tier3:
		return 3 * execTimeout
	default:
		return 0
	}
}

// Create opens a new escrow in state pending.
func (e *Engine) Create(p CreateParams) (*Escrow, error) {
	if _, ok := verifierFeeByTier[p.Tier]; !ok {
		return nil, ErrInvalidTier
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.clock.Now()
	esc := &Escrow{
		ID:             e.nextID(),
		TaskID:         p.TaskID,
		Tier:           p.Tier,
		Amount:         p.Amount,
		State:          StatePending,
		CreatedAt:      now,
		LockUntil:      now.Add(lockDuration(p.Tier, p.ExecutionTimeout, p.VerificationTimeout)),
		Verifiers:      p.Verifiers,
		ProtocolFeeBps: p.ProtocolFeeBps,
	}
	e.escrows[esc.ID] = esc
	e.byTask[p.TaskID] = append(e.byTask[p.TaskID], esc.ID)
	return esc, nil
}

// Fund records a funding transaction, pending -> funded.
func (e *Engine) Fund(id, txHash string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	esc, err := e.getLocked(id)
	if err != nil {
		return err
	}
	if esc.State != StatePending {
		return &ErrCannotTransition{Op: "fund", State: esc.State}
	}
	esc.FundTxHash = txHash
	esc.State = StateFunded
	return nil
}

// Confirm observes the funding transaction has enough confirmations,
// funded -> locked.
func (e *Engine) Confirm(id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	esc, err := e.getLocked(id)
	if err != nil {
		return err
	}
	if esc.State != StateFunded {
		return &ErrCannotTransition{Op: "confirm", State: esc.State}
	}
	esc.State = StateLocked
	return nil
}

// ClaimResult is the outcome of a successful claim.
type ClaimResult struct {
	ClaimTxHash  string
	WorkerAmount float64
	VerifierFee  float64
	ProtocolFee  float64
}

// Claim pays out the escrow to the worker, net of the tier's verifier fee
// and the protocol fee. ClaimResult.VerifierFee is the total verifier fee;
// Claim does not divide it among the escrow's Verifiers. It is rejected
// while now < lockUntil for tier > 1.
func (e *Engine) Claim(id, workerKey string, makeTxHash func() string) (*ClaimResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	esc, err := e.getLocked(id)
	if err != nil {
		return nil, err
	}
	if esc.State != StateLocked && esc.State != StateClaimable {
		return nil, &ErrCannotTransition{Op: "claim", State: esc.State}
	}
	if esc.Tier > Tier1 && e.clock.Now().Before(esc.LockUntil) {
		return nil, ErrLocked
	}

	protocolFee := esc.Amount * float64(esc.ProtocolFeeBps) / 10000.0
	netAfterProtocol := esc.Amount - protocolFee
	verifierFeePct := verifierFeeByTier[esc.Tier]
	verifierFee := netAfterProtocol * verifierFeePct
	workerAmount := netAfterProtocol - verifierFee

	esc.State = StateClaimed
	esc.ClaimTxHash = makeTxHash()

	return &ClaimResult{
		ClaimTxHash:  esc.ClaimTxHash,
		WorkerAmount: workerAmount,
		VerifierFee:  verifierFee,
		ProtocolFee:  protocolFee,
	}, nil
}

// MarkClaimable transitions locked -> claimable once verification has
// passed but the worker has not yet claimed (used by the lifecycle engine
// to separate "may now be claimed" from "has been claimed").
func (e *Engine) MarkClaimable(id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	esc, err := e.getLocked(id)
	if err != nil {
		return err
	}
	if esc.State != StateLocked {
		return &ErrCannotTransition{Op: "mark claimable", State: esc.State}
	}
	esc.State = StateClaimable
	return nil
}

// Refund returns funds to the poster. Allowed only once now >= 2*lockUntil
// (measured from CreatedAt) or the escrow is disputed.
func (e *Engine) Refund(id string, makeTxHash func() string) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	esc, err := e.getLocked(id)
	if err != nil {
		return "", err
	}

	lockSpan := esc.LockUntil.Sub(esc.CreatedAt)
	refundEligible := esc.State == StateDisputed || !e.clock.Now().Before(esc.CreatedAt.Add(2*lockSpan))
	if !refundEligible {
		return "", &ErrCannotTransition{Op: "refund", State: esc.State}
	}

	esc.State = StateRefunded
	esc.RefundTxHash = makeTxHash()
	return esc.RefundTxHash, nil
}

// Dispute flags the escrow as disputed from any state, recording reason.
func (e *Engine) Dispute(id, reason string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	esc, err := e.getLocked(id)
	if err != nil {
		return err
	}
	esc.State = StateDisputed
	esc.DisputeReason = reason
	return nil
}

// Get returns a copy of the escrow with the given id.
func (e *Engine) Get(id string) (*Escrow, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	esc, ok := e.escrows[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *esc
	return &copied, nil
}

// ListByTask returns all escrows created for taskID, in creation order.
func (e *Engine) ListByTask(taskID string) []*Escrow {
	e.mu.RLock()
	defer e.mu.RUnlock()
	var out []*Escrow
	for _, id := range e.byTask[taskID] {
		if esc, ok := e.escrows[id]; ok {
			copied := *esc
			out = append(out, &copied)
		}
	}
	return out
}

func (e *Engine) getLocked(id string) (*Escrow, error) {
	esc, ok := e.escrows[id]
	if !ok {
		return nil, ErrNotFound
	}
	return esc, nil
}
