package escrow

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock { return &fakeClock{now: time.Now()} }

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func sequentialID() IDGenerator {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("escrow-%d", n)
	}
}

func txHash(prefix string) func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("%s-%d", prefix, n)
	}
}

func TestTier1HasNoLockAndClaimsImmediately(t *testing.T) {
	clock := newFakeClock()
	eng := NewEngineWithClock(clock, sequentialID())

	esc, err := eng.Create(CreateParams{TaskID: "t1", Tier: Tier1, Amount: 1.0})
	require.NoError(t, err)
	require.NoError(t, eng.Fund(esc.ID, "fund-tx"))
	require.NoError(t, eng.Confirm(esc.ID))

	result, err := eng.Claim(esc.ID, "worker-key", txHash("claim"))
	require.NoError(t, err)
	assert.Equal(t, 1.0, result.WorkerAmount) // tier 1: 0% verifier fee, 0 protocol fee
	assert.Equal(t, 0.0, result.VerifierFee)
}

func TestTier2ClaimRejectedBeforeLockUntil(t *testing.T) {
	clock := newFakeClock()
	eng := NewEngineWithClock(clock, sequentialID())

	esc, err := eng.Create(CreateParams{
		TaskID: "t2", Tier: Tier2, Amount: 1.0,
		ExecutionTimeout: time.Hour, VerificationTimeout: 30 * time.Minute,
	})
	require.NoError(t, err)
	require.NoError(t, eng.Fund(esc.ID, "fund-tx"))
	require.NoError(t, eng.Confirm(esc.ID))

	_, err = eng.Claim(esc.ID, "worker-key", txHash("claim"))
	assert.ErrorIs(t, err, ErrLocked)

	clock.Advance(90*time.Minute + time.Second)
	result, err := eng.Claim(esc.ID, "worker-key", txHash("claim"))
	require.NoError(t, err)
	assert.InDelta(t, 0.99, result.WorkerAmount, 0.0001) // 1% verifier fee
	assert.InDelta(t, 0.01, result.VerifierFee, 0.0001)
}

func TestTier3FeeSplitAndProtocolFee(t *testing.T) {
	clock := newFakeClock()
	eng := NewEngineWithClock(clock, sequentialID())

	esc, err := eng.Create(CreateParams{
		TaskID: "t3", Tier: Tier3, Amount: 100.0,
		ExecutionTimeout: time.Hour, Verifiers: []string{"v1", "v2"},
		ProtocolFeeBps: 100, // 1%
	})
	require.NoError(t, err)
	require.NoError(t, eng.Fund(esc.ID, "fund-tx"))
	require.NoError(t, eng.Confirm(esc.ID))

	clock.Advance(3*time.Hour + time.Second)
	result, err := eng.Claim(esc.ID, "worker-key", txHash("claim"))
	require.NoError(t, err)

	// protocolFee = 100*0.01 = 1; net = 99; verifierFee = 99*0.03 = 2.97; worker = 96.03
	assert.InDelta(t, 1.0, result.ProtocolFee, 0.0001)
	assert.InDelta(t, 2.97, result.VerifierFee, 0.0001)
	assert.InDelta(t, 96.03, result.WorkerAmount, 0.0001)
}

func TestInvalidTierRejectedAtCreate(t *testing.T) {
	eng := NewEngine(sequentialID())
	_, err := eng.Create(CreateParams{TaskID: "t4", Tier: Tier(9), Amount: 1.0})
	assert.ErrorIs(t, err, ErrInvalidTier)
}

func TestCannotTransitionFromPendingToClaim(t *testing.T) {
	eng := NewEngine(sequentialID())
	esc, err := eng.Create(CreateParams{TaskID: "t5", Tier: Tier1, Amount: 1.0})
	require.NoError(t, err)

	_, err = eng.Claim(esc.ID, "worker", txHash("claim"))
	var cannotErr *ErrCannotTransition
	assert.ErrorAs(t, err, &cannotErr)
	assert.Equal(t, StatePending, cannotErr.State)
}

func TestRefundRequiresTwiceLockUntilOrDispute(t *testing.T) {
	clock := newFakeClock()
	eng := NewEngineWithClock(clock, sequentialID())
	esc, err := eng.Create(CreateParams{
		TaskID: "t6", Tier: Tier2, Amount: 1.0,
		ExecutionTimeout: time.Hour, VerificationTimeout: time.Hour,
	})
	require.NoError(t, err)
	require.NoError(t, eng.Fund(esc.ID, "fund-tx"))
	require.NoError(t, eng.Confirm(esc.ID))

	_, err = eng.Refund(esc.ID, txHash("refund"))
	var cannotErr *ErrCannotTransition
	assert.ErrorAs(t, err, &cannotErr)

	clock.Advance(4*time.Hour + time.Second) // 2 * lockUntil (2h) from creation
	refundTx, err := eng.Refund(esc.ID, txHash("refund"))
	require.NoError(t, err)
	assert.NotEmpty(t, refundTx)
}

func TestDisputeAllowsImmediateRefund(t *testing.T) {
	eng := NewEngine(sequentialID())
	esc, err := eng.Create(CreateParams{
		TaskID: "t7", Tier: Tier2, Amount: 1.0,
		ExecutionTimeout: time.Hour, VerificationTimeout: time.Hour,
	})
	require.NoError(t, err)
	require.NoError(t, eng.Dispute(esc.ID, "executor unresponsive"))

	_, err = eng.Refund(esc.ID, txHash("refund"))
	require.NoError(t, err)
}

func TestListByTaskReturnsAllEscrowsForTask(t *testing.T) {
	eng := NewEngine(sequentialID())
	_, err := eng.Create(CreateParams{TaskID: "shared", Tier: Tier1, Amount: 1.0})
	require.NoError(t, err)
	_, err = eng.Create(CreateParams{TaskID: "shared", Tier: Tier1, Amount: 2.0})
	require.NoError(t, err)

	list := eng.ListByTask("shared")
	assert.Len(t, list, 2)
}
