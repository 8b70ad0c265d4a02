package ingress

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rird-project/rird/pkg/identity"
	"github.com/rird-project/rird/pkg/record"
	"github.com/rird-project/rird/pkg/store"
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

type allowAllLimiter struct{}

func (allowAllLimiter) CheckMessage(agent string, typ record.Type) (bool, time.Duration) {
	return true, 0
}

type denyLimiter struct{}

func (denyLimiter) CheckMessage(agent string, typ record.Type) (bool, time.Duration) {
	return false, 5 * time.Second
}

type fakeBlocklist struct {
	blocked map[string]bool
}

func (f fakeBlocklist) IsBlocked(agent string) bool { return f.blocked[agent] }

func mustRecord(t *testing.T, typ record.Type) (*record.Record, *identity.KeyPair) {
	t.Helper()
	kp, err := identity.Generate()
	require.NoError(t, err)
	r, err := record.Create(kp.PublicHex(), kp, typ, map[string]interface{}{}, nil)
	require.NoError(t, err)
	return r, kp
}

func TestIngestAcceptsValidRecord(t *testing.T) {
	st := store.NewMemoryStore()
	p := New(st, allowAllLimiter{}, nil)
	r, _ := mustRecord(t, record.TypeAgentOnline)

	result := p.IngestContext(context.Background(), r)
	assert.Equal(t, OutcomeAccepted, result.Outcome)
	assert.Equal(t, int64(1), p.Counters().Accepted)
}

func TestIngestRejectsMalformedShape(t *testing.T) {
	st := store.NewMemoryStore()
	p := New(st, allowAllLimiter{}, nil)
	r, _ := mustRecord(t, record.TypeAgentOnline)
	r.Agent = ""

	result := p.IngestContext(context.Background(), r)
	assert.Equal(t, OutcomeRejectedShape, result.Outcome)
}

func TestIngestDropsDuplicate(t *testing.T) {
	st := store.NewMemoryStore()
	p := New(st, allowAllLimiter{}, nil)
	r, _ := mustRecord(t, record.TypeAgentOnline)

	first := p.IngestContext(context.Background(), r)
	require.Equal(t, OutcomeAccepted, first.Outcome)

	second := p.IngestContext(context.Background(), r)
	assert.Equal(t, OutcomeDuplicate, second.Outcome)
	assert.Equal(t, int64(1), p.Counters().Duplicates)
}

func TestIngestRejectsClockDrift(t *testing.T) {
	clock := newFakeClock()
	st := store.NewMemoryStore()
	p := NewWithClock(clock, st, allowAllLimiter{}, nil)
	r, _ := mustRecord(t, record.TypeAgentOnline)

	clock.Advance(2 * time.Hour)
	result := p.IngestContext(context.Background(), r)
	assert.Equal(t, OutcomeRejectedDrift, result.Outcome)
	assert.Equal(t, int64(1), p.Counters().TimestampDrift)
}

func TestIngestRejectsBadSignatureForPublicType(t *testing.T) {
	st := store.NewMemoryStore()
	p := New(st, allowAllLimiter{}, nil)
	r, _ := mustRecord(t, record.TypeAgentOnline)
	r.Data = map[string]interface{}{"tampered": true} // id/signature no longer match

	result := p.IngestContext(context.Background(), r)
	assert.Equal(t, OutcomeRejectedSignature, result.Outcome)
	assert.Equal(t, int64(1), p.Counters().InvalidSignature)
}

func TestIngestAllowsUnsignedMismatchForPrivateType(t *testing.T) {
	st := store.NewMemoryStore()
	p := New(st, allowAllLimiter{}, nil)
	kp, err := identity.Generate()
	require.NoError(t, err)
	r, err := record.Create(kp.PublicHex(), kp, record.TypeTaskBid, map[string]interface{}{"task_id": "t1"}, nil)
	require.NoError(t, err)
	r.Data["tampered"] = true // id/signature no longer match

	result := p.IngestContext(context.Background(), r)
	assert.Equal(t, OutcomeAccepted, result.Outcome)
}

func TestIngestRateLimited(t *testing.T) {
	st := store.NewMemoryStore()
	p := New(st, denyLimiter{}, nil)
	r, _ := mustRecord(t, record.TypeAgentOnline)

	result := p.IngestContext(context.Background(), r)
	assert.Equal(t, OutcomeRateLimited, result.Outcome)
	assert.Greater(t, result.RetryAfter, time.Duration(0))
}

func TestIngestBlockedAgent(t *testing.T) {
	st := store.NewMemoryStore()
	r, kp := mustRecord(t, record.TypeAgentOnline)
	p := New(st, allowAllLimiter{}, fakeBlocklist{blocked: map[string]bool{kp.PublicHex(): true}})

	result := p.IngestContext(context.Background(), r)
	assert.Equal(t, OutcomeBlocked, result.Outcome)
}

func TestIngestDispatchesToTypedAndWildcardHandlers(t *testing.T) {
	st := store.NewMemoryStore()
	p := New(st, allowAllLimiter{}, nil)

	var typedCalls, wildcardCalls int
	p.On(record.TypeAgentOnline, func(r *record.Record) { typedCalls++ })
	p.OnAny(func(r *record.Record) { wildcardCalls++ })

	r, _ := mustRecord(t, record.TypeAgentOnline)
	p.IngestContext(context.Background(), r)

	assert.Equal(t, 1, typedCalls)
	assert.Equal(t, 1, wildcardCalls)
}

func TestIngestRejectionCausesNoDispatch(t *testing.T) {
	st := store.NewMemoryStore()
	p := New(st, denyLimiter{}, nil)

	var calls int
	p.OnAny(func(r *record.Record) { calls++ })

	r, _ := mustRecord(t, record.TypeAgentOnline)
	p.IngestContext(context.Background(), r)

	assert.Equal(t, 0, calls)
}
