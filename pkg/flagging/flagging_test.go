package flagging

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rird-project/rird/pkg/record"
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

func TestRateLimiterAllowsUpToLimit(t *testing.T) {
	clock := newFakeClock()
	rl := NewRateLimiterWithClock(clock, nil)

	for i := 0; i < 10; i++ {
		allowed, _ := rl.CheckMessage("agent-x", record.TypeTaskPosted)
		assert.True(t, allowed, "message %d should be allowed", i+1)
	}

	allowed, retryAfter := rl.CheckMessage("agent-x", record.TypeTaskPosted)
	assert.False(t, allowed)
	assert.Greater(t, retryAfter, time.Duration(0))
}

func TestRateLimiterWindowSlides(t *testing.T) {
	clock := newFakeClock()
	rl := NewRateLimiterWithClock(clock, nil)

	for i := 0; i < 1; i++ {
		allowed, _ := rl.CheckMessage("agent-y", record.TypeAgentOnline)
		assert.True(t, allowed)
	}
	allowed, _ := rl.CheckMessage("agent-y", record.TypeAgentOnline)
	assert.False(t, allowed)

	clock.Advance(time.Hour + time.Second)
	allowed, _ = rl.CheckMessage("agent-y", record.TypeAgentOnline)
	assert.True(t, allowed)
}

func TestRateLimiterAutoFlagsAfterFiveViolationWindows(t *testing.T) {
	clock := newFakeClock()
	var flaggedCount int
	var flaggedAgent string
	rl := NewRateLimiterWithClock(clock, func(agent string) {
		flaggedCount++
		flaggedAgent = agent
	})

	for window := 0; window < 5; window++ {
		// exhaust the limit, then trigger exactly one violation
		for i := 0; i < 1; i++ {
			rl.CheckMessage("agent-z", record.TypeAgentOnline)
		}
		allowed, _ := rl.CheckMessage("agent-z", record.TypeAgentOnline)
		require.False(t, allowed)
		clock.Advance(time.Hour + time.Second)
	}

	assert.Equal(t, 1, flaggedCount)
	assert.Equal(t, "agent-z", flaggedAgent)
}

func TestFlaggerDedupPerTargetFlaggerPair(t *testing.T) {
	f := NewFlagger(func(string) float64 { return 2.0 })
	assert.True(t, f.Submit("target-1", "flagger-a", "abuse"))
	assert.False(t, f.Submit("target-1", "flagger-a", "abuse again"))
}

func TestFlaggerAutoHidesAtThreeReputableFlags(t *testing.T) {
	f := NewFlagger(func(string) float64 { return 2.0 })
	f.Submit("target-1", "flagger-a", "abuse")
	assert.False(t, f.IsHidden("target-1"))
	f.Submit("target-1", "flagger-b", "abuse")
	assert.False(t, f.IsHidden("target-1"))
	f.Submit("target-1", "flagger-c", "abuse")
	assert.True(t, f.IsHidden("target-1"))
}

func TestFlaggerNonReputableFlagsDoNotAutoHide(t *testing.T) {
	f := NewFlagger(func(string) float64 { return 0.5 })
	f.Submit("target-1", "flagger-a", "abuse")
	f.Submit("target-1", "flagger-b", "abuse")
	f.Submit("target-1", "flagger-c", "abuse")
	assert.False(t, f.IsHidden("target-1"))
}

func TestFlaggerBlockedAfterThreeWarnings(t *testing.T) {
	clock := newFakeClock()
	f := NewFlaggerWithClock(clock, func(string) float64 { return 2.0 })

	for warning := 0; warning < 3; warning++ {
		for i := 0; i < 11; i++ {
			f.Submit("target-"+string(rune('a'+warning))+string(rune('0'+i)), "spammer", "r")
		}
	}

	assert.True(t, f.IsFlaggerBlocked("spammer"))
}

func TestStatsForSummarizes(t *testing.T) {
	f := NewFlagger(func(string) float64 { return 2.0 })
	f.Submit("target-1", "flagger-a", "scam")
	f.Submit("target-1", "flagger-b", "scam")
	stats := f.StatsFor("target-1")
	assert.Equal(t, 2, stats.TotalFlags)
	assert.Equal(t, 2, stats.ReputableFlags)
	assert.Equal(t, 2, stats.UniqueFlaggers)
	assert.Equal(t, 2, stats.Reasons["scam"])
}
