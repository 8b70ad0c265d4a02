// Package flagging implements per-peer sliding-window rate limiting and
// community flag auto-hide (spec C11). It is modeled on the teacher's
// session.Manager: an in-memory map guarded by a mutex, with an injectable
// clock so tests can advance time deterministically (spec §5/§9).
package flagging

import (
	"sync"
	"time"

	"github.com/rird-project/rird/pkg/record"
)

// Clock abstracts time.Now so rate-limit windows and flag cooldowns can be
// driven deterministically in tests.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock is the default, wall-clock-backed Clock.
var SystemClock Clock = systemClock{}

const windowDuration = time.Hour
const violationCooldown = 24 * time.Hour
const violationsBeforeAutoFlag = 5

// defaultLimits are the default per-hour message limits per record type
// (spec C11). Types not listed fall back to fallbackLimit.
var defaultLimits = map[record.Type]int{
	record.TypeTaskPosted:            10,
	record.TypeTaskBid:               50,
	record.TypeAgentOnline:           1,
	record.TypeReputationAttestation: 20,
	record.TypeTaskFlag:              10,
	record.TypeAgentOffline:          5,
	record.TypeTaskAssigned:          30,
	record.TypeTaskCompleted:         30,
	record.TypeTaskVerified:         30,
	record.TypeTaskSettled:          30,
	record.TypeTaskFailed:           30,
	record.TypeSpawnNew:             5,
	record.TypeSpawnDead:            5,
	record.TypeContentPublished:     20,
	record.TypeGovernanceWarn:       5,
	record.TypeGovernanceSuspend:    5,
	record.TypeGovernanceKill:       2,
}

const fallbackLimit = 20

// AutoFlagFunc is invoked exactly once per cooldown window the first time
// an agent crosses the auto-flag violation threshold.
type AutoFlagFunc func(agent string)

// RateLimiter enforces a sliding one-hour window per (agent, record type).
type RateLimiter struct {
	mu         sync.Mutex
	clock      Clock
	limits     map[record.Type]int
	windows    map[string][]time.Time // key: agent|type
	violations map[string][]time.Time // key: agent
	flagged    map[string]time.Time
	onAutoFlag AutoFlagFunc
}

// NewRateLimiter constructs a limiter using the default per-type limits and
// the system clock.
func NewRateLimiter(onAutoFlag AutoFlagFunc) *RateLimiter {
	return NewRateLimiterWithClock(SystemClock, onAutoFlag)
}

// NewRateLimiterWithClock is NewRateLimiter parameterized by Clock, for
// deterministic tests.
func NewRateLimiterWithClock(clock Clock, onAutoFlag AutoFlagFunc) *RateLimiter {
	limits := make(map[record.Type]int, len(defaultLimits))
	for k, v := range defaultLimits {
		limits[k] = v
	}
	return &RateLimiter{
		clock:      clock,
		limits:     limits,
		windows:    make(map[string][]time.Time),
		violations: make(map[string][]time.Time),
		flagged:    make(map[string]time.Time),
		onAutoFlag: onAutoFlag,
	}
}

func windowKey(agent string, typ record.Type) string {
	return agent + "|" + string(typ)
}

func (rl *RateLimiter) limitFor(typ record.Type) int {
	if l, ok := rl.limits[typ]; ok {
		return l
	}
	return fallbackLimit
}

// CheckMessage reports whether a message from agent of the given type is
// within its rate limit. On success the message is counted against the
// window. On denial, a violation is recorded and, after
// violationsBeforeAutoFlag violations within the cooldown, onAutoFlag fires
// exactly once per cooldown window.
func (rl *RateLimiter) CheckMessage(agent string, typ record.Type) (allowed bool, retryAfter time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.clock.Now()
	key := windowKey(agent, typ)
	window := pruneOlderThan(rl.windows[key], now, windowDuration)
	limit := rl.limitFor(typ)

	if len(window) >= limit {
		rl.recordViolation(agent, now)
		retryAfter = windowDuration - now.Sub(window[0])
		rl.windows[key] = window
		return false, retryAfter
	}

	window = append(window, now)
	rl.windows[key] = window
	return true, 0
}

func (rl *RateLimiter) recordViolation(agent string, now time.Time) {
	violations := pruneOlderThan(rl.violations[agent], now, violationCooldown)
	violations = append(violations, now)
	rl.violations[agent] = violations

	if len(violations) < violationsBeforeAutoFlag {
		return
	}
	if last, ok := rl.flagged[agent]; ok && now.Sub(last) < violationCooldown {
		return
	}
	rl.flagged[agent] = now
	if rl.onAutoFlag != nil {
		rl.onAutoFlag(agent)
	}
}

func pruneOlderThan(events []time.Time, now time.Time, window time.Duration) []time.Time {
	cutoff := now.Add(-window)
	idx := 0
	for idx < len(events) && events[idx].Before(cutoff) {
		idx++
	}
	if idx == 0 {
		return events
	}
	return append([]time.Time{}, events[idx:]...)
}
