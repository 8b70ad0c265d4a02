package flagging

import (
	"sync"
	"time"
)

const reputableFlagThreshold = 1.5
const reputableFlagsToAutoHide = 3
const flaggerFlagsPerHourLimit = 10
const warningsBeforeBlocked = 3

// ReputationLookup resolves an agent's current reputation score, used to
// decide whether a flag counts as "reputable" (spec C11).
type ReputationLookup func(agent string) float64

// Flag is a single community flag against a target.
type Flag struct {
	Target    string
	Flagger   string
	Reason    string
	Reputable bool
	At        time.Time
}

// Stats summarizes flags against one target.
type Stats struct {
	TotalFlags     int
	ReputableFlags int
	UniqueFlaggers int
	Hidden         bool
	Reasons        map[string]int
}

// Flagger tracks flags and derives per-target hide decisions and
// per-flagger abuse warnings.
type Flagger struct {
	mu          sync.Mutex
	clock       Clock
	reputation  ReputationLookup
	flagsByTarget map[string][]Flag
	dedup       map[string]bool // key: target|flagger
	hidden      map[string]bool
	flaggerLog  map[string][]time.Time // key: flagger, for the >10/hour warning rule
	warnings    map[string]int
	blocked     map[string]bool
}

// NewFlagger constructs a Flagger backed by the system clock.
func NewFlagger(reputation ReputationLookup) *Flagger {
	return NewFlaggerWithClock(SystemClock, reputation)
}

// NewFlaggerWithClock is NewFlagger parameterized by Clock.
func NewFlaggerWithClock(clock Clock, reputation ReputationLookup) *Flagger {
	return &Flagger{
		clock:         clock,
		reputation:    reputation,
		flagsByTarget: make(map[string][]Flag),
		dedup:         make(map[string]bool),
		hidden:        make(map[string]bool),
		flaggerLog:    make(map[string][]time.Time),
		warnings:      make(map[string]int),
		blocked:       make(map[string]bool),
	}
}

// Submit records a flag from flagger against target. It is deduplicated
// per (target, flagger) pair; a blocked flagger's submission is rejected.
func (f *Flagger) Submit(target, flagger, reason string) (accepted bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.blocked[flagger] {
		return false
	}

	now := f.clock.Now()

	log := pruneOlderThan(f.flaggerLog[flagger], now, windowDuration)
	log = append(log, now)
	f.flaggerLog[flagger] = log
	if len(log) > flaggerFlagsPerHourLimit {
		f.warnings[flagger]++
		if f.warnings[flagger] >= warningsBeforeBlocked {
			f.blocked[flagger] = true
		}
	}

	key := target + "|" + flagger
	if f.dedup[key] {
		return false
	}
	f.dedup[key] = true

	reputable := false
	if f.reputation != nil {
		reputable = f.reputation(flagger) >= reputableFlagThreshold
	}

	flag := Flag{Target: target, Flagger: flagger, Reason: reason, Reputable: reputable, At: now}
	f.flagsByTarget[target] = append(f.flagsByTarget[target], flag)

	if reputable && f.countReputable(target) >= reputableFlagsToAutoHide {
		f.hidden[target] = true
	}

	return true
}

func (f *Flagger) countReputable(target string) int {
	count := 0
	for _, flag := range f.flagsByTarget[target] {
		if flag.Reputable {
			count++
		}
	}
	return count
}

// IsHidden reports whether target has been auto-hidden.
func (f *Flagger) IsHidden(target string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.hidden[target]
}

// IsFlaggerBlocked reports whether flagger has been blocked for abuse.
func (f *Flagger) IsFlaggerBlocked(flagger string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.blocked[flagger]
}

// StatsFor summarizes all flags against target.
func (f *Flagger) StatsFor(target string) Stats {
	f.mu.Lock()
	defer f.mu.Unlock()

	flags := f.flagsByTarget[target]
	stats := Stats{Reasons: make(map[string]int)}
	uniqueFlaggers := make(map[string]bool)

	for _, flag := range flags {
		stats.TotalFlags++
		if flag.Reputable {
			stats.ReputableFlags++
		}
		uniqueFlaggers[flag.Flagger] = true
		stats.Reasons[flag.Reason]++
	}
	stats.UniqueFlaggers = len(uniqueFlaggers)
	stats.Hidden = f.hidden[target]
	return stats
}
