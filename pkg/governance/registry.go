// Package governance implements the multi-signature keyholder registry,
// warn/suspend/kill actions, and the separate single-key killswitch
// (spec C12). Like pkg/flagging, it is modeled on the teacher's
// manager-with-mutex-guarded-maps style, with an injectable Clock so
// suspension expiry can be tested deterministically.
package governance

import (
	"errors"
	"sync"
	"time"
)

// ErrInvalidThreshold is returned when a genesis config's threshold N
// does not satisfy 1 <= N <= len(keyholders).
var ErrInvalidThreshold = errors.New("governance: threshold must satisfy 1 <= N <= len(keyholders)")

// Clock abstracts time.Now so suspension expiry is deterministic in tests.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock is the default, wall-clock-backed Clock.
var SystemClock Clock = systemClock{}

// Keyholder is one member of the multisig governance set.
type Keyholder struct {
	PubKeyHex string `yaml:"pubkey" json:"pubkey"`
	Label     string `yaml:"label" json:"label"`
	Active    bool   `yaml:"active" json:"active"`
}

// Genesis is the immutable construction-time configuration for a Registry.
type Genesis struct {
	Threshold  int         `yaml:"threshold" json:"threshold"`
	Keyholders []Keyholder `yaml:"keyholders" json:"keyholders"`
	CreatedAt  time.Time   `yaml:"createdAt" json:"createdAt"`
}

type agentStatus struct {
	suspendedAt time.Time
	suspendFor  time.Duration // 0 == indefinite
	killed      bool
}

// Registry holds the keyholder set, the running suspend/kill state derived
// from applied governance actions, and enforces the N-of-M multisig rule.
// It is constructed once from a Genesis and is otherwise immutable in its
// membership; only per-agent status mutates at runtime.
type Registry struct {
	mu         sync.RWMutex
	clock      Clock
	threshold  int
	keyholders map[string]Keyholder // pubkey -> Keyholder
	status     map[string]*agentStatus
}

// NewRegistry constructs a Registry from genesis, using the system clock.
// It returns ErrInvalidThreshold if genesis.Threshold does not satisfy
// 1 <= N <= len(keyholders).
func NewRegistry(genesis Genesis) (*Registry, error) {
	return NewRegistryWithClock(SystemClock, genesis)
}

// NewRegistryWithClock is NewRegistry parameterized by Clock.
func NewRegistryWithClock(clock Clock, genesis Genesis) (*Registry, error) {
	m := len(genesis.Keyholders)
	if genesis.Threshold < 1 || genesis.Threshold > m {
		return nil, ErrInvalidThreshold
	}
	keyholders := make(map[string]Keyholder, m)
	for _, kh := range genesis.Keyholders {
		kh.Active = true
		keyholders[kh.PubKeyHex] = kh
	}
	return &Registry{
		clock:      clock,
		threshold:  genesis.Threshold,
		keyholders: keyholders,
		status:     make(map[string]*agentStatus),
	}, nil
}

// Threshold returns N, the number of valid signatures required.
func (r *Registry) Threshold() int {
	return r.threshold
}

// IsActiveKeyholder reports whether pubkeyHex is a currently active
// keyholder.
func (r *Registry) IsActiveKeyholder(pubkeyHex string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	kh, ok := r.keyholders[pubkeyHex]
	return ok && kh.Active
}

// Deactivate marks a keyholder inactive; its signatures no longer count
// toward the multisig threshold. It is a no-op if pubkeyHex is unknown.
func (r *Registry) Deactivate(pubkeyHex string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if kh, ok := r.keyholders[pubkeyHex]; ok {
		kh.Active = false
		r.keyholders[pubkeyHex] = kh
	}
}

func (r *Registry) agentStatus(agent string) *agentStatus {
	st, ok := r.status[agent]
	if !ok {
		st = &agentStatus{}
		r.status[agent] = st
	}
	return st
}

// IsBlocked reports whether agent is currently suspended or killed, per
// spec C4 step 6 ("drop if is_blocked"). A time-bounded suspension that
// has expired does not block.
func (r *Registry) IsBlocked(agent string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	st, ok := r.status[agent]
	if !ok {
		return false
	}
	if st.killed {
		return true
	}
	return r.isSuspendedLocked(st)
}

// IsSuspended reports whether agent is currently under an active,
// unexpired suspension (distinct from killed).
func (r *Registry) IsSuspended(agent string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	st, ok := r.status[agent]
	if !ok {
		return false
	}
	return r.isSuspendedLocked(st)
}

func (r *Registry) isSuspendedLocked(st *agentStatus) bool {
	if st.suspendedAt.IsZero() {
		return false
	}
	if st.suspendFor == 0 {
		return true // indefinite
	}
	return r.clock.Now().Before(st.suspendedAt.Add(st.suspendFor))
}

// IsKilled reports whether agent has been permanently killed.
func (r *Registry) IsKilled(agent string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	st, ok := r.status[agent]
	return ok && st.killed
}
