package governance

import (
	"errors"
	"sync"
	"time"

	"github.com/rird-project/rird/pkg/identity"
)

// killswitchMaxAge bounds how stale a kill record may be before it is
// rejected, guarding against replay of an old, no-longer-intended signal.
const killswitchMaxAge = 24 * time.Hour

// ErrKillswitchBadSignature is returned when a kill record's signature
// does not verify against the configured root public key.
var ErrKillswitchBadSignature = errors.New("governance: killswitch signature invalid")

// ErrKillswitchTooOld is returned when a kill record's age exceeds
// killswitchMaxAge.
var ErrKillswitchTooOld = errors.New("governance: killswitch record too old")

// KillRecord is the structured emergency-shutdown signal, distinct from a
// governance.kill multisig action: a single root key authorizes it.
type KillRecord struct {
	Type   string    `json:"type"` // always "kill"
	Reason string    `json:"reason"`
	TS     time.Time `json:"ts"`
	Sig    []byte    `json:"-"`
}

func (k KillRecord) canonicalMessage() []byte {
	return []byte(k.Type + "|" + k.Reason + "|" + k.TS.UTC().Format(time.RFC3339Nano))
}

// ShutdownHandler is invoked exactly once when a valid kill record is
// received.
type ShutdownHandler func(reason string)

// Killswitch verifies kill records against a single configured root
// public key and invokes its shutdown handler idempotently.
type Killswitch struct {
	mu         sync.Mutex
	clock      Clock
	rootPubHex string
	handler    ShutdownHandler
	fired      bool
}

// NewKillswitch constructs a Killswitch bound to rootPubHex, using the
// system clock.
func NewKillswitch(rootPubHex string, handler ShutdownHandler) *Killswitch {
	return NewKillswitchWithClock(SystemClock, rootPubHex, handler)
}

// NewKillswitchWithClock is NewKillswitch parameterized by Clock.
func NewKillswitchWithClock(clock Clock, rootPubHex string, handler ShutdownHandler) *Killswitch {
	return &Killswitch{clock: clock, rootPubHex: rootPubHex, handler: handler}
}

// Receive verifies k's signature and age, and on first valid receipt
// invokes the shutdown handler. A subsequent valid kill record (e.g. a
// retransmitted duplicate) is dropped silently, matching the idempotent
// "exactly once" requirement.
func (ks *Killswitch) Receive(k KillRecord) error {
	if !identity.Verify(k.Sig, k.canonicalMessage(), ks.rootPubHex) {
		return ErrKillswitchBadSignature
	}
	if ks.clock.Now().Sub(k.TS) >= killswitchMaxAge {
		return ErrKillswitchTooOld
	}

	ks.mu.Lock()
	defer ks.mu.Unlock()
	if ks.fired {
		return nil
	}
	ks.fired = true
	if ks.handler != nil {
		ks.handler(k.Reason)
	}
	return nil
}

// Fired reports whether the killswitch has already invoked its handler.
func (ks *Killswitch) Fired() bool {
	ks.mu.Lock()
	defer ks.mu.Unlock()
	return ks.fired
}
