package governance

import (
	"errors"
	"time"
)

// ErrMultisigThresholdNotMet is returned when a governance action's
// signature set has fewer than the registry's required N valid signers.
var ErrMultisigThresholdNotMet = errors.New("governance: multisig threshold not met")

// ErrAlreadyKilled is returned when an action targets an agent that has
// already been permanently killed; suspend cannot be applied to it, and a
// second kill is simply idempotent.
var ErrAlreadyKilled = errors.New("governance: agent already killed")

// Action is a verified governance decision to apply locally.
type Action struct {
	Kind            string // "warn", "suspend", or "kill"
	Target          string
	DurationSeconds int64
}

// Apply verifies a's multisig payload and, if the threshold is met,
// applies the action to the registry's local state. warn is logged by the
// caller (this package has no logger dependency) and otherwise has no
// state effect. suspend(duration=0) is indefinite; it is rejected outright
// if the target is already killed. kill is permanent and clears any
// suspension.
func (r *Registry) Apply(action Action, payload MultisigPayload) error {
	if _, ok := r.Verify(payload); !ok {
		return ErrMultisigThresholdNotMet
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	st := r.agentStatus(action.Target)

	switch action.Kind {
	case "kill":
		st.killed = true
		st.suspendedAt = time.Time{}
		st.suspendFor = 0
		return nil
	case "suspend":
		if st.killed {
			return ErrAlreadyKilled
		}
		st.suspendedAt = r.clock.Now()
		st.suspendFor = time.Duration(action.DurationSeconds) * time.Second
		return nil
	default: // "warn"
		return nil
	}
}
