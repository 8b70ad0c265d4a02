package governance

import (
	"encoding/hex"
	"fmt"
	"strconv"

	"github.com/rird-project/rird/pkg/identity"
)

// ActionString builds the canonical action string that keyholders sign
// over (spec C12: "action: canonical_json_string"). Field order is fixed
// so two nodes constructing the same action always produce identical
// bytes regardless of map iteration order.
func ActionString(action, target string, durationSeconds int64) string {
	return fmt.Sprintf(
		`{"action":%s,"target":%s,"duration_seconds":%d}`,
		strconv.Quote(action), strconv.Quote(target), durationSeconds,
	)
}

// MultisigPayload is the {action, signatures} envelope carried by a
// governance record (spec C12).
type MultisigPayload struct {
	Action     string            // canonical action string, signed by each keyholder
	Signatures map[string]string // pubkey hex -> hex-encoded signature
}

// Verify decodes and checks each signature in p against the registry's
// active keyholder set. It returns the count of distinct active
// keyholders whose signature validates over the UTF-8 bytes of p.Action,
// and true iff that count meets the registry's threshold. An invalid or
// inactive-keyholder signature is simply not counted — it never
// invalidates an otherwise-sufficient set of valid signatures.
func (r *Registry) Verify(p MultisigPayload) (validSigners int, ok bool) {
	message := []byte(p.Action)
	for pubkeyHex, sigHex := range p.Signatures {
		if !r.IsActiveKeyholder(pubkeyHex) {
			continue
		}
		sig, err := hex.DecodeString(sigHex)
		if err != nil {
			continue
		}
		if identity.Verify(sig, message, pubkeyHex) {
			validSigners++
		}
	}
	return validSigners, validSigners >= r.threshold
}
