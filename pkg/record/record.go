package record

import (
	"crypto/ed25519"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/rird-project/rird/internal/blake3"
)

// MaxClockDrift bounds how far a record's signer-supplied timestamp may
// diverge from the local clock at ingest (spec C2/C4).
const MaxClockDrift = 3600 * time.Second

// idPrefix is prepended to the hex-encoded digest to make the hash
// algorithm explicit and forward-compatible in the id string itself.
const idPrefix = "blake3:"

// Record is the immutable, content-addressed activity record: the atomic
// unit of the protocol.
type Record struct {
	V     int                    `json:"v"`
	Agent string                 `json:"agent"`
	Type  Type                   `json:"type"`
	Data  map[string]interface{} `json:"data"`
	TS    int64                  `json:"ts"`
	Refs  []string               `json:"refs"`
	ID    string                 `json:"id"`
	Sig   []byte                 `json:"sig"`
}

// Signer abstracts the identity component (C1) a record is created with,
// decoupling the record model from any one key-pair implementation.
type Signer interface {
	Sign(message []byte) ([]byte, error)
}

// Create builds and signs a new activity record. ts is set to the current
// second; id is derived from the BLAKE3 digest of the canonical encoding of
// (v, agent, type, data, ts, refs); the signature covers the UTF-8 bytes of
// the id string, not the canonical content directly.
func Create(agentHexPub string, signer Signer, typ Type, data map[string]interface{}, refs []string) (*Record, error) {
	if !typ.IsKnown() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, typ)
	}
	if data == nil {
		data = map[string]interface{}{}
	}
	if refs == nil {
		refs = []string{}
	}

	r := &Record{
		V:     Version,
		Agent: agentHexPub,
		Type:  typ,
		Data:  data,
		TS:    time.Now().Unix(),
		Refs:  refs,
	}
	r.ID = deriveID(r.V, r.Agent, r.Type, r.Data, r.TS, r.Refs)

	sig, err := signer.Sign([]byte(r.ID))
	if err != nil {
		return nil, fmt.Errorf("record: sign id: %w", err)
	}
	r.Sig = sig
	return r, nil
}

// deriveID computes the "blake3:"+hex(first 16 bytes) id string from a
// record's content fields.
func deriveID(v int, agent string, typ Type, data map[string]interface{}, ts int64, refs []string) string {
	canon := canonicalize(v, agent, typ, data, ts, refs)
	digest := blake3.Sum16(canon)
	return idPrefix + hex.EncodeToString(digest[:])
}

// Verify checks that a record's id is a pure function of its content, that
// the signature validates against the embedded agent key, and that the
// timestamp is within the acceptable clock-drift window. All three checks
// must pass for Verify to return true; it never panics on malformed input.
func Verify(r *Record) bool {
	return VerifyAt(r, time.Now())
}

// VerifyAt is Verify parameterized on the comparison instant, so that
// clock-drift checks can be driven by an injectable clock in tests.
func VerifyAt(r *Record, now time.Time) bool {
	if r == nil {
		return false
	}
	if r.V != Version {
		return false
	}
	if r.Agent == "" || r.Type == "" || r.ID == "" || len(r.Sig) == 0 {
		return false
	}
	if !r.Type.IsKnown() {
		return false
	}

	pub, err := hex.DecodeString(r.Agent)
	if err != nil || len(pub) != ed25519.PublicKeySize {
		return false
	}

	expectedID := deriveID(r.V, r.Agent, r.Type, r.Data, r.TS, r.Refs)
	if expectedID != r.ID {
		return false
	}

	if !ed25519.Verify(ed25519.PublicKey(pub), []byte(r.ID), r.Sig) {
		return false
	}

	drift := now.Sub(time.Unix(r.TS, 0))
	if drift < 0 {
		drift = -drift
	}
	return drift <= MaxClockDrift
}

// RefersTo reports whether r's refs slice contains id.
func (r *Record) RefersTo(id string) bool {
	for _, ref := range r.Refs {
		if ref == id {
			return true
		}
	}
	return false
}

// TaskID returns the task this record's lineage belongs to. A task.posted
// record returns its own id, since it is itself the task identifier T;
// any other record returns its data.task_id field if set, else its first
// ref.
func (r *Record) TaskID() (string, bool) {
	if r.Type == TypeTaskPosted {
		return r.ID, true
	}
	if v, ok := r.Data["task_id"]; ok {
		if s, ok := v.(string); ok && s != "" {
			return s, true
		}
	}
	for _, ref := range r.Refs {
		return ref, true
	}
	return "", false
}
