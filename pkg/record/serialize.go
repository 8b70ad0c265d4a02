package record

import "encoding/json"

// Serialize encodes a record as canonical JSON bytes suitable for gossip
// transport (spec §6: "messages are the serialized canonical JSON bytes of
// a record").
func Serialize(r *Record) ([]byte, error) {
	return json.Marshal(r)
}

// Deserialize decodes gossip-transport bytes back into a Record. It does
// not verify the record; callers must run it through Verify before trusting
// its contents.
func Deserialize(b []byte) (*Record, error) {
	var r Record
	if err := json.Unmarshal(b, &r); err != nil {
		return nil, err
	}
	if r.Data == nil {
		r.Data = map[string]interface{}{}
	}
	if r.Refs == nil {
		r.Refs = []string{}
	}
	return &r, nil
}

// ToPayloadMap converts any typed Payload into the generic
// map[string]interface{} form the canonicalizer and Record.Data operate
// on, round-tripping through JSON so struct tags determine field names.
func ToPayloadMap(p Payload) (map[string]interface{}, error) {
	raw, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	var m map[string]interface{}
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	return m, nil
}
