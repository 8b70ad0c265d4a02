package record

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// canonicalize produces the deterministic byte representation of a
// record's content fields used to derive its id. Mapping keys are sorted
// lexicographically at every nesting level; arrays preserve order; the
// encoding is a minified, whitespace-free form so that independent
// implementations hash identical bytes for identical content regardless of
// map insertion order.
func canonicalize(v int, agent string, typ Type, data map[string]interface{}, ts int64, refs []string) []byte {
	var b strings.Builder
	b.WriteByte('{')
	b.WriteString(`"agent":`)
	writeCanonicalString(&b, agent)
	b.WriteByte(',')
	b.WriteString(`"data":`)
	writeCanonicalValue(&b, data)
	b.WriteByte(',')
	b.WriteString(`"refs":`)
	writeCanonicalRefs(&b, refs)
	b.WriteByte(',')
	b.WriteString(`"ts":`)
	b.WriteString(strconv.FormatInt(ts, 10))
	b.WriteByte(',')
	b.WriteString(`"type":`)
	writeCanonicalString(&b, string(typ))
	b.WriteByte(',')
	b.WriteString(`"v":`)
	b.WriteString(strconv.Itoa(v))
	b.WriteByte('}')
	return []byte(b.String())
}

func writeCanonicalRefs(b *strings.Builder, refs []string) {
	b.WriteByte('[')
	for i, r := range refs {
		if i > 0 {
			b.WriteByte(',')
		}
		writeCanonicalString(b, r)
	}
	b.WriteByte(']')
}

// writeCanonicalValue encodes an arbitrary JSON-like value (as produced by
// encoding/json unmarshaling into interface{}) in canonical form.
func writeCanonicalValue(b *strings.Builder, v interface{}) {
	switch val := v.(type) {
	case nil:
		b.WriteString("null")
	case bool:
		if val {
			b.WriteString("true")
		} else {
			b.WriteString("false")
		}
	case string:
		writeCanonicalString(b, val)
	case float64:
		writeCanonicalNumber(b, val)
	case int:
		b.WriteString(strconv.Itoa(val))
	case int64:
		b.WriteString(strconv.FormatInt(val, 10))
	case map[string]interface{}:
		writeCanonicalObject(b, val)
	case []interface{}:
		b.WriteByte('[')
		for i, item := range val {
			if i > 0 {
				b.WriteByte(',')
			}
			writeCanonicalValue(b, item)
		}
		b.WriteByte(']')
	case []string:
		b.WriteByte('[')
		for i, item := range val {
			if i > 0 {
				b.WriteByte(',')
			}
			writeCanonicalString(b, item)
		}
		b.WriteByte(']')
	default:
		// Should not happen for data decoded from JSON; fall back to a
		// stable textual representation rather than panicking.
		fmt.Fprintf(b, "%q", fmt.Sprintf("%v", val))
	}
}

func writeCanonicalObject(b *strings.Builder, m map[string]interface{}) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	b.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			b.WriteByte(',')
		}
		writeCanonicalString(b, k)
		b.WriteByte(':')
		writeCanonicalValue(b, m[k])
	}
	b.WriteByte('}')
}

// writeCanonicalNumber encodes a float64 using the shortest round-tripping
// representation, preferring an integer form when the value carries no
// fractional part. This keeps the encoding byte-identical across
// implementations that decode JSON numbers into a 64-bit float.
func writeCanonicalNumber(b *strings.Builder, f float64) {
	if f == float64(int64(f)) {
		b.WriteString(strconv.FormatInt(int64(f), 10))
		return
	}
	b.WriteString(strconv.FormatFloat(f, 'g', -1, 64))
}

func writeCanonicalString(b *strings.Builder, s string) {
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		default:
			if r < 0x20 {
				fmt.Fprintf(b, `\u%04x`, r)
			} else {
				b.WriteRune(r)
			}
		}
	}
	b.WriteByte('"')
}
