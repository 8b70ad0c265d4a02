package blake3

import (
	"bytes"
	"encoding/hex"
	"testing"
)

func TestSumEmptyKnownVector(t *testing.T) {
	got := Sum(nil)
	want, err := hex.DecodeString("af1349b9f5f9a1a6a0404dea36dcc9499bcb25c9adc112b7cc9a93cae41f3262")
	if err != nil {
		t.Fatalf("bad test vector: %v", err)
	}
	if !bytes.Equal(got[:], want) {
		t.Fatalf("Sum(\"\") = %x, want %x", got, want)
	}
}

func TestSumDeterministic(t *testing.T) {
	data := []byte("the quick brown fox jumps over the lazy dog")
	a := Sum(data)
	b := Sum(data)
	if a != b {
		t.Fatalf("Sum is not deterministic: %x != %x", a, b)
	}
}

func TestSumDiffers(t *testing.T) {
	a := Sum([]byte("record-a"))
	b := Sum([]byte("record-b"))
	if a == b {
		t.Fatalf("distinct inputs hashed to the same digest")
	}
}

func TestWriteIncrementalMatchesOneShot(t *testing.T) {
	data := bytes.Repeat([]byte("rird-activity-record-"), 200) // spans multiple 1024B chunks
	oneShot := Sum(data)

	h := New()
	for i := 0; i < len(data); i += 37 {
		end := i + 37
		if end > len(data) {
			end = len(data)
		}
		_, _ = h.Write(data[i:end])
	}
	incremental := h.Sum32()

	if oneShot != incremental {
		t.Fatalf("incremental write diverged from one-shot: %x != %x", incremental, oneShot)
	}
}

func TestSum16IsPrefixOfSum(t *testing.T) {
	data := []byte("task.posted")
	full := Sum(data)
	short := Sum16(data)
	if !bytes.Equal(full[:16], short[:]) {
		t.Fatalf("Sum16 is not a prefix of Sum")
	}
}
