// Package blake3 implements the BLAKE3 cryptographic hash function.
//
// No dependency in the project's reference corpus exposes BLAKE3, so this
// is a direct, from-spec implementation rather than a third-party import.
// It supports the single, unkeyed hashing mode used by the record
// canonicalizer (github.com/rird-project/rird/pkg/record) to derive
// content-addressed record ids; keyed hashing and key derivation modes are
// not needed by the protocol and are not implemented.
package blake3

import "encoding/binary"

const (
	flagChunkStart = 1 << 0
	flagChunkEnd   = 1 << 1
	flagParent     = 1 << 2
	flagRoot       = 1 << 3

	blockLen = 64
	chunkLen = 1024

	// Size is the number of bytes in a standard BLAKE3 digest.
	Size = 32
)

var iv = [8]uint32{
	0x6A09E667, 0xBB67AE85, 0x3C6EF372, 0xA54FF53A,
	0x510E527F, 0x9B05688C, 0x1F83D9AB, 0x5BE0CD19,
}

var msgPermutation = [16]int{2, 6, 3, 10, 7, 0, 4, 13, 1, 11, 12, 5, 9, 14, 15, 8}

func rotr32(x uint32, n uint) uint32 {
	return (x >> n) | (x << (32 - n))
}

func gMix(state *[16]uint32, a, b, c, d int, mx, my uint32) {
	state[a] = state[a] + state[b] + mx
	state[d] = rotr32(state[d]^state[a], 16)
	state[c] = state[c] + state[d]
	state[b] = rotr32(state[b]^state[c], 12)
	state[a] = state[a] + state[b] + my
	state[d] = rotr32(state[d]^state[a], 8)
	state[c] = state[c] + state[d]
	state[b] = rotr32(state[b]^state[c], 7)
}

func round(state *[16]uint32, m *[16]uint32) {
	gMix(state, 0, 4, 8, 12, m[0], m[1])
	gMix(state, 1, 5, 9, 13, m[2], m[3])
	gMix(state, 2, 6, 10, 14, m[4], m[5])
	gMix(state, 3, 7, 11, 15, m[6], m[7])
	gMix(state, 0, 5, 10, 15, m[8], m[9])
	gMix(state, 1, 6, 11, 12, m[10], m[11])
	gMix(state, 2, 7, 8, 13, m[12], m[13])
	gMix(state, 3, 4, 9, 14, m[14], m[15])
}

func permute(m *[16]uint32) {
	var out [16]uint32
	for i, p := range msgPermutation {
		out[i] = m[p]
	}
	*m = out
}

// compress runs the BLAKE3 compression function and returns the full
// 16-word output state; callers take the first 8 words as the new
// chaining value, or all 32 bytes as root output.
func compress(cv *[8]uint32, block *[16]uint32, counter uint64, blockLength uint32, flags uint32) [16]uint32 {
	state := [16]uint32{
		cv[0], cv[1], cv[2], cv[3], cv[4], cv[5], cv[6], cv[7],
		iv[0], iv[1], iv[2], iv[3],
		uint32(counter), uint32(counter >> 32),
		blockLength, flags,
	}
	m := *block
	for r := 0; r < 7; r++ {
		round(&state, &m)
		if r < 6 {
			permute(&m)
		}
	}
	for i := 0; i < 8; i++ {
		state[i] ^= state[i+8]
		state[i+8] ^= cv[i]
	}
	return state
}

func wordsFromBlock(block []byte) [16]uint32 {
	var padded [64]byte
	copy(padded[:], block)
	var m [16]uint32
	for i := 0; i < 16; i++ {
		m[i] = binary.LittleEndian.Uint32(padded[i*4 : i*4+4])
	}
	return m
}

type chunkState struct {
	cv               [8]uint32
	chunkCounter     uint64
	block            [blockLen]byte
	blockLen         int
	blocksCompressed int
}

func newChunkState(key [8]uint32, chunkCounter uint64) *chunkState {
	return &chunkState{cv: key, chunkCounter: chunkCounter}
}

func (cs *chunkState) startFlag() uint32 {
	if cs.blocksCompressed == 0 {
		return flagChunkStart
	}
	return 0
}

func (cs *chunkState) len() int {
	return cs.blocksCompressed*blockLen + cs.blockLen
}

func (cs *chunkState) update(input []byte) {
	for len(input) > 0 {
		if cs.blockLen == blockLen {
			m := wordsFromBlock(cs.block[:])
			out := compress(&cs.cv, &m, cs.chunkCounter, blockLen, cs.startFlag())
			copy(cs.cv[:], out[:8])
			cs.blocksCompressed++
			cs.blockLen = 0
		}
		take := blockLen - cs.blockLen
		if take > len(input) {
			take = len(input)
		}
		copy(cs.block[cs.blockLen:], input[:take])
		cs.blockLen += take
		input = input[take:]
	}
}

// output returns the pending (uncompressed) output description for this
// chunk's final block, deferring the ROOT flag decision to the caller.
func (cs *chunkState) output() nodeOutput {
	return nodeOutput{
		cv:       cs.cv,
		block:    wordsFromBlock(cs.block[:cs.blockLen]),
		counter:  cs.chunkCounter,
		blockLen: uint32(cs.blockLen),
		flags:    cs.startFlag() | flagChunkEnd,
	}
}

// nodeOutput is a deferred compression: chaining value, block, and flags
// needed to compute either a non-root chaining value or a root digest.
type nodeOutput struct {
	cv       [8]uint32
	block    [16]uint32
	counter  uint64
	blockLen uint32
	flags    uint32
}

func (o nodeOutput) chainingValue() [8]uint32 {
	out := compress(&o.cv, &o.block, o.counter, o.blockLen, o.flags)
	var cv [8]uint32
	copy(cv[:], out[:8])
	return cv
}

func (o nodeOutput) rootBytes() [Size]byte {
	out := compress(&o.cv, &o.block, o.counter, o.blockLen, o.flags|flagRoot)
	var digest [Size]byte
	for i := 0; i < 8; i++ {
		binary.LittleEndian.PutUint32(digest[i*4:i*4+4], out[i])
	}
	return digest
}

func parentOutput(left, right, key [8]uint32) nodeOutput {
	var block [16]uint32
	copy(block[0:8], left[:])
	copy(block[8:16], right[:])
	return nodeOutput{cv: key, block: block, counter: 0, blockLen: blockLen, flags: flagParent}
}

// Hasher computes a BLAKE3 digest incrementally.
type Hasher struct {
	key        [8]uint32
	chunk      *chunkState
	cvStack    [54][8]uint32
	cvStackLen int
}

// New returns a Hasher ready for unkeyed hashing.
func New() *Hasher {
	h := &Hasher{key: iv}
	h.chunk = newChunkState(h.key, 0)
	return h
}

// Write appends data to the running hash. It never returns an error.
func (h *Hasher) Write(p []byte) (int, error) {
	n := len(p)
	for len(p) > 0 {
		if h.chunk.len() == chunkLen {
			cv := h.chunk.output().chainingValue()
			totalChunks := h.chunk.chunkCounter + 1
			h.addChunkChainingValue(cv, totalChunks)
			h.chunk = newChunkState(h.key, totalChunks)
		}
		take := chunkLen - h.chunk.len()
		if take > len(p) {
			take = len(p)
		}
		h.chunk.update(p[:take])
		p = p[take:]
	}
	return n, nil
}

func (h *Hasher) addChunkChainingValue(cv [8]uint32, totalChunks uint64) {
	for totalChunks&1 == 0 {
		cv = parentOutput(h.cvStack[h.cvStackLen-1], cv, h.key).chainingValue()
		h.cvStackLen--
		totalChunks >>= 1
	}
	h.cvStack[h.cvStackLen] = cv
	h.cvStackLen++
}

// Sum32 returns the full 32-byte BLAKE3 digest of everything written so far.
// It does not reset the hasher's state.
func (h *Hasher) Sum32() [Size]byte {
	output := h.chunk.output()
	for i := h.cvStackLen - 1; i >= 0; i-- {
		output = parentOutput(h.cvStack[i], output.chainingValue(), h.key)
	}
	return output.rootBytes()
}

// Sum computes the one-shot 32-byte BLAKE3 digest of data.
func Sum(data []byte) [Size]byte {
	h := New()
	_, _ = h.Write(data)
	return h.Sum32()
}

// Sum16 computes the first 16 bytes of the BLAKE3 digest, the truncation
// used for activity record ids.
func Sum16(data []byte) [16]byte {
	full := Sum(data)
	var out [16]byte
	copy(out[:], full[:16])
	return out
}
