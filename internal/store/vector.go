package store

import (
	"encoding/binary"
	"math"
)

// Embeddings are stored as little-endian float32 BLOBs, the layout the vec0
// extension expects, so one encoding serves both search paths.

// EncodeVector serializes an embedding. Nil in, nil out.
func EncodeVector(vec []float32) []byte {
	if len(vec) == 0 {
		return nil
	}
	buf := make([]byte, len(vec)*4)
	for i, v := range vec {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

// DecodeVector deserializes an embedding. Truncated trailing bytes are
// dropped rather than erroring; a corrupt row then loses the similarity
// ranking, not the whole search.
func DecodeVector(buf []byte) []float32 {
	n := len(buf) / 4
	if n == 0 {
		return nil
	}
	vec := make([]float32, n)
	for i := 0; i < n; i++ {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	return vec
}
