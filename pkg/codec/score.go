package codec

import (
	"encoding/binary"
	"math"
)

// EncodeOrderedScore maps a float64 to 8 bytes whose big-endian byte-order
// matches IEEE-754 total order, so sorted-set range scans can use plain
// byte comparison.
func EncodeOrderedScore(f float64) []byte {
	bits := math.Float64bits(f)
	if bits&(1<<63) != 0 {
		// negative: flip every bit so more-negative sorts first
		bits = ^bits
	} else {
		// non-negative: flip only the sign bit so it sorts after negatives
		bits |= 1 << 63
	}
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], bits)
	return buf[:]
}

// DecodeOrderedScore reverses EncodeOrderedScore.
func DecodeOrderedScore(buf []byte) float64 {
	bits := binary.BigEndian.Uint64(buf)
	if bits&(1<<63) != 0 {
		bits &^= 1 << 63
	} else {
		bits = ^bits
	}
	return math.Float64frombits(bits)
}
