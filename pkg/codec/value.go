package codec

import (
	"encoding/binary"
	"fmt"
)

// valueTag self-describes the payload that follows the TTL envelope, so a
// reader recovers the variant from the value bytes alone.
type valueTag byte

const (
	valueTagString  valueTag = 0x01
	valueTagCounter valueTag = 0x02
)

// RawValue is the decoded payload of a raw-string/counter physical value.
type RawValue struct {
	ExpireMs int64 // 0 means no TTL
	IsCounter bool
	String    string
	Counter   int64
}

// EncodeString builds the physical value for a raw string with optional TTL.
func EncodeString(s string, expireMs int64) []byte {
	buf := make([]byte, 0, 9+len(s))
	buf = appendExpire(buf, expireMs)
	buf = append(buf, byte(valueTagString))
	buf = append(buf, s...)
	return buf
}

// EncodeCounter builds the physical value for a 64-bit counter.
func EncodeCounter(v int64, expireMs int64) []byte {
	buf := make([]byte, 0, 17)
	buf = appendExpire(buf, expireMs)
	buf = append(buf, byte(valueTagCounter))
	var n [8]byte
	binary.BigEndian.PutUint64(n[:], uint64(v))
	return append(buf, n[:]...)
}

// DecodeRawValue parses a physical raw-string/counter value.
func DecodeRawValue(buf []byte) (RawValue, error) {
	if len(buf) < 9 {
		return RawValue{}, fmt.Errorf("codec: raw value too short: %d bytes", len(buf))
	}
	expireMs := int64(binary.BigEndian.Uint64(buf[:8]))
	tag := valueTag(buf[8])
	payload := buf[9:]
	switch tag {
	case valueTagString:
		return RawValue{ExpireMs: expireMs, String: string(payload)}, nil
	case valueTagCounter:
		if len(payload) != 8 {
			return RawValue{}, fmt.Errorf("codec: malformed counter value")
		}
		return RawValue{ExpireMs: expireMs, IsCounter: true, Counter: int64(binary.BigEndian.Uint64(payload))}, nil
	default:
		return RawValue{}, fmt.Errorf("codec: unknown value tag %d", tag)
	}
}

func appendExpire(buf []byte, expireMs int64) []byte {
	var n [8]byte
	binary.BigEndian.PutUint64(n[:], uint64(expireMs))
	return append(buf, n[:]...)
}

// IsExpired reports whether a stored expire_ms marks the value as expired at
// nowMs (spec.md §3: "expire_ms > 0 && expire_ms <= now_ms").
func IsExpired(expireMs, nowMs int64) bool {
	return expireMs > 0 && expireMs <= nowMs
}

// CollectionKind distinguishes which collection a metadata head describes,
// so ListMeta can carry the extra front/back indices a Hash/Set/ZSet head
// does not need.
type CollectionKind byte

const (
	CollectionHash CollectionKind = iota
	CollectionSet
	CollectionList
	CollectionZSet
)

// MetaValue is the decoded payload of a collection's metadata head.
type MetaValue struct {
	ExpireMs int64
	Size     uint64
	// Front/Back are only meaningful for CollectionList: the internal
	// index range currently occupied, enabling O(1) push/pop at either end.
	Front uint64
	Back  uint64 // exclusive: next index to use on PushBack
}

// EncodeMeta builds the physical value for a collection's metadata head.
func EncodeMeta(m MetaValue) []byte {
	buf := make([]byte, 0, 32)
	buf = appendExpire(buf, m.ExpireMs)
	var n [8]byte
	binary.BigEndian.PutUint64(n[:], m.Size)
	buf = append(buf, n[:]...)
	binary.BigEndian.PutUint64(n[:], m.Front)
	buf = append(buf, n[:]...)
	binary.BigEndian.PutUint64(n[:], m.Back)
	buf = append(buf, n[:]...)
	return buf
}

// DecodeMeta parses a collection metadata-head value.
func DecodeMeta(buf []byte) (MetaValue, error) {
	if len(buf) != 32 {
		return MetaValue{}, fmt.Errorf("codec: malformed meta value: %d bytes", len(buf))
	}
	return MetaValue{
		ExpireMs: int64(binary.BigEndian.Uint64(buf[0:8])),
		Size:     binary.BigEndian.Uint64(buf[8:16]),
		Front:    binary.BigEndian.Uint64(buf[16:24]),
		Back:     binary.BigEndian.Uint64(buf[24:32]),
	}, nil
}
