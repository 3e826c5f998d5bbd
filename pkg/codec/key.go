package codec

import (
	"encoding/binary"
	"fmt"

	"github.com/algo-data-platform/laser/pkg/types"
)

// Family tags disambiguate the physical layout of a row. They sit
// immediately after the row prefix (database, table, primary key, column
// key), so every key sharing one (db, table, pk, columnKey, family) tuple is
// either the collection's metadata head or one of its sub-entries.
type Family byte

const (
	FamilyRaw   Family = 0x01 // raw string / counter
	FamilyHash  Family = 0x02
	FamilySet   Family = 0x03
	FamilyList  Family = 0x04
	FamilyZSet  Family = 0x05
)

// subTag marks metadata head versus sub-entry within a collection family.
type subTag byte

const (
	subMeta    subTag = 0x00
	subEntry   subTag = 0x01
	subZMember subTag = 0x02 // sorted-set member -> current-score index
)

// putSegment appends a length-prefixed byte segment so distinct segment
// sequences never collide or prefix one another.
func putSegment(buf []byte, s string) []byte {
	var lenBuf [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(lenBuf[:], uint64(len(s)))
	buf = append(buf, lenBuf[:n]...)
	buf = append(buf, s...)
	return buf
}

// RowPrefix encodes (database, table, primary key tuple, column key tuple)
// as the common, unambiguous prefix shared by every physical key belonging
// to that logical row.
func RowPrefix(key types.LogicalKey) []byte {
	buf := make([]byte, 0, 64)
	buf = putSegment(buf, key.Database)
	buf = putSegment(buf, key.Table)

	var countBuf [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(countBuf[:], uint64(len(key.PrimaryKey)))
	buf = append(buf, countBuf[:n]...)
	for _, pk := range key.PrimaryKey {
		buf = putSegment(buf, pk)
	}

	n = binary.PutUvarint(countBuf[:], uint64(len(key.ColumnKey)))
	buf = append(buf, countBuf[:n]...)
	for _, ck := range key.ColumnKey {
		buf = putSegment(buf, ck)
	}
	return buf
}

// CollectionPrefix is prefix(C): the row prefix plus the family tag, shared
// by a collection's metadata head and every one of its live sub-entries.
func CollectionPrefix(key types.LogicalKey, family Family) []byte {
	buf := RowPrefix(key)
	return append(buf, byte(family))
}

// EncodeRawKey encodes a raw-string/counter key. Family tag is FamilyRaw;
// there is no head/entry split because the value itself is the leaf.
func EncodeRawKey(key types.LogicalKey) []byte {
	return append(RowPrefix(key), byte(FamilyRaw))
}

// EncodeMetaKey encodes a collection's metadata-head key.
func EncodeMetaKey(key types.LogicalKey, family Family) []byte {
	buf := CollectionPrefix(key, family)
	return append(buf, byte(subMeta))
}

// EncodeHashFieldKey encodes a hash field entry key.
func EncodeHashFieldKey(key types.LogicalKey, field string) []byte {
	buf := CollectionPrefix(key, FamilyHash)
	buf = append(buf, byte(subEntry))
	return putSegment(buf, field)
}

// DecodeHashField recovers the field name from a hash field entry key,
// given the collection's prefix length.
func DecodeHashField(entryKey []byte, prefixLen int) (string, error) {
	return decodeTrailingSegment(entryKey, prefixLen)
}

// EncodeSetMemberKey encodes a set member entry key.
func EncodeSetMemberKey(key types.LogicalKey, member string) []byte {
	buf := CollectionPrefix(key, FamilySet)
	buf = append(buf, byte(subEntry))
	return putSegment(buf, member)
}

func DecodeSetMember(entryKey []byte, prefixLen int) (string, error) {
	return decodeTrailingSegment(entryKey, prefixLen)
}

// EncodeListSlotKey encodes a list slot addressed by its internal (monotonic,
// never-reused) index. Fixed 8-byte big-endian encoding preserves numeric
// ordering under byte comparison, which is what lrange's range scan relies
// on.
func EncodeListSlotKey(key types.LogicalKey, index uint64) []byte {
	buf := CollectionPrefix(key, FamilyList)
	buf = append(buf, byte(subEntry))
	var idxBuf [8]byte
	binary.BigEndian.PutUint64(idxBuf[:], index)
	return append(buf, idxBuf[:]...)
}

func DecodeListIndex(entryKey []byte, prefixLen int) (uint64, error) {
	suffix := entryKey[prefixLen+1:]
	if len(suffix) != 8 {
		return 0, fmt.Errorf("codec: malformed list slot key, want 8 suffix bytes got %d", len(suffix))
	}
	return binary.BigEndian.Uint64(suffix), nil
}

// EncodeZSetEntryKey encodes a sorted-set entry ordered first by
// order-preserving score bytes, then by member, so a byte-range scan over
// [minScore, maxScore] enumerates members in score order.
func EncodeZSetEntryKey(key types.LogicalKey, score float64, member string) []byte {
	buf := CollectionPrefix(key, FamilyZSet)
	buf = append(buf, byte(subEntry))
	buf = append(buf, EncodeOrderedScore(score)...)
	return putSegment(buf, member)
}

// ZSetScorePrefix returns the collection prefix plus the sub-entry marker,
// used as the scan lower bound before appending an encoded score bound.
func ZSetScorePrefix(key types.LogicalKey) []byte {
	buf := CollectionPrefix(key, FamilyZSet)
	return append(buf, byte(subEntry))
}

// EncodeZSetMemberKey encodes the member->score index entry used to find
// and remove a member's previous score-ordered entry on re-score.
func EncodeZSetMemberKey(key types.LogicalKey, member string) []byte {
	buf := CollectionPrefix(key, FamilyZSet)
	buf = append(buf, byte(subZMember))
	return putSegment(buf, member)
}

func DecodeZSetEntry(entryKey []byte, prefixLen int) (score float64, member string, err error) {
	suffix := entryKey[prefixLen+1:]
	if len(suffix) < 8 {
		return 0, "", fmt.Errorf("codec: malformed zset entry key")
	}
	score = DecodeOrderedScore(suffix[:8])
	member, _, err = readSegment(suffix[8:])
	return score, member, err
}

func decodeTrailingSegment(entryKey []byte, prefixLen int) (string, error) {
	suffix := entryKey[prefixLen+1:]
	s, _, err := readSegment(suffix)
	return s, err
}

func readSegment(buf []byte) (string, int, error) {
	l, n := binary.Uvarint(buf)
	if n <= 0 {
		return "", 0, fmt.Errorf("codec: malformed length prefix")
	}
	end := n + int(l)
	if end > len(buf) {
		return "", 0, fmt.Errorf("codec: segment length exceeds buffer")
	}
	return string(buf[n:end]), end, nil
}
