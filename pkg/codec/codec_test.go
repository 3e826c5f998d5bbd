package codec

import (
	"testing"

	"github.com/algo-data-platform/laser/pkg/types"
	"github.com/stretchr/testify/require"
)

func sampleKey() types.LogicalKey {
	return types.LogicalKey{Database: "db", Table: "t", PrimaryKey: []string{"k"}}
}

func TestRowPrefixInjective(t *testing.T) {
	a := RowPrefix(types.LogicalKey{Database: "db", Table: "t", PrimaryKey: []string{"ab", "c"}})
	b := RowPrefix(types.LogicalKey{Database: "db", Table: "t", PrimaryKey: []string{"a", "bc"}})
	require.NotEqual(t, a, b)
}

func TestCollectionPrefixSharedByMetaAndEntries(t *testing.T) {
	key := sampleKey()
	prefix := CollectionPrefix(key, FamilyHash)
	meta := EncodeMetaKey(key, FamilyHash)
	field := EncodeHashFieldKey(key, "f1")

	require.True(t, len(meta) >= len(prefix))
	require.Equal(t, prefix, meta[:len(prefix)])
	require.Equal(t, prefix, field[:len(prefix)])
}

func TestCollectionPrefixUnambiguousAcrossFamilies(t *testing.T) {
	key := sampleKey()
	hashPrefix := CollectionPrefix(key, FamilyHash)
	setPrefix := CollectionPrefix(key, FamilySet)
	require.NotEqual(t, hashPrefix, setPrefix)
}

func TestHashFieldRoundTrip(t *testing.T) {
	key := sampleKey()
	prefixLen := len(CollectionPrefix(key, FamilyHash))
	entry := EncodeHashFieldKey(key, "field-1")
	field, err := DecodeHashField(entry, prefixLen)
	require.NoError(t, err)
	require.Equal(t, "field-1", field)
}

func TestListSlotOrdering(t *testing.T) {
	key := sampleKey()
	a := EncodeListSlotKey(key, 5)
	b := EncodeListSlotKey(key, 6)
	require.True(t, string(a) < string(b))

	prefixLen := len(CollectionPrefix(key, FamilyList))
	idx, err := DecodeListIndex(a, prefixLen)
	require.NoError(t, err)
	require.Equal(t, uint64(5), idx)
}

func TestZSetOrderingByScoreThenMember(t *testing.T) {
	key := sampleKey()
	low := EncodeZSetEntryKey(key, -3.5, "m1")
	high := EncodeZSetEntryKey(key, 10.2, "m1")
	require.True(t, string(low) < string(high))

	prefixLen := len(CollectionPrefix(key, FamilyZSet))
	score, member, err := DecodeZSetEntry(high, prefixLen)
	require.NoError(t, err)
	require.InDelta(t, 10.2, score, 1e-9)
	require.Equal(t, "m1", member)
}

func TestOrderedScoreRoundTrip(t *testing.T) {
	for _, f := range []float64{-100.5, -0.001, 0, 0.001, 42.42, 1e18} {
		enc := EncodeOrderedScore(f)
		require.InDelta(t, f, DecodeOrderedScore(enc), 1e-9)
	}
}

func TestScoreOrderingMonotonic(t *testing.T) {
	scores := []float64{-50, -1, 0, 1, 50}
	var prev []byte
	for _, s := range scores {
		enc := EncodeOrderedScore(s)
		if prev != nil {
			require.True(t, string(prev) < string(enc))
		}
		prev = enc
	}
}

func TestRawValueRoundTrip(t *testing.T) {
	v := EncodeString("hello", 0)
	decoded, err := DecodeRawValue(v)
	require.NoError(t, err)
	require.Equal(t, "hello", decoded.String)
	require.False(t, decoded.IsCounter)

	c := EncodeCounter(-2, 123)
	decoded, err = DecodeRawValue(c)
	require.NoError(t, err)
	require.True(t, decoded.IsCounter)
	require.Equal(t, int64(-2), decoded.Counter)
	require.Equal(t, int64(123), decoded.ExpireMs)
}

func TestExpiry(t *testing.T) {
	require.False(t, IsExpired(0, 1000))
	require.False(t, IsExpired(2000, 1000))
	require.True(t, IsExpired(1000, 1000))
	require.True(t, IsExpired(500, 1000))
}

func TestMetaValueRoundTrip(t *testing.T) {
	m := MetaValue{ExpireMs: 10, Size: 3, Front: 5, Back: 8}
	enc := EncodeMeta(m)
	dec, err := DecodeMeta(enc)
	require.NoError(t, err)
	require.Equal(t, m, dec)
}
