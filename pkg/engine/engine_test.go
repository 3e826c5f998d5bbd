package engine

import (
	"testing"
	"time"

	"github.com/algo-data-platform/laser/pkg/types"
	"github.com/stretchr/testify/require"
)

func openTestEngine(t *testing.T) *Engine {
	t.Helper()
	e, err := Open(t.TempDir(), Options{NoSync: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = e.Close() })
	return e
}

func lk(table, pk string) types.LogicalKey {
	return types.LogicalKey{Database: "db0", Table: table, PrimaryKey: []string{pk}}
}

func TestSetGetDelkey(t *testing.T) {
	e := openTestEngine(t)
	key := lk("t", "a")

	_, err := e.Get(key)
	require.Error(t, err)

	require.NoError(t, e.Set(key, "hello"))
	v, err := e.Get(key)
	require.NoError(t, err)
	require.Equal(t, "hello", v)

	require.NoError(t, e.Delkey(key))
	_, err = e.Get(key)
	require.Error(t, err)
}

func TestSetxNotExists(t *testing.T) {
	e := openTestEngine(t)
	key := lk("t", "a")

	require.NoError(t, e.Setx(key, "v1", types.SetOptions{NotExists: true}))
	err := e.Setx(key, "v2", types.SetOptions{NotExists: true})
	require.Error(t, err)

	v, err := e.Get(key)
	require.NoError(t, err)
	require.Equal(t, "v1", v)
}

func TestTTLExpiry(t *testing.T) {
	e := openTestEngine(t)
	key := lk("t", "a")

	require.NoError(t, e.Setx(key, "v1", types.SetOptions{TTL: 10 * time.Millisecond}))
	exists, err := e.Exist(key)
	require.NoError(t, err)
	require.True(t, exists)

	time.Sleep(30 * time.Millisecond)
	exists, err = e.Exist(key)
	require.NoError(t, err)
	require.False(t, exists)
}

func TestAppend(t *testing.T) {
	e := openTestEngine(t)
	key := lk("t", "a")

	n, err := e.Append(key, "foo")
	require.NoError(t, err)
	require.Equal(t, 3, n)

	n, err = e.Append(key, "bar")
	require.NoError(t, err)
	require.Equal(t, 6, n)

	v, err := e.Get(key)
	require.NoError(t, err)
	require.Equal(t, "foobar", v)
}

func TestIncrDecr(t *testing.T) {
	e := openTestEngine(t)
	key := lk("t", "counter")

	v, err := e.IncrBy(key, 5)
	require.NoError(t, err)
	require.EqualValues(t, 5, v)

	v, err = e.IncrBy(key, 3)
	require.NoError(t, err)
	require.EqualValues(t, 8, v)

	v, err = e.DecrBy(key, 2)
	require.NoError(t, err)
	require.EqualValues(t, 6, v)
}

func TestHashOps(t *testing.T) {
	e := openTestEngine(t)
	key := lk("t", "h")

	require.NoError(t, e.HSet(key, "f1", "v1"))
	require.NoError(t, e.HSet(key, "f2", "v2"))

	n, err := e.HLen(key)
	require.NoError(t, err)
	require.EqualValues(t, 2, n)

	v, err := e.HGet(key, "f1")
	require.NoError(t, err)
	require.Equal(t, "v1", v)

	all, err := e.HGetAll(key)
	require.NoError(t, err)
	require.Equal(t, map[string]string{"f1": "v1", "f2": "v2"}, all)

	require.NoError(t, e.HDel(key, "f1"))
	n, err = e.HLen(key)
	require.NoError(t, err)
	require.EqualValues(t, 1, n)

	exists, err := e.HExists(key, "f1")
	require.NoError(t, err)
	require.False(t, exists)
}

func TestSetOps(t *testing.T) {
	e := openTestEngine(t)
	key := lk("t", "s")

	added, err := e.SAdd(key, "m1")
	require.NoError(t, err)
	require.True(t, added)

	added, err = e.SAdd(key, "m1")
	require.NoError(t, err)
	require.False(t, added)

	has, err := e.HasMember(key, "m1")
	require.NoError(t, err)
	require.True(t, has)

	members, err := e.Members(key)
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"m1"}, members)

	removed, err := e.SDel(key, "m1")
	require.NoError(t, err)
	require.True(t, removed)

	has, err = e.HasMember(key, "m1")
	require.NoError(t, err)
	require.False(t, has)
}

func TestListOps(t *testing.T) {
	e := openTestEngine(t)
	key := lk("t", "l")

	n, err := e.PushBack(key, "b1")
	require.NoError(t, err)
	require.EqualValues(t, 1, n)

	n, err = e.PushBack(key, "b2")
	require.NoError(t, err)
	require.EqualValues(t, 2, n)

	n, err = e.PushFront(key, "f1")
	require.NoError(t, err)
	require.EqualValues(t, 3, n)

	all, err := e.LRange(key, 0, -1)
	require.NoError(t, err)
	require.Equal(t, []string{"f1", "b1", "b2"}, all)

	v, err := e.LIndex(key, 1)
	require.NoError(t, err)
	require.Equal(t, "b1", v)

	v, err = e.PopFront(key)
	require.NoError(t, err)
	require.Equal(t, "f1", v)

	v, err = e.PopBack(key)
	require.NoError(t, err)
	require.Equal(t, "b2", v)

	n, err = e.LLen(key)
	require.NoError(t, err)
	require.EqualValues(t, 1, n)
}

func TestZSetOps(t *testing.T) {
	e := openTestEngine(t)
	key := lk("t", "z")

	added, err := e.ZAdd(key, "alice", 3.5)
	require.NoError(t, err)
	require.True(t, added)

	added, err = e.ZAdd(key, "bob", 1.0)
	require.NoError(t, err)
	require.True(t, added)

	added, err = e.ZAdd(key, "alice", 2.0)
	require.NoError(t, err)
	require.False(t, added)

	card, err := e.ZCard(key)
	require.NoError(t, err)
	require.EqualValues(t, 2, card)

	members, err := e.ZRangeByScore(key, 0, 10)
	require.NoError(t, err)
	require.Len(t, members, 2)
	require.Equal(t, "bob", members[0].Member)
	require.Equal(t, "alice", members[1].Member)

	score, err := e.ZScore(key, "alice")
	require.NoError(t, err)
	require.Equal(t, 2.0, score)

	removed, err := e.ZRemRangeByScore(key, 0, 2.0)
	require.NoError(t, err)
	require.Equal(t, 2, removed)

	card, err = e.ZCard(key)
	require.NoError(t, err)
	require.EqualValues(t, 0, card)
}

func TestMSetMGet(t *testing.T) {
	e := openTestEngine(t)
	k1, k2 := lk("t", "a"), lk("t", "b")

	errs := e.MSet(map[types.LogicalKey]string{k1: "v1", k2: "v2"})
	for _, err := range errs {
		require.NoError(t, err)
	}

	results := e.MGet([]types.LogicalKey{k1, k2, lk("t", "missing")})
	require.NoError(t, results[k1].Err)
	require.Equal(t, "v1", results[k1].Value)
	require.NoError(t, results[k2].Err)
	require.Equal(t, "v2", results[k2].Value)
	require.Error(t, results[lk("t", "missing")].Err)
}

func TestReplicationLogReadback(t *testing.T) {
	e := openTestEngine(t)
	key := lk("t", "a")
	require.NoError(t, e.Set(key, "v1"))
	require.NoError(t, e.Set(key, "v2"))

	entries, err := e.ReadLog(1, 10, 0)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.EqualValues(t, 1, entries[0].SeqNo)
	require.EqualValues(t, 2, entries[1].SeqNo)
}

func TestApplyReplicatedRejectsNonContiguous(t *testing.T) {
	e := openTestEngine(t)
	b := NewBatch()
	b.Put(keyForRaw(lk("t", "a")), []byte("x"))
	err := e.ApplyReplicated(b, 5, time.Now().UnixMilli())
	require.Error(t, err)
}

func TestCheckpointRefCounting(t *testing.T) {
	e := openTestEngine(t)
	require.NoError(t, e.Set(lk("t", "a"), "v1"))

	ck1, err := e.Checkpoint(1)
	require.NoError(t, err)
	ck2, err := e.Checkpoint(1)
	require.NoError(t, err)

	require.NoError(t, ck1.Release())
	require.NoError(t, ck2.Release())
}

func TestIteratorVisitsEveryKey(t *testing.T) {
	e := openTestEngine(t)
	require.NoError(t, e.Set(lk("t", "a"), "1"))
	require.NoError(t, e.Set(lk("t", "b"), "2"))

	var count int
	err := e.Iterator(func(c *Cursor) error {
		for k, _ := c.First(); k != nil; k, _ = c.Next() {
			count++
		}
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, 2, count)
}
