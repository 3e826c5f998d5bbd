package replicator

import (
	"context"
	"testing"

	"github.com/algo-data-platform/laser/pkg/engine"
	"github.com/algo-data-platform/laser/pkg/replication"
	"github.com/algo-data-platform/laser/pkg/rpcx"
	"github.com/algo-data-platform/laser/pkg/status"
	"github.com/algo-data-platform/laser/pkg/types"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T, role types.Role) *replication.DB {
	t.Helper()
	e, err := engine.Open(t.TempDir(), engine.Options{NoSync: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = e.Close() })
	identity := types.PartitionIdentity{Database: "db0", Table: "t", PartitionID: 1, Role: role}
	return replication.New(identity, e, nil, replication.Config{})
}

func TestRegisterLookupUnregister(t *testing.T) {
	m := NewManager("node-1")
	db := openTestDB(t, types.RoleLeader)

	_, ok := m.Lookup(7)
	require.False(t, ok)

	m.Register(7, db)
	h, ok := m.Lookup(7)
	require.True(t, ok)

	got, err := h.Upgrade()
	require.NoError(t, err)
	require.Same(t, db, got)

	m.Unregister(7)
	_, err = h.Upgrade()
	require.Error(t, err)
	require.True(t, status.Is(err, status.SourceNotFound))

	_, ok = m.Lookup(7)
	require.False(t, ok)
}

func TestReRegisterTearsDownPreviousHandle(t *testing.T) {
	m := NewManager("node-1")
	dbA := openTestDB(t, types.RoleLeader)
	dbB := openTestDB(t, types.RoleLeader)

	m.Register(7, dbA)
	h, ok := m.Lookup(7)
	require.True(t, ok)

	m.Register(7, dbB)
	_, err := h.Upgrade()
	require.Error(t, err, "the handle obtained before re-registration must not resolve to the new db")

	h2, ok := m.Lookup(7)
	require.True(t, ok)
	got, err := h2.Upgrade()
	require.NoError(t, err)
	require.Same(t, dbB, got)
}

func TestManagerReplicateDispatch(t *testing.T) {
	m := NewManager("node-1")
	db := openTestDB(t, types.RoleLeader)
	m.Register(7, db)

	resp, err := m.Replicate(context.Background(), &rpcx.ReplicateRequest{DBHash: 7, Type: rpcx.ReplicateStatusOnly})
	require.NoError(t, err)
	require.EqualValues(t, 0, resp.LeaderMaxSeqNo)

	_, err = m.Replicate(context.Background(), &rpcx.ReplicateRequest{DBHash: 999, Type: rpcx.ReplicateStatusOnly})
	require.Error(t, err)
	require.True(t, status.Is(err, status.SourceNotFound))
}

func TestLeaderFollowerShards(t *testing.T) {
	m := NewManager("node-1")
	leaderDB := openTestDB(t, types.RoleLeader)
	followerDB := openTestDB(t, types.RoleFollower)
	t.Cleanup(func() { followerDB.SetRole(types.RoleLeader) })

	m.Register(1, leaderDB)
	m.Register(2, followerDB)

	leaders, followers := m.LeaderFollowerShards()
	require.ElementsMatch(t, []uint32{1}, leaders)
	require.ElementsMatch(t, []uint32{1}, followers)
}
