package router

import (
	"testing"

	"github.com/algo-data-platform/laser/pkg/engine"
	"github.com/algo-data-platform/laser/pkg/replication"
	"github.com/algo-data-platform/laser/pkg/replicator"
	"github.com/algo-data-platform/laser/pkg/status"
	"github.com/algo-data-platform/laser/pkg/types"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T, role types.Role, partitionID uint32) (*replication.DB, types.PartitionIdentity) {
	t.Helper()
	e, err := engine.Open(t.TempDir(), engine.Options{NoSync: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = e.Close() })
	identity := types.PartitionIdentity{Database: "db0", Table: "t", PartitionID: partitionID, Role: role}
	return replication.New(identity, e, nil, replication.Config{}), identity
}

func TestResolveUnknownTable(t *testing.T) {
	m := replicator.NewManager("node-1")
	r := New(m)
	_, _, err := r.Resolve("db0", "t", []string{"k"}, MixedRead)
	require.Error(t, err)
	require.True(t, status.Is(err, status.NotExistsPartition))
}

func TestResolveRoutesToAssignedPartition(t *testing.T) {
	m := replicator.NewManager("node-1")
	r := New(m)
	r.RegisterTable(types.TableSpec{Database: "db0", Table: "t", PartitionNumber: 4})

	key := []string{"user-42"}
	partitionID := PartitionID(key, 4)
	db, identity := openTestDB(t, types.RoleLeader, partitionID)
	m.Register(types.PartitionDBHash("db0", "t", partitionID), db)
	require.Equal(t, partitionID, identity.PartitionID)

	got, gotPartition, err := r.Resolve("db0", "t", key, LeaderRead)
	require.NoError(t, err)
	require.Same(t, db, got)
	require.Equal(t, partitionID, gotPartition)
}

func TestResolveRoleMismatch(t *testing.T) {
	m := replicator.NewManager("node-1")
	r := New(m)
	r.RegisterTable(types.TableSpec{Database: "db0", Table: "t", PartitionNumber: 4})

	key := []string{"user-42"}
	partitionID := PartitionID(key, 4)
	db, _ := openTestDB(t, types.RoleFollower, partitionID)
	m.Register(types.PartitionDBHash("db0", "t", partitionID), db)

	_, _, err := r.Resolve("db0", "t", key, LeaderRead)
	require.Error(t, err)
	require.True(t, status.Is(err, status.NotExistsPartition))

	_, _, err = r.Resolve("db0", "t", key, FollowerRead)
	require.NoError(t, err)
}

func TestResolveWriteOnFollowerIsWriteInFollower(t *testing.T) {
	m := replicator.NewManager("node-1")
	r := New(m)
	r.RegisterTable(types.TableSpec{Database: "db0", Table: "t", PartitionNumber: 4})

	key := []string{"user-42"}
	partitionID := PartitionID(key, 4)
	db, _ := openTestDB(t, types.RoleFollower, partitionID)
	m.Register(types.PartitionDBHash("db0", "t", partitionID), db)

	_, _, err := r.Resolve("db0", "t", key, WriteMode)
	require.Error(t, err)
	require.True(t, status.Is(err, status.WriteInFollower))
}

func TestResolveUnassignedPartition(t *testing.T) {
	m := replicator.NewManager("node-1")
	r := New(m)
	r.RegisterTable(types.TableSpec{Database: "db0", Table: "t", PartitionNumber: 4})

	_, _, err := r.Resolve("db0", "t", []string{"anything"}, MixedRead)
	require.Error(t, err)
	require.True(t, status.Is(err, status.NotExistsPartition))
}

func TestResolveTornDownPartitionIsSourceNotFound(t *testing.T) {
	m := replicator.NewManager("node-1")
	r := New(m)
	r.RegisterTable(types.TableSpec{Database: "db0", Table: "t", PartitionNumber: 4})

	key := []string{"user-42"}
	partitionID := PartitionID(key, 4)
	db, _ := openTestDB(t, types.RoleLeader, partitionID)
	dbHash := types.PartitionDBHash("db0", "t", partitionID)
	m.Register(dbHash, db)
	m.Unregister(dbHash)

	_, _, err := r.Resolve("db0", "t", key, MixedRead)
	require.Error(t, err)
	require.True(t, status.Is(err, status.SourceNotFound))
}
