package replication

import (
	"context"
	"testing"
	"time"

	"github.com/algo-data-platform/laser/pkg/engine"
	"github.com/algo-data-platform/laser/pkg/rpcx"
	"github.com/algo-data-platform/laser/pkg/types"
	"github.com/stretchr/testify/require"
)

func openTestEngine(t *testing.T) *engine.Engine {
	t.Helper()
	e, err := engine.Open(t.TempDir(), engine.Options{NoSync: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = e.Close() })
	return e
}

func identity(role types.Role) types.PartitionIdentity {
	return types.PartitionIdentity{Database: "db0", Table: "t", PartitionID: 1, Role: role}
}

// directCaller wires a follower's pull loop straight to a leader DB's
// methods in-process, standing in for a real gRPC ReplicatorClient in tests.
type directCaller struct {
	leader *DB
}

func (d *directCaller) Replicate(ctx context.Context, req *rpcx.ReplicateRequest) (*rpcx.ReplicateResponse, error) {
	return d.leader.Replicate(ctx, req)
}

func (d *directCaller) ReplicateWdt(ctx context.Context, req *rpcx.ReplicateWdtRequest) (*rpcx.ReplicateWdtResponse, error) {
	return d.leader.ReplicateWdt(ctx, req)
}

// noopCaller answers every pull with "nothing new", for tests that only
// exercise role transitions and don't care about actual log tailing.
type noopCaller struct{}

func (noopCaller) Replicate(ctx context.Context, req *rpcx.ReplicateRequest) (*rpcx.ReplicateResponse, error) {
	return &rpcx.ReplicateResponse{}, nil
}

func (noopCaller) ReplicateWdt(ctx context.Context, req *rpcx.ReplicateWdtRequest) (*rpcx.ReplicateWdtResponse, error) {
	return &rpcx.ReplicateWdtResponse{}, nil
}

func fastConfig() Config {
	return Config{
		FollowerNodeHash: 42,
		PullIdleInterval: 5 * time.Millisecond,
		PullJitter:       1 * time.Millisecond,
		ParkTimeout:      20 * time.Millisecond,
	}
}

func TestRoleTransitionStartsAndStopsPullLoop(t *testing.T) {
	e := openTestEngine(t)
	leader := New(identity(types.RoleLeader), e, noopCaller{}, fastConfig())
	require.Equal(t, types.RoleLeader, leader.Role())
	require.Nil(t, leader.pullCancel)

	leader.SetRole(types.RoleFollower)
	require.NotNil(t, leader.pullCancel)

	leader.SetRole(types.RoleLeader)
	require.Nil(t, leader.pullCancel)
}

// Role itself carries no write-enforcement logic in this package: spec.md
// §4.3's "external write calls fail with WriteInFollower" is enforced by
// the Partition Router (pkg/router), whose Resolve checks Role() under
// WriteMode before the Service Dispatcher routes a write to Engine(). This
// test only pins the role the Router would observe.
func TestFollowerRoleObservable(t *testing.T) {
	e := openTestEngine(t)
	follower := New(identity(types.RoleFollower), e, noopCaller{}, fastConfig())
	t.Cleanup(func() { follower.SetRole(types.RoleLeader) })
	require.Equal(t, types.RoleFollower, follower.Role())
}

func TestFollowerCatchesUpViaLogTailing(t *testing.T) {
	leaderEngine := openTestEngine(t)
	leader := New(identity(types.RoleLeader), leaderEngine, nil, fastConfig())

	k := types.LogicalKey{Database: "db0", Table: "t", PrimaryKey: []string{"k"}}
	for i := 0; i < 50; i++ {
		require.NoError(t, leaderEngine.Set(k, "v"))
	}
	require.EqualValues(t, 50, leaderEngine.SeqNo())

	followerEngine := openTestEngine(t)
	follower := New(identity(types.RoleFollower), followerEngine, &directCaller{leader: leader}, fastConfig())
	t.Cleanup(func() { follower.SetRole(types.RoleLeader) })

	require.Eventually(t, func() bool {
		return followerEngine.SeqNo() == 50
	}, 2*time.Second, 5*time.Millisecond)

	v, err := followerEngine.Get(k)
	require.NoError(t, err)
	require.Equal(t, "v", v)
}

func TestParkedPullerWokenByWrite(t *testing.T) {
	e := openTestEngine(t)
	leader := New(identity(types.RoleLeader), e, nil, fastConfig())

	done := make(chan uint64, 1)
	go func() {
		done <- leader.waitForSeqNo(context.Background(), 1, time.Second)
	}()

	time.Sleep(20 * time.Millisecond)
	k := types.LogicalKey{Database: "db0", Table: "t", PrimaryKey: []string{"k"}}
	require.NoError(t, e.Set(k, "v"))

	select {
	case got := <-done:
		require.EqualValues(t, 1, got)
	case <-time.After(time.Second):
		t.Fatal("waitForSeqNo was not woken by write")
	}
}

func TestParkedPullerWokenByTimeout(t *testing.T) {
	e := openTestEngine(t)
	leader := New(identity(types.RoleLeader), e, nil, fastConfig())

	start := time.Now()
	got := leader.waitForSeqNo(context.Background(), 1, 30*time.Millisecond)
	require.Less(t, time.Since(start), 500*time.Millisecond)
	require.Zero(t, got)
}

func TestIteratorCacheHitAndInvalidate(t *testing.T) {
	c := newIteratorCache(50 * time.Millisecond)
	require.False(t, c.hit(7, 10))

	c.touch(7, 10)
	require.True(t, c.hit(7, 10))
	require.False(t, c.hit(7, 11))

	time.Sleep(80 * time.Millisecond)
	require.False(t, c.hit(7, 10))
}

func TestIteratorCacheClearOnRoleChange(t *testing.T) {
	c := newIteratorCache(time.Second)
	c.touch(7, 10)
	require.True(t, c.hit(7, 10))
	c.clear()
	require.False(t, c.hit(7, 10))
}
