package dispatcher

import (
	"testing"

	"github.com/algo-data-platform/laser/pkg/engine"
	"github.com/algo-data-platform/laser/pkg/replication"
	"github.com/algo-data-platform/laser/pkg/replicator"
	"github.com/algo-data-platform/laser/pkg/router"
	"github.com/algo-data-platform/laser/pkg/status"
	"github.com/algo-data-platform/laser/pkg/types"
	"github.com/stretchr/testify/require"
)

func newTestDispatcher(t *testing.T, partitionNumber uint32) (*Dispatcher, *TrafficRegistry, *router.Router, *replicator.Manager) {
	t.Helper()
	m := replicator.NewManager("node-1")
	r := router.New(m)
	r.RegisterTable(types.TableSpec{Database: "db0", Table: "t", PartitionNumber: partitionNumber})
	registry := NewTrafficRegistry()
	return New(r, registry), registry, r, m
}

func registerLocalPartitions(t *testing.T, m *replicator.Manager, partitionNumber uint32) {
	t.Helper()
	for p := uint32(0); p < partitionNumber; p++ {
		e, err := engine.Open(t.TempDir(), engine.Options{NoSync: true})
		require.NoError(t, err)
		t.Cleanup(func() { _ = e.Close() })
		identity := types.PartitionIdentity{Database: "db0", Table: "t", PartitionID: p, Role: types.RoleLeader}
		db := replication.New(identity, e, nil, replication.Config{})
		m.Register(types.PartitionDBHash("db0", "t", p), db)
	}
}

func alwaysAdmit(a *Admitter) { a.rand100 = func() int { return 1 } }
func neverAdmit(a *Admitter)  { a.rand100 = func() int { return 100 } }

func TestGetDeniedWithoutRule(t *testing.T) {
	d, _, _, _ := newTestDispatcher(t, 1)
	_, err := d.Get("db0", "t", []string{"k"}, router.MixedRead)
	require.Error(t, err)
	require.True(t, status.Is(err, status.OperationDenied))
}

func TestGetDeniedAll(t *testing.T) {
	d, registry, _, m := newTestDispatcher(t, 1)
	registerLocalPartitions(t, m, 1)
	registry.SetRule("db0", "t", TrafficRestrictionConfig{DenyAll: true})

	_, err := d.Get("db0", "t", []string{"k"}, router.MixedRead)
	require.Error(t, err)
	require.True(t, status.Is(err, status.OperationDenied))
}

func TestSetAndGetRoundTrip(t *testing.T) {
	d, registry, _, m := newTestDispatcher(t, 1)
	registerLocalPartitions(t, m, 1)
	registry.SetRule("db0", "t", TrafficRestrictionConfig{
		SingleOperationLimits: map[string]int{"get": 100, "set": 100},
	})
	alwaysAdmit(d.admit)

	require.NoError(t, d.Set("db0", "t", []string{"k"}, "v1"))
	v, err := d.Get("db0", "t", []string{"k"}, router.MixedRead)
	require.NoError(t, err)
	require.Equal(t, "v1", v)
}

func TestTrafficRestrictionRejectsSample(t *testing.T) {
	d, registry, _, m := newTestDispatcher(t, 1)
	registerLocalPartitions(t, m, 1)
	registry.SetRule("db0", "t", TrafficRestrictionConfig{
		SingleOperationLimits: map[string]int{"get": 50},
	})
	neverAdmit(d.admit)

	_, err := d.Get("db0", "t", []string{"k"}, router.MixedRead)
	require.Error(t, err)
	require.True(t, status.Is(err, status.TrafficRestriction))
}

func TestWriteOnFollowerIsRejected(t *testing.T) {
	m := replicator.NewManager("node-1")
	r := router.New(m)
	r.RegisterTable(types.TableSpec{Database: "db0", Table: "t", PartitionNumber: 1})
	registry := NewTrafficRegistry()
	registry.SetRule("db0", "t", TrafficRestrictionConfig{
		SingleOperationLimits: map[string]int{"set": 100},
	})
	d := New(r, registry)
	alwaysAdmit(d.admit)

	e, err := engine.Open(t.TempDir(), engine.Options{NoSync: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = e.Close() })
	identity := types.PartitionIdentity{Database: "db0", Table: "t", PartitionID: 0, Role: types.RoleFollower}
	db := replication.New(identity, e, nil, replication.Config{})
	m.Register(types.PartitionDBHash("db0", "t", 0), db)

	err = d.Set("db0", "t", []string{"k"}, "v1")
	require.Error(t, err)
	require.True(t, status.Is(err, status.WriteInFollower), "write-role mismatch surfaces as WriteInFollower")
}

func TestMSetMGetOutcomeVectorAligned(t *testing.T) {
	d, registry, _, m := newTestDispatcher(t, 4)
	registerLocalPartitions(t, m, 4)
	registry.SetRule("db0", "t", TrafficRestrictionConfig{
		MultipleOperationLimits: map[string]OperationLimit{
			"mset": {Kind: LimitQPS, Percent: 100},
			"mget": {Kind: LimitQPS, Percent: 100},
		},
	})
	alwaysAdmit(d.admit)

	pairs := []KVPair{
		{PrimaryKey: []string{"a"}, Value: "1"},
		{PrimaryKey: []string{"b"}, Value: "2"},
		{PrimaryKey: []string{"c"}, Value: "3"},
	}
	setResults := d.MSet("db0", "t", pairs)
	require.Len(t, setResults, 3)
	for _, r := range setResults {
		require.NoError(t, r.Err)
	}

	getResults := d.MGet("db0", "t", [][]string{{"a"}, {"b"}, {"c"}}, router.MixedRead)
	require.Len(t, getResults, 3)
	require.Equal(t, "1", getResults[0].Value)
	require.Equal(t, "2", getResults[1].Value)
	require.Equal(t, "3", getResults[2].Value)
}

func TestMGetKPSProducesMixedOutcomes(t *testing.T) {
	d, registry, _, m := newTestDispatcher(t, 1)
	registerLocalPartitions(t, m, 1)
	registry.SetRule("db0", "t", TrafficRestrictionConfig{
		MultipleOperationLimits: map[string]OperationLimit{
			"mget": {Kind: LimitKPS, Percent: 50},
		},
	})

	calls := 0
	d.admit.rand100 = func() int {
		calls++
		if calls%2 == 0 {
			return 100
		}
		return 1
	}

	results := d.MGet("db0", "t", [][]string{{"a"}, {"b"}, {"c"}, {"d"}}, router.MixedRead)
	require.Len(t, results, 4)
	require.True(t, status.Is(results[0].Err, status.NotFound))
	require.True(t, status.Is(results[1].Err, status.TrafficRestriction))
	require.True(t, status.Is(results[2].Err, status.NotFound))
	require.True(t, status.Is(results[3].Err, status.TrafficRestriction))
}
