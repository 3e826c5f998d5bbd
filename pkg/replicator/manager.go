package replicator

import (
	"context"
	"sync"

	"github.com/algo-data-platform/laser/pkg/metrics"
	"github.com/algo-data-platform/laser/pkg/replication"
	"github.com/algo-data-platform/laser/pkg/rpcx"
	"github.com/algo-data-platform/laser/pkg/status"
	"github.com/algo-data-platform/laser/pkg/types"
)

// entry holds one registered Replication DB plus the torn-down flag a weak
// Handle checks on upgrade.
type entry struct {
	mu   sync.Mutex
	torn bool
	db   *replication.DB
}

// Handle is a weak reference to a registered Replication DB. Callers must
// Upgrade before using it; Upgrade fails with SourceNotFound once the
// partition has been unregistered, even if the Handle itself is still held.
type Handle struct {
	e *entry
}

// Upgrade returns the live DB, or SourceNotFound if it has been torn down.
func (h *Handle) Upgrade() (*replication.DB, error) {
	h.e.mu.Lock()
	defer h.e.mu.Unlock()
	if h.e.torn {
		return nil, status.New(status.SourceNotFound, "replication db no longer registered")
	}
	return h.e.db, nil
}

// Manager is the process-wide Replicator Manager (spec.md §4.4): the
// db_hash -> Replication DB registry and the RPC endpoint serving every
// registered DB's Replicate/ReplicateWdt calls.
//
// Concurrency: add/remove take the exclusive guard; lookups take the
// shared guard (spec.md §5 "RCU-style: readers take a shared guard;
// mutators take exclusive").
type Manager struct {
	mu  sync.RWMutex
	dbs map[int64]*entry

	nodeID string
}

// NewManager creates an empty registry for the given node.
func NewManager(nodeID string) *Manager {
	return &Manager{dbs: make(map[int64]*entry), nodeID: nodeID}
}

// Register adds db under dbHash, replacing (and tearing down) any previous
// registration for the same hash.
func (m *Manager) Register(dbHash int64, db *replication.DB) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if old, ok := m.dbs[dbHash]; ok {
		old.mu.Lock()
		old.torn = true
		old.mu.Unlock()
	}
	m.dbs[dbHash] = &entry{db: db}
}

// Unregister tears down dbHash's entry: every outstanding Handle's next
// Upgrade call will fail with SourceNotFound, even if this call races with
// a concurrent lookup (spec.md §4.4 "failure to upgrade implies the
// partition has been torn down").
func (m *Manager) Unregister(dbHash int64) {
	m.mu.Lock()
	e, ok := m.dbs[dbHash]
	delete(m.dbs, dbHash)
	m.mu.Unlock()
	if ok {
		e.mu.Lock()
		e.torn = true
		e.mu.Unlock()
	}
}

// Lookup returns a weak Handle for dbHash, or false if never registered.
func (m *Manager) Lookup(dbHash int64) (*Handle, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.dbs[dbHash]
	if !ok {
		return nil, false
	}
	return &Handle{e: e}, true
}

// Replicate implements rpcx.ReplicatorServer by dispatching to the
// registered DB for req.DBHash.
func (m *Manager) Replicate(ctx context.Context, req *rpcx.ReplicateRequest) (*rpcx.ReplicateResponse, error) {
	h, ok := m.Lookup(req.DBHash)
	if !ok {
		return nil, status.New(status.SourceNotFound, "unknown db_hash")
	}
	db, err := h.Upgrade()
	if err != nil {
		return nil, err
	}
	return db.Replicate(ctx, req)
}

// ReplicateWdt implements rpcx.ReplicatorServer by dispatching to the
// registered DB for req.DBHash.
func (m *Manager) ReplicateWdt(ctx context.Context, req *rpcx.ReplicateWdtRequest) (*rpcx.ReplicateWdtResponse, error) {
	h, ok := m.Lookup(req.DBHash)
	if !ok {
		return nil, status.New(status.SourceNotFound, "unknown db_hash")
	}
	db, err := h.Upgrade()
	if err != nil {
		return nil, err
	}
	return db.ReplicateWdt(ctx, req)
}

// LeaderFollowerShards reports the node's current leader and follower
// shard lists, published to the control plane so clients learn where to
// route (spec.md §4.4 "Publish the node's current leader/follower shard
// lists to the control plane").
func (m *Manager) LeaderFollowerShards() (leader, follower []uint32) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, e := range m.dbs {
		e.mu.Lock()
		if e.torn {
			e.mu.Unlock()
			continue
		}
		db := e.db
		e.mu.Unlock()
		id := db.Identity
		if db.Role() == types.RoleLeader {
			leader = append(leader, id.PartitionID)
		} else {
			follower = append(follower, id.PartitionID)
		}
	}
	return leader, follower
}

// PartitionStats implements metrics.StatsProvider for pkg/metrics's
// Collector.
func (m *Manager) PartitionStats() []metrics.PartitionStats {
	m.mu.RLock()
	defer m.mu.RUnlock()
	stats := make([]metrics.PartitionStats, 0, len(m.dbs))
	for _, e := range m.dbs {
		e.mu.Lock()
		torn := e.torn
		db := e.db
		e.mu.Unlock()
		if torn {
			continue
		}
		id := db.Identity
		stats = append(stats, metrics.PartitionStats{
			Database:       id.Database,
			Table:          id.Table,
			Partition:      partitionIDString(id.PartitionID),
			IsLeader:       db.Role() == types.RoleLeader,
			CommittedSeqNo: db.Engine().SeqNo(),
			AppliedSeqNo:   db.Engine().SeqNo(),
		})
	}
	return stats
}
