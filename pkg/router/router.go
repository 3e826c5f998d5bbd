package router

import (
	"strings"
	"sync"

	"github.com/algo-data-platform/laser/pkg/replication"
	"github.com/algo-data-platform/laser/pkg/replicator"
	"github.com/algo-data-platform/laser/pkg/status"
	"github.com/algo-data-platform/laser/pkg/types"
	"github.com/spaolacci/murmur3"
)

// ReadMode is the read-mode policy a caller presents to Resolve (spec.md
// §4.6): it constrains which role the resolved partition must be serving
// from.
type ReadMode uint8

const (
	// LeaderRead must never be served from a follower.
	LeaderRead ReadMode = iota
	FollowerRead
	// MixedRead accepts either role.
	MixedRead
	// WriteMode requires a leader, same as LeaderRead; kept distinct so
	// callers can express intent without reusing a read-only name.
	WriteMode
)

// DBLookup resolves a db_hash to a registered Replication DB, implemented by
// *replicator.Manager. A narrow interface keeps the Router from depending on
// replicator's concrete registry type.
type DBLookup interface {
	Lookup(dbHash int64) (*replicator.Handle, bool)
}

// Router implements the Partition Router (spec.md §4.5).
type Router struct {
	mu     sync.RWMutex
	tables map[string]types.TableSpec

	dbs DBLookup
}

// New builds a Router over dbs, the registry it asks for partition handles.
func New(dbs DBLookup) *Router {
	return &Router{tables: make(map[string]types.TableSpec), dbs: dbs}
}

func tableKey(database, table string) string {
	return database + "/" + table
}

// RegisterTable installs or replaces a table's sharding width. cmd/laser-server
// calls it once for each table it serves at startup.
func (r *Router) RegisterTable(spec types.TableSpec) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tables[tableKey(spec.Database, spec.Table)] = spec
}

// UnregisterTable removes a table, e.g. on drop.
func (r *Router) UnregisterTable(database, table string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.tables, tableKey(database, table))
}

func (r *Router) tableSpec(database, table string) (types.TableSpec, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	spec, ok := r.tables[tableKey(database, table)]
	return spec, ok
}

// PartitionID computes partition_id = hash(primary_keys) mod
// table.PartitionNumber (spec.md §4.5 steps 1-2).
func PartitionID(primaryKey []string, partitionNumber uint32) uint32 {
	if partitionNumber == 0 {
		return 0
	}
	h := murmur3.Sum64([]byte(strings.Join(primaryKey, "\x00")))
	return uint32(h % uint64(partitionNumber))
}

// Resolve routes (database, table, primaryKey) to its owning Replication DB,
// honoring mode (spec.md §4.5-§4.6). It fails with NotExistsPartition if the
// table is unknown locally, the partition isn't assigned to this node, or
// the assigned role doesn't satisfy a read mode; it fails with
// WriteInFollower if mode is WriteMode and the local replica is a follower;
// it fails with SourceNotFound if
// the partition was assigned but has since been torn down.
func (r *Router) Resolve(database, table string, primaryKey []string, mode ReadMode) (*replication.DB, uint32, error) {
	spec, ok := r.tableSpec(database, table)
	if !ok {
		return nil, 0, status.Newf(status.NotExistsPartition, "no table config for %s/%s", database, table)
	}

	partitionID := PartitionID(primaryKey, spec.PartitionNumber)
	dbHash := types.PartitionDBHash(database, table, partitionID)

	handle, ok := r.dbs.Lookup(dbHash)
	if !ok {
		return nil, partitionID, status.Newf(status.NotExistsPartition,
			"partition %s/%s/%d not assigned to this node", database, table, partitionID)
	}
	db, err := handle.Upgrade()
	if err != nil {
		return nil, partitionID, err
	}

	if !roleSatisfies(mode, db.Role()) {
		if mode == WriteMode {
			return nil, partitionID, status.Newf(status.WriteInFollower,
				"partition %s/%s/%d is a follower, write must re-resolve to the leader", database, table, partitionID)
		}
		return nil, partitionID, status.Newf(status.NotExistsPartition,
			"partition %s/%s/%d role %v does not satisfy requested mode", database, table, partitionID, db.Role())
	}
	return db, partitionID, nil
}

func roleSatisfies(mode ReadMode, role types.Role) bool {
	switch mode {
	case LeaderRead, WriteMode:
		return role == types.RoleLeader
	case FollowerRead:
		return role == types.RoleFollower
	case MixedRead:
		return true
	default:
		return false
	}
}
