package replication

import (
	"context"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/algo-data-platform/laser/pkg/engine"
	"github.com/algo-data-platform/laser/pkg/log"
	"github.com/algo-data-platform/laser/pkg/metrics"
	"github.com/algo-data-platform/laser/pkg/rpcx"
	"github.com/algo-data-platform/laser/pkg/types"
)

// ReplicateCaller is the client half of the log-tailing RPC pair, satisfied
// by *rpcx.ReplicatorClient. A narrow interface lets tests substitute a fake
// leader without standing up a real gRPC server.
type ReplicateCaller interface {
	Replicate(ctx context.Context, req *rpcx.ReplicateRequest) (*rpcx.ReplicateResponse, error)
	ReplicateWdt(ctx context.Context, req *rpcx.ReplicateWdtRequest) (*rpcx.ReplicateWdtResponse, error)
}

// Config tunes one DB's replication behavior.
type Config struct {
	FollowerNodeHash    int64
	FollowerServiceAddr string
	MaxBatchCount       uint32
	MaxBatchBytes       uint32
	PullIdleInterval    time.Duration // base sleep between pull attempts
	PullJitter          time.Duration // added uniformly at random
	IterIdleTimeout     time.Duration // iterator cache eviction
	ParkTimeout         time.Duration // leader-side cooperative park timeout
	TooFarBehindSeq     uint64        // lag beyond which a follower forces bulk transfer
	CallTimeout         time.Duration // receive timeout for a single Replicate/ReplicateWdt call
	BulkAbortTimeout    time.Duration // abort_timeout_ms: deadline for one bulk-transfer fetch
}

func (c Config) withDefaults() Config {
	if c.MaxBatchCount == 0 {
		c.MaxBatchCount = 256
	}
	if c.MaxBatchBytes == 0 {
		c.MaxBatchBytes = 4 << 20
	}
	if c.PullIdleInterval == 0 {
		c.PullIdleInterval = 200 * time.Millisecond
	}
	if c.PullJitter == 0 {
		c.PullJitter = 100 * time.Millisecond
	}
	if c.IterIdleTimeout == 0 {
		c.IterIdleTimeout = 30 * time.Second
	}
	if c.ParkTimeout == 0 {
		c.ParkTimeout = 1 * time.Second
	}
	if c.TooFarBehindSeq == 0 {
		c.TooFarBehindSeq = 100000
	}
	if c.CallTimeout == 0 {
		c.CallTimeout = 2 * time.Second
	}
	if c.BulkAbortTimeout == 0 {
		c.BulkAbortTimeout = 30 * time.Second
	}
	return c
}

// DB wraps one Partition Engine with a replication role and the protocol
// state spec.md §4.3 describes: a leader's parked-puller wakeups, a
// follower's pull loop, and the bulk-transfer fallback both roles use.
type DB struct {
	Identity types.PartitionIdentity

	eng *engine.Engine
	cfg Config

	roleMu sync.RWMutex
	role   types.Role

	// leader side: park-and-notify for pullers caught up to the log head.
	notifyMu   sync.Mutex
	notifyCond *sync.Cond

	iterCache *iteratorCache

	// follower side: pull loop lifecycle.
	client     ReplicateCaller
	pullCancel context.CancelFunc
	pullDone   chan struct{}

	baseMu      sync.Mutex
	baseVersion string

	forceBase atomic.Bool // forceBaseDataReplication, one-shot (spec.md §9)

	bulk *bulkCoordinator
}

// New wraps engine e as a Replication DB, starting in identity.Role.
func New(identity types.PartitionIdentity, e *engine.Engine, client ReplicateCaller, cfg Config) *DB {
	cfg = cfg.withDefaults()
	db := &DB{
		Identity:  identity,
		eng:       e,
		cfg:       cfg,
		role:      identity.Role,
		iterCache: newIteratorCache(cfg.IterIdleTimeout),
		client:    client,
	}
	db.notifyCond = sync.NewCond(&db.notifyMu)
	db.bulk = newBulkCoordinator(e)
	e.SetCommitHook(db.onCommit)
	if db.role == types.RoleFollower {
		db.startPullLoop()
	}
	return db
}

// onCommit runs after every committed write batch, local or replicated
// (engine.SetCommitHook). It wakes any puller parked in waitForSeqNo.
func (db *DB) onCommit(seqNo uint64, leaderMs int64) {
	now := time.Now().UnixMilli()
	if leaderMs > 0 && now > leaderMs {
		metrics.ReplicationEndToEndLatency.WithLabelValues(
			db.Identity.Database, db.Identity.Table, partitionIDString(db.Identity.PartitionID),
		).Observe(float64(now-leaderMs) / 1000.0)
	}
	db.notifyMu.Lock()
	db.notifyCond.Broadcast()
	db.notifyMu.Unlock()
}

// Role reports the DB's current replication role.
func (db *DB) Role() types.Role {
	db.roleMu.RLock()
	defer db.roleMu.RUnlock()
	return db.role
}

// SetRole transitions the DB's role, starting or stopping the pull loop as
// spec.md §4.3 "Roles and transitions" requires. Transitions are serialized
// by roleMu so concurrent SetRole calls cannot race.
func (db *DB) SetRole(role types.Role) {
	db.roleMu.Lock()
	defer db.roleMu.Unlock()
	if db.role == role {
		return
	}
	prev := db.role
	db.role = role

	logger := log.WithPartition(db.Identity.Database, db.Identity.Table, partitionIDString(db.Identity.PartitionID))
	logger.Info().Str("from", prev.String()).Str("to", role.String()).Msg("replication role transition")

	switch role {
	case types.RoleFollower:
		db.startPullLoop()
	case types.RoleLeader:
		db.stopPullLoop()
		db.iterCache.clear()
	}
}

// waitForSeqNo blocks until the engine's committed seq_no is >= want, the
// context is done, or timeout elapses — whichever happens first wins
// (spec.md §9: "whichever of (notify, timeout) wins runs the
// continuation"). It returns the observed seq_no.
func (db *DB) waitForSeqNo(ctx context.Context, want uint64, timeout time.Duration) uint64 {
	if db.eng.SeqNo() >= want {
		return db.eng.SeqNo()
	}

	deadline := time.Now().Add(timeout)
	timer := time.AfterFunc(timeout, func() { db.wake() })
	defer timer.Stop()

	stop := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			db.wake()
		case <-stop:
		}
	}()
	defer close(stop)

	db.notifyMu.Lock()
	defer db.notifyMu.Unlock()
	for db.eng.SeqNo() < want {
		if ctx.Err() != nil || !time.Now().Before(deadline) {
			return db.eng.SeqNo()
		}
		db.notifyCond.Wait()
	}
	return db.eng.SeqNo()
}

func (db *DB) wake() {
	db.notifyMu.Lock()
	db.notifyCond.Broadcast()
	db.notifyMu.Unlock()
}

// Engine exposes the underlying Partition Engine for the Router/Dispatcher
// to issue point/collection ops against.
func (db *DB) Engine() *engine.Engine { return db.eng }

// BaseVersion returns the currently installed snapshot generation name.
func (db *DB) BaseVersion() string {
	db.baseMu.Lock()
	defer db.baseMu.Unlock()
	return db.baseVersion
}

func (db *DB) setBaseVersion(v string) {
	db.baseMu.Lock()
	db.baseVersion = v
	db.baseMu.Unlock()
}

// ForceBaseDataReplication arms the one-shot flag that forces the next pull
// cycle to go through bulk transfer instead of log tailing, resolving
// spec.md §9's open question ("one-shot; cleared after the next successful
// bulk transfer request is dispatched").
func (db *DB) ForceBaseDataReplication() { db.forceBase.Store(true) }

func partitionIDString(id uint32) string {
	return strconv.FormatUint(uint64(id), 10)
}
