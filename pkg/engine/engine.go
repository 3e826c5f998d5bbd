package engine

import (
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/algo-data-platform/laser/pkg/codec"
	"github.com/algo-data-platform/laser/pkg/status"
	"github.com/algo-data-platform/laser/pkg/types"
	"github.com/hashicorp/raft"
	raftboltdb "github.com/hashicorp/raft-boltdb"
	bolt "go.etcd.io/bbolt"
)

var dataBucket = []byte("data")

// Options configures an Engine, generalizing the original RocksDB config
// knobs (block cache, write buffer, shard bits, ...) to the single bbolt
// file Laser's engine owns. The only field is NoSync; the Config Watcher's
// per-table engine options (spec.md §4.7) are not carried here, since bbolt
// has no block-cache equivalent.
type Options struct {
	NoSync bool // bolt.Options.NoSync, for test/benchmark use only
}

// LogEntry is one committed write batch as stored in, and read back from,
// the per-partition WAL.
type LogEntry struct {
	SeqNo      uint64
	LeaderMs   int64
	BatchBytes []byte
}

// Engine is one partition's storage instance.
type Engine struct {
	dataDir string
	opts    Options

	db  *bolt.DB
	wal *raftboltdb.BoltStore

	mu         sync.Mutex   // serializes the write+WAL-append sequence
	ingestGuard sync.RWMutex // exclusive during ingest; shared otherwise

	seqNo int64 // atomic, last committed seq_no (0 = empty)

	checkpointRefMu sync.Mutex
	checkpointRefs  int

	commitHook func(seqNo uint64, leaderMs int64)
}

// SetCommitHook registers fn to run after every successful commit (local or
// replicated). The hook runs inside commit, while the write lock is still
// held, so it must not call back into the engine's write paths. The
// Replication DB uses this to wake
// parked pullers and record per-commit metrics without the engine needing
// to know anything about replication.
func (e *Engine) SetCommitHook(fn func(seqNo uint64, leaderMs int64)) {
	e.commitHook = fn
}

// Open opens (or creates) the partition engine rooted at dataDir.
func Open(dataDir string, opts Options) (*Engine, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, status.Wrap(status.IOError, "create data dir", err)
	}

	boltOpts := &bolt.Options{Timeout: 5 * time.Second}
	db, err := bolt.Open(filepath.Join(dataDir, "data.db"), 0o600, boltOpts)
	if err != nil {
		return nil, status.Wrap(status.IOError, "open data file", err)
	}
	db.NoSync = opts.NoSync

	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(dataBucket)
		return err
	}); err != nil {
		db.Close()
		return nil, status.Wrap(status.IOError, "create data bucket", err)
	}

	wal, err := raftboltdb.NewBoltStore(filepath.Join(dataDir, "wal.db"))
	if err != nil {
		db.Close()
		return nil, status.Wrap(status.IOError, "open wal", err)
	}

	e := &Engine{dataDir: dataDir, opts: opts, db: db, wal: wal}
	last, err := wal.LastIndex()
	if err != nil {
		e.Close()
		return nil, status.Wrap(status.IOError, "read wal last index", err)
	}
	e.seqNo = int64(last)
	return e, nil
}

func (e *Engine) Close() error {
	var firstErr error
	if e.wal != nil {
		if err := e.wal.Close(); err != nil {
			firstErr = err
		}
	}
	if e.db != nil {
		if err := e.db.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// SeqNo returns the last committed write-batch sequence number.
func (e *Engine) SeqNo() uint64 { return uint64(atomic.LoadInt64(&e.seqNo)) }

// DataDir returns the directory this engine is rooted at, for callers (bulk
// transfer) that need scratch space alongside the engine's own files.
func (e *Engine) DataDir() string { return e.dataDir }

func nowMs() int64 { return time.Now().UnixMilli() }

// applyLocal commits a batch assembled by a local (leader) write, assigning
// the next seq_no and stamping the current wall-clock time as the leader
// timestamp annotation (spec.md §4.2 "Algorithmic notes").
func (e *Engine) applyLocal(b *Batch) (uint64, error) {
	return e.apply(b, 0)
}

// ApplyReplicated commits a batch pulled from the upstream leader. seqNo
// must be exactly the engine's current seq_no + 1 (spec.md §4.3 step 4);
// leaderMs is preserved from the original commit so followers can measure
// replication lag in wall time.
func (e *Engine) ApplyReplicated(b *Batch, seqNo uint64, leaderMs int64) error {
	e.ingestGuard.RLock()
	defer e.ingestGuard.RUnlock()
	e.mu.Lock()
	defer e.mu.Unlock()

	current := uint64(atomic.LoadInt64(&e.seqNo))
	if seqNo != current+1 {
		return status.Newf(status.InvalidArgument, "non-contiguous apply: have seq %d, got %d", current, seqNo)
	}
	return e.commit(b, seqNo, leaderMs)
}

func (e *Engine) apply(b *Batch, leaderMs int64) (uint64, error) {
	e.ingestGuard.RLock()
	defer e.ingestGuard.RUnlock()
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.applyLockedHeld(b, leaderMs)
}

// applyLockedHeld assigns the next seq_no and commits. Caller must already
// hold ingestGuard (read) and mu.
func (e *Engine) applyLockedHeld(b *Batch, leaderMs int64) (uint64, error) {
	seqNo := uint64(atomic.LoadInt64(&e.seqNo)) + 1
	if leaderMs == 0 {
		leaderMs = nowMs()
	}
	if err := e.commit(b, seqNo, leaderMs); err != nil {
		return 0, err
	}
	return seqNo, nil
}

// mutate runs build with the write lock held so a read-modify-write
// sequence (append, incrBy, collection field updates) is atomic with
// respect to every other writer, then commits the batch it returns. build
// may read current state with readMetaLocked/readBytesLocked, which assume
// the lock this method already holds.
func (e *Engine) mutate(build func() (*Batch, error)) (uint64, error) {
	e.ingestGuard.RLock()
	defer e.ingestGuard.RUnlock()
	e.mu.Lock()
	defer e.mu.Unlock()

	b, err := build()
	if err != nil {
		return 0, err
	}
	return e.applyLockedHeld(b, 0)
}

// readBytesLocked reads a single physical key's value. Caller must hold
// ingestGuard and mu (see mutate).
func (e *Engine) readBytesLocked(key []byte) ([]byte, error) {
	var buf []byte
	err := e.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(dataBucket).Get(key)
		if v != nil {
			buf = append([]byte(nil), v...)
		}
		return nil
	})
	return buf, err
}

// commit must be called with mu and ingestGuard (read) held.
func (e *Engine) commit(b *Batch, seqNo uint64, leaderMs int64) error {
	batchBytes, err := b.Encode()
	if err != nil {
		return status.Wrap(status.InvalidArgument, "encode batch", err)
	}

	logRec, err := newRaftLog(seqNo, leaderMs, batchBytes)
	if err != nil {
		return status.Wrap(status.InvalidArgument, "encode wal record", err)
	}
	if err := e.wal.StoreLog(logRec); err != nil {
		return status.Wrap(status.IOError, "append wal", err)
	}

	err = e.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(dataBucket)
		for _, m := range b.mutations {
			switch m.Op {
			case opPut:
				if err := bucket.Put(m.Key, m.Value); err != nil {
					return err
				}
			case opDelete:
				if err := bucket.Delete(m.Key); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return status.Wrap(status.IOError, "commit batch", err)
	}

	atomic.StoreInt64(&e.seqNo, int64(seqNo))
	if e.commitHook != nil {
		e.commitHook(seqNo, leaderMs)
	}
	return nil
}

// ReadLog returns up to maxCount committed log entries starting at fromSeq
// (inclusive), capped by maxBytes of combined batch payload, for the
// replication pull loop (spec.md §4.3 step 3).
func (e *Engine) ReadLog(fromSeq uint64, maxCount int, maxBytes int) ([]LogEntry, error) {
	firstIdx, err := e.wal.FirstIndex()
	if err != nil {
		return nil, status.Wrap(status.IOError, "wal first index", err)
	}
	lastIdx, err := e.wal.LastIndex()
	if err != nil {
		return nil, status.Wrap(status.IOError, "wal last index", err)
	}
	if fromSeq < firstIdx || firstIdx == 0 {
		if lastIdx == 0 || fromSeq > lastIdx {
			return nil, nil
		}
		if fromSeq < firstIdx {
			return nil, status.New(status.SourceWalLogRemoved, "requested seq no longer retained")
		}
	}

	var entries []LogEntry
	budget := maxBytes
	for seq := fromSeq; seq <= lastIdx && len(entries) < maxCount; seq++ {
		var rec raft.Log
		if err := e.wal.GetLog(seq, &rec); err != nil {
			return nil, status.Wrap(status.SourceReadError, "read wal entry", err)
		}
		env, err := decodeEnvelope(rec.Data)
		if err != nil {
			return nil, status.Wrap(status.Corruption, "decode wal entry", err)
		}
		if maxBytes > 0 && len(env.Batch) > budget && len(entries) > 0 {
			break
		}
		entries = append(entries, LogEntry{SeqNo: rec.Index, LeaderMs: env.LeaderMs, BatchBytes: env.Batch})
		budget -= len(env.Batch)
	}
	return entries, nil
}

func keyForRaw(lk types.LogicalKey) []byte { return codec.EncodeRawKey(lk) }

// scanPrefix iterates every key with the given byte prefix in ascending
// order, invoking fn with each key/value until fn returns false or the
// prefix is exhausted. This backs every collection range read (hgetall,
// members, lrange, zrangeByScore): the codec guarantees a collection's
// metadata head and all its sub-entries share one byte prefix, so a single
// cursor scan enumerates exactly that collection.
func (e *Engine) scanPrefix(prefix []byte, fn func(k, v []byte) (more bool)) error {
	return e.view(func(tx *bolt.Tx) error {
		c := tx.Bucket(dataBucket).Cursor()
		for k, v := c.Seek(prefix); k != nil && hasPrefix(k, prefix); k, v = c.Next() {
			if !fn(k, v) {
				return nil
			}
		}
		return nil
	})
}

func hasPrefix(b, prefix []byte) bool {
	if len(b) < len(prefix) {
		return false
	}
	for i := range prefix {
		if b[i] != prefix[i] {
			return false
		}
	}
	return true
}
