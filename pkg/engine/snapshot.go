package engine

import (
	"io"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/algo-data-platform/laser/pkg/status"
)

// DumpSst produces an immutable snapshot of the live data bucket at path,
// for transfer to a follower or for offline tooling. bbolt's own hot-backup
// primitive (Tx.CopyFile) gives us this for free, standing in for the
// original's SST-file dump.
func (e *Engine) DumpSst(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return status.Wrap(status.IOError, "create snapshot dir", err)
	}
	return e.view(func(tx *bolt.Tx) error {
		if err := tx.CopyFile(path, 0o600); err != nil {
			return status.Wrap(status.IOError, "dump snapshot", err)
		}
		return nil
	})
}

// IngestBaseSst replaces the engine's entire content with the snapshot at
// path, for bulk-transfer completion or offline restores. The live seq_no
// is reset to the value recorded by the caller (the base_version's starting
// seq_no, per the bulk-transfer protocol); WAL history older than that
// point is no longer meaningful and is left to the WAL's own retention.
func (e *Engine) IngestBaseSst(path string, baseSeqNo uint64) error {
	e.ingestGuard.Lock()
	defer e.ingestGuard.Unlock()
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.db.Close(); err != nil {
		return status.Wrap(status.IOError, "close data file for ingest", err)
	}

	dest := filepath.Join(e.dataDir, "data.db")
	if err := replaceFile(path, dest); err != nil {
		return status.Wrap(status.IOError, "install base snapshot", err)
	}

	db, err := bolt.Open(dest, 0o600, &boltOpenOptions)
	if err != nil {
		return status.Wrap(status.IOError, "reopen data file after ingest", err)
	}
	db.NoSync = e.opts.NoSync
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(dataBucket)
		return err
	}); err != nil {
		db.Close()
		return status.Wrap(status.IOError, "ensure data bucket after ingest", err)
	}
	e.db = db
	setSeqNo(e, baseSeqNo)
	return nil
}

// IngestDeltaSst merges the overlay snapshot at path onto the engine's
// existing content, key by key, with the overlay winning on conflicts
// (spec.md §4.2: "conflicting keys: overlay wins"). tempPath is used as a
// scratch copy so the overlay file itself is never mutated while open.
func (e *Engine) IngestDeltaSst(path, tempPath string) error {
	if err := copyFileContents(path, tempPath); err != nil {
		return status.Wrap(status.IOError, "stage delta snapshot", err)
	}
	defer os.Remove(tempPath)

	overlay, err := bolt.Open(tempPath, 0o600, &bolt.Options{ReadOnly: true})
	if err != nil {
		return status.Wrap(status.IOError, "open delta snapshot", err)
	}
	defer overlay.Close()

	e.ingestGuard.Lock()
	defer e.ingestGuard.Unlock()
	e.mu.Lock()
	defer e.mu.Unlock()

	return overlay.View(func(otx *bolt.Tx) error {
		bucket := otx.Bucket(dataBucket)
		if bucket == nil {
			return nil
		}
		return e.db.Update(func(tx *bolt.Tx) error {
			target := tx.Bucket(dataBucket)
			return bucket.ForEach(func(k, v []byte) error {
				return target.Put(append([]byte(nil), k...), append([]byte(nil), v...))
			})
		})
	})
}

// CompactRange compacts the data file synchronously. bbolt reclaims freed
// pages on every write transaction rather than via an explicit compaction
// pass, so this is a best-effort reclaim: it copies the live database into
// a fresh file (dropping free-list bloat) and swaps it in, mirroring the
// effect (not the mechanism) of the original's range compaction. It does not
// run in the background: it holds the ingest guard and the write lock for
// the whole copy, so writes and reads through the engine wait until it
// returns.
func (e *Engine) CompactRange() error {
	e.ingestGuard.Lock()
	defer e.ingestGuard.Unlock()
	e.mu.Lock()
	defer e.mu.Unlock()

	tmp := filepath.Join(e.dataDir, "data.compact.tmp")
	if err := e.db.View(func(tx *bolt.Tx) error {
		return tx.CopyFile(tmp, 0o600)
	}); err != nil {
		return status.Wrap(status.IOError, "copy for compaction", err)
	}
	if err := e.db.Close(); err != nil {
		os.Remove(tmp)
		return status.Wrap(status.IOError, "close data file for compaction", err)
	}

	dest := filepath.Join(e.dataDir, "data.db")
	if err := os.Rename(tmp, dest); err != nil {
		return status.Wrap(status.IOError, "install compacted file", err)
	}
	db, err := bolt.Open(dest, 0o600, &boltOpenOptions)
	if err != nil {
		return status.Wrap(status.IOError, "reopen data file after compaction", err)
	}
	db.NoSync = e.opts.NoSync
	e.db = db
	return nil
}

var boltOpenOptions = bolt.Options{Timeout: 5 * time.Second}

func setSeqNo(e *Engine, seqNo uint64) {
	atomic.StoreInt64(&e.seqNo, int64(seqNo))
}

func replaceFile(src, dest string) error {
	if err := os.Remove(dest); err != nil && !os.IsNotExist(err) {
		return err
	}
	if err := os.Rename(src, dest); err == nil {
		return nil
	}
	return copyFileContents(src, dest)
}

func copyFileContents(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.OpenFile(dest, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}
	defer out.Close()
	_, err = io.Copy(out, in)
	return err
}
