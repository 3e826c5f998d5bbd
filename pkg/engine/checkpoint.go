package engine

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/algo-data-platform/laser/pkg/status"
)

// Checkpoint is a ref-counted snapshot of the engine's data file at a point
// in time, in a directory named by its creation time (spec.md §6
// "Persisted state layout"). The snapshot is a full copy of the data file,
// not a set of hard links into the primary directory. Concurrent bulk-transfer sessions sourced from the same leader state
// share one Checkpoint instance; physical cleanup happens only once every
// holder has released it.
type Checkpoint struct {
	Dir      string
	DataFile string

	e *Engine
}

// Checkpoint creates (or, if one already exists for createdAtUnixNano,
// reuses) a checkpoint directory holding a copy of the data file and
// increments the engine's checkpoint reference count. Release must be called exactly once per Checkpoint
// returned.
func (e *Engine) Checkpoint(createdAtUnixNano int64) (*Checkpoint, error) {
	e.checkpointRefMu.Lock()
	defer e.checkpointRefMu.Unlock()

	dir := filepath.Join(e.dataDir, "checkpoints", fmt.Sprintf("%d", createdAtUnixNano))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, status.Wrap(status.IOError, "create checkpoint dir", err)
	}

	dataFile := filepath.Join(dir, "data.db")
	if _, err := os.Stat(dataFile); os.IsNotExist(err) {
		if err := e.linkCurrentData(dataFile); err != nil {
			os.RemoveAll(dir)
			return nil, err
		}
	} else if err != nil {
		return nil, status.Wrap(status.IOError, "stat checkpoint data file", err)
	}

	e.checkpointRefs++
	return &Checkpoint{Dir: dir, DataFile: dataFile, e: e}, nil
}

// linkCurrentData copies the engine's live data file into the checkpoint
// directory. bbolt has no "checkpoint.h"-style consistent
// snapshot primitive beyond CopyFile, so we take a read transaction to
// hold the mmap stable and copy (rather than hard-link, since a bare hard
// link to a file still being written by the engine would not be
// crash-consistent) into the checkpoint location.
func (e *Engine) linkCurrentData(dest string) error {
	return e.DumpSst(dest)
}

// Release decrements the checkpoint's reference count; the directory is
// removed only once the count reaches zero (spec.md §9 "Checkpoint
// ref-count").
func (c *Checkpoint) Release() error {
	c.e.checkpointRefMu.Lock()
	defer c.e.checkpointRefMu.Unlock()

	if c.e.checkpointRefs > 0 {
		c.e.checkpointRefs--
	}
	if c.e.checkpointRefs > 0 {
		return nil
	}
	if err := os.RemoveAll(c.Dir); err != nil {
		return status.Wrap(status.IOError, "remove checkpoint dir", err)
	}
	return nil
}
