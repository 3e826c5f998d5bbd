package engine

import (
	"github.com/algo-data-platform/laser/pkg/status"
	bolt "go.etcd.io/bbolt"
)

// Cursor is the read-only handle handed to an Iterator callback. It wraps
// bbolt's own cursor so callers outside this package never see the bucket
// layout directly.
type Cursor struct {
	c *bolt.Cursor
}

func (cur *Cursor) Seek(prefix []byte) (key, value []byte) { return cur.c.Seek(prefix) }
func (cur *Cursor) Next() (key, value []byte)              { return cur.c.Next() }
func (cur *Cursor) First() (key, value []byte)             { return cur.c.First() }

// Iterator yields a read-only cursor to callback under the partition read
// guard (spec.md §4.2: "Yield a read-only cursor; callback is invoked under
// the partition read guard."). The cursor, and anything reachable through
// it, is only valid for the lifetime of the callback.
func (e *Engine) Iterator(callback func(*Cursor) error) error {
	return e.view(func(tx *bolt.Tx) error {
		cur := &Cursor{c: tx.Bucket(dataBucket).Cursor()}
		if err := callback(cur); err != nil {
			return status.Wrap(status.IOError, "iterator callback", err)
		}
		return nil
	})
}
