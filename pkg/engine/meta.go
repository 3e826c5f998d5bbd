package engine

import (
	"github.com/algo-data-platform/laser/pkg/codec"
	"github.com/algo-data-platform/laser/pkg/status"
	bolt "go.etcd.io/bbolt"
)

// readUnguarded reads a single physical key under the ingest guard (but not
// the write mutex), for plain reads outside a mutate() critical section.
func (e *Engine) readUnguarded(key []byte) ([]byte, error) {
	var buf []byte
	err := e.view(func(tx *bolt.Tx) error {
		v := tx.Bucket(dataBucket).Get(key)
		if v != nil {
			buf = append([]byte(nil), v...)
		}
		return nil
	})
	return buf, err
}

func decodeMetaBytes(buf []byte) (codec.MetaValue, bool, error) {
	if buf == nil {
		return codec.MetaValue{}, false, nil
	}
	m, err := codec.DecodeMeta(buf)
	if err != nil {
		return codec.MetaValue{}, false, status.Wrap(status.Corruption, "decode meta", err)
	}
	if codec.IsExpired(m.ExpireMs, nowMs()) {
		return codec.MetaValue{}, false, nil
	}
	return m, true, nil
}

// readMetaLocked reads a collection's metadata head. Caller must hold the
// write lock (see mutate). A missing or expired head reports size 0 and
// exists=false; the caller creates the head on first write.
func (e *Engine) readMetaLocked(metaKey []byte) (codec.MetaValue, bool, error) {
	buf, err := e.readBytesLocked(metaKey)
	if err != nil {
		return codec.MetaValue{}, false, status.Wrap(status.IOError, "read", err)
	}
	return decodeMetaBytes(buf)
}

// readMeta is the read-path (non-mutating) counterpart of readMetaLocked,
// used by the hlen/llen/scan-family readers.
func (e *Engine) readMeta(metaKey []byte) (codec.MetaValue, bool, error) {
	buf, err := e.readUnguarded(metaKey)
	if err != nil {
		return codec.MetaValue{}, false, status.Wrap(status.IOError, "read", err)
	}
	return decodeMetaBytes(buf)
}
