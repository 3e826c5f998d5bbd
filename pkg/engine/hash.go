package engine

import (
	"github.com/algo-data-platform/laser/pkg/codec"
	"github.com/algo-data-platform/laser/pkg/status"
	"github.com/algo-data-platform/laser/pkg/types"
)

// HSet sets a single field; size is maintained transactionally with the
// field write so a collection's metadata head always matches its live
// sub-entries (spec.md §3 invariants).
func (e *Engine) HSet(lk types.LogicalKey, field, value string) error {
	metaKey := codec.EncodeMetaKey(lk, codec.FamilyHash)
	fieldKey := codec.EncodeHashFieldKey(lk, field)
	_, err := e.mutate(func() (*Batch, error) {
		meta, exists, err := e.readMetaLocked(metaKey)
		if err != nil {
			return nil, err
		}
		existingField, err := e.readBytesLocked(fieldKey)
		if err != nil {
			return nil, status.Wrap(status.IOError, "read", err)
		}
		b := NewBatch()
		if !exists {
			meta = codec.MetaValue{}
		}
		if existingField == nil {
			meta.Size++
		}
		b.Put(metaKey, codec.EncodeMeta(meta))
		b.Put(fieldKey, []byte(value))
		return b, nil
	})
	return err
}

// HMSet sets multiple fields atomically in one batch.
func (e *Engine) HMSet(lk types.LogicalKey, fields map[string]string) error {
	metaKey := codec.EncodeMetaKey(lk, codec.FamilyHash)
	_, err := e.mutate(func() (*Batch, error) {
		meta, exists, err := e.readMetaLocked(metaKey)
		if err != nil {
			return nil, err
		}
		if !exists {
			meta = codec.MetaValue{}
		}
		b := NewBatch()
		for field, value := range fields {
			fieldKey := codec.EncodeHashFieldKey(lk, field)
			existing, err := e.readBytesLocked(fieldKey)
			if err != nil {
				return nil, status.Wrap(status.IOError, "read", err)
			}
			if existing == nil {
				meta.Size++
			}
			b.Put(fieldKey, []byte(value))
		}
		b.Put(metaKey, codec.EncodeMeta(meta))
		return b, nil
	})
	return err
}

// HGet reads one field, or NotFound if the hash or the field is absent.
func (e *Engine) HGet(lk types.LogicalKey, field string) (string, error) {
	meta, exists, err := e.readMeta(codec.EncodeMetaKey(lk, codec.FamilyHash))
	if err != nil {
		return "", err
	}
	if !exists {
		return "", status.New(status.NotFound, "hash not found")
	}
	_ = meta
	buf, err := e.readUnguarded(codec.EncodeHashFieldKey(lk, field))
	if err != nil {
		return "", status.Wrap(status.IOError, "read", err)
	}
	if buf == nil {
		return "", status.New(status.NotFound, "field not found")
	}
	return string(buf), nil
}

// HMGet reads multiple fields, per-field NotFound on misses.
func (e *Engine) HMGet(lk types.LogicalKey, fields []string) map[string]MGetResult {
	results := make(map[string]MGetResult, len(fields))
	for _, f := range fields {
		v, err := e.HGet(lk, f)
		results[f] = MGetResult{Value: v, Err: err}
	}
	return results
}

// HGetAll returns every live field/value pair.
func (e *Engine) HGetAll(lk types.LogicalKey) (map[string]string, error) {
	prefix := codec.CollectionPrefix(lk, codec.FamilyHash)
	metaKey := codec.EncodeMetaKey(lk, codec.FamilyHash)
	result := make(map[string]string)
	err := e.scanPrefix(prefix, func(k, v []byte) bool {
		if string(k) == string(metaKey) {
			return true
		}
		field, derr := codec.DecodeHashField(k, len(prefix))
		if derr != nil {
			return true
		}
		result[field] = string(v)
		return true
	})
	return result, err
}

// HKeys returns every live field name.
func (e *Engine) HKeys(lk types.LogicalKey) ([]string, error) {
	all, err := e.HGetAll(lk)
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(all))
	for k := range all {
		keys = append(keys, k)
	}
	return keys, nil
}

// HLen returns the hash's metadata-head size.
func (e *Engine) HLen(lk types.LogicalKey) (uint64, error) {
	meta, exists, err := e.readMeta(codec.EncodeMetaKey(lk, codec.FamilyHash))
	if err != nil || !exists {
		return 0, err
	}
	return meta.Size, nil
}

// HExists reports whether a field is currently live.
func (e *Engine) HExists(lk types.LogicalKey, field string) (bool, error) {
	_, err := e.HGet(lk, field)
	if err != nil {
		if status.Is(err, status.NotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// HDel deletes one field, decrementing the metadata head's size.
func (e *Engine) HDel(lk types.LogicalKey, field string) error {
	metaKey := codec.EncodeMetaKey(lk, codec.FamilyHash)
	fieldKey := codec.EncodeHashFieldKey(lk, field)
	_, err := e.mutate(func() (*Batch, error) {
		meta, exists, err := e.readMetaLocked(metaKey)
		if err != nil {
			return nil, err
		}
		if !exists {
			return nil, status.New(status.NotFound, "hash not found")
		}
		existing, err := e.readBytesLocked(fieldKey)
		if err != nil {
			return nil, status.Wrap(status.IOError, "read", err)
		}
		if existing == nil {
			return nil, status.New(status.NotFound, "field not found")
		}
		b := NewBatch()
		b.Delete(fieldKey)
		if meta.Size > 0 {
			meta.Size--
		}
		b.Put(metaKey, codec.EncodeMeta(meta))
		return b, nil
	})
	return err
}
