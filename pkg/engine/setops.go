package engine

import (
	"github.com/algo-data-platform/laser/pkg/codec"
	"github.com/algo-data-platform/laser/pkg/status"
	"github.com/algo-data-platform/laser/pkg/types"
)

// SAdd adds a member, returning true if it was newly added.
func (e *Engine) SAdd(lk types.LogicalKey, member string) (bool, error) {
	metaKey := codec.EncodeMetaKey(lk, codec.FamilySet)
	memberKey := codec.EncodeSetMemberKey(lk, member)
	added := false
	_, err := e.mutate(func() (*Batch, error) {
		meta, exists, err := e.readMetaLocked(metaKey)
		if err != nil {
			return nil, err
		}
		if !exists {
			meta = codec.MetaValue{}
		}
		existing, err := e.readBytesLocked(memberKey)
		if err != nil {
			return nil, status.Wrap(status.IOError, "read", err)
		}
		b := NewBatch()
		if existing == nil {
			meta.Size++
			added = true
		}
		b.Put(memberKey, []byte{1})
		b.Put(metaKey, codec.EncodeMeta(meta))
		return b, nil
	})
	if err != nil {
		return false, err
	}
	return added, nil
}

// SDel removes a member, returning true if it was live.
func (e *Engine) SDel(lk types.LogicalKey, member string) (bool, error) {
	metaKey := codec.EncodeMetaKey(lk, codec.FamilySet)
	memberKey := codec.EncodeSetMemberKey(lk, member)
	removed := false
	_, err := e.mutate(func() (*Batch, error) {
		meta, exists, err := e.readMetaLocked(metaKey)
		if err != nil {
			return nil, err
		}
		if !exists {
			return NewBatch(), nil
		}
		existing, err := e.readBytesLocked(memberKey)
		if err != nil {
			return nil, status.Wrap(status.IOError, "read", err)
		}
		b := NewBatch()
		if existing != nil {
			b.Delete(memberKey)
			if meta.Size > 0 {
				meta.Size--
			}
			b.Put(metaKey, codec.EncodeMeta(meta))
			removed = true
		}
		return b, nil
	})
	if err != nil {
		return false, err
	}
	return removed, nil
}

// HasMember reports whether member is currently live in the set.
func (e *Engine) HasMember(lk types.LogicalKey, member string) (bool, error) {
	_, exists, err := e.readMeta(codec.EncodeMetaKey(lk, codec.FamilySet))
	if err != nil || !exists {
		return false, err
	}
	buf, err := e.readUnguarded(codec.EncodeSetMemberKey(lk, member))
	if err != nil {
		return false, status.Wrap(status.IOError, "read", err)
	}
	return buf != nil, nil
}

// Members returns every live member of the set.
func (e *Engine) Members(lk types.LogicalKey) ([]string, error) {
	prefix := codec.CollectionPrefix(lk, codec.FamilySet)
	metaKey := codec.EncodeMetaKey(lk, codec.FamilySet)
	var members []string
	err := e.scanPrefix(prefix, func(k, v []byte) bool {
		if string(k) == string(metaKey) {
			return true
		}
		member, derr := codec.DecodeSetMember(k, len(prefix))
		if derr != nil {
			return true
		}
		members = append(members, member)
		return true
	})
	return members, err
}
