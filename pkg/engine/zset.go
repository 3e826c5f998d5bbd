package engine

import (
	"github.com/algo-data-platform/laser/pkg/codec"
	"github.com/algo-data-platform/laser/pkg/status"
	"github.com/algo-data-platform/laser/pkg/types"
)

// ZAdd sets member's score, returning true if member is newly added.
func (e *Engine) ZAdd(lk types.LogicalKey, member string, score float64) (bool, error) {
	metaKey := codec.EncodeMetaKey(lk, codec.FamilyZSet)
	scoreIndexKey := codec.EncodeZSetMemberKey(lk, member)
	added := false
	_, err := e.mutate(func() (*Batch, error) {
		meta, exists, err := e.readMetaLocked(metaKey)
		if err != nil {
			return nil, err
		}
		if !exists {
			meta = codec.MetaValue{}
		}
		b := NewBatch()
		oldScoreBytes, err := e.readBytesLocked(scoreIndexKey)
		if err != nil {
			return nil, status.Wrap(status.IOError, "read", err)
		}
		if oldScoreBytes != nil {
			oldScore := codec.DecodeOrderedScore(oldScoreBytes)
			b.Delete(codec.EncodeZSetEntryKey(lk, oldScore, member))
		} else {
			meta.Size++
			added = true
		}
		b.Put(scoreIndexKey, codec.EncodeOrderedScore(score))
		b.Put(codec.EncodeZSetEntryKey(lk, score, member), nil)
		b.Put(metaKey, codec.EncodeMeta(meta))
		return b, nil
	})
	if err != nil {
		return false, err
	}
	return added, nil
}

// ZRem removes member, returning true if it was live.
func (e *Engine) ZRem(lk types.LogicalKey, member string) (bool, error) {
	metaKey := codec.EncodeMetaKey(lk, codec.FamilyZSet)
	scoreIndexKey := codec.EncodeZSetMemberKey(lk, member)
	removed := false
	_, err := e.mutate(func() (*Batch, error) {
		meta, exists, err := e.readMetaLocked(metaKey)
		if err != nil {
			return nil, err
		}
		if !exists {
			return NewBatch(), nil
		}
		oldScoreBytes, err := e.readBytesLocked(scoreIndexKey)
		if err != nil {
			return nil, status.Wrap(status.IOError, "read", err)
		}
		b := NewBatch()
		if oldScoreBytes != nil {
			oldScore := codec.DecodeOrderedScore(oldScoreBytes)
			b.Delete(codec.EncodeZSetEntryKey(lk, oldScore, member))
			b.Delete(scoreIndexKey)
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

// ZScore returns member's current score.
func (e *Engine) ZScore(lk types.LogicalKey, member string) (float64, error) {
	buf, err := e.readUnguarded(codec.EncodeZSetMemberKey(lk, member))
	if err != nil {
		return 0, status.Wrap(status.IOError, "read", err)
	}
	if buf == nil {
		return 0, status.New(status.NotFound, "member not found")
	}
	return codec.DecodeOrderedScore(buf), nil
}

// ZCard returns the sorted set's metadata-head size.
func (e *Engine) ZCard(lk types.LogicalKey) (uint64, error) {
	meta, exists, err := e.readMeta(codec.EncodeMetaKey(lk, codec.FamilyZSet))
	if err != nil || !exists {
		return 0, err
	}
	return meta.Size, nil
}

// ZRangeByScore returns every (member, score) pair with min <= score <= max,
// in ascending score order, via a single cursor range seeded at the score
// prefix (spec.md §4.2 "sorted-set range reads are ordered scans, not full
// collection scans").
func (e *Engine) ZRangeByScore(lk types.LogicalKey, min, max float64) ([]types.ZMember, error) {
	prefix := codec.ZSetScorePrefix(lk)
	collPrefixLen := len(codec.CollectionPrefix(lk, codec.FamilyZSet))
	var out []types.ZMember
	err := e.scanPrefix(prefix, func(k, v []byte) bool {
		score, member, derr := codec.DecodeZSetEntry(k, collPrefixLen)
		if derr != nil {
			return true
		}
		if score < min {
			return true
		}
		if score > max {
			return false
		}
		out = append(out, types.ZMember{Member: member, Score: score})
		return true
	})
	return out, err
}

// ZRemRangeByScore deletes every member with min <= score <= max, returning
// the count removed.
func (e *Engine) ZRemRangeByScore(lk types.LogicalKey, min, max float64) (int, error) {
	members, err := e.ZRangeByScore(lk, min, max)
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, m := range members {
		ok, err := e.ZRem(lk, m.Member)
		if err != nil {
			return removed, err
		}
		if ok {
			removed++
		}
	}
	return removed, nil
}
