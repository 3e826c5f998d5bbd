package engine

import (
	"github.com/algo-data-platform/laser/pkg/codec"
	"github.com/algo-data-platform/laser/pkg/status"
	"github.com/algo-data-platform/laser/pkg/types"
)

// PushFront prepends value, O(1) via the metadata head's front index, and
// returns the new length.
func (e *Engine) PushFront(lk types.LogicalKey, value string) (uint64, error) {
	return e.push(lk, value, true)
}

// PushBack appends value, O(1) via the metadata head's back index, and
// returns the new length.
func (e *Engine) PushBack(lk types.LogicalKey, value string) (uint64, error) {
	return e.push(lk, value, false)
}

func (e *Engine) push(lk types.LogicalKey, value string, front bool) (uint64, error) {
	metaKey := codec.EncodeMetaKey(lk, codec.FamilyList)
	var newLen uint64
	_, err := e.mutate(func() (*Batch, error) {
		meta, exists, err := e.readMetaLocked(metaKey)
		if err != nil {
			return nil, err
		}
		if !exists {
			meta = codec.MetaValue{Front: 1 << 62, Back: 1 << 62}
		}
		var slotIdx uint64
		b := NewBatch()
		if front {
			meta.Front--
			slotIdx = meta.Front
		} else {
			slotIdx = meta.Back
			meta.Back++
		}
		meta.Size++
		b.Put(codec.EncodeListSlotKey(lk, slotIdx), []byte(value))
		b.Put(metaKey, codec.EncodeMeta(meta))
		newLen = meta.Size
		return b, nil
	})
	if err != nil {
		return 0, err
	}
	return newLen, nil
}

// PopFront removes and returns the front element.
func (e *Engine) PopFront(lk types.LogicalKey) (string, error) {
	return e.pop(lk, true)
}

// PopBack removes and returns the back element.
func (e *Engine) PopBack(lk types.LogicalKey) (string, error) {
	return e.pop(lk, false)
}

func (e *Engine) pop(lk types.LogicalKey, front bool) (string, error) {
	metaKey := codec.EncodeMetaKey(lk, codec.FamilyList)
	var value string
	_, err := e.mutate(func() (*Batch, error) {
		meta, exists, err := e.readMetaLocked(metaKey)
		if err != nil {
			return nil, err
		}
		if !exists || meta.Size == 0 {
			return nil, status.New(status.NotFound, "list empty")
		}
		var slotIdx uint64
		if front {
			slotIdx = meta.Front
			meta.Front++
		} else {
			meta.Back--
			slotIdx = meta.Back
		}
		slotKey := codec.EncodeListSlotKey(lk, slotIdx)
		buf, err := e.readBytesLocked(slotKey)
		if err != nil {
			return nil, status.Wrap(status.IOError, "read", err)
		}
		if buf == nil {
			return nil, status.New(status.Corruption, "missing list slot within metadata range")
		}
		value = string(buf)
		meta.Size--

		b := NewBatch()
		b.Delete(slotKey)
		b.Put(metaKey, codec.EncodeMeta(meta))
		return b, nil
	})
	if err != nil {
		return "", err
	}
	return value, nil
}

// LLen returns the list's current length.
func (e *Engine) LLen(lk types.LogicalKey) (uint64, error) {
	meta, exists, err := e.readMeta(codec.EncodeMetaKey(lk, codec.FamilyList))
	if err != nil || !exists {
		return 0, err
	}
	return meta.Size, nil
}

// LIndex reads the element at logical index (0-based from the front, O(1)
// via the front index plus a single slot read).
func (e *Engine) LIndex(lk types.LogicalKey, index int64) (string, error) {
	meta, exists, err := e.readMeta(codec.EncodeMetaKey(lk, codec.FamilyList))
	if err != nil {
		return "", err
	}
	if !exists || meta.Size == 0 {
		return "", status.New(status.NotFound, "list empty")
	}
	slot, ok := resolveListIndex(meta.Front, meta.Size, index)
	if !ok {
		return "", status.New(status.NotFound, "index out of range")
	}
	buf, err := e.readUnguarded(codec.EncodeListSlotKey(lk, slot))
	if err != nil {
		return "", status.Wrap(status.IOError, "read", err)
	}
	if buf == nil {
		return "", status.New(status.NotFound, "index out of range")
	}
	return string(buf), nil
}

// LRange returns elements [start, stop] inclusive (0-based, negative
// indices count from the end), O(range) via sequential slot reads.
func (e *Engine) LRange(lk types.LogicalKey, start, stop int64) ([]string, error) {
	meta, exists, err := e.readMeta(codec.EncodeMetaKey(lk, codec.FamilyList))
	if err != nil || !exists || meta.Size == 0 {
		return nil, err
	}
	n := int64(meta.Size)
	start = normalizeListIndex(start, n)
	stop = normalizeListIndex(stop, n)
	if start < 0 {
		start = 0
	}
	if stop >= n {
		stop = n - 1
	}
	if start > stop {
		return nil, nil
	}
	result := make([]string, 0, stop-start+1)
	for i := start; i <= stop; i++ {
		v, err := e.LIndex(lk, i)
		if err != nil {
			return nil, err
		}
		result = append(result, v)
	}
	return result, nil
}

func resolveListIndex(front, size uint64, index int64) (uint64, bool) {
	n := int64(size)
	index = normalizeListIndex(index, n)
	if index < 0 || index >= n {
		return 0, false
	}
	return front + uint64(index), true
}

func normalizeListIndex(index, n int64) int64 {
	if index < 0 {
		return n + index
	}
	return index
}
