package engine

import (
	"math"

	"github.com/algo-data-platform/laser/pkg/codec"
	"github.com/algo-data-platform/laser/pkg/status"
	"github.com/algo-data-platform/laser/pkg/types"
)

// IncrBy atomically adds step to the counter at lk, creating it at 0 first
// if absent, and returns the new value. Overflow fails with InvalidArgument.
func (e *Engine) IncrBy(lk types.LogicalKey, step int64) (int64, error) {
	key := keyForRaw(lk)
	var result int64
	_, err := e.mutate(func() (*Batch, error) {
		var current int64
		var expireMs int64
		buf, err := e.readBytesLocked(key)
		if err != nil {
			return nil, status.Wrap(status.IOError, "read", err)
		}
		if buf != nil {
			raw, err := codec.DecodeRawValue(buf)
			if err != nil {
				return nil, status.Wrap(status.Corruption, "decode value", err)
			}
			if !codec.IsExpired(raw.ExpireMs, nowMs()) {
				if !raw.IsCounter {
					return nil, status.New(status.InvalidArgument, "key does not hold a counter")
				}
				current = raw.Counter
				expireMs = raw.ExpireMs
			}
		}

		next, overflowed := addOverflow(current, step)
		if overflowed {
			return nil, status.New(status.InvalidArgument, "counter overflow")
		}
		result = next

		b := NewBatch()
		b.Put(key, codec.EncodeCounter(next, expireMs))
		return b, nil
	})
	if err != nil {
		return 0, err
	}
	return result, nil
}

// DecrBy is IncrBy with the step negated.
func (e *Engine) DecrBy(lk types.LogicalKey, step int64) (int64, error) {
	return e.IncrBy(lk, -step)
}

func addOverflow(a, b int64) (int64, bool) {
	sum := a + b
	if (b > 0 && sum < a) || (b < 0 && sum > a) {
		return 0, true
	}
	if sum == math.MinInt64 && a > 0 && b > 0 {
		return 0, true
	}
	return sum, false
}
