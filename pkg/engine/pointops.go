package engine

import (
	"github.com/algo-data-platform/laser/pkg/codec"
	"github.com/algo-data-platform/laser/pkg/status"
	"github.com/algo-data-platform/laser/pkg/types"
	bolt "go.etcd.io/bbolt"
)

func (e *Engine) view(fn func(*bolt.Tx) error) error {
	e.ingestGuard.RLock()
	defer e.ingestGuard.RUnlock()
	return e.db.View(fn)
}

// Get returns the raw string stored at key, or NotFound if absent or
// expired.
func (e *Engine) Get(lk types.LogicalKey) (string, error) {
	raw, err := e.getRaw(lk)
	if err != nil {
		return "", err
	}
	return raw.String, nil
}

func (e *Engine) getRaw(lk types.LogicalKey) (codec.RawValue, error) {
	key := keyForRaw(lk)
	var buf []byte
	err := e.view(func(tx *bolt.Tx) error {
		v := tx.Bucket(dataBucket).Get(key)
		if v != nil {
			buf = append([]byte(nil), v...)
		}
		return nil
	})
	if err != nil {
		return codec.RawValue{}, status.Wrap(status.IOError, "read", err)
	}
	if buf == nil {
		return codec.RawValue{}, status.New(status.NotFound, "key not found")
	}
	raw, err := codec.DecodeRawValue(buf)
	if err != nil {
		return codec.RawValue{}, status.Wrap(status.Corruption, "decode value", err)
	}
	if codec.IsExpired(raw.ExpireMs, nowMs()) {
		e.expireOpportunistically(key)
		return codec.RawValue{}, status.New(status.NotFound, "key expired")
	}
	return raw, nil
}

// expireOpportunistically deletes a key found expired on read, without
// blocking the read path or surfacing a delete error to the caller.
func (e *Engine) expireOpportunistically(key []byte) {
	go func() {
		b := NewBatch()
		b.Delete(key)
		_, _ = e.applyLocal(b)
	}()
}

// Exist reports whether key holds a live (non-expired) raw value.
func (e *Engine) Exist(lk types.LogicalKey) (bool, error) {
	_, err := e.getRaw(lk)
	if err != nil {
		if status.Is(err, status.NotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// TTL returns the remaining time-to-live in milliseconds, or -1 if the key
// has no TTL.
func (e *Engine) TTL(lk types.LogicalKey) (int64, error) {
	raw, err := e.getRaw(lk)
	if err != nil {
		return 0, err
	}
	if raw.ExpireMs == 0 {
		return -1, nil
	}
	remaining := raw.ExpireMs - nowMs()
	if remaining < 0 {
		remaining = 0
	}
	return remaining, nil
}

// Expire sets a TTL (relative, milliseconds) on an existing key.
func (e *Engine) Expire(lk types.LogicalKey, ttlMs int64) error {
	return e.ExpireAt(lk, nowMs()+ttlMs)
}

// ExpireAt sets an absolute expiry (epoch milliseconds) on an existing key.
func (e *Engine) ExpireAt(lk types.LogicalKey, expireAtMs int64) error {
	raw, err := e.getRaw(lk)
	if err != nil {
		return err
	}
	key := keyForRaw(lk)
	b := NewBatch()
	if raw.IsCounter {
		b.Put(key, codec.EncodeCounter(raw.Counter, expireAtMs))
	} else {
		b.Put(key, codec.EncodeString(raw.String, expireAtMs))
	}
	_, err = e.applyLocal(b)
	return err
}

// Delkey deletes a raw-string/counter key unconditionally.
func (e *Engine) Delkey(lk types.LogicalKey) error {
	b := NewBatch()
	b.Delete(keyForRaw(lk))
	_, err := e.applyLocal(b)
	return err
}

// Set writes a raw string with no TTL, overwriting any existing value.
func (e *Engine) Set(lk types.LogicalKey, value string) error {
	return e.Setx(lk, value, types.SetOptions{})
}

// Setx writes a raw string honoring SetOptions (not-exists, ttl).
func (e *Engine) Setx(lk types.LogicalKey, value string, opts types.SetOptions) error {
	if opts.NotExists {
		if exists, err := e.Exist(lk); err != nil {
			return err
		} else if exists {
			return status.New(status.KeyExists, "key already exists")
		}
	}
	var expireMs int64
	if opts.TTL > 0 {
		expireMs = nowMs() + opts.TTL.Milliseconds()
	}
	b := NewBatch()
	b.Put(keyForRaw(lk), codec.EncodeString(value, expireMs))
	_, err := e.applyLocal(b)
	return err
}

// Append atomically concatenates value onto the existing raw string
// (treating an absent key as empty) and returns the new length.
func (e *Engine) Append(lk types.LogicalKey, value string) (int, error) {
	key := keyForRaw(lk)
	var newLen int
	_, err := e.mutate(func() (*Batch, error) {
		base := ""
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
				base = raw.String
				expireMs = raw.ExpireMs
			}
		}
		newVal := base + value
		newLen = len(newVal)
		b := NewBatch()
		b.Put(key, codec.EncodeString(newVal, expireMs))
		return b, nil
	})
	if err != nil {
		return 0, err
	}
	return newLen, nil
}

// MSet writes each pair, reporting a per-key error so partial failures are
// reported individually rather than aborting the whole batch.
func (e *Engine) MSet(pairs map[types.LogicalKey]string) map[types.LogicalKey]error {
	results := make(map[types.LogicalKey]error, len(pairs))
	for lk, v := range pairs {
		results[lk] = e.Set(lk, v)
	}
	return results
}

// MGet reads each key, reporting NotFound per-key rather than failing the
// whole request.
func (e *Engine) MGet(keys []types.LogicalKey) map[types.LogicalKey]MGetResult {
	results := make(map[types.LogicalKey]MGetResult, len(keys))
	for _, lk := range keys {
		v, err := e.Get(lk)
		results[lk] = MGetResult{Value: v, Err: err}
	}
	return results
}

type MGetResult struct {
	Value string
	Err   error
}
