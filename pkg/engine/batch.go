package engine

import (
	"bytes"
	"encoding/gob"
)

type mutationOp byte

const (
	opPut mutationOp = iota
	opDelete
)

// Mutation is one physical key write or delete within a Batch.
type Mutation struct {
	Op    mutationOp
	Key   []byte
	Value []byte // unused for Delete
}

// Batch is the single write-batch abstraction every engine mutation goes
// through (spec.md §4.2 "Algorithmic notes"): one Batch becomes exactly one
// committed seq_no and one WAL record, so followers apply it atomically.
type Batch struct {
	mutations []Mutation
}

func NewBatch() *Batch { return &Batch{} }

func (b *Batch) Put(key, value []byte) {
	b.mutations = append(b.mutations, Mutation{Op: opPut, Key: append([]byte(nil), key...), Value: append([]byte(nil), value...)})
}

func (b *Batch) Delete(key []byte) {
	b.mutations = append(b.mutations, Mutation{Op: opDelete, Key: append([]byte(nil), key...)})
}

func (b *Batch) Len() int { return len(b.mutations) }

// Encode serializes the batch for WAL storage and for shipping over the
// log-tailing RPC as write_batch_bytes.
func (b *Batch) Encode() ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(b.mutations); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DecodeBatch reverses Encode, used by followers applying a pulled batch and
// by bulk-transfer recovery.
func DecodeBatch(data []byte) (*Batch, error) {
	var muts []Mutation
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&muts); err != nil {
		return nil, err
	}
	return &Batch{mutations: muts}, nil
}
