// Package engine implements Laser's Partition Engine (spec.md §4.2): a
// single-writer, multi-reader log-structured KV store for one (table,
// partition) pair.
//
// Physical storage is a bbolt file (ordered, mmap'd B+tree — bbolt's cursor
// range-scan over a single bucket gives the codec's prefix-scan property
// for free) fronted by a raft-boltdb log store used purely as a durable,
// seq_no-indexed write-ahead log: every committed write batch is appended as
// a raft.Log record (Index = seq_no, Data = an envelope holding the batch's
// encoded mutations and the leader-stamped commit time in ms; AppendedAt is
// left unset) without running any of
// raft's leader election or consensus — role is assigned externally per
// spec.md §4.3, and the replication pull loop tails this log directly.
package engine
