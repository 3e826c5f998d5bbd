// Package router implements the Partition Router (spec.md §4.5): given a
// logical key, it computes the owning partition id, looks the partition up
// in the node's local assignment map, and returns the registered Replication
// DB handle for it, honoring the caller's read-mode policy (spec.md §4.6).
//
// Hashing is done with murmur3 rather than a hand-rolled hash: the router
// needs a stable, well-distributed hash over arbitrary byte tuples, which is
// exactly what the corpus reaches for murmur3 for elsewhere (partition/shard
// placement). types.PartitionDBHash (FNV-64) is a different, narrower hash:
// it derives the db_hash identity for a known (database, table, partition),
// not the key-to-partition placement this package computes.
package router
