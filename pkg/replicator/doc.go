// Package replicator implements the Replicator Manager (spec.md §4.4):
// a process-wide registry mapping a stable 64-bit db_hash to its
// Replication DB, and the gRPC endpoint that answers Replicate/ReplicateWdt
// calls by dispatching to the right registered DB.
//
// Lookups return a weak handle a caller must upgrade to a strong one before
// use; a failed upgrade means the partition has since been torn down, and
// the caller sees SourceNotFound rather than a stale or nil DB (spec.md §9
// "Weak references vs ownership cycles").
package replicator
