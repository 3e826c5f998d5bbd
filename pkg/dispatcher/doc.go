// Package dispatcher implements the Service Dispatcher (spec.md §4.6): the
// top-level per-request handler that enforces table-level traffic
// governance, routes (sub-)keys through the Partition Router, executes
// against the partition engine, and aggregates per-key results for
// multi-key operations.
//
// It also applies write-role enforcement: on a write, the Dispatcher
// resolves the partition under WriteMode, and the Router's Resolve refuses
// with WriteInFollower if the local replica is a follower, rather than letting
// the write reach the engine (spec.md §4.3 "On follower, external write
// calls fail with WriteInFollower").
package dispatcher
