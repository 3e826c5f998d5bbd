// Package replication implements Laser's Replication DB (spec.md §4.3): a
// Partition Engine wrapped with a leader/follower role, a pull-based
// log-tailing client/server pair, a bulk-transfer fallback for followers
// too far behind the leader's retained log, and a cache of in-progress
// tailing positions keyed by follower.
//
// Role transitions are driven externally by the control plane (pkg/router's
// caller); this package never elects a leader itself. The pull loop and the
// leader-side RPC handler are the two halves of the protocol: a follower's
// DB runs the loop, a leader's DB answers Replicate/ReplicateWdt through
// pkg/rpcx's ReplicatorServer interface.
package replication
