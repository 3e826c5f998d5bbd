// Package status defines Laser's error taxonomy and the tagged status codes
// every storage, policy, routing, RPC, and replication operation returns.
//
// Codes are ported from the original LaserDB's common/laser/status.h; the
// wrapping style (a Code plus an optional cause joined with %w) follows the
// rest of this codebase's error propagation.
package status
