/*
Package types defines the logical data model shared by Laser's storage,
replication, routing, and dispatch layers.

A LogicalKey names a row by (database, table, primary key tuple, column key
tuple); the primary key tuple is what the router hashes to a partition. A
row's value is one of six kinds (raw string, counter, hash, set, list, sorted
set) — see ValueKind.

PartitionIdentity and ClusterInfo describe the control-plane's view of who
owns which partition; Laser's components treat that assignment as externally
authoritative and never compute it themselves.
*/
package types
