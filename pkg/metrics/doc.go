// Package metrics defines and registers Laser's Prometheus metrics:
// per-partition write/read latency, replication throughput and lag, RPC
// latency, and traffic-governance admission counts (spec.md §4.3 "Metrics
// exposed"). Names are logical per the spec ("map to any metrics sink");
// this package maps them onto prometheus/client_golang, the sink the rest
// of this codebase already depends on.
//
// RegisterCustomGauge is an extension point standing in for the original's
// per-table custom property meters (replication_db.h's
// custom_properties_meters_): a table's engine options can request
// additional property-backed gauges without the Replication DB knowing
// about them ahead of time.
package metrics
