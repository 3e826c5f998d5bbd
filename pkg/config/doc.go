// Package config implements the Config Watcher (spec.md §4.7): a reactive
// holder of the three documents a node needs to serve traffic —
// NodeConfig (resource caps and time-banded rate limits), TableConfigList
// (per-table engine options, with a distinguished "default" entry), and
// TrafficRestrictionConfig (per-table admission rules, spec.md §4.6).
//
// Documents arrive pre-parsed via Push* calls from an out-of-scope
// control-plane channel (spec.md §1's external-collaborator non-goal); a
// new document replaces the previous one atomically and subscribers are
// notified only if its version hash actually changed. For local development
// and tests, Load*File helpers parse YAML fixtures directly.
package config
