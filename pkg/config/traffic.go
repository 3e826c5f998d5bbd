package config

import "github.com/algo-data-platform/laser/pkg/dispatcher"

// TrafficRestrictionDoc is the versioned, whole-document form of per-table
// traffic-restriction rules (spec.md §4.7), pushed to the Watcher and
// fanned out into a dispatcher.TrafficRegistry.
type TrafficRestrictionDoc struct {
	Rules   map[string]dispatcher.TrafficRestrictionConfig `yaml:"rules"`
	Version int64                                          `yaml:"version"`
}
