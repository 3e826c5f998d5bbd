package config

import (
	"fmt"
	"sort"
)

// RateLimitBand is one entry of a node's piecewise-constant, 24-hour
// I/O rate-limit schedule (spec.md §4.7 NodeConfig).
type RateLimitBand struct {
	BeginHour      int   `yaml:"begin_hour"`
	EndHour        int   `yaml:"end_hour"`
	RateBytesPerSec int64 `yaml:"rate_bytes_per_sec"`
}

func (b RateLimitBand) contains(hour int) bool {
	if b.BeginHour <= b.EndHour {
		return hour >= b.BeginHour && hour < b.EndHour
	}
	// a band that wraps past midnight, e.g. begin=22 end=2
	return hour >= b.BeginHour || hour < b.EndHour
}

// NodeConfig holds a node's resource caps and rate-limit schedule
// (spec.md §4.7).
type NodeConfig struct {
	EngineOptions EngineOptions   `yaml:"engine_options"`
	Bands         []RateLimitBand `yaml:"rate_limit_bands"`
	// DefaultRateBytesPerSec is used for any hour no band covers.
	DefaultRateBytesPerSec int64 `yaml:"default_rate_bytes_per_sec"`
	Version                int64 `yaml:"version"`
}

// String mirrors the original's describe().
func (c NodeConfig) String() string {
	return fmt.Sprintf("NodeConfig{version=%d, %s, bands=%d, default_rate=%d}",
		c.Version, c.EngineOptions, len(c.Bands), c.DefaultRateBytesPerSec)
}

// RateForHour returns the rate-limit band covering hour (0-23), or the
// default rate if the schedule has a gap at that hour.
func (c NodeConfig) RateForHour(hour int) int64 {
	for _, b := range c.Bands {
		if b.contains(hour) {
			return b.RateBytesPerSec
		}
	}
	return c.DefaultRateBytesPerSec
}

// nextTransitionHour returns the next hour strictly after hour at which the
// active band's rate could change (a beginHour or endHour boundary), and
// whether any band exists at all.
func (c NodeConfig) nextTransitionHour(hour int) (int, bool) {
	if len(c.Bands) == 0 {
		return 0, false
	}
	boundaries := make([]int, 0, len(c.Bands)*2)
	for _, b := range c.Bands {
		boundaries = append(boundaries, b.BeginHour%24, b.EndHour%24)
	}
	sort.Ints(boundaries)

	for _, h := range boundaries {
		if h > hour%24 {
			return h, true
		}
	}
	// wrap to the first boundary tomorrow
	return boundaries[0], true
}
