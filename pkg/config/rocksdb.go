package config

import "fmt"

// EngineOptions is a table's or node's storage-engine tuning knobs, ported
// from original_source/laser_entity.h's RocksDbConfig. bbolt has no
// block-cache/write-buffer/shard-bits equivalent; these fields are carried
// through as opaque, informational config rather than applied to bbolt
// directly, since the Partition Engine has nothing to tune them against.
type EngineOptions struct {
	BlockCacheGB        float64 `yaml:"block_cache_gb"`
	WriteBufferGB       float64 `yaml:"write_buffer_gb"`
	ShardBits           int     `yaml:"shard_bits"`
	HighPriPoolRatio    float64 `yaml:"high_pri_pool_ratio"`
	StrictCapacityLimit bool    `yaml:"strict_capacity_limit"`
}

// String mirrors the original's describe() method: a stable, readable
// one-line rendering used for logging config changes.
func (o EngineOptions) String() string {
	return fmt.Sprintf(
		"block_cache_gb=%.2f write_buffer_gb=%.2f shard_bits=%d high_pri_pool_ratio=%.2f strict_capacity_limit=%t",
		o.BlockCacheGB, o.WriteBufferGB, o.ShardBits, o.HighPriPoolRatio, o.StrictCapacityLimit,
	)
}
