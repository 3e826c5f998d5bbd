package metrics

import "time"

// PartitionStats is one partition's replication snapshot, as reported by
// the Replicator Manager (pkg/replicator).
type PartitionStats struct {
	Database       string
	Table          string
	Partition      string
	IsLeader       bool
	CommittedSeqNo uint64
	AppliedSeqNo   uint64
}

// StatsProvider is implemented by pkg/replicator's Manager. Collector
// depends on this narrow interface rather than the concrete type to avoid
// a metrics -> replicator -> metrics import cycle.
type StatsProvider interface {
	PartitionStats() []PartitionStats
}

// Collector periodically snapshots replication state into gauges that
// have no natural "on every write" call site (seq_no lag, leader/follower
// role), mirroring the ticker-driven collection the rest of this
// codebase's ambient stack uses for state that's cheaper to poll than to
// push.
type Collector struct {
	provider StatsProvider
	interval time.Duration
	stopCh   chan struct{}
}

// NewCollector creates a collector that polls provider every interval.
func NewCollector(provider StatsProvider, interval time.Duration) *Collector {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	return &Collector{
		provider: provider,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start begins collecting metrics in a background goroutine.
func (c *Collector) Start() {
	ticker := time.NewTicker(c.interval)
	go func() {
		c.collect()
		for {
			select {
			case <-ticker.C:
				c.collect()
			case <-c.stopCh:
				ticker.Stop()
				return
			}
		}
	}()
}

// Stop stops the collector.
func (c *Collector) Stop() {
	close(c.stopCh)
}

func (c *Collector) collect() {
	for _, p := range c.provider.PartitionStats() {
		leader := 0.0
		if p.IsLeader {
			leader = 1.0
		}
		IsLeaderGauge.WithLabelValues(p.Database, p.Table, p.Partition).Set(leader)

		diff := int64(p.CommittedSeqNo) - int64(p.AppliedSeqNo)
		SeqNoDiff.WithLabelValues(p.Database, p.Table, p.Partition).Set(float64(diff))
	}
}
