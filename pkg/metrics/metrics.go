package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Partition Engine metrics
	WriteLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "laser_write_latency_seconds",
			Help:    "Write op latency, split by whether the write lock was contended",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"database", "table", "lock"},
	)

	ReadLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "laser_read_latency_seconds",
			Help:    "Read op latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"database", "table"},
	)

	ReadBytesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "laser_read_bytes_total",
			Help: "Bytes read, by database/table",
		},
		[]string{"database", "table"},
	)

	WriteBytesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "laser_write_bytes_total",
			Help: "Bytes written, by database/table",
		},
		[]string{"database", "table"},
	)

	ReadKps = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "laser_read_keys_total",
			Help: "Keys read, by database/table (divide by scrape interval for KPS)",
		},
		[]string{"database", "table"},
	)

	WriteKps = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "laser_write_keys_total",
			Help: "Keys written, by database/table (divide by scrape interval for KPS)",
		},
		[]string{"database", "table"},
	)

	// Replication metrics
	PullRPCLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "laser_pull_rpc_latency_seconds",
			Help:    "Follower pull-loop RPC round trip latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"database", "table", "partition"},
	)

	ApplyBatchTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "laser_apply_batch_total",
			Help: "Replicated write batches applied by a follower",
		},
		[]string{"database", "table", "partition"},
	)

	ApplyBatchLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "laser_apply_batch_latency_seconds",
			Help:    "Time to apply one replicated write batch",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"database", "table", "partition"},
	)

	ReplicationEndToEndLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "laser_replication_e2e_latency_seconds",
			Help:    "Wall-clock time from leader commit to follower apply",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"database", "table", "partition"},
	)

	SeqNoDiff = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "laser_leader_follower_seq_no_diff",
			Help: "leader.committed_seq_no - follower.applied_seq_no",
		},
		[]string{"database", "table", "partition"},
	)

	BulkTransfersTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "laser_bulk_transfers_total",
			Help: "Bulk-transfer fallback sessions started, by outcome",
		},
		[]string{"database", "table", "outcome"},
	)

	// Traffic governance metrics
	AdmissionDeniedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "laser_admission_denied_total",
			Help: "Ops rejected by the Service Dispatcher's traffic governance, by reason",
		},
		[]string{"database", "table", "command", "reason"},
	)

	// Role state
	IsLeaderGauge = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "laser_partition_is_leader",
			Help: "1 if this node currently serves a partition as leader, else 0",
		},
		[]string{"database", "table", "partition"},
	)
)

func init() {
	prometheus.MustRegister(
		WriteLatency,
		ReadLatency,
		ReadBytesTotal,
		WriteBytesTotal,
		ReadKps,
		WriteKps,
		PullRPCLatency,
		ApplyBatchTotal,
		ApplyBatchLatency,
		ReplicationEndToEndLatency,
		SeqNoDiff,
		BulkTransfersTotal,
		AdmissionDeniedTotal,
		IsLeaderGauge,
	)
}

// Handler returns the Prometheus HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer is a helper for timing operations.
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ObserveDuration records the duration to a histogram.
func (t *Timer) ObserveDuration(histogram prometheus.Histogram) {
	histogram.Observe(time.Since(t.start).Seconds())
}

// ObserveDurationVec records the duration to a histogram vec with labels.
func (t *Timer) ObserveDurationVec(histogram prometheus.ObserverVec, labels ...string) {
	histogram.WithLabelValues(labels...).Observe(time.Since(t.start).Seconds())
}

// Duration returns the elapsed time since the timer started.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}

var (
	customGaugesMu sync.Mutex
	customGauges   = map[string]*prometheus.GaugeFunc{}
)

// RegisterCustomGauge registers a property-backed gauge under name, backed
// by fn, without requiring the caller (a table's engine options) to be
// known to this package ahead of time — the Go counterpart of the
// original's custom_properties_meters_ extension point. Re-registering an
// already-registered name is a no-op.
func RegisterCustomGauge(name string, fn func() float64) {
	customGaugesMu.Lock()
	defer customGaugesMu.Unlock()
	if _, exists := customGauges[name]; exists {
		return
	}
	g := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: name,
		Help: "Custom per-table property gauge registered at runtime",
	}, fn)
	if err := prometheus.Register(g); err != nil {
		return
	}
	customGauges[name] = &g
}
