package config

import (
	"sync"

	"github.com/algo-data-platform/laser/pkg/dispatcher"
	"github.com/algo-data-platform/laser/pkg/log"
)

// versionHash derives a 64-bit hash of (configName, version), used to
// suppress a reopen/rebuild when a freshly pushed document is unchanged
// (spec.md §4.7 "Option comparisons use a 64-bit version hash"). This is
// deliberately separate from types.PartitionDBHash: that hash identifies a
// partition's db_hash, this one only compares two version stamps.
func versionHash(configName string, version int64) uint64 {
	const offset64 = 14695981039346656037
	const prime64 = 1099511628211
	h := uint64(offset64)
	for i := 0; i < len(configName); i++ {
		h ^= uint64(configName[i])
		h *= prime64
	}
	v := uint64(version)
	for i := 0; i < 8; i++ {
		h ^= v & 0xff
		h *= prime64
		v >>= 8
	}
	return h
}

// Watcher is the Config Watcher (spec.md §4.7): it holds the three
// documents a node needs, applies pushed updates atomically, and notifies
// subscribers only when a document's version hash actually changed.
type Watcher struct {
	mu sync.RWMutex

	node     NodeConfig
	nodeHash uint64

	tables     TableConfigList
	tablesHash uint64

	traffic     TrafficRestrictionDoc
	trafficHash uint64

	registry    *dispatcher.TrafficRegistry
	subscribers []func()
}

// New builds an empty Watcher that fans TrafficRestrictionDoc pushes out
// into registry.
func New(registry *dispatcher.TrafficRegistry) *Watcher {
	return &Watcher{registry: registry}
}

// Subscribe registers fn to be called (synchronously, from the Push* call)
// whenever any document changes.
func (w *Watcher) Subscribe(fn func()) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.subscribers = append(w.subscribers, fn)
}

func (w *Watcher) notifyLocked() {
	for _, fn := range w.subscribers {
		fn()
	}
}

// PushNodeConfig installs cfg if its version differs from the currently
// held one, returning whether it was applied.
func (w *Watcher) PushNodeConfig(cfg NodeConfig) bool {
	h := versionHash("node", cfg.Version)
	w.mu.Lock()
	defer w.mu.Unlock()
	if h == w.nodeHash {
		return false
	}
	w.node, w.nodeHash = cfg, h
	log.Logger.Info().Str("component", "config").Str("node_config", cfg.String()).Msg("node config updated")
	w.notifyLocked()
	return true
}

// NodeConfig returns the currently held NodeConfig.
func (w *Watcher) NodeConfig() NodeConfig {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.node
}

// PushTableConfigList installs l if its version differs from the currently
// held one.
func (w *Watcher) PushTableConfigList(l TableConfigList) bool {
	h := versionHash("table_config_list", l.Version)
	w.mu.Lock()
	defer w.mu.Unlock()
	if h == w.tablesHash {
		return false
	}
	w.tables, w.tablesHash = l, h
	log.Logger.Info().Str("component", "config").Int64("version", l.Version).Int("tables", len(l.Tables)).Msg("table config list updated")
	w.notifyLocked()
	return true
}

// TableConfig returns (database, table)'s engine options, falling back to
// the "default" entry.
func (w *Watcher) TableConfig(database, table string) (TableConfig, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.tables.For(database, table)
}

// PushTrafficRestriction installs doc if its version differs from the
// currently held one, and fans every table's rule out into the
// dispatcher.TrafficRegistry this Watcher was built with.
func (w *Watcher) PushTrafficRestriction(doc TrafficRestrictionDoc) bool {
	h := versionHash("traffic_restriction", doc.Version)
	w.mu.Lock()
	defer w.mu.Unlock()
	if h == w.trafficHash {
		return false
	}
	w.traffic, w.trafficHash = doc, h
	for key, rule := range doc.Rules {
		database, table := splitTableKey(key)
		w.registry.SetRule(database, table, rule)
	}
	log.Logger.Info().Str("component", "config").Int64("version", doc.Version).Int("rules", len(doc.Rules)).Msg("traffic restriction config updated")
	w.notifyLocked()
	return true
}

func splitTableKey(key string) (database, table string) {
	for i := 0; i < len(key); i++ {
		if key[i] == '/' {
			return key[:i], key[i+1:]
		}
	}
	return key, ""
}
