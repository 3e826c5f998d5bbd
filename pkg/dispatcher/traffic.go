package dispatcher

import "sync"

// LimitKind distinguishes how a multi-key command's limit is evaluated
// (spec.md §4.6 step 1).
type LimitKind uint8

const (
	// LimitQPS samples admission once for the whole batch, identically to
	// a single-key op.
	LimitQPS LimitKind = iota
	// LimitKPS samples admission independently per sub-key, after dispatch.
	LimitKPS
)

// OperationLimit is one command's configured admission rule.
type OperationLimit struct {
	Kind LimitKind
	// Percent is in [0,100]; admit if rand_1_100 <= Percent.
	Percent int
}

// TrafficRestrictionConfig is one table's traffic-restriction document
// (spec.md §4.7 TrafficRestrictionConfig).
type TrafficRestrictionConfig struct {
	DenyAll                 bool
	SingleOperationLimits   map[string]int
	MultipleOperationLimits map[string]OperationLimit
}

// TrafficRegistry holds the current TrafficRestrictionConfig per table,
// installed wholesale by the Config Watcher.
type TrafficRegistry struct {
	mu    sync.RWMutex
	rules map[string]TrafficRestrictionConfig
}

// NewTrafficRegistry returns an empty registry; tables with no installed
// rule fail every operation with OperationDenied (spec.md §4.6 step 1,
// "If no rule is configured for this command, fail with OperationDenied").
func NewTrafficRegistry() *TrafficRegistry {
	return &TrafficRegistry{rules: make(map[string]TrafficRestrictionConfig)}
}

// SetRule installs or replaces a table's traffic-restriction document.
func (r *TrafficRegistry) SetRule(database, table string, cfg TrafficRestrictionConfig) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rules[tableKey(database, table)] = cfg
}

func (r *TrafficRegistry) rule(database, table string) (TrafficRestrictionConfig, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cfg, ok := r.rules[tableKey(database, table)]
	return cfg, ok
}

func tableKey(database, table string) string {
	return database + "/" + table
}
