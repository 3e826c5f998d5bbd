package dispatcher

import (
	"github.com/algo-data-platform/laser/pkg/log"
	"github.com/algo-data-platform/laser/pkg/metrics"
	"github.com/algo-data-platform/laser/pkg/router"
	"github.com/algo-data-platform/laser/pkg/status"
	"github.com/algo-data-platform/laser/pkg/types"
)

// KeyResult is one sub-key's outcome within a multi-key response, positionally
// aligned with the input key vector (spec.md §4.6 step 4).
type KeyResult struct {
	PrimaryKey []string
	Value      string
	Err        error
}

// KVPair is one sub-key/value input to a multi-key write.
type KVPair struct {
	PrimaryKey []string
	Value      string
}

// Dispatcher is the Service Dispatcher (spec.md §4.6): the top-level
// request handler sitting in front of the Router.
type Dispatcher struct {
	router *router.Router
	admit  *Admitter
}

// New builds a Dispatcher over r, admitting traffic per registry's rules.
func New(r *router.Router, registry *TrafficRegistry) *Dispatcher {
	return &Dispatcher{router: r, admit: NewAdmitter(registry)}
}

// Get executes a single-key read under the given read-mode policy.
func (d *Dispatcher) Get(database, table string, primaryKey []string, mode router.ReadMode) (string, error) {
	const cmd = "get"
	if err := d.admit.AdmitSingle(database, table, cmd); err != nil {
		return "", err
	}
	db, _, err := d.router.Resolve(database, table, primaryKey, mode)
	if err != nil {
		return "", err
	}
	lk := types.LogicalKey{Database: database, Table: table, PrimaryKey: primaryKey}
	return db.Engine().Get(lk)
}

// Set executes a single-key write. Writes always resolve under WriteMode,
// so a follower replica is refused with WriteInFollower by the Router's
// role check before the engine is ever touched.
func (d *Dispatcher) Set(database, table string, primaryKey []string, value string) error {
	const cmd = "set"
	if err := d.admit.AdmitSingle(database, table, cmd); err != nil {
		return err
	}
	db, _, err := d.router.Resolve(database, table, primaryKey, router.WriteMode)
	if err != nil {
		return err
	}
	lk := types.LogicalKey{Database: database, Table: table, PrimaryKey: primaryKey}
	return db.Engine().Set(lk, value)
}

// MGet executes a multi-key read, returning a per-key outcome vector
// positionally aligned with keys. A QPS limit admits or rejects the whole
// batch up front; a KPS limit produces mixed per-key admission outcomes.
func (d *Dispatcher) MGet(database, table string, keys [][]string, mode router.ReadMode) []KeyResult {
	const cmd = "mget"
	results := make([]KeyResult, len(keys))
	admitted, err := d.admit.AdmitMulti(database, table, cmd, len(keys))
	if err != nil {
		for i, k := range keys {
			results[i] = KeyResult{PrimaryKey: k, Err: err}
		}
		return results
	}

	for i, k := range keys {
		if admitted != nil && !admitted[i] {
			results[i] = KeyResult{PrimaryKey: k, Err: status.New(status.TrafficRestriction, "traffic restriction limit exceeded")}
			continue
		}
		db, _, rerr := d.router.Resolve(database, table, k, mode)
		if rerr != nil {
			results[i] = KeyResult{PrimaryKey: k, Err: rerr}
			continue
		}
		lk := types.LogicalKey{Database: database, Table: table, PrimaryKey: k}
		v, gerr := db.Engine().Get(lk)
		results[i] = KeyResult{PrimaryKey: k, Value: v, Err: gerr}
	}
	logOutcome(database, table, cmd, len(keys), countFailures(results))
	metrics.ReadKps.WithLabelValues(database, table).Add(float64(len(keys)))
	return results
}

// MSet executes a multi-key write, same outcome-vector contract as MGet.
func (d *Dispatcher) MSet(database, table string, pairs []KVPair) []KeyResult {
	const cmd = "mset"
	results := make([]KeyResult, len(pairs))
	admitted, err := d.admit.AdmitMulti(database, table, cmd, len(pairs))
	if err != nil {
		for i, p := range pairs {
			results[i] = KeyResult{PrimaryKey: p.PrimaryKey, Err: err}
		}
		return results
	}

	for i, p := range pairs {
		if admitted != nil && !admitted[i] {
			results[i] = KeyResult{PrimaryKey: p.PrimaryKey, Err: status.New(status.TrafficRestriction, "traffic restriction limit exceeded")}
			continue
		}
		db, _, rerr := d.router.Resolve(database, table, p.PrimaryKey, router.WriteMode)
		if rerr != nil {
			results[i] = KeyResult{PrimaryKey: p.PrimaryKey, Err: rerr}
			continue
		}
		lk := types.LogicalKey{Database: database, Table: table, PrimaryKey: p.PrimaryKey}
		serr := db.Engine().Set(lk, p.Value)
		results[i] = KeyResult{PrimaryKey: p.PrimaryKey, Value: p.Value, Err: serr}
	}
	logOutcome(database, table, cmd, len(pairs), countFailures(results))
	metrics.WriteKps.WithLabelValues(database, table).Add(float64(len(pairs)))
	return results
}

func countFailures(results []KeyResult) int {
	n := 0
	for _, r := range results {
		if r.Err != nil {
			n++
		}
	}
	return n
}

func logOutcome(database, table, cmd string, keyCount, failures int) {
	logger := log.WithTable(database, table)
	ev := logger.Debug()
	if failures > 0 {
		ev = logger.Warn()
	}
	ev.Str("command", cmd).Int("keys", keyCount).Int("failures", failures).Msg("dispatched multi-key op")
}
