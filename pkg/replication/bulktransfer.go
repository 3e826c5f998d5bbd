package replication

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/algo-data-platform/laser/pkg/engine"
	"github.com/algo-data-platform/laser/pkg/status"
	"github.com/google/uuid"
)

// bulkSession is one receiver-initiated file-transfer session (spec.md
// §4.3 "Bulk transfer (fallback)"). Laser has no bundled bulk-copy tool
// equivalent to the original's Wdt (no such dependency appears anywhere in
// the retrieved corpus), so the leader side serves the checkpoint's data
// file over a short-lived net/http handler and the follower fetches it with
// a plain http.Client — the stdlib is the only grounded choice here, noted
// in DESIGN.md.
type bulkSession struct {
	namespace   string
	identifier  string
	connectURL  string
	baseVersion string
	checkpoint  *engine.Checkpoint
	createdAt   time.Time
}

// bulkCoordinator manages the leader side of bulk-transfer sessions for one
// engine: one checkpoint shared by every concurrent follower transfer
// (spec.md §5 "concurrent bulk transfers from the same leader share a
// single checkpoint"), ref-counted and released when every session using it
// completes or aborts.
type bulkCoordinator struct {
	eng *engine.Engine

	mu       sync.Mutex
	sessions map[string]*bulkSession
	shared   *engine.Checkpoint // the one outstanding checkpoint, if any
	sharedAt int64              // checkpoint's creation-time key

	addr string // advertised host:port for the transfer HTTP endpoint
}

func newBulkCoordinator(e *engine.Engine) *bulkCoordinator {
	return &bulkCoordinator{eng: e, sessions: make(map[string]*bulkSession)}
}

// SetTransferAddr configures the advertised address bulk-transfer connect
// URLs are built from. Must be called before any ReplicateWdt request if
// the process serves transfers on a non-default address.
func (bc *bulkCoordinator) SetTransferAddr(addr string) {
	bc.mu.Lock()
	bc.addr = addr
	bc.mu.Unlock()
}

// startSession creates (or joins) the shared checkpoint and returns a new
// session's connection details.
func (bc *bulkCoordinator) startSession(followerNodeHash int64) (*bulkSession, error) {
	bc.mu.Lock()
	defer bc.mu.Unlock()

	createdAt := bc.sharedAt
	if bc.shared == nil {
		createdAt = time.Now().UnixNano()
	}
	cp, err := bc.eng.Checkpoint(createdAt)
	if err != nil {
		return nil, status.Wrap(status.IOError, "create checkpoint for bulk transfer", err)
	}
	bc.shared = cp
	bc.sharedAt = createdAt

	id := uuid.NewString()
	session := &bulkSession{
		namespace:   fmt.Sprintf("laser-bulk-%d", bc.sharedAt),
		identifier:  id,
		connectURL:  fmt.Sprintf("http://%s/bulk?id=%s", bc.addr, id),
		baseVersion: fmt.Sprintf("v%d", bc.sharedAt),
		checkpoint:  bc.shared,
		createdAt:   time.Now(),
	}
	bc.sessions[id] = session
	return session, nil
}

// finishSession releases the session's reference on the shared checkpoint,
// physically removing it once every concurrent transfer has completed.
func (bc *bulkCoordinator) finishSession(id string) {
	bc.mu.Lock()
	defer bc.mu.Unlock()
	session, ok := bc.sessions[id]
	if !ok {
		return
	}
	delete(bc.sessions, id)
	_ = session.checkpoint.Release()
	if len(bc.sessions) == 0 {
		bc.shared = nil
	}
}

// Handler serves the shared checkpoint's data file for follower fetches.
// Mount under the path prefix used to build connectURL above.
func (bc *bulkCoordinator) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		bc.mu.Lock()
		id := r.URL.Query().Get("id")
		session, ok := bc.sessions[id]
		bc.mu.Unlock()
		if !ok {
			http.NotFound(w, r)
			return
		}
		http.ServeFile(w, r, session.checkpoint.DataFile)
		// A bulk-transfer session is scoped to exactly one snapshot copy
		// (spec.md §3 "Lifecycles"); release its checkpoint ref as soon as
		// that copy has been served.
		bc.finishSession(id)
	})
}

// fetchAndIngestBase is the follower side: download the leader's checkpoint
// data file over HTTP and atomically swap it in as the new base snapshot.
// ctx carries the session's abort_timeout_ms deadline (spec.md §4.3), so a
// stalled leader or a wedged transfer aborts deterministically instead of
// blocking the pull loop forever.
func fetchAndIngestBase(ctx context.Context, e *engine.Engine, connectURL string, baseSeqNo uint64, tempPath string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, connectURL, nil)
	if err != nil {
		return status.Wrap(status.SourceReadError, "build bulk transfer request", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return status.Wrap(status.FutureTimeout, "bulk transfer abort timeout", err)
		}
		return status.Wrap(status.SourceReadError, "fetch bulk transfer", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return status.Newf(status.SourceReadError, "bulk transfer fetch failed: HTTP %d", resp.StatusCode)
	}

	f, err := os.Create(tempPath)
	if err != nil {
		return status.Wrap(status.IOError, "create bulk transfer staging file", err)
	}
	defer f.Close()
	if _, err := io.Copy(f, resp.Body); err != nil {
		return status.Wrap(status.IOError, "write bulk transfer staging file", err)
	}

	return e.IngestBaseSst(tempPath, baseSeqNo)
}
