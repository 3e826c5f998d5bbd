package replication

import (
	"context"
	"math/rand"
	"path/filepath"
	"time"

	"github.com/algo-data-platform/laser/pkg/engine"
	"github.com/algo-data-platform/laser/pkg/log"
	"github.com/algo-data-platform/laser/pkg/metrics"
	"github.com/algo-data-platform/laser/pkg/rpcx"
	"github.com/algo-data-platform/laser/pkg/status"
	"github.com/algo-data-platform/laser/pkg/types"
)

// startPullLoop launches the follower's pull loop goroutine (spec.md §4.3
// "Pull loop"). No-op if already running.
func (db *DB) startPullLoop() {
	if db.pullCancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	db.pullCancel = cancel
	db.pullDone = make(chan struct{})
	go db.runPullLoop(ctx)
}

// stopPullLoop stops the pull loop and waits for it to exit, per spec.md
// §4.3 "Follower→Leader: stop the pull loop".
func (db *DB) stopPullLoop() {
	if db.pullCancel == nil {
		return
	}
	db.pullCancel()
	<-db.pullDone
	db.pullCancel = nil
}

func (db *DB) runPullLoop(ctx context.Context) {
	defer close(db.pullDone)
	logger := log.WithPartition(db.Identity.Database, db.Identity.Table, partitionIDString(db.Identity.PartitionID))
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if err := db.pullOnce(ctx); err != nil && ctx.Err() == nil {
			logger.Warn().Err(err).Msg("pull cycle failed, retrying after backoff")
		}

		sleep := db.cfg.PullIdleInterval
		if db.cfg.PullJitter > 0 {
			sleep += time.Duration(rand.Int63n(int64(db.cfg.PullJitter)))
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(sleep):
		}
	}
}

// pullOnce runs one iteration of spec.md §4.3's pull loop steps 1-5.
func (db *DB) pullOnce(ctx context.Context) error {
	if db.client == nil {
		return status.New(status.SourceNotFound, "no upstream leader client configured")
	}
	if db.forceBase.Load() {
		return db.runBulkTransfer(ctx)
	}

	fromSeq := db.eng.SeqNo() + 1
	req := &rpcx.ReplicateRequest{
		DBHash:              int64(db.dbHash()),
		FromSeqNo:           fromSeq,
		MaxBatchCount:       db.cfg.MaxBatchCount,
		MaxBatchBytes:       db.cfg.MaxBatchBytes,
		FollowerNodeHash:    db.cfg.FollowerNodeHash,
		FollowerServiceAddr: db.cfg.FollowerServiceAddr,
		Type:                rpcx.ReplicateLogTail,
	}

	callCtx, cancel := context.WithTimeout(ctx, db.cfg.CallTimeout)
	defer cancel()

	timer := metrics.NewTimer()
	resp, err := db.client.Replicate(callCtx, req)
	timer.ObserveDurationVec(metrics.PullRPCLatency, db.Identity.Database, db.Identity.Table, partitionIDString(db.Identity.PartitionID))
	if err != nil {
		// RPC transport errors (including a receive timeout) are swallowed
		// and retried by the pull loop (spec.md §5 "expiry triggers retry at
		// the caller"); the caller only sees them via logs/metrics.
		if callCtx.Err() == context.DeadlineExceeded {
			return status.Wrap(status.CallTimeout, "pull RPC receive timeout", err)
		}
		return err
	}

	if resp.NeedsBaseTransfer {
		return db.runBulkTransfer(ctx)
	}

	applyTimer := metrics.NewTimer()
	for _, u := range resp.Updates {
		b, err := engine.DecodeBatch(u.WriteBatchBytes)
		if err != nil {
			return status.Wrap(status.Corruption, "decode replicated batch", err)
		}
		if err := db.eng.ApplyReplicated(b, u.SeqNo, int64(u.LeaderMs)); err != nil {
			return err
		}
		metrics.ApplyBatchTotal.WithLabelValues(db.Identity.Database, db.Identity.Table, partitionIDString(db.Identity.PartitionID)).Inc()
	}
	if len(resp.Updates) > 0 {
		applyTimer.ObserveDurationVec(metrics.ApplyBatchLatency, db.Identity.Database, db.Identity.Table, partitionIDString(db.Identity.PartitionID))
	}

	lag := int64(resp.LeaderMaxSeqNo) - int64(db.eng.SeqNo())
	metrics.SeqNoDiff.WithLabelValues(db.Identity.Database, db.Identity.Table, partitionIDString(db.Identity.PartitionID)).Set(float64(lag))
	if db.cfg.TooFarBehindSeq > 0 && uint64(lag) > db.cfg.TooFarBehindSeq {
		return db.runBulkTransfer(ctx)
	}
	return nil
}

// runBulkTransfer executes the follower side of spec.md §4.3's fallback:
// negotiate a session, fetch the snapshot, ingest it, and resume tailing
// from the snapshot's embedded seq_no.
func (db *DB) runBulkTransfer(ctx context.Context) error {
	negotiateCtx, negotiateCancel := context.WithTimeout(ctx, db.cfg.CallTimeout)
	defer negotiateCancel()
	resp, err := db.client.ReplicateWdt(negotiateCtx, &rpcx.ReplicateWdtRequest{
		DBHash:           int64(db.dbHash()),
		FollowerNodeHash: db.cfg.FollowerNodeHash,
	})
	if err != nil {
		if negotiateCtx.Err() == context.DeadlineExceeded {
			return status.Wrap(status.CallTimeout, "bulk transfer negotiation receive timeout", err)
		}
		return err
	}

	// abort_timeout_ms (spec.md §4.3): aborts both ends deterministically
	// instead of letting a stalled transfer hang the pull loop forever.
	fetchCtx, fetchCancel := context.WithTimeout(ctx, db.cfg.BulkAbortTimeout)
	defer fetchCancel()

	tempPath := filepath.Join(db.eng.DataDir(), "bulk-transfer.tmp")
	if err := fetchAndIngestBase(fetchCtx, db.eng, resp.ConnectURL, db.eng.SeqNo(), tempPath); err != nil {
		metrics.BulkTransfersTotal.WithLabelValues(db.Identity.Database, db.Identity.Table, "failed").Inc()
		return err
	}

	db.setBaseVersion(resp.BaseVersion)
	db.forceBase.Store(false)
	metrics.BulkTransfersTotal.WithLabelValues(db.Identity.Database, db.Identity.Table, "succeeded").Inc()
	return nil
}

// dbHash derives this DB's db_hash from its partition identity, the same
// way pkg/router derives it when resolving a request (types.PartitionDBHash).
func (db *DB) dbHash() uint64 {
	return uint64(types.PartitionDBHash(db.Identity.Database, db.Identity.Table, db.Identity.PartitionID))
}
