package replication

import (
	"context"

	"github.com/algo-data-platform/laser/pkg/log"
	"github.com/algo-data-platform/laser/pkg/metrics"
	"github.com/algo-data-platform/laser/pkg/rpcx"
	"github.com/algo-data-platform/laser/pkg/status"
)

// Replicate answers a follower's pull-loop request. It implements the
// leader side of spec.md §4.3 "Pull loop" step 3: serve in-order batches if
// the leader still retains fromSeqNo, request a bulk transfer otherwise,
// and park the caller briefly if it is already caught up to the log head
// (spec.md §5 "a leader that has no new updates parks the puller").
func (db *DB) Replicate(ctx context.Context, req *rpcx.ReplicateRequest) (*rpcx.ReplicateResponse, error) {
	timer := metrics.NewTimer()
	defer timer.ObserveDurationVec(metrics.PullRPCLatency, db.Identity.Database, db.Identity.Table, partitionIDString(db.Identity.PartitionID))

	if req.Type == rpcx.ReplicateStatusOnly {
		return &rpcx.ReplicateResponse{LeaderMaxSeqNo: db.eng.SeqNo(), Status: int32(status.OK)}, nil
	}

	current := db.eng.SeqNo()
	if req.FromSeqNo > current {
		// Follower claims to be ahead of us; nothing to serve yet. Park
		// briefly in case a write lands within the timeout.
		current = db.waitForSeqNo(ctx, req.FromSeqNo, db.cfg.ParkTimeout)
	}

	entries, err := db.eng.ReadLog(req.FromSeqNo, int(req.MaxBatchCount), int(req.MaxBatchBytes))
	if err != nil {
		if status.Is(err, status.SourceWalLogRemoved) {
			return &rpcx.ReplicateResponse{
				NeedsBaseTransfer: true,
				BaseVersion:       db.BaseVersion(),
				LeaderMaxSeqNo:    db.eng.SeqNo(),
				Status:            int32(status.SourceWalLogRemoved),
			}, nil
		}
		return nil, err
	}

	updates := make([]rpcx.ReplicateUpdate, len(entries))
	for i, e := range entries {
		updates[i] = rpcx.ReplicateUpdate{SeqNo: e.SeqNo, WriteBatchBytes: e.BatchBytes, LeaderMs: uint64(e.LeaderMs)}
	}
	if len(updates) > 0 {
		db.iterCache.touch(req.FollowerNodeHash, updates[len(updates)-1].SeqNo+1)
	}

	log.WithPartition(db.Identity.Database, db.Identity.Table, partitionIDString(db.Identity.PartitionID)).
		Debug().Int("updates", len(updates)).Uint64("from_seq_no", req.FromSeqNo).Msg("served replicate pull")

	return &rpcx.ReplicateResponse{
		Updates:        updates,
		LeaderMaxSeqNo: db.eng.SeqNo(),
		Status:         int32(status.OK),
	}, nil
}

// ReplicateWdt negotiates a bulk-transfer session (spec.md §4.3 "Bulk
// transfer (fallback)"): create (or join) a ref-counted checkpoint and hand
// the follower the connection details for pulling it.
func (db *DB) ReplicateWdt(ctx context.Context, req *rpcx.ReplicateWdtRequest) (*rpcx.ReplicateWdtResponse, error) {
	session, err := db.bulk.startSession(req.FollowerNodeHash)
	if err != nil {
		return nil, err
	}
	return &rpcx.ReplicateWdtResponse{
		ConnectURL:  session.connectURL,
		BaseVersion: session.baseVersion,
		Namespace:   session.namespace,
		Identifier:  session.identifier,
	}, nil
}
