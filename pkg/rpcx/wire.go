package rpcx

// ReplicateType distinguishes a real log-tailing pull from a lightweight
// status probe (spec.md §6 request field "type:enum{LogTail, StatusOnly}").
type ReplicateType uint8

const (
	ReplicateLogTail ReplicateType = iota
	ReplicateStatusOnly
)

// ReplicateRequest is a follower's pull-loop request to the leader's
// Replicator Manager.
type ReplicateRequest struct {
	DBHash             int64
	FromSeqNo          uint64
	MaxBatchCount      uint32
	MaxBatchBytes      uint32
	FollowerNodeHash   int64
	FollowerServiceAddr string
	Type               ReplicateType
}

// ReplicateUpdate is one committed write batch as shipped over the wire.
type ReplicateUpdate struct {
	SeqNo           uint64
	WriteBatchBytes []byte
	LeaderMs        uint64
}

// ReplicateResponse answers a ReplicateRequest.
type ReplicateResponse struct {
	Updates           []ReplicateUpdate
	LeaderMaxSeqNo    uint64
	NeedsBaseTransfer bool
	BaseVersion       string
	Status            int32 // status.Code, kept numeric to avoid an import cycle on the wire type
}

// ReplicateWdtRequest asks the leader to stand up a bulk-transfer session
// (named after the original's receiver-initiated Wdt file-transfer tool;
// Laser's own transport is a plain HTTP fetch of the whole checkpoint file,
// see pkg/replication).
type ReplicateWdtRequest struct {
	DBHash           int64
	FollowerNodeHash int64
}

// ReplicateWdtResponse carries the connection details for the bulk-transfer
// session the leader just created.
type ReplicateWdtResponse struct {
	ConnectURL  string
	BaseVersion string
	Namespace   string
	Identifier  string
}
