package engine

import (
	"bytes"
	"encoding/gob"

	"github.com/hashicorp/raft"
)

// walEnvelope is the Data payload of every raft.Log record this engine's WAL
// stores: the leader's millisecond commit timestamp plus the encoded write
// batch. Laser uses raft.Log purely as a durable, index-addressed log
// record — StoreLog/GetLog/FirstIndex/LastIndex — without ever running
// raft's election or replication RPCs; role assignment and log shipping are
// handled entirely by pkg/replication.
type walEnvelope struct {
	LeaderMs int64
	Batch    []byte
}

func encodeEnvelope(leaderMs int64, batch []byte) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(walEnvelope{LeaderMs: leaderMs, Batch: batch}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeEnvelope(data []byte) (walEnvelope, error) {
	var env walEnvelope
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&env); err != nil {
		return walEnvelope{}, err
	}
	return env, nil
}

func newRaftLog(seqNo uint64, leaderMs int64, batchBytes []byte) (*raft.Log, error) {
	data, err := encodeEnvelope(leaderMs, batchBytes)
	if err != nil {
		return nil, err
	}
	return &raft.Log{Index: seqNo, Term: 1, Type: raft.LogCommand, Data: data}, nil
}
