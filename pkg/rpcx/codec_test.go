package rpcx

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGobCodecRoundTrip(t *testing.T) {
	c := gobCodec{}
	req := &ReplicateRequest{
		DBHash:              42,
		FromSeqNo:           7,
		MaxBatchCount:       100,
		MaxBatchBytes:       4096,
		FollowerNodeHash:    99,
		FollowerServiceAddr: "10.0.0.1:9000",
		Type:                ReplicateLogTail,
	}
	data, err := c.Marshal(req)
	require.NoError(t, err)

	var out ReplicateRequest
	require.NoError(t, c.Unmarshal(data, &out))
	require.Equal(t, *req, out)
}

func TestGobCodecName(t *testing.T) {
	require.Equal(t, "gob", gobCodec{}.Name())
}
