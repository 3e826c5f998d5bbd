package replication

import (
	"context"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/algo-data-platform/laser/pkg/types"
	"github.com/stretchr/testify/require"
)

func TestBulkTransferRoundTrip(t *testing.T) {
	leaderEngine := openTestEngine(t)
	k := types.LogicalKey{Database: "db0", Table: "t", PrimaryKey: []string{"k"}}
	require.NoError(t, leaderEngine.Set(k, "v1"))

	bc := newBulkCoordinator(leaderEngine)
	srv := httptest.NewServer(bc.Handler())
	defer srv.Close()
	host := srv.Listener.Addr().String()
	bc.SetTransferAddr(host)

	session, err := bc.startSession(99)
	require.NoError(t, err)
	require.Len(t, bc.sessions, 1)

	followerEngine := openTestEngine(t)
	tempPath := filepath.Join(followerEngine.DataDir(), "bulk-transfer.tmp")
	require.NoError(t, fetchAndIngestBase(context.Background(), followerEngine, session.connectURL, 0, tempPath))

	v, err := followerEngine.Get(k)
	require.NoError(t, err)
	require.Equal(t, "v1", v)

	// The session is released after being served exactly once.
	require.Len(t, bc.sessions, 0)
}

func TestBulkTransferSharedCheckpoint(t *testing.T) {
	leaderEngine := openTestEngine(t)
	bc := newBulkCoordinator(leaderEngine)

	s1, err := bc.startSession(1)
	require.NoError(t, err)
	s2, err := bc.startSession(2)
	require.NoError(t, err)
	require.Equal(t, s1.checkpoint.Dir, s2.checkpoint.Dir)

	bc.finishSession(s1.identifier)
	require.NotNil(t, bc.shared, "checkpoint must survive while session 2 is still outstanding")

	bc.finishSession(s2.identifier)
	require.Nil(t, bc.shared)
}
