package replicator

import (
	"net"
	"strconv"

	"github.com/algo-data-platform/laser/pkg/rpcx"
	"google.golang.org/grpc"
)

func partitionIDString(id uint32) string {
	return strconv.FormatUint(uint64(id), 10)
}

// Server hosts the Manager's Replicate/ReplicateWdt RPCs on a gRPC listener,
// mirroring the teacher's pkg/api server bootstrap (grpc.NewServer plus a
// net.Listener run in a goroutine) without the mTLS machinery spec.md
// explicitly leaves to an external collaborator.
type Server struct {
	grpcServer *grpc.Server
	manager    *Manager
}

// NewServer wraps manager with a gRPC server that answers rpcx.ServiceDesc
// using the gob codec (pkg/rpcx).
func NewServer(manager *Manager, opts ...grpc.ServerOption) *Server {
	s := grpc.NewServer(opts...)
	rpcx.RegisterReplicatorServer(s, manager)
	return &Server{grpcServer: s, manager: manager}
}

// Serve blocks accepting connections on lis until the server is stopped.
func (s *Server) Serve(lis net.Listener) error {
	return s.grpcServer.Serve(lis)
}

// Stop gracefully stops the gRPC server.
func (s *Server) Stop() {
	s.grpcServer.GracefulStop()
}
