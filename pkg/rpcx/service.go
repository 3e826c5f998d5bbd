package rpcx

import (
	"context"

	"google.golang.org/grpc"
)

const serviceName = "laser.rpcx.Replicator"

// ReplicatorServer is implemented by the Replicator Manager (pkg/replicator)
// to host the two replication RPCs spec'd in spec.md §6.
type ReplicatorServer interface {
	Replicate(context.Context, *ReplicateRequest) (*ReplicateResponse, error)
	ReplicateWdt(context.Context, *ReplicateWdtRequest) (*ReplicateWdtResponse, error)
}

func replicateHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(ReplicateRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ReplicatorServer).Replicate(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + serviceName + "/Replicate"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(ReplicatorServer).Replicate(ctx, req.(*ReplicateRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func replicateWdtHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(ReplicateWdtRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ReplicatorServer).ReplicateWdt(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + serviceName + "/ReplicateWdt"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(ReplicatorServer).ReplicateWdt(ctx, req.(*ReplicateWdtRequest))
	}
	return interceptor(ctx, in, info, handler)
}

// ServiceDesc is the grpc.ServiceDesc a protoc-gen-go-grpc generator would
// normally emit; written by hand here since the payload type is a gob
// struct rather than a generated protobuf message.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*ReplicatorServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Replicate", Handler: func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
			return replicateHandler(srv, ctx, dec, interceptor)
		}},
		{MethodName: "ReplicateWdt", Handler: func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
			return replicateWdtHandler(srv, ctx, dec, interceptor)
		}},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "laser/rpcx.proto",
}

// RegisterReplicatorServer registers srv's handlers on s.
func RegisterReplicatorServer(s grpc.ServiceRegistrar, srv ReplicatorServer) {
	s.RegisterService(&ServiceDesc, srv)
}

// ReplicatorClient is a hand-rolled stub over grpc.ClientConn, mirroring
// what protoc-gen-go-grpc emits for a unary RPC pair.
type ReplicatorClient struct {
	cc *grpc.ClientConn
}

func NewReplicatorClient(cc *grpc.ClientConn) *ReplicatorClient {
	return &ReplicatorClient{cc: cc}
}

func (c *ReplicatorClient) Replicate(ctx context.Context, req *ReplicateRequest, opts ...grpc.CallOption) (*ReplicateResponse, error) {
	out := new(ReplicateResponse)
	opts = append(opts, grpc.CallContentSubtype(CodecName))
	if err := c.cc.Invoke(ctx, "/"+serviceName+"/Replicate", req, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *ReplicatorClient) ReplicateWdt(ctx context.Context, req *ReplicateWdtRequest, opts ...grpc.CallOption) (*ReplicateWdtResponse, error) {
	out := new(ReplicateWdtResponse)
	opts = append(opts, grpc.CallContentSubtype(CodecName))
	if err := c.cc.Invoke(ctx, "/"+serviceName+"/ReplicateWdt", req, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
