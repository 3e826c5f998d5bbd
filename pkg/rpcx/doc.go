// Package rpcx carries Laser's two replication RPCs — log-tailing pull and
// bulk-transfer negotiation (spec.md §6 "External interfaces") — over
// gRPC's transport and streaming machinery, but not its usual protobuf wire
// format: request/response types here are plain Go structs encoded with
// gob, registered as a custom grpc codec (see codec.go). grpc.Server,
// grpc.ClientConn, and interceptor chains are used exactly as the teacher
// wires them; only the payload encoding differs.
package rpcx
