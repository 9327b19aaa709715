// Package api declares the workoutlog gRPC services. Messages are protobuf
// well-known types (structpb, wrapperspb, emptypb), so the service
// descriptors are written by hand instead of generated.
//
// Auth:
//
//	CreateCredential(Struct{identifier, secret}) -> Struct{subject_id, access_token}
//	ValidateCredential(Struct{identifier, secret}) -> Struct{subject_id, access_token}
//	Invalidate(Empty) -> Empty
//
// Data:
//
//	Read(StringValue path) -> Value (null when absent)
//	Write(Struct{path, value}) -> Empty
//	Append(Struct{path, value}) -> StringValue key
//	Subscribe(StringValue path) -> stream Value
package api

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

const (
	AuthServiceName = "workoutlog.v1.Auth"
	DataServiceName = "workoutlog.v1.Data"

	MethodCreateCredential   = "/workoutlog.v1.Auth/CreateCredential"
	MethodValidateCredential = "/workoutlog.v1.Auth/ValidateCredential"
	MethodInvalidate         = "/workoutlog.v1.Auth/Invalidate"

	MethodRead      = "/workoutlog.v1.Data/Read"
	MethodWrite     = "/workoutlog.v1.Data/Write"
	MethodAppend    = "/workoutlog.v1.Data/Append"
	MethodSubscribe = "/workoutlog.v1.Data/Subscribe"
)

type AuthServer interface {
	CreateCredential(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ValidateCredential(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Invalidate(context.Context, *emptypb.Empty) (*emptypb.Empty, error)
}

type DataServer interface {
	Read(context.Context, *wrapperspb.StringValue) (*structpb.Value, error)
	Write(context.Context, *structpb.Struct) (*emptypb.Empty, error)
	Append(context.Context, *structpb.Struct) (*wrapperspb.StringValue, error)
	Subscribe(*wrapperspb.StringValue, DataSubscribeServer) error
}

// DataSubscribeServer is the server side of a Subscribe stream.
type DataSubscribeServer interface {
	Send(*structpb.Value) error
	grpc.ServerStream
}

func RegisterAuthServer(s grpc.ServiceRegistrar, srv AuthServer) {
	s.RegisterService(&AuthServiceDesc, srv)
}

func RegisterDataServer(s grpc.ServiceRegistrar, srv DataServer) {
	s.RegisterService(&DataServiceDesc, srv)
}

var AuthServiceDesc = grpc.ServiceDesc{
	ServiceName: AuthServiceName,
	HandlerType: (*AuthServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "CreateCredential",
			Handler: unaryHandler(MethodCreateCredential, func(srv any, ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
				return srv.(AuthServer).CreateCredential(ctx, in)
			}),
		},
		{
			MethodName: "ValidateCredential",
			Handler: unaryHandler(MethodValidateCredential, func(srv any, ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
				return srv.(AuthServer).ValidateCredential(ctx, in)
			}),
		},
		{
			MethodName: "Invalidate",
			Handler: unaryHandler(MethodInvalidate, func(srv any, ctx context.Context, in *emptypb.Empty) (*emptypb.Empty, error) {
				return srv.(AuthServer).Invalidate(ctx, in)
			}),
		},
	},
	Metadata: "workoutlog/v1/auth",
}

var DataServiceDesc = grpc.ServiceDesc{
	ServiceName: DataServiceName,
	HandlerType: (*DataServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Read",
			Handler: unaryHandler(MethodRead, func(srv any, ctx context.Context, in *wrapperspb.StringValue) (*structpb.Value, error) {
				return srv.(DataServer).Read(ctx, in)
			}),
		},
		{
			MethodName: "Write",
			Handler: unaryHandler(MethodWrite, func(srv any, ctx context.Context, in *structpb.Struct) (*emptypb.Empty, error) {
				return srv.(DataServer).Write(ctx, in)
			}),
		},
		{
			MethodName: "Append",
			Handler: unaryHandler(MethodAppend, func(srv any, ctx context.Context, in *structpb.Struct) (*wrapperspb.StringValue, error) {
				return srv.(DataServer).Append(ctx, in)
			}),
		},
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "Subscribe",
			Handler:       dataSubscribeHandler,
			ServerStreams: true,
		},
	},
	Metadata: "workoutlog/v1/data",
}

// unaryHandler adapts a typed call into a grpc.MethodHandler, running the
// server interceptor chain when one is installed.
func unaryHandler[Req any, PReq interface {
	*Req
	proto.Message
}, Resp proto.Message](method string, call func(srv any, ctx context.Context, in PReq) (Resp, error)) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := PReq(new(Req))
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv, ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: method}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv, ctx, req.(PReq))
		}
		return interceptor(ctx, in, info, handler)
	}
}

func dataSubscribeHandler(srv any, stream grpc.ServerStream) error {
	in := new(wrapperspb.StringValue)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	return srv.(DataServer).Subscribe(in, &dataSubscribeServer{stream})
}

type dataSubscribeServer struct {
	grpc.ServerStream
}

func (x *dataSubscribeServer) Send(m *structpb.Value) error {
	return x.ServerStream.SendMsg(m)
}
