package api

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

type AuthClient interface {
	CreateCredential(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	ValidateCredential(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	Invalidate(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*emptypb.Empty, error)
}

type DataClient interface {
	Read(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*structpb.Value, error)
	Write(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*emptypb.Empty, error)
	Append(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*wrapperspb.StringValue, error)
	Subscribe(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (DataSubscribeClient, error)
}

// DataSubscribeClient is the client side of a Subscribe stream.
type DataSubscribeClient interface {
	Recv() (*structpb.Value, error)
	grpc.ClientStream
}

type authClient struct {
	cc grpc.ClientConnInterface
}

func NewAuthClient(cc grpc.ClientConnInterface) AuthClient {
	return &authClient{cc: cc}
}

func (c *authClient) CreateCredential(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, MethodCreateCredential, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *authClient) ValidateCredential(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, MethodValidateCredential, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *authClient) Invalidate(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*emptypb.Empty, error) {
	out := new(emptypb.Empty)
	if err := c.cc.Invoke(ctx, MethodInvalidate, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

type dataClient struct {
	cc grpc.ClientConnInterface
}

func NewDataClient(cc grpc.ClientConnInterface) DataClient {
	return &dataClient{cc: cc}
}

func (c *dataClient) Read(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*structpb.Value, error) {
	out := new(structpb.Value)
	if err := c.cc.Invoke(ctx, MethodRead, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *dataClient) Write(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*emptypb.Empty, error) {
	out := new(emptypb.Empty)
	if err := c.cc.Invoke(ctx, MethodWrite, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *dataClient) Append(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*wrapperspb.StringValue, error) {
	out := new(wrapperspb.StringValue)
	if err := c.cc.Invoke(ctx, MethodAppend, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *dataClient) Subscribe(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (DataSubscribeClient, error) {
	stream, err := c.cc.NewStream(ctx, &DataServiceDesc.Streams[0], MethodSubscribe, opts...)
	if err != nil {
		return nil, err
	}
	x := &dataSubscribeClient{stream}
	if err := x.ClientStream.SendMsg(in); err != nil {
		return nil, err
	}
	if err := x.ClientStream.CloseSend(); err != nil {
		return nil, err
	}
	return x, nil
}

type dataSubscribeClient struct {
	grpc.ClientStream
}

func (x *dataSubscribeClient) Recv() (*structpb.Value, error) {
	m := new(structpb.Value)
	if err := x.ClientStream.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}
