package grpc

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/workoutlog/internal/api"
	"github.com/dmitrijs2005/workoutlog/internal/common"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

func (s *GRPCServer) CreateCredential(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	identifier, secret := api.ParseCredentialRequest(req)

	grant, err := s.users.Register(ctx, identifier, secret)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}

	s.logger.Info(ctx, "Registered", "subject", grant.SubjectID)
	return api.SessionResponse(grant.SubjectID, grant.AccessToken), nil
}

func (s *GRPCServer) ValidateCredential(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	identifier, secret := api.ParseCredentialRequest(req)

	grant, err := s.users.Login(ctx, identifier, secret)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return api.SessionResponse(grant.SubjectID, grant.AccessToken), nil
}

func (s *GRPCServer) Invalidate(ctx context.Context, _ *emptypb.Empty) (*emptypb.Empty, error) {
	p, ok := principalFrom(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "unauthorized")
	}
	if err := s.users.Logout(ctx, p.SessionID); err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &emptypb.Empty{}, nil
}

func (s *GRPCServer) Read(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Value, error) {
	p, ok := principalFrom(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "unauthorized")
	}

	v, err := s.store.Read(ctx, p.SubjectID, req.GetValue())
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	out, err := structpb.NewValue(v)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return out, nil
}

func (s *GRPCServer) Write(ctx context.Context, req *structpb.Struct) (*emptypb.Empty, error) {
	p, ok := principalFrom(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "unauthorized")
	}

	path, value := api.ParseWriteRequest(req)
	if err := s.store.Write(ctx, p.SubjectID, path, value.AsInterface()); err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &emptypb.Empty{}, nil
}

func (s *GRPCServer) Append(ctx context.Context, req *structpb.Struct) (*wrapperspb.StringValue, error) {
	p, ok := principalFrom(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "unauthorized")
	}

	path, value := api.ParseWriteRequest(req)
	key, err := s.store.Append(ctx, p.SubjectID, path, value.AsInterface())
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return wrapperspb.String(key), nil
}

func (s *GRPCServer) Subscribe(req *wrapperspb.StringValue, stream api.DataSubscribeServer) error {
	ctx := stream.Context()
	p, ok := principalFrom(ctx)
	if !ok {
		return status.Error(codes.Unauthenticated, "unauthorized")
	}

	err := s.store.Subscribe(ctx, p.SubjectID, req.GetValue(), func(v any) error {
		out, err := structpb.NewValue(v)
		if err != nil {
			return err
		}
		return stream.Send(out)
	})
	if err != nil {
		return s.toStatus(ctx, err)
	}
	return nil
}

// toStatus maps service errors onto gRPC status codes. Credential failures
// keep their message so clients can tell them apart.
func (s *GRPCServer) toStatus(ctx context.Context, err error) error {
	if _, ok := status.FromError(err); ok {
		return err
	}

	switch {
	case errors.Is(err, common.ErrDuplicateIdentifier):
		return status.Error(codes.AlreadyExists, err.Error())
	case errors.Is(err, common.ErrWeakSecret):
		return status.Error(codes.InvalidArgument, common.ErrWeakSecret.Error())
	case errors.Is(err, common.ErrInvalidIdentifier):
		return status.Error(codes.InvalidArgument, common.ErrInvalidIdentifier.Error())
	case errors.Is(err, common.ErrCredentialNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, common.ErrWrongSecret):
		return status.Error(codes.Unauthenticated, common.ErrWrongSecret.Error())
	case errors.Is(err, common.ErrUnauthorized):
		return status.Error(codes.Unauthenticated, "unauthorized")
	case errors.Is(err, common.ErrPermissionDenied):
		return status.Error(codes.PermissionDenied, err.Error())
	case errors.Is(err, common.ErrInvalidPath):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	}

	s.logger.Error(ctx, "request failed", "error", err)
	return status.Error(codes.Internal, "internal error")
}
