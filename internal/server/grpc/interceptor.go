package grpc

import (
	"context"
	"time"

	"github.com/dmitrijs2005/workoutlog/internal/api"
	"github.com/dmitrijs2005/workoutlog/internal/common"
	"github.com/dmitrijs2005/workoutlog/internal/server/services"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

type ctxKey string

const principalKey ctxKey = "principal"

// public methods are served without an access token.
var public = map[string]bool{
	api.MethodCreateCredential:   true,
	api.MethodValidateCredential: true,
}

func principalFrom(ctx context.Context) (services.Principal, bool) {
	p, ok := ctx.Value(principalKey).(services.Principal)
	return p, ok
}

func tokenFrom(ctx context.Context) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	values := md.Get(common.AccessTokenHeaderName)
	if len(values) == 0 {
		return ""
	}
	return values[0]
}

func (s *GRPCServer) authenticate(ctx context.Context, method string) (context.Context, error) {
	if public[method] {
		return ctx, nil
	}

	token := tokenFrom(ctx)
	if token == "" {
		return nil, status.Error(codes.Unauthenticated, "missing token")
	}

	p, err := s.users.Authenticate(ctx, token)
	if err != nil {
		s.logger.Debug(ctx, "token rejected", "method", method, "error", err)
		return nil, s.toStatus(ctx, err)
	}
	return context.WithValue(ctx, principalKey, p), nil
}

func (s *GRPCServer) accessTokenInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	ctx, err := s.authenticate(ctx, info.FullMethod)
	if err != nil {
		return nil, err
	}
	return handler(ctx, req)
}

// authStream overrides the stream context with the authenticated one.
type authStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (w *authStream) Context() context.Context { return w.ctx }

func (s *GRPCServer) streamAccessTokenInterceptor(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
	ctx, err := s.authenticate(ss.Context(), info.FullMethod)
	if err != nil {
		return err
	}
	return handler(srv, &authStream{ServerStream: ss, ctx: ctx})
}

func (s *GRPCServer) metricsInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	start := time.Now()
	resp, err := handler(ctx, req)
	s.metrics.ObserveRPC(info.FullMethod, status.Code(err).String(), time.Since(start))
	return resp, err
}

func (s *GRPCServer) streamMetricsInterceptor(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
	err := handler(srv, ss)
	s.metrics.CountRPC(info.FullMethod, status.Code(err).String())
	return err
}
