// Package grpc exposes the auth and data services over gRPC.
package grpc

import (
	"context"
	"net"

	"github.com/dmitrijs2005/workoutlog/internal/api"
	"github.com/dmitrijs2005/workoutlog/internal/logging"
	"github.com/dmitrijs2005/workoutlog/internal/server/metrics"
	"github.com/dmitrijs2005/workoutlog/internal/server/services"
	"google.golang.org/grpc"
)

// UserService is what the auth endpoints and interceptors need.
type UserService interface {
	Register(ctx context.Context, identifier, secret string) (*services.Grant, error)
	Login(ctx context.Context, identifier, secret string) (*services.Grant, error)
	Logout(ctx context.Context, sessionID string) error
	Authenticate(ctx context.Context, token string) (services.Principal, error)
}

// StoreService is what the data endpoints need.
type StoreService interface {
	Read(ctx context.Context, subjectID, path string) (any, error)
	Write(ctx context.Context, subjectID, path string, value any) error
	Append(ctx context.Context, subjectID, path string, value any) (string, error)
	Subscribe(ctx context.Context, subjectID, path string, send func(any) error) error
}

type GRPCServer struct {
	address string
	users   UserService
	store   StoreService
	metrics *metrics.Metrics
	logger  logging.Logger
}

var (
	_ api.AuthServer = (*GRPCServer)(nil)
	_ api.DataServer = (*GRPCServer)(nil)
)

// NewGRPCServer creates the server. mt may be nil.
func NewGRPCServer(address string, l logging.Logger, us UserService, ss StoreService, mt *metrics.Metrics) *GRPCServer {
	return &GRPCServer{
		address: address,
		logger:  l.With("module", "grpc_server"),
		users:   us,
		store:   ss,
		metrics: mt,
	}
}

func (s *GRPCServer) newServer() *grpc.Server {
	unary := []grpc.UnaryServerInterceptor{s.accessTokenInterceptor}
	stream := []grpc.StreamServerInterceptor{s.streamAccessTokenInterceptor}
	if s.metrics != nil {
		unary = append([]grpc.UnaryServerInterceptor{s.metricsInterceptor}, unary...)
		stream = append([]grpc.StreamServerInterceptor{s.streamMetricsInterceptor}, stream...)
	}

	srv := grpc.NewServer(
		grpc.ChainUnaryInterceptor(unary...),
		grpc.ChainStreamInterceptor(stream...),
	)
	api.RegisterAuthServer(srv, s)
	api.RegisterDataServer(srv, s)
	return srv
}

// Run listens on the configured address and serves until ctx is done.
func (s *GRPCServer) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}
	return s.Serve(ctx, listen)
}

// Serve accepts connections on lis until ctx is done, then stops
// gracefully. Open subscriptions end when their streams are cancelled.
func (s *GRPCServer) Serve(ctx context.Context, lis net.Listener) error {
	srv := s.newServer()

	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC server...")
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", lis.Addr().String())

	if err := srv.Serve(lis); err != nil {
		return err
	}
	<-stopped
	return nil
}
