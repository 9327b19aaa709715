package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/dmitrijs2005/workoutlog/internal/api"
	"github.com/dmitrijs2005/workoutlog/internal/common"
	"github.com/dmitrijs2005/workoutlog/internal/logging"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

type GRPCClient struct {
	endpointURL string
	timeout     time.Duration
	logger      logging.Logger

	conn *grpc.ClientConn
	auth api.AuthClient
	data api.DataClient

	mu          sync.Mutex
	accessToken string
	subjectID   string
	listeners   map[int]func(string)
	nextID      int
}

// NewGRPCClient creates a client for the server at endpointURL. timeout
// bounds every unary call; subscriptions are not bounded. Extra dial options
// are appended after the defaults.
func NewGRPCClient(endpointURL string, timeout time.Duration, logger logging.Logger, opts ...grpc.DialOption) (*GRPCClient, error) {
	c := &GRPCClient{
		endpointURL: endpointURL,
		timeout:     timeout,
		logger:      logger.With("module", "grpc_client"),
		listeners:   make(map[int]func(string)),
	}

	dialOpts := append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithUnaryInterceptor(c.accessTokenInterceptor),
		grpc.WithStreamInterceptor(c.streamAccessTokenInterceptor),
	}, opts...)

	conn, err := grpc.NewClient(endpointURL, dialOpts...)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", endpointURL, err)
	}
	c.conn = conn
	c.auth = api.NewAuthClient(conn)
	c.data = api.NewDataClient(conn)
	return c, nil
}

func (c *GRPCClient) Close() error {
	return c.conn.Close()
}

func withAccessToken(ctx context.Context, token string) context.Context {
	md, _ := metadata.FromOutgoingContext(ctx)
	md = md.Copy()
	if md == nil {
		md = metadata.MD{}
	}
	md.Set(common.AccessTokenHeaderName, token)
	return metadata.NewOutgoingContext(ctx, md)
}

func (c *GRPCClient) currentToken() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.accessToken
}

// accessTokenInterceptor attaches the session token. A call rejected as
// unauthenticated ends the local session: the server no longer knows it.
func (c *GRPCClient) accessTokenInterceptor(
	ctx context.Context,
	method string,
	req, reply any,
	cc *grpc.ClientConn,
	invoker grpc.UnaryInvoker,
	opts ...grpc.CallOption,
) error {
	token := c.currentToken()
	if token != "" {
		ctx = withAccessToken(ctx, token)
	}

	err := invoker(ctx, method, req, reply, cc, opts...)

	if token != "" && status.Code(err) == codes.Unauthenticated &&
		method != api.MethodCreateCredential && method != api.MethodValidateCredential {
		c.logger.Warn(ctx, "session rejected by server", "method", method)
		c.expire(token)
	}
	return err
}

func (c *GRPCClient) streamAccessTokenInterceptor(
	ctx context.Context,
	desc *grpc.StreamDesc,
	cc *grpc.ClientConn,
	method string,
	streamer grpc.Streamer,
	opts ...grpc.CallOption,
) (grpc.ClientStream, error) {
	if token := c.currentToken(); token != "" {
		ctx = withAccessToken(ctx, token)
	}
	return streamer(ctx, desc, cc, method, opts...)
}

func (c *GRPCClient) callCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.timeout)
}

func (c *GRPCClient) CreateCredential(ctx context.Context, identifier, secret string) (string, error) {
	ctx, cancel := c.callCtx(ctx)
	defer cancel()

	resp, err := c.auth.CreateCredential(ctx, api.CredentialRequest(identifier, secret))
	if err != nil {
		return "", mapError(err)
	}

	subjectID, token := api.ParseSessionResponse(resp)
	c.setSession(subjectID, token)
	return subjectID, nil
}

func (c *GRPCClient) ValidateCredential(ctx context.Context, identifier, secret string) (string, error) {
	ctx, cancel := c.callCtx(ctx)
	defer cancel()

	resp, err := c.auth.ValidateCredential(ctx, api.CredentialRequest(identifier, secret))
	if err != nil {
		return "", mapError(err)
	}

	subjectID, token := api.ParseSessionResponse(resp)
	c.setSession(subjectID, token)
	return subjectID, nil
}

// Invalidate ends the session of subjectID on the server and locally. The
// local session is cleared even when the server call fails.
func (c *GRPCClient) Invalidate(ctx context.Context, subjectID string) error {
	c.mu.Lock()
	current, token := c.subjectID, c.accessToken
	c.mu.Unlock()

	if current == "" || (subjectID != "" && subjectID != current) {
		return nil
	}

	var err error
	if token != "" {
		callCtx, cancel := c.callCtx(ctx)
		_, err = c.auth.Invalidate(callCtx, &emptypb.Empty{})
		cancel()
	}

	c.setSession("", "")
	if err != nil {
		return mapError(err)
	}
	return nil
}

func (c *GRPCClient) OnSessionChanged(fn func(subjectID string)) (remove func()) {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.listeners[id] = fn
	current := c.subjectID
	c.mu.Unlock()

	fn(current)

	return func() {
		c.mu.Lock()
		delete(c.listeners, id)
		c.mu.Unlock()
	}
}

func (c *GRPCClient) setSession(subjectID, token string) {
	c.mu.Lock()
	changed := c.subjectID != subjectID
	c.subjectID = subjectID
	c.accessToken = token
	listeners := c.snapshotListeners()
	c.mu.Unlock()

	if !changed {
		return
	}
	for _, fn := range listeners {
		fn(subjectID)
	}
}

// expire drops the session if token is still the current one.
func (c *GRPCClient) expire(token string) {
	c.mu.Lock()
	if c.accessToken != token {
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()
	c.setSession("", "")
}

func (c *GRPCClient) snapshotListeners() []func(string) {
	out := make([]func(string), 0, len(c.listeners))
	for _, fn := range c.listeners {
		out = append(out, fn)
	}
	return out
}

func (c *GRPCClient) Read(ctx context.Context, path string) (Snapshot, error) {
	ctx, cancel := c.callCtx(ctx)
	defer cancel()

	v, err := c.data.Read(ctx, wrapperspb.String(path))
	if err != nil {
		return Snapshot{}, &common.SyncError{Op: "read", Path: path, Err: mapError(err)}
	}
	return Snapshot{Path: path, Value: v}, nil
}

func (c *GRPCClient) Write(ctx context.Context, path string, value any) error {
	v, err := api.ValueOf(value)
	if err != nil {
		return &common.SyncError{Op: "write", Path: path, Err: err}
	}

	ctx, cancel := c.callCtx(ctx)
	defer cancel()

	if _, err := c.data.Write(ctx, api.WriteRequest(path, v)); err != nil {
		return &common.SyncError{Op: "write", Path: path, Err: mapError(err)}
	}
	return nil
}

func (c *GRPCClient) Append(ctx context.Context, path string, value any) (string, error) {
	v, err := api.ValueOf(value)
	if err != nil {
		return "", &common.SyncError{Op: "append", Path: path, Err: err}
	}

	ctx, cancel := c.callCtx(ctx)
	defer cancel()

	key, err := c.data.Append(ctx, api.WriteRequest(path, v))
	if err != nil {
		return "", &common.SyncError{Op: "append", Path: path, Err: mapError(err)}
	}
	return key.GetValue(), nil
}

type subscription struct {
	path   string
	cancel context.CancelFunc
	done   chan struct{}
}

func (s *subscription) Path() string          { return s.path }
func (s *subscription) Done() <-chan struct{} { return s.done }

func (c *GRPCClient) Subscribe(path string, fn func(Snapshot, error)) (Subscription, error) {
	ctx, cancel := context.WithCancel(context.Background())

	stream, err := c.data.Subscribe(ctx, wrapperspb.String(path))
	if err != nil {
		cancel()
		return nil, &common.SyncError{Op: "subscribe", Path: path, Err: mapError(err)}
	}

	sub := &subscription{path: path, cancel: cancel, done: make(chan struct{})}
	go c.receive(ctx, sub, stream, fn)
	return sub, nil
}

func (c *GRPCClient) receive(ctx context.Context, sub *subscription, stream api.DataSubscribeClient, fn func(Snapshot, error)) {
	defer close(sub.done)

	for {
		v, err := stream.Recv()
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			c.logger.Error(ctx, "subscription ended", "path", sub.path, "error", err)
			fn(Snapshot{Path: sub.path}, &common.SyncError{Op: "subscribe", Path: sub.path, Err: mapError(err)})
			return
		}
		fn(Snapshot{Path: sub.path, Value: v}, nil)
	}
}

func (c *GRPCClient) Unsubscribe(sub Subscription) {
	if s, ok := sub.(*subscription); ok {
		s.cancel()
	}
}

func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, io.EOF) {
		return common.ErrUnavailable
	}

	st, ok := status.FromError(err)
	if !ok {
		return fmt.Errorf("rpc error: %w", err)
	}

	switch st.Code() {
	case codes.AlreadyExists:
		return common.ErrDuplicateIdentifier
	case codes.InvalidArgument:
		switch st.Message() {
		case common.ErrWeakSecret.Error():
			return common.ErrWeakSecret
		case common.ErrInvalidIdentifier.Error():
			return common.ErrInvalidIdentifier
		}
		return fmt.Errorf("%w: %s", common.ErrInvalidPath, st.Message())
	case codes.NotFound:
		return common.ErrCredentialNotFound
	case codes.Unauthenticated:
		if st.Message() == common.ErrWrongSecret.Error() {
			return common.ErrWrongSecret
		}
		return common.ErrUnauthorized
	case codes.PermissionDenied:
		return common.ErrUnauthorized
	case codes.Unavailable, codes.DeadlineExceeded:
		return common.ErrUnavailable
	default:
		return fmt.Errorf("rpc error: %w", err)
	}
}
