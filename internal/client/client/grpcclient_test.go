package client

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/workoutlog/internal/api"
	"github.com/dmitrijs2005/workoutlog/internal/common"
	"github.com/dmitrijs2005/workoutlog/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

type fakeAuth struct {
	lastCreate   *structpb.Struct
	lastValidate *structpb.Struct
	invalidated  int

	resp          *structpb.Struct
	err           error
	invalidateErr error
}

func (f *fakeAuth) CreateCredential(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	f.lastCreate = in
	return f.resp, f.err
}

func (f *fakeAuth) ValidateCredential(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	f.lastValidate = in
	return f.resp, f.err
}

func (f *fakeAuth) Invalidate(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*emptypb.Empty, error) {
	f.invalidated++
	return &emptypb.Empty{}, f.invalidateErr
}

type fakeStream struct {
	grpc.ClientStream
	ch chan *structpb.Value
	// err is returned once ch is closed.
	err error
}

func (s *fakeStream) Recv() (*structpb.Value, error) {
	v, ok := <-s.ch
	if !ok {
		return nil, s.err
	}
	return v, nil
}

type fakeData struct {
	mu        sync.Mutex
	lastRead  string
	lastWrite *structpb.Struct
	readResp  *structpb.Value
	appendKey string
	err       error

	stream    *fakeStream
	streamCtx context.Context
}

func (f *fakeData) Read(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*structpb.Value, error) {
	f.lastRead = in.GetValue()
	return f.readResp, f.err
}

func (f *fakeData) Write(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*emptypb.Empty, error) {
	f.lastWrite = in
	return &emptypb.Empty{}, f.err
}

func (f *fakeData) Append(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*wrapperspb.StringValue, error) {
	f.lastWrite = in
	return wrapperspb.String(f.appendKey), f.err
}

func (f *fakeData) Subscribe(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (api.DataSubscribeClient, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.streamCtx = ctx
	if f.err != nil {
		return nil, f.err
	}
	return f.stream, nil
}

func newTestClient(auth *fakeAuth, data *fakeData) *GRPCClient {
	return &GRPCClient{
		timeout:   time.Second,
		logger:    logging.Nop(),
		auth:      auth,
		data:      data,
		listeners: make(map[int]func(string)),
	}
}

func TestWithAccessToken_SetsAndOverrides(t *testing.T) {
	ctx := metadata.NewOutgoingContext(context.Background(), metadata.Pairs(common.AccessTokenHeaderName, "old", "x", "1"))
	ctx = withAccessToken(ctx, "new")

	md, ok := metadata.FromOutgoingContext(ctx)
	require.True(t, ok)
	assert.Equal(t, []string{"new"}, md.Get(common.AccessTokenHeaderName))
	assert.Equal(t, []string{"1"}, md.Get("x"))
}

func TestCreateCredential_StoresSessionAndNotifies(t *testing.T) {
	auth := &fakeAuth{resp: api.SessionResponse("u1", "tok-1")}
	c := newTestClient(auth, &fakeData{})

	var seen []string
	remove := c.OnSessionChanged(func(s string) { seen = append(seen, s) })
	defer remove()

	subject, err := c.CreateCredential(context.Background(), "a@x.com", "abcdef")
	require.NoError(t, err)
	assert.Equal(t, "u1", subject)
	assert.Equal(t, "tok-1", c.currentToken())
	assert.Equal(t, []string{"", "u1"}, seen)

	id, secret := api.ParseCredentialRequest(auth.lastCreate)
	assert.Equal(t, "a@x.com", id)
	assert.Equal(t, "abcdef", secret)
}

func TestValidateCredential_ErrorsAreMapped(t *testing.T) {
	auth := &fakeAuth{err: status.Error(codes.Unauthenticated, common.ErrWrongSecret.Error())}
	c := newTestClient(auth, &fakeData{})

	_, err := c.ValidateCredential(context.Background(), "a@x.com", "bad")
	assert.ErrorIs(t, err, common.ErrWrongSecret)
	assert.ErrorIs(t, err, common.ErrAuth)
	assert.Empty(t, c.currentToken())
}

func TestInvalidate_ClearsSessionEvenOnError(t *testing.T) {
	auth := &fakeAuth{resp: api.SessionResponse("u1", "tok"), invalidateErr: status.Error(codes.Unavailable, "down")}
	c := newTestClient(auth, &fakeData{})
	_, err := c.ValidateCredential(context.Background(), "a@x.com", "abcdef")
	require.NoError(t, err)

	var last string
	c.OnSessionChanged(func(s string) { last = s })
	require.Equal(t, "u1", last)

	err = c.Invalidate(context.Background(), "u1")
	assert.ErrorIs(t, err, common.ErrUnavailable)
	assert.Equal(t, "", last)
	assert.Empty(t, c.currentToken())
	assert.Equal(t, 1, auth.invalidated)

	require.NoError(t, c.Invalidate(context.Background(), "u1"))
	assert.Equal(t, 1, auth.invalidated, "no session left to invalidate")
}

func TestAccessTokenInterceptor(t *testing.T) {
	c := newTestClient(&fakeAuth{}, &fakeData{})
	c.accessToken, c.subjectID = "tok", "u1"

	var sent []string
	invoker := func(ctx context.Context, method string, req, reply any, cc *grpc.ClientConn, opts ...grpc.CallOption) error {
		md, _ := metadata.FromOutgoingContext(ctx)
		sent = md.Get(common.AccessTokenHeaderName)
		return nil
	}
	require.NoError(t, c.accessTokenInterceptor(context.Background(), api.MethodRead, nil, nil, nil, invoker))
	assert.Equal(t, []string{"tok"}, sent)

	var expired string
	c.OnSessionChanged(func(s string) { expired = s })

	reject := func(ctx context.Context, method string, req, reply any, cc *grpc.ClientConn, opts ...grpc.CallOption) error {
		return status.Error(codes.Unauthenticated, "session expired")
	}
	err := c.accessTokenInterceptor(context.Background(), api.MethodRead, nil, nil, nil, reject)
	require.Error(t, err)
	assert.Equal(t, "", expired)
	assert.Empty(t, c.currentToken())
}

func TestReadWriteAppend(t *testing.T) {
	data := &fakeData{readResp: structpb.NewStructValue(&structpb.Struct{Fields: map[string]*structpb.Value{
		"email":    structpb.NewStringValue("a@x.com"),
		"aprovado": structpb.NewBoolValue(true),
	}}), appendKey: "k1"}
	c := newTestClient(&fakeAuth{}, data)
	ctx := context.Background()

	snap, err := c.Read(ctx, "usuarios/u1")
	require.NoError(t, err)
	assert.True(t, snap.Exists())
	var rec struct {
		Approved bool `json:"aprovado"`
	}
	require.NoError(t, snap.Decode(&rec))
	assert.True(t, rec.Approved)
	assert.Equal(t, "usuarios/u1", data.lastRead)

	require.NoError(t, c.Write(ctx, "usuarios/u1", map[string]any{"email": "a@x.com", "aprovado": false}))
	path, v := api.ParseWriteRequest(data.lastWrite)
	assert.Equal(t, "usuarios/u1", path)
	assert.Equal(t, false, v.GetStructValue().GetFields()["aprovado"].GetBoolValue())

	key, err := c.Append(ctx, "treinos/u1", map[string]any{"data": "2024-05-01"})
	require.NoError(t, err)
	assert.Equal(t, "k1", key)

	data.err = status.Error(codes.PermissionDenied, "denied")
	_, err = c.Read(ctx, "treinos/u2")
	var se *common.SyncError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "read", se.Op)
	assert.ErrorIs(t, err, common.ErrUnauthorized)

	err = c.Write(ctx, "x", make(chan int))
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "write", se.Op)
}

func TestSubscribe_DeliversAndStopsOnUnsubscribe(t *testing.T) {
	stream := &fakeStream{ch: make(chan *structpb.Value, 2), err: io.EOF}
	data := &fakeData{stream: stream}
	c := newTestClient(&fakeAuth{}, data)

	got := make(chan Snapshot, 4)
	sub, err := c.Subscribe("treinos/u1", func(s Snapshot, err error) {
		require.NoError(t, err)
		got <- s
	})
	require.NoError(t, err)
	assert.Equal(t, "treinos/u1", sub.Path())

	stream.ch <- structpb.NewNullValue()
	s := <-got
	assert.False(t, s.Exists())

	c.Unsubscribe(sub)
	data.mu.Lock()
	ctx := data.streamCtx
	data.mu.Unlock()
	<-ctx.Done()

	close(stream.ch)
	<-sub.Done()
	assert.Empty(t, got, "no callbacks after unsubscribe")
}

func TestSubscribe_StreamErrorIsReportedOnce(t *testing.T) {
	stream := &fakeStream{ch: make(chan *structpb.Value), err: status.Error(codes.PermissionDenied, "denied")}
	c := newTestClient(&fakeAuth{}, &fakeData{stream: stream})

	errs := make(chan error, 2)
	sub, err := c.Subscribe("treinos/u2", func(s Snapshot, err error) { errs <- err })
	require.NoError(t, err)

	close(stream.ch)
	<-sub.Done()

	require.Len(t, errs, 1)
	err = <-errs
	assert.ErrorIs(t, err, common.ErrUnauthorized)
}

func TestMapError(t *testing.T) {
	tests := []struct {
		in   error
		want error
	}{
		{status.Error(codes.AlreadyExists, "x"), common.ErrDuplicateIdentifier},
		{status.Error(codes.InvalidArgument, common.ErrWeakSecret.Error()), common.ErrWeakSecret},
		{status.Error(codes.InvalidArgument, common.ErrInvalidIdentifier.Error()), common.ErrInvalidIdentifier},
		{status.Error(codes.InvalidArgument, "bad path"), common.ErrInvalidPath},
		{status.Error(codes.NotFound, "x"), common.ErrCredentialNotFound},
		{status.Error(codes.Unauthenticated, common.ErrWrongSecret.Error()), common.ErrWrongSecret},
		{status.Error(codes.Unauthenticated, "expired"), common.ErrUnauthorized},
		{status.Error(codes.PermissionDenied, "x"), common.ErrUnauthorized},
		{status.Error(codes.Unavailable, "x"), common.ErrUnavailable},
		{status.Error(codes.DeadlineExceeded, "x"), common.ErrUnavailable},
		{io.EOF, common.ErrUnavailable},
	}
	for _, tt := range tests {
		assert.ErrorIs(t, mapError(tt.in), tt.want, tt.in.Error())
	}

	assert.NoError(t, mapError(nil))
	assert.ErrorContains(t, mapError(status.Error(codes.Internal, "boom")), "rpc error")
}
