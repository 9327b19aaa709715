package grpc

import (
	"context"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/dmitrijs2005/workoutlog/internal/client/client"
	"github.com/dmitrijs2005/workoutlog/internal/common"
	"github.com/dmitrijs2005/workoutlog/internal/logging"
	"github.com/dmitrijs2005/workoutlog/internal/server/config"
	"github.com/dmitrijs2005/workoutlog/internal/server/metrics"
	"github.com/dmitrijs2005/workoutlog/internal/server/realtime"
	"github.com/dmitrijs2005/workoutlog/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/workoutlog/internal/server/services"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/test/bufconn"
)

// startServer runs a server backed by a fresh SQLite database and returns
// a connected client.
func startServer(t *testing.T) (*client.GRPCClient, *services.StoreService) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())

	dsn := "file:" + filepath.Join(t.TempDir(), "test.db") + "?_pragma=foreign_keys(1)"
	db, m, err := repomanager.Open(ctx, "sqlite", dsn)
	require.NoError(t, err)
	require.NoError(t, m.RunMigrations(ctx, db))

	cfg := &config.Config{SecretKey: "test-secret", SessionTTL: time.Hour, MinSecretLength: 6}
	hub := realtime.NewHub()
	mt := metrics.New(prometheus.NewRegistry())
	users := services.NewUserService(db, m, cfg, logging.Nop())
	store := services.NewStoreService(db, m, hub, realtime.NewLocalFeed(hub), mt, logging.Nop())

	lis := bufconn.Listen(1 << 20)
	srv := NewGRPCServer("bufnet", logging.Nop(), users, store, mt)
	served := make(chan error, 1)
	go func() { served <- srv.Serve(ctx, lis) }()

	c, err := client.NewGRPCClient("passthrough:///bufnet", 5*time.Second, logging.Nop(),
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}))
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = c.Close()
		cancel()
		assert.NoError(t, <-served)
		_ = db.Close()
	})
	return c, store
}

type approval struct {
	Email    string `json:"email"`
	Approved bool   `json:"aprovado"`
}

func TestServer_EndToEnd(t *testing.T) {
	c, store := startServer(t)
	ctx := context.Background()

	subject, err := c.CreateCredential(ctx, "ana@example.com", "segredo")
	require.NoError(t, err)
	require.NotEmpty(t, subject)

	_, err = c.CreateCredential(ctx, "ana@example.com", "segredo")
	assert.ErrorIs(t, err, common.ErrDuplicateIdentifier)
	_, err = c.CreateCredential(ctx, "bia@example.com", "123")
	assert.ErrorIs(t, err, common.ErrWeakSecret)

	require.NoError(t, c.Write(ctx, common.UserPath(subject), approval{Email: "ana@example.com"}))
	err = c.Write(ctx, common.UserPath(subject), approval{Email: "ana@example.com", Approved: true})
	assert.ErrorIs(t, err, common.ErrUnauthorized, "subjects cannot approve themselves")

	require.NoError(t, store.SetApproval(ctx, subject, true))
	snap, err := c.Read(ctx, common.UserPath(subject))
	require.NoError(t, err)
	var rec approval
	require.NoError(t, snap.Decode(&rec))
	assert.Equal(t, approval{Email: "ana@example.com", Approved: true}, rec)

	_, err = c.Read(ctx, common.RecordsPath("someone-else"))
	assert.Error(t, err)

	// Subscription: initial absent value, then the appended record.
	updates := make(chan client.Snapshot, 8)
	sub, err := c.Subscribe(common.RecordsPath(subject), func(s client.Snapshot, err error) {
		if err == nil {
			updates <- s
		}
	})
	require.NoError(t, err)

	next := func() client.Snapshot {
		t.Helper()
		select {
		case s := <-updates:
			return s
		case <-time.After(5 * time.Second):
			t.Fatal("no update")
			return client.Snapshot{}
		}
	}
	assert.False(t, next().Exists())

	key, err := c.Append(ctx, common.RecordsPath(subject), map[string]any{"data": "2024-05-01"})
	require.NoError(t, err)

	var records map[string]map[string]any
	require.NoError(t, next().Decode(&records))
	assert.Equal(t, map[string]map[string]any{key: {"data": "2024-05-01"}}, records)

	c.Unsubscribe(sub)
	select {
	case <-sub.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("subscription not closed")
	}

	require.NoError(t, c.Invalidate(ctx, subject))
	_, err = c.Read(ctx, common.UserPath(subject))
	assert.ErrorIs(t, err, common.ErrUnauthorized)

	_, err = c.ValidateCredential(ctx, "ana@example.com", "errado")
	assert.ErrorIs(t, err, common.ErrWrongSecret)
	_, err = c.ValidateCredential(ctx, "ninguem@example.com", "segredo")
	assert.ErrorIs(t, err, common.ErrCredentialNotFound)

	again, err := c.ValidateCredential(ctx, "ana@example.com", "segredo")
	require.NoError(t, err)
	assert.Equal(t, subject, again)
}
