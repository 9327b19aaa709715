package services

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/dmitrijs2005/workoutlog/internal/logging"
	"github.com/dmitrijs2005/workoutlog/internal/server/config"
	"github.com/dmitrijs2005/workoutlog/internal/server/repositories/repomanager"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) (*sql.DB, repomanager.RepositoryManager) {
	t.Helper()
	ctx := context.Background()

	dsn := "file:" + filepath.Join(t.TempDir(), "test.db") + "?_pragma=foreign_keys(1)"
	db, m, err := repomanager.Open(ctx, "sqlite", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, m.RunMigrations(ctx, db))
	return db, m
}

func testConfig() *config.Config {
	return &config.Config{
		SecretKey:       "test-secret",
		SessionTTL:      time.Hour,
		MinSecretLength: 6,
	}
}

func newTestUserService(t *testing.T) *UserService {
	t.Helper()
	db, m := openTestDB(t)
	return NewUserService(db, m, testConfig(), logging.Nop())
}
