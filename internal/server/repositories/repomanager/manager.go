// Package repomanager vends repository implementations for the configured
// SQL dialect and runs the embedded goose migrations.
package repomanager

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/workoutlog/internal/dbx"
	"github.com/dmitrijs2005/workoutlog/internal/server/repositories/nodes"
	"github.com/dmitrijs2005/workoutlog/internal/server/repositories/sessions"
	"github.com/dmitrijs2005/workoutlog/internal/server/repositories/users"
	"github.com/pressly/goose/v3"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

type RepositoryManager interface {
	Dialect() dbx.Dialect
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	Sessions(db dbx.DBTX) sessions.Repository
	Nodes(db dbx.DBTX) nodes.Repository
}

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// Open connects to the database for driver ("postgres" or "sqlite"), checks
// the connection and returns the matching manager.
func Open(ctx context.Context, driver, dsn string) (*sql.DB, RepositoryManager, error) {
	var (
		sqlDriver string
		m         RepositoryManager
	)
	switch dbx.Dialect(driver) {
	case dbx.Postgres:
		sqlDriver, m = "pgx", NewPostgresRepositoryManager()
	case dbx.SQLite:
		sqlDriver, m = "sqlite", NewSQLiteRepositoryManager()
	default:
		return nil, nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := sql.Open(sqlDriver, dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("db open: %w", err)
	}
	if m.Dialect() == dbx.SQLite {
		// One writer at a time; also keeps ":memory:" databases on one connection.
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("db ping: %w", err)
	}
	return db, m, nil
}
