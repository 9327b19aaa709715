package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/workoutlog/internal/dbx"
	"github.com/dmitrijs2005/workoutlog/internal/server/migrations"
	"github.com/dmitrijs2005/workoutlog/internal/server/repositories/nodes"
	"github.com/dmitrijs2005/workoutlog/internal/server/repositories/sessions"
	"github.com/dmitrijs2005/workoutlog/internal/server/repositories/users"
	"github.com/pressly/goose/v3"
)

// SQLiteRepositoryManager backs single-binary deployments and tests.
type SQLiteRepositoryManager struct{}

func NewSQLiteRepositoryManager() *SQLiteRepositoryManager {
	return &SQLiteRepositoryManager{}
}

func (m *SQLiteRepositoryManager) Dialect() dbx.Dialect { return dbx.SQLite }

func (m *SQLiteRepositoryManager) Users(db dbx.DBTX) users.Repository {
	return users.NewSQLiteRepository(db)
}

func (m *SQLiteRepositoryManager) Sessions(db dbx.DBTX) sessions.Repository {
	return sessions.NewSQLiteRepository(db)
}

func (m *SQLiteRepositoryManager) Nodes(db dbx.DBTX) nodes.Repository {
	return nodes.NewSQLiteRepository(db)
}

func (m *SQLiteRepositoryManager) RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("sqlite3"); err != nil {
		return err
	}
	return gooseUpContext(ctx, db, migrations.SQLiteDir)
}
