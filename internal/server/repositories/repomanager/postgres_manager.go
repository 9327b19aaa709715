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

// PostgresRepositoryManager vends PostgreSQL-backed repository implementations
// and exposes a schema migration hook.
type PostgresRepositoryManager struct{}

func NewPostgresRepositoryManager() *PostgresRepositoryManager {
	return &PostgresRepositoryManager{}
}

func (m *PostgresRepositoryManager) Dialect() dbx.Dialect { return dbx.Postgres }

func (m *PostgresRepositoryManager) Users(db dbx.DBTX) users.Repository {
	return users.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) Sessions(db dbx.DBTX) sessions.Repository {
	return sessions.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) Nodes(db dbx.DBTX) nodes.Repository {
	return nodes.NewPostgresRepository(db)
}

// RunMigrations sets up goose with the embedded migrations and runs them
// against the provided database connection.
func (m *PostgresRepositoryManager) RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("pgx"); err != nil {
		return err
	}
	return gooseUpContext(ctx, db, migrations.PostgresDir)
}
