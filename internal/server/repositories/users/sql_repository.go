package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/workoutlog/internal/common"
	"github.com/dmitrijs2005/workoutlog/internal/dbx"
	"github.com/dmitrijs2005/workoutlog/internal/server/models"
)

// SQLRepository works on PostgreSQL and SQLite; queries are written with
// $N placeholders and rebound per dialect.
type SQLRepository struct {
	db      dbx.DBTX
	dialect dbx.Dialect
}

func NewPostgresRepository(db dbx.DBTX) *SQLRepository {
	return &SQLRepository{db: db, dialect: dbx.Postgres}
}

func NewSQLiteRepository(db dbx.DBTX) *SQLRepository {
	return &SQLRepository{db: db, dialect: dbx.SQLite}
}

func (r *SQLRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	query :=
		`INSERT INTO users (id, identifier, salt, secret_hash, created_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (identifier) DO NOTHING`

	res, err := r.db.ExecContext(ctx, dbx.Rebind(r.dialect, query),
		user.ID, user.Identifier, user.Salt, user.SecretHash, user.CreatedAt.Unix())
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return nil, common.ErrDuplicateIdentifier
	}

	return user, nil
}

func (r *SQLRepository) GetByIdentifier(ctx context.Context, identifier string) (*models.User, error) {
	query :=
		`SELECT id, identifier, salt, secret_hash, created_at FROM users
		 WHERE identifier = $1`

	user := &models.User{}
	var createdAt int64
	err := r.db.QueryRowContext(ctx, dbx.Rebind(r.dialect, query), identifier).
		Scan(&user.ID, &user.Identifier, &user.Salt, &user.SecretHash, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	user.CreatedAt = time.Unix(createdAt, 0).UTC()

	return user, nil
}
