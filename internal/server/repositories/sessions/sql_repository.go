package sessions

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

func (r *SQLRepository) Create(ctx context.Context, s *models.Session) error {
	query :=
		`INSERT INTO sessions (id, user_id, expires_at, created_at)
		 VALUES ($1, $2, $3, $4)`

	_, err := r.db.ExecContext(ctx, dbx.Rebind(r.dialect, query), s.ID, s.UserID, s.ExpiresAt.Unix(), s.CreatedAt.Unix())
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *SQLRepository) Get(ctx context.Context, id string) (*models.Session, error) {
	query :=
		`SELECT id, user_id, expires_at, created_at FROM sessions
		 WHERE id = $1`

	s := &models.Session{}
	var expiresAt, createdAt int64
	err := r.db.QueryRowContext(ctx, dbx.Rebind(r.dialect, query), id).Scan(&s.ID, &s.UserID, &expiresAt, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	s.ExpiresAt = time.Unix(expiresAt, 0).UTC()
	s.CreatedAt = time.Unix(createdAt, 0).UTC()
	return s, nil
}

// Delete is idempotent.
func (r *SQLRepository) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, dbx.Rebind(r.dialect, `DELETE FROM sessions WHERE id = $1`), id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *SQLRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, dbx.Rebind(r.dialect, `DELETE FROM sessions WHERE expires_at <= $1`), now.Unix())
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return res.RowsAffected()
}
