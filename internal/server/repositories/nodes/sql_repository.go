package nodes

import (
	"context"
	"fmt"
	"unicode/utf8"

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

// Descendants are matched by prefix with substr rather than LIKE so "_" and
// "%" in keys need no escaping. substr counts characters, not bytes.
const subtreeFilter = `path = $1 OR substr(path, 1, $2) = $3`

func (r *SQLRepository) Subtree(ctx context.Context, path string) ([]models.Node, error) {
	prefix := path + "/"
	query := `SELECT path, value FROM nodes WHERE ` + subtreeFilter + ` ORDER BY path`
	return r.query(ctx, query, path, utf8.RuneCountInString(prefix), prefix)
}

func (r *SQLRepository) DeleteSubtree(ctx context.Context, path string) (int64, error) {
	prefix := path + "/"
	query := `DELETE FROM nodes WHERE ` + subtreeFilter

	res, err := r.db.ExecContext(ctx, dbx.Rebind(r.dialect, query), path, utf8.RuneCountInString(prefix), prefix)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return res.RowsAffected()
}

func (r *SQLRepository) DeletePaths(ctx context.Context, paths ...string) error {
	query := dbx.Rebind(r.dialect, `DELETE FROM nodes WHERE path = $1`)
	for _, p := range paths {
		if _, err := r.db.ExecContext(ctx, query, p); err != nil {
			return fmt.Errorf("db error: %w", err)
		}
	}
	return nil
}

func (r *SQLRepository) Insert(ctx context.Context, nodes []models.Node) error {
	query := dbx.Rebind(r.dialect, `INSERT INTO nodes (path, value) VALUES ($1, $2)`)
	for _, n := range nodes {
		if _, err := r.db.ExecContext(ctx, query, n.Path, n.Value); err != nil {
			return fmt.Errorf("db error: %w", err)
		}
	}
	return nil
}

func (r *SQLRepository) All(ctx context.Context) ([]models.Node, error) {
	return r.query(ctx, `SELECT path, value FROM nodes ORDER BY path`)
}

func (r *SQLRepository) query(ctx context.Context, query string, args ...any) ([]models.Node, error) {
	rows, err := r.db.QueryContext(ctx, dbx.Rebind(r.dialect, query), args...)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var out []models.Node
	for rows.Next() {
		var n models.Node
		if err := rows.Scan(&n.Path, &n.Value); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return out, nil
}
