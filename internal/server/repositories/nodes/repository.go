package nodes

import (
	"context"

	"github.com/dmitrijs2005/workoutlog/internal/server/models"
)

// Repository stores the data tree as leaf rows keyed by full path.
type Repository interface {
	// Subtree returns path itself and every leaf below it, ordered by path.
	Subtree(ctx context.Context, path string) ([]models.Node, error)
	DeleteSubtree(ctx context.Context, path string) (int64, error)
	// DeletePaths removes exactly the named rows, leaving descendants alone.
	DeletePaths(ctx context.Context, paths ...string) error
	Insert(ctx context.Context, nodes []models.Node) error
	All(ctx context.Context) ([]models.Node, error)
}
