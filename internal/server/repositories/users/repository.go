package users

import (
	"context"

	"github.com/dmitrijs2005/workoutlog/internal/server/models"
)

type Repository interface {
	// Create stores user; an existing identifier yields common.ErrDuplicateIdentifier.
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetByIdentifier(ctx context.Context, identifier string) (*models.User, error)
}
