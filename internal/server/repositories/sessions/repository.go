package sessions

import (
	"context"
	"time"

	"github.com/dmitrijs2005/workoutlog/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, s *models.Session) error
	Get(ctx context.Context, id string) (*models.Session, error)
	Delete(ctx context.Context, id string) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
