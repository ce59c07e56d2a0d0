package profileusers

import (
	"context"
	"time"

	"github.com/dmitrijs2005/customuser/internal/server/models"
	"github.com/dmitrijs2005/customuser/internal/server/repositories/query"
)

type Repository interface {
	Create(ctx context.Context, user *models.ProfileUser) (*models.ProfileUser, error)
	GetByID(ctx context.Context, id string) (*models.ProfileUser, error)
	GetByUsername(ctx context.Context, username string) (*models.ProfileUser, error)
	List(ctx context.Context, f query.ListFilter) ([]*models.ProfileUser, int, error)
	Update(ctx context.Context, user *models.ProfileUser) error
	UpdateLastLogin(ctx context.Context, id string, at time.Time) error
	Delete(ctx context.Context, id string) error
}
