package emailusers

import (
	"context"
	"time"

	"github.com/dmitrijs2005/customuser/internal/server/models"
	"github.com/dmitrijs2005/customuser/internal/server/repositories/query"
)

type Repository interface {
	Create(ctx context.Context, user *models.EmailUser) (*models.EmailUser, error)
	GetByID(ctx context.Context, id string) (*models.EmailUser, error)
	GetByEmail(ctx context.Context, email string) (*models.EmailUser, error)
	// ExistsByEmail reports whether another account (not excludeID) uses
	// email, compared case-insensitively.
	ExistsByEmail(ctx context.Context, email, excludeID string) (bool, error)
	List(ctx context.Context, f query.ListFilter) ([]*models.EmailUser, int, error)
	Update(ctx context.Context, user *models.EmailUser) error
	UpdateLastLogin(ctx context.Context, id string, at time.Time) error
	Delete(ctx context.Context, id string) error
}
