package permissions

import (
	"context"

	"github.com/dmitrijs2005/customuser/internal/server/models"
)

// Repository manages permissions, groups and the account link tables of
// one account variant.
type Repository interface {
	ListPermissions(ctx context.Context) ([]models.Permission, error)
	// GetPermissionsByKeys resolves "<app_label>.<codename>" keys. Unknown
	// keys are a validation error.
	GetPermissionsByKeys(ctx context.Context, keys []string) ([]models.Permission, error)

	CreateGroup(ctx context.Context, name string) (*models.Group, error)
	GetGroup(ctx context.Context, id int64) (*models.Group, error)
	ListGroups(ctx context.Context) ([]models.Group, error)
	SetGroupPermissions(ctx context.Context, groupID int64, permissionIDs []int64) error
	DeleteGroup(ctx context.Context, id int64) error

	// LoadAccountAccess returns the account's groups (with their
	// permissions) and its directly granted permissions.
	LoadAccountAccess(ctx context.Context, accountID string) ([]models.Group, []models.Permission, error)
	SetAccountGroups(ctx context.Context, accountID string, groupIDs []int64) error
	SetAccountPermissions(ctx context.Context, accountID string, permissionIDs []int64) error
}
