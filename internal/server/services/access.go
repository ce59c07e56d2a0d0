// Package services contains the account business logic: the managers that
// create, authenticate and administer accounts of each model, and the
// groups and permissions administration they share.
package services

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/customuser/internal/dbx"
	"github.com/dmitrijs2005/customuser/internal/logging"
	"github.com/dmitrijs2005/customuser/internal/server/models"
	"github.com/dmitrijs2005/customuser/internal/server/repositories/permissions"
	"github.com/dmitrijs2005/customuser/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/customuser/internal/validation"
)

// grantAccess replaces the groups and direct permissions of an account.
// Run it inside the transaction that wrote the account.
func grantAccess(ctx context.Context, repo permissions.Repository, accountID string, groupIDs []int64, permKeys []string) error {
	if err := repo.SetAccountGroups(ctx, accountID, groupIDs); err != nil {
		return err
	}
	perms, err := repo.GetPermissionsByKeys(ctx, permKeys)
	if err != nil {
		return err
	}
	ids := make([]int64, 0, len(perms))
	for _, p := range perms {
		ids = append(ids, p.ID)
	}
	return repo.SetAccountPermissions(ctx, accountID, ids)
}

// loadAccess fills the permissions part of an account.
func loadAccess(ctx context.Context, repo permissions.Repository, accountID string, mixin *models.PermissionsMixin) error {
	groups, perms, err := repo.LoadAccountAccess(ctx, accountID)
	if err != nil {
		return err
	}
	mixin.Groups = groups
	mixin.UserPermissions = perms
	return nil
}

// AccessService administers groups and lists the known permissions.
type AccessService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	logger      logging.Logger
}

func NewAccessService(db *sql.DB, m repomanager.RepositoryManager, logger logging.Logger) *AccessService {
	return &AccessService{db: db, repomanager: m, logger: logger}
}

// CreateGroup creates a group granting the given permission keys.
func (s *AccessService) CreateGroup(ctx context.Context, name string, permKeys ...string) (*models.Group, error) {
	name = strings.TrimSpace(name)
	if err := validation.Struct(&models.Group{Name: name}); err != nil {
		return nil, err
	}

	var group *models.Group
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Permissions(tx)
		g, err := repo.CreateGroup(ctx, name)
		if err != nil {
			return err
		}
		perms, err := repo.GetPermissionsByKeys(ctx, permKeys)
		if err != nil {
			return err
		}
		ids := make([]int64, 0, len(perms))
		for _, p := range perms {
			ids = append(ids, p.ID)
		}
		if err := repo.SetGroupPermissions(ctx, g.ID, ids); err != nil {
			return err
		}
		g.Permissions = perms
		group = g
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("error creating group: %w", err)
	}

	s.logger.Info(ctx, "group created", "id", group.ID, "name", group.Name, "permissions", len(group.Permissions))
	return group, nil
}

func (s *AccessService) GetGroup(ctx context.Context, id int64) (*models.Group, error) {
	return s.repomanager.Permissions(s.db).GetGroup(ctx, id)
}

func (s *AccessService) ListGroups(ctx context.Context) ([]models.Group, error) {
	return s.repomanager.Permissions(s.db).ListGroups(ctx)
}

// SetGroupPermissions replaces the permissions a group grants.
func (s *AccessService) SetGroupPermissions(ctx context.Context, groupID int64, permKeys []string) error {
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Permissions(tx)
		if _, err := repo.GetGroup(ctx, groupID); err != nil {
			return err
		}
		perms, err := repo.GetPermissionsByKeys(ctx, permKeys)
		if err != nil {
			return err
		}
		ids := make([]int64, 0, len(perms))
		for _, p := range perms {
			ids = append(ids, p.ID)
		}
		return repo.SetGroupPermissions(ctx, groupID, ids)
	})
	if err != nil {
		return fmt.Errorf("error updating group %d: %w", groupID, err)
	}
	return nil
}

func (s *AccessService) DeleteGroup(ctx context.Context, id int64) error {
	if err := s.repomanager.Permissions(s.db).DeleteGroup(ctx, id); err != nil {
		return err
	}
	s.logger.Info(ctx, "group deleted", "id", id)
	return nil
}

func (s *AccessService) ListPermissions(ctx context.Context) ([]models.Permission, error) {
	return s.repomanager.Permissions(s.db).ListPermissions(ctx)
}
