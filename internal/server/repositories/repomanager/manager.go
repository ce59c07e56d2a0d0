package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/customuser/internal/dbx"
	"github.com/dmitrijs2005/customuser/internal/server/repositories/emailusers"
	"github.com/dmitrijs2005/customuser/internal/server/repositories/permissions"
	"github.com/dmitrijs2005/customuser/internal/server/repositories/profileusers"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	ResetMigrations(context.Context, *sql.DB) error
	ProfileUsers(db dbx.DBTX) profileusers.Repository
	EmailUsers(db dbx.DBTX) emailusers.Repository
	Permissions(db dbx.DBTX) permissions.Repository
}
