// Package repomanager provides a concrete RepositoryManager for PostgreSQL,
// wiring together repository constructors and the schema migrations of one
// account model (via goose).
package repomanager

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/customuser/internal/dbx"
	"github.com/dmitrijs2005/customuser/internal/server/migrations"
	"github.com/dmitrijs2005/customuser/internal/server/repositories/emailusers"
	"github.com/dmitrijs2005/customuser/internal/server/repositories/permissions"
	"github.com/dmitrijs2005/customuser/internal/server/repositories/profileusers"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

// Account models a manager can be built for.
const (
	ModelProfile = "profile"
	ModelEmail   = "email"
)

// PostgresRepositoryManager vends PostgreSQL-backed repository implementations
// and exposes schema migration hooks for its account model.
type PostgresRepositoryManager struct {
	model        string
	dir          string
	versionTable string
	tables       permissions.Tables
}

// ProfileUsers returns a profileusers.Repository bound to the provided DBTX.
func (m *PostgresRepositoryManager) ProfileUsers(db dbx.DBTX) profileusers.Repository {
	return profileusers.NewPostgresRepository(db)
}

// EmailUsers returns an emailusers.Repository bound to the provided DBTX.
func (m *PostgresRepositoryManager) EmailUsers(db dbx.DBTX) emailusers.Repository {
	return emailusers.NewPostgresRepository(db)
}

// Permissions returns a permissions.Repository bound to the provided DBTX
// and to the link tables of the manager's account model.
func (m *PostgresRepositoryManager) Permissions(db dbx.DBTX) permissions.Repository {
	return permissions.NewPostgresRepository(db, m.tables)
}

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// gooseDownToContext is a seam for testing goose.DownToContext.
var gooseDownToContext = func(ctx context.Context, db *sql.DB, dir string, version int64, opts ...goose.OptionsFunc) error {
	return goose.DownToContext(ctx, db, dir, version, opts...)
}

func (m *PostgresRepositoryManager) setupGoose() error {
	goose.SetBaseFS(migrations.Migrations)
	goose.SetTableName(m.versionTable)
	return goose.SetDialect("pgx")
}

// RunMigrations applies every pending migration of the account model.
func (m *PostgresRepositoryManager) RunMigrations(ctx context.Context, db *sql.DB) error {
	if err := m.setupGoose(); err != nil {
		return err
	}
	if err := gooseUpContext(ctx, db, m.dir); err != nil {
		return fmt.Errorf("migrate %s: %w", m.model, err)
	}
	return nil
}

// ResetMigrations rolls the account model's schema back to version 0.
func (m *PostgresRepositoryManager) ResetMigrations(ctx context.Context, db *sql.DB) error {
	if err := m.setupGoose(); err != nil {
		return err
	}
	if err := gooseDownToContext(ctx, db, m.dir, 0); err != nil {
		return fmt.Errorf("reset %s: %w", m.model, err)
	}
	return nil
}

// NewPostgresRepositoryManager constructs a PostgreSQL-backed
// RepositoryManager for the given account model.
func NewPostgresRepositoryManager(model string) (RepositoryManager, error) {
	switch model {
	case ModelProfile:
		return &PostgresRepositoryManager{
			model:        model,
			dir:          migrations.ProfileDir,
			versionTable: migrations.ProfileVersionTable,
			tables:       permissions.ProfileTables,
		}, nil
	case ModelEmail:
		return &PostgresRepositoryManager{
			model:        model,
			dir:          migrations.EmailDir,
			versionTable: migrations.EmailVersionTable,
			tables:       permissions.EmailTables,
		}, nil
	default:
		return nil, fmt.Errorf("unknown account model %q", model)
	}
}

// Open connects to PostgreSQL through the pgx stdlib driver and checks the
// connection.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}
