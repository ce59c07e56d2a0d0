// Package migrations embeds the goose SQL migrations of both account
// variants. Each variant lives in its own directory and is tracked in its own
// goose version table, so one can be reset without touching the other.
package migrations

import "embed"

//go:embed profile/*.sql email/*.sql
var Migrations embed.FS

// Directories inside Migrations and the goose version tables tracking them.
const (
	ProfileDir = "profile"
	EmailDir   = "email"

	ProfileVersionTable = "goose_db_version_profiles"
	EmailVersionTable   = "goose_db_version_accounts"
)
