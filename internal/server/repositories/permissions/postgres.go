package permissions

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/customuser/internal/common"
	"github.com/dmitrijs2005/customuser/internal/dbx"
	"github.com/dmitrijs2005/customuser/internal/server/models"
	"github.com/dmitrijs2005/customuser/internal/server/repositories/query"
)

// Tables names the link tables between one account table and groups and
// permissions.
type Tables struct {
	Groups      string
	Permissions string
}

var (
	ProfileTables = Tables{Groups: "profile_user_groups", Permissions: "profile_user_permissions"}
	EmailTables   = Tables{Groups: "email_user_groups", Permissions: "email_user_permissions"}
)

type PostgresRepository struct {
	db     dbx.DBTX
	tables Tables
}

func NewPostgresRepository(db dbx.DBTX, tables Tables) *PostgresRepository {
	return &PostgresRepository{db: db, tables: tables}
}

func (r *PostgresRepository) queryPermissions(ctx context.Context, q string, args ...any) ([]models.Permission, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var perms []models.Permission
	for rows.Next() {
		var p models.Permission
		if err := rows.Scan(&p.ID, &p.AppLabel, &p.Codename, &p.Name); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		perms = append(perms, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return perms, nil
}

func (r *PostgresRepository) ListPermissions(ctx context.Context) ([]models.Permission, error) {
	return r.queryPermissions(ctx,
		`SELECT id, app_label, codename, name FROM auth_permissions ORDER BY app_label, codename`)
}

func (r *PostgresRepository) GetPermissionsByKeys(ctx context.Context, keys []string) ([]models.Permission, error) {
	if len(keys) == 0 {
		return nil, nil
	}

	var b query.Builder
	args := make([]any, len(keys))
	for i, k := range keys {
		args[i] = k
	}
	q := `SELECT id, app_label, codename, name FROM auth_permissions
		  WHERE app_label || '.' || codename IN (` + b.In(args...) + `)
		  ORDER BY app_label, codename`

	perms, err := r.queryPermissions(ctx, q, b.Args()...)
	if err != nil {
		return nil, err
	}

	found := make(map[string]bool, len(perms))
	for _, p := range perms {
		found[p.Key()] = true
	}
	var missing []string
	for _, k := range keys {
		if !found[k] {
			missing = append(missing, k)
		}
	}
	if len(missing) > 0 {
		return nil, common.Validationf("unknown permissions: %s", strings.Join(missing, ", "))
	}
	return perms, nil
}

func (r *PostgresRepository) CreateGroup(ctx context.Context, name string) (*models.Group, error) {
	g := &models.Group{Name: name}
	err := r.db.QueryRowContext(ctx, `INSERT INTO auth_groups (name) VALUES ($1) RETURNING id`, name).Scan(&g.ID)
	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return nil, fmt.Errorf("%w: group %q", common.ErrorAlreadyExists, name)
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return g, nil
}

func (r *PostgresRepository) GetGroup(ctx context.Context, id int64) (*models.Group, error) {
	g := &models.Group{}
	err := r.db.QueryRowContext(ctx, `SELECT id, name FROM auth_groups WHERE id = $1`, id).Scan(&g.ID, &g.Name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	g.Permissions, err = r.queryPermissions(ctx,
		`SELECT p.id, p.app_label, p.codename, p.name
		 FROM auth_permissions p JOIN auth_group_permissions gp ON gp.permission_id = p.id
		 WHERE gp.group_id = $1
		 ORDER BY p.app_label, p.codename`, id)
	if err != nil {
		return nil, err
	}
	return g, nil
}

// scanGroups folds rows of (group, nullable permission) into groups.
func scanGroups(rows *sql.Rows) ([]models.Group, error) {
	var groups []models.Group
	for rows.Next() {
		var (
			gid                    int64
			gname                  string
			pid                    sql.NullInt64
			app, codename, display sql.NullString
		)
		if err := rows.Scan(&gid, &gname, &pid, &app, &codename, &display); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		if len(groups) == 0 || groups[len(groups)-1].ID != gid {
			groups = append(groups, models.Group{ID: gid, Name: gname})
		}
		if pid.Valid {
			last := &groups[len(groups)-1]
			last.Permissions = append(last.Permissions, models.Permission{
				ID: pid.Int64, AppLabel: app.String, Codename: codename.String, Name: display.String,
			})
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return groups, nil
}

func (r *PostgresRepository) ListGroups(ctx context.Context) ([]models.Group, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT g.id, g.name, p.id, p.app_label, p.codename, p.name
		 FROM auth_groups g
		 LEFT JOIN auth_group_permissions gp ON gp.group_id = g.id
		 LEFT JOIN auth_permissions p ON p.id = gp.permission_id
		 ORDER BY g.name, g.id, p.app_label, p.codename`)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()
	return scanGroups(rows)
}

// replaceLinks rewrites every link row of owner in table to point at ids.
func (r *PostgresRepository) replaceLinks(ctx context.Context, table, ownerCol, targetCol string, owner any, ids []int64) error {
	if _, err := r.db.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE %s = $1`, table, ownerCol), owner); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if len(ids) == 0 {
		return nil
	}

	var b query.Builder
	ownerPH := b.Arg(owner)
	values := make([]string, 0, len(ids))
	seen := make(map[int64]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		values = append(values, fmt.Sprintf("(%s, %s)", ownerPH, b.Arg(id)))
	}

	q := fmt.Sprintf(`INSERT INTO %s (%s, %s) VALUES %s`, table, ownerCol, targetCol, strings.Join(values, ", "))
	if _, err := r.db.ExecContext(ctx, q, b.Args()...); err != nil {
		if dbx.IsForeignKeyViolation(err) {
			return common.Validationf("unknown %s in %v", targetCol, ids)
		}
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) SetGroupPermissions(ctx context.Context, groupID int64, permissionIDs []int64) error {
	return r.replaceLinks(ctx, "auth_group_permissions", "group_id", "permission_id", groupID, permissionIDs)
}

func (r *PostgresRepository) DeleteGroup(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM auth_groups WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

func (r *PostgresRepository) LoadAccountAccess(ctx context.Context, accountID string) ([]models.Group, []models.Permission, error) {
	rows, err := r.db.QueryContext(ctx, fmt.Sprintf(
		`SELECT g.id, g.name, p.id, p.app_label, p.codename, p.name
		 FROM auth_groups g
		 JOIN %s ug ON ug.group_id = g.id
		 LEFT JOIN auth_group_permissions gp ON gp.group_id = g.id
		 LEFT JOIN auth_permissions p ON p.id = gp.permission_id
		 WHERE ug.user_id = $1
		 ORDER BY g.name, g.id, p.app_label, p.codename`, r.tables.Groups), accountID)
	if err != nil {
		return nil, nil, fmt.Errorf("db error: %w", err)
	}
	groups, err := scanGroups(rows)
	rows.Close()
	if err != nil {
		return nil, nil, err
	}

	perms, err := r.queryPermissions(ctx, fmt.Sprintf(
		`SELECT p.id, p.app_label, p.codename, p.name
		 FROM auth_permissions p
		 JOIN %s up ON up.permission_id = p.id
		 WHERE up.user_id = $1
		 ORDER BY p.app_label, p.codename`, r.tables.Permissions), accountID)
	if err != nil {
		return nil, nil, err
	}
	return groups, perms, nil
}

func (r *PostgresRepository) SetAccountGroups(ctx context.Context, accountID string, groupIDs []int64) error {
	return r.replaceLinks(ctx, r.tables.Groups, "user_id", "group_id", accountID, groupIDs)
}

func (r *PostgresRepository) SetAccountPermissions(ctx context.Context, accountID string, permissionIDs []int64) error {
	return r.replaceLinks(ctx, r.tables.Permissions, "user_id", "permission_id", accountID, permissionIDs)
}
