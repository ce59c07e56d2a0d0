package emailusers

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/customuser/internal/common"
	"github.com/dmitrijs2005/customuser/internal/dbx"
	"github.com/dmitrijs2005/customuser/internal/server/models"
	"github.com/dmitrijs2005/customuser/internal/server/repositories/query"
)

const columns = `id, password, last_login, is_superuser, email, first_name, last_name, birth_date, is_staff, is_active, date_joined`

// GroupsTable links accounts to groups; the group filter selects through it.
const GroupsTable = "email_user_groups"

var searchColumns = []string{"email", "first_name", "last_name", "CAST(birth_date AS TEXT)"}

var orderColumns = map[string]string{
	"email":       "lower(email)",
	"first_name":  "first_name",
	"last_name":   "last_name",
	"birth_date":  "birth_date",
	"is_staff":    "is_staff",
	"is_active":   "is_active",
	"date_joined": "date_joined",
	"last_login":  "last_login",
}

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanUser(row scanner) (*models.EmailUser, error) {
	var (
		u         models.EmailUser
		lastLogin sql.NullTime
		birthDate sql.NullTime
	)
	err := row.Scan(&u.ID, &u.Password, &lastLogin, &u.IsSuperuser, &u.Email,
		&u.FirstName, &u.LastName, &birthDate, &u.IsStaff, &u.IsActive, &u.DateJoined)
	if err != nil {
		return nil, err
	}
	if lastLogin.Valid {
		u.LastLogin = &lastLogin.Time
	}
	if birthDate.Valid {
		u.BirthDate = &birthDate.Time
	}
	return &u, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func wrap(err error) error {
	if dbx.IsUniqueViolation(err) {
		return common.ErrEmailTaken
	}
	return fmt.Errorf("db error: %w", err)
}

// byID wraps errors of statements keyed by id. An id that is not a UUID
// names no account.
func byID(err error) error {
	if dbx.IsInvalidText(err) {
		return common.ErrorNotFound
	}
	return fmt.Errorf("db error: %w", err)
}

func (r *PostgresRepository) Create(ctx context.Context, user *models.EmailUser) (*models.EmailUser, error) {
	query :=
		`INSERT INTO email_users (id, password, last_login, is_superuser, email, first_name, last_name, birth_date, is_staff, is_active, date_joined)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 RETURNING id
		 `

	err := r.db.QueryRowContext(ctx, query,
		user.ID, user.Password, nullTime(user.LastLogin), user.IsSuperuser, user.Email,
		user.FirstName, user.LastName, nullTime(user.BirthDate), user.IsStaff, user.IsActive, user.DateJoined,
	).Scan(&user.ID)
	if err != nil {
		return nil, wrap(err)
	}

	return user, nil
}

func (r *PostgresRepository) getOne(ctx context.Context, where string, arg any) (*models.EmailUser, error) {
	query := `SELECT ` + columns + ` FROM email_users WHERE ` + where

	user, err := scanUser(r.db.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, byID(err)
	}
	return user, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.EmailUser, error) {
	return r.getOne(ctx, "id = $1", id)
}

// GetByEmail matches case-insensitively, as the unique index does.
func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*models.EmailUser, error) {
	return r.getOne(ctx, "lower(email) = lower($1)", email)
}

func (r *PostgresRepository) ExistsByEmail(ctx context.Context, email, excludeID string) (bool, error) {
	query :=
		`SELECT EXISTS (
		   SELECT 1 FROM email_users
		   WHERE lower(email) = lower($1) AND ($2 = '' OR id::text <> $2)
		 )`

	var exists bool
	if err := r.db.QueryRowContext(ctx, query, email, excludeID).Scan(&exists); err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return exists, nil
}

// List returns one page of accounts and the number of accounts matching f
// across all pages.
func (r *PostgresRepository) List(ctx context.Context, f query.ListFilter) ([]*models.EmailUser, int, error) {
	order, err := query.OrderBy(f.Ordering, orderColumns, []string{"email"})
	if err != nil {
		return nil, 0, common.Validationf("%v", err)
	}

	var b query.Builder
	b.Flags(f, GroupsTable)
	b.Search(f.Search, searchColumns)
	where := b.Clause()

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT count(*) FROM email_users`+where, b.Args()...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("db error: %w", err)
	}

	page := b.Page(f)
	rows, err := r.db.QueryContext(ctx, `SELECT `+columns+` FROM email_users`+where+order+page, b.Args()...)
	if err != nil {
		return nil, 0, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var users []*models.EmailUser
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("db error: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("db error: %w", err)
	}

	return users, total, nil
}

func (r *PostgresRepository) Update(ctx context.Context, user *models.EmailUser) error {
	query :=
		`UPDATE email_users
		 SET password = $2, last_login = $3, is_superuser = $4, email = $5, first_name = $6,
		     last_name = $7, birth_date = $8, is_staff = $9, is_active = $10, date_joined = $11
		 WHERE id = $1
		 `

	res, err := r.db.ExecContext(ctx, query,
		user.ID, user.Password, nullTime(user.LastLogin), user.IsSuperuser, user.Email,
		user.FirstName, user.LastName, nullTime(user.BirthDate), user.IsStaff, user.IsActive, user.DateJoined,
	)
	if dbx.IsInvalidText(err) {
		return common.ErrorNotFound
	}
	if err != nil {
		return wrap(err)
	}
	return expectOne(res)
}

func (r *PostgresRepository) UpdateLastLogin(ctx context.Context, id string, at time.Time) error {
	res, err := r.db.ExecContext(ctx, `UPDATE email_users SET last_login = $2 WHERE id = $1`, id, at)
	if err != nil {
		return byID(err)
	}
	return expectOne(res)
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM email_users WHERE id = $1`, id)
	if err != nil {
		return byID(err)
	}
	return expectOne(res)
}

func expectOne(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}
