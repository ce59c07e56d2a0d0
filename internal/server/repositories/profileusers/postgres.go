package profileusers

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

const columns = `id, password, last_login, is_superuser, username, first_name, last_name, email, is_staff, is_active, date_joined, birth_date, title`

const GroupsTable = "profile_user_groups"

var searchColumns = []string{"username", "first_name", "last_name", "email"}

var orderColumns = map[string]string{
	"username":    "username",
	"first_name":  "first_name",
	"last_name":   "last_name",
	"email":       "email",
	"title":       "title",
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

func scanUser(row scanner) (*models.ProfileUser, error) {
	var (
		u         models.ProfileUser
		lastLogin sql.NullTime
		birthDate sql.NullTime
	)
	err := row.Scan(&u.ID, &u.Password, &lastLogin, &u.IsSuperuser, &u.Username, &u.FirstName,
		&u.LastName, &u.Email, &u.IsStaff, &u.IsActive, &u.DateJoined, &birthDate, &u.Title)
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
		return common.ErrUsernameTaken
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

func (r *PostgresRepository) Create(ctx context.Context, user *models.ProfileUser) (*models.ProfileUser, error) {
	query :=
		`INSERT INTO profile_users (id, password, last_login, is_superuser, username, first_name, last_name, email, is_staff, is_active, date_joined, birth_date, title)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		 RETURNING id
		 `

	err := r.db.QueryRowContext(ctx, query,
		user.ID, user.Password, nullTime(user.LastLogin), user.IsSuperuser, user.Username, user.FirstName,
		user.LastName, user.Email, user.IsStaff, user.IsActive, user.DateJoined, nullTime(user.BirthDate), user.Title,
	).Scan(&user.ID)
	if err != nil {
		return nil, wrap(err)
	}

	return user, nil
}

func (r *PostgresRepository) getOne(ctx context.Context, where string, arg any) (*models.ProfileUser, error) {
	user, err := scanUser(r.db.QueryRowContext(ctx, `SELECT `+columns+` FROM profile_users WHERE `+where, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, byID(err)
	}
	return user, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.ProfileUser, error) {
	return r.getOne(ctx, "id = $1", id)
}

// GetByUsername matches exactly; usernames are case-sensitive.
func (r *PostgresRepository) GetByUsername(ctx context.Context, username string) (*models.ProfileUser, error) {
	return r.getOne(ctx, "username = $1", username)
}

func (r *PostgresRepository) List(ctx context.Context, f query.ListFilter) ([]*models.ProfileUser, int, error) {
	order, err := query.OrderBy(f.Ordering, orderColumns, []string{"username"})
	if err != nil {
		return nil, 0, common.Validationf("%v", err)
	}

	var b query.Builder
	b.Flags(f, GroupsTable)
	b.Search(f.Search, searchColumns)
	where := b.Clause()

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT count(*) FROM profile_users`+where, b.Args()...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("db error: %w", err)
	}

	page := b.Page(f)
	rows, err := r.db.QueryContext(ctx, `SELECT `+columns+` FROM profile_users`+where+order+page, b.Args()...)
	if err != nil {
		return nil, 0, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var users []*models.ProfileUser
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

func (r *PostgresRepository) Update(ctx context.Context, user *models.ProfileUser) error {
	query :=
		`UPDATE profile_users
		 SET password = $2, last_login = $3, is_superuser = $4, username = $5, first_name = $6, last_name = $7,
		     email = $8, is_staff = $9, is_active = $10, date_joined = $11, birth_date = $12, title = $13
		 WHERE id = $1
		 `

	res, err := r.db.ExecContext(ctx, query,
		user.ID, user.Password, nullTime(user.LastLogin), user.IsSuperuser, user.Username, user.FirstName,
		user.LastName, user.Email, user.IsStaff, user.IsActive, user.DateJoined, nullTime(user.BirthDate), user.Title,
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
	res, err := r.db.ExecContext(ctx, `UPDATE profile_users SET last_login = $2 WHERE id = $1`, id, at)
	if err != nil {
		return byID(err)
	}
	return expectOne(res)
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM profile_users WHERE id = $1`, id)
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
