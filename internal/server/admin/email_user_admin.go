package admin

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/customuser/internal/logging"
	"github.com/dmitrijs2005/customuser/internal/passwords"
	"github.com/dmitrijs2005/customuser/internal/server/models"
	"github.com/dmitrijs2005/customuser/internal/server/repositories/query"
	"github.com/dmitrijs2005/customuser/internal/server/services"
)

// EmailUserManager is the part of services.EmailUserManager the admin uses.
type EmailUserManager interface {
	CreateUser(ctx context.Context, email, password string, opts ...services.Option) (*models.EmailUser, error)
	Get(ctx context.Context, id string) (*models.EmailUser, error)
	List(ctx context.Context, f query.ListFilter) ([]*models.EmailUser, int, error)
	Save(ctx context.Context, u *models.EmailUser) error
	SetPassword(ctx context.Context, id, raw string) error
	Delete(ctx context.Context, id string) error
	EmailUser(ctx context.Context, id, subject, message, from string) error
}

var emailUserOptions = Options{
	AppLabel:          models.EmailAppLabel,
	ModelName:         models.EmailModelName,
	VerboseName:       "user",
	VerboseNamePlural: "users",
	ListDisplay:       []string{"email", "first_name", "last_name", "birth_date", "is_staff", "is_active"},
	ListFilter:        []string{"is_staff", "is_superuser", "is_active", "groups"},
	Ordering:          []string{"email"},
	SearchFields:      []string{"email", "first_name", "last_name", "birth_date"},
	ListPerPage:       defaultListPerPage,
	Fieldsets: []Fieldset{
		{Fields: []string{"email", "password"}},
		{Name: "Personal information", Fields: []string{"first_name", "last_name", "birth_date"}},
		{Name: "Permissions", Fields: []string{"is_active", "is_staff", "is_superuser", "groups", "user_permissions"}},
		{Name: "Dates", Fields: []string{"date_joined", "last_login"}},
	},
	AddFieldsets: []Fieldset{
		{Fields: []string{"email", "password1", "password2", "is_active", "is_staff", "is_superuser"}},
	},
}

type EmailUserAdmin struct {
	users  EmailUserManager
	logger logging.Logger
}

func NewEmailUserAdmin(users EmailUserManager, logger logging.Logger) *EmailUserAdmin {
	return &EmailUserAdmin{users: users, logger: logger}
}

func (a *EmailUserAdmin) Options() Options {
	return emailUserOptions
}

func (a *EmailUserAdmin) values(u *models.EmailUser) map[string]any {
	return map[string]any{
		"email":            u.Email,
		"password":         passwords.Summary(u.Password),
		"first_name":       u.FirstName,
		"last_name":        u.LastName,
		"birth_date":       formatDate(u.BirthDate),
		"is_active":        u.IsActive,
		"is_staff":         u.IsStaff,
		"is_superuser":     u.IsSuperuser,
		"groups":           u.GroupIDs(),
		"user_permissions": u.GetUserPermissions(),
		"date_joined":      u.DateJoined,
		"last_login":       u.LastLogin,
	}
}

func (a *EmailUserAdmin) List(ctx context.Context, f query.ListFilter) (*Page, error) {
	o := a.Options()
	f = prepare(o, f)
	users, total, err := a.users.List(ctx, f)
	if err != nil {
		return nil, err
	}
	page := &Page{Model: o.Label(), Columns: o.ListDisplay, Rows: make([]Row, 0, len(users)), Total: total, Limit: f.Limit, Offset: f.Offset}
	for _, u := range users {
		page.Rows = append(page.Rows, row(o, u.ID, u.String(), a.values(u)))
	}
	return page, nil
}

func (a *EmailUserAdmin) Detail(ctx context.Context, id string) (*Record, error) {
	u, err := a.users.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return record(a.Options(), u.ID, u.String(), a.values(u)), nil
}

func (a *EmailUserAdmin) Add(ctx context.Context, form AddForm) (*Record, error) {
	password, err := form.clean(a.Options().AddFieldsets)
	if err != nil {
		return nil, err
	}

	var opts []services.Option
	if form.IsActive != nil {
		opts = append(opts, services.WithActive(*form.IsActive))
	}
	if form.IsStaff != nil {
		opts = append(opts, services.WithStaff(*form.IsStaff))
	}
	if form.IsSuperuser != nil {
		opts = append(opts, services.WithSuperuser(*form.IsSuperuser))
	}

	u, err := a.users.CreateUser(ctx, form.Email, password, opts...)
	if err != nil {
		return nil, err
	}
	a.logger.Info(ctx, "admin added account", "model", a.Options().Label(), "id", u.ID)
	return record(a.Options(), u.ID, u.String(), a.values(u)), nil
}

func (a *EmailUserAdmin) Change(ctx context.Context, id string, form ChangeForm) (*Record, error) {
	if err := checkGiven(form.given(), a.Options().Fieldsets); err != nil {
		return nil, err
	}
	u, err := a.users.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if form.Email != nil {
		u.Email = *form.Email
	}
	if form.FirstName != nil {
		u.FirstName = *form.FirstName
	}
	if form.LastName != nil {
		u.LastName = *form.LastName
	}
	if form.BirthDate != nil {
		if u.BirthDate, err = parseDate("birth_date", *form.BirthDate); err != nil {
			return nil, err
		}
	}
	if form.IsActive != nil {
		u.IsActive = *form.IsActive
	}
	if form.IsStaff != nil {
		u.IsStaff = *form.IsStaff
	}
	if form.DateJoined != nil {
		u.DateJoined = form.DateJoined.UTC()
	}
	if form.LastLogin != nil {
		t := form.LastLogin.UTC()
		u.LastLogin = &t
	}
	if err := form.applyAccess(&u.PermissionsMixin); err != nil {
		return nil, err
	}

	if err := a.users.Save(ctx, u); err != nil {
		return nil, err
	}
	a.logger.Info(ctx, "admin changed account", "model", a.Options().Label(), "id", id, "fields", form.given())
	return record(a.Options(), u.ID, u.String(), a.values(u)), nil
}

func (a *EmailUserAdmin) SetPassword(ctx context.Context, id string, form PasswordForm) error {
	password, err := form.clean()
	if err != nil {
		return err
	}
	return a.users.SetPassword(ctx, id, password)
}

func (a *EmailUserAdmin) Delete(ctx context.Context, id string) error {
	return a.users.Delete(ctx, id)
}

func (a *EmailUserAdmin) EmailUser(ctx context.Context, id string, form EmailForm) error {
	if err := form.clean(); err != nil {
		return err
	}
	if err := a.users.EmailUser(ctx, id, form.Subject, form.Message, form.From); err != nil {
		return fmt.Errorf("error emailing %s: %w", id, err)
	}
	return nil
}

var _ ModelAdmin = (*EmailUserAdmin)(nil)
