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

type ProfileUserManager interface {
	CreateUser(ctx context.Context, username, email, password string, opts ...services.Option) (*models.ProfileUser, error)
	Get(ctx context.Context, id string) (*models.ProfileUser, error)
	List(ctx context.Context, f query.ListFilter) ([]*models.ProfileUser, int, error)
	Save(ctx context.Context, u *models.ProfileUser) error
	SetPassword(ctx context.Context, id, raw string) error
	Delete(ctx context.Context, id string) error
	EmailUser(ctx context.Context, id, subject, message, from string) error
}

// The standard account layout with the profile fields in their own section.
var profileUserOptions = Options{
	AppLabel:          models.ProfileAppLabel,
	ModelName:         models.ProfileModelName,
	VerboseName:       "user",
	VerboseNamePlural: "users",
	ListDisplay:       []string{"username", "email", "first_name", "last_name", "is_staff"},
	ListFilter:        []string{"is_staff", "is_superuser", "is_active", "groups"},
	Ordering:          []string{"username"},
	SearchFields:      []string{"username", "first_name", "last_name", "email"},
	ListPerPage:       defaultListPerPage,
	Fieldsets: []Fieldset{
		{Fields: []string{"username", "password"}},
		{Name: "Personal info", Fields: []string{"first_name", "last_name", "email"}},
		{Name: "Permissions", Fields: []string{"is_active", "is_staff", "is_superuser", "groups", "user_permissions"}},
		{Name: "Important dates", Fields: []string{"last_login", "date_joined"}},
		{Name: "Additionally", Fields: []string{"birth_date", "title"}},
	},
	AddFieldsets: []Fieldset{
		{Fields: []string{"username", "password1", "password2"}},
	},
}

type ProfileUserAdmin struct {
	users  ProfileUserManager
	logger logging.Logger
}

func NewProfileUserAdmin(users ProfileUserManager, logger logging.Logger) *ProfileUserAdmin {
	return &ProfileUserAdmin{users: users, logger: logger}
}

func (a *ProfileUserAdmin) Options() Options {
	return profileUserOptions
}

func (a *ProfileUserAdmin) values(u *models.ProfileUser) map[string]any {
	return map[string]any{
		"username":         u.Username,
		"password":         passwords.Summary(u.Password),
		"first_name":       u.FirstName,
		"last_name":        u.LastName,
		"email":            u.Email,
		"is_active":        u.IsActive,
		"is_staff":         u.IsStaff,
		"is_superuser":     u.IsSuperuser,
		"groups":           u.GroupIDs(),
		"user_permissions": u.GetUserPermissions(),
		"last_login":       u.LastLogin,
		"date_joined":      u.DateJoined,
		"birth_date":       formatDate(u.BirthDate),
		"title":            u.Title,
	}
}

func (a *ProfileUserAdmin) List(ctx context.Context, f query.ListFilter) (*Page, error) {
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

func (a *ProfileUserAdmin) Detail(ctx context.Context, id string) (*Record, error) {
	u, err := a.users.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return record(a.Options(), u.ID, u.String(), a.values(u)), nil
}

func (a *ProfileUserAdmin) Add(ctx context.Context, form AddForm) (*Record, error) {
	password, err := form.clean(a.Options().AddFieldsets)
	if err != nil {
		return nil, err
	}
	u, err := a.users.CreateUser(ctx, form.Username, "", password)
	if err != nil {
		return nil, err
	}
	a.logger.Info(ctx, "admin added account", "model", a.Options().Label(), "id", u.ID)
	return record(a.Options(), u.ID, u.String(), a.values(u)), nil
}

func (a *ProfileUserAdmin) Change(ctx context.Context, id string, form ChangeForm) (*Record, error) {
	if err := checkGiven(form.given(), a.Options().Fieldsets); err != nil {
		return nil, err
	}
	u, err := a.users.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if form.Username != nil {
		u.Username = *form.Username
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
	if form.Title != nil {
		u.Title = *form.Title
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

func (a *ProfileUserAdmin) SetPassword(ctx context.Context, id string, form PasswordForm) error {
	password, err := form.clean()
	if err != nil {
		return err
	}
	return a.users.SetPassword(ctx, id, password)
}

func (a *ProfileUserAdmin) Delete(ctx context.Context, id string) error {
	return a.users.Delete(ctx, id)
}

func (a *ProfileUserAdmin) EmailUser(ctx context.Context, id string, form EmailForm) error {
	if err := form.clean(); err != nil {
		return err
	}
	if err := a.users.EmailUser(ctx, id, form.Subject, form.Message, form.From); err != nil {
		return fmt.Errorf("error emailing %s: %w", id, err)
	}
	return nil
}

var _ ModelAdmin = (*ProfileUserAdmin)(nil)
