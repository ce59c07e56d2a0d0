package web

import (
	"context"
	"time"

	"github.com/dmitrijs2005/customuser/internal/common"
	"github.com/dmitrijs2005/customuser/internal/server/admin"
	"github.com/dmitrijs2005/customuser/internal/server/models"
	"github.com/dmitrijs2005/customuser/internal/server/repositories/query"
)

type fakeBackend struct {
	accounts  map[string]*models.EmailUser
	passwords map[string]string
}

func newFakeBackend() *fakeBackend {
	b := &fakeBackend{accounts: map[string]*models.EmailUser{}, passwords: map[string]string{}}

	super := &models.EmailUser{ID: "su", Email: "root@example.com", IsActive: true, IsStaff: true}
	super.IsSuperuser = true
	b.add(super, "pw")

	viewer := &models.EmailUser{ID: "viewer", Email: "viewer@example.com", IsActive: true, IsStaff: true}
	viewer.UserPermissions = []models.Permission{{AppLabel: "accounts", Codename: "view_emailuser"}}
	b.add(viewer, "pw")

	b.add(&models.EmailUser{ID: "plain", Email: "plain@example.com", IsActive: true}, "pw")
	return b
}

func (b *fakeBackend) add(u *models.EmailUser, password string) {
	b.accounts[u.ID] = u
	b.passwords[u.Email] = password
}

func (b *fakeBackend) Label() string { return "accounts.emailuser" }

func (b *fakeBackend) Authenticate(_ context.Context, login, password string) (models.Account, error) {
	for _, u := range b.accounts {
		if u.Email == login && b.passwords[login] == password && u.IsActive {
			return u, nil
		}
	}
	return nil, common.ErrorUnauthorized
}

func (b *fakeBackend) GetAccount(_ context.Context, id string) (models.Account, error) {
	u, ok := b.accounts[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return u, nil
}

type fakeModelAdmin struct {
	lastFilter query.ListFilter
	deleted    []string
}

func (a *fakeModelAdmin) Options() admin.Options {
	return admin.Options{
		AppLabel:          "accounts",
		ModelName:         "emailuser",
		VerboseName:       "user",
		VerboseNamePlural: "users",
		ListDisplay:       []string{"email", "is_staff"},
		ListFilter:        []string{"is_staff", "groups"},
		SearchFields:      []string{"email"},
		Ordering:          []string{"email"},
		ListPerPage:       2,
		Fieldsets: []admin.Fieldset{
			{Fields: []string{"email", "password"}},
			{Name: "Dates", Fields: []string{"date_joined"}},
		},
		AddFieldsets:      []admin.Fieldset{{Fields: []string{"email", "password1", "password2"}}},
	}
}

func (a *fakeModelAdmin) List(_ context.Context, f query.ListFilter) (*admin.Page, error) {
	a.lastFilter = f
	return &admin.Page{
		Model:   "accounts.emailuser",
		Columns: []string{"email", "is_staff"},
		Rows: []admin.Row{
			{ID: "su", Label: "root@example.com", Values: []any{"root@example.com", true}},
			{ID: "viewer", Label: "viewer@example.com", Values: []any{"viewer@example.com", true}},
		},
		Total:  3,
		Limit:  f.Limit,
		Offset: f.Offset,
	}, nil
}

func (a *fakeModelAdmin) Detail(_ context.Context, id string) (*admin.Record, error) {
	if id == "missing" {
		return nil, common.ErrorNotFound
	}
	return &admin.Record{
		ID:        id,
		Label:     id + "@example.com",
		Fieldsets: a.Options().Fieldsets,
		Values:    map[string]any{"email": id + "@example.com", "password": nil, "date_joined": time.Date(2024, 1, 2, 3, 4, 0, 0, time.UTC)},
	}, nil
}

func (a *fakeModelAdmin) Add(_ context.Context, form admin.AddForm) (*admin.Record, error) {
	if form.Email == "taken@example.com" {
		return nil, common.ErrEmailTaken
	}
	if form.Password1 != form.Password2 {
		return nil, common.ErrPasswordMismatch
	}
	return &admin.Record{ID: "new", Label: form.Email, Values: map[string]any{"email": form.Email}}, nil
}

func (a *fakeModelAdmin) Change(_ context.Context, id string, form admin.ChangeForm) (*admin.Record, error) {
	if id == "missing" {
		return nil, common.ErrorNotFound
	}
	rec := &admin.Record{ID: id, Values: map[string]any{}}
	if form.FirstName != nil {
		rec.Values["first_name"] = *form.FirstName
	}
	return rec, nil
}

func (a *fakeModelAdmin) SetPassword(_ context.Context, _ string, form admin.PasswordForm) error {
	if form.Password1 != form.Password2 {
		return common.ErrPasswordMismatch
	}
	return nil
}

func (a *fakeModelAdmin) Delete(_ context.Context, id string) error {
	if id == "missing" {
		return common.ErrorNotFound
	}
	a.deleted = append(a.deleted, id)
	return nil
}

func (a *fakeModelAdmin) EmailUser(_ context.Context, id string, form admin.EmailForm) error {
	if form.Subject == "" {
		return common.Validationf("subject: this field is required")
	}
	return nil
}
