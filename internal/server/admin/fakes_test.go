package admin

import (
	"context"
	"strings"
	"time"

	"github.com/dmitrijs2005/customuser/internal/common"
	"github.com/dmitrijs2005/customuser/internal/server/models"
	"github.com/dmitrijs2005/customuser/internal/server/repositories/query"
	"github.com/dmitrijs2005/customuser/internal/server/services"
)

type sentMail struct {
	id, subject, message, from string
}

type fakeEmailUsers struct {
	users     map[string]*models.EmailUser
	passwords map[string]string
	lastList  query.ListFilter
	sent      []sentMail
	seq       int
}

func newFakeEmailUsers(users ...*models.EmailUser) *fakeEmailUsers {
	f := &fakeEmailUsers{users: map[string]*models.EmailUser{}, passwords: map[string]string{}}
	for _, u := range users {
		f.users[u.ID] = u
	}
	return f
}

func (f *fakeEmailUsers) CreateUser(_ context.Context, email, password string, opts ...services.Option) (*models.EmailUser, error) {
	if strings.TrimSpace(email) == "" {
		return nil, common.ErrEmailRequired
	}
	x := services.NewExtraFields(opts...)
	f.seq++
	u := &models.EmailUser{ID: "e" + string(rune('0'+f.seq)), Email: email, IsActive: true, DateJoined: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	if x.IsActive != nil {
		u.IsActive = *x.IsActive
	}
	if x.IsStaff != nil {
		u.IsStaff = *x.IsStaff
	}
	if x.IsSuperuser != nil {
		u.IsSuperuser = *x.IsSuperuser
	}
	f.users[u.ID] = u
	f.passwords[u.ID] = password
	return u, nil
}

func (f *fakeEmailUsers) Get(_ context.Context, id string) (*models.EmailUser, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	c := *u
	return &c, nil
}

func (f *fakeEmailUsers) List(_ context.Context, q query.ListFilter) ([]*models.EmailUser, int, error) {
	f.lastList = q
	var out []*models.EmailUser
	for _, u := range f.users {
		out = append(out, u)
	}
	return out, len(out), nil
}

func (f *fakeEmailUsers) Save(_ context.Context, u *models.EmailUser) error {
	if _, ok := f.users[u.ID]; !ok {
		return common.ErrorNotFound
	}
	f.users[u.ID] = u
	return nil
}

func (f *fakeEmailUsers) SetPassword(_ context.Context, id, raw string) error {
	if _, ok := f.users[id]; !ok {
		return common.ErrorNotFound
	}
	f.passwords[id] = raw
	return nil
}

func (f *fakeEmailUsers) Delete(_ context.Context, id string) error {
	if _, ok := f.users[id]; !ok {
		return common.ErrorNotFound
	}
	delete(f.users, id)
	return nil
}

func (f *fakeEmailUsers) EmailUser(_ context.Context, id, subject, message, from string) error {
	if _, ok := f.users[id]; !ok {
		return common.ErrorNotFound
	}
	f.sent = append(f.sent, sentMail{id, subject, message, from})
	return nil
}

type fakeProfileUsers struct {
	users       map[string]*models.ProfileUser
	lastCreated string
}

func newFakeProfileUsers(users ...*models.ProfileUser) *fakeProfileUsers {
	f := &fakeProfileUsers{users: map[string]*models.ProfileUser{}}
	for _, u := range users {
		f.users[u.ID] = u
	}
	return f
}

func (f *fakeProfileUsers) CreateUser(_ context.Context, username, email, password string, _ ...services.Option) (*models.ProfileUser, error) {
	if username == "" {
		return nil, common.ErrUsernameRequired
	}
	u := &models.ProfileUser{}
	u.ID = "p-" + username
	u.Username = username
	u.Email = email
	u.IsActive = true
	f.users[u.ID] = u
	f.lastCreated = password
	return u, nil
}

func (f *fakeProfileUsers) Get(_ context.Context, id string) (*models.ProfileUser, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	c := *u
	return &c, nil
}

func (f *fakeProfileUsers) List(_ context.Context, _ query.ListFilter) ([]*models.ProfileUser, int, error) {
	var out []*models.ProfileUser
	for _, u := range f.users {
		out = append(out, u)
	}
	return out, len(out), nil
}

func (f *fakeProfileUsers) Save(_ context.Context, u *models.ProfileUser) error {
	f.users[u.ID] = u
	return nil
}

func (f *fakeProfileUsers) SetPassword(_ context.Context, id, _ string) error {
	if _, ok := f.users[id]; !ok {
		return common.ErrorNotFound
	}
	return nil
}

func (f *fakeProfileUsers) Delete(_ context.Context, id string) error {
	delete(f.users, id)
	return nil
}

func (f *fakeProfileUsers) EmailUser(_ context.Context, id, _, _, _ string) error {
	u, ok := f.users[id]
	if !ok {
		return common.ErrorNotFound
	}
	if u.Email == "" {
		return common.Validationf("account has no email")
	}
	return nil
}

func ptr[T any](v T) *T { return &v }
