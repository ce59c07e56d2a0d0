package services

import (
	"context"
	"database/sql"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/customuser/internal/common"
	"github.com/dmitrijs2005/customuser/internal/dbx"
	"github.com/dmitrijs2005/customuser/internal/emailer"
	"github.com/dmitrijs2005/customuser/internal/passwords"
	"github.com/dmitrijs2005/customuser/internal/server/models"
	"github.com/dmitrijs2005/customuser/internal/server/repositories/emailusers"
	"github.com/dmitrijs2005/customuser/internal/server/repositories/permissions"
	"github.com/dmitrijs2005/customuser/internal/server/repositories/profileusers"
	"github.com/dmitrijs2005/customuser/internal/server/repositories/query"
	"github.com/stretchr/testify/require"
)

// --- in-memory repositories ---

type fakeEmailRepo struct {
	users        map[string]*models.EmailUser
	lastLoginSet int
	updates      int
}

func (r *fakeEmailRepo) find(email string) *models.EmailUser {
	for _, u := range r.users {
		if strings.EqualFold(u.Email, email) {
			return u
		}
	}
	return nil
}

func (r *fakeEmailRepo) Create(_ context.Context, u *models.EmailUser) (*models.EmailUser, error) {
	if r.find(u.Email) != nil {
		return nil, common.ErrEmailTaken
	}
	c := *u
	r.users[u.ID] = &c
	return u, nil
}

func (r *fakeEmailRepo) GetByID(_ context.Context, id string) (*models.EmailUser, error) {
	u, ok := r.users[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	c := *u
	return &c, nil
}

func (r *fakeEmailRepo) GetByEmail(_ context.Context, email string) (*models.EmailUser, error) {
	u := r.find(email)
	if u == nil {
		return nil, common.ErrorNotFound
	}
	c := *u
	return &c, nil
}

func (r *fakeEmailRepo) ExistsByEmail(_ context.Context, email, excludeID string) (bool, error) {
	u := r.find(email)
	return u != nil && u.ID != excludeID, nil
}

func (r *fakeEmailRepo) List(_ context.Context, _ query.ListFilter) ([]*models.EmailUser, int, error) {
	var out []*models.EmailUser
	for _, u := range r.users {
		c := *u
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	return out, len(out), nil
}

func (r *fakeEmailRepo) Update(_ context.Context, u *models.EmailUser) error {
	if _, ok := r.users[u.ID]; !ok {
		return common.ErrorNotFound
	}
	r.updates++
	c := *u
	r.users[u.ID] = &c
	return nil
}

func (r *fakeEmailRepo) UpdateLastLogin(_ context.Context, id string, at time.Time) error {
	u, ok := r.users[id]
	if !ok {
		return common.ErrorNotFound
	}
	r.lastLoginSet++
	u.LastLogin = &at
	return nil
}

func (r *fakeEmailRepo) Delete(_ context.Context, id string) error {
	if _, ok := r.users[id]; !ok {
		return common.ErrorNotFound
	}
	delete(r.users, id)
	return nil
}

type fakeProfileRepo struct {
	users map[string]*models.ProfileUser
}

func (r *fakeProfileRepo) Create(_ context.Context, u *models.ProfileUser) (*models.ProfileUser, error) {
	for _, x := range r.users {
		if x.Username == u.Username {
			return nil, common.ErrUsernameTaken
		}
	}
	c := *u
	r.users[u.ID] = &c
	return u, nil
}

func (r *fakeProfileRepo) GetByID(_ context.Context, id string) (*models.ProfileUser, error) {
	u, ok := r.users[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	c := *u
	return &c, nil
}

func (r *fakeProfileRepo) GetByUsername(_ context.Context, username string) (*models.ProfileUser, error) {
	for _, u := range r.users {
		if u.Username == username {
			c := *u
			return &c, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r *fakeProfileRepo) List(_ context.Context, _ query.ListFilter) ([]*models.ProfileUser, int, error) {
	var out []*models.ProfileUser
	for _, u := range r.users {
		c := *u
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, len(out), nil
}

func (r *fakeProfileRepo) Update(_ context.Context, u *models.ProfileUser) error {
	if _, ok := r.users[u.ID]; !ok {
		return common.ErrorNotFound
	}
	c := *u
	r.users[u.ID] = &c
	return nil
}

func (r *fakeProfileRepo) UpdateLastLogin(_ context.Context, id string, at time.Time) error {
	u, ok := r.users[id]
	if !ok {
		return common.ErrorNotFound
	}
	u.LastLogin = &at
	return nil
}

func (r *fakeProfileRepo) Delete(_ context.Context, id string) error {
	if _, ok := r.users[id]; !ok {
		return common.ErrorNotFound
	}
	delete(r.users, id)
	return nil
}

type fakePermsRepo struct {
	perms         []models.Permission
	groups        map[int64]*models.Group
	nextGroup     int64
	accountGroups map[string][]int64
	accountPerms  map[string][]int64
}

func newFakePermsRepo() *fakePermsRepo {
	r := &fakePermsRepo{
		groups:        map[int64]*models.Group{},
		nextGroup:     1,
		accountGroups: map[string][]int64{},
		accountPerms:  map[string][]int64{},
	}
	id := int64(1)
	for _, model := range [][2]string{{models.EmailAppLabel, models.EmailModelName}, {models.ProfileAppLabel, models.ProfileModelName}} {
		for _, action := range []string{"add", "change", "delete", "view"} {
			r.perms = append(r.perms, models.Permission{ID: id, AppLabel: model[0], Codename: action + "_" + model[1], Name: "Can " + action})
			id++
		}
	}
	return r
}

func (r *fakePermsRepo) byID(id int64) (models.Permission, bool) {
	for _, p := range r.perms {
		if p.ID == id {
			return p, true
		}
	}
	return models.Permission{}, false
}

func (r *fakePermsRepo) ListPermissions(context.Context) ([]models.Permission, error) {
	return r.perms, nil
}

func (r *fakePermsRepo) GetPermissionsByKeys(_ context.Context, keys []string) ([]models.Permission, error) {
	var out []models.Permission
	for _, k := range keys {
		found := false
		for _, p := range r.perms {
			if p.Key() == k {
				out = append(out, p)
				found = true
			}
		}
		if !found {
			return nil, common.Validationf("unknown permissions: %s", k)
		}
	}
	return out, nil
}

func (r *fakePermsRepo) CreateGroup(_ context.Context, name string) (*models.Group, error) {
	for _, g := range r.groups {
		if g.Name == name {
			return nil, common.ErrorAlreadyExists
		}
	}
	g := &models.Group{ID: r.nextGroup, Name: name}
	r.groups[g.ID] = g
	r.nextGroup++
	c := *g
	return &c, nil
}

func (r *fakePermsRepo) GetGroup(_ context.Context, id int64) (*models.Group, error) {
	g, ok := r.groups[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	c := *g
	return &c, nil
}

func (r *fakePermsRepo) ListGroups(context.Context) ([]models.Group, error) {
	var out []models.Group
	for _, g := range r.groups {
		out = append(out, *g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *fakePermsRepo) SetGroupPermissions(_ context.Context, groupID int64, ids []int64) error {
	g, ok := r.groups[groupID]
	if !ok {
		return common.ErrorNotFound
	}
	g.Permissions = nil
	for _, id := range ids {
		p, ok := r.byID(id)
		if !ok {
			return common.Validationf("unknown permission_id")
		}
		g.Permissions = append(g.Permissions, p)
	}
	return nil
}

func (r *fakePermsRepo) DeleteGroup(_ context.Context, id int64) error {
	if _, ok := r.groups[id]; !ok {
		return common.ErrorNotFound
	}
	delete(r.groups, id)
	return nil
}

func (r *fakePermsRepo) LoadAccountAccess(_ context.Context, accountID string) ([]models.Group, []models.Permission, error) {
	var groups []models.Group
	for _, id := range r.accountGroups[accountID] {
		groups = append(groups, *r.groups[id])
	}
	var perms []models.Permission
	for _, id := range r.accountPerms[accountID] {
		p, _ := r.byID(id)
		perms = append(perms, p)
	}
	return groups, perms, nil
}

func (r *fakePermsRepo) SetAccountGroups(_ context.Context, accountID string, ids []int64) error {
	for _, id := range ids {
		if _, ok := r.groups[id]; !ok {
			return common.Validationf("unknown group_id")
		}
	}
	r.accountGroups[accountID] = ids
	return nil
}

func (r *fakePermsRepo) SetAccountPermissions(_ context.Context, accountID string, ids []int64) error {
	r.accountPerms[accountID] = ids
	return nil
}

type fakeRepoManager struct {
	email   *fakeEmailRepo
	profile *fakeProfileRepo
	perms   *fakePermsRepo
}

func newFakeRepoManager() *fakeRepoManager {
	return &fakeRepoManager{
		email:   &fakeEmailRepo{users: map[string]*models.EmailUser{}},
		profile: &fakeProfileRepo{users: map[string]*models.ProfileUser{}},
		perms:   newFakePermsRepo(),
	}
}

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error            { return nil }
func (m *fakeRepoManager) ResetMigrations(context.Context, *sql.DB) error          { return nil }
func (m *fakeRepoManager) ProfileUsers(dbx.DBTX) profileusers.Repository          { return m.profile }
func (m *fakeRepoManager) EmailUsers(dbx.DBTX) emailusers.Repository              { return m.email }
func (m *fakeRepoManager) Permissions(dbx.DBTX) permissions.Repository            { return m.perms }

// --- mail ---

type fakeMailer struct {
	mu   sync.Mutex
	sent []emailer.Message
	err  error
}

func (f *fakeMailer) Send(_ context.Context, msg emailer.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, msg)
	return nil
}

// --- helpers ---

func fastHasher() passwords.Hasher { return &passwords.PBKDF2Hasher{Iterations: 1000} }

var fixedNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

// newTxDB returns a sqlmock database accepting any number of transactions.
func newTxDB(t *testing.T, txs int, commit bool) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	for i := 0; i < txs; i++ {
		mock.ExpectBegin()
		if commit {
			mock.ExpectCommit()
		} else {
			mock.ExpectRollback()
		}
	}
	return db, mock
}

func sequentialIDs(prefix string) func() string {
	n := 0
	return func() string {
		n++
		return prefix + string(rune('0'+n))
	}
}
