package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/customuser/internal/common"
	"github.com/dmitrijs2005/customuser/internal/logging"
	"github.com/dmitrijs2005/customuser/internal/passwords"
	"github.com/dmitrijs2005/customuser/internal/server/models"
	"github.com/dmitrijs2005/customuser/internal/server/repositories/query"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEmailManager(t *testing.T, txs int, commit bool) (*EmailUserManager, *fakeRepoManager, *fakeMailer, sqlmock.Sqlmock) {
	t.Helper()
	db, mock := newTxDB(t, txs, commit)
	rm := newFakeRepoManager()
	mailer := &fakeMailer{}
	m := NewEmailUserManager(db, rm, fastHasher(), mailer, logging.Nop())
	m.now = func() time.Time { return fixedNow }
	m.newID = sequentialIDs("e-")
	return m, rm, mailer, mock
}

func TestEmailCreateUser_NormalizesAndDefaults(t *testing.T) {
	m, rm, _, mock := newEmailManager(t, 1, true)

	u, err := m.CreateUser(context.Background(), "  TEST@EXAMPLE.COM ", "pw", WithFirstName("Ada"))
	require.NoError(t, err)

	assert.Equal(t, "TEST@example.com", u.Email)
	assert.Equal(t, "Ada", u.FirstName)
	assert.True(t, u.IsActive)
	assert.False(t, u.IsStaff)
	assert.False(t, u.IsSuperuser)
	assert.Equal(t, fixedNow, u.DateJoined)
	assert.Nil(t, u.BirthDate)
	assert.True(t, u.CheckPassword("pw"))
	assert.Equal(t, "TEST@example.com", u.String())
	assert.Contains(t, rm.email.users, u.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEmailCreateUser_EmptyEmail(t *testing.T) {
	m, _, _, _ := newEmailManager(t, 0, true)

	for _, email := range []string{"", "   "} {
		_, err := m.CreateUser(context.Background(), email, "pw")
		assert.ErrorIs(t, err, common.ErrEmailRequired)
		assert.ErrorIs(t, err, common.ErrorValidation)
	}
}

func TestEmailCreateUser_CaseInsensitiveConflict(t *testing.T) {
	m, _, _, mock := newEmailManager(t, 1, true)
	mock.ExpectBegin()
	mock.ExpectRollback()

	_, err := m.CreateUser(context.Background(), "User@Example.com", "pw")
	require.NoError(t, err)

	_, err = m.CreateUser(context.Background(), "user@example.com", "pw")
	assert.ErrorIs(t, err, common.ErrorAlreadyExists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEmailCreateUser_EmptyPasswordIsUnusable(t *testing.T) {
	m, _, _, _ := newEmailManager(t, 1, true)

	u, err := m.CreateUser(context.Background(), "a@example.com", "")
	require.NoError(t, err)
	assert.False(t, u.HasUsablePassword())
	assert.False(t, u.CheckPassword(""))
}

func TestEmailCreateUser_UnsupportedFields(t *testing.T) {
	m, _, _, _ := newEmailManager(t, 0, true)

	_, err := m.CreateUser(context.Background(), "a@example.com", "pw", WithTitle("Dr."))
	assert.ErrorIs(t, err, common.ErrorValidation)

	_, err = m.CreateUser(context.Background(), "a@example.com", "pw", WithEmail("b@example.com"))
	assert.ErrorIs(t, err, common.ErrorValidation)
}

func TestEmailCreateUser_FieldLimits(t *testing.T) {
	m, _, _, _ := newEmailManager(t, 0, true)

	_, err := m.CreateUser(context.Background(), "a@example.com", "pw", WithFirstName("abcdefghijklmnopqrstuvwxyz12345"))
	assert.ErrorIs(t, err, common.ErrorValidation)
	assert.ErrorContains(t, err, "first_name")

	_, err = m.CreateUser(context.Background(), "not-an-email", "pw")
	assert.ErrorIs(t, err, common.ErrorValidation)
}

func TestEmailCreateUser_GroupsAndPermissions(t *testing.T) {
	m, rm, _, _ := newEmailManager(t, 1, true)
	g, _ := rm.perms.CreateGroup(context.Background(), "editors")
	rm.perms.groups[g.ID].Permissions = []models.Permission{rm.perms.perms[1]}

	birth := time.Date(1990, 5, 17, 15, 30, 0, 0, time.Local)
	u, err := m.CreateUser(context.Background(), "a@example.com", "pw",
		WithGroups(g.ID), WithPermissions("accounts.view_emailuser"), WithBirthDate(birth), WithStaff(true))
	require.NoError(t, err)

	assert.True(t, u.HasPerm("accounts.view_emailuser"))
	assert.True(t, u.HasPerm("accounts.change_emailuser"))
	assert.False(t, u.HasPerm("accounts.delete_emailuser"))
	assert.True(t, u.HasModulePerms(models.EmailAppLabel))
	require.NotNil(t, u.BirthDate)
	assert.Equal(t, time.Date(1990, 5, 17, 0, 0, 0, 0, time.UTC), *u.BirthDate)
}

func TestEmailCreateUser_UnknownPermissionRollsBack(t *testing.T) {
	m, _, _, mock := newEmailManager(t, 1, false)

	_, err := m.CreateUser(context.Background(), "a@example.com", "pw", WithPermissions("accounts.fly"))
	assert.ErrorIs(t, err, common.ErrorValidation)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEmailCreateSuperuser(t *testing.T) {
	m, _, _, _ := newEmailManager(t, 1, true)

	u, err := m.CreateSuperuser(context.Background(), "root@EXAMPLE.com", "pw")
	require.NoError(t, err)
	assert.True(t, u.IsStaff)
	assert.True(t, u.IsSuperuser)
	assert.True(t, u.IsActive)
	assert.Equal(t, "root@example.com", u.Email)
	assert.True(t, u.HasPerm("anything.at_all"))
}

func TestEmailCreateSuperuser_ExplicitFalse(t *testing.T) {
	m, _, _, _ := newEmailManager(t, 0, true)

	_, err := m.CreateSuperuser(context.Background(), "root@example.com", "pw", WithStaff(false))
	assert.ErrorIs(t, err, common.ErrSuperuserMustBeStaff)
	assert.ErrorIs(t, err, common.ErrorValidation)

	_, err = m.CreateSuperuser(context.Background(), "root@example.com", "pw", WithSuperuser(false))
	assert.ErrorIs(t, err, common.ErrSuperuserMustBeSuperuser)

	_, err = m.CreateSuperuser(context.Background(), "", "pw")
	assert.ErrorIs(t, err, common.ErrEmailRequired)
}

func TestEmailAuthenticate(t *testing.T) {
	m, rm, _, _ := newEmailManager(t, 2, true)
	ctx := context.Background()

	u, err := m.CreateUser(ctx, "ada@example.com", "secret", WithStaff(true))
	require.NoError(t, err)
	_, err = m.CreateUser(ctx, "off@example.com", "secret", WithActive(false))
	require.NoError(t, err)

	got, err := m.Authenticate(ctx, "ADA@EXAMPLE.COM", "secret")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
	require.NotNil(t, got.LastLogin)
	assert.Equal(t, 1, rm.email.lastLoginSet)

	_, err = m.Authenticate(ctx, "ada@example.com", "wrong")
	assert.ErrorIs(t, err, common.ErrorUnauthorized)
	_, err = m.Authenticate(ctx, "ghost@example.com", "secret")
	assert.ErrorIs(t, err, common.ErrorUnauthorized)
	_, err = m.Authenticate(ctx, "off@example.com", "secret")
	assert.ErrorIs(t, err, common.ErrorUnauthorized)
}

func TestEmailAuthenticate_RehashesOutdatedPassword(t *testing.T) {
	m, rm, _, _ := newEmailManager(t, 0, true)

	old := &passwords.PBKDF2Hasher{Iterations: 500}
	u := &models.EmailUser{ID: "e-old", Email: "old@example.com", IsActive: true}
	require.NoError(t, u.SetPassword(old, "secret"))
	rm.email.users[u.ID] = u

	got, err := m.Authenticate(context.Background(), "old@example.com", "secret")
	require.NoError(t, err)
	assert.False(t, passwords.NeedsRehash(m.hasher, got.Password))
	assert.Equal(t, 1, rm.email.updates)
	assert.True(t, rm.email.users["e-old"].CheckPassword("secret"))
}

func TestEmailSave(t *testing.T) {
	m, rm, _, mock := newEmailManager(t, 3, true)
	mock.ExpectBegin()
	mock.ExpectRollback()
	ctx := context.Background()

	a, err := m.CreateUser(ctx, "a@example.com", "pw")
	require.NoError(t, err)
	_, err = m.CreateUser(ctx, "b@example.com", "pw")
	require.NoError(t, err)

	a.LastName = "Lovelace"
	a.Email = "A@EXAMPLE.COM"
	a.UserPermissions = []models.Permission{{AppLabel: "accounts", Codename: "view_emailuser"}}
	require.NoError(t, m.Save(ctx, a))
	assert.Equal(t, "A@example.com", rm.email.users[a.ID].Email)
	assert.Equal(t, "Lovelace", rm.email.users[a.ID].LastName)
	assert.True(t, a.HasPerm("accounts.view_emailuser"))

	a.Email = "B@example.com"
	err = m.Save(ctx, a)
	assert.ErrorIs(t, err, common.ErrEmailTaken)

	a.Email = ""
	assert.ErrorIs(t, m.Save(ctx, a), common.ErrEmailRequired)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEmailSetPassword_BCryptTooLong(t *testing.T) {
	m, _, _, _ := newEmailManager(t, 1, true)
	ctx := context.Background()

	u, err := m.CreateUser(ctx, "a@example.com", "old")
	require.NoError(t, err)

	m.hasher = &passwords.BCryptHasher{}
	err = m.SetPassword(ctx, u.ID, strings.Repeat("p", 100))
	assert.ErrorIs(t, err, common.ErrorValidation)

	got, err := m.Get(ctx, u.ID)
	require.NoError(t, err)
	assert.True(t, got.CheckPassword("old"))
}

func TestEmailSetPasswordGetListDelete(t *testing.T) {
	m, _, _, _ := newEmailManager(t, 1, true)
	ctx := context.Background()

	u, err := m.CreateUser(ctx, "a@example.com", "old")
	require.NoError(t, err)

	require.NoError(t, m.SetPassword(ctx, u.ID, "new"))
	got, err := m.Get(ctx, u.ID)
	require.NoError(t, err)
	assert.True(t, got.CheckPassword("new"))

	require.NoError(t, m.SetPassword(ctx, u.ID, ""))
	got, err = m.GetByEmail(ctx, "A@example.com")
	require.NoError(t, err)
	assert.False(t, got.HasUsablePassword())

	items, total, err := m.List(ctx, query.ListFilter{})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Len(t, items, 1)

	require.NoError(t, m.Delete(ctx, u.ID))
	_, err = m.Get(ctx, u.ID)
	assert.ErrorIs(t, err, common.ErrorNotFound)
	assert.ErrorIs(t, m.Delete(ctx, u.ID), common.ErrorNotFound)
}

func TestEmailRestore(t *testing.T) {
	m, rm, _, _ := newEmailManager(t, 2, true)
	ctx := context.Background()

	u := &models.EmailUser{ID: "kept-id", Email: "r@example.com", IsActive: true, DateJoined: fixedNow}
	u.Password = "pbkdf2_sha256$1000$salt$hash"
	u.UserPermissions = []models.Permission{{AppLabel: "accounts", Codename: "add_emailuser"}}

	require.NoError(t, m.Restore(ctx, u))
	assert.Equal(t, "pbkdf2_sha256$1000$salt$hash", rm.email.users["kept-id"].Password)
	assert.Len(t, rm.perms.accountPerms["kept-id"], 1)

	u.FirstName = "Again"
	require.NoError(t, m.Restore(ctx, u))
	assert.Equal(t, "Again", rm.email.users["kept-id"].FirstName)

	assert.ErrorIs(t, m.Restore(ctx, &models.EmailUser{Email: "x@example.com"}), common.ErrorValidation)
}

func TestEmailUser_SendsMail(t *testing.T) {
	m, _, mailer, _ := newEmailManager(t, 1, true)
	ctx := context.Background()

	u, err := m.CreateUser(ctx, "ada@example.com", "pw", WithFirstName("Ada"), WithLastName("Lovelace"))
	require.NoError(t, err)

	require.NoError(t, m.EmailUser(ctx, u.ID, "Hello", "Body", ""))
	require.Len(t, mailer.sent, 1)
	assert.Equal(t, "ada@example.com", mailer.sent[0].To)
	assert.Equal(t, "Ada Lovelace", mailer.sent[0].ToName)
	assert.Equal(t, "Hello", mailer.sent[0].Subject)

	mailer.err = errors.New("smtp down")
	assert.ErrorContains(t, m.EmailUser(ctx, u.ID, "Hello", "Body", ""), "smtp down")
	assert.ErrorIs(t, m.EmailUser(ctx, "ghost", "s", "b", ""), common.ErrorNotFound)
}
