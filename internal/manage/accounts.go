package manage

import (
	"context"

	"github.com/dmitrijs2005/customuser/internal/fixtures"
	"github.com/dmitrijs2005/customuser/internal/server/models"
	"github.com/dmitrijs2005/customuser/internal/server/services"
)

// Accounts is what the commands need from the active account model.
type Accounts interface {
	Label() string
	// LoginField is "email" or "username".
	LoginField() string
	// AsksEmail reports whether an email is asked for besides the login.
	AsksEmail() bool
	CreateSuperuser(ctx context.Context, login, email, password string) (models.Account, error)
	SetPassword(ctx context.Context, login, password string) error
	Dump(ctx context.Context, dir string) (int, error)
	Load(ctx context.Context, dir string) (int, error)
}

type EmailUserManager interface {
	fixtures.EmailUserManager
	CreateSuperuser(ctx context.Context, email, password string, opts ...services.Option) (*models.EmailUser, error)
	GetByEmail(ctx context.Context, email string) (*models.EmailUser, error)
	SetPassword(ctx context.Context, id, raw string) error
}

type ProfileUserManager interface {
	fixtures.ProfileUserManager
	CreateSuperuser(ctx context.Context, username, email, password string, opts ...services.Option) (*models.ProfileUser, error)
	GetByUsername(ctx context.Context, username string) (*models.ProfileUser, error)
	SetPassword(ctx context.Context, id, raw string) error
}

type emailAccounts struct{ m EmailUserManager }

func EmailAccounts(m EmailUserManager) Accounts { return emailAccounts{m: m} }

func (a emailAccounts) Label() string      { return models.EmailAppLabel + "." + models.EmailModelName }
func (a emailAccounts) LoginField() string { return "email" }
func (a emailAccounts) AsksEmail() bool    { return false }

func (a emailAccounts) CreateSuperuser(ctx context.Context, login, _, password string) (models.Account, error) {
	u, err := a.m.CreateSuperuser(ctx, login, password)
	if err != nil {
		return nil, err
	}
	return u, nil
}

func (a emailAccounts) SetPassword(ctx context.Context, login, password string) error {
	u, err := a.m.GetByEmail(ctx, login)
	if err != nil {
		return err
	}
	return a.m.SetPassword(ctx, u.ID, password)
}

func (a emailAccounts) Dump(ctx context.Context, dir string) (int, error) {
	return fixtures.Dump(ctx, dir, fixtures.EmailUsers(a.m))
}

func (a emailAccounts) Load(ctx context.Context, dir string) (int, error) {
	return fixtures.Load(ctx, dir, fixtures.EmailUsers(a.m))
}

type profileAccounts struct{ m ProfileUserManager }

func ProfileAccounts(m ProfileUserManager) Accounts { return profileAccounts{m: m} }

func (a profileAccounts) Label() string      { return models.ProfileAppLabel + "." + models.ProfileModelName }
func (a profileAccounts) LoginField() string { return "username" }
func (a profileAccounts) AsksEmail() bool    { return true }

func (a profileAccounts) CreateSuperuser(ctx context.Context, login, email, password string) (models.Account, error) {
	u, err := a.m.CreateSuperuser(ctx, login, email, password)
	if err != nil {
		return nil, err
	}
	return u, nil
}

func (a profileAccounts) SetPassword(ctx context.Context, login, password string) error {
	u, err := a.m.GetByUsername(ctx, login)
	if err != nil {
		return err
	}
	return a.m.SetPassword(ctx, u.ID, password)
}

func (a profileAccounts) Dump(ctx context.Context, dir string) (int, error) {
	return fixtures.Dump(ctx, dir, fixtures.ProfileUsers(a.m))
}

func (a profileAccounts) Load(ctx context.Context, dir string) (int, error) {
	return fixtures.Load(ctx, dir, fixtures.ProfileUsers(a.m))
}
