package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/customuser/internal/common"
	"github.com/dmitrijs2005/customuser/internal/dbx"
	"github.com/dmitrijs2005/customuser/internal/emailer"
	"github.com/dmitrijs2005/customuser/internal/logging"
	"github.com/dmitrijs2005/customuser/internal/normalize"
	"github.com/dmitrijs2005/customuser/internal/passwords"
	"github.com/dmitrijs2005/customuser/internal/server/models"
	"github.com/dmitrijs2005/customuser/internal/server/repositories/query"
	"github.com/dmitrijs2005/customuser/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/customuser/internal/validation"
	"github.com/google/uuid"
)

// ProfileUserManager creates and administers username-identified accounts
// carrying a birth date and a title.
type ProfileUserManager struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	hasher      passwords.Hasher
	mailer      emailer.Emailer
	logger      logging.Logger
	now         func() time.Time
	newID       func() string
}

func NewProfileUserManager(db *sql.DB, m repomanager.RepositoryManager, hasher passwords.Hasher, mailer emailer.Emailer, logger logging.Logger) *ProfileUserManager {
	return &ProfileUserManager{
		db:          db,
		repomanager: m,
		hasher:      hasher,
		mailer:      mailer,
		logger:      logger.With("model", models.ProfileAppLabel+"."+models.ProfileModelName),
		now:         time.Now,
		newID:       uuid.NewString,
	}
}

// CreateUser creates a regular account. The username is required and NFKC
// normalized; the email is optional and has its domain lower-cased.
func (m *ProfileUserManager) CreateUser(ctx context.Context, username, email, password string, opts ...Option) (*models.ProfileUser, error) {
	f := NewExtraFields(opts...)
	no := false
	if f.IsStaff == nil {
		f.IsStaff = &no
	}
	if f.IsSuperuser == nil {
		f.IsSuperuser = &no
	}
	return m.createUser(ctx, username, email, password, f)
}

// CreateSuperuser creates an account with is_staff and is_superuser set.
// Passing false for either is an error.
func (m *ProfileUserManager) CreateSuperuser(ctx context.Context, username, email, password string, opts ...Option) (*models.ProfileUser, error) {
	f := NewExtraFields(opts...)
	if err := f.superuserDefaults(); err != nil {
		return nil, err
	}
	return m.createUser(ctx, username, email, password, f)
}

func (m *ProfileUserManager) createUser(ctx context.Context, username, email, password string, f ExtraFields) (*models.ProfileUser, error) {
	if username == "" {
		return nil, common.ErrUsernameRequired
	}
	if f.Email != nil {
		if email != "" && *f.Email != email {
			return nil, common.Validationf("email given twice")
		}
		email = *f.Email
	}

	u := &models.ProfileUser{}
	u.ID = m.newID()
	u.Username = normalize.Username(username)
	u.Email = normalize.Email(email)
	u.IsActive = true
	u.DateJoined = m.now().UTC()
	setString(&u.FirstName, f.FirstName)
	setString(&u.LastName, f.LastName)
	setString(&u.Title, f.Title)
	setBool(&u.IsActive, f.IsActive)
	setBool(&u.IsStaff, f.IsStaff)
	setBool(&u.IsSuperuser, f.IsSuperuser)
	if f.BirthDate != nil {
		u.BirthDate = f.BirthDate
	}
	if f.DateJoined != nil {
		u.DateJoined = *f.DateJoined
	}

	if err := validation.Struct(u); err != nil {
		return nil, err
	}
	if err := u.SetPassword(m.hasher, password); err != nil {
		return nil, fmt.Errorf("error hashing password: %w", err)
	}

	err := dbx.WithTx(ctx, m.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if _, err := m.repomanager.ProfileUsers(tx).Create(ctx, u); err != nil {
			return err
		}
		perms := m.repomanager.Permissions(tx)
		if err := grantAccess(ctx, perms, u.ID, f.Groups, f.Permissions); err != nil {
			return err
		}
		return loadAccess(ctx, perms, u.ID, &u.PermissionsMixin)
	})
	if err != nil {
		return nil, fmt.Errorf("error creating user: %w", err)
	}

	m.logger.Info(ctx, "account created", "id", u.ID, "staff", u.IsStaff, "superuser", u.IsSuperuser)
	return u, nil
}

func (m *ProfileUserManager) withAccess(ctx context.Context, u *models.ProfileUser, err error) (*models.ProfileUser, error) {
	if err != nil {
		return nil, err
	}
	if err := loadAccess(ctx, m.repomanager.Permissions(m.db), u.ID, &u.PermissionsMixin); err != nil {
		return nil, err
	}
	return u, nil
}

// Get returns the account with its groups and permissions loaded.
func (m *ProfileUserManager) Get(ctx context.Context, id string) (*models.ProfileUser, error) {
	u, err := m.repomanager.ProfileUsers(m.db).GetByID(ctx, id)
	return m.withAccess(ctx, u, err)
}

func (m *ProfileUserManager) GetByUsername(ctx context.Context, username string) (*models.ProfileUser, error) {
	u, err := m.repomanager.ProfileUsers(m.db).GetByUsername(ctx, normalize.Username(username))
	return m.withAccess(ctx, u, err)
}

func (m *ProfileUserManager) List(ctx context.Context, f query.ListFilter) ([]*models.ProfileUser, int, error) {
	return m.repomanager.ProfileUsers(m.db).List(ctx, f)
}

// Save writes the account's fields, normalizing username and email, and
// replaces its groups and permissions by those on u.
func (m *ProfileUserManager) Save(ctx context.Context, u *models.ProfileUser) error {
	if u.Username == "" {
		return common.ErrUsernameRequired
	}
	u.Username = normalize.Username(u.Username)
	u.Email = normalize.Email(u.Email)
	if err := validation.Struct(u); err != nil {
		return err
	}

	err := dbx.WithTx(ctx, m.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := m.repomanager.ProfileUsers(tx).Update(ctx, u); err != nil {
			return err
		}
		perms := m.repomanager.Permissions(tx)
		if err := grantAccess(ctx, perms, u.ID, u.GroupIDs(), u.GetUserPermissions()); err != nil {
			return err
		}
		return loadAccess(ctx, perms, u.ID, &u.PermissionsMixin)
	})
	if err != nil {
		return fmt.Errorf("error saving user %s: %w", u.ID, err)
	}

	m.logger.Info(ctx, "account changed", "id", u.ID)
	return nil
}

func (m *ProfileUserManager) SetPassword(ctx context.Context, id, raw string) error {
	repo := m.repomanager.ProfileUsers(m.db)
	u, err := repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := u.SetPassword(m.hasher, raw); err != nil {
		return fmt.Errorf("error hashing password: %w", err)
	}
	if err := repo.Update(ctx, u); err != nil {
		return err
	}
	m.logger.Info(ctx, "password changed", "id", id, "usable", u.HasUsablePassword())
	return nil
}

func (m *ProfileUserManager) Delete(ctx context.Context, id string) error {
	if err := m.repomanager.ProfileUsers(m.db).Delete(ctx, id); err != nil {
		return err
	}
	m.logger.Info(ctx, "account deleted", "id", id)
	return nil
}

// Authenticate checks the credentials of an active account and records the
// login. Failures of any kind are reported as common.ErrorUnauthorized.
func (m *ProfileUserManager) Authenticate(ctx context.Context, username, password string) (*models.ProfileUser, error) {
	repo := m.repomanager.ProfileUsers(m.db)
	u, err := repo.GetByUsername(ctx, normalize.Username(username))
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			_, _ = m.hasher.Encode(password)
			return nil, common.ErrorUnauthorized
		}
		return nil, common.ErrorInternal
	}
	if !u.CheckPassword(password) || !u.IsActive {
		return nil, common.ErrorUnauthorized
	}

	now := m.now().UTC()
	u.LastLogin = &now
	if passwords.NeedsRehash(m.hasher, u.Password) {
		if err := u.SetPassword(m.hasher, password); err != nil {
			return nil, common.ErrorInternal
		}
		err = repo.Update(ctx, u)
	} else {
		err = repo.UpdateLastLogin(ctx, u.ID, now)
	}
	if err != nil {
		m.logger.Error(ctx, "error recording login", "id", u.ID, "error", err)
		return nil, common.ErrorInternal
	}

	u, err = m.withAccess(ctx, u, nil)
	if err != nil {
		return nil, common.ErrorInternal
	}
	return u, nil
}

// Restore writes u exactly as given, keeping its id, password hash and
// dates.
func (m *ProfileUserManager) Restore(ctx context.Context, u *models.ProfileUser) error {
	if u.ID == "" {
		return common.Validationf("restored account needs an id")
	}
	if err := validation.Struct(u); err != nil {
		return err
	}

	err := dbx.WithTx(ctx, m.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := m.repomanager.ProfileUsers(tx)
		_, err := repo.GetByID(ctx, u.ID)
		switch {
		case errors.Is(err, common.ErrorNotFound):
			_, err = repo.Create(ctx, u)
		case err == nil:
			err = repo.Update(ctx, u)
		}
		if err != nil {
			return err
		}
		return grantAccess(ctx, m.repomanager.Permissions(tx), u.ID, u.GroupIDs(), u.GetUserPermissions())
	})
	if err != nil {
		return fmt.Errorf("error restoring user %s: %w", u.ID, err)
	}
	return nil
}

// EmailUser sends an email to the account's address, which must be set.
func (m *ProfileUserManager) EmailUser(ctx context.Context, id, subject, message, from string) error {
	u, err := m.repomanager.ProfileUsers(m.db).GetByID(ctx, id)
	if err != nil {
		return err
	}
	if u.Email == "" {
		return common.Validationf("account %s has no email address", u.Username)
	}
	err = m.mailer.Send(ctx, emailer.Message{
		ToName:  u.GetFullName(),
		To:      u.Email,
		From:    from,
		Subject: subject,
		Content: message,
	})
	if err != nil {
		return fmt.Errorf("error emailing user %s: %w", id, err)
	}
	return nil
}
