package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
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

// EmailUserManager creates and administers email-identified accounts.
type EmailUserManager struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	hasher      passwords.Hasher
	mailer      emailer.Emailer
	logger      logging.Logger
	now         func() time.Time
	newID       func() string
}

func NewEmailUserManager(db *sql.DB, m repomanager.RepositoryManager, hasher passwords.Hasher, mailer emailer.Emailer, logger logging.Logger) *EmailUserManager {
	return &EmailUserManager{
		db:          db,
		repomanager: m,
		hasher:      hasher,
		mailer:      mailer,
		logger:      logger.With("model", models.EmailAppLabel+"."+models.EmailModelName),
		now:         time.Now,
		newID:       uuid.NewString,
	}
}

// CreateUser creates a regular account. The email is required and has its
// domain lower-cased; an empty password leaves the account without a usable
// password. Unless overridden, the account is active and neither staff nor
// superuser.
func (m *EmailUserManager) CreateUser(ctx context.Context, email, password string, opts ...Option) (*models.EmailUser, error) {
	f := NewExtraFields(opts...)
	no := false
	if f.IsStaff == nil {
		f.IsStaff = &no
	}
	if f.IsSuperuser == nil {
		f.IsSuperuser = &no
	}
	return m.createUser(ctx, email, password, f)
}

// CreateSuperuser creates an account with is_staff and is_superuser set.
// Passing false for either is an error.
func (m *EmailUserManager) CreateSuperuser(ctx context.Context, email, password string, opts ...Option) (*models.EmailUser, error) {
	f := NewExtraFields(opts...)
	if err := f.superuserDefaults(); err != nil {
		return nil, err
	}
	return m.createUser(ctx, email, password, f)
}

func (m *EmailUserManager) createUser(ctx context.Context, email, password string, f ExtraFields) (*models.EmailUser, error) {
	if strings.TrimSpace(email) == "" {
		return nil, common.ErrEmailRequired
	}
	model := models.EmailModelName
	if err := errors.Join(
		unsupported(model, "email", f.Email != nil),
		unsupported(model, "title", f.Title != nil),
	); err != nil {
		return nil, err
	}

	u := &models.EmailUser{
		ID:         m.newID(),
		Email:      normalize.Email(email),
		IsActive:   true,
		DateJoined: m.now().UTC(),
	}
	setString(&u.FirstName, f.FirstName)
	setString(&u.LastName, f.LastName)
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
		repo := m.repomanager.EmailUsers(tx)
		taken, err := repo.ExistsByEmail(ctx, u.Email, "")
		if err != nil {
			return err
		}
		if taken {
			return common.ErrEmailTaken
		}
		if _, err := repo.Create(ctx, u); err != nil {
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

// Get returns the account with its groups and permissions loaded.
func (m *EmailUserManager) Get(ctx context.Context, id string) (*models.EmailUser, error) {
	u, err := m.repomanager.EmailUsers(m.db).GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := loadAccess(ctx, m.repomanager.Permissions(m.db), u.ID, &u.PermissionsMixin); err != nil {
		return nil, err
	}
	return u, nil
}

// GetByEmail looks the account up case-insensitively.
func (m *EmailUserManager) GetByEmail(ctx context.Context, email string) (*models.EmailUser, error) {
	u, err := m.repomanager.EmailUsers(m.db).GetByEmail(ctx, normalize.Email(email))
	if err != nil {
		return nil, err
	}
	if err := loadAccess(ctx, m.repomanager.Permissions(m.db), u.ID, &u.PermissionsMixin); err != nil {
		return nil, err
	}
	return u, nil
}

func (m *EmailUserManager) List(ctx context.Context, f query.ListFilter) ([]*models.EmailUser, int, error) {
	return m.repomanager.EmailUsers(m.db).List(ctx, f)
}

// Save writes the account's fields. The email is normalized and must stay
// unique; groups and permissions are replaced by those on u.
func (m *EmailUserManager) Save(ctx context.Context, u *models.EmailUser) error {
	if strings.TrimSpace(u.Email) == "" {
		return common.ErrEmailRequired
	}
	u.Email = normalize.Email(u.Email)
	if err := validation.Struct(u); err != nil {
		return err
	}

	err := dbx.WithTx(ctx, m.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := m.repomanager.EmailUsers(tx)
		taken, err := repo.ExistsByEmail(ctx, u.Email, u.ID)
		if err != nil {
			return err
		}
		if taken {
			return common.ErrEmailTaken
		}
		if err := repo.Update(ctx, u); err != nil {
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

// SetPassword hashes raw and stores it. An empty raw password makes the
// account's password unusable.
func (m *EmailUserManager) SetPassword(ctx context.Context, id, raw string) error {
	repo := m.repomanager.EmailUsers(m.db)
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

func (m *EmailUserManager) Delete(ctx context.Context, id string) error {
	if err := m.repomanager.EmailUsers(m.db).Delete(ctx, id); err != nil {
		return err
	}
	m.logger.Info(ctx, "account deleted", "id", id)
	return nil
}

// Authenticate checks the credentials of an active account and records the
// login. Unknown emails, inactive accounts and wrong passwords all yield
// common.ErrorUnauthorized. A password hashed with outdated parameters is
// rehashed with the current hasher.
func (m *EmailUserManager) Authenticate(ctx context.Context, email, password string) (*models.EmailUser, error) {
	repo := m.repomanager.EmailUsers(m.db)
	u, err := repo.GetByEmail(ctx, normalize.Email(email))
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			// hash anyway so unknown emails take as long as known ones
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

	if err := loadAccess(ctx, m.repomanager.Permissions(m.db), u.ID, &u.PermissionsMixin); err != nil {
		return nil, common.ErrorInternal
	}
	return u, nil
}

// Restore writes u exactly as given, keeping its id, password hash and
// dates. An existing account with the same id is overwritten. Groups are
// matched by id and permissions by key.
func (m *EmailUserManager) Restore(ctx context.Context, u *models.EmailUser) error {
	if u.ID == "" {
		return common.Validationf("restored account needs an id")
	}
	if err := validation.Struct(u); err != nil {
		return err
	}

	err := dbx.WithTx(ctx, m.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := m.repomanager.EmailUsers(tx)
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

// EmailUser sends an email to the account. An empty from uses the
// configured sender.
func (m *EmailUserManager) EmailUser(ctx context.Context, id, subject, message, from string) error {
	u, err := m.repomanager.EmailUsers(m.db).GetByID(ctx, id)
	if err != nil {
		return err
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
