package services

import (
	"context"

	"github.com/dmitrijs2005/customuser/internal/server/models"
)

// Backend authenticates admin users against the active account model.
type Backend interface {
	// Label is "<app_label>.<model_name>" of the accounts it serves.
	Label() string
	Authenticate(ctx context.Context, login, password string) (models.Account, error)
	GetAccount(ctx context.Context, id string) (models.Account, error)
}

type emailBackend struct {
	m *EmailUserManager
}

// NewEmailBackend authenticates by email.
func NewEmailBackend(m *EmailUserManager) Backend {
	return emailBackend{m: m}
}

func (b emailBackend) Label() string {
	return models.EmailAppLabel + "." + models.EmailModelName
}

func (b emailBackend) Authenticate(ctx context.Context, login, password string) (models.Account, error) {
	u, err := b.m.Authenticate(ctx, login, password)
	if err != nil {
		return nil, err
	}
	return u, nil
}

func (b emailBackend) GetAccount(ctx context.Context, id string) (models.Account, error) {
	u, err := b.m.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return u, nil
}

type profileBackend struct {
	m *ProfileUserManager
}

// NewProfileBackend authenticates by username.
func NewProfileBackend(m *ProfileUserManager) Backend {
	return profileBackend{m: m}
}

func (b profileBackend) Label() string {
	return models.ProfileAppLabel + "." + models.ProfileModelName
}

func (b profileBackend) Authenticate(ctx context.Context, login, password string) (models.Account, error) {
	u, err := b.m.Authenticate(ctx, login, password)
	if err != nil {
		return nil, err
	}
	return u, nil
}

func (b profileBackend) GetAccount(ctx context.Context, id string) (models.Account, error) {
	u, err := b.m.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return u, nil
}
