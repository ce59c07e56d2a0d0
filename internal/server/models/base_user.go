package models

import (
	"time"

	"github.com/dmitrijs2005/customuser/internal/passwords"
)

// BaseUser holds the authentication primitives every account has: the
// encoded password and the last successful login.
type BaseUser struct {
	Password  string     `json:"password"`
	LastLogin *time.Time `json:"last_login"`
}

// SetPassword hashes raw with h. An empty raw password marks the password
// unusable, so the account cannot log in until a password is set.
func (b *BaseUser) SetPassword(h passwords.Hasher, raw string) error {
	if raw == "" {
		b.SetUnusablePassword()
		return nil
	}
	encoded, err := h.Encode(raw)
	if err != nil {
		return err
	}
	b.Password = encoded
	return nil
}

func (b *BaseUser) CheckPassword(raw string) bool {
	return passwords.Check(raw, b.Password)
}

func (b *BaseUser) SetUnusablePassword() {
	b.Password = passwords.MakeUnusable()
}

func (b *BaseUser) HasUsablePassword() bool {
	return b.Password != "" && passwords.IsUsable(b.Password)
}
