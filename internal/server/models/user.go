package models

import (
	"strings"
	"time"
)

// User is the standard full-featured account: a unique username as the
// login identifier, names, email, staff/active flags, the password and the
// permissions capability.
type User struct {
	ID         string    `json:"id"`
	Username   string    `json:"username" validate:"required,max=150,username"`
	FirstName  string    `json:"first_name" validate:"max=150"`
	LastName   string    `json:"last_name" validate:"max=150"`
	Email      string    `json:"email" validate:"omitempty,email,max=254"`
	IsStaff    bool      `json:"is_staff"`
	IsActive   bool      `json:"is_active"`
	DateJoined time.Time `json:"date_joined"`

	BaseUser
	PermissionsMixin
}

// GetFullName returns the first and last name separated by a space.
func (u *User) GetFullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

func (u *User) GetShortName() string {
	return u.FirstName
}

func (u *User) String() string {
	return u.Username
}

func (u *User) AccountID() string { return u.ID }
func (u *User) LoginName() string { return u.Username }
func (u *User) Active() bool      { return u.IsActive }
func (u *User) Staff() bool       { return u.IsStaff }
func (u *User) Superuser() bool   { return u.IsSuperuser }

func (u *User) HasPerm(perm string) bool {
	return u.IsActive && u.PermissionsMixin.HasPerm(perm)
}

func (u *User) HasPerms(perms ...string) bool {
	return u.IsActive && u.PermissionsMixin.HasPerms(perms...)
}

func (u *User) HasModulePerms(appLabel string) bool {
	return u.IsActive && u.PermissionsMixin.HasModulePerms(appLabel)
}
