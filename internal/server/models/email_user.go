package models

import (
	"strings"
	"time"
)

// EmailUser is an account identified by email. It declares its own fields
// on top of BaseUser and gets groups, permissions and superuser status from
// the embedded PermissionsMixin.
type EmailUser struct {
	ID         string     `json:"id"`
	Email      string     `json:"email" validate:"required,email,max=254"`
	FirstName  string     `json:"first_name" validate:"max=30"`
	LastName   string     `json:"last_name" validate:"max=30"`
	BirthDate  *time.Time `json:"birth_date"`
	IsStaff    bool       `json:"is_staff"`
	IsActive   bool       `json:"is_active"`
	DateJoined time.Time  `json:"date_joined"`

	BaseUser
	PermissionsMixin
}

func (u *EmailUser) String() string {
	return u.Email
}

func (u *EmailUser) GetFullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

func (u *EmailUser) GetShortName() string {
	return u.FirstName
}

func (u *EmailUser) AccountID() string { return u.ID }
func (u *EmailUser) LoginName() string { return u.Email }
func (u *EmailUser) Active() bool      { return u.IsActive }
func (u *EmailUser) Staff() bool       { return u.IsStaff }
func (u *EmailUser) Superuser() bool   { return u.IsSuperuser }

func (u *EmailUser) HasPerm(perm string) bool {
	return u.IsActive && u.PermissionsMixin.HasPerm(perm)
}

func (u *EmailUser) HasPerms(perms ...string) bool {
	return u.IsActive && u.PermissionsMixin.HasPerms(perms...)
}

func (u *EmailUser) HasModulePerms(appLabel string) bool {
	return u.IsActive && u.PermissionsMixin.HasModulePerms(appLabel)
}
