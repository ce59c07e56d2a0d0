package models

import (
	"strings"
	"time"
)

// ProfileUser extends the standard account with two optional descriptive
// fields. Neither takes part in authentication.
type ProfileUser struct {
	User

	BirthDate *time.Time `json:"birth_date"`
	Title     string     `json:"title" validate:"max=50"`
}

// GetFullTitleName prefixes the full name with the title when one is set,
// e.g. "Dr. Jane Doe".
func (u *ProfileUser) GetFullTitleName() string {
	full := u.GetFullName()
	if u.Title != "" {
		return strings.TrimSpace(u.Title + " " + full)
	}
	return full
}

// String renders the titled full name, falling back to the username when
// neither names nor title are set.
func (u *ProfileUser) String() string {
	if name := u.GetFullTitleName(); name != "" {
		return name
	}
	return u.Username
}
