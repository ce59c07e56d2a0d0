package models

// Application and model labels of the two account variants. Permission keys
// and admin URLs are built from them.
const (
	ProfileAppLabel  = "profiles"
	ProfileModelName = "profileuser"

	EmailAppLabel  = "accounts"
	EmailModelName = "emailuser"
)

// Account is what authentication and the admin need from either variant.
type Account interface {
	AccountID() string
	// LoginName is the value of the login identifier field.
	LoginName() string
	Active() bool
	Staff() bool
	Superuser() bool
	HasPerm(perm string) bool
	HasModulePerms(appLabel string) bool
	String() string
}

var (
	_ Account = (*ProfileUser)(nil)
	_ Account = (*EmailUser)(nil)
)
