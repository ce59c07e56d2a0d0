// Package normalize canonicalizes login identifiers so that equal accounts
// compare equal.
package normalize

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Email lower-cases the domain part of an address, leaving the local part
// untouched: "TEST@EXAMPLE.COM" becomes "TEST@example.com". Surrounding
// whitespace is trimmed. A value without "@" is returned as is.
func Email(email string) string {
	trimmed := strings.TrimSpace(email)
	at := strings.LastIndex(trimmed, "@")
	if at < 0 {
		return email
	}
	return trimmed[:at] + "@" + strings.ToLower(trimmed[at+1:])
}

// EmailKey is the fully case-folded form used for uniqueness checks and
// lookups, so "User@Example.com" and "user@example.com" collide.
func EmailKey(email string) string {
	return strings.ToLower(Email(email))
}

// Username applies NFKC normalization, which folds visually identical
// compatibility characters (e.g. fullwidth letters) into one form.
func Username(username string) string {
	return norm.NFKC.String(username)
}
