// Package common defines sentinel errors and small helpers shared by the
// account services, repositories and transports. Callers should use
// errors.Is to match these values.
package common

import (
	"errors"
	"fmt"
)

var (
	// Repository-level errors.
	ErrorNotFound      = errors.New("not found")
	ErrorAlreadyExists = errors.New("already exists")

	// Service-level errors.
	ErrorInternal     = errors.New("internal error")
	ErrorValidation   = errors.New("validation error")
	ErrorUnauthorized = errors.New("unauthorized")
	ErrorForbidden    = errors.New("forbidden")

	// Auth errors (invalid, malformed or expired token).
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")

	// Account creation errors. All of them are validation errors.
	ErrEmailRequired            = fmt.Errorf("%w: the email must be set", ErrorValidation)
	ErrUsernameRequired         = fmt.Errorf("%w: the given username must be set", ErrorValidation)
	ErrSuperuserMustBeStaff     = fmt.Errorf("%w: superuser must have is_staff=true", ErrorValidation)
	ErrSuperuserMustBeSuperuser = fmt.Errorf("%w: superuser must have is_superuser=true", ErrorValidation)
	ErrPasswordMismatch         = fmt.Errorf("%w: the two password fields didn't match", ErrorValidation)

	// Uniqueness errors.
	ErrEmailTaken    = fmt.Errorf("%w: account with this email already exists", ErrorAlreadyExists)
	ErrUsernameTaken = fmt.Errorf("%w: a user with that username already exists", ErrorAlreadyExists)
)

// Validationf returns an error wrapping ErrorValidation with a formatted reason.
func Validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrorValidation, fmt.Sprintf(format, args...))
}
