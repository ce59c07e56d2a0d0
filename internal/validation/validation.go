// Package validation wraps go-playground/validator with the account field
// rules and turns violations into common.ErrorValidation errors.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"gopkg.in/go-playground/validator.v9"

	"github.com/dmitrijs2005/customuser/internal/common"
)

// usernameRe allows letters, digits and @ . + - _ in any script.
var usernameRe = regexp.MustCompile(`^[\p{L}\p{N}_.@+-]+$`)

var std = New()

// New returns a validator with the custom "username" tag registered and
// field names reported by their json tag.
func New() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("username", func(fl validator.FieldLevel) bool {
		return usernameRe.MatchString(fl.Field().String())
	})
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return f.Name
		}
		return name
	})
	return v
}

// Struct validates s with the shared validator.
func Struct(s any) error {
	return Translate(std.Struct(s))
}

// Translate converts validator errors into a single error wrapping
// common.ErrorValidation with one message per offending field. Other errors
// pass through unchanged.
func Translate(err error) error {
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fe.Field()+": "+message(fe))
	}
	return fmt.Errorf("%w: %s", common.ErrorValidation, strings.Join(msgs, "; "))
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "this field is required"
	case "email":
		return "enter a valid email address"
	case "max":
		return fmt.Sprintf("ensure this value has at most %s characters", fe.Param())
	case "min":
		return fmt.Sprintf("ensure this value has at least %s characters", fe.Param())
	case "username":
		return "enter a valid username; it may contain only letters, numbers and @/./+/-/_ characters"
	case "eqfield":
		return fmt.Sprintf("must match %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of: %s", fe.Param())
	}
	return fmt.Sprintf("failed on the %q rule", fe.Tag())
}
