package web

import (
	"gopkg.in/go-playground/validator.v9"

	"github.com/dmitrijs2005/customuser/internal/validation"
)

func NewValidator() *Validator {
	return &Validator{
		validator: validation.New(),
	}
}

// Validator adapts the account field rules to echo.Context.Validate.
type Validator struct {
	validator *validator.Validate
}

func (v *Validator) Validate(i interface{}) error {
	return validation.Translate(v.validator.Struct(i))
}
