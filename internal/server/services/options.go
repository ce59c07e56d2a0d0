package services

import (
	"time"

	"github.com/dmitrijs2005/customuser/internal/common"
)

// ExtraFields carries the optional account fields accepted by CreateUser
// and CreateSuperuser. Pointer fields distinguish "not given" from the zero
// value, so an explicit false is visible.
type ExtraFields struct {
	FirstName   *string
	LastName    *string
	Email       *string
	Title       *string
	BirthDate   *time.Time
	IsActive    *bool
	IsStaff     *bool
	IsSuperuser *bool
	DateJoined  *time.Time
	// Groups holds group ids to add the account to.
	Groups []int64
	// Permissions holds "<app_label>.<codename>" keys granted directly.
	Permissions []string
}

type Option func(*ExtraFields)

func WithFirstName(v string) Option { return func(f *ExtraFields) { f.FirstName = &v } }
func WithLastName(v string) Option  { return func(f *ExtraFields) { f.LastName = &v } }
func WithEmail(v string) Option     { return func(f *ExtraFields) { f.Email = &v } }
func WithTitle(v string) Option     { return func(f *ExtraFields) { f.Title = &v } }
func WithActive(v bool) Option      { return func(f *ExtraFields) { f.IsActive = &v } }
func WithStaff(v bool) Option       { return func(f *ExtraFields) { f.IsStaff = &v } }
func WithSuperuser(v bool) Option   { return func(f *ExtraFields) { f.IsSuperuser = &v } }

func WithBirthDate(v time.Time) Option {
	return func(f *ExtraFields) {
		d := time.Date(v.Year(), v.Month(), v.Day(), 0, 0, 0, 0, time.UTC)
		f.BirthDate = &d
	}
}

func WithDateJoined(v time.Time) Option {
	return func(f *ExtraFields) { f.DateJoined = &v }
}

func WithGroups(ids ...int64) Option {
	return func(f *ExtraFields) { f.Groups = append(f.Groups, ids...) }
}

func WithPermissions(keys ...string) Option {
	return func(f *ExtraFields) { f.Permissions = append(f.Permissions, keys...) }
}

// NewExtraFields applies opts in order; later options win.
func NewExtraFields(opts ...Option) ExtraFields {
	var f ExtraFields
	for _, o := range opts {
		o(&f)
	}
	return f
}

// unsupported fails for a field the model does not have when it was given.
func unsupported(model, field string, given bool) error {
	if given {
		return common.Validationf("%s has no field %q", model, field)
	}
	return nil
}

// superuserDefaults sets is_staff and is_superuser to true unless given and
// rejects an explicit false for either.
func (f *ExtraFields) superuserDefaults() error {
	yes := true
	if f.IsStaff == nil {
		f.IsStaff = &yes
	}
	if f.IsSuperuser == nil {
		f.IsSuperuser = &yes
	}
	if !*f.IsStaff {
		return common.ErrSuperuserMustBeStaff
	}
	if !*f.IsSuperuser {
		return common.ErrSuperuserMustBeSuperuser
	}
	return nil
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setBool(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}
