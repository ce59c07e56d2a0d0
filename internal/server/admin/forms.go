package admin

import (
	"sort"
	"strings"
	"time"

	"github.com/dmitrijs2005/customuser/internal/common"
	"github.com/dmitrijs2005/customuser/internal/server/models"
	"github.com/dmitrijs2005/customuser/internal/validation"
)

const dateLayout = "2006-01-02"

// AddForm creates an account. Only fields listed in the model's add
// fieldsets may be set.
type AddForm struct {
	Username    string `json:"username,omitempty" form:"username"`
	Email       string `json:"email,omitempty" form:"email"`
	Password1   string `json:"password1" form:"password1" validate:"required"`
	Password2   string `json:"password2" form:"password2" validate:"required"`
	IsActive    *bool  `json:"is_active,omitempty" form:"is_active"`
	IsStaff     *bool  `json:"is_staff,omitempty" form:"is_staff"`
	IsSuperuser *bool  `json:"is_superuser,omitempty" form:"is_superuser"`
}

func (f AddForm) given() []string {
	var out []string
	if f.Username != "" {
		out = append(out, "username")
	}
	if f.Email != "" {
		out = append(out, "email")
	}
	out = append(out, "password1", "password2")
	if f.IsActive != nil {
		out = append(out, "is_active")
	}
	if f.IsStaff != nil {
		out = append(out, "is_staff")
	}
	if f.IsSuperuser != nil {
		out = append(out, "is_superuser")
	}
	return out
}

// ChangeForm is a partial update: nil fields keep their current value.
// Passwords are changed through PasswordForm.
type ChangeForm struct {
	Username        *string    `json:"username,omitempty"`
	Email           *string    `json:"email,omitempty"`
	FirstName       *string    `json:"first_name,omitempty"`
	LastName        *string    `json:"last_name,omitempty"`
	Title           *string    `json:"title,omitempty"`
	BirthDate       *string    `json:"birth_date,omitempty"`
	IsActive        *bool      `json:"is_active,omitempty"`
	IsStaff         *bool      `json:"is_staff,omitempty"`
	IsSuperuser     *bool      `json:"is_superuser,omitempty"`
	Groups          *[]int64   `json:"groups,omitempty"`
	UserPermissions *[]string  `json:"user_permissions,omitempty"`
	DateJoined      *time.Time `json:"date_joined,omitempty"`
	LastLogin       *time.Time `json:"last_login,omitempty"`
}

func (f ChangeForm) given() []string {
	set := map[string]bool{
		"username":         f.Username != nil,
		"email":            f.Email != nil,
		"first_name":       f.FirstName != nil,
		"last_name":        f.LastName != nil,
		"title":            f.Title != nil,
		"birth_date":       f.BirthDate != nil,
		"is_active":        f.IsActive != nil,
		"is_staff":         f.IsStaff != nil,
		"is_superuser":     f.IsSuperuser != nil,
		"groups":           f.Groups != nil,
		"user_permissions": f.UserPermissions != nil,
		"date_joined":      f.DateJoined != nil,
		"last_login":       f.LastLogin != nil,
	}
	var out []string
	for k, ok := range set {
		if ok {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}

// applyAccess copies the permission related fields onto the mixin.
func (f ChangeForm) applyAccess(m *models.PermissionsMixin) error {
	if f.IsSuperuser != nil {
		m.IsSuperuser = *f.IsSuperuser
	}
	if f.Groups != nil {
		m.Groups = make([]models.Group, 0, len(*f.Groups))
		for _, id := range *f.Groups {
			m.Groups = append(m.Groups, models.Group{ID: id})
		}
	}
	if f.UserPermissions != nil {
		m.UserPermissions = make([]models.Permission, 0, len(*f.UserPermissions))
		for _, key := range *f.UserPermissions {
			app, codename, ok := strings.Cut(key, ".")
			if !ok || app == "" || codename == "" {
				return common.Validationf("user_permissions: %q is not an <app_label>.<codename> key", key)
			}
			m.UserPermissions = append(m.UserPermissions, models.Permission{AppLabel: app, Codename: codename})
		}
	}
	return nil
}

// PasswordForm sets a new password, entered twice.
type PasswordForm struct {
	Password1 string `json:"password1" form:"password1" validate:"required"`
	Password2 string `json:"password2" form:"password2" validate:"required"`
}

func (f PasswordForm) clean() (string, error) {
	if err := validation.Struct(f); err != nil {
		return "", err
	}
	if f.Password1 != f.Password2 {
		return "", common.ErrPasswordMismatch
	}
	return f.Password1, nil
}

// EmailForm is a message sent to an account. An empty From uses the
// configured sender.
type EmailForm struct {
	Subject string `json:"subject" validate:"required,max=255"`
	Message string `json:"message" validate:"required"`
	From    string `json:"from,omitempty" validate:"omitempty,email"`
}

// checkGiven rejects fields that are not part of the form layout.
func checkGiven(given []string, sets []Fieldset) error {
	allowed := fieldsOf(sets)
	var unknown []string
	for _, f := range given {
		if !allowed[f] {
			unknown = append(unknown, f)
		}
	}
	if len(unknown) > 0 {
		return common.Validationf("unknown field(s): %s", strings.Join(unknown, ", "))
	}
	return nil
}

// parseDate accepts YYYY-MM-DD; an empty value clears the date.
func parseDate(field, v string) (*time.Time, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil, nil
	}
	t, err := time.Parse(dateLayout, v)
	if err != nil {
		return nil, common.Validationf("%s: enter a valid date", field)
	}
	return &t, nil
}

func formatDate(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.Format(dateLayout)
}

func (f AddForm) clean(sets []Fieldset) (string, error) {
	if err := checkGiven(f.given(), sets); err != nil {
		return "", err
	}
	return PasswordForm{Password1: f.Password1, Password2: f.Password2}.clean()
}

func (f EmailForm) clean() error {
	return validation.Struct(f)
}
