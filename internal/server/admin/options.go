package admin

import (
	"github.com/dmitrijs2005/customuser/internal/server/models"
)

// Fieldset is a titled group of form fields. An empty Name renders without
// a heading.
type Fieldset struct {
	Name   string   `json:"name"`
	Fields []string `json:"fields"`
}

// Options describes how a model is listed and edited.
type Options struct {
	AppLabel          string `json:"app_label"`
	ModelName         string `json:"model_name"`
	VerboseName       string `json:"verbose_name"`
	VerboseNamePlural string `json:"verbose_name_plural"`

	ListDisplay  []string `json:"list_display"`
	ListFilter   []string `json:"list_filter"`
	SearchFields []string `json:"search_fields"`
	Ordering     []string `json:"ordering"`
	ListPerPage  int      `json:"list_per_page"`

	Fieldsets    []Fieldset `json:"fieldsets"`
	AddFieldsets []Fieldset `json:"add_fieldsets"`
}

const defaultListPerPage = 100

// Label returns "<app_label>.<model_name>".
func (o Options) Label() string {
	return o.AppLabel + "." + o.ModelName
}

func (o Options) permission(action string) string {
	return o.AppLabel + "." + action + "_" + o.ModelName
}

// HasViewPermission is granted by either the view or the change permission.
func (o Options) HasViewPermission(acc models.Account) bool {
	return acc.HasPerm(o.permission("view")) || acc.HasPerm(o.permission("change"))
}

func (o Options) HasAddPermission(acc models.Account) bool {
	return acc.HasPerm(o.permission("add"))
}

func (o Options) HasChangePermission(acc models.Account) bool {
	return acc.HasPerm(o.permission("change"))
}

func (o Options) HasDeletePermission(acc models.Account) bool {
	return acc.HasPerm(o.permission("delete"))
}

func fieldsOf(sets []Fieldset) map[string]bool {
	m := make(map[string]bool)
	for _, s := range sets {
		for _, f := range s.Fields {
			m[f] = true
		}
	}
	return m
}

func (o Options) filterable(field string) bool {
	for _, f := range o.ListFilter {
		if f == field {
			return true
		}
	}
	return false
}
