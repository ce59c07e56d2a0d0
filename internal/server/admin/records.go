package admin

import (
	"github.com/dmitrijs2005/customuser/internal/server/repositories/query"
)

// Page is one page of a change list.
type Page struct {
	Model   string   `json:"model"`
	Columns []string `json:"columns"`
	Rows    []Row    `json:"rows"`
	Total   int      `json:"total"`
	Limit   int      `json:"limit"`
	Offset  int      `json:"offset"`
}

// Row holds the list_display values of one account, in column order.
type Row struct {
	ID     string `json:"id"`
	Label  string `json:"label"`
	Values []any  `json:"values"`
}

// Record is the change form of one account: every field of its fieldsets
// keyed by name.
type Record struct {
	ID        string         `json:"id"`
	Label     string         `json:"label"`
	Fieldsets []Fieldset     `json:"fieldsets"`
	Values    map[string]any `json:"values"`
}

func row(o Options, id, label string, values map[string]any) Row {
	r := Row{ID: id, Label: label, Values: make([]any, 0, len(o.ListDisplay))}
	for _, c := range o.ListDisplay {
		r.Values = append(r.Values, values[c])
	}
	return r
}

func record(o Options, id, label string, values map[string]any) *Record {
	rec := &Record{ID: id, Label: label, Fieldsets: o.Fieldsets, Values: make(map[string]any)}
	for name := range fieldsOf(o.Fieldsets) {
		rec.Values[name] = values[name]
	}
	return rec
}

// prepare fills list defaults and drops filters the model does not offer.
func prepare(o Options, f query.ListFilter) query.ListFilter {
	if len(f.Ordering) == 0 {
		f.Ordering = o.Ordering
	}
	if f.Limit <= 0 {
		f.Limit = o.ListPerPage
		if f.Limit <= 0 {
			f.Limit = defaultListPerPage
		}
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	if len(o.SearchFields) == 0 {
		f.Search = ""
	}
	if !o.filterable("is_staff") {
		f.IsStaff = nil
	}
	if !o.filterable("is_superuser") {
		f.IsSuperuser = nil
	}
	if !o.filterable("is_active") {
		f.IsActive = nil
	}
	if !o.filterable("groups") {
		f.GroupID = nil
	}
	return f
}
