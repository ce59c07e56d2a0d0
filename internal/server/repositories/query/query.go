// Package query builds the dynamic parts of list queries shared by the
// account repositories: filters, search, ordering and paging.
package query

import (
	"fmt"
	"strings"
)

// ListFilter selects and orders accounts for list views.
type ListFilter struct {
	// Search is split on whitespace; every term must match at least one
	// searchable column (case-insensitive substring).
	Search      string
	IsStaff     *bool
	IsSuperuser *bool
	IsActive    *bool
	GroupID     *int64
	// Ordering holds field names, "-" prefixed for descending order.
	Ordering []string
	Limit    int
	Offset   int
}

// Builder accumulates WHERE conditions and their positional arguments.
type Builder struct {
	conds []string
	args  []any
}

// Arg registers v and returns its placeholder ("$1", "$2", ...).
func (b *Builder) Arg(v any) string {
	b.args = append(b.args, v)
	return fmt.Sprintf("$%d", len(b.args))
}

// In registers every value and returns a comma separated placeholder list.
func (b *Builder) In(values ...any) string {
	ph := make([]string, 0, len(values))
	for _, v := range values {
		ph = append(ph, b.Arg(v))
	}
	return strings.Join(ph, ", ")
}

// Where adds a condition; conditions are joined with AND.
func (b *Builder) Where(cond string) {
	b.conds = append(b.conds, cond)
}

// Search adds one condition per term of s, each matching any of columns.
func (b *Builder) Search(s string, columns []string) {
	for _, term := range strings.Fields(s) {
		ph := b.Arg("%" + escapeLike(strings.ToLower(term)) + "%")
		ors := make([]string, 0, len(columns))
		for _, c := range columns {
			ors = append(ors, fmt.Sprintf("lower(%s) LIKE %s", c, ph))
		}
		b.Where("(" + strings.Join(ors, " OR ") + ")")
	}
}

// Clause renders " WHERE ..." or "" when there are no conditions.
func (b *Builder) Clause() string {
	if len(b.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(b.conds, " AND ")
}

func (b *Builder) Args() []any {
	return b.args
}

// Flags adds the boolean and group filters shared by both account tables.
// groupsTable is the account/group link table.
func (b *Builder) Flags(f ListFilter, groupsTable string) {
	if f.IsStaff != nil {
		b.Where("is_staff = " + b.Arg(*f.IsStaff))
	}
	if f.IsSuperuser != nil {
		b.Where("is_superuser = " + b.Arg(*f.IsSuperuser))
	}
	if f.IsActive != nil {
		b.Where("is_active = " + b.Arg(*f.IsActive))
	}
	if f.GroupID != nil {
		b.Where(fmt.Sprintf("id IN (SELECT user_id FROM %s WHERE group_id = %s)", groupsTable, b.Arg(*f.GroupID)))
	}
}

// Page renders LIMIT/OFFSET for the filter, registering their arguments.
func (b *Builder) Page(f ListFilter) string {
	var sb strings.Builder
	if f.Limit > 0 {
		sb.WriteString(" LIMIT " + b.Arg(f.Limit))
	}
	if f.Offset > 0 {
		sb.WriteString(" OFFSET " + b.Arg(f.Offset))
	}
	return sb.String()
}

// OrderBy renders an ORDER BY clause from field names, accepting only those
// present in allowed (field name -> column). An empty ordering falls back to
// fallback. The primary key is always appended as a tie breaker.
func OrderBy(ordering []string, allowed map[string]string, fallback []string) (string, error) {
	if len(ordering) == 0 {
		ordering = fallback
	}
	parts := make([]string, 0, len(ordering)+1)
	for _, o := range ordering {
		dir := "ASC"
		name := o
		if strings.HasPrefix(o, "-") {
			dir = "DESC"
			name = o[1:]
		}
		col, ok := allowed[name]
		if !ok {
			return "", fmt.Errorf("cannot order by %q", name)
		}
		parts = append(parts, col+" "+dir)
	}
	parts = append(parts, "id ASC")
	return " ORDER BY " + strings.Join(parts, ", "), nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
