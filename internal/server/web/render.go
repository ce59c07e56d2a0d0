package web

import (
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/dmitrijs2005/customuser/internal/passwords"
)

//go:embed templates/*.html
var templateFS embed.FS

// pages are rendered inside base.html; login.html stands alone.
var pages = []string{"index.html", "change_list.html", "change_form.html", "error.html"}

// TemplateRegistry renders the admin pages for echo.
type TemplateRegistry struct {
	templates map[string]*template.Template
	siteTitle string
}

func newTemplateRegistry(siteTitle string) (*TemplateRegistry, error) {
	funcs := template.FuncMap{
		"StringsJoin": strings.Join,
		"display":     display,
	}

	templates := make(map[string]*template.Template)
	login, err := template.New("login.html").Funcs(funcs).ParseFS(templateFS, "templates/login.html")
	if err != nil {
		return nil, fmt.Errorf("parse login.html: %w", err)
	}
	templates["login.html"] = login

	for _, name := range pages {
		t, err := template.New(name).Funcs(funcs).ParseFS(templateFS, "templates/base.html", "templates/"+name)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", name, err)
		}
		templates[name] = t
	}

	return &TemplateRegistry{templates: templates, siteTitle: siteTitle}, nil
}

func (t *TemplateRegistry) Render(w io.Writer, name string, data interface{}, c echo.Context) error {
	tmpl, ok := t.templates[name]
	if !ok {
		return errors.New("template not found: " + name)
	}

	if m, ok := data.(map[string]interface{}); ok {
		m["site_title"] = t.siteTitle
		if acc := account(c); acc != nil {
			m["account"] = acc.String()
		}
	}

	if name == "login.html" {
		return tmpl.ExecuteTemplate(w, "login.html", data)
	}
	return tmpl.ExecuteTemplate(w, "base.html", data)
}

// display formats a field value for a table cell.
func display(v any) string {
	switch x := v.(type) {
	case nil:
		return "-"
	case bool:
		if x {
			return "yes"
		}
		return "no"
	case time.Time:
		if x.IsZero() {
			return "-"
		}
		return x.Format("2006-01-02 15:04")
	case *time.Time:
		if x == nil {
			return "-"
		}
		return x.Format("2006-01-02 15:04")
	case []passwords.SummaryItem:
		parts := make([]string, 0, len(x))
		for _, it := range x {
			parts = append(parts, it.Label+": "+it.Value)
		}
		return strings.Join(parts, " ")
	}
	return fmt.Sprint(v)
}
