package web

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/dmitrijs2005/customuser/internal/common"
	"github.com/dmitrijs2005/customuser/internal/server/admin"
	"github.com/dmitrijs2005/customuser/internal/server/auth"
	"github.com/dmitrijs2005/customuser/internal/server/models"
	"github.com/dmitrijs2005/customuser/internal/server/repositories/query"
)

const listPerPage = 100

type loginForm struct {
	Username string `json:"username" form:"username" validate:"required"`
	Password string `json:"password" form:"password" validate:"required"`
	Next     string `json:"next,omitempty" form:"next"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

func (s *HTTPServer) loginLabel() string {
	if s.backend.Label() == models.EmailAppLabel+"."+models.EmailModelName {
		return "Email"
	}
	return "Username"
}

// authenticate checks the credentials and admits staff accounts only. Both
// failures read the same.
func (s *HTTPServer) authenticate(c echo.Context, f *loginForm) (models.Account, error) {
	if err := c.Validate(f); err != nil {
		return nil, err
	}
	invalid := fmt.Errorf("%w: please enter the correct %s and password for a staff account",
		common.ErrorUnauthorized, strings.ToLower(s.loginLabel()))

	acc, err := s.backend.Authenticate(c.Request().Context(), f.Username, f.Password)
	if errors.Is(err, common.ErrorUnauthorized) {
		return nil, invalid
	}
	if err != nil {
		return nil, err
	}
	if !s.site.HasPermission(acc) {
		return nil, invalid
	}
	return acc, nil
}

// safeNext only follows redirects that stay inside the admin.
func safeNext(next string) string {
	if strings.HasPrefix(next, "/admin") && !strings.HasPrefix(next, "//") {
		return next
	}
	return "/admin"
}

func (s *HTTPServer) loginPage(c echo.Context) error {
	return c.Render(http.StatusOK, "login.html", map[string]interface{}{
		"next":        safeNext(c.QueryParam("next")),
		"login_label": s.loginLabel(),
	})
}

func (s *HTTPServer) login(c echo.Context) error {
	f := new(loginForm)
	if err := c.Bind(f); err != nil {
		return err
	}

	acc, err := s.authenticate(c, f)
	if err != nil {
		code, msg := statusOf(err)
		if wantsJSON(c) || code >= http.StatusInternalServerError {
			return err
		}
		return c.Render(http.StatusOK, "login.html", map[string]interface{}{
			"next":        safeNext(f.Next),
			"login_label": s.loginLabel(),
			"error":       msg,
		})
	}

	if err := s.startSession(c, acc); err != nil {
		return err
	}
	s.logger.Info(c.Request().Context(), "admin login", "id", acc.AccountID())

	if wantsJSON(c) {
		return c.JSON(http.StatusOK, jsonHTTPResponse{true, "Logged in"})
	}
	return c.Redirect(http.StatusSeeOther, safeNext(f.Next))
}

func (s *HTTPServer) issueToken(c echo.Context) error {
	f := new(loginForm)
	if err := c.Bind(f); err != nil {
		return err
	}
	acc, err := s.authenticate(c, f)
	if err != nil {
		return err
	}

	token, err := auth.GenerateToken(acc.AccountID(), s.backend.Label(), s.secret, s.tokenTTL)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, tokenResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   int(s.tokenTTL.Seconds()),
	})
}

func (s *HTTPServer) logout(c echo.Context) error {
	if err := s.clearSession(c); err != nil {
		return err
	}
	if wantsJSON(c) {
		return c.JSON(http.StatusOK, jsonHTTPResponse{true, "Logged out"})
	}
	return c.Redirect(http.StatusSeeOther, "/admin/login")
}

func modelURL(o admin.Options) string {
	return "/admin/" + o.AppLabel + "/" + o.ModelName
}

func (s *HTTPServer) index(c echo.Context) error {
	acc := account(c)
	entries := []map[string]interface{}{}
	for _, ma := range s.site.AvailableModels(acc) {
		o := ma.Options()
		entries = append(entries, map[string]interface{}{
			"app_label":           o.AppLabel,
			"model_name":          o.ModelName,
			"verbose_name_plural": o.VerboseNamePlural,
			"url":                 modelURL(o),
			"perms": map[string]bool{
				"view":   o.HasViewPermission(acc),
				"add":    o.HasAddPermission(acc),
				"change": o.HasChangePermission(acc),
				"delete": o.HasDeletePermission(acc),
			},
		})
	}

	if wantsJSON(c) {
		return c.JSON(http.StatusOK, map[string]interface{}{
			"site_title": s.site.Title,
			"models":     entries,
		})
	}
	return c.Render(http.StatusOK, "index.html", map[string]interface{}{
		"models": entries,
	})
}

func (s *HTTPServer) modelAdmin(c echo.Context) (admin.ModelAdmin, admin.Options, error) {
	ma, err := s.site.Lookup(c.Param("app"), c.Param("model"))
	if err != nil {
		return nil, admin.Options{}, err
	}
	return ma, ma.Options(), nil
}

func forbidIf(denied bool, action string, o admin.Options) error {
	if denied {
		return fmt.Errorf("%w: no permission to %s %s", common.ErrorForbidden, action, o.VerboseNamePlural)
	}
	return nil
}

func (s *HTTPServer) changeList(c echo.Context) error {
	ma, o, err := s.modelAdmin(c)
	if err != nil {
		return err
	}
	if err := forbidIf(!o.HasViewPermission(account(c)), "view", o); err != nil {
		return err
	}

	perPage := o.ListPerPage
	if perPage <= 0 {
		perPage = listPerPage
	}
	f, pageNo, err := listFilter(c, perPage)
	if err != nil {
		return err
	}
	page, err := ma.List(c.Request().Context(), f)
	if err != nil {
		return err
	}

	if wantsJSON(c) {
		return c.JSON(http.StatusOK, page)
	}
	data := map[string]interface{}{
		"options": o,
		"page":    page,
		"url":     modelURL(o),
		"search":  f.Search,
	}
	if pageNo > 1 {
		data["prev"] = pageLink(c, pageNo-1)
	}
	if page.Offset+len(page.Rows) < page.Total {
		data["next"] = pageLink(c, pageNo+1)
	}
	return c.Render(http.StatusOK, "change_list.html", data)
}

// listFilter reads the change list query string: q (search), o (comma
// separated ordering), p (1-based page), is_staff, is_superuser, is_active
// and groups (a group id).
func listFilter(c echo.Context, perPage int) (query.ListFilter, int, error) {
	var f query.ListFilter
	var ordering string
	page := 1

	err := echo.QueryParamsBinder(c).
		String("q", &f.Search).
		String("o", &ordering).
		Int("p", &page).
		BindError()
	if err != nil {
		return f, 0, common.Validationf("invalid page number")
	}
	if page < 1 {
		page = 1
	}
	if ordering != "" {
		f.Ordering = strings.Split(ordering, ",")
	}

	flags := []struct {
		name string
		dst  **bool
	}{
		{"is_staff", &f.IsStaff},
		{"is_superuser", &f.IsSuperuser},
		{"is_active", &f.IsActive},
	}
	for _, fl := range flags {
		raw := c.QueryParam(fl.name)
		if raw == "" {
			continue
		}
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return f, 0, common.Validationf("%s: expected a boolean", fl.name)
		}
		*fl.dst = &v
	}
	if raw := c.QueryParam("groups"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return f, 0, common.Validationf("groups: expected a group id")
		}
		f.GroupID = &id
	}

	f.Limit = perPage
	f.Offset = (page - 1) * perPage
	return f, page, nil
}

func pageLink(c echo.Context, page int) string {
	q := url.Values{}
	for k, v := range c.QueryParams() {
		q[k] = v
	}
	q.Set("p", strconv.Itoa(page))
	return c.Request().URL.Path + "?" + q.Encode()
}

func (s *HTTPServer) detail(c echo.Context) error {
	ma, o, err := s.modelAdmin(c)
	if err != nil {
		return err
	}
	if err := forbidIf(!o.HasViewPermission(account(c)), "view", o); err != nil {
		return err
	}

	rec, err := ma.Detail(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	if wantsJSON(c) {
		return c.JSON(http.StatusOK, rec)
	}
	return c.Render(http.StatusOK, "change_form.html", map[string]interface{}{
		"options": o,
		"record":  rec,
	})
}

func (s *HTTPServer) add(c echo.Context) error {
	ma, o, err := s.modelAdmin(c)
	if err != nil {
		return err
	}
	if err := forbidIf(!o.HasAddPermission(account(c)), "add", o); err != nil {
		return err
	}

	form := admin.AddForm{}
	if err := c.Bind(&form); err != nil {
		return err
	}
	rec, err := ma.Add(c.Request().Context(), form)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, rec)
}

func (s *HTTPServer) change(c echo.Context) error {
	ma, o, err := s.modelAdmin(c)
	if err != nil {
		return err
	}
	if err := forbidIf(!o.HasChangePermission(account(c)), "change", o); err != nil {
		return err
	}

	form := admin.ChangeForm{}
	if err := c.Bind(&form); err != nil {
		return err
	}
	rec, err := ma.Change(c.Request().Context(), c.Param("id"), form)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, rec)
}

func (s *HTTPServer) setPassword(c echo.Context) error {
	ma, o, err := s.modelAdmin(c)
	if err != nil {
		return err
	}
	if err := forbidIf(!o.HasChangePermission(account(c)), "change", o); err != nil {
		return err
	}

	form := admin.PasswordForm{}
	if err := c.Bind(&form); err != nil {
		return err
	}
	if err := ma.SetPassword(c.Request().Context(), c.Param("id"), form); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, jsonHTTPResponse{true, "Password changed successfully"})
}

func (s *HTTPServer) delete(c echo.Context) error {
	ma, o, err := s.modelAdmin(c)
	if err != nil {
		return err
	}
	if err := forbidIf(!o.HasDeletePermission(account(c)), "delete", o); err != nil {
		return err
	}

	if err := ma.Delete(c.Request().Context(), c.Param("id")); err != nil {
		return err
	}
	s.logger.Info(c.Request().Context(), "admin deleted account", "model", o.Label(), "id", c.Param("id"), "by", account(c).AccountID())
	return c.JSON(http.StatusOK, jsonHTTPResponse{true, "Deleted"})
}

func (s *HTTPServer) emailUser(c echo.Context) error {
	ma, o, err := s.modelAdmin(c)
	if err != nil {
		return err
	}
	if err := forbidIf(!o.HasChangePermission(account(c)), "change", o); err != nil {
		return err
	}

	form := admin.EmailForm{}
	if err := c.Bind(&form); err != nil {
		return err
	}
	if err := ma.EmailUser(c.Request().Context(), c.Param("id"), form); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, jsonHTTPResponse{true, "Email sent"})
}
