package web

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/sessions"
	"github.com/labstack/echo-contrib/session"
	"github.com/labstack/echo/v4"

	"github.com/dmitrijs2005/customuser/internal/common"
	"github.com/dmitrijs2005/customuser/internal/server/auth"
	"github.com/dmitrijs2005/customuser/internal/server/models"
)

const (
	sessionName      = "admin_session"
	sessionAccountID = "account_id"
	sessionModel     = "account_model"
	// two weeks
	sessionMaxAge = 14 * 24 * 60 * 60

	accountKey = "account"
)

// requireStaff authenticates the request by bearer token or session cookie
// and admits active staff accounts only.
func (s *HTTPServer) requireStaff(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		acc, err := s.currentAccount(c)
		if err == nil && !s.site.HasPermission(acc) {
			err = fmt.Errorf("%w: staff account required", common.ErrorForbidden)
		}
		if err != nil {
			if !wantsJSON(c) && c.Request().Method == http.MethodGet {
				return c.Redirect(http.StatusFound, "/admin/login?next="+url.QueryEscape(c.Request().URL.RequestURI()))
			}
			return err
		}
		c.Set(accountKey, acc)
		return next(c)
	}
}

func (s *HTTPServer) currentAccount(c echo.Context) (models.Account, error) {
	ctx := c.Request().Context()

	if token := bearerToken(c.Request()); token != "" {
		claims, err := auth.ParseToken(token, s.secret)
		if err != nil {
			return nil, err
		}
		if claims.AccountModel != s.backend.Label() {
			return nil, fmt.Errorf("%w: token issued for %s", common.ErrInvalidToken, claims.AccountModel)
		}
		return s.lookupAccount(c, claims.AccountID)
	}

	sess, err := session.Get(sessionName, c)
	if err != nil {
		return nil, common.ErrorUnauthorized
	}
	id, _ := sess.Values[sessionAccountID].(string)
	model, _ := sess.Values[sessionModel].(string)
	if id == "" || model != s.backend.Label() {
		return nil, common.ErrorUnauthorized
	}
	s.logger.Debug(ctx, "session account", "id", id)
	return s.lookupAccount(c, id)
}

func (s *HTTPServer) lookupAccount(c echo.Context, id string) (models.Account, error) {
	acc, err := s.backend.GetAccount(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorUnauthorized
		}
		return nil, err
	}
	return acc, nil
}

func account(c echo.Context) models.Account {
	acc, _ := c.Get(accountKey).(models.Account)
	return acc
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get(echo.HeaderAuthorization)
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

// wantsJSON reports whether the client is an API client rather than a
// browser.
func wantsJSON(c echo.Context) bool {
	r := c.Request()
	if bearerToken(r) != "" {
		return true
	}
	if strings.Contains(r.Header.Get(echo.HeaderAccept), echo.MIMEApplicationJSON) {
		return true
	}
	return strings.HasPrefix(r.Header.Get(echo.HeaderContentType), echo.MIMEApplicationJSON)
}

// contentTypeJSON rejects anything but JSON bodies. Browsers cannot send
// them cross-site without a preflight.
func contentTypeJSON(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		ct := c.Request().Header.Get(echo.HeaderContentType)
		if !strings.HasPrefix(ct, echo.MIMEApplicationJSON) {
			return echo.NewHTTPError(http.StatusUnsupportedMediaType, "only JSON allowed")
		}
		return next(c)
	}
}

func (s *HTTPServer) startSession(c echo.Context, acc models.Account) error {
	// a cookie that no longer decodes still yields a fresh session
	sess, err := session.Get(sessionName, c)
	if sess == nil {
		return err
	}
	sess.Options = &sessions.Options{
		Path:     "/admin",
		MaxAge:   sessionMaxAge,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	sess.Values[sessionAccountID] = acc.AccountID()
	sess.Values[sessionModel] = s.backend.Label()
	return sess.Save(c.Request(), c.Response())
}

func (s *HTTPServer) clearSession(c echo.Context) error {
	sess, err := session.Get(sessionName, c)
	if err != nil {
		return nil
	}
	sess.Options = &sessions.Options{Path: "/admin", MaxAge: -1, HttpOnly: true}
	delete(sess.Values, sessionAccountID)
	delete(sess.Values, sessionModel)
	return sess.Save(c.Request(), c.Response())
}
