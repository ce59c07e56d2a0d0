package web

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/dmitrijs2005/customuser/internal/common"
)

type jsonHTTPResponse struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
}

// statusOf maps service errors onto HTTP status codes. Unknown errors are
// internal and their text is not shown to the client.
func statusOf(err error) (int, string) {
	var he *echo.HTTPError
	switch {
	case errors.As(err, &he):
		return he.Code, fmt.Sprint(he.Message)
	case errors.Is(err, common.ErrorValidation):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, common.ErrorAlreadyExists):
		return http.StatusConflict, err.Error()
	case errors.Is(err, common.ErrorNotFound):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, common.ErrorForbidden):
		return http.StatusForbidden, err.Error()
	case errors.Is(err, common.ErrorUnauthorized),
		errors.Is(err, common.ErrInvalidToken),
		errors.Is(err, common.ErrTokenExpired):
		return http.StatusUnauthorized, err.Error()
	}
	return http.StatusInternalServerError, common.ErrorInternal.Error()
}

func (s *HTTPServer) errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code, msg := statusOf(err)
	if code >= http.StatusInternalServerError {
		s.logger.Error(c.Request().Context(), "request failed", "error", err, "request_id", c.Response().Header().Get(echo.HeaderXRequestID))
	}

	if code == http.StatusUnauthorized && bearerToken(c.Request()) != "" {
		c.Response().Header().Set(echo.HeaderWWWAuthenticate, `Bearer realm="admin"`)
	}

	if c.Request().Method == http.MethodHead {
		err = c.NoContent(code)
	} else if wantsJSON(c) {
		err = c.JSON(code, jsonHTTPResponse{false, msg})
	} else {
		err = c.Render(code, "error.html", map[string]interface{}{
			"code":    code,
			"message": msg,
		})
	}
	if err != nil {
		s.logger.Error(c.Request().Context(), "error writing error response", "error", err)
	}
}
