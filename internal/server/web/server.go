// Package web serves the staff admin over HTTP with echo. Browsers get
// server-rendered pages and a session cookie; API clients get JSON and
// authenticate with a bearer token.
package web

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/sessions"
	"github.com/labstack/echo-contrib/session"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/xid"

	"github.com/dmitrijs2005/customuser/internal/logging"
	"github.com/dmitrijs2005/customuser/internal/server/admin"
	"github.com/dmitrijs2005/customuser/internal/server/services"
)

const shutdownTimeout = 5 * time.Second

type HTTPServer struct {
	address  string
	site     *admin.Site
	backend  services.Backend
	logger   logging.Logger
	secret   []byte
	tokenTTL time.Duration
	echo     *echo.Echo
}

func NewHTTPServer(a string, l logging.Logger, site *admin.Site, backend services.Backend, secretKey string, tokenTTL time.Duration) (*HTTPServer, error) {
	renderer, err := newTemplateRegistry(site.Title)
	if err != nil {
		return nil, err
	}

	s := &HTTPServer{
		address:  a,
		site:     site,
		backend:  backend,
		logger:   l.With("module", "http_server"),
		secret:   []byte(secretKey),
		tokenTTL: tokenTTL,
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Renderer = renderer
	e.Validator = NewValidator()
	e.HTTPErrorHandler = s.errorHandler

	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: func() string { return xid.New().String() },
	}))
	e.Use(s.requestLogger())
	e.Use(middleware.Recover())
	e.Use(session.Middleware(sessions.NewCookieStore(s.secret)))

	s.echo = e
	s.routes()
	return s, nil
}

// Handler exposes the router, mainly for tests.
func (s *HTTPServer) Handler() http.Handler {
	return s.echo
}

func (s *HTTPServer) Run(ctx context.Context) error {

	// announces address
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	srv := &http.Server{Handler: s.echo, ReadHeaderTimeout: 10 * time.Second}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(sctx); err != nil {
			s.logger.Error(ctx, "shutdown error", "error", err)
		}
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", listen.Addr().String())

	if err := srv.Serve(listen); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}

func (s *HTTPServer) requestLogger() echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogRemoteIP:  true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			args := []any{
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency", v.Latency,
				"request_id", v.RequestID,
				"remote_ip", v.RemoteIP,
			}
			ctx := c.Request().Context()
			switch {
			case v.Status >= http.StatusInternalServerError:
				s.logger.Error(ctx, "request", append(args, "error", v.Error)...)
			case v.Status >= http.StatusBadRequest:
				s.logger.Warn(ctx, "request", args...)
			default:
				s.logger.Debug(ctx, "request", args...)
			}
			return nil
		},
	})
}
