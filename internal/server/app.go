// Package server wires the account service together: configuration,
// logging, the database, the active account model and the admin web
// server. It also runs the management commands against the same wiring.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/customuser/internal/emailer"
	"github.com/dmitrijs2005/customuser/internal/logging"
	"github.com/dmitrijs2005/customuser/internal/manage"
	"github.com/dmitrijs2005/customuser/internal/server/admin"
	"github.com/dmitrijs2005/customuser/internal/server/config"
	"github.com/dmitrijs2005/customuser/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/customuser/internal/server/services"
	"github.com/dmitrijs2005/customuser/internal/server/web"
)

const siteTitle = "Accounts administration"

type App struct {
	config      *config.Config
	logger      logging.Logger
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	site        *admin.Site
	backend     services.Backend
	accounts    manage.Accounts
	access      *services.AccessService
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config error: %w", err)
	}

	logger, err := logging.New(os.Stdout, c.LogLevel, c.LogFormat)
	if err != nil {
		return nil, fmt.Errorf("logger init error: %w", err)
	}

	hasher, err := c.Hasher()
	if err != nil {
		return nil, err
	}

	rm, err := repomanager.NewPostgresRepositoryManager(c.AccountModel)
	if err != nil {
		return nil, err
	}

	db, err := repomanager.Open(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	app := &App{
		config:      c,
		logger:      logger,
		db:          db,
		repomanager: rm,
		site:        admin.NewSite(siteTitle),
		access:      services.NewAccessService(db, rm, logger),
	}

	mailer := emailer.FromConfig(c, logger)

	switch c.AccountModel {
	case config.AccountModelEmail:
		m := services.NewEmailUserManager(db, rm, hasher, mailer, logger)
		err = app.site.Register(admin.NewEmailUserAdmin(m, logger))
		app.backend = services.NewEmailBackend(m)
		app.accounts = manage.EmailAccounts(m)
	case config.AccountModelProfile:
		m := services.NewProfileUserManager(db, rm, hasher, mailer, logger)
		err = app.site.Register(admin.NewProfileUserAdmin(m, logger))
		app.backend = services.NewProfileBackend(m)
		app.accounts = manage.ProfileAccounts(m)
	}
	if err != nil {
		db.Close()
		return nil, err
	}

	return app, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) error {
	defer cancelFunc()

	s, err := web.NewHTTPServer(app.config.EndpointAddrHTTP, app.logger, app.site, app.backend,
		app.config.SecretKey, app.config.AccessTokenValidityDuration)
	if err != nil {
		app.logger.Error(ctx, err.Error())
		return fmt.Errorf("http server: %w", err)
	}

	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Run applies pending migrations and serves the admin until SIGINT, SIGTERM
// or SIGQUIT. A server that fails to start or stops with an error makes Run
// return that error.
func (app *App) Run(ctx context.Context) error {
	defer app.db.Close()

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...", "account_model", app.config.AccountModel)

	if err := app.repomanager.RunMigrations(ctx, app.db); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup
	var serverErr error

	wg.Add(1)
	go func() {
		defer wg.Done()
		serverErr = app.startHTTPServer(ctx, cancelFunc)
	}()

	wg.Wait()

	return serverErr
}

// Manage runs one management command.
func (app *App) Manage(ctx context.Context, args []string) error {
	defer app.db.Close()
	return manage.New(app.db, app.repomanager, app.accounts, app.access, app.logger).Run(ctx, args)
}
