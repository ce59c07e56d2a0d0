// Package manage implements the administrative commands: schema
// migrations, superuser creation, password changes and fixtures.
package manage

import (
	"bufio"
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/customuser/internal/common"
	"github.com/dmitrijs2005/customuser/internal/logging"
	"github.com/dmitrijs2005/customuser/internal/server/models"
)

// SuperuserPasswordEnv supplies the password for createsuperuser -noinput.
const SuperuserPasswordEnv = "ACCOUNT_SUPERUSER_PASSWORD"

const defaultFixturesDir = "fixtures"

// Migrator applies and reverts the schema of the active account model.
type Migrator interface {
	RunMigrations(ctx context.Context, db *sql.DB) error
	ResetMigrations(ctx context.Context, db *sql.DB) error
}

// Access administers groups and permissions.
type Access interface {
	CreateGroup(ctx context.Context, name string, permKeys ...string) (*models.Group, error)
	ListGroups(ctx context.Context) ([]models.Group, error)
	SetGroupPermissions(ctx context.Context, groupID int64, permKeys []string) error
	DeleteGroup(ctx context.Context, id int64) error
	ListPermissions(ctx context.Context) ([]models.Permission, error)
}

type Command struct {
	db       *sql.DB
	migrator Migrator
	accounts Accounts
	access   Access
	logger   logging.Logger

	in     *bufio.Reader
	out    io.Writer
	getenv func(string) (string, bool)
}

func New(db *sql.DB, migrator Migrator, accounts Accounts, access Access, logger logging.Logger) *Command {
	return &Command{
		db:       db,
		migrator: migrator,
		accounts: accounts,
		access:   access,
		logger:   logger,
		in:       bufio.NewReader(os.Stdin),
		out:      os.Stdout,
		getenv:   os.LookupEnv,
	}
}

// Usage lists the commands.
func Usage(w io.Writer) {
	fmt.Fprint(w, `Usage: manage [global flags] <command> [flags]

Commands:
  migrate                            apply the schema migrations
  reset [-noinput]                   revert every migration
  createsuperuser [-email e] [-username u] [-noinput]
                                     create an account with staff and superuser status
  changepassword <login>             set a new password for an account
  dumpdata [-dir path]               write every account to JSON documents
  loaddata [-dir path]               restore accounts from JSON documents
  creategroup <name> [perm ...]      create a group holding the given permissions
  listgroups                         list groups and their permissions
  setgroupperms <id> [perm ...]      replace the permissions of a group
  deletegroup <id>                   delete a group
  listpermissions                    list every permission key
`)
}

// Run executes the command named by args[0].
func (c *Command) Run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		Usage(c.out)
		return errors.New("no command given")
	}

	name, rest := args[0], args[1:]
	switch name {
	case "migrate":
		return c.migrate(ctx)
	case "reset":
		return c.reset(ctx, rest)
	case "createsuperuser":
		return c.createSuperuser(ctx, rest)
	case "changepassword":
		return c.changePassword(ctx, rest)
	case "dumpdata":
		return c.dumpData(ctx, rest)
	case "loaddata":
		return c.loadData(ctx, rest)
	case "creategroup":
		return c.createGroup(ctx, rest)
	case "listgroups":
		return c.listGroups(ctx)
	case "setgroupperms":
		return c.setGroupPermissions(ctx, rest)
	case "deletegroup":
		return c.deleteGroup(ctx, rest)
	case "listpermissions":
		return c.listPermissions(ctx)
	case "help":
		Usage(c.out)
		return nil
	}
	Usage(c.out)
	return fmt.Errorf("unknown command %q", name)
}

func newFlagSet(name string, w io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(w)
	return fs
}

func (c *Command) migrate(ctx context.Context) error {
	if err := c.migrator.RunMigrations(ctx, c.db); err != nil {
		return err
	}
	fmt.Fprintf(c.out, "Migrations applied for %s.\n", c.accounts.Label())
	return nil
}

func (c *Command) reset(ctx context.Context, args []string) error {
	fs := newFlagSet("reset", c.out)
	noInput := fs.Bool("noinput", false, "do not ask for confirmation")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if !*noInput {
		answer, err := readLine(c.in, fmt.Sprintf("This drops every %s table and its data.\nType 'yes' to continue: ", c.accounts.Label()), c.out)
		if err != nil {
			return err
		}
		if answer != "yes" {
			fmt.Fprintln(c.out, "Reset cancelled.")
			return nil
		}
	}

	if err := c.migrator.ResetMigrations(ctx, c.db); err != nil {
		return err
	}
	fmt.Fprintf(c.out, "Migrations reverted for %s.\n", c.accounts.Label())
	return nil
}

func (c *Command) createSuperuser(ctx context.Context, args []string) error {
	fs := newFlagSet("createsuperuser", c.out)
	email := fs.String("email", "", "email address")
	username := fs.String("username", "", "username (profile accounts)")
	noInput := fs.Bool("noinput", false, "do not prompt; the password comes from "+SuperuserPasswordEnv)
	if err := fs.Parse(args); err != nil {
		return err
	}

	field := c.accounts.LoginField()
	login := *username
	if field == "email" {
		login = *email
		if *username != "" {
			return common.Validationf("-username is not used by %s", c.accounts.Label())
		}
	}

	var password string
	if *noInput {
		if strings.TrimSpace(login) == "" {
			return common.Validationf("you must use -%s with -noinput", field)
		}
		// without a password the account gets an unusable one
		password, _ = c.getenv(SuperuserPasswordEnv)
	} else {
		var err error
		for strings.TrimSpace(login) == "" {
			if login, err = readLine(c.in, strings.ToUpper(field[:1])+field[1:]+": ", c.out); err != nil {
				return err
			}
			if strings.TrimSpace(login) == "" {
				fmt.Fprintf(c.out, "Error: This field cannot be blank.\n")
			}
		}
		if c.accounts.AsksEmail() && *email == "" {
			if *email, err = readLine(c.in, "Email address: ", c.out); err != nil {
				return err
			}
		}
		if password, err = askNewPassword(c.out); err != nil {
			return err
		}
	}

	acc, err := c.accounts.CreateSuperuser(ctx, login, *email, password)
	if err != nil {
		return err
	}
	c.logger.Info(ctx, "superuser created", "id", acc.AccountID(), "model", c.accounts.Label())
	fmt.Fprintln(c.out, "Superuser created successfully.")
	return nil
}

func (c *Command) changePassword(ctx context.Context, args []string) error {
	if len(args) != 1 || strings.TrimSpace(args[0]) == "" {
		return common.Validationf("changepassword takes exactly one %s", c.accounts.LoginField())
	}
	login := args[0]

	fmt.Fprintf(c.out, "Changing password for %s '%s'\n", c.accounts.LoginField(), login)
	password, err := askNewPassword(c.out)
	if err != nil {
		return err
	}
	if err := c.accounts.SetPassword(ctx, login, password); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return fmt.Errorf("%s '%s' does not exist: %w", c.accounts.LoginField(), login, err)
		}
		return err
	}
	fmt.Fprintf(c.out, "Password changed successfully for %s '%s'\n", c.accounts.LoginField(), login)
	return nil
}

func (c *Command) fixturesDir(name string, args []string) (string, error) {
	fs := newFlagSet(name, c.out)
	dir := fs.String("dir", defaultFixturesDir, "fixtures directory")
	if err := fs.Parse(args); err != nil {
		return "", err
	}
	return *dir, nil
}

func (c *Command) dumpData(ctx context.Context, args []string) error {
	dir, err := c.fixturesDir("dumpdata", args)
	if err != nil {
		return err
	}
	n, err := c.accounts.Dump(ctx, dir)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "Dumped %d %s object(s) to %s.\n", n, c.accounts.Label(), dir)
	return nil
}

func (c *Command) loadData(ctx context.Context, args []string) error {
	dir, err := c.fixturesDir("loaddata", args)
	if err != nil {
		return err
	}
	n, err := c.accounts.Load(ctx, dir)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "Installed %d %s object(s) from %s.\n", n, c.accounts.Label(), dir)
	return nil
}

func (c *Command) createGroup(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return common.Validationf("creategroup needs a group name")
	}
	g, err := c.access.CreateGroup(ctx, args[0], args[1:]...)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "Group %q created with id %d.\n", g.Name, g.ID)
	return nil
}

func (c *Command) listGroups(ctx context.Context) error {
	groups, err := c.access.ListGroups(ctx)
	if err != nil {
		return err
	}
	for _, g := range groups {
		keys := make([]string, 0, len(g.Permissions))
		for _, p := range g.Permissions {
			keys = append(keys, p.Key())
		}
		fmt.Fprintf(c.out, "%d\t%s\t%s\n", g.ID, g.Name, strings.Join(keys, ","))
	}
	return nil
}

func groupID(name string, args []string) (int64, error) {
	if len(args) == 0 {
		return 0, common.Validationf("%s needs a group id", name)
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return 0, common.Validationf("%s: invalid group id %q", name, args[0])
	}
	return id, nil
}

func (c *Command) setGroupPermissions(ctx context.Context, args []string) error {
	id, err := groupID("setgroupperms", args)
	if err != nil {
		return err
	}
	if err := c.access.SetGroupPermissions(ctx, id, args[1:]); err != nil {
		return err
	}
	fmt.Fprintf(c.out, "Group %d now has %d permission(s).\n", id, len(args)-1)
	return nil
}

func (c *Command) deleteGroup(ctx context.Context, args []string) error {
	id, err := groupID("deletegroup", args)
	if err != nil {
		return err
	}
	if err := c.access.DeleteGroup(ctx, id); err != nil {
		return err
	}
	fmt.Fprintf(c.out, "Group %d deleted.\n", id)
	return nil
}

func (c *Command) listPermissions(ctx context.Context) error {
	perms, err := c.access.ListPermissions(ctx)
	if err != nil {
		return err
	}
	for _, p := range perms {
		fmt.Fprintf(c.out, "%s\t%s\n", p.Key(), p.Name)
	}
	return nil
}

// globalFlags take a value and belong to the configuration, not to the
// command.
var globalFlags = map[string]bool{
	"-a": true, "-d": true, "-m": true, "-s": true, "-t": true, "-l": true,
	"-c": true, "-config": true, "--config": true,
}

// CommandArgs drops the global configuration flags in front of the command
// name and returns the command with its own arguments.
func CommandArgs(args []string) []string {
	for i := 0; i < len(args); i++ {
		a := args[i]
		if !strings.HasPrefix(a, "-") {
			return args[i:]
		}
		if strings.Contains(a, "=") {
			continue
		}
		if globalFlags[a] {
			i++
		}
	}
	return nil
}
