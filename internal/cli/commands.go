package cli

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/dmitrijs2005/userdir/internal/buildinfo"
	"github.com/dmitrijs2005/userdir/internal/common"
	"github.com/dmitrijs2005/userdir/internal/server/users"
)

var ErrUsage = errors.New("usage error")

const usage = `Usage: userdb [global flags] <command> [command flags]

Commands:
  list                          list all users
  show     -id|-email|-token|-jwt <key>
  create   -email <email> [-ip a,b]   prompts for the password
  login    -email <email> [-ip addr]  prompts for the password, rotates the session
  reset    -email <email>         start a password reset
  passwd   -token <reset token>   prompts for the new password
  whoami   -jwt <auth JWT token>  show the user a session belongs to
  delete   -id|-email|-token|-jwt <key>
  backup                        upload the database file to S3
  reset-db [-yes]               delete every user
  version
`

// Run executes one command.
func (a *App) Run(ctx context.Context, cmd string, args []string) error {
	a.logger.Debug(ctx, "running command", "command", cmd, "database", a.config.DatabasePath())

	if err := a.users.LoadErr(); err != nil && needsDatabase(cmd) {
		return fmt.Errorf("database unavailable: %w", err)
	}

	switch cmd {
	case "list":
		return a.list()
	case "show":
		return a.show(args)
	case "create":
		return a.create(ctx, args)
	case "login":
		return a.login(ctx, args)
	case "reset":
		return a.reset(ctx, args)
	case "passwd":
		return a.passwd(ctx, args)
	case "whoami":
		return a.whoami(args)
	case "delete":
		return a.delete(ctx, args)
	case "backup":
		return a.backup(ctx)
	case "reset-db":
		return a.resetDB(ctx, args)
	case "version":
		buildinfo.PrintBuildData(a.out)
		return nil
	case "", "help":
		fmt.Fprint(a.out, usage)
		return nil
	default:
		fmt.Fprint(a.out, usage)
		return fmt.Errorf("%w: unknown command %q", ErrUsage, cmd)
	}
}

// needsDatabase reports whether cmd reads the loaded users. reset-db and
// backup must work on a database that failed to load.
func needsDatabase(cmd string) bool {
	switch cmd {
	case "reset-db", "backup", "version", "", "help":
		return false
	}
	return true
}

func (a *App) flagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

// keyFlags registers the lookup keys shared by show and delete.
type keyFlags struct {
	id, email, token, jwt string
}

func (k *keyFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&k.id, "id", "", "user id")
	fs.StringVar(&k.email, "email", "", "email")
	fs.StringVar(&k.token, "token", "", "auth token")
	fs.StringVar(&k.jwt, "jwt", "", "auth JWT token")
}

func (k *keyFlags) count() int {
	n := 0
	for _, v := range []string{k.id, k.email, k.token, k.jwt} {
		if v != "" {
			n++
		}
	}
	return n
}

func (a *App) list() error {
	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tEMAIL\tWHITELIST\tRESET PENDING")
	for _, r := range a.users.List() {
		fmt.Fprintf(tw, "%s\t%s\t%v\t%t\n", r.ID, r.Email, r.ClientIPAddressWhiteList, r.ResetPending())
	}
	return tw.Flush()
}

func (a *App) show(args []string) error {
	var k keyFlags
	fs := a.flagSet("show")
	k.register(fs)
	if err := fs.Parse(args); err != nil || k.count() != 1 {
		return fmt.Errorf("%w: show needs exactly one of -id, -email, -token, -jwt", ErrUsage)
	}

	var (
		r  users.UserRecord
		ok bool
	)
	switch {
	case k.id != "":
		r, ok = a.users.GetByID(k.id)
	case k.email != "":
		r, ok = a.users.GetByEmail(k.email)
	case k.token != "":
		r, ok = a.users.GetByAuthToken(k.token)
	default:
		r, ok = a.users.GetByAuthJwtToken(k.jwt)
	}
	if !ok {
		return common.ErrorNotFound
	}
	return a.printRecord(r)
}

func (a *App) printRecord(r users.UserRecord) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

func (a *App) create(ctx context.Context, args []string) error {
	fs := a.flagSet("create")
	email := fs.String("email", "", "email")
	ips := fs.String("ip", "", "comma separated client IP white list")
	if err := fs.Parse(args); err != nil || *email == "" {
		return fmt.Errorf("%w: create -email <email> [-ip a,b]", ErrUsage)
	}

	password, err := GetPassword("Enter password", a.out)
	if err != nil {
		return err
	}
	confirm, err := GetPassword("Repeat password", a.out)
	if err != nil {
		return err
	}
	if password != confirm {
		return fmt.Errorf("%w: passwords do not match", common.ErrorValidation)
	}

	r, err := a.accounts.Register(ctx, *email, password, splitList(*ips))
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Created user %s\n", r.ID)
	return a.printSession(r)
}

func (a *App) login(ctx context.Context, args []string) error {
	fs := a.flagSet("login")
	email := fs.String("email", "", "email")
	ip := fs.String("ip", "", "client IP address")
	if err := fs.Parse(args); err != nil || *email == "" {
		return fmt.Errorf("%w: login -email <email> [-ip addr]", ErrUsage)
	}

	password, err := GetPassword("Enter password", a.out)
	if err != nil {
		return err
	}

	r, err := a.accounts.Login(ctx, *email, password, *ip)
	if err != nil {
		return err
	}
	return a.printSession(r)
}

func (a *App) printSession(r users.UserRecord) error {
	_, err := fmt.Fprintf(a.out, "authToken: %s\nauthJwtToken: %s\n", r.AuthToken, r.AuthJwtToken)
	return err
}

func (a *App) reset(ctx context.Context, args []string) error {
	fs := a.flagSet("reset")
	email := fs.String("email", "", "email")
	if err := fs.Parse(args); err != nil || *email == "" {
		return fmt.Errorf("%w: reset -email <email>", ErrUsage)
	}

	r, err := a.accounts.RequestReset(ctx, *email)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(a.out, "passwordResetToken: %s\npasswordResetJwtToken: %s\n",
		r.PasswordResetToken, r.PasswordResetJwtToken)
	return err
}

func (a *App) passwd(ctx context.Context, args []string) error {
	fs := a.flagSet("passwd")
	token := fs.String("token", "", "password reset token")
	if err := fs.Parse(args); err != nil || *token == "" {
		return fmt.Errorf("%w: passwd -token <reset token>", ErrUsage)
	}

	password, err := GetPassword("Enter new password", a.out)
	if err != nil {
		return err
	}

	r, err := a.accounts.ChangePassword(ctx, *token, password)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Password changed for %s\n", r.Email)
	return nil
}

func (a *App) whoami(args []string) error {
	fs := a.flagSet("whoami")
	jwtToken := fs.String("jwt", "", "auth JWT token")
	if err := fs.Parse(args); err != nil || *jwtToken == "" {
		return fmt.Errorf("%w: whoami -jwt <auth JWT token>", ErrUsage)
	}

	r, err := a.accounts.Authenticate(*jwtToken)
	if err != nil {
		return err
	}
	return a.printRecord(r)
}

func (a *App) delete(ctx context.Context, args []string) error {
	var k keyFlags
	fs := a.flagSet("delete")
	k.register(fs)
	if err := fs.Parse(args); err != nil || k.count() != 1 {
		return fmt.Errorf("%w: delete needs exactly one of -id, -email, -token, -jwt", ErrUsage)
	}

	var (
		removed bool
		err     error
	)
	switch {
	case k.id != "":
		removed, err = a.users.DeleteByID(ctx, k.id)
	case k.email != "":
		removed, err = a.users.DeleteByEmail(ctx, k.email)
	case k.token != "":
		removed, err = a.users.DeleteByAuthToken(ctx, k.token)
	default:
		removed, err = a.users.DeleteByAuthJwtToken(ctx, k.jwt)
	}
	if err != nil {
		return err
	}

	if !removed {
		fmt.Fprintln(a.out, "No such user")
		return nil
	}
	fmt.Fprintln(a.out, "User deleted")
	return nil
}

func (a *App) backup(ctx context.Context) error {
	key, err := a.archiver.Backup(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Uploaded s3://%s/%s\n", a.config.S3Bucket, key)
	return nil
}

func (a *App) resetDB(ctx context.Context, args []string) error {
	fs := a.flagSet("reset-db")
	yes := fs.Bool("yes", false, "do not ask for confirmation")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: reset-db [-yes]", ErrUsage)
	}

	if !*yes {
		answer, err := GetSimpleText(a.reader, fmt.Sprintf("Delete every user in %s? Type 'yes' to confirm", a.config.DatabasePath()), a.out)
		if err != nil {
			return err
		}
		if answer != "yes" {
			fmt.Fprintln(a.out, "Aborted")
			return nil
		}
	}

	if err := a.users.Reset(ctx); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Database reset")
	return nil
}
