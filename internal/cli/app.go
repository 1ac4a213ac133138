package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"

	"github.com/dmitrijs2005/userdir/internal/logging"
	"github.com/dmitrijs2005/userdir/internal/server/auth"
	"github.com/dmitrijs2005/userdir/internal/server/backup"
	"github.com/dmitrijs2005/userdir/internal/server/config"
	"github.com/dmitrijs2005/userdir/internal/server/filedb"
	"github.com/dmitrijs2005/userdir/internal/server/users"
)

type App struct {
	config   *config.Config
	logger   logging.Logger
	users    *users.Service
	accounts *users.Accounts
	archiver *backup.Archiver
	reader   *bufio.Reader
	out      io.Writer
}

// NewApp opens the database described by c. Command output goes to out, log
// records to logw.
func NewApp(ctx context.Context, c *config.Config, in io.Reader, out, logw io.Writer) (*App, error) {

	logger := logging.New(c.LogLevel, logw)

	db, err := filedb.New[users.UserRecord](c.DatabasePath(),
		filedb.WithPolling(c.PollInterval, c.PollAttempts),
		filedb.WithLogger(logger),
	)
	if err != nil {
		return nil, fmt.Errorf("error initializing database: %w", err)
	}

	us := users.NewService(ctx, db, logger)

	tokens := auth.NewIssuer(c.SecretKey, c.AuthTokenValidityDuration, c.ResetTokenValidityDuration)

	return &App{
		config:   c,
		logger:   logger,
		users:    us,
		accounts: users.NewAccounts(us, tokens),
		archiver: backup.NewArchiver(c, db, logger),
		reader:   bufio.NewReader(in),
		out:      out,
	}, nil
}
