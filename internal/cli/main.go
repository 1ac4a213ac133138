package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/dmitrijs2005/userdir/internal/flagx"
	"github.com/dmitrijs2005/userdir/internal/server/config"
)

// Main runs userdb with args (without the program name) and returns the
// process exit code: 0 on success, 2 on usage errors, 1 otherwise.
func Main(ctx context.Context, args []string, in io.Reader, out, errw io.Writer) int {
	global, cmd, rest := flagx.SplitCommand(args, config.Flags)

	cfg, err := config.Load(global)
	if err != nil {
		fmt.Fprintf(errw, "config: %v\n", err)
		return 2
	}

	app, err := NewApp(ctx, cfg, in, out, errw)
	if err != nil {
		fmt.Fprintf(errw, "%v\n", err)
		return 1
	}

	if err := app.Run(ctx, cmd, rest); err != nil {
		fmt.Fprintf(errw, "%s: %v\n", cmd, err)
		if errors.Is(err, ErrUsage) {
			return 2
		}
		return 1
	}
	return 0
}
