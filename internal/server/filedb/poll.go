package filedb

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/dmitrijs2005/userdir/internal/common"
	"github.com/dmitrijs2005/userdir/internal/filex"
	"github.com/sethvargo/go-retry"
)

// test seams
var (
	fileExists = filex.Exists
	writeFile  = os.WriteFile
)

var errMissing = errors.New("missing")

// poller waits for one of a set of paths to exist, checking up to attempts
// times with interval between checks.
type poller struct {
	interval time.Duration
	attempts int
}

func (p poller) wait(ctx context.Context, paths ...string) error {
	var attempt int

	backoff := retry.WithMaxRetries(uint64(p.attempts-1), retry.NewConstant(p.interval))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		for _, path := range paths {
			if fileExists(path) {
				return nil
			}
		}
		return retry.RetryableError(errMissing)
	})

	if errors.Is(err, errMissing) {
		return fmt.Errorf("%w: %s unavailable after %d attempts",
			common.ErrFileUnavailable, strings.Join(paths, " or "), attempt)
	}
	return err
}
