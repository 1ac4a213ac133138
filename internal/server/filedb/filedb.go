// Package filedb keeps a list of records as a single JSON array on disk.
//
// The whole list is rewritten on every save. While a save is in progress the
// live file is renamed to a sibling prefixed with "__" (see filex.HiddenName),
// so a reader that finds the live path missing waits for it to come back
// instead of reading a half-written file. The rename is advisory only: it
// keeps readers off partial content but does not serialize two writers.
package filedb

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dmitrijs2005/userdir/internal/common"
	"github.com/dmitrijs2005/userdir/internal/filex"
	"github.com/dmitrijs2005/userdir/internal/logging"
)

const (
	DefaultPollInterval = 100 * time.Millisecond
	DefaultPollAttempts = 20
)

// Option configures a DB.
type Option func(*options)

type options struct {
	interval time.Duration
	attempts int
	logger   logging.Logger
}

// WithPolling sets how often and how many times the database waits for its
// file to exist. Non-positive values keep the defaults.
func WithPolling(interval time.Duration, attempts int) Option {
	return func(o *options) {
		if interval > 0 {
			o.interval = interval
		}
		if attempts > 0 {
			o.attempts = attempts
		}
	}
}

// WithLogger sets the logger used for non-fatal failures.
func WithLogger(l logging.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// DB is a JSON file database holding records of type T.
type DB[T any] struct {
	path       string
	hiddenPath string
	poller     poller
	logger     logging.Logger
}

// New opens the database at path, preparing the file system:
//   - the parent directory is created if missing;
//   - a stray hidden file without a live file is removed (crash mid-write);
//   - an empty live file is created if none exists.
func New[T any](path string, opts ...Option) (*DB[T], error) {
	o := options{
		interval: DefaultPollInterval,
		attempts: DefaultPollAttempts,
		logger:   logging.Nop(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	db := &DB[T]{
		path:       path,
		hiddenPath: filex.HiddenName(path),
		poller:     poller{interval: o.interval, attempts: o.attempts},
		logger:     o.logger.With("module", "filedb", "path", path),
	}

	if err := db.init(); err != nil {
		return nil, err
	}
	return db, nil
}

// Path returns the live file path.
func (d *DB[T]) Path() string { return d.path }

func (d *DB[T]) init() error {
	if err := filex.EnsureDir(filepath.Dir(d.path)); err != nil {
		return fmt.Errorf("%w: %w", common.ErrIO, err)
	}

	if !fileExists(d.path) && fileExists(d.hiddenPath) {
		d.logger.Warn(context.Background(), "removing stray hidden database file", "hidden_path", d.hiddenPath)
		if err := filex.RemoveIfExists(d.hiddenPath); err != nil {
			return fmt.Errorf("%w: remove %s: %w", common.ErrIO, d.hiddenPath, err)
		}
	}

	if !fileExists(d.path) {
		d.logger.Warn(context.Background(), "database does not exist, creating it")
		if err := os.WriteFile(d.path, nil, 0o600); err != nil {
			return fmt.Errorf("%w: create %s: %w", common.ErrIO, d.path, err)
		}
	}
	return nil
}

// ReadRaw returns the current file content once the live file is present.
//
// It fails with common.ErrNotInitialized if neither the live nor the hidden
// file exists, and with common.ErrFileUnavailable if the live file does not
// reappear within the polling budget.
func (d *DB[T]) ReadRaw(ctx context.Context) ([]byte, error) {
	if !fileExists(d.path) && !fileExists(d.hiddenPath) {
		return nil, fmt.Errorf("%w: %s", common.ErrNotInitialized, d.path)
	}

	if err := d.poller.wait(ctx, d.path); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(d.path)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %w", common.ErrIO, d.path, err)
	}
	return data, nil
}

// Load reads and decodes every record. An empty file yields no records.
func (d *DB[T]) Load(ctx context.Context) ([]T, error) {
	data, err := d.ReadRaw(ctx)
	if err != nil {
		return nil, err
	}

	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}

	var records []T
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", common.ErrDecode, d.path, err)
	}
	return records, nil
}

// Save replaces the file content with records.
//
// The live file is moved to its hidden name, written, and moved back. The
// move back runs whatever happened in between, so a failed write never leaves
// the database under the hidden name.
func (d *DB[T]) Save(ctx context.Context, records []T) (err error) {
	if records == nil {
		records = []T{}
	}

	data, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("%w: encode %s: %w", common.ErrDecode, d.path, err)
	}

	if err := d.poller.wait(ctx, d.path, d.hiddenPath); err != nil {
		return err
	}

	if fileExists(d.path) {
		if err := os.Rename(d.path, d.hiddenPath); err != nil {
			return fmt.Errorf("%w: rename %s: %w", common.ErrIO, d.path, err)
		}
	}

	defer func() {
		if !fileExists(d.hiddenPath) {
			return
		}
		if rerr := os.Rename(d.hiddenPath, d.path); rerr != nil {
			d.logger.Error(ctx, "failed to restore database file", "error", rerr)
			err = errors.Join(err, fmt.Errorf("%w: restore %s: %w", common.ErrIO, d.path, rerr))
		}
	}()

	if err := writeFile(d.hiddenPath, data, 0o600); err != nil {
		d.logger.Error(ctx, "failed to write database file", "error", err)
		return fmt.Errorf("%w: write %s: %w", common.ErrIO, d.hiddenPath, err)
	}

	d.logger.Debug(ctx, "database saved", "records", len(records))
	return nil
}

// Drop deletes both files and re-creates an empty live file.
func (d *DB[T]) Drop() error {
	if err := filex.RemoveIfExists(d.path); err != nil {
		return fmt.Errorf("%w: remove %s: %w", common.ErrIO, d.path, err)
	}
	if err := filex.RemoveIfExists(d.hiddenPath); err != nil {
		return fmt.Errorf("%w: remove %s: %w", common.ErrIO, d.hiddenPath, err)
	}
	return d.init()
}
