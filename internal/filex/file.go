// Package filex holds the small file-system helpers used by the file
// database.
package filex

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// HiddenPrefix marks the transient name a file carries while it is rewritten.
const HiddenPrefix = "__"

// EnsureDir creates dir (and parents) if it does not exist yet. An empty dir
// means the working directory and is a no-op.
func EnsureDir(dir string) error {
	if dir == "" || dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0o770); err != nil {
		return fmt.Errorf("mkdir %s: %w", dir, err)
	}
	return nil
}

// Exists reports whether path names an existing file system entry.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// RemoveIfExists deletes path, treating a missing file as success.
func RemoveIfExists(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// HiddenName returns the sibling of path prefixed with HiddenPrefix,
// e.g. "db/usersDB.json" -> "db/__usersDB.json".
func HiddenName(path string) string {
	dir, base := filepath.Split(path)
	return filepath.Join(dir, HiddenPrefix+base)
}
