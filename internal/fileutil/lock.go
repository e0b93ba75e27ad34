package fileutil

import (
	"fmt"
	"os"
	"path/filepath"
)

// lockFilePermissions is the permission mode for lock files.
const lockFilePermissions = 0o600

// Lock takes an exclusive advisory lock on path, creating the file and its
// parent directory when needed. It blocks until the lock is granted. The
// returned function releases it.
func Lock(path string) (func(), error) {
	if path == "" {
		return nil, ErrEmptyPath
	}
	if err := os.MkdirAll(filepath.Dir(path), DirPermissions); err != nil {
		return nil, fmt.Errorf("creating directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, lockFilePermissions) //nolint:gosec // G304: path is derived from the store location
	if err != nil {
		return nil, fmt.Errorf("opening lock file: %w", err)
	}
	if err := lockFile(f); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("locking %s: %w", path, err)
	}

	return func() {
		_ = unlockFile(f)
		_ = f.Close()
	}, nil
}
