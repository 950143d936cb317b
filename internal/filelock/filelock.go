// Package filelock serializes writers of the task directory across
// goroutines and processes with an advisory lock file.
package filelock

import (
	"fmt"
	"os"
	"path/filepath"
)

const lockFileMode = 0o600

// Name is the lock file created inside a guarded directory. It does not end
// in .md, so task readers and the directory watcher skip it.
const Name = ".taskboard.lock"

// PathFor returns the lock file path guarding dir.
func PathFor(dir string) string {
	return filepath.Join(dir, Name)
}

// Lock acquires an exclusive advisory lock on the file at path, creating it
// if it does not exist. The returned function releases the lock.
//
// Every call opens its own descriptor, so goroutines of one process exclude
// each other the same way separate processes do.
func Lock(path string) (unlock func() error, err error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, lockFileMode) //nolint:gosec // lock file path from trusted source
	if err != nil {
		return nil, err
	}

	if err := lockFile(f); err != nil {
		_ = f.Close()
		return nil, err
	}

	return func() error {
		unlockErr := unlockFile(f)
		closeErr := f.Close()
		if unlockErr != nil {
			return unlockErr
		}
		return closeErr
	}, nil
}

// Do runs fn while holding the lock at path.
func Do(path string, fn func() error) (err error) {
	unlock, err := Lock(path)
	if err != nil {
		return fmt.Errorf("acquiring lock: %w", err)
	}
	defer func() {
		if uerr := unlock(); uerr != nil && err == nil {
			err = fmt.Errorf("releasing lock: %w", uerr)
		}
	}()
	return fn()
}
