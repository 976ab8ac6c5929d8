//go:build !windows

package singleinstance

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofrs/flock"

	"winlock/internal/userutil"
)

// Lock holds an advisory file lock. The kernel drops it when the process
// exits.
type Lock struct {
	fl *flock.Flock
}

// TryLock takes an exclusive lock on the file at name or reports
// ErrAlreadyRunning.
func TryLock(name string) (*Lock, error) {
	if strings.TrimSpace(name) == "" {
		return nil, errors.New("lock file path is required")
	}
	if err := os.MkdirAll(filepath.Dir(name), 0o700); err != nil {
		return nil, fmt.Errorf("create lock directory: %w", err)
	}
	fl := flock.New(name)
	locked, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("lock %q: %w", name, err)
	}
	if !locked {
		return nil, ErrAlreadyRunning
	}
	return &Lock{fl: fl}, nil
}

// Release unlocks the file. Safe to call on nil receiver and idempotent.
func (l *Lock) Release() error {
	if l == nil || l.fl == nil {
		return nil
	}
	err := l.fl.Unlock()
	l.fl = nil
	return err
}

// DefaultName returns the per-user lock file path.
func DefaultName() string {
	dir := strings.TrimSpace(os.Getenv("XDG_RUNTIME_DIR"))
	if dir == "" {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "winlock-"+userutil.CurrentUsername()+".lock")
}
