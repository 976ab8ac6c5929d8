// Package override owns the persisted flag that suppresses the operating
// system's native lock-session shortcut.
//
// The flag outlives the process on purpose: a controller that is killed
// without running its shutdown path leaves the override in place until a
// later Enable call reverses it.
package override

import (
	"errors"
	"fmt"
)

var (
	// ErrPersistence is wrapped by every read or write failure.
	ErrPersistence = errors.New("lock override persistence failed")

	// ErrUnsupported reports that this platform has no lock override setting.
	ErrUnsupported = errors.New("lock override is not supported on this platform")
)

// Store reads and writes the override flag.
//
// Disable makes the override Active (native shortcut suppressed). Enable makes
// it Inactive (native shortcut restored). Both are idempotent.
type Store interface {
	Disable() error
	Enable() error
	IsActive() (bool, error)
}

// State names the persisted value for logs and journal rows.
func State(active bool) string {
	if active {
		return "active"
	}
	return "inactive"
}

func persistenceError(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrPersistence, op, err)
}
