package lockctl

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"winlock/internal/override"
	"winlock/internal/sessionlock"
)

// ErrOverrideLifted reports that a lock went through but the override could
// not be reapplied afterwards; the native shortcut is usable again.
var ErrOverrideLifted = errors.New("lock override was lifted and could not be reapplied")

// sleepFn waits for the lock to take effect before the override is reapplied.
// Tests override it.
var sleepFn = time.Sleep

// TriggerLock locks the session. The operating system refuses to lock while
// the override is Active, so an Active override is lifted first and
// reapplied after settle has elapsed, whether or not the lock succeeded.
func TriggerLock(store override.Store, locker sessionlock.Locker, settle time.Duration) error {
	active, err := store.IsActive()
	if err != nil {
		return fmt.Errorf("read lock override: %w", err)
	}
	if !active {
		if err := locker.Lock(); err != nil {
			return fmt.Errorf("lock session: %w", err)
		}
		slog.Info("[lockctl] session locked")
		return nil
	}

	if err := store.Enable(); err != nil {
		return fmt.Errorf("lift lock override: %w", err)
	}
	lockErr := locker.Lock()
	if lockErr != nil {
		lockErr = fmt.Errorf("lock session: %w", lockErr)
	} else {
		slog.Info("[lockctl] session locked", "settle", settle)
		if settle > 0 {
			sleepFn(settle)
		}
	}

	if err := store.Disable(); err != nil {
		slog.Error("[lockctl] failed to reapply lock override after lock", "error", err)
		return errors.Join(lockErr, fmt.Errorf("%w: %w", ErrOverrideLifted, err))
	}
	return lockErr
}
