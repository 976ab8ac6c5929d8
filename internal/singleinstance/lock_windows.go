//go:build windows

package singleinstance

import (
	"errors"
	"fmt"

	"golang.org/x/sys/windows"

	"winlock/internal/userutil"
)

// Lock holds a named mutex handle. The kernel releases the mutex when the
// owning process terminates, so a crashed controller never blocks the next one.
type Lock struct {
	handle windows.Handle
}

// TryLock acquires the named mutex or reports ErrAlreadyRunning.
func TryLock(name string) (*Lock, error) {
	if name == "" {
		return nil, errors.New("mutex name is required")
	}
	nameUTF16, err := windows.UTF16PtrFromString(name)
	if err != nil {
		return nil, fmt.Errorf("invalid mutex name %q: %w", name, err)
	}
	h, err := windows.CreateMutex(nil, true, nameUTF16)
	if err == windows.ERROR_ALREADY_EXISTS {
		if h != 0 {
			windows.CloseHandle(h)
		}
		return nil, ErrAlreadyRunning
	}
	if err != nil {
		if h != 0 {
			windows.CloseHandle(h)
		}
		return nil, fmt.Errorf("CreateMutex %q: %w", name, err)
	}
	return &Lock{handle: h}, nil
}

// Release closes the mutex handle. Safe to call on nil receiver and idempotent.
func (l *Lock) Release() error {
	if l == nil || l.handle == 0 {
		return nil
	}
	err := windows.CloseHandle(l.handle)
	l.handle = 0
	return err
}

// DefaultName returns the per-session mutex name. The override flag lives in
// HKCU, so the scope is the logged-on user, not the machine.
func DefaultName() string {
	return `Local\winlock-` + userutil.CurrentUsername()
}
