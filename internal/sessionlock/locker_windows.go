//go:build windows

package sessionlock

import (
	"errors"
	"fmt"
	"syscall"

	"golang.org/x/sys/windows"
)

var procLockWorkStation = windows.NewLazySystemDLL("user32.dll").NewProc("LockWorkStation")

type workstationLocker struct{}

// New returns the LockWorkStation-backed locker.
func New() Locker { return workstationLocker{} }

// Lock requests a workstation lock. Success means the request was accepted;
// Windows refuses silently while the DisableLockWorkstation policy is set.
func (workstationLocker) Lock() error {
	if err := procLockWorkStation.Find(); err != nil {
		return fmt.Errorf("LockWorkStation unavailable: %w", err)
	}
	res, _, err := procLockWorkStation.Call()
	if res != 0 {
		return nil
	}
	if err == syscall.Errno(0) {
		return errors.New("LockWorkStation failed")
	}
	return fmt.Errorf("LockWorkStation: %w", err)
}
