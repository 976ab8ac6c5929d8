//go:build !windows && !linux

package sessionlock

// New returns a locker that always fails with ErrUnsupported.
func New() Locker {
	return LockerFunc(func() error { return ErrUnsupported })
}
