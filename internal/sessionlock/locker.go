// Package sessionlock invokes the operating system's session-lock primitive.
package sessionlock

import "errors"

// ErrUnsupported reports that this platform has no session-lock primitive
// this package knows how to call.
var ErrUnsupported = errors.New("session lock is not supported on this platform")

// Locker locks the interactive session.
type Locker interface {
	Lock() error
}

// LockerFunc adapts a function to Locker.
type LockerFunc func() error

// Lock calls f.
func (f LockerFunc) Lock() error { return f() }
