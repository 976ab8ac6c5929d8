// Package singleinstance keeps one resident controller per user: a second
// controller for the same user would fight the first over the override flag.
package singleinstance

import "errors"

// ErrAlreadyRunning is returned by TryLock when another instance holds the lock.
var ErrAlreadyRunning = errors.New("another winlock controller is already running for this user")
