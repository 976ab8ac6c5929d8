package lockctl

import (
	"errors"
	"fmt"
)

// Process exit codes.
const (
	ExitOK                       = 0
	ExitStartupFailure           = 1
	ExitCleanupFailure           = 2
	ExitStartupAndCleanupFailure = 3
)

// Result is the outcome of one Run.
type Result struct {
	// Startup is the error that aborted startup, if any.
	Startup error
	// Cleanup joins every failed shutdown step.
	Cleanup error
}

// ExitCode maps the result to a process exit code.
func (r Result) ExitCode() int {
	switch {
	case r.Startup != nil && r.Cleanup != nil:
		return ExitStartupAndCleanupFailure
	case r.Startup != nil:
		return ExitStartupFailure
	case r.Cleanup != nil:
		return ExitCleanupFailure
	default:
		return ExitOK
	}
}

// Err returns a single diagnostic covering both phases, or nil.
func (r Result) Err() error {
	var errs []error
	if r.Startup != nil {
		errs = append(errs, fmt.Errorf("startup failed: %w", r.Startup))
	}
	if r.Cleanup != nil {
		errs = append(errs, fmt.Errorf("cleanup incomplete: %w", r.Cleanup))
	}
	return errors.Join(errs...)
}
