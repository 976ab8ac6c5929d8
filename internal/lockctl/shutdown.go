package lockctl

import (
	"errors"
	"fmt"
	"log/slog"
)

// shutdown releases the hotkey and, when asked to and only when this run
// activated it, restores the native shortcut. Every step is attempted even if
// an earlier one fails; the returned error joins all failures.
func (c *Controller) shutdown(reason string) error {
	c.state.Store(int32(StateShuttingDown))
	defer c.state.Store(int32(StateTerminated))
	slog.Info("[lockctl] shutting down", "reason", reason)

	var errs []error
	var done []string

	if c.hotkey != nil {
		name := c.hotkey.Binding().Normalized()
		err := c.hotkey.Unregister()
		c.record("hotkey.unregister", name, err)
		if err != nil {
			slog.Error("[lockctl] failed to unregister hotkey", "binding", name, "error", err)
			errs = append(errs, fmt.Errorf("unregister hotkey %s: %w", name, err))
		} else {
			done = append(done, "hotkey unregistered")
			c.hotkey = nil
		}
	}

	switch {
	case c.opts.Flags.RestoreOnExit && c.overrideHeld:
		if err := c.restoreNative("shutdown"); err != nil {
			slog.Error("[lockctl] failed to restore native lock shortcut", "error", err)
			errs = append(errs, fmt.Errorf("restore native lock shortcut: %w", err))
		} else {
			done = append(done, "native shortcut restored")
		}
	case c.opts.Flags.RestoreOnExit:
		slog.Info("[lockctl] leaving lock override untouched; it was not set by this run")
	}

	err := errors.Join(errs...)
	switch {
	case err == nil:
		slog.Info("[lockctl] shutdown complete", "steps", done)
	case len(done) > 0:
		slog.Warn("[lockctl] shutdown partially complete", "completed", done, "error", err)
	default:
		slog.Error("[lockctl] shutdown failed", "error", err)
	}
	return err
}
