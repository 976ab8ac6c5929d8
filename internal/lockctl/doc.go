// Package lockctl runs the lock-shortcut controller: it applies the native
// shortcut override, holds at most one alternate hotkey registration, reacts
// to that hotkey by locking the session, and unwinds both on shutdown.
//
// All state lives on the goroutine that calls Run. Everything else (signal
// handlers, the control channel, the hotkey message pump) only posts events
// into it.
package lockctl
