//go:build !windows

package hotkeys

import (
	"fmt"
	"log/slog"
)

// Registration is never produced on this platform; it exists so callers
// compile against the same API everywhere.
type Registration struct {
	binding   Binding
	triggered chan struct{}
}

// Binding returns the registered combination.
func (r *Registration) Binding() Binding { return r.binding }

// Triggered never delivers on this platform.
func (r *Registration) Triggered() <-chan struct{} { return r.triggered }

// Unregister is a no-op on this platform.
func (r *Registration) Unregister() error { return nil }

// Manager validates bindings but cannot register them outside Windows.
type Manager struct{}

// NewManager creates a new hotkey manager.
func NewManager() *Manager {
	return &Manager{}
}

// Register validates b and reports ErrUnsupported.
func (m *Manager) Register(b Binding) (*Registration, error) {
	if err := b.validate(); err != nil {
		return nil, err
	}
	slog.Warn("[hotkey] global hotkeys are not supported on this platform", "binding", b.Normalized())
	return nil, fmt.Errorf("register hotkey %q: %w", b.Normalized(), ErrUnsupported)
}

// ActiveBinding always returns "" on this platform.
func (m *Manager) ActiveBinding() string { return "" }
