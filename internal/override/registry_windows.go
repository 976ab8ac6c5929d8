//go:build windows

package override

import (
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sys/windows/registry"
)

const (
	// policyKeyPath holds per-user system policies under HKEY_CURRENT_USER.
	policyKeyPath = `Software\Microsoft\Windows\CurrentVersion\Policies\System`
	// disableLockValueName is a REG_DWORD: 1 disables workstation locking
	// (including the native shortcut), 0 or absent leaves it enabled.
	disableLockValueName = "DisableLockWorkstation"
)

// RegistryStore persists the override in the Windows registry.
type RegistryStore struct {
	root      registry.Key
	keyPath   string
	valueName string
}

// NewRegistryStore returns the store for the current user's lock policy.
func NewRegistryStore() *RegistryStore {
	return &RegistryStore{
		root:      registry.CURRENT_USER,
		keyPath:   policyKeyPath,
		valueName: disableLockValueName,
	}
}

// NewSystemStore returns the platform's override store.
func NewSystemStore() Store {
	return NewRegistryStore()
}

// Location describes where the flag lives.
func (s *RegistryStore) Location() string {
	return fmt.Sprintf(`HKCU\%s\%s`, s.keyPath, s.valueName)
}

// Disable writes 1. Already 1 is a no-op.
func (s *RegistryStore) Disable() error { return s.write(1) }

// Enable writes 0. Already 0 or absent is a no-op.
func (s *RegistryStore) Enable() error { return s.write(0) }

// IsActive reports whether the value is set to a non-zero DWORD.
func (s *RegistryStore) IsActive() (bool, error) {
	key, err := registry.OpenKey(s.root, s.keyPath, registry.QUERY_VALUE)
	if err != nil {
		if errors.Is(err, registry.ErrNotExist) {
			return false, nil
		}
		return false, persistenceError("open "+s.keyPath, err)
	}
	defer key.Close()

	value, err := readDWord(key, s.valueName)
	if err != nil {
		return false, persistenceError("read "+s.valueName, err)
	}
	return value != 0, nil
}

func (s *RegistryStore) write(value uint32) error {
	// Read and write through a single handle so the no-op check and the
	// update observe the same key.
	key, _, err := registry.CreateKey(s.root, s.keyPath, registry.QUERY_VALUE|registry.SET_VALUE)
	if err != nil {
		return persistenceError("open "+s.keyPath+" for write", err)
	}
	defer key.Close()

	current, err := readDWord(key, s.valueName)
	if err != nil {
		return persistenceError("read "+s.valueName, err)
	}
	if current == value {
		slog.Debug("[override] registry already at target", "value", value, "location", s.Location())
		return nil
	}
	if err := key.SetDWordValue(s.valueName, value); err != nil {
		return persistenceError("write "+s.valueName, err)
	}
	slog.Debug("[override] registry updated", "from", current, "to", value, "location", s.Location())
	return nil
}

// readDWord treats a missing value as 0.
func readDWord(key registry.Key, name string) (uint32, error) {
	value, valueType, err := key.GetIntegerValue(name)
	if err != nil {
		if errors.Is(err, registry.ErrNotExist) {
			return 0, nil
		}
		return 0, err
	}
	if valueType != registry.DWORD {
		return 0, fmt.Errorf("unexpected value type %d for %s", valueType, name)
	}
	return uint32(value), nil
}
