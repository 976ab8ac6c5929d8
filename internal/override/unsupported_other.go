//go:build !windows

package override

// disableLockValueName keeps MemoryStore keyed like the Windows registry value.
const disableLockValueName = "DisableLockWorkstation"

type unsupportedStore struct{}

// NewSystemStore returns a store that fails every operation: this platform
// has no persisted lock-shortcut policy.
func NewSystemStore() Store {
	return unsupportedStore{}
}

func (unsupportedStore) Disable() error { return persistenceError("disable", ErrUnsupported) }

func (unsupportedStore) Enable() error { return persistenceError("enable", ErrUnsupported) }

func (unsupportedStore) IsActive() (bool, error) {
	return false, persistenceError("read", ErrUnsupported)
}
