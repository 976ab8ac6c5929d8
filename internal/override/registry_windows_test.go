//go:build windows

package override

import (
	"fmt"
	"os"
	"testing"

	"golang.org/x/sys/windows/registry"
)

// newTestRegistryStore points the store at a scratch key so tests never touch
// the real lock policy.
func newTestRegistryStore(t *testing.T) *RegistryStore {
	t.Helper()
	keyPath := fmt.Sprintf(`Software\winlock-test-%d`, os.Getpid())
	t.Cleanup(func() {
		if err := registry.DeleteKey(registry.CURRENT_USER, keyPath); err != nil {
			t.Logf("cleanup: delete %s: %v", keyPath, err)
		}
	})
	return &RegistryStore{
		root:      registry.CURRENT_USER,
		keyPath:   keyPath,
		valueName: disableLockValueName,
	}
}

func TestRegistryStoreMissingKeyIsInactive(t *testing.T) {
	store := &RegistryStore{
		root:      registry.CURRENT_USER,
		keyPath:   `Software\winlock-test-does-not-exist`,
		valueName: disableLockValueName,
	}
	active, err := store.IsActive()
	if err != nil {
		t.Fatalf("IsActive() error = %v", err)
	}
	if active {
		t.Fatal("IsActive() = true for a missing key")
	}
}

func TestRegistryStoreRoundTrip(t *testing.T) {
	store := newTestRegistryStore(t)

	for range 2 {
		if err := store.Disable(); err != nil {
			t.Fatalf("Disable() error = %v", err)
		}
		active, err := store.IsActive()
		if err != nil || !active {
			t.Fatalf("IsActive() after Disable = %v, %v", active, err)
		}
	}

	for range 2 {
		if err := store.Enable(); err != nil {
			t.Fatalf("Enable() error = %v", err)
		}
		active, err := store.IsActive()
		if err != nil || active {
			t.Fatalf("IsActive() after Enable = %v, %v", active, err)
		}
	}
}

func TestRegistryStoreLocation(t *testing.T) {
	got := NewRegistryStore().Location()
	want := `HKCU\Software\Microsoft\Windows\CurrentVersion\Policies\System\DisableLockWorkstation`
	if got != want {
		t.Fatalf("Location() = %q, want %q", got, want)
	}
}
