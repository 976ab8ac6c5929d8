package override

import (
	"errors"
	"testing"
)

func TestMemoryStoreIdempotence(t *testing.T) {
	tests := []struct {
		name       string
		op         func(*MemoryStore) error
		wantActive bool
	}{
		{name: "disable twice", op: (*MemoryStore).Disable, wantActive: true},
		{name: "enable twice", op: (*MemoryStore).Enable, wantActive: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, initial := range []bool{false, true} {
				once := NewMemoryStore(initial)
				twice := NewMemoryStore(initial)

				if err := tt.op(once); err != nil {
					t.Fatalf("first call error = %v", err)
				}
				for range 2 {
					if err := tt.op(twice); err != nil {
						t.Fatalf("repeated call error = %v", err)
					}
				}

				gotOnce, _ := once.IsActive()
				gotTwice, _ := twice.IsActive()
				if gotOnce != tt.wantActive || gotTwice != tt.wantActive {
					t.Fatalf("initial=%v: once=%v twice=%v, want %v", initial, gotOnce, gotTwice, tt.wantActive)
				}
				if once.Writes() != twice.Writes() {
					t.Fatalf("initial=%v: repeated call changed storage again (writes %d vs %d)",
						initial, once.Writes(), twice.Writes())
				}
			}
		})
	}
}

func TestMemoryStoreRoundTrip(t *testing.T) {
	store := NewMemoryStore(false)
	before := store.Snapshot()

	if err := store.Disable(); err != nil {
		t.Fatalf("Disable() error = %v", err)
	}
	if active, _ := store.IsActive(); !active {
		t.Fatal("IsActive() after Disable = false")
	}
	if err := store.Enable(); err != nil {
		t.Fatalf("Enable() error = %v", err)
	}

	if active, _ := store.IsActive(); active {
		t.Fatal("IsActive() after Enable = true")
	}
	after := store.Snapshot()
	if before["DisableLockWorkstation"] != after["DisableLockWorkstation"] {
		t.Fatalf("round trip changed the stored value: before=%v after=%v", before, after)
	}
}

func TestMemoryStoreFailures(t *testing.T) {
	cause := errors.New("access denied")

	store := NewMemoryStore(false)
	store.WriteErr = cause
	err := store.Disable()
	if !errors.Is(err, ErrPersistence) || !errors.Is(err, cause) {
		t.Fatalf("Disable() error = %v, want ErrPersistence wrapping cause", err)
	}
	if active, _ := store.IsActive(); active {
		t.Fatal("failed Disable() must not change the flag")
	}

	store.WriteErr = nil
	store.ReadErr = cause
	if _, err := store.IsActive(); !errors.Is(err, ErrPersistence) {
		t.Fatalf("IsActive() error = %v, want ErrPersistence", err)
	}
}

func TestMemoryStoreSnapshotUsesRegistryValueName(t *testing.T) {
	store := NewMemoryStore(false)
	if err := store.Disable(); err != nil {
		t.Fatalf("Disable() error = %v", err)
	}
	snap := store.Snapshot()
	if snap["DisableLockWorkstation"] != 1 {
		t.Fatalf("Snapshot() = %v, want DisableLockWorkstation=1", snap)
	}
}

func TestState(t *testing.T) {
	if State(true) != "active" || State(false) != "inactive" {
		t.Fatalf("State() = %q/%q", State(true), State(false))
	}
}
