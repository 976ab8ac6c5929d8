//go:build windows

package hotkeys

import (
	"errors"
	"testing"
	"unsafe"
)

// testBinding uses an unlikely combination to avoid clashing with the desktop.
func testBinding(t *testing.T) Binding {
	t.Helper()
	b, err := ParseBinding("Ctrl+Alt+Shift+Win+F23")
	if err != nil {
		t.Fatalf("ParseBinding() error = %v", err)
	}
	return b
}

func TestRegisterConflict(t *testing.T) {
	first := NewManager()
	reg, err := first.Register(testBinding(t))
	if err != nil {
		t.Skipf("hotkey registration unavailable in this session: %v", err)
	}
	defer reg.Unregister()

	second := NewManager()
	dup, err := second.Register(testBinding(t))
	if !errors.Is(err, ErrCombinationUnavailable) {
		if dup != nil {
			dup.Unregister()
		}
		t.Fatalf("second Register() error = %v, want ErrCombinationUnavailable", err)
	}
	if got := first.ActiveBinding(); got != "Ctrl+Alt+Shift+Win+F23" {
		t.Fatalf("first.ActiveBinding() = %q after conflict", got)
	}
}

func TestRegisterOncePerManager(t *testing.T) {
	m := NewManager()
	reg, err := m.Register(testBinding(t))
	if err != nil {
		t.Skipf("hotkey registration unavailable in this session: %v", err)
	}
	defer reg.Unregister()

	other, err := ParseBinding("Ctrl+Alt+Shift+Win+F22")
	if err != nil {
		t.Fatalf("ParseBinding() error = %v", err)
	}
	_, err = m.Register(other)
	if err == nil {
		t.Fatal("second Register() on the same manager should fail")
	}
	if errors.Is(err, ErrCombinationUnavailable) {
		t.Fatalf("different binding error = %v, want a plain one-per-process error", err)
	}

	if _, err := m.Register(testBinding(t)); !errors.Is(err, ErrCombinationUnavailable) {
		t.Fatalf("same binding again: error = %v, want ErrCombinationUnavailable", err)
	}
}

func TestUnregisterIdempotent(t *testing.T) {
	m := NewManager()
	reg, err := m.Register(testBinding(t))
	if err != nil {
		t.Skipf("hotkey registration unavailable in this session: %v", err)
	}
	if err := reg.Unregister(); err != nil {
		t.Fatalf("first Unregister() error = %v", err)
	}
	if err := reg.Unregister(); err != nil {
		t.Fatalf("second Unregister() error = %v, want nil", err)
	}
	if got := m.ActiveBinding(); got != "" {
		t.Fatalf("ActiveBinding() = %q after Unregister", got)
	}

	again, err := m.Register(testBinding(t))
	if err != nil {
		t.Fatalf("Register() after Unregister error = %v", err)
	}
	again.Unregister()
}

// TestWinMsgSize verifies that the winMsg struct matches the Win32 MSG layout.
func TestWinMsgSize(t *testing.T) {
	// On amd64 (64-bit): 48 bytes. On 386 (32-bit): 28 bytes.
	ptrSize := unsafe.Sizeof(uintptr(0))
	var expectedSize uintptr
	switch ptrSize {
	case 8:
		expectedSize = 48
	case 4:
		expectedSize = 28
	default:
		t.Skipf("unknown pointer size %d", ptrSize)
	}
	if got := unsafe.Sizeof(winMsg{}); got != expectedSize {
		t.Fatalf("unsafe.Sizeof(winMsg{}) = %d, want %d (pointer size=%d)", got, expectedSize, ptrSize)
	}
}
