//go:build !windows

package hotkeys

import (
	"errors"
	"testing"
)

func TestRegisterUnsupported(t *testing.T) {
	b, err := ParseBinding("Ctrl+Win+J")
	if err != nil {
		t.Fatalf("ParseBinding() error = %v", err)
	}
	reg, err := NewManager().Register(b)
	if !errors.Is(err, ErrUnsupported) {
		t.Fatalf("Register() error = %v, want ErrUnsupported", err)
	}
	if reg != nil {
		t.Fatal("Register() returned a registration on an unsupported platform")
	}
}
