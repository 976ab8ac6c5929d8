package hotkeys

import (
	"errors"
	"fmt"
	"strings"
)

// Modifier represents a Win32 hotkey modifier bitmask.
type Modifier uint32

// VKey represents a Win32 virtual-key code.
type VKey uint32

const (
	ModAlt     Modifier = 0x0001
	ModControl Modifier = 0x0002
	ModShift   Modifier = 0x0004
	ModWin     Modifier = 0x0008

	// modNoRepeat suppresses auto-repeat notifications. It is added to every
	// registration and is never part of a user-visible binding.
	modNoRepeat Modifier = 0x4000

	modifierMask = ModAlt | ModControl | ModShift | ModWin

	// maxVKey is the highest assignable virtual-key code (0xFF is reserved).
	maxVKey VKey = 0xFE
)

var (
	// ErrInvalidCombination reports a malformed or under-specified key combination.
	ErrInvalidCombination = errors.New("invalid key combination")

	// ErrCombinationUnavailable reports that the combination is already owned
	// by another registration.
	ErrCombinationUnavailable = errors.New("key combination unavailable")

	// ErrUnsupported reports that global hotkeys are not available on this platform.
	ErrUnsupported = errors.New("global hotkeys are not supported on this platform")
)

// Binding describes a parsed global hotkey.
// Construct only via ParseBinding or NewBinding to guarantee invariant consistency.
type Binding struct {
	modifiers  Modifier
	key        VKey
	normalized string
}

// Modifiers returns the modifier bitmask.
func (b Binding) Modifiers() Modifier { return b.modifiers }

// Key returns the virtual-key code.
func (b Binding) Key() VKey { return b.key }

// Normalized returns the canonical human-readable binding string.
func (b Binding) Normalized() string { return b.normalized }

// String implements fmt.Stringer.
func (b Binding) String() string {
	if b.normalized == "" {
		return fmt.Sprintf("mods=0x%X key=0x%X", uint32(b.modifiers), uint32(b.key))
	}
	return b.normalized
}

// NewBinding builds a binding from an explicit modifier set and virtual-key code.
func NewBinding(mods Modifier, key VKey) (Binding, error) {
	b := Binding{modifiers: mods & modifierMask, key: key}
	if mods&^modifierMask != 0 {
		return Binding{}, fmt.Errorf("%w: unknown modifier bits 0x%X", ErrInvalidCombination, uint32(mods&^modifierMask))
	}
	if err := b.validate(); err != nil {
		return Binding{}, err
	}
	b.normalized = formatBinding(b.modifiers, keyDisplayName(key))
	return b, nil
}

// validate enforces the registration invariant: at least one modifier and a
// key code inside the assignable virtual-key range.
func (b Binding) validate() error {
	if b.modifiers&modifierMask == 0 {
		return fmt.Errorf("%w: at least one modifier is required (key 0x%X)", ErrInvalidCombination, uint32(b.key))
	}
	if b.key == 0 || b.key > maxVKey {
		return fmt.Errorf("%w: key code 0x%X is not a valid virtual key", ErrInvalidCombination, uint32(b.key))
	}
	if isModifierKey(b.key) {
		return fmt.Errorf("%w: key 0x%X is a modifier key", ErrInvalidCombination, uint32(b.key))
	}
	return nil
}

// registrationModifiers returns the modifier flags passed to the OS.
func (b Binding) registrationModifiers() Modifier {
	return b.modifiers | modNoRepeat
}

func formatBinding(mods Modifier, keyName string) string {
	parts := make([]string, 0, 5)
	for _, mod := range []Modifier{ModControl, ModAlt, ModShift, ModWin} {
		if mods&mod != 0 {
			parts = append(parts, normalizeModifierName(mod))
		}
	}
	return strings.Join(append(parts, keyName), "+")
}

func normalizeModifierName(mod Modifier) string {
	switch mod {
	case ModControl:
		return "Ctrl"
	case ModShift:
		return "Shift"
	case ModAlt:
		return "Alt"
	case ModWin:
		return "Win"
	default:
		return "Mod"
	}
}
