package hotkeys

import (
	"errors"
	"strings"
	"testing"
)

func stubLayout(t *testing.T, table map[rune]VKey) {
	t.Helper()
	original := layoutKeyFn
	layoutKeyFn = func(ch rune) (VKey, bool) {
		vk, ok := table[ch]
		return vk, ok
	}
	t.Cleanup(func() { layoutKeyFn = original })
}

func TestParseBindingSuccess(t *testing.T) {
	stubLayout(t, map[rune]VKey{';': 0xBA, '+': 0xBB})

	tests := []struct {
		name     string
		spec     string
		wantNorm string
		wantMods Modifier
		wantKey  VKey
	}{
		{name: "Ctrl+Shift+F12", spec: "Ctrl+Shift+F12", wantNorm: "Ctrl+Shift+F12", wantMods: ModControl | ModShift, wantKey: vkF1 + 11},
		{name: "Ctrl+Win+J", spec: "Ctrl+Win+J", wantNorm: "Ctrl+Win+J", wantMods: ModControl | ModWin, wantKey: VKey('J')},
		{name: "Meta alias", spec: "Ctrl+Meta+J", wantNorm: "Ctrl+Win+J", wantMods: ModControl | ModWin, wantKey: VKey('J')},
		{name: "Super alias", spec: "Super+A", wantNorm: "Win+A", wantMods: ModWin, wantKey: VKey('A')},
		{name: "Control alias", spec: "Control+A", wantNorm: "Ctrl+A", wantMods: ModControl, wantKey: VKey('A')},
		{name: "canonical modifier order", spec: "Win+Shift+Alt+Ctrl+L", wantNorm: "Ctrl+Alt+Shift+Win+L", wantMods: modifierMask, wantKey: VKey('L')},
		{name: "dedup Ctrl+Ctrl+A", spec: "Ctrl+Ctrl+A", wantNorm: "Ctrl+A", wantMods: ModControl, wantKey: VKey('A')},
		{name: "digit", spec: "Alt+3", wantNorm: "Alt+3", wantMods: ModAlt, wantKey: VKey('3')},
		{name: "backtick", spec: "Ctrl+`", wantNorm: "Ctrl+`", wantMods: ModControl, wantKey: vkOem3},
		{name: "grave alias", spec: "Ctrl+Grave", wantNorm: "Ctrl+`", wantMods: ModControl, wantKey: vkOem3},
		{name: "space", spec: "Ctrl+Space", wantNorm: "Ctrl+Space", wantMods: ModControl, wantKey: vkSpace},
		{name: "enter", spec: "Ctrl+Return", wantNorm: "Ctrl+Enter", wantMods: ModControl, wantKey: vkReturn},
		{name: "page up", spec: "Alt+PageUp", wantNorm: "Alt+PageUp", wantMods: ModAlt, wantKey: vkPrior},
		{name: "F24", spec: "Shift+F24", wantNorm: "Shift+F24", wantMods: ModShift, wantKey: vkF24},
		{name: "hex letter", spec: "Ctrl+0x41", wantNorm: "Ctrl+A", wantMods: ModControl, wantKey: VKey('A')},
		{name: "hex unnamed", spec: "Ctrl+0x5D", wantNorm: "Ctrl+0x5D", wantMods: ModControl, wantKey: VKey(0x5D)},
		{name: "layout character", spec: "Ctrl+;", wantNorm: "Ctrl+0xBA", wantMods: ModControl, wantKey: VKey(0xBA)},
		{name: "plus key", spec: "Ctrl++", wantNorm: "Ctrl+0xBB", wantMods: ModControl, wantKey: VKey(0xBB)},
		{name: "lowercase", spec: "ctrl+shift+f12", wantNorm: "Ctrl+Shift+F12", wantMods: ModControl | ModShift, wantKey: vkF1 + 11},
		{name: "whitespace padded", spec: "  Ctrl + A  ", wantNorm: "Ctrl+A", wantMods: ModControl, wantKey: VKey('A')},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			binding, err := ParseBinding(tt.spec)
			if err != nil {
				t.Fatalf("ParseBinding(%q) returned unexpected error: %v", tt.spec, err)
			}
			if binding.Normalized() != tt.wantNorm {
				t.Errorf("Normalized() = %q, want %q", binding.Normalized(), tt.wantNorm)
			}
			if binding.Modifiers() != tt.wantMods {
				t.Errorf("Modifiers() = 0x%X, want 0x%X", binding.Modifiers(), tt.wantMods)
			}
			if binding.Key() != tt.wantKey {
				t.Errorf("Key() = 0x%X, want 0x%X", binding.Key(), tt.wantKey)
			}
		})
	}
}

func TestParseBindingErrors(t *testing.T) {
	stubLayout(t, nil)

	tests := []struct {
		name    string
		spec    string
		wantSub string
	}{
		{name: "empty spec", spec: "", wantSub: "empty"},
		{name: "whitespace-only spec", spec: "   ", wantSub: "empty"},
		{name: "key only", spec: "J", wantSub: "modifiers and key"},
		{name: "modifier only", spec: "Ctrl", wantSub: "modifiers and key"},
		{name: "unknown modifier", spec: "Hyper+A", wantSub: "unknown modifier"},
		{name: "missing key token", spec: "Ctrl+", wantSub: "missing hotkey key token"},
		{name: "unknown key name", spec: "Ctrl+Banana", wantSub: "unknown key"},
		{name: "invalid hex key", spec: "Ctrl+0xZZZZ", wantSub: "invalid hex key"},
		{name: "hex key 0x0000", spec: "Ctrl+0x0000", wantSub: "not a valid virtual key"},
		{name: "hex key out of range", spec: "Ctrl+0x1FF", wantSub: "not a valid virtual key"},
		{name: "modifier as key", spec: "Ctrl+0x11", wantSub: "modifier key"},
		{name: "leading plus", spec: "+A", wantSub: "unknown modifier"},
		{name: "character missing from layout", spec: "Ctrl+é", wantSub: "keyboard layout"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseBinding(tt.spec)
			if err == nil {
				t.Fatalf("ParseBinding(%q) expected error, got nil", tt.spec)
			}
			if !errors.Is(err, ErrInvalidCombination) {
				t.Errorf("error = %v, want ErrInvalidCombination", err)
			}
			if !strings.Contains(err.Error(), tt.wantSub) {
				t.Errorf("error = %q, want substring %q", err.Error(), tt.wantSub)
			}
		})
	}
}

func TestNewBinding(t *testing.T) {
	b, err := NewBinding(ModWin|ModControl, VKey('J'))
	if err != nil {
		t.Fatalf("NewBinding() error = %v", err)
	}
	if b.Normalized() != "Ctrl+Win+J" {
		t.Fatalf("Normalized() = %q, want %q", b.Normalized(), "Ctrl+Win+J")
	}
	if got := b.registrationModifiers(); got != ModWin|ModControl|modNoRepeat {
		t.Fatalf("registrationModifiers() = 0x%X, want NoRepeat added", got)
	}

	if _, err := NewBinding(ModControl|0x100, VKey('J')); !errors.Is(err, ErrInvalidCombination) {
		t.Fatalf("NewBinding(unknown bits) error = %v, want ErrInvalidCombination", err)
	}
}

func TestZeroModifiersRejectedForEveryKey(t *testing.T) {
	manager := NewManager()
	for code := uint32(1); code <= uint32(maxVKey); code++ {
		key := VKey(code)
		if _, err := NewBinding(0, key); !errors.Is(err, ErrInvalidCombination) {
			t.Fatalf("NewBinding(0, 0x%X) error = %v, want ErrInvalidCombination", code, err)
		}
		reg, err := manager.Register(Binding{key: key})
		if !errors.Is(err, ErrInvalidCombination) {
			t.Fatalf("Register(key 0x%X without modifiers) error = %v, want ErrInvalidCombination", code, err)
		}
		if reg != nil {
			t.Fatalf("Register(key 0x%X without modifiers) returned a registration", code)
		}
	}
}

func TestVirtualKey(t *testing.T) {
	tests := []struct {
		code    uint32
		wantErr bool
	}{
		{code: 0, wantErr: true},
		{code: 0x4A},
		{code: 0xFE},
		{code: 0xFF, wantErr: true},
	}
	for _, tt := range tests {
		_, err := VirtualKey(tt.code)
		if (err != nil) != tt.wantErr {
			t.Errorf("VirtualKey(0x%X) error = %v, wantErr %v", tt.code, err, tt.wantErr)
		}
	}
}
