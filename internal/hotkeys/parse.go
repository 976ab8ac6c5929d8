package hotkeys

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

const (
	vkBack     VKey = 0x08
	vkTab      VKey = 0x09
	vkReturn   VKey = 0x0D
	vkShift    VKey = 0x10
	vkControl  VKey = 0x11
	vkMenu     VKey = 0x12
	vkPause    VKey = 0x13
	vkEscape   VKey = 0x1B
	vkSpace    VKey = 0x20
	vkPrior    VKey = 0x21
	vkNext     VKey = 0x22
	vkEnd      VKey = 0x23
	vkHome     VKey = 0x24
	vkLeft     VKey = 0x25
	vkUp       VKey = 0x26
	vkRight    VKey = 0x27
	vkDown     VKey = 0x28
	vkSnapshot VKey = 0x2C
	vkInsert   VKey = 0x2D
	vkDelete   VKey = 0x2E
	vkLWin     VKey = 0x5B
	vkRWin     VKey = 0x5C
	vkF1       VKey = 0x70
	vkF24      VKey = 0x87
	vkLShift   VKey = 0xA0
	vkRMenu    VKey = 0xA5
	vkOem3     VKey = 0xC0
)

var modifierByName = map[string]Modifier{
	"CTRL":    ModControl,
	"CONTROL": ModControl,
	"SHIFT":   ModShift,
	"ALT":     ModAlt,
	"WIN":     ModWin,
	"WINDOWS": ModWin,
	"SUPER":   ModWin,
	"META":    ModWin,
}

var keyByName = map[string]VKey{
	"SPACE":       vkSpace,
	"TAB":         vkTab,
	"ENTER":       vkReturn,
	"RETURN":      vkReturn,
	"ESC":         vkEscape,
	"ESCAPE":      vkEscape,
	"BACKSPACE":   vkBack,
	"DELETE":      vkDelete,
	"DEL":         vkDelete,
	"INSERT":      vkInsert,
	"HOME":        vkHome,
	"END":         vkEnd,
	"PAGEUP":      vkPrior,
	"PAGEDOWN":    vkNext,
	"LEFT":        vkLeft,
	"RIGHT":       vkRight,
	"UP":          vkUp,
	"DOWN":        vkDown,
	"PAUSE":       vkPause,
	"PRINTSCREEN": vkSnapshot,
	"BACKQUOTE":   vkOem3,
	"GRAVE":       vkOem3,
}

// keyDisplayNames is the canonical spelling used in normalized bindings.
var keyDisplayNames = map[VKey]string{
	vkSpace:    "Space",
	vkTab:      "Tab",
	vkReturn:   "Enter",
	vkEscape:   "Esc",
	vkBack:     "Backspace",
	vkDelete:   "Delete",
	vkInsert:   "Insert",
	vkHome:     "Home",
	vkEnd:      "End",
	vkPrior:    "PageUp",
	vkNext:     "PageDown",
	vkLeft:     "Left",
	vkRight:    "Right",
	vkUp:       "Up",
	vkDown:     "Down",
	vkPause:    "Pause",
	vkSnapshot: "PrintScreen",
	vkOem3:     "`",
}

// layoutKeyFn maps a character to the virtual key that produces it in the
// active keyboard layout. Tests override it.
var layoutKeyFn = layoutKey

// ParseBinding parses a binding like "Ctrl+Win+J".
func ParseBinding(spec string) (Binding, error) {
	raw := strings.TrimSpace(spec)
	if raw == "" {
		return Binding{}, fmt.Errorf("%w: hotkey spec is empty", ErrInvalidCombination)
	}

	parts := splitBinding(raw)
	if len(parts) < 2 {
		return Binding{}, fmt.Errorf("%w: hotkey must include modifiers and key: %s", ErrInvalidCombination, raw)
	}

	var modifiers Modifier
	for _, token := range parts[:len(parts)-1] {
		name := strings.ToUpper(strings.TrimSpace(token))
		mod, ok := modifierByName[name]
		if !ok {
			return Binding{}, fmt.Errorf("%w: unknown modifier %q in hotkey %q", ErrInvalidCombination, token, raw)
		}
		modifiers |= mod
	}

	key, err := ParseKey(parts[len(parts)-1])
	if err != nil {
		return Binding{}, err
	}

	b := Binding{modifiers: modifiers, key: key}
	if err := b.validate(); err != nil {
		return Binding{}, fmt.Errorf("%w (hotkey %q)", err, raw)
	}
	b.normalized = formatBinding(modifiers, keyDisplayName(key))
	return b, nil
}

// splitBinding splits on '+' while allowing '+' itself as the final key
// ("Ctrl++").
func splitBinding(raw string) []string {
	if strings.HasSuffix(raw, "++") {
		head := strings.Split(strings.TrimSuffix(raw, "++"), "+")
		return append(head, "+")
	}
	return strings.Split(raw, "+")
}

// ParseKey resolves a single key token: a letter, digit, function key, named
// key, a 0x-prefixed virtual-key code, or any character present in the
// active keyboard layout.
func ParseKey(raw string) (VKey, error) {
	token := strings.ToUpper(strings.TrimSpace(raw))
	if token == "" {
		return 0, fmt.Errorf("%w: missing hotkey key token", ErrInvalidCombination)
	}

	if key, ok := functionKey(token); ok {
		return key, nil
	}
	if key, ok := keyByName[token]; ok {
		return key, nil
	}

	if utf8.RuneCountInString(token) == 1 {
		ch, _ := utf8.DecodeRuneInString(token)
		switch {
		case ch >= 'A' && ch <= 'Z', ch >= '0' && ch <= '9':
			return VKey(ch), nil
		case ch == '`':
			return vkOem3, nil
		}
		if key, ok := layoutKeyFn(ch); ok {
			return key, nil
		}
		return 0, fmt.Errorf("%w: character %q has no key in the current keyboard layout", ErrInvalidCombination, raw)
	}

	if strings.HasPrefix(token, "0X") {
		value, err := strconv.ParseUint(token[2:], 16, 16)
		if err != nil {
			return 0, fmt.Errorf("%w: invalid hex key %q", ErrInvalidCombination, raw)
		}
		return VirtualKey(uint32(value))
	}

	return 0, fmt.Errorf("%w: unknown key %q in hotkey spec", ErrInvalidCombination, raw)
}

// VirtualKey validates a raw virtual-key code.
func VirtualKey(code uint32) (VKey, error) {
	if code == 0 || code > uint32(maxVKey) {
		return 0, fmt.Errorf("%w: key code 0x%04X is not a valid virtual key", ErrInvalidCombination, code)
	}
	return VKey(code), nil
}

func functionKey(token string) (VKey, bool) {
	if len(token) < 2 || token[0] != 'F' {
		return 0, false
	}
	n, err := strconv.Atoi(token[1:])
	if err != nil || n < 1 || n > 24 {
		return 0, false
	}
	return vkF1 + VKey(n-1), true
}

func keyDisplayName(key VKey) string {
	switch {
	case key >= 'A' && key <= 'Z', key >= '0' && key <= '9':
		return string(rune(key))
	case key >= vkF1 && key <= vkF24:
		return fmt.Sprintf("F%d", key-vkF1+1)
	}
	if name, ok := keyDisplayNames[key]; ok {
		return name
	}
	return fmt.Sprintf("0x%02X", uint32(key))
}

func isModifierKey(key VKey) bool {
	switch {
	case key >= vkShift && key <= vkMenu:
		return true
	case key == vkLWin || key == vkRWin:
		return true
	case key >= vkLShift && key <= vkRMenu:
		return true
	}
	return false
}
